package lastknown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		records map[uint32]record
	}{
		{
			name:    "empty",
			records: map[uint32]record{},
		},
		{
			name: "checksum only",
			records: map[uint32]record{
				7: {checksum: 0xDEADBEEF, hasChecksum: true},
			},
		},
		{
			name: "mtime only",
			records: map[uint32]record{
				3: {mtime: 1700000000, hasMtime: true},
			},
		},
		{
			name: "both fields, several records",
			records: map[uint32]record{
				1:      {checksum: 1, hasChecksum: true, mtime: 100, hasMtime: true},
				42:     {checksum: 0xFFFFFFFF, hasChecksum: true},
				999999: {mtime: 1 << 39, hasMtime: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := make([]uint32, 0, len(tt.records))
			for id := range tt.records {
				ids = append(ids, id)
			}
			got := decode(encode(tt.records, ids))
			assert.Equal(t, tt.records, got)
		})
	}
}

func TestDecodeTruncated(t *testing.T) {
	records := map[uint32]record{
		1: {checksum: 11, hasChecksum: true},
		2: {checksum: 22, hasChecksum: true},
		3: {checksum: 33, hasChecksum: true},
	}
	full := encode(records, []uint32{1, 2, 3})
	require.Len(t, full, versionBytes+3*recordBytes)

	// Cut into the middle of the third record: the first two survive.
	got := decode(full[:versionBytes+2*recordBytes+6])
	assert.Equal(t, map[uint32]record{
		1: {checksum: 11, hasChecksum: true},
		2: {checksum: 22, hasChecksum: true},
	}, got)

	// A bare header or less yields no records.
	assert.Empty(t, decode(full[:versionBytes]))
	assert.Empty(t, decode(full[:1]))
	assert.Empty(t, decode(nil))
}

func TestDecodeDropsEmptyRecords(t *testing.T) {
	// A record with neither field marked present is noise, not state.
	data := encode(map[uint32]record{5: {}}, []uint32{5})
	assert.Empty(t, decode(data))
}

func TestMtime40BitRange(t *testing.T) {
	// Largest value that fits in 40 bits survives the round trip.
	max := int64(1)<<40 - 1
	records := map[uint32]record{1: {mtime: max, hasMtime: true}}
	got := decode(encode(records, []uint32{1}))
	assert.Equal(t, max, got[1].mtime)
}
