package lastknown

import (
	"encoding/binary"
)

// On-disk layout, little endian:
//
//	file   := version:u16 record*
//	record := id:u32 status:u8 checksum:u32 mtime:u40
//
// status bit 0 marks the checksum as present, bit 1 the mtime. Absent fields
// still occupy their bytes with value 0. mtime is seconds since the Unix
// epoch; 40 bits outlast year 36000.
const (
	formatVersion = 0

	versionBytes = 2
	recordBytes  = 4 + 1 + 4 + 5

	bitChecksum = 1 << 0
	bitMtime    = 1 << 1
)

type record struct {
	checksum    uint32
	hasChecksum bool
	mtime       int64
	hasMtime    bool
}

func (r record) empty() bool {
	return !r.hasChecksum && !r.hasMtime
}

// decode parses a tracker file body. Truncated trailing records are dropped;
// everything read up to that point is kept.
func decode(data []byte) map[uint32]record {
	out := make(map[uint32]record)
	if len(data) < versionBytes {
		return out
	}
	// Version is currently informational only.
	data = data[versionBytes:]

	for len(data) >= recordBytes {
		id := binary.LittleEndian.Uint32(data[0:4])
		status := data[4]
		checksum := binary.LittleEndian.Uint32(data[5:9])
		mtime := int64(data[9]) | int64(data[10])<<8 | int64(data[11])<<16 |
			int64(data[12])<<24 | int64(data[13])<<32

		rec := record{}
		if status&bitChecksum != 0 {
			rec.checksum = checksum
			rec.hasChecksum = true
		}
		if status&bitMtime != 0 {
			rec.mtime = mtime
			rec.hasMtime = true
		}
		if !rec.empty() {
			out[id] = rec
		}

		data = data[recordBytes:]
	}
	return out
}

// encode serializes records sorted by id so writes are deterministic.
func encode(records map[uint32]record, ids []uint32) []byte {
	out := make([]byte, 0, versionBytes+len(ids)*recordBytes)
	out = binary.LittleEndian.AppendUint16(out, formatVersion)

	for _, id := range ids {
		rec := records[id]

		out = binary.LittleEndian.AppendUint32(out, id)

		var status byte
		if rec.hasChecksum {
			status |= bitChecksum
		}
		if rec.hasMtime {
			status |= bitMtime
		}
		out = append(out, status)
		out = binary.LittleEndian.AppendUint32(out, rec.checksum)

		mtime := rec.mtime
		out = append(out,
			byte(mtime), byte(mtime>>8), byte(mtime>>16), byte(mtime>>24), byte(mtime>>32))
	}
	return out
}
