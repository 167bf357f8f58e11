package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfosync/nfosync/internal/config"
)

func TestNextScheduledTime(t *testing.T) {
	// 2024-03-06 is a Wednesday (Monday = 0 weekday 2).
	wednesday := time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		s    config.ScheduledSettings
		want time.Time
	}{
		{
			name: "later today",
			now:  wednesday,
			s:    config.ScheduledSettings{Time: "15:30", Days: []int{0, 1, 2, 3, 4, 5, 6}},
			want: time.Date(2024, 3, 6, 15, 30, 0, 0, time.UTC),
		},
		{
			name: "time already passed rolls to tomorrow",
			now:  wednesday,
			s:    config.ScheduledSettings{Time: "03:00", Days: []int{0, 1, 2, 3, 4, 5, 6}},
			want: time.Date(2024, 3, 7, 3, 0, 0, 0, time.UTC),
		},
		{
			name: "skips to the next allowed weekday",
			now:  wednesday,
			s:    config.ScheduledSettings{Time: "03:00", Days: []int{5}}, // Saturday
			want: time.Date(2024, 3, 9, 3, 0, 0, 0, time.UTC),
		},
		{
			name: "today allowed and time still ahead",
			now:  wednesday,
			s:    config.ScheduledSettings{Time: "23:59", Days: []int{2}},
			want: time.Date(2024, 3, 6, 23, 59, 0, 0, time.UTC),
		},
		{
			name: "today allowed but time passed waits a full week",
			now:  wednesday,
			s:    config.ScheduledSettings{Time: "03:00", Days: []int{2}},
			want: time.Date(2024, 3, 13, 3, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly at the scheduled second fires today",
			now:  time.Date(2024, 3, 6, 3, 0, 0, 0, time.UTC),
			s:    config.ScheduledSettings{Time: "03:00", Days: []int{0, 1, 2, 3, 4, 5, 6}},
			want: time.Date(2024, 3, 6, 3, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NextScheduledTime(tc.now, tc.s)
			require.NoError(t, err)
			assert.True(t, got.Equal(tc.want), "got %v, want %v", got, tc.want)
			assert.False(t, got.Before(tc.now))
		})
	}
}

func TestNextScheduledTimeErrors(t *testing.T) {
	now := time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)

	_, err := NextScheduledTime(now, config.ScheduledSettings{Time: "3 am", Days: []int{0}})
	assert.Error(t, err, "unparseable clock time")

	_, err = NextScheduledTime(now, config.ScheduledSettings{Time: "03:00"})
	assert.Error(t, err, "no days enabled")

	_, err = NextScheduledTime(now, config.ScheduledSettings{Time: "03:00", Days: []int{7}})
	assert.Error(t, err, "day out of range")
}

func TestMondayWeekday(t *testing.T) {
	monday := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		assert.Equal(t, i, mondayWeekday(monday.AddDate(0, 0, i)))
	}
}
