package service

import (
	"fmt"
	"time"

	"github.com/nfosync/nfosync/internal/config"
)

// NextScheduledTime computes the next clock-based sync after now: today at
// the configured time if that is still ahead, otherwise advanced day by day
// until the weekday is allowed. Weekdays count Monday = 0.
func NextScheduledTime(now time.Time, s config.ScheduledSettings) (time.Time, error) {
	hour, minute, err := s.ClockTime()
	if err != nil {
		return time.Time{}, err
	}
	if len(s.Days) == 0 {
		return time.Time{}, fmt.Errorf("schedule has no days enabled")
	}

	allowed := map[int]bool{}
	for _, day := range s.Days {
		if day < 0 || day > 6 {
			return time.Time{}, fmt.Errorf("schedule day %d out of range", day)
		}
		allowed[day] = true
	}

	candidate := now
	nowSeconds := now.Hour()*3600 + now.Minute()*60 + now.Second()
	if nowSeconds > hour*3600+minute*60 {
		candidate = candidate.AddDate(0, 0, 1)
	}
	for !allowed[mondayWeekday(candidate)] {
		candidate = candidate.AddDate(0, 0, 1)
	}

	return time.Date(candidate.Year(), candidate.Month(), candidate.Day(),
		hour, minute, 0, 0, now.Location()), nil
}

// mondayWeekday converts Go's Sunday-based weekday to the Monday = 0
// convention the schedule settings use.
func mondayWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
