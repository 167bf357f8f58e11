// Package utcdt provides the engine's canonical timestamp handling. Wall-clock
// state (last sync, sidecar modification times) is always carried in UTC;
// schedule times are local because the user configures them as local wall time.
package utcdt

import (
	"time"
)

// ISO is the serialization layout used for persisted timestamps. Second
// precision, no fractional part, explicit offset.
const ISO = "2006-01-02T15:04:05Z07:00"

// Now returns the current time in UTC, truncated to whole seconds.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// LocalNow returns the current local time, truncated to whole seconds.
func LocalNow() time.Time {
	return time.Now().Truncate(time.Second)
}

// FromISO parses an ISO-8601 timestamp. Timestamps without an offset are
// interpreted as UTC, matching how the host reports file times.
func FromISO(s string) (time.Time, error) {
	if t, err := time.Parse(ISO, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// FromUnix converts seconds since the Unix epoch to a UTC time.
func FromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// ToISO formats a timestamp with second precision.
func ToISO(t time.Time) string {
	return t.Truncate(time.Second).Format(ISO)
}
