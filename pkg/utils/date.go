package utils

import "time"

// TimeNow returns the current time in UTC. All persisted timestamps use it.
func TimeNow() time.Time {
	return time.Now().UTC()
}

// EpochMillis returns t as milliseconds since the Unix epoch.
func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// ElapsedMillis returns the whole milliseconds between start and end, never negative.
func ElapsedMillis(start, end time.Time) int {
	d := end.Sub(start).Milliseconds()
	if d < 0 {
		return 0
	}
	return int(d)
}
