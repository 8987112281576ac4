package flo

import "time"

// TimeLayout is the millisecond ISO-8601 layout used for entry timestamps.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Timestamp formats t in the persisted timestamp layout.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTimestamp parses a persisted timestamp.
// If s is not parseable, "zero" time is returned.
func ParseTimestamp(s string) time.Time {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
