package journal

import "time"

// SetClock overrides the time source.
func (j *Journal) SetClock(now func() time.Time) {
	j.now = now
}
