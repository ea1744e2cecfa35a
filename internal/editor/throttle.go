package editor

import "time"

// Throttle lets a pointer-move sample through when it is the Samples-th
// since the last accepted one, or when at least Interval has passed since
// then. Rejected samples are simply dropped.
type Throttle struct {
	Samples  int
	Interval time.Duration

	count int
	last  time.Time
}

// Reset starts a new sequence at the given time.
func (t *Throttle) Reset(at time.Time) {
	t.count = 0
	t.last = at
}

// Allow reports whether the sample taken at the given time is processed.
func (t *Throttle) Allow(at time.Time) bool {
	t.count++
	if t.count >= t.Samples || at.Sub(t.last) >= t.Interval {
		t.count = 0
		t.last = at
		return true
	}
	return false
}
