package clock

import "time"

// Fixed is a clock pinned to one instant, for deterministic tests.
type Fixed struct {
	now time.Time
}

func NewFixed(now time.Time) *Fixed {
	return &Fixed{now: now.UTC()}
}

func (f *Fixed) Now() time.Time { return f.now }

// Advance moves the clock forward and returns the new instant.
func (f *Fixed) Advance(d time.Duration) time.Time {
	f.now = f.now.Add(d)
	return f.now
}
