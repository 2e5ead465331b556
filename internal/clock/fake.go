package clock

import "time"

// FakeClock is a manually advanced Clock. Tests age pending payments and
// move sweep windows with Advance instead of sleeping.
//
// Advance is not synchronized; tests advance between operations, never
// while a sweep is in flight.
type FakeClock struct {
	now time.Time
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
