package testsupport

import (
	"sync"
	"time"
)

// Clock is a manually driven clock for ttl tests.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock frozen at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Epoch is a whole-second instant used as the default start of fake clocks.
// Whole seconds survive every backend's timestamp resolution.
var Epoch = time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)
