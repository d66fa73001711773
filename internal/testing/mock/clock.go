package mock

import (
	"sync"
	"time"
)

// Epoch is where a Clock built from the zero time starts.
var Epoch = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

// Clock is a manually driven time source. Its Now method has the shape
// engine.NewState expects, so suppression windows can be stepped through
// without sleeping.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock stopped at start, or at Epoch for the zero time.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = Epoch
	}
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}
