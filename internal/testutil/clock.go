package testutil

import (
	"sync"
	"time"
)

// WallClock is a fake wall clock for tests of wall-clock-driven behavior
// (snapshot scheduling, ceilings). Time only moves when Advance is
// called, so the same test produces identical schedules on every run.
//
// Thread-safety: all methods are safe for concurrent use via an internal
// mutex.
type WallClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewWallClock creates a fake clock at an arbitrary fixed origin.
func NewWallClock() *WallClock {
	return &WallClock{now: time.Unix(1_700_000_000, 0)}
}

// Now returns the current fake time. Pass the method value as a
// time.Now replacement.
func (c *WallClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *WallClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
