package sim

import (
	"context"
	"math"
	"sync"
	"time"
)

// Clock suspends the interpreter between motion steps. Sleep returns the
// context error if ctx is cancelled before d has elapsed.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// WallClock sleeps in real time, stretched by Scale. A zero scale never
// blocks, which runs a program as fast as the interpreter can step it.
type WallClock struct {
	Scale float64
}

// Sleep implements Clock.
func (c WallClock) Sleep(ctx context.Context, d time.Duration) error {
	d = scaled(d, c.Scale)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// scaled multiplies d by scale, saturating at the largest duration. A NaN
// or negative result is zero.
func scaled(d time.Duration, scale float64) time.Duration {
	ns := float64(d) * scale
	switch {
	case !(ns > 0):
		return 0
	case ns >= math.MaxInt64:
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}

// ManualClock only advances when Advance is called. It lets tests step a
// running program tick by tick.
type ManualClock struct {
	mu       sync.Mutex
	now      time.Duration
	sleepers map[*sleeper]struct{}
	changed  chan struct{}
}

type sleeper struct {
	until time.Duration
	done  chan struct{}
}

// NewManualClock returns a clock at time zero.
func NewManualClock() *ManualClock {
	return &ManualClock{
		sleepers: make(map[*sleeper]struct{}),
		changed:  make(chan struct{}),
	}
}

// Now returns the simulated time elapsed so far.
func (c *ManualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep implements Clock.
func (c *ManualClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	c.mu.Lock()
	s := &sleeper{until: c.now + d, done: make(chan struct{})}
	c.sleepers[s] = struct{}{}
	c.notifyLocked()
	c.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		c.mu.Lock()
		if _, ok := c.sleepers[s]; ok {
			delete(c.sleepers, s)
			c.notifyLocked()
		}
		c.mu.Unlock()
		return ctx.Err()
	}
}

// Advance moves time forward by d and wakes every sleeper that is due.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
	woke := false
	for s := range c.sleepers {
		if s.until <= c.now {
			close(s.done)
			delete(c.sleepers, s)
			woke = true
		}
	}
	if woke {
		c.notifyLocked()
	}
}

// Sleepers returns the number of goroutines blocked in Sleep.
func (c *ManualClock) Sleepers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sleepers)
}

// WaitForSleepers blocks until at least n goroutines are blocked in Sleep.
func (c *ManualClock) WaitForSleepers(ctx context.Context, n int) error {
	for {
		c.mu.Lock()
		if len(c.sleepers) >= n {
			c.mu.Unlock()
			return nil
		}
		changed := c.changed
		c.mu.Unlock()
		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *ManualClock) notifyLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}
