package playback

import (
	"sync"
	"time"
)

// Clock is the timeline buffers are scheduled on. Now is measured from an
// arbitrary origin and never decreases.
type Clock interface {
	Now() time.Duration
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer cancels a pending AfterFunc callback.
type Timer interface {
	Stop() bool
}

// WallClock measures time from its creation.
type WallClock struct {
	origin time.Time
}

// NewWallClock starts a clock at zero.
func NewWallClock() *WallClock {
	return &WallClock{origin: time.Now()}
}

func (c *WallClock) Now() time.Duration {
	return time.Since(c.origin)
}

func (c *WallClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ManualClock is advanced explicitly; callbacks fire inside Advance.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	clock   *ManualClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (c *ManualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d < 0 {
		d = 0
	}
	t := &manualTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward by d and fires due callbacks in time order.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *manualTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at > target {
				continue
			}
			if next == nil || t.at < next.at {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.fired = true
		if next.at > c.now {
			c.now = next.at
		}
		c.mu.Unlock()
		next.f()
	}
}
