package server

import (
	"sync"
	"time"
)

// countdown is a cancelable, pausable one-second countdown. Each aggregate
// owns exactly one instance; it is never shared across rooms. Callbacks are
// invoked outside the internal lock, so they may call back into start, pause,
// or reset without deadlocking. The epoch counter guarantees a stale scheduled
// tick (one that raced with start, pause, or reset) never fires its callbacks.
type countdown struct {
	mu        sync.Mutex
	interval  time.Duration
	remaining int
	running   bool
	paused    bool
	epoch     uint64
	pending   *time.Timer
	onTick    func(remaining int)
	onExpire  func()
}

func newCountdown() *countdown {
	return &countdown{interval: time.Second}
}

// start cancels any pending schedule and begins a fresh countdown. The extra
// second absorbs the immediate first tick cycle, so onTick fires with
// durationSeconds right away and then once per elapsed second down to zero,
// at which point onExpire fires exactly once.
func (c *countdown) start(durationSeconds int, onExpire func(), onTick func(remaining int)) {
	c.mu.Lock()
	c.cancelLocked()
	c.remaining = durationSeconds + 1
	c.running = true
	c.paused = false
	c.onTick = onTick
	c.onExpire = onExpire
	epoch := c.epoch
	c.mu.Unlock()
	c.tickCycle(epoch)
}

func (c *countdown) pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || c.paused {
		return
	}
	c.cancelLocked()
	c.remaining++
	c.paused = true
}

func (c *countdown) resume() {
	c.mu.Lock()
	if !c.paused {
		c.mu.Unlock()
		return
	}
	c.paused = false
	epoch := c.epoch
	c.mu.Unlock()
	c.tickCycle(epoch)
}

func (c *countdown) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	c.running = false
	c.paused = false
	c.remaining = 0
}

func (c *countdown) remainingSeconds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

func (c *countdown) isRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// cancelLocked stops the pending schedule and invalidates in-flight ticks.
func (c *countdown) cancelLocked() {
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
	c.epoch++
}

func (c *countdown) tickCycle(epoch uint64) {
	c.mu.Lock()
	if epoch != c.epoch || !c.running || c.paused {
		c.mu.Unlock()
		return
	}
	c.remaining--
	remaining := c.remaining
	onTick := c.onTick
	onExpire := c.onExpire
	if remaining <= 0 {
		c.cancelLocked()
		c.running = false
		c.remaining = 0
		c.mu.Unlock()
		if onTick != nil {
			onTick(0)
		}
		if onExpire != nil {
			onExpire()
		}
		return
	}
	next := c.epoch
	c.pending = time.AfterFunc(c.interval, func() {
		c.tickCycle(next)
	})
	c.mu.Unlock()
	if onTick != nil {
		onTick(remaining)
	}
}
