package testutil

import (
	"sync"
	"time"
)

// Epoch is the first instant a StepClock reports.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// StepClock is a deterministic time source for tests.
//
// Each call to Now advances the clock by a fixed step, so "now" defaults and
// ULID timestamps come out identical across runs. Pass clock.Now to
// schema.WithClock.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu    sync.Mutex
	step  time.Duration
	ticks int64
}

// NewStepClock creates a clock advancing by step per call. A zero step means
// one second.
func NewStepClock(step time.Duration) *StepClock {
	if step == 0 {
		step = time.Second
	}
	return &StepClock{step: step}
}

// Now advances the clock and returns the new instant.
// The first call returns Epoch plus one step.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	return Epoch.Add(time.Duration(c.ticks) * c.step)
}

// Ticks returns how many times Now has been called.
func (c *StepClock) Ticks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// Reset rewinds the clock to Epoch.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = 0
}
