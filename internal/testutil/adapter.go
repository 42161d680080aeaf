package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/modelq/internal/adapter"
	"github.com/roach88/modelq/internal/ir"
	"github.com/roach88/modelq/internal/queryir"
)

// Call records one Find issued through a CountingAdapter.
type Call struct {
	Model  string
	Filter *queryir.Filter
}

// CountingAdapter wraps an adapter and records every Find it serves.
// It can also be told to fail Find for one model.
//
// Thread-safety: safe for concurrent use; relation fan-out calls Find from
// several goroutines.
type CountingAdapter struct {
	inner adapter.Adapter

	mu     sync.Mutex
	calls  []Call
	failOn map[string]error
}

var _ adapter.Adapter = (*CountingAdapter)(nil)

// NewCountingAdapter wraps inner.
func NewCountingAdapter(inner adapter.Adapter) *CountingAdapter {
	return &CountingAdapter{inner: inner, failOn: make(map[string]error)}
}

// FailOn makes every later Find for model return err.
func (c *CountingAdapter) FailOn(model string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		err = fmt.Errorf("testutil: injected failure for %s", model)
	}
	c.failOn[model] = err
}

// Find records the call and delegates.
func (c *CountingAdapter) Find(ctx context.Context, model string, f *queryir.Filter) ([]ir.Object, error) {
	c.mu.Lock()
	c.calls = append(c.calls, Call{Model: model, Filter: f.Clone()})
	err := c.failOn[model]
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return c.inner.Find(ctx, model, f)
}

// Count delegates without recording.
func (c *CountingAdapter) Count(ctx context.Context, model string, where queryir.Where) (int, error) {
	return c.inner.Count(ctx, model, where)
}

// Calls returns a copy of the recorded calls in arrival order.
func (c *CountingAdapter) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// CallsFor counts recorded calls for model.
func (c *CountingAdapter) CallsFor(model string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if call.Model == model {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls and injected failures.
func (c *CountingAdapter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = nil
	c.failOn = make(map[string]error)
}
