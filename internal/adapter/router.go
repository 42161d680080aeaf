package adapter

import (
	"context"
	"errors"
	"io"
	"maps"
	"slices"
	"sync"

	"github.com/roach88/modelq/internal/ir"
	"github.com/roach88/modelq/internal/queryir"
	"github.com/roach88/modelq/internal/schema"
)

// DefaultDatasource receives models that declare no datasource.
const DefaultDatasource = "default"

var (
	_ ReadWriter = (*Memory)(nil)
	_ ReadWriter = (*Router)(nil)
)

// Router dispatches each call to the adapter of the model's datasource.
// It implements ReadWriter itself, so callers never pick adapters by hand.
type Router struct {
	resolver *schema.Resolver

	mu       sync.RWMutex
	adapters map[string]ReadWriter
}

// NewRouter creates a router with no datasources mounted.
func NewRouter(resolver *schema.Resolver) *Router {
	return &Router{
		resolver: resolver,
		adapters: make(map[string]ReadWriter),
	}
}

// Mount binds a datasource name to an adapter. Mounting a name twice is
// rejected.
func (r *Router) Mount(datasource string, a ReadWriter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[datasource]; exists {
		return ir.Errorf(ir.ErrCodeDuplicateDefinition, "datasource %q is already mounted", datasource)
	}
	r.adapters[datasource] = a
	return nil
}

// Datasources lists mounted datasource names, sorted.
func (r *Router) Datasources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.adapters))
}

// For returns the adapter serving model.
func (r *Router) For(model string) (ReadWriter, error) {
	meta, err := r.resolver.Resolve(model)
	if err != nil {
		return nil, err
	}
	ds := meta.Datasource
	if ds == "" {
		ds = DefaultDatasource
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[ds]
	if !ok {
		return nil, ir.Errorf(ir.ErrCodeInvalidArgument, "model %q uses datasource %q, which is not mounted", model, ds).
			WithModel(model)
	}
	return a, nil
}

// Find implements Adapter.
func (r *Router) Find(ctx context.Context, model string, f *queryir.Filter) ([]ir.Object, error) {
	a, err := r.For(model)
	if err != nil {
		return nil, err
	}
	return a.Find(ctx, model, f)
}

// Count implements Adapter.
func (r *Router) Count(ctx context.Context, model string, where queryir.Where) (int, error) {
	a, err := r.For(model)
	if err != nil {
		return 0, err
	}
	return a.Count(ctx, model, where)
}

// Create implements Writer.
func (r *Router) Create(ctx context.Context, model string, record ir.Object) (ir.Object, error) {
	a, err := r.For(model)
	if err != nil {
		return nil, err
	}
	return a.Create(ctx, model, record)
}

// ReplaceByID implements Writer.
func (r *Router) ReplaceByID(ctx context.Context, model string, id ir.Value, record ir.Object) error {
	a, err := r.For(model)
	if err != nil {
		return err
	}
	return a.ReplaceByID(ctx, model, id, record)
}

// PatchByID implements Writer.
func (r *Router) PatchByID(ctx context.Context, model string, id ir.Value, patch ir.Object) error {
	a, err := r.For(model)
	if err != nil {
		return err
	}
	return a.PatchByID(ctx, model, id, patch)
}

// DeleteByID implements Writer.
func (r *Router) DeleteByID(ctx context.Context, model string, id ir.Value) error {
	a, err := r.For(model)
	if err != nil {
		return err
	}
	return a.DeleteByID(ctx, model, id)
}

// Exists implements Writer.
func (r *Router) Exists(ctx context.Context, model string, id ir.Value) (bool, error) {
	a, err := r.For(model)
	if err != nil {
		return false, err
	}
	return a.Exists(ctx, model, id)
}

// Close closes every mounted adapter that holds resources.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for _, name := range slices.Sorted(maps.Keys(r.adapters)) {
		if c, ok := r.adapters[name].(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	r.adapters = make(map[string]ReadWriter)
	return errors.Join(errs...)
}
