package adapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/modelq/internal/filter"
	"github.com/roach88/modelq/internal/ir"
	"github.com/roach88/modelq/internal/queryir"
	"github.com/roach88/modelq/internal/schema"
)

// Memory keeps records in process, in insertion order per model.
//
// Thread-safety: all methods are safe for concurrent use.
type Memory struct {
	resolver *schema.Resolver

	mu     sync.RWMutex
	tables map[string]*memTable
}

// memTable is one model's records plus an id index.
type memTable struct {
	rows  []ir.Object
	index map[string]int // ir.Key(id) -> position in rows
}

// NewMemory creates an empty in-memory adapter.
func NewMemory(resolver *schema.Resolver) *Memory {
	return &Memory{
		resolver: resolver,
		tables:   make(map[string]*memTable),
	}
}

func (m *Memory) table(model string) *memTable {
	t, ok := m.tables[model]
	if !ok {
		t = &memTable{index: make(map[string]int)}
		m.tables[model] = t
	}
	return t
}

// Find implements Adapter.
func (m *Memory) Find(ctx context.Context, model string, f *queryir.Filter) ([]ir.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	meta, err := m.resolver.Resolve(model)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	var rows []ir.Object
	if t, ok := m.tables[model]; ok {
		rows = make([]ir.Object, len(t.rows))
		copy(rows, t.rows)
	}
	m.mu.RUnlock()

	out, err := filter.Apply(rows, f, filter.Options{
		Properties: meta.Properties,
		PrimaryKey: meta.PrimaryKey,
	})
	if err != nil {
		return nil, err
	}
	for i, rec := range out {
		out[i] = rec.Clone()
	}
	return out, nil
}

// Count implements Adapter.
func (m *Memory) Count(ctx context.Context, model string, where queryir.Where) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	meta, err := m.resolver.Resolve(model)
	if err != nil {
		return 0, err
	}
	matcher, err := filter.Compile(where, meta.Properties)
	if err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	if t, ok := m.tables[model]; ok {
		for _, rec := range t.rows {
			if matcher.Match(rec) {
				n++
			}
		}
	}
	return n, nil
}

// Create implements Writer. Defaults are applied before the id is checked,
// so a defaultFn on the primary key generates it.
func (m *Memory) Create(ctx context.Context, model string, record ir.Object) (ir.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	meta, err := m.resolver.Resolve(model)
	if err != nil {
		return nil, err
	}
	rec, err := m.resolver.ApplyDefaults(model, record)
	if err != nil {
		return nil, err
	}
	id, ok := rec[meta.PrimaryKey]
	if !ok || ir.IsNull(id) {
		return nil, fmt.Errorf("%w: model %s", ErrMissingID, model)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.table(model)
	key := ir.Key(id)
	if _, exists := t.index[key]; exists {
		return nil, fmt.Errorf("%w: %s %s", ErrDuplicateID, model, key)
	}
	t.index[key] = len(t.rows)
	t.rows = append(t.rows, rec)
	return rec.Clone(), nil
}

// ReplaceByID implements Writer. The stored record becomes exactly record,
// with its id forced to id.
func (m *Memory) ReplaceByID(ctx context.Context, model string, id ir.Value, record ir.Object) error {
	return m.update(ctx, model, id, func(pk string, _ ir.Object) ir.Object {
		rec := record.Clone()
		if rec == nil {
			rec = ir.Object{}
		}
		rec[pk] = id
		return rec
	})
}

// PatchByID implements Writer. Keys in patch overwrite, other keys are kept.
func (m *Memory) PatchByID(ctx context.Context, model string, id ir.Value, patch ir.Object) error {
	return m.update(ctx, model, id, func(pk string, old ir.Object) ir.Object {
		rec := old.Clone()
		for k, v := range patch {
			if k == pk {
				continue
			}
			rec[k] = ir.CloneValue(v)
		}
		return rec
	})
}

func (m *Memory) update(ctx context.Context, model string, id ir.Value, fn func(pk string, old ir.Object) ir.Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pk, err := m.resolver.PrimaryKey(model)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[model]
	if !ok {
		return fmt.Errorf("%w: %s %s", ErrNotFound, model, ir.Key(id))
	}
	pos, ok := t.index[ir.Key(id)]
	if !ok {
		return fmt.Errorf("%w: %s %s", ErrNotFound, model, ir.Key(id))
	}
	t.rows[pos] = fn(pk, t.rows[pos])
	return nil
}

// DeleteByID implements Writer.
func (m *Memory) DeleteByID(ctx context.Context, model string, id ir.Value) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := m.resolver.Resolve(model); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[model]
	if !ok {
		return fmt.Errorf("%w: %s %s", ErrNotFound, model, ir.Key(id))
	}
	key := ir.Key(id)
	pos, ok := t.index[key]
	if !ok {
		return fmt.Errorf("%w: %s %s", ErrNotFound, model, key)
	}
	t.rows = append(t.rows[:pos], t.rows[pos+1:]...)
	delete(t.index, key)
	for k, p := range t.index {
		if p > pos {
			t.index[k] = p - 1
		}
	}
	return nil
}

// Exists implements Writer.
func (m *Memory) Exists(ctx context.Context, model string, id ir.Value) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if _, err := m.resolver.Resolve(model); err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[model]
	if !ok {
		return false, nil
	}
	_, ok = t.index[ir.Key(id)]
	return ok, nil
}
