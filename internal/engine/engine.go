package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/modelq/internal/adapter"
	"github.com/roach88/modelq/internal/filter"
	"github.com/roach88/modelq/internal/ir"
	"github.com/roach88/modelq/internal/queryir"
	"github.com/roach88/modelq/internal/relation"
	"github.com/roach88/modelq/internal/schema"
)

// Engine answers queries against models.
//
// Thread-safety: an Engine holds no per-call state and is safe for concurrent
// use as long as its adapter is.
type Engine struct {
	schema    *schema.Resolver
	source    adapter.Adapter
	relations *relation.Resolver
	ids       IDGenerator
	logger    *slog.Logger

	maxIncludeDepth int
	concurrency     int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithIDGenerator sets the correlation id source. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithMaxIncludeDepth bounds include nesting. Default: DefaultMaxIncludeDepth.
// Zero disables the check.
func WithMaxIncludeDepth(n int) Option {
	return func(e *Engine) {
		e.maxIncludeDepth = n
	}
}

// WithConcurrency caps concurrent relation fetches per include call.
// Default: no cap.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		e.concurrency = n
	}
}

// New creates an Engine over source.
func New(s *schema.Resolver, source adapter.Adapter, opts ...Option) *Engine {
	e := &Engine{
		schema:          s,
		source:          source,
		ids:             UUIDv7Generator{},
		logger:          slog.Default(),
		maxIncludeDepth: DefaultMaxIncludeDepth,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.relations = relation.New(s, source,
		relation.WithConcurrency(e.concurrency),
		relation.WithLogger(e.logger),
	)
	return e
}

// Find returns the records of model matching f, with includes attached.
// A nil filter returns every record in store order.
func (e *Engine) Find(ctx context.Context, model string, f *queryir.Filter) ([]ir.Object, error) {
	if f == nil {
		f = &queryir.Filter{}
	}
	log := e.logger.With("query", e.ids.Generate(), "model", model)

	meta, err := e.prepare(log, model, f)
	if err != nil {
		return nil, err
	}

	records, err := e.source.Find(ctx, model, &queryir.Filter{Where: f.Where})
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", model, err)
	}
	fetched := len(records)

	filter.Sort(records, f.Order)
	records, err = filter.Slice(records, f.Skip, f.Limit)
	if err != nil {
		return nil, err
	}
	if err := e.relations.With(log).Include(ctx, model, records, f.Include); err != nil {
		return nil, err
	}
	records = filter.Project(records, f.Fields, meta.PrimaryKey, queryir.Relations(f.Include)...)

	log.Debug("find completed",
		"fetched", fetched,
		"returned", len(records),
		"includes", len(f.Include),
	)
	return records, nil
}

// FindOne returns the first record Find would return, or nil when there is
// none.
func (e *Engine) FindOne(ctx context.Context, model string, f *queryir.Filter) (ir.Object, error) {
	one := f.Clone()
	limit := 1
	one.Limit = &limit

	records, err := e.Find(ctx, model, one)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// FindByID returns the record of model whose primary key equals id. The
// filter's where, if any, must also match. A missing record is a NOT_FOUND
// error.
func (e *Engine) FindByID(ctx context.Context, model string, id ir.Value, f *queryir.Filter) (ir.Object, error) {
	pk, err := e.schema.PrimaryKey(model)
	if err != nil {
		return nil, err
	}
	byID, err := queryir.ParseWhere(ir.Object{pk: ir.Object{string(queryir.OpEq): id}})
	if err != nil {
		return nil, err
	}

	scoped := f.Clone()
	if scoped.Where == nil {
		scoped.Where = byID
	} else {
		scoped.Where = queryir.And{Clauses: []queryir.Where{byID, scoped.Where}}
	}

	rec, err := e.FindOne(ctx, model, scoped)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ir.Errorf(ir.ErrCodeNotFound, "no %s with %s %s", model, pk, ir.Key(id)).
			WithModel(model).WithProperty(pk)
	}
	return rec, nil
}

// Count returns how many records of model match where.
func (e *Engine) Count(ctx context.Context, model string, where queryir.Where) (int, error) {
	log := e.logger.With("query", e.ids.Generate(), "model", model)
	if _, err := e.prepare(log, model, &queryir.Filter{Where: where}); err != nil {
		return 0, err
	}
	n, err := e.source.Count(ctx, model, where)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", model, err)
	}
	log.Debug("count completed", "count", n)
	return n, nil
}

// Exists reports whether a record of model has primary key id.
func (e *Engine) Exists(ctx context.Context, model string, id ir.Value) (bool, error) {
	pk, err := e.schema.PrimaryKey(model)
	if err != nil {
		return false, err
	}
	where, err := queryir.ParseWhere(ir.Object{pk: ir.Object{string(queryir.OpEq): id}})
	if err != nil {
		return false, err
	}
	n, err := e.Count(ctx, model, where)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// prepare runs every check that does not need data, so malformed queries
// fail before the first fetch.
func (e *Engine) prepare(log *slog.Logger, model string, f *queryir.Filter) (*schema.Resolved, error) {
	meta, err := e.schema.Resolve(model)
	if err != nil {
		return nil, err
	}

	result := queryir.Validate(f, meta)
	for _, w := range result.Warnings {
		log.Warn("filter references undeclared name", "warning", w)
	}

	if _, err := filter.Compile(f.Where, meta.Properties); err != nil {
		return nil, err
	}
	if _, err := filter.Slice(nil, f.Skip, f.Limit); err != nil {
		return nil, err
	}
	if err := checkIncludeDepth(model, f.Include, e.maxIncludeDepth); err != nil {
		return nil, err
	}
	if err := e.relations.Validate(model, f.Include); err != nil {
		return nil, err
	}
	return meta, nil
}
