package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/modelq/internal/compiler"
	"github.com/roach88/modelq/internal/engine"
	"github.com/roach88/modelq/internal/ir"
	"github.com/roach88/modelq/internal/queryir"
	"github.com/roach88/modelq/internal/schema"
	"github.com/roach88/modelq/internal/store"
	"github.com/roach88/modelq/internal/testutil"
)

// Harness runs one scenario's queries against a seeded store.
type Harness struct {
	resolver *schema.Resolver
	store    *store.Store
	engine   *engine.Engine
	logger   *slog.Logger
}

// Option configures Run.
type Option func(*config)

type config struct {
	logger *slog.Logger
}

// WithLogger routes engine and harness logs to l. Default: discarded.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// Run executes a test scenario against models and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, whatever
// datasources the models declare. "now" defaults come from a step clock and
// query ids are fixed, so runs are reproducible.
//
// Execution flow:
//  1. Register models in a fresh registry
//  2. Open an in-memory SQLite store
//  3. Seed fixtures
//  4. Run each query and check its expectation
//
// The returned error covers setup failures only; a failing query is reported
// in the Result.
func Run(ctx context.Context, models *compiler.Schema, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := &config{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(cfg)
	}

	reg := schema.NewRegistry()
	if err := models.Register(reg); err != nil {
		return nil, fmt.Errorf("failed to register models: %w", err)
	}
	clock := testutil.NewStepClock(time.Second)
	resolver := schema.NewResolver(reg,
		schema.WithClock(clock.Now),
		schema.WithLogger(cfg.logger),
	)

	st, err := store.Open(":memory:", resolver)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		resolver: resolver,
		store:    st,
		engine: engine.New(resolver, st,
			engine.WithLogger(cfg.logger),
			engine.WithIDGenerator(testutil.NewFixedIDGenerator(scenario.Name)),
		),
		logger: cfg.logger.With("scenario", scenario.Name),
	}

	result := NewResult()
	result.Seeded, err = Seed(ctx, st, resolver, scenario.Fixtures)
	if err != nil {
		return nil, fmt.Errorf("failed to seed fixtures: %w", err)
	}
	h.logger.Debug("fixtures seeded", "records", result.Seeded)

	for _, q := range scenario.Queries {
		out := h.run(ctx, q)
		result.Outcomes = append(result.Outcomes, out)
		for _, msg := range h.check(q, out) {
			result.AddError(fmt.Sprintf("%s: %s", q.Name, msg))
		}
	}
	return result, nil
}

// run executes one query. Engine errors become the outcome's Error.
func (h *Harness) run(ctx context.Context, q Query) Outcome {
	out := Outcome{Name: q.Name, Op: q.Op, Model: q.Model}
	fail := func(err error) Outcome {
		out.Error = err.Error()
		h.logger.Debug("query failed", "query", q.Name, "error", err)
		return out
	}

	f, err := parseFilter(q.Filter)
	if err != nil {
		return fail(err)
	}

	switch q.Op {
	case OpFind:
		out.Records, err = h.engine.Find(ctx, q.Model, f)
	case OpFindOne:
		var rec ir.Object
		rec, err = h.engine.FindOne(ctx, q.Model, f)
		if rec != nil {
			out.Records = []ir.Object{rec}
		}
	case OpFindByID:
		var id ir.Value
		if id, err = ir.FromAny(q.ID); err == nil {
			var rec ir.Object
			rec, err = h.engine.FindByID(ctx, q.Model, id, f)
			if rec != nil {
				out.Records = []ir.Object{rec}
			}
		}
	case OpCount:
		var n int
		n, err = h.engine.Count(ctx, q.Model, f.Where)
		out.Count = &n
	case OpExists:
		var id ir.Value
		if id, err = ir.FromAny(q.ID); err == nil {
			var ok bool
			ok, err = h.engine.Exists(ctx, q.Model, id)
			out.Exists = &ok
		}
	}
	if err != nil {
		out.Count, out.Exists = nil, nil
		return fail(err)
	}
	return out
}

func parseFilter(doc map[string]any) (*queryir.Filter, error) {
	if doc == nil {
		return &queryir.Filter{}, nil
	}
	v, err := ir.FromAny(doc)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	return queryir.ParseFilter(v.(ir.Object))
}
