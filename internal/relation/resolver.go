package relation

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/modelq/internal/adapter"
	"github.com/roach88/modelq/internal/filter"
	"github.com/roach88/modelq/internal/ir"
	"github.com/roach88/modelq/internal/queryir"
	"github.com/roach88/modelq/internal/schema"
)

// Resolver fetches and attaches related records.
//
// Thread-safety: a Resolver is stateless between calls and safe for
// concurrent use.
type Resolver struct {
	schema *schema.Resolver
	source adapter.Adapter
	limit  int
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithConcurrency caps how many fetches one Include call runs at once.
// Zero or negative means no cap.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		r.limit = n
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// New creates a Resolver reading related records through source.
func New(s *schema.Resolver, source adapter.Adapter, opts ...Option) *Resolver {
	r := &Resolver{schema: s, source: source, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// With returns a copy of r that logs through l, so one call's lines carry
// its own fields.
func (r *Resolver) With(l *slog.Logger) *Resolver {
	c := *r
	c.logger = l
	return &c
}

// job is one batched fetch and the attachments it produces.
type job struct {
	model     string // source model
	relation  ir.RelationDefinition
	target    string
	targetKey string // correlating property on the target
	sourceKey string // correlating property on the source
	where     queryir.Where
	scope     *queryir.Filter
	sources   []int // indices into the source records
}

// staged is one pending attachment.
type staged struct {
	index int
	name  string
	value ir.Value
}

// Include resolves includes for records of model and attaches the results
// under each relation name.
//
// All validation happens before the first fetch. Either every attachment is
// applied or, on error, none is.
func (r *Resolver) Include(ctx context.Context, model string, records []ir.Object, includes []queryir.Include) error {
	if len(includes) == 0 || len(records) == 0 {
		return nil
	}
	if err := r.Validate(model, includes); err != nil {
		return err
	}

	var jobs []*job
	for _, inc := range includes {
		planned, err := r.plan(model, records, inc)
		if err != nil {
			return err
		}
		jobs = append(jobs, planned...)
	}

	results := make([][]staged, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}
	for i, j := range jobs {
		g.Go(func() error {
			out, err := r.run(gctx, records, j)
			if err != nil {
				return fmt.Errorf("include %s.%s: %w", model, j.relation.Name, err)
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, batch := range results {
		for _, s := range batch {
			records[s.index][s.name] = s.value
		}
	}
	return nil
}

// Validate checks includes against the schema without fetching anything:
// relations must exist, targets must resolve, foreign keys and
// discriminators must be declared, and scopes must compile. Nested includes
// are checked against their target models.
func (r *Resolver) Validate(model string, includes []queryir.Include) error {
	for _, inc := range includes {
		rel, err := r.schema.Relation(model, inc.Relation)
		if err != nil {
			return err
		}
		declared, err := declaredScope(rel)
		if err != nil {
			return fmt.Errorf("scope of %s.%s: %w", model, rel.Name, err)
		}
		scope := mergeScopes(declared, inc.Scope)

		targets, err := r.targetsOf(model, rel)
		if err != nil {
			return err
		}
		if rel.Kind == ir.BelongsTo && rel.Polymorphic != nil {
			if err := r.requireProperty(model, cmpOr(rel.KeyFrom, rel.ForeignKey), rel); err != nil {
				return err
			}
			if err := r.requireProperty(model, rel.Polymorphic.Discriminator, rel); err != nil {
				return err
			}
		}
		for _, target := range targets {
			meta, err := r.schema.Resolve(target)
			if err != nil {
				return err
			}
			if err := r.checkKeys(model, target, rel); err != nil {
				return err
			}
			if err := r.checkScopeOf(meta, scope); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkScope compiles a scope's where against target and validates its
// nested includes.
func (r *Resolver) checkScope(target string, scope *queryir.Filter) error {
	meta, err := r.schema.Resolve(target)
	if err != nil {
		return err
	}
	return r.checkScopeOf(meta, scope)
}

func (r *Resolver) checkScopeOf(meta *schema.Resolved, scope *queryir.Filter) error {
	if _, err := filter.Compile(scope.Where, meta.Properties); err != nil {
		return err
	}
	return r.Validate(meta.Name, scope.Include)
}

// targetsOf lists the models a relation can load. A polymorphic belongsTo
// without declared targets returns none; its targets are checked per record.
func (r *Resolver) targetsOf(model string, rel ir.RelationDefinition) ([]string, error) {
	if rel.Polymorphic != nil {
		switch rel.Kind {
		case ir.BelongsTo:
			return rel.Polymorphic.Targets, nil
		case ir.HasOne, ir.HasMany:
		default:
			return nil, ir.Errorf(ir.ErrCodeNotImplemented, "polymorphic %s relation %s.%s is not supported",
				rel.Kind, model, rel.Name).WithModel(model)
		}
	}
	if rel.Target == "" {
		return nil, ir.Errorf(ir.ErrCodeInvalidArgument, "relation %s.%s has no target model", model, rel.Name).
			WithModel(model)
	}
	return []string{rel.Target}, nil
}

// keyNames returns the source and target correlating properties.
func (r *Resolver) keyNames(model, target string, rel ir.RelationDefinition) (sourceKey, targetKey string, err error) {
	switch rel.Kind {
	case ir.BelongsTo, ir.ReferencesMany:
		sourceKey = cmpOr(rel.KeyFrom, rel.ForeignKey)
		targetKey = rel.KeyTo
		if targetKey == "" {
			targetKey, err = r.schema.PrimaryKey(target)
		}
	case ir.HasOne, ir.HasMany:
		sourceKey = rel.KeyFrom
		if sourceKey == "" {
			sourceKey, err = r.schema.PrimaryKey(model)
		}
		targetKey = cmpOr(rel.KeyTo, rel.ForeignKey)
	default:
		err = ir.Errorf(ir.ErrCodeNotImplemented, "relation kind %q is not supported", rel.Kind).WithModel(model)
	}
	return sourceKey, targetKey, err
}

// checkKeys verifies that the foreign key and discriminator are declared on
// the model that holds them.
func (r *Resolver) checkKeys(model, target string, rel ir.RelationDefinition) error {
	sourceKey, targetKey, err := r.keyNames(model, target, rel)
	if err != nil {
		return err
	}
	if err := r.requireProperty(model, sourceKey, rel); err != nil {
		return err
	}
	if err := r.requireProperty(target, targetKey, rel); err != nil {
		return err
	}
	if rel.Polymorphic != nil {
		holder := model
		if rel.Kind != ir.BelongsTo {
			holder = target
		}
		if err := r.requireProperty(holder, rel.Polymorphic.Discriminator, rel); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) requireProperty(model, property string, rel ir.RelationDefinition) error {
	meta, err := r.schema.Resolve(model)
	if err != nil {
		return err
	}
	head, _, _ := strings.Cut(property, ".")
	if meta.HasProperty(property) || meta.HasProperty(head) {
		return nil
	}
	return ir.Errorf(ir.ErrCodeUnknownProperty, "relation %s (%s) needs property %q on model %q",
		rel.Name, rel.Kind, property, model).WithModel(model).WithProperty(property)
}

// plan builds the fetch jobs of one include. Value-shape errors surface here,
// before any fetch runs.
func (r *Resolver) plan(model string, records []ir.Object, inc queryir.Include) ([]*job, error) {
	rel, err := r.schema.Relation(model, inc.Relation)
	if err != nil {
		return nil, err
	}
	declared, err := declaredScope(rel)
	if err != nil {
		return nil, err
	}
	scope := mergeScopes(declared, inc.Scope)

	if rel.Kind == ir.BelongsTo && rel.Polymorphic != nil {
		return r.planPolymorphicBelongsTo(model, records, rel, scope)
	}

	sourceKey, targetKey, err := r.keyNames(model, rel.Target, rel)
	if err != nil {
		return nil, err
	}
	j := &job{
		model:     model,
		relation:  rel,
		target:    rel.Target,
		targetKey: targetKey,
		sourceKey: sourceKey,
		scope:     scope,
	}

	keys := newKeySet()
	for i, rec := range records {
		v, _ := rec.Get(sourceKey)
		if rel.Kind == ir.ReferencesMany {
			ids, err := idArray(model, rel, v)
			if err != nil {
				return nil, err
			}
			for _, id := range ids {
				keys.add(id)
			}
		} else {
			if err := scalarKey(model, rel, sourceKey, v); err != nil {
				return nil, err
			}
			keys.add(v)
		}
		j.sources = append(j.sources, i)
	}

	var equals map[string]ir.Value
	if rel.Polymorphic != nil {
		// hasOne/hasMany: the target names its owner model
		equals = map[string]ir.Value{rel.Polymorphic.Discriminator: ir.String(model)}
	}
	if keys.len() > 0 {
		j.where, err = keyPredicate(targetKey, keys.values, equals)
		if err != nil {
			return nil, err
		}
	}
	return []*job{j}, nil
}

// planPolymorphicBelongsTo partitions sources by discriminator value and
// builds one job per distinct target model, in first-seen order.
func (r *Resolver) planPolymorphicBelongsTo(model string, records []ir.Object, rel ir.RelationDefinition, scope *queryir.Filter) ([]*job, error) {
	disc := rel.Polymorphic.Discriminator
	byTarget := make(map[string]*job)
	keysByTarget := make(map[string]*keySet)
	var order []string

	for i, rec := range records {
		dv, _ := rec.Get(disc)
		if ir.IsNull(dv) {
			continue
		}
		name, ok := dv.(ir.String)
		if !ok || name == "" {
			return nil, ir.Errorf(ir.ErrCodeInvalidArgument, "discriminator %q of %s.%s must name a model, got %s",
				disc, model, rel.Name, ir.Key(dv)).WithModel(model).WithProperty(disc)
		}
		target := string(name)
		if len(rel.Polymorphic.Targets) > 0 && !slices.Contains(rel.Polymorphic.Targets, target) {
			return nil, ir.Errorf(ir.ErrCodeInvalidArgument, "discriminator %q of %s.%s names %q, expected one of %s",
				disc, model, rel.Name, target, strings.Join(rel.Polymorphic.Targets, ", ")).WithModel(model).WithProperty(disc)
		}

		j, ok := byTarget[target]
		if !ok {
			if _, err := r.schema.Resolve(target); err != nil {
				return nil, err
			}
			if err := r.checkKeys(model, target, rel); err != nil {
				return nil, err
			}
			// open target lists cannot be checked up front
			if len(rel.Polymorphic.Targets) == 0 {
				if err := r.checkScope(target, scope); err != nil {
					return nil, err
				}
			}
			sourceKey, targetKey, err := r.keyNames(model, target, rel)
			if err != nil {
				return nil, err
			}
			j = &job{
				model:     model,
				relation:  rel,
				target:    target,
				targetKey: targetKey,
				sourceKey: sourceKey,
				scope:     scope,
			}
			byTarget[target] = j
			keysByTarget[target] = newKeySet()
			order = append(order, target)
		}
		fk, _ := rec.Get(j.sourceKey)
		if err := scalarKey(model, rel, j.sourceKey, fk); err != nil {
			return nil, err
		}
		keysByTarget[target].add(fk)
		j.sources = append(j.sources, i)
	}

	jobs := make([]*job, 0, len(order))
	for _, target := range order {
		j := byTarget[target]
		if ks := keysByTarget[target]; ks.len() > 0 {
			w, err := keyPredicate(j.targetKey, ks.values, nil)
			if err != nil {
				return nil, err
			}
			j.where = w
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// idArray validates a referencesMany value: an array, or absent/null.
func idArray(model string, rel ir.RelationDefinition, v ir.Value) (ir.Array, error) {
	if ir.IsNull(v) {
		return nil, nil
	}
	ids, ok := v.(ir.Array)
	if !ok {
		key := cmpOr(rel.KeyFrom, rel.ForeignKey)
		return nil, ir.Errorf(ir.ErrCodeInvalidArgument, "%s.%s must be an array of ids for relation %s, got %s",
			model, key, rel.Name, ir.KindOf(v)).WithModel(model).WithProperty(key)
	}
	return ids, nil
}

// scalarKey rejects arrays and objects where a single key value is expected.
func scalarKey(model string, rel ir.RelationDefinition, key string, v ir.Value) error {
	switch v.(type) {
	case ir.Array, ir.Object:
		return ir.Errorf(ir.ErrCodeInvalidArgument, "%s.%s must be a single key value for relation %s, got %s",
			model, key, rel.Name, ir.KindOf(v)).WithModel(model).WithProperty(key)
	}
	return nil
}

// run performs one fetch and computes its attachments.
func (r *Resolver) run(ctx context.Context, records []ir.Object, j *job) ([]staged, error) {
	var fetched []ir.Object
	if j.where != nil {
		var err error
		fetched, err = r.source.Find(ctx, j.target, &queryir.Filter{
			Where: andWhere(j.where, j.scope.Where),
			Order: j.scope.Order,
		})
		if err != nil {
			return nil, err
		}
		if len(j.scope.Include) > 0 {
			if err := r.Include(ctx, j.target, fetched, j.scope.Include); err != nil {
				return nil, err
			}
		}
		r.logger.Debug("relation fetched",
			"model", j.model,
			"relation", j.relation.Name,
			"target", j.target,
			"records", len(fetched),
		)
	}

	pk, err := r.schema.PrimaryKey(j.target)
	if err != nil {
		return nil, err
	}
	// grouping reads the correlating key before fields are applied
	p := projector{fields: j.scope.Fields, pk: pk, keep: queryir.Relations(j.scope.Include)}

	name := j.relation.Name
	out := make([]staged, 0, len(j.sources))
	switch j.relation.Kind {
	case ir.BelongsTo, ir.HasOne:
		groups := GroupByKey(fetched, propertyKey(j.targetKey))
		for _, i := range j.sources {
			v, _ := records[i].Get(j.sourceKey)
			if ir.IsNull(v) {
				continue
			}
			if group := groups[ir.Key(v)]; len(group) > 0 {
				out = append(out, staged{index: i, name: name, value: p.one(group[0])})
			}
		}

	case ir.HasMany:
		groups := GroupByKey(fetched, propertyKey(j.targetKey))
		for _, i := range j.sources {
			v, _ := records[i].Get(j.sourceKey)
			var group []ir.Object
			if !ir.IsNull(v) {
				group = groups[ir.Key(v)]
			}
			list, err := p.list(group, j.scope)
			if err != nil {
				return nil, err
			}
			out = append(out, staged{index: i, name: name, value: list})
		}

	case ir.ReferencesMany:
		keyFn := propertyKey(j.targetKey)
		for _, i := range j.sources {
			v, _ := records[i].Get(j.sourceKey)
			ids, err := idArray(j.model, j.relation, v)
			if err != nil {
				return nil, err
			}
			wanted := make([]string, len(ids))
			for n, id := range ids {
				wanted[n] = ir.Key(id)
			}
			list, err := p.list(OrderByKeys(wanted, fetched, keyFn), j.scope)
			if err != nil {
				return nil, err
			}
			out = append(out, staged{index: i, name: name, value: list})
		}
	}
	return out, nil
}

// projector applies a scope's fields to attached records. Nested relation
// names always survive.
type projector struct {
	fields *queryir.Fields
	pk     string
	keep   []string
}

// one returns a deep copy of rec with fields applied.
func (p projector) one(rec ir.Object) ir.Object {
	return filter.Project([]ir.Object{rec}, p.fields, p.pk, p.keep...)[0].Clone()
}

// list applies skip/limit to one source's related records, then fields.
func (p projector) list(group []ir.Object, scope *queryir.Filter) (ir.Array, error) {
	sliced, err := filter.Slice(group, scope.Skip, scope.Limit)
	if err != nil {
		return nil, err
	}
	list := make(ir.Array, len(sliced))
	for n, rec := range sliced {
		list[n] = p.one(rec)
	}
	return list, nil
}

func cmpOr(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
