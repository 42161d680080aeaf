package schema

import (
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/roach88/modelq/internal/ir"
)

// Resolved is a model flattened across its base chain.
//
// All maps are read-only after construction; they are shared between every
// caller that resolves the same model.
type Resolved struct {
	Name       string
	Chain      []string // leaf first, root last
	Datasource string   // nearest declared datasource in the chain
	Table      string   // nearest declared table, else the model name
	PrimaryKey string   // primary-key property name
	Properties map[string]ir.PropertyDefinition
	Relations  map[string]ir.RelationDefinition

	columnToProperty map[string]string
}

// HasProperty reports whether name is declared anywhere in the hierarchy.
func (m *Resolved) HasProperty(name string) bool {
	_, ok := m.Properties[name]
	return ok
}

// HasRelation reports whether name is a relation in the hierarchy.
func (m *Resolved) HasRelation(name string) bool {
	_, ok := m.Relations[name]
	return ok
}

// Column returns the column of a property. Undeclared names map to themselves.
func (m *Resolved) Column(property string) string {
	if p, ok := m.Properties[property]; ok {
		return p.Column
	}
	return property
}

// PrimaryKeyColumn returns the column of the primary key.
func (m *Resolved) PrimaryKeyColumn() string {
	return m.Column(m.PrimaryKey)
}

// Resolver computes and memoizes Resolved models from a Registry.
//
// Thread-safety: safe for concurrent use; the relation fan-out shares one
// Resolver across goroutines.
type Resolver struct {
	reg    *Registry
	ids    *idSource
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]*Resolved
}

// Option configures a Resolver.
type Option func(*resolverConfig)

type resolverConfig struct {
	now    func() time.Time
	logger *slog.Logger
}

// WithClock sets the time source used by the "now" and "ulid" default
// functions. Tests use it for deterministic output.
func WithClock(now func() time.Time) Option {
	return func(c *resolverConfig) {
		c.now = now
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *resolverConfig) {
		c.logger = l
	}
}

// NewResolver creates a Resolver over reg.
func NewResolver(reg *Registry, opts ...Option) *Resolver {
	cfg := resolverConfig{now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Resolver{
		reg:    reg,
		ids:    newIDSource(cfg.now),
		logger: cfg.logger,
		cache:  make(map[string]*Resolved),
	}
}

// Registry returns the registry this resolver reads from.
func (r *Resolver) Registry() *Registry {
	return r.reg
}

// Resolve returns the flattened view of model, computing it on first use.
func (r *Resolver) Resolve(model string) (*Resolved, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.cache[model]; ok {
		return m, nil
	}
	m, err := r.build(model)
	if err != nil {
		return nil, err
	}
	r.cache[model] = m
	r.logger.Debug("model resolved",
		"model", model,
		"chain", strings.Join(m.Chain, " -> "),
		"properties", len(m.Properties),
		"relations", len(m.Relations),
	)
	return m, nil
}

// chain walks from model to its root, leaf first.
func (r *Resolver) chain(model string) ([]*ir.ModelDefinition, error) {
	var defs []*ir.ModelDefinition
	seen := make(map[string]bool)
	name := model
	for name != "" {
		if seen[name] {
			path := make([]string, 0, len(defs)+1)
			for _, d := range defs {
				path = append(path, d.Name)
			}
			path = append(path, name)
			return nil, ir.Errorf(ir.ErrCodeInvalidArgument, "inheritance cycle: %s", strings.Join(path, " -> ")).
				WithModel(model)
		}
		seen[name] = true

		def, err := r.reg.Model(name)
		if err != nil {
			if ir.HasCode(err, ir.ErrCodeUnknownModel) && name != model {
				child := defs[len(defs)-1].Name
				return nil, ir.Errorf(ir.ErrCodeUnknownModel, "model %q extends unknown base %q", child, name).
					WithModel(child)
			}
			return nil, err
		}
		defs = append(defs, def)
		name = def.Base
	}
	return defs, nil
}

func (r *Resolver) build(model string) (*Resolved, error) {
	defs, err := r.chain(model)
	if err != nil {
		return nil, err
	}

	m := &Resolved{
		Name:       model,
		Chain:      make([]string, len(defs)),
		Properties: make(map[string]ir.PropertyDefinition),
		Relations:  make(map[string]ir.RelationDefinition),
	}
	for i, d := range defs {
		m.Chain[i] = d.Name
		if m.Table == "" {
			m.Table = d.Table
		}
		if m.Datasource == "" {
			m.Datasource = d.Datasource
		}
	}
	if m.Table == "" {
		m.Table = model
	}

	// fold root to leaf; a redeclared property or relation replaces the
	// ancestor's entry entirely
	for i := len(defs) - 1; i >= 0; i-- {
		d := defs[i]
		for name, p := range d.Properties {
			if p.Column == "" {
				p.Column = name
			}
			if p.Type == "" {
				p.Type = ir.TypeAny
			}
			m.Properties[name] = p
		}
		for name, rel := range d.Relations {
			m.Relations[name] = normalizeRelation(d.Name, rel)
		}
	}

	var ids []string
	for name, p := range m.Properties {
		if p.ID {
			ids = append(ids, name)
		}
	}
	if len(ids) == 0 {
		return nil, ir.Errorf(ir.ErrCodeMissingPrimaryKey, "model %q has no primary key in its hierarchy", model).
			WithModel(model)
	}
	// several id properties: the first by name is the key
	slices.Sort(ids)
	m.PrimaryKey = ids[0]

	m.columnToProperty = make(map[string]string, len(m.Properties))
	for name, p := range m.Properties {
		m.columnToProperty[p.Column] = name
	}
	return m, nil
}

// normalizeRelation fills conventional names the definition left empty.
// owner is the model that declares the relation.
func normalizeRelation(owner string, rel ir.RelationDefinition) ir.RelationDefinition {
	if rel.ForeignKey == "" {
		rel.ForeignKey = DefaultForeignKey(owner, rel)
	}
	if rel.Polymorphic != nil && rel.Polymorphic.Discriminator == "" {
		poly := *rel.Polymorphic
		poly.Discriminator = DiscriminatorKey(rel.Name)
		rel.Polymorphic = &poly
	}
	return rel
}

// Properties returns the flattened property map of model.
func (r *Resolver) Properties(model string) (map[string]ir.PropertyDefinition, error) {
	m, err := r.Resolve(model)
	if err != nil {
		return nil, err
	}
	return m.Properties, nil
}

// Property returns one property of model.
func (r *Resolver) Property(model, name string) (ir.PropertyDefinition, error) {
	m, err := r.Resolve(model)
	if err != nil {
		return ir.PropertyDefinition{}, err
	}
	p, ok := m.Properties[name]
	if !ok {
		return ir.PropertyDefinition{}, ir.NewUnknownPropertyError(model, name)
	}
	return p, nil
}

// Relations returns the flattened relation map of model.
func (r *Resolver) Relations(model string) (map[string]ir.RelationDefinition, error) {
	m, err := r.Resolve(model)
	if err != nil {
		return nil, err
	}
	return m.Relations, nil
}

// Relation returns one relation of model with its foreign key filled in.
func (r *Resolver) Relation(model, name string) (ir.RelationDefinition, error) {
	m, err := r.Resolve(model)
	if err != nil {
		return ir.RelationDefinition{}, err
	}
	rel, ok := m.Relations[name]
	if !ok {
		return ir.RelationDefinition{}, ir.NewUnknownRelationError(model, name)
	}
	return rel, nil
}

// PrimaryKey returns the primary-key property name of model.
func (r *Resolver) PrimaryKey(model string) (string, error) {
	m, err := r.Resolve(model)
	if err != nil {
		return "", err
	}
	return m.PrimaryKey, nil
}

// PrimaryKeyColumn returns the primary-key column name of model.
func (r *Resolver) PrimaryKeyColumn(model string) (string, error) {
	m, err := r.Resolve(model)
	if err != nil {
		return "", err
	}
	return m.PrimaryKeyColumn(), nil
}

// Table returns the table name of model.
func (r *Resolver) Table(model string) (string, error) {
	m, err := r.Resolve(model)
	if err != nil {
		return "", err
	}
	return m.Table, nil
}

// Column returns the column of a declared property.
func (r *Resolver) Column(model, property string) (string, error) {
	p, err := r.Property(model, property)
	if err != nil {
		return "", err
	}
	return p.Column, nil
}

// Columns returns the property -> column mapping of model.
func (r *Resolver) Columns(model string) (map[string]string, error) {
	m, err := r.Resolve(model)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(m.Properties))
	for name, p := range m.Properties {
		out[name] = p.Column
	}
	return out, nil
}

// DefaultValue returns the default of a property.
//
// A literal default is deep-copied so callers can modify it. A defaultFn
// produces a fresh value per call. The bool is false when the property has
// no default.
func (r *Resolver) DefaultValue(model, property string) (ir.Value, bool, error) {
	p, err := r.Property(model, property)
	if err != nil {
		return nil, false, err
	}
	v, ok := r.defaultOf(p)
	return v, ok, nil
}

func (r *Resolver) defaultOf(p ir.PropertyDefinition) (ir.Value, bool) {
	if p.Default != nil {
		return ir.CloneValue(p.Default), true
	}
	if p.DefaultFn != "" {
		return r.ids.generate(p.DefaultFn)
	}
	return nil, false
}

// ApplyDefaults returns a copy of record with every absent property that
// has a default filled in. Present keys, including explicit nulls, are kept.
func (r *Resolver) ApplyDefaults(model string, record ir.Object) (ir.Object, error) {
	m, err := r.Resolve(model)
	if err != nil {
		return nil, err
	}
	out := record.Clone()
	if out == nil {
		out = ir.Object{}
	}
	for _, name := range slices.Sorted(maps.Keys(m.Properties)) {
		if _, present := out[name]; present {
			continue
		}
		if v, ok := r.defaultOf(m.Properties[name]); ok {
			out[name] = v
		}
	}
	return out, nil
}

// ToColumns renames the declared properties of record to their columns.
// Keys that are not declared properties pass through unchanged.
func (r *Resolver) ToColumns(model string, record ir.Object) (ir.Object, error) {
	m, err := r.Resolve(model)
	if err != nil {
		return nil, err
	}
	out := make(ir.Object, len(record))
	for k, v := range record {
		out[m.Column(k)] = v
	}
	return out, nil
}

// FromColumns is the inverse of ToColumns.
func (r *Resolver) FromColumns(model string, row ir.Object) (ir.Object, error) {
	m, err := r.Resolve(model)
	if err != nil {
		return nil, err
	}
	out := make(ir.Object, len(row))
	for col, v := range row {
		if prop, ok := m.columnToProperty[col]; ok {
			out[prop] = v
		} else {
			out[col] = v
		}
	}
	return out, nil
}
