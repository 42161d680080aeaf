package schema

import (
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/roach88/modelq/internal/ir"
)

// ErrRegistryClosed is returned by every Registry method after Close.
var ErrRegistryClosed = errors.New("schema: registry closed")

// Registry stores model and datasource definitions by name.
//
// Thread-safety: all methods are safe for concurrent use. Returned
// definitions are shared and must be treated as read-only.
type Registry struct {
	mu          sync.RWMutex
	models      map[string]*ir.ModelDefinition
	datasources map[string]*ir.DatasourceDefinition
	closed      bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		models:      make(map[string]*ir.ModelDefinition),
		datasources: make(map[string]*ir.DatasourceDefinition),
	}
}

// RegisterModel adds a model definition.
//
// The definition is copied; later changes to the caller's maps have no
// effect. Registering a name twice is rejected and leaves the existing
// definition untouched.
func (r *Registry) RegisterModel(def ir.ModelDefinition) error {
	if def.Name == "" {
		return ir.Errorf(ir.ErrCodeInvalidArgument, "model definition has no name")
	}
	stored := cloneModel(def)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRegistryClosed
	}
	if _, exists := r.models[def.Name]; exists {
		return ir.Errorf(ir.ErrCodeDuplicateDefinition, "model %q is already registered", def.Name).WithModel(def.Name)
	}
	r.models[def.Name] = stored
	return nil
}

// RegisterDatasource adds a datasource definition. Duplicates are rejected.
func (r *Registry) RegisterDatasource(def ir.DatasourceDefinition) error {
	if def.Name == "" {
		return ir.Errorf(ir.ErrCodeInvalidArgument, "datasource definition has no name")
	}
	stored := def
	stored.Settings = def.Settings.Clone()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRegistryClosed
	}
	if _, exists := r.datasources[def.Name]; exists {
		return ir.Errorf(ir.ErrCodeDuplicateDefinition, "datasource %q is already registered", def.Name)
	}
	r.datasources[def.Name] = &stored
	return nil
}

// Model returns the definition registered under name.
func (r *Registry) Model(name string) (*ir.ModelDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}
	def, ok := r.models[name]
	if !ok {
		return nil, ir.NewUnknownModelError(name)
	}
	return def, nil
}

// Datasource returns the datasource registered under name.
func (r *Registry) Datasource(name string) (*ir.DatasourceDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}
	def, ok := r.datasources[name]
	if !ok {
		return nil, ir.Errorf(ir.ErrCodeInvalidArgument, "unknown datasource %q", name)
	}
	return def, nil
}

// Models returns the registered model names, sorted.
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.models))
}

// Datasources returns the registered datasource names, sorted.
func (r *Registry) Datasources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.datasources))
}

// Close drops every definition. Later calls fail with ErrRegistryClosed.
// Closing twice is a no-op.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.models = nil
	r.datasources = nil
	return nil
}

// cloneModel deep-copies the parts of a definition a caller could mutate.
func cloneModel(def ir.ModelDefinition) *ir.ModelDefinition {
	out := def
	out.Properties = make(map[string]ir.PropertyDefinition, len(def.Properties))
	for name, p := range def.Properties {
		if p.Name == "" {
			p.Name = name
		}
		p.Default = ir.CloneValue(p.Default)
		p.Validators = slices.Clone(p.Validators)
		p.Transformers = slices.Clone(p.Transformers)
		out.Properties[name] = p
	}
	out.Relations = make(map[string]ir.RelationDefinition, len(def.Relations))
	for name, rel := range def.Relations {
		if rel.Name == "" {
			rel.Name = name
		}
		if rel.Polymorphic != nil {
			poly := *rel.Polymorphic
			poly.Targets = slices.Clone(poly.Targets)
			rel.Polymorphic = &poly
		}
		rel.Scope = rel.Scope.Clone()
		out.Relations[name] = rel
	}
	return &out
}
