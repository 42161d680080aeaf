package compiler

import (
	"fmt"
	"maps"
	"regexp"
	"slices"

	"github.com/roach88/modelq/internal/ir"
	"github.com/roach88/modelq/internal/queryir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedIRType = "E100" // unsupported IR type for validation

	// ModelDefinition errors (E101-E119)
	ErrInvalidName          = "E101" // model or property name is not an identifier
	ErrModelEmpty           = "E102" // no properties and no base
	ErrInvalidPropertyType  = "E104" // unknown data type
	ErrDuplicateName        = "E105" // duplicate model, datasource or column name
	ErrInvalidDefault       = "E106" // unknown defaultFn, or default and defaultFn both set
	ErrDefaultTypeMismatch  = "E107" // literal default does not match the declared type
	ErrInvalidUniqueMode    = "E108" // unknown unique mode
	ErrInvalidRelationKind  = "E110" // unknown relation kind
	ErrMissingTarget        = "E111" // relation without a target model
	ErrUnsupportedRelation  = "E112" // polymorphic referencesMany
	ErrInvalidRelationScope = "E113" // scope is not a valid filter

	// Cross-reference errors (E120-E129)
	ErrUnknownBase       = "E120" // base model not defined
	ErrInheritanceCycle  = "E121" // base chain loops
	ErrMissingPrimaryKey = "E122" // no id property in the hierarchy
	ErrUnknownTarget     = "E123" // relation target not defined
	ErrUnknownDatasource = "E124" // model references an undefined datasource
	ErrUnknownConnector  = "E125" // datasource connector not supported
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates compiled definitions against schema rules.
// Returns all errors found (does not fail-fast).
// Supports ModelDefinition, DatasourceDefinition and Schema; only Schema
// checks references between definitions.
func Validate(v any) []ValidationError {
	switch def := v.(type) {
	case *ir.ModelDefinition:
		return validateModel(def)
	case ir.ModelDefinition:
		return validateModel(&def)
	case *ir.DatasourceDefinition:
		return validateDatasource(def)
	case ir.DatasourceDefinition:
		return validateDatasource(&def)
	case *Schema:
		return validateSchema(def)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validateModel checks one model in isolation.
func validateModel(m *ir.ModelDefinition) []ValidationError {
	var errs []ValidationError
	prefix := "model." + m.Name

	// E101: model name must be an identifier
	if !identPattern.MatchString(m.Name) {
		errs = append(errs, ValidationError{
			Field:   prefix,
			Message: fmt.Sprintf("model name %q is not an identifier", m.Name),
			Code:    ErrInvalidName,
		})
	}

	// E102: something must be declared
	if len(m.Properties) == 0 && m.Base == "" {
		errs = append(errs, ValidationError{
			Field:   prefix + ".properties",
			Message: "model declares no properties and has no base",
			Code:    ErrModelEmpty,
		})
	}

	columns := make(map[string]string)
	for _, name := range slices.Sorted(maps.Keys(m.Properties)) {
		p := m.Properties[name]
		field := prefix + ".properties." + name
		errs = append(errs, validateProperty(field, name, p)...)

		// E105: two properties may not share a column
		col := p.Column
		if col == "" {
			col = name
		}
		if other, dup := columns[col]; dup {
			errs = append(errs, ValidationError{
				Field:   field + ".column",
				Message: fmt.Sprintf("column %q is already used by property %q", col, other),
				Code:    ErrDuplicateName,
			})
		}
		columns[col] = name
	}

	for _, name := range slices.Sorted(maps.Keys(m.Relations)) {
		errs = append(errs, validateRelation(prefix+".relations."+name, m.Relations[name])...)
	}
	return errs
}

func validateProperty(field, name string, p ir.PropertyDefinition) []ValidationError {
	var errs []ValidationError

	if !identPattern.MatchString(name) {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("property name %q is not an identifier", name),
			Code:    ErrInvalidName,
		})
	}

	// E104: types
	if p.Type != "" && !ir.ValidDataTypes[p.Type] {
		errs = append(errs, ValidationError{
			Field:   field + ".type",
			Message: fmt.Sprintf("invalid type %q for property %q", p.Type, name),
			Code:    ErrInvalidPropertyType,
		})
	}
	if p.ItemType != "" && (!ir.ValidDataTypes[p.ItemType] || p.Type != ir.TypeArray) {
		errs = append(errs, ValidationError{
			Field:   field + ".itemType",
			Message: fmt.Sprintf("itemType %q needs type \"array\" and a valid element type", p.ItemType),
			Code:    ErrInvalidPropertyType,
		})
	}

	// E106: generators
	if p.DefaultFn != "" && !ir.ValidDefaultFns[p.DefaultFn] {
		errs = append(errs, ValidationError{
			Field:   field + ".defaultFn",
			Message: fmt.Sprintf("unknown defaultFn %q", p.DefaultFn),
			Code:    ErrInvalidDefault,
		})
	}
	if p.DefaultFn != "" && p.Default != nil {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: "default and defaultFn are mutually exclusive",
			Code:    ErrInvalidDefault,
		})
	}

	// E107: literal default must fit the type
	if p.Default != nil && !defaultFits(p.Type, p.Default) {
		errs = append(errs, ValidationError{
			Field:   field + ".default",
			Message: fmt.Sprintf("default %s is not a %s", ir.Key(p.Default), p.Type),
			Code:    ErrDefaultTypeMismatch,
		})
	}

	// E108
	if p.Unique != ir.UniqueNone && p.Unique != ir.UniqueOn {
		errs = append(errs, ValidationError{
			Field:   field + ".unique",
			Message: fmt.Sprintf("invalid unique mode %q", p.Unique),
			Code:    ErrInvalidUniqueMode,
		})
	}
	return errs
}

// defaultFits reports whether a literal default matches a declared type.
// Dates accept RFC 3339 strings.
func defaultFits(t ir.DataType, v ir.Value) bool {
	if ir.IsNull(v) {
		return true
	}
	switch t {
	case "", ir.TypeAny:
		return true
	case ir.TypeInteger:
		_, ok := v.(ir.Int)
		return ok
	case ir.TypeArray:
		_, ok := v.(ir.Array)
		return ok
	case ir.TypeObject:
		_, ok := v.(ir.Object)
		return ok
	case ir.TypeDate:
		return ir.KindOf(v) == ir.KindTime || ir.KindOf(v) == ir.KindString
	}
	return ir.KindOf(v) == t.Kind()
}

func validateRelation(field string, rel ir.RelationDefinition) []ValidationError {
	var errs []ValidationError

	// E110
	if !ir.ValidRelationKinds[rel.Kind] {
		errs = append(errs, ValidationError{
			Field:   field + ".kind",
			Message: fmt.Sprintf("invalid relation kind %q, must be belongsTo, hasOne, hasMany or referencesMany", rel.Kind),
			Code:    ErrInvalidRelationKind,
		})
	}

	// E111: only a polymorphic belongsTo picks its target per record
	polyBelongsTo := rel.Polymorphic != nil && rel.Kind == ir.BelongsTo
	if rel.Target == "" && !polyBelongsTo {
		errs = append(errs, ValidationError{
			Field:   field + ".target",
			Message: "relation requires a target model",
			Code:    ErrMissingTarget,
		})
	}

	// E112
	if rel.Polymorphic != nil && rel.Kind == ir.ReferencesMany {
		errs = append(errs, ValidationError{
			Field:   field + ".polymorphic",
			Message: "polymorphic referencesMany is not supported",
			Code:    ErrUnsupportedRelation,
		})
	}

	// E113
	if len(rel.Scope) > 0 {
		if _, err := queryir.ParseFilter(rel.Scope); err != nil {
			errs = append(errs, ValidationError{
				Field:   field + ".scope",
				Message: err.Error(),
				Code:    ErrInvalidRelationScope,
			})
		}
	}
	return errs
}

// validateDatasource checks one datasource in isolation.
func validateDatasource(ds *ir.DatasourceDefinition) []ValidationError {
	var errs []ValidationError
	if ds.Connector != ir.ConnectorMemory && ds.Connector != ir.ConnectorSQLite {
		errs = append(errs, ValidationError{
			Field:   "datasource." + ds.Name + ".connector",
			Message: fmt.Sprintf("unknown connector %q, must be %q or %q", ds.Connector, ir.ConnectorMemory, ir.ConnectorSQLite),
			Code:    ErrUnknownConnector,
		})
	}
	return errs
}

// validateSchema checks every definition, then the references between them.
func validateSchema(s *Schema) []ValidationError {
	var errs []ValidationError

	datasources := make(map[string]bool)
	for _, ds := range s.Datasources {
		if datasources[ds.Name] {
			errs = append(errs, ValidationError{
				Field:   "datasource." + ds.Name,
				Message: fmt.Sprintf("duplicate datasource name: %q", ds.Name),
				Code:    ErrDuplicateName,
			})
		}
		datasources[ds.Name] = true
		errs = append(errs, validateDatasource(&ds)...)
	}

	models := make(map[string]*ir.ModelDefinition)
	for i := range s.Models {
		m := &s.Models[i]
		if _, dup := models[m.Name]; dup {
			errs = append(errs, ValidationError{
				Field:   "model." + m.Name,
				Message: fmt.Sprintf("duplicate model name: %q", m.Name),
				Code:    ErrDuplicateName,
			})
			continue
		}
		models[m.Name] = m
		errs = append(errs, validateModel(m)...)
	}

	for _, m := range s.Models {
		prefix := "model." + m.Name
		if m.Base != "" && models[m.Base] == nil {
			errs = append(errs, ValidationError{
				Field:   prefix + ".base",
				Message: fmt.Sprintf("unknown base model %q", m.Base),
				Code:    ErrUnknownBase,
			})
		}
		if m.Datasource != "" && !datasources[m.Datasource] {
			errs = append(errs, ValidationError{
				Field:   prefix + ".datasource",
				Message: fmt.Sprintf("unknown datasource %q", m.Datasource),
				Code:    ErrUnknownDatasource,
			})
		}
		for _, name := range slices.Sorted(maps.Keys(m.Relations)) {
			rel := m.Relations[name]
			targets := []string{rel.Target}
			if rel.Polymorphic != nil {
				targets = append(targets, rel.Polymorphic.Targets...)
			}
			for _, target := range targets {
				if target != "" && models[target] == nil {
					errs = append(errs, ValidationError{
						Field:   prefix + ".relations." + name,
						Message: fmt.Sprintf("unknown target model %q", target),
						Code:    ErrUnknownTarget,
					})
				}
			}
		}
	}

	// E121: cycles make the hierarchy unresolvable, so primary keys are only
	// checked outside them
	inCycle := make(map[string]bool)
	for _, c := range AnalyzeInheritance(s.Models) {
		errs = append(errs, ValidationError{
			Field:   "model." + c.Path[0] + ".base",
			Message: c.Message,
			Code:    ErrInheritanceCycle,
		})
		for _, name := range c.Path {
			inCycle[name] = true
		}
	}

	for _, m := range s.Models {
		if !inCycle[m.Name] && !hasPrimaryKey(m.Name, models, inCycle) {
			errs = append(errs, ValidationError{
				Field:   "model." + m.Name,
				Message: "no property in the model or its bases is marked id",
				Code:    ErrMissingPrimaryKey,
			})
		}
	}
	return errs
}

// hasPrimaryKey walks the base chain looking for an id property. Unknown
// bases and cycles end the walk; they are reported separately.
func hasPrimaryKey(name string, models map[string]*ir.ModelDefinition, inCycle map[string]bool) bool {
	for name != "" {
		m := models[name]
		if m == nil || inCycle[name] {
			return true
		}
		for _, p := range m.Properties {
			if p.ID {
				return true
			}
		}
		name = m.Base
	}
	return false
}
