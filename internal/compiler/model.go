package compiler

import (
	"fmt"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/modelq/internal/ir"
)

// CompileModel parses a CUE value into a ModelDefinition.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the model struct itself:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`model: Pet: { properties: { id: {type: "integer", id: true} } }`)
//	def, err := CompileModel(v.LookupPath(cue.ParsePath("model.Pet")))
//
// A property may be written as a bare type string (name: "string") or as a
// struct with type, id, column, default, defaultFn, required, unique,
// itemType, validators and transformers.
func CompileModel(v cue.Value) (*ir.ModelDefinition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &ir.ModelDefinition{Name: labelOf(v)}

	var err error
	if def.Base, err = optionalString(v, "base"); err != nil {
		return nil, err
	}
	if def.Datasource, err = optionalString(v, "datasource"); err != nil {
		return nil, err
	}
	if def.Table, err = optionalString(v, "table"); err != nil {
		return nil, err
	}

	def.Properties, err = parseProperties(v)
	if err != nil {
		return nil, err
	}
	def.Relations, err = parseRelations(v)
	if err != nil {
		return nil, err
	}
	return def, nil
}

// CompileDatasource parses a CUE value into a DatasourceDefinition:
//
//	datasource: main: { connector: "sqlite", settings: { path: "app.db" } }
func CompileDatasource(v cue.Value) (*ir.DatasourceDefinition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	def := &ir.DatasourceDefinition{Name: labelOf(v)}

	connVal := v.LookupPath(cue.ParsePath("connector"))
	if !connVal.Exists() {
		return nil, &CompileError{
			Field:   "connector",
			Message: "connector is required",
			Pos:     v.Pos(),
		}
	}
	conn, err := connVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	def.Connector = conn

	if settings := v.LookupPath(cue.ParsePath("settings")); settings.Exists() {
		val, err := ToValue(settings)
		if err != nil {
			return nil, err
		}
		obj, ok := val.(ir.Object)
		if !ok {
			return nil, &CompileError{Field: "settings", Message: "settings must be a struct", Pos: settings.Pos()}
		}
		def.Settings = obj
	}
	return def, nil
}

// parseProperties extracts property definitions from the model.
func parseProperties(v cue.Value) (map[string]ir.PropertyDefinition, error) {
	props := make(map[string]ir.PropertyDefinition)

	propsVal := v.LookupPath(cue.ParsePath("properties"))
	if !propsVal.Exists() {
		return props, nil // an empty model is caught by validation
	}

	iter, err := propsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Label()
		p, err := parseProperty(name, iter.Value())
		if err != nil {
			return nil, err
		}
		props[name] = p
	}
	return props, nil
}

func parseProperty(name string, v cue.Value) (ir.PropertyDefinition, error) {
	p := ir.PropertyDefinition{Name: name}

	// shorthand: name: "string"
	if typ, err := v.String(); err == nil {
		p.Type = ir.DataType(typ)
		return p, nil
	}
	if v.IncompleteKind() != cue.StructKind {
		return p, &CompileError{
			Field:   "properties." + name,
			Message: "property must be a type name or a struct",
			Pos:     v.Pos(),
		}
	}

	var err error
	var typ, itemType, unique string
	if typ, err = optionalString(v, "type"); err != nil {
		return p, err
	}
	p.Type = ir.DataType(typ)
	if itemType, err = optionalString(v, "itemType"); err != nil {
		return p, err
	}
	p.ItemType = ir.DataType(itemType)
	if p.Column, err = optionalString(v, "column"); err != nil {
		return p, err
	}
	if p.DefaultFn, err = optionalString(v, "defaultFn"); err != nil {
		return p, err
	}
	if p.ID, err = optionalBool(v, "id"); err != nil {
		return p, err
	}
	if p.Required, err = optionalBool(v, "required"); err != nil {
		return p, err
	}

	// unique: true is shorthand for unique: "unique"
	if uv := v.LookupPath(cue.ParsePath("unique")); uv.Exists() {
		if b, err := uv.Bool(); err == nil {
			if b {
				p.Unique = ir.UniqueOn
			}
		} else if unique, err = uv.String(); err == nil {
			p.Unique = ir.UniqueMode(unique)
		} else {
			return p, &CompileError{Field: "properties." + name + ".unique", Message: "unique must be a bool or string", Pos: uv.Pos()}
		}
	}

	if dv := v.LookupPath(cue.ParsePath("default")); dv.Exists() {
		p.Default, err = ToValue(dv)
		if err != nil {
			return p, err
		}
	}
	if p.Validators, err = optionalStrings(v, "validators"); err != nil {
		return p, err
	}
	if p.Transformers, err = optionalStrings(v, "transformers"); err != nil {
		return p, err
	}
	return p, nil
}

// parseRelations extracts relation definitions from the model.
func parseRelations(v cue.Value) (map[string]ir.RelationDefinition, error) {
	relsVal := v.LookupPath(cue.ParsePath("relations"))
	if !relsVal.Exists() {
		return nil, nil
	}

	iter, err := relsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	rels := make(map[string]ir.RelationDefinition)
	for iter.Next() {
		name := iter.Label()
		rv := iter.Value()
		rel := ir.RelationDefinition{Name: name}

		kind, err := optionalString(rv, "kind")
		if err != nil {
			return nil, err
		}
		if kind == "" {
			return nil, &CompileError{Field: "relations." + name + ".kind", Message: "kind is required", Pos: rv.Pos()}
		}
		rel.Kind = ir.RelationKind(kind)

		if rel.Target, err = optionalString(rv, "target"); err != nil {
			return nil, err
		}
		if rel.ForeignKey, err = optionalString(rv, "foreignKey"); err != nil {
			return nil, err
		}
		if rel.KeyFrom, err = optionalString(rv, "keyFrom"); err != nil {
			return nil, err
		}
		if rel.KeyTo, err = optionalString(rv, "keyTo"); err != nil {
			return nil, err
		}

		if pv := rv.LookupPath(cue.ParsePath("polymorphic")); pv.Exists() {
			poly, err := parsePolymorphic(pv)
			if err != nil {
				return nil, err
			}
			rel.Polymorphic = poly
		}

		if sv := rv.LookupPath(cue.ParsePath("scope")); sv.Exists() {
			val, err := ToValue(sv)
			if err != nil {
				return nil, err
			}
			obj, ok := val.(ir.Object)
			if !ok {
				return nil, &CompileError{Field: "relations." + name + ".scope", Message: "scope must be a struct", Pos: sv.Pos()}
			}
			rel.Scope = obj
		}
		rels[name] = rel
	}
	return rels, nil
}

// parsePolymorphic accepts true, a discriminator name, or a struct with
// discriminator and targets.
func parsePolymorphic(v cue.Value) (*ir.Polymorphic, error) {
	if b, err := v.Bool(); err == nil {
		if !b {
			return nil, nil
		}
		return &ir.Polymorphic{}, nil
	}
	if s, err := v.String(); err == nil {
		return &ir.Polymorphic{Discriminator: s}, nil
	}
	disc, err := optionalString(v, "discriminator")
	if err != nil {
		return nil, err
	}
	targets, err := optionalStrings(v, "targets")
	if err != nil {
		return nil, err
	}
	return &ir.Polymorphic{Discriminator: disc, Targets: targets}, nil
}

// ToValue converts a concrete CUE value to an ir.Value.
// Structs keep only regular fields; definitions and hidden fields are skipped.
func ToValue(v cue.Value) (ir.Value, error) {
	v, _ = v.Default()
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	switch v.Kind() {
	case cue.NullKind:
		return ir.Null{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Bool(b), nil
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Int(i), nil
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Float(f), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.String(s), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := ir.Array{}
		for iter.Next() {
			elem, err := ToValue(iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := ir.Object{}
		for iter.Next() {
			elem, err := ToValue(iter.Value())
			if err != nil {
				return nil, err
			}
			obj[iter.Label()] = elem
		}
		return obj, nil
	default:
		return nil, &CompileError{
			Field:   "value",
			Message: fmt.Sprintf("value must be concrete, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func labelOf(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	return sels[len(sels)-1].String()
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", &CompileError{Field: field, Message: "must be a string", Pos: fv.Pos()}
	}
	return s, nil
}

func optionalBool(v cue.Value, field string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, &CompileError{Field: field, Message: "must be a bool", Pos: fv.Pos()}
	}
	return b, nil
}

func optionalStrings(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	iter, err := fv.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: "must be a list of strings", Pos: fv.Pos()}
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{Field: field, Message: "must be a list of strings", Pos: iter.Value().Pos()}
		}
		out = append(out, s)
	}
	return slices.Clip(out), nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
