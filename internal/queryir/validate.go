package queryir

import (
	"fmt"
	"strings"
)

// Catalog answers which names a model declares.
//
// Implemented by the schema resolver; kept as an interface so queryir stays
// independent of the registry.
type Catalog interface {
	HasProperty(name string) bool
	HasRelation(name string) bool
}

// ValidationResult contains the reference analysis of a filter.
//
// Undeclared properties are legal (records may carry extra keys and exists:false
// over an undeclared name is vacuously true), so they produce warnings rather
// than errors. Unknown relations are also reported here; the relation resolver
// is what turns them into errors.
type ValidationResult struct {
	// Clean is true when every referenced name is declared.
	Clean bool

	// Warnings lists references to undeclared names, in traversal order.
	Warnings []string
}

// Validate checks every property and relation a filter references against a
// catalog. Nested include scopes are not descended into since they are
// evaluated against another model.
//
// Validate is a pure function with no side effects.
func Validate(f *Filter, catalog Catalog) ValidationResult {
	v := &validator{
		catalog:  catalog,
		warnings: []string{},
	}
	if f != nil {
		v.validateWhere(f.Where)
		v.validateOrder(f.Order)
		v.validateFields(f.Fields)
		v.validateInclude(f.Include)
	}

	return ValidationResult{
		Clean:    len(v.warnings) == 0,
		Warnings: v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	catalog  Catalog
	warnings []string
}

// addWarning appends a warning message.
func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) checkProperty(where, name string) {
	// dotted paths are checked by their first segment
	head, _, _ := strings.Cut(name, ".")
	if !v.catalog.HasProperty(name) && !v.catalog.HasProperty(head) {
		v.addWarning("%s references undeclared property %q", where, name)
	}
}

func (v *validator) validateWhere(w Where) {
	switch node := w.(type) {
	case nil:
		return
	case And:
		for _, c := range node.Clauses {
			v.validateWhere(c)
		}
	case Or:
		for _, c := range node.Clauses {
			v.validateWhere(c)
		}
	case Cond:
		v.checkProperty("where", node.Property)
	default:
		v.addWarning("unknown where node %T", w)
	}
}

func (v *validator) validateOrder(order []OrderKey) {
	for _, key := range order {
		v.checkProperty("order", key.Property)
	}
}

func (v *validator) validateFields(fields *Fields) {
	if fields == nil {
		return
	}
	for _, name := range fields.Include {
		if !v.catalog.HasRelation(name) {
			v.checkProperty("fields", name)
		}
	}
	for _, name := range fields.Exclude {
		if !v.catalog.HasRelation(name) {
			v.checkProperty("fields", name)
		}
	}
}

func (v *validator) validateInclude(includes []Include) {
	for _, inc := range includes {
		if !v.catalog.HasRelation(inc.Relation) {
			v.addWarning("include references undeclared relation %q", inc.Relation)
		}
	}
}
