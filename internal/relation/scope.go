package relation

import (
	"github.com/roach88/modelq/internal/ir"
	"github.com/roach88/modelq/internal/queryir"
)

// mergeScopes combines the scope declared on a relation with the scope given
// in an include clause. Where clauses are ANDed; for every other clause the
// include's value wins when present.
func mergeScopes(declared, requested *queryir.Filter) *queryir.Filter {
	switch {
	case declared == nil && requested == nil:
		return &queryir.Filter{}
	case declared == nil:
		return requested.Clone()
	case requested == nil:
		return declared.Clone()
	}

	out := declared.Clone()
	out.Where = andWhere(declared.Where, requested.Where)
	if len(requested.Order) > 0 {
		out.Order = append([]queryir.OrderKey(nil), requested.Order...)
	}
	if requested.Limit != nil {
		out.Limit = requested.Limit
	}
	if requested.Skip != nil {
		out.Skip = requested.Skip
	}
	if requested.Fields != nil {
		fields := *requested.Fields
		out.Fields = &fields
	}
	if len(requested.Include) > 0 {
		out.Include = append([]queryir.Include(nil), requested.Include...)
	}
	return out
}

// andWhere joins predicates, dropping nils.
func andWhere(clauses ...queryir.Where) queryir.Where {
	var out []queryir.Where
	for _, c := range clauses {
		if c != nil {
			out = append(out, c)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return queryir.And{Clauses: out}
}

// keyPredicate builds `property IN keys`, plus equality conditions.
func keyPredicate(property string, keys ir.Array, equals map[string]ir.Value) (queryir.Where, error) {
	obj := ir.Object{property: ir.Object{string(queryir.OpInq): keys}}
	for k, v := range equals {
		obj[k] = v
	}
	return queryir.ParseWhere(obj)
}

// declaredScope parses the scope stored on a relation definition.
func declaredScope(rel ir.RelationDefinition) (*queryir.Filter, error) {
	if len(rel.Scope) == 0 {
		return nil, nil
	}
	return queryir.ParseFilter(rel.Scope)
}
