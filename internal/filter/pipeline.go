package filter

import (
	"slices"

	"github.com/roach88/modelq/internal/ir"
	"github.com/roach88/modelq/internal/queryir"
)

// Filter returns the records matching where, in their original order.
// The result is a new slice; the records themselves are shared.
func Filter(records []ir.Object, where queryir.Where, props map[string]ir.PropertyDefinition) ([]ir.Object, error) {
	m, err := Compile(where, props)
	if err != nil {
		return nil, err
	}
	return m.Filter(records), nil
}

// Filter returns the matching subsequence of records.
func (m *Matcher) Filter(records []ir.Object) []ir.Object {
	out := make([]ir.Object, 0, len(records))
	for _, rec := range records {
		if m.Match(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// Sort orders records in place by the given keys. The sort is stable, so
// records that compare equal on every key keep their relative order.
func Sort(records []ir.Object, order []queryir.OrderKey) {
	if len(order) == 0 {
		return
	}
	slices.SortStableFunc(records, func(a, b ir.Object) int {
		for _, key := range order {
			va, _ := a.Get(key.Property)
			vb, _ := b.Get(key.Property)
			c := compareForSort(va, vb)
			if key.Direction == queryir.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

// Slice drops skip records then keeps at most limit. Nil means absent.
// Counts are never clamped: a negative value is an error.
func Slice(records []ir.Object, skip, limit *int) ([]ir.Object, error) {
	start := 0
	if skip != nil {
		if *skip < 0 {
			return nil, ir.Errorf(ir.ErrCodeInvalidArgument, "skip must be a non-negative integer, got %d", *skip)
		}
		start = min(*skip, len(records))
	}
	end := len(records)
	if limit != nil {
		if *limit < 0 {
			return nil, ir.Errorf(ir.ErrCodeInvalidArgument, "limit must be a non-negative integer, got %d", *limit)
		}
		// compared against the remainder so a huge limit cannot overflow
		if *limit < len(records)-start {
			end = start + *limit
		}
	}
	return records[start:end], nil
}

// Project applies a field selection and returns new records.
//
// The primary key survives an allow-list unless the projection names it with
// false. keep lists further names that always survive an allow-list, such as
// included relation names.
func Project(records []ir.Object, fields *queryir.Fields, pk string, keep ...string) []ir.Object {
	out := make([]ir.Object, len(records))
	if fields == nil {
		for i, rec := range records {
			out[i] = shallowCopy(rec)
		}
		return out
	}

	if fields.IsExclude() {
		for i, rec := range records {
			proj := shallowCopy(rec)
			for _, name := range fields.Exclude {
				delete(proj, name)
			}
			out[i] = proj
		}
		return out
	}

	allowed := make(map[string]bool, len(fields.Include)+len(keep)+1)
	for _, name := range fields.Include {
		allowed[name] = true
	}
	for _, name := range keep {
		allowed[name] = true
	}
	if pk != "" && !slices.Contains(fields.Exclude, pk) {
		allowed[pk] = true
	}
	for i, rec := range records {
		proj := make(ir.Object, len(allowed))
		for name := range allowed {
			if v, ok := rec[name]; ok {
				proj[name] = v
			}
		}
		out[i] = proj
	}
	return out
}

func shallowCopy(rec ir.Object) ir.Object {
	out := make(ir.Object, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

// Options carries the schema facts Apply needs.
type Options struct {
	Properties map[string]ir.PropertyDefinition
	PrimaryKey string
	Keep       []string
}

// Apply runs where, order, skip/limit and fields in that order. Include is
// not handled here. The input slice and records are never modified.
func Apply(records []ir.Object, f *queryir.Filter, opts Options) ([]ir.Object, error) {
	if f == nil {
		f = &queryir.Filter{}
	}
	m, err := Compile(f.Where, opts.Properties)
	if err != nil {
		return nil, err
	}
	matched := m.Filter(records)
	Sort(matched, f.Order)
	sliced, err := Slice(matched, f.Skip, f.Limit)
	if err != nil {
		return nil, err
	}
	return Project(sliced, f.Fields, opts.PrimaryKey, opts.Keep...), nil
}
