package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/modelq/internal/ir"
)

// check compares an outcome with its query's expectation and returns one
// message per mismatch.
func (h *Harness) check(q Query, out Outcome) []string {
	e := q.Expect
	if e == nil {
		if out.Error != "" {
			return []string{fmt.Sprintf("unexpected error: %s", out.Error)}
		}
		return nil
	}

	if e.Error != "" {
		if out.Error == "" {
			return []string{fmt.Sprintf("expected error containing %q, query succeeded", e.Error)}
		}
		if !strings.Contains(out.Error, e.Error) {
			return []string{fmt.Sprintf("expected error containing %q, got %q", e.Error, out.Error)}
		}
		return nil
	}
	if out.Error != "" {
		return []string{fmt.Sprintf("unexpected error: %s", out.Error)}
	}

	var errs []string
	if e.Count != nil {
		got := len(out.Records)
		if out.Count != nil {
			got = *out.Count
		}
		if got != *e.Count {
			errs = append(errs, fmt.Sprintf("count: expected %d, got %d", *e.Count, got))
		}
	}
	if e.Exists != nil && out.Exists != nil && *e.Exists != *out.Exists {
		errs = append(errs, fmt.Sprintf("exists: expected %t, got %t", *e.Exists, *out.Exists))
	}
	if e.IDs != nil {
		pk, err := h.resolver.PrimaryKey(q.Model)
		if err != nil {
			return append(errs, err.Error())
		}
		if err := assertIDs(pk, e.IDs, out.Records); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if e.Records != nil {
		errs = append(errs, assertRecords(e.Records, out.Records)...)
	}
	return errs
}

// assertIDs checks the primary keys of records, in order.
func assertIDs(pk string, want []any, records []ir.Object) error {
	wantKeys := make([]string, len(want))
	for i, id := range want {
		v, err := ir.FromAny(id)
		if err != nil {
			return fmt.Errorf("ids[%d]: %w", i, err)
		}
		wantKeys[i] = ir.Key(v)
	}
	gotKeys := make([]string, len(records))
	for i, rec := range records {
		gotKeys[i] = ir.Key(rec[pk])
	}
	if !slices.Equal(wantKeys, gotKeys) {
		return fmt.Errorf("ids: expected [%s], got [%s]",
			strings.Join(wantKeys, ", "), strings.Join(gotKeys, ", "))
	}
	return nil
}

// assertRecords matches records position by position. Each expected record
// is a subset of the actual one.
func assertRecords(want []map[string]any, got []ir.Object) []string {
	if len(want) != len(got) {
		return []string{fmt.Sprintf("records: expected %d, got %d", len(want), len(got))}
	}
	var errs []string
	for i, exp := range want {
		v, err := ir.FromAny(exp)
		if err != nil {
			errs = append(errs, fmt.Sprintf("records[%d]: %v", i, err))
			continue
		}
		if path, ok := subset(v, got[i]); !ok {
			actual, _ := got[i].Get(path)
			errs = append(errs, fmt.Sprintf("records[%d].%s: expected %s, got %s",
				i, path, keyAt(v.(ir.Object), path), ir.Key(actual)))
		}
	}
	return errs
}

// subset reports whether want is contained in got. Objects match on the keys
// want names; arrays match element-wise with equal length; scalars match
// when their canonical encodings are equal, so a date compares equal to its
// RFC 3339 string. On mismatch it returns the dotted path of the first
// differing key.
func subset(want, got ir.Value) (string, bool) {
	switch w := want.(type) {
	case ir.Object:
		g, ok := got.(ir.Object)
		if !ok {
			return "", false
		}
		for _, k := range w.SortedKeys() {
			gv, present := g[k]
			if !present {
				return k, false
			}
			if sub, ok := subset(w[k], gv); !ok {
				return joinPath(k, sub), false
			}
		}
		return "", true
	case ir.Array:
		g, ok := got.(ir.Array)
		if !ok || len(g) != len(w) {
			return "", false
		}
		for i := range w {
			if sub, ok := subset(w[i], g[i]); !ok {
				return joinPath(fmt.Sprint(i), sub), false
			}
		}
		return "", true
	default:
		return "", ir.Key(want) == ir.Key(got)
	}
}

func joinPath(head, tail string) string {
	if tail == "" {
		return head
	}
	return head + "." + tail
}

func keyAt(obj ir.Object, path string) string {
	v, _ := obj.Get(path)
	return ir.Key(v)
}
