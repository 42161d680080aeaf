package relation

import "github.com/roach88/modelq/internal/ir"

// KeyFunc extracts a grouping key from a value.
type KeyFunc[K comparable, V any] func(V) K

// GroupByKey groups values by key, preserving input order within a group.
func GroupByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K][]V {
	result := make(map[K][]V)
	for _, v := range values {
		key := keyFn(v)
		result[key] = append(result[key], v)
	}
	return result
}

// OrderByKeys returns, for each key in order, the first value with that key.
// Keys without a value are skipped; duplicate keys repeat the value.
func OrderByKeys[K comparable, V any](keys []K, values []V, keyFn KeyFunc[K, V]) []V {
	lookup := make(map[K]V, len(values))
	for _, v := range values {
		k := keyFn(v)
		if _, seen := lookup[k]; !seen {
			lookup[k] = v
		}
	}
	result := make([]V, 0, len(keys))
	for _, key := range keys {
		if v, ok := lookup[key]; ok {
			result = append(result, v)
		}
	}
	return result
}

// propertyKey returns a KeyFunc reading the grouping key of property.
func propertyKey(property string) KeyFunc[string, ir.Object] {
	return func(rec ir.Object) string {
		v, _ := rec.Get(property)
		return ir.Key(v)
	}
}

// keySet collects distinct non-null values in first-seen order.
type keySet struct {
	seen   map[string]bool
	values ir.Array
}

func newKeySet() *keySet {
	return &keySet{seen: make(map[string]bool)}
}

func (s *keySet) add(v ir.Value) {
	if ir.IsNull(v) {
		return
	}
	k := ir.Key(v)
	if s.seen[k] {
		return
	}
	s.seen[k] = true
	s.values = append(s.values, v)
}

func (s *keySet) len() int {
	return len(s.values)
}
