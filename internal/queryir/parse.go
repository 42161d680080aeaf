package queryir

import (
	"slices"
	"strings"

	"github.com/roach88/modelq/internal/ir"
)

// Top-level filter keys.
const (
	keyWhere   = "where"
	keyOrder   = "order"
	keyLimit   = "limit"
	keySkip    = "skip"
	keyOffset  = "offset"
	keyFields  = "fields"
	keyInclude = "include"

	keyAnd = "and"
	keyOr  = "or"

	keyRelation = "relation"
	keyScope    = "scope"
)

// ParseFilterJSON decodes and parses a JSON filter document.
func ParseFilterJSON(data []byte) (*Filter, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return &Filter{}, nil
	}
	obj, err := ir.ParseObject(data)
	if err != nil {
		return nil, ir.Errorf(ir.ErrCodeInvalidArgument, "filter is not a JSON object: %v", err)
	}
	return ParseFilter(obj)
}

// ParseFilter parses a filter object. All shape validation happens here,
// before any record is evaluated or any fetch is issued.
func ParseFilter(obj ir.Object) (*Filter, error) {
	f := &Filter{}
	if obj == nil {
		return f, nil
	}

	for _, key := range obj.SortedKeys() {
		val := obj[key]
		if ir.IsNull(val) {
			continue
		}
		var err error
		switch key {
		case keyWhere:
			w, ok := val.(ir.Object)
			if !ok {
				return nil, ir.Errorf(ir.ErrCodeInvalidArgument, "where must be an object, got %s", ir.KindOf(val))
			}
			f.Where, err = ParseWhere(w)
		case keyOrder:
			f.Order, err = ParseOrder(val)
		case keyLimit:
			f.Limit, err = parseCount(keyLimit, val)
		case keySkip, keyOffset:
			if f.Skip != nil {
				return nil, ir.Errorf(ir.ErrCodeInvalidArgument, "skip and offset are aliases; use only one")
			}
			f.Skip, err = parseCount(key, val)
		case keyFields:
			f.Fields, err = ParseFields(val)
		case keyInclude:
			f.Include, err = ParseInclude(val)
		default:
			return nil, ir.Errorf(ir.ErrCodeInvalidArgument, "unknown filter key %q", key)
		}
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}

// parseCount validates limit/skip: a non-negative integer, no clamping.
func parseCount(name string, v ir.Value) (*int, error) {
	n, ok := v.(ir.Int)
	if !ok {
		return nil, ir.Errorf(ir.ErrCodeInvalidArgument, "%s must be a non-negative integer, got %s %s",
			name, ir.KindOf(v), ir.Key(v))
	}
	if n < 0 {
		return nil, ir.Errorf(ir.ErrCodeInvalidArgument, "%s must be a non-negative integer, got %d", name, n)
	}
	i := int(n)
	return &i, nil
}

// ParseWhere parses a where object into a predicate tree.
//
// Multiple keys are ANDed in canonical key order. An empty object yields nil
// (match everything).
func ParseWhere(obj ir.Object) (Where, error) {
	var clauses []Where
	for _, key := range obj.SortedKeys() {
		val := obj[key]
		switch key {
		case keyAnd, keyOr:
			children, err := parseWhereList(key, val)
			if err != nil {
				return nil, err
			}
			if key == keyAnd {
				clauses = append(clauses, And{Clauses: children})
			} else {
				clauses = append(clauses, Or{Clauses: children})
			}
		default:
			cond, err := parseCond(key, val)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, cond)
		}
	}

	switch len(clauses) {
	case 0:
		return nil, nil
	case 1:
		return clauses[0], nil
	}
	return And{Clauses: clauses}, nil
}

func parseWhereList(key string, val ir.Value) ([]Where, error) {
	list, ok := val.(ir.Array)
	if !ok {
		return nil, ir.Errorf(ir.ErrCodeInvalidArgument, "value for %s must be an array of where objects, got %s", key, ir.KindOf(val))
	}
	children := make([]Where, 0, len(list))
	for i, item := range list {
		sub, ok := item.(ir.Object)
		if !ok {
			return nil, ir.Errorf(ir.ErrCodeInvalidArgument, "%s[%d] must be an object, got %s", key, i, ir.KindOf(item))
		}
		w, err := ParseWhere(sub)
		if err != nil {
			return nil, err
		}
		if w == nil {
			w = And{}
		}
		children = append(children, w)
	}
	return children, nil
}

// parseCond classifies a property clause.
//
// An object whose keys are all operators (plus the optional "options"
// modifier) is an operator clause. An object with no operator keys is a
// literal compared by equality. Mixing both is rejected as unsupported.
func parseCond(property string, val ir.Value) (Cond, error) {
	if property == "" {
		return Cond{}, ir.Errorf(ir.ErrCodeInvalidArgument, "where clause has an empty property name")
	}
	cond := Cond{Property: property, Value: val}

	obj, ok := val.(ir.Object)
	if !ok || len(obj) == 0 {
		return cond, nil
	}

	var unknown []string
	for _, key := range obj.SortedKeys() {
		switch {
		case Operators[Operator(key)]:
			test := OpTest{Op: Operator(key), Operand: obj[key]}
			if err := validateOperand(property, test); err != nil {
				return Cond{}, err
			}
			cond.Ops = append(cond.Ops, test)
		case key == optionsKey:
			s, ok := obj[key].(ir.String)
			if !ok {
				return Cond{}, ir.Errorf(ir.ErrCodeInvalidOperatorValue,
					"options for %q must be a string of flags, got %s", property, ir.KindOf(obj[key]))
			}
			cond.Options = string(s)
		default:
			unknown = append(unknown, key)
		}
	}

	if len(cond.Ops) == 0 {
		// a plain object literal
		cond.Options = ""
		return cond, nil
	}
	if len(unknown) > 0 {
		return Cond{}, ir.Errorf(ir.ErrCodeNotImplemented, "unsupported operator %q in clause for %q",
			unknown[0], property).WithProperty(property)
	}
	return cond, nil
}

// validateOperand checks the operand shape of one operator.
func validateOperand(property string, t OpTest) error {
	bad := func(want string) error {
		return ir.Errorf(ir.ErrCodeInvalidOperatorValue, "%s operator for %q requires %s, got %s %s",
			t.Op, property, want, ir.KindOf(t.Operand), ir.Key(t.Operand)).WithProperty(property)
	}

	switch t.Op {
	case OpEq, OpNeq:
		return nil
	case OpGt, OpGte, OpLt, OpLte:
		if !isOrderable(t.Operand) {
			return bad("a number, string or date")
		}
	case OpInq, OpNin:
		if _, ok := t.Operand.(ir.Array); !ok {
			return bad("an array")
		}
	case OpBetween:
		arr, ok := t.Operand.(ir.Array)
		if !ok || len(arr) != 2 {
			return bad("a two-element [min, max] array")
		}
		if !isOrderable(arr[0]) || !isOrderable(arr[1]) {
			return bad("orderable bounds")
		}
		if ir.KindOf(arr[0]) != ir.KindOf(arr[1]) {
			return bad("bounds of the same type")
		}
	case OpExists:
		if _, ok := t.Operand.(ir.Bool); !ok {
			return bad("a boolean")
		}
	case OpLike, OpNlike, OpIlike, OpNilike:
		if _, ok := t.Operand.(ir.String); !ok {
			return bad("a string pattern")
		}
	case OpRegexp:
		switch p := t.Operand.(type) {
		case ir.String:
			return nil
		case ir.Object:
			if _, ok := p["pattern"].(ir.String); !ok {
				return bad("a pattern string or {pattern, flags}")
			}
			if flags, ok := p["flags"]; ok && !ir.IsNull(flags) {
				if _, ok := flags.(ir.String); !ok {
					return bad("string flags")
				}
			}
		default:
			return bad("a pattern string or {pattern, flags}")
		}
	}
	return nil
}

func isOrderable(v ir.Value) bool {
	switch ir.KindOf(v) {
	case ir.KindNumber, ir.KindString, ir.KindTime:
		return true
	}
	return false
}

// ParseOrder normalizes an order clause into keys.
//
// Accepted forms: "name", "name DESC", "name:desc", a comma-separated string
// of those, or an array of them.
func ParseOrder(v ir.Value) ([]OrderKey, error) {
	var tokens []string
	switch val := v.(type) {
	case ir.String:
		tokens = strings.Split(string(val), ",")
	case ir.Array:
		for i, item := range val {
			s, ok := item.(ir.String)
			if !ok {
				return nil, ir.Errorf(ir.ErrCodeInvalidArgument, "order[%d] must be a string, got %s", i, ir.KindOf(item))
			}
			tokens = append(tokens, string(s))
		}
	default:
		return nil, ir.Errorf(ir.ErrCodeInvalidArgument, "order must be a string or array of strings, got %s", ir.KindOf(v))
	}

	keys := make([]OrderKey, 0, len(tokens))
	for _, tok := range tokens {
		key, err := parseOrderToken(tok)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func parseOrderToken(tok string) (OrderKey, error) {
	tok = strings.TrimSpace(tok)
	var prop, dir string
	if i := strings.IndexByte(tok, ':'); i >= 0 {
		prop, dir = tok[:i], tok[i+1:]
	} else if parts := strings.Fields(tok); len(parts) == 2 {
		prop, dir = parts[0], parts[1]
	} else if len(parts) == 1 {
		prop = parts[0]
	} else {
		return OrderKey{}, ir.Errorf(ir.ErrCodeInvalidArgument, "invalid order token %q", tok)
	}

	prop = strings.TrimSpace(prop)
	if prop == "" {
		return OrderKey{}, ir.Errorf(ir.ErrCodeInvalidArgument, "invalid order token %q: empty property", tok)
	}
	switch strings.ToUpper(strings.TrimSpace(dir)) {
	case "", "ASC":
		return OrderKey{Property: prop, Direction: Asc}, nil
	case "DESC":
		return OrderKey{Property: prop, Direction: Desc}, nil
	}
	return OrderKey{}, ir.Errorf(ir.ErrCodeInvalidArgument, "invalid order direction %q in %q", dir, tok)
}

// ParseFields parses a projection.
//
// An array of names, or an object whose true entries form the allow-list.
// An object whose entries are all false is an exclude-list. False entries
// next to an allow-list are kept in Exclude so a projection can drop the
// primary key when it is named explicitly.
func ParseFields(v ir.Value) (*Fields, error) {
	switch val := v.(type) {
	case ir.String:
		return &Fields{Include: []string{string(val)}}, nil
	case ir.Array:
		f := &Fields{}
		for i, item := range val {
			s, ok := item.(ir.String)
			if !ok {
				return nil, ir.Errorf(ir.ErrCodeInvalidArgument, "fields[%d] must be a string, got %s", i, ir.KindOf(item))
			}
			f.Include = append(f.Include, string(s))
		}
		if len(f.Include) == 0 {
			return nil, nil
		}
		return f, nil
	case ir.Object:
		f := &Fields{}
		for _, key := range val.SortedKeys() {
			b, ok := val[key].(ir.Bool)
			if !ok {
				return nil, ir.Errorf(ir.ErrCodeInvalidArgument, "fields.%s must be a boolean, got %s", key, ir.KindOf(val[key]))
			}
			if b {
				f.Include = append(f.Include, key)
			} else {
				f.Exclude = append(f.Exclude, key)
			}
		}
		if len(f.Include) == 0 && len(f.Exclude) == 0 {
			return nil, nil
		}
		return f, nil
	}
	return nil, ir.Errorf(ir.ErrCodeInvalidArgument, "fields must be an array or object, got %s", ir.KindOf(v))
}

// ParseInclude normalizes an include clause.
//
// Accepted forms:
//   - "rel"
//   - ["rel", {"other": {...scope}}]
//   - {"rel": true | {...scope} | "nested" | ["nested", ...]}
//   - {"relation": "rel", "scope": {...}}
//
// A string or array value under a relation name is shorthand for a scope
// with only an include clause.
func ParseInclude(v ir.Value) ([]Include, error) {
	switch val := v.(type) {
	case ir.String:
		if val == "" {
			return nil, ir.Errorf(ir.ErrCodeInvalidArgument, "include relation name must not be empty")
		}
		return []Include{{Relation: string(val)}}, nil
	case ir.Array:
		var out []Include
		for _, item := range val {
			inc, err := ParseInclude(item)
			if err != nil {
				return nil, err
			}
			out = append(out, inc...)
		}
		return mergeIncludes(out)
	case ir.Object:
		if rel, ok := val[keyRelation]; ok {
			return parseRelationForm(val, rel)
		}
		var out []Include
		for _, name := range val.SortedKeys() {
			inc, err := parseIncludeEntry(name, val[name])
			if err != nil {
				return nil, err
			}
			if inc != nil {
				out = append(out, *inc)
			}
		}
		return out, nil
	}
	return nil, ir.Errorf(ir.ErrCodeInvalidArgument, "include must be a string, array or object, got %s", ir.KindOf(v))
}

func parseRelationForm(obj ir.Object, rel ir.Value) ([]Include, error) {
	name, ok := rel.(ir.String)
	if !ok || name == "" {
		return nil, ir.Errorf(ir.ErrCodeInvalidArgument, "include relation must be a non-empty string, got %s", ir.KindOf(rel))
	}
	for key := range obj {
		if key != keyRelation && key != keyScope {
			return nil, ir.Errorf(ir.ErrCodeInvalidArgument, "unexpected key %q next to include relation %q", key, name)
		}
	}
	inc := Include{Relation: string(name)}
	if scope, ok := obj[keyScope]; ok && !ir.IsNull(scope) {
		so, ok := scope.(ir.Object)
		if !ok {
			return nil, ir.Errorf(ir.ErrCodeInvalidArgument, "scope for %q must be an object, got %s", name, ir.KindOf(scope))
		}
		f, err := ParseFilter(so)
		if err != nil {
			return nil, err
		}
		inc.Scope = f
	}
	return []Include{inc}, nil
}

func parseIncludeEntry(name string, v ir.Value) (*Include, error) {
	switch val := v.(type) {
	case nil, ir.Null:
		return &Include{Relation: name}, nil
	case ir.Bool:
		if !val {
			return nil, nil
		}
		return &Include{Relation: name}, nil
	case ir.String, ir.Array:
		nested, err := ParseInclude(val)
		if err != nil {
			return nil, err
		}
		return &Include{Relation: name, Scope: &Filter{Include: nested}}, nil
	case ir.Object:
		f, err := ParseFilter(val)
		if err != nil {
			return nil, err
		}
		return &Include{Relation: name, Scope: f}, nil
	}
	return nil, ir.Errorf(ir.ErrCodeInvalidArgument, "include entry %q has unsupported value %s", name, ir.KindOf(v))
}

// mergeIncludes rejects the same relation requested twice with conflicting scopes.
func mergeIncludes(in []Include) ([]Include, error) {
	seen := make(map[string]int, len(in))
	out := make([]Include, 0, len(in))
	for _, inc := range in {
		if i, ok := seen[inc.Relation]; ok {
			if out[i].Scope == nil {
				out[i].Scope = inc.Scope
				continue
			}
			if inc.Scope == nil {
				continue
			}
			return nil, ir.Errorf(ir.ErrCodeInvalidArgument, "relation %q included twice with different scopes", inc.Relation)
		}
		seen[inc.Relation] = len(out)
		out = append(out, inc)
	}
	return out, nil
}

// Relations returns the relation names of an include list, in order.
func Relations(includes []Include) []string {
	out := make([]string, 0, len(includes))
	for _, inc := range includes {
		if !slices.Contains(out, inc.Relation) {
			out = append(out, inc.Relation)
		}
	}
	return out
}
