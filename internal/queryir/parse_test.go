package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/modelq/internal/ir"
)

func mustFilter(t *testing.T, doc string) *Filter {
	t.Helper()
	f, err := ParseFilterJSON([]byte(doc))
	require.NoError(t, err)
	return f
}

func TestParseFilterJSON_Empty(t *testing.T) {
	f, err := ParseFilterJSON(nil)
	require.NoError(t, err)
	assert.Nil(t, f.Where)
	assert.Nil(t, f.Limit)
	assert.Nil(t, f.Skip)
}

func TestParseFilter_AllClauses(t *testing.T) {
	f := mustFilter(t, `{
		"where": {"age": {"gte": 18}},
		"order": "name DESC",
		"limit": 5,
		"offset": 2,
		"fields": ["id", "name"],
		"include": "orders"
	}`)

	cond, ok := f.Where.(Cond)
	require.True(t, ok)
	assert.Equal(t, "age", cond.Property)
	assert.Equal(t, []OpTest{{Op: OpGte, Operand: ir.Int(18)}}, cond.Ops)

	assert.Equal(t, []OrderKey{{Property: "name", Direction: Desc}}, f.Order)
	require.NotNil(t, f.Limit)
	assert.Equal(t, 5, *f.Limit)
	require.NotNil(t, f.Skip)
	assert.Equal(t, 2, *f.Skip, "offset is an alias for skip")
	assert.Equal(t, &Fields{Include: []string{"id", "name"}}, f.Fields)
	assert.Equal(t, []Include{{Relation: "orders"}}, f.Include)
}

func TestParseFilter_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		code ir.ErrorCode
	}{
		{"negative limit", `{"limit": -1}`, ir.ErrCodeInvalidArgument},
		{"fractional limit", `{"limit": 2.5}`, ir.ErrCodeInvalidArgument},
		{"string skip", `{"skip": "3"}`, ir.ErrCodeInvalidArgument},
		{"skip and offset", `{"skip": 1, "offset": 2}`, ir.ErrCodeInvalidArgument},
		{"unknown key", `{"sort": "name"}`, ir.ErrCodeInvalidArgument},
		{"where not object", `{"where": [1]}`, ir.ErrCodeInvalidArgument},
		{"inq not array", `{"where": {"a": {"inq": 1}}}`, ir.ErrCodeInvalidOperatorValue},
		{"nin not array", `{"where": {"a": {"nin": "x"}}}`, ir.ErrCodeInvalidOperatorValue},
		{"between one bound", `{"where": {"a": {"between": [1]}}}`, ir.ErrCodeInvalidOperatorValue},
		{"between mixed bounds", `{"where": {"a": {"between": [1, "z"]}}}`, ir.ErrCodeInvalidOperatorValue},
		{"gt with array", `{"where": {"a": {"gt": [1]}}}`, ir.ErrCodeInvalidOperatorValue},
		{"exists not bool", `{"where": {"a": {"exists": 1}}}`, ir.ErrCodeInvalidOperatorValue},
		{"like not string", `{"where": {"a": {"like": 1}}}`, ir.ErrCodeInvalidOperatorValue},
		{"regexp object without pattern", `{"where": {"a": {"regexp": {"flags": "i"}}}}`, ir.ErrCodeInvalidOperatorValue},
		{"mixed operator and literal keys", `{"where": {"a": {"gt": 1, "foo": 2}}}`, ir.ErrCodeNotImplemented},
		{"and not array", `{"where": {"and": {"a": 1}}}`, ir.ErrCodeInvalidArgument},
		{"bad order direction", `{"order": "name sideways"}`, ir.ErrCodeInvalidArgument},
		{"bad include", `{"include": 3}`, ir.ErrCodeInvalidArgument},
		{"bad scope operator", `{"include": {"orders": {"where": {"x": {"inq": 1}}}}}`, ir.ErrCodeInvalidOperatorValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFilterJSON([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, ir.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestParseWhere_MultipleKeysAreAnded(t *testing.T) {
	w, err := ParseWhere(ir.Object{"role": ir.String("admin"), "age": ir.Object{"gt": ir.Int(1)}})
	require.NoError(t, err)

	and, ok := w.(And)
	require.True(t, ok)
	require.Len(t, and.Clauses, 2)
	assert.Equal(t, "age", and.Clauses[0].(Cond).Property)
	assert.Equal(t, "role", and.Clauses[1].(Cond).Property)
}

func TestParseWhere_EmptyMatchesAll(t *testing.T) {
	w, err := ParseWhere(ir.Object{})
	require.NoError(t, err)
	assert.Nil(t, w)
}

func TestParseWhere_AndOr(t *testing.T) {
	f := mustFilter(t, `{"where": {"or": [{"a": 1}, {"and": [{"b": 2}, {}]}]}}`)

	or, ok := f.Where.(Or)
	require.True(t, ok)
	require.Len(t, or.Clauses, 2)
	assert.Equal(t, Cond{Property: "a", Value: ir.Int(1)}, or.Clauses[0])

	inner, ok := or.Clauses[1].(And)
	require.True(t, ok)
	require.Len(t, inner.Clauses, 2)
	assert.Equal(t, And{}, inner.Clauses[1], "empty sub-where matches all")
}

func TestParseCond_ObjectWithoutOperatorsIsLiteral(t *testing.T) {
	f := mustFilter(t, `{"where": {"meta": {"color": "red"}}}`)

	cond := f.Where.(Cond)
	assert.Empty(t, cond.Ops)
	assert.Equal(t, ir.Object{"color": ir.String("red")}, cond.Value)
}

func TestParseCond_OperatorsInKeyOrder(t *testing.T) {
	f := mustFilter(t, `{"where": {"n": {"lt": 10, "gt": 1, "neq": 5}}}`)

	cond := f.Where.(Cond)
	ops := make([]Operator, 0, len(cond.Ops))
	for _, op := range cond.Ops {
		ops = append(ops, op.Op)
	}
	assert.Equal(t, []Operator{OpGt, OpLt, OpNeq}, ops)
}

func TestParseCond_Options(t *testing.T) {
	f := mustFilter(t, `{"where": {"name": {"like": "a%", "options": "i"}}}`)
	assert.Equal(t, "i", f.Where.(Cond).Options)

	_, err := ParseFilterJSON([]byte(`{"where": {"name": {"like": "a%", "options": 1}}}`))
	require.Error(t, err)
	assert.True(t, ir.IsInvalidOperatorValue(err))
}

func TestParseOrder(t *testing.T) {
	tests := []struct {
		name  string
		input ir.Value
		want  []OrderKey
	}{
		{"bare", ir.String("name"), []OrderKey{{"name", Asc}}},
		{"explicit asc", ir.String("name ASC"), []OrderKey{{"name", Asc}}},
		{"lowercase desc", ir.String("name desc"), []OrderKey{{"name", Desc}}},
		{"colon form", ir.String("name:desc"), []OrderKey{{"name", Desc}}},
		{"comma separated", ir.String("a DESC, b"), []OrderKey{{"a", Desc}, {"b", Asc}}},
		{"array", ir.Array{ir.String("a"), ir.String("b:desc")}, []OrderKey{{"a", Asc}, {"b", Desc}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOrder(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOrder_Invalid(t *testing.T) {
	for _, input := range []ir.Value{ir.String(""), ir.String("a b c"), ir.String(":desc"), ir.Int(1), ir.Array{ir.Int(1)}} {
		_, err := ParseOrder(input)
		require.Error(t, err, "input %v", input)
		assert.True(t, ir.IsInvalidArgument(err))
	}
}

func TestParseFields(t *testing.T) {
	tests := []struct {
		name  string
		input ir.Value
		want  *Fields
	}{
		{"array", ir.Array{ir.String("id")}, &Fields{Include: []string{"id"}}},
		{"true entries form allow-list", ir.Object{"name": ir.Bool(true), "id": ir.Bool(false)}, &Fields{Include: []string{"name"}, Exclude: []string{"id"}}},
		{"all false excludes", ir.Object{"secret": ir.Bool(false)}, &Fields{Exclude: []string{"secret"}}},
		{"empty object", ir.Object{}, nil},
		{"empty array", ir.Array{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFields(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.True(t, (&Fields{Exclude: []string{"x"}}).IsExclude())
	assert.False(t, (&Fields{Include: []string{"x"}, Exclude: []string{"y"}}).IsExclude())
}

func TestParseInclude_Forms(t *testing.T) {
	t.Run("array of names", func(t *testing.T) {
		got, err := ParseInclude(ir.Array{ir.String("a"), ir.String("b")})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, Relations(got))
	})

	t.Run("relation and scope", func(t *testing.T) {
		f := mustFilter(t, `{"include": {"relation": "orders", "scope": {"limit": 1}}}`)
		require.Len(t, f.Include, 1)
		assert.Equal(t, "orders", f.Include[0].Relation)
		require.NotNil(t, f.Include[0].Scope)
		assert.Equal(t, 1, *f.Include[0].Scope.Limit)
	})

	t.Run("map with nested include shorthand", func(t *testing.T) {
		f := mustFilter(t, `{"include": {"owner": "orders", "tags": true, "skip": false}}`)
		require.Len(t, f.Include, 2)
		assert.Equal(t, "owner", f.Include[0].Relation)
		require.NotNil(t, f.Include[0].Scope)
		assert.Equal(t, []Include{{Relation: "orders"}}, f.Include[0].Scope.Include)
		assert.Equal(t, Include{Relation: "tags"}, f.Include[1])
	})

	t.Run("duplicate without conflict merges", func(t *testing.T) {
		f := mustFilter(t, `{"include": ["orders", {"orders": {"limit": 2}}]}`)
		require.Len(t, f.Include, 1)
		require.NotNil(t, f.Include[0].Scope)
		assert.Equal(t, 2, *f.Include[0].Scope.Limit)
	})

	t.Run("conflicting scopes", func(t *testing.T) {
		_, err := ParseFilterJSON([]byte(`{"include": [{"orders": {"limit": 2}}, {"orders": {"limit": 3}}]}`))
		require.Error(t, err)
		assert.True(t, ir.IsInvalidArgument(err))
	})

	t.Run("relation form rejects extra keys", func(t *testing.T) {
		_, err := ParseFilterJSON([]byte(`{"include": {"relation": "orders", "limit": 1}}`))
		require.Error(t, err)
	})
}

func TestFilterClone_Independent(t *testing.T) {
	f := mustFilter(t, `{"order": "a", "fields": ["a"], "include": "r"}`)
	c := f.Clone()
	c.Order[0].Direction = Desc
	c.Fields.Include = nil
	c.Include = append(c.Include, Include{Relation: "x"})

	assert.Equal(t, Asc, f.Order[0].Direction)
	assert.Equal(t, []string{"a"}, f.Fields.Include)
	assert.Len(t, f.Include, 1)

	var nilFilter *Filter
	assert.NotNil(t, nilFilter.Clone())
}
