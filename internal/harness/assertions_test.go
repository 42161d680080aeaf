package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/modelq/internal/ir"
)

func TestSubset(t *testing.T) {
	got := ir.Object{
		"id":   ir.Int(1),
		"name": ir.String("ann"),
		"born": ir.NewTime(testDate()),
		"tags": ir.Array{ir.String("a"), ir.String("b")},
		"pets": ir.Array{ir.Object{"id": ir.Int(10), "name": ir.String("rex")}},
	}

	tests := []struct {
		name string
		want ir.Value
		path string
		ok   bool
	}{
		{"empty", ir.Object{}, "", true},
		{"one key", ir.Object{"name": ir.String("ann")}, "", true},
		{"int equals float", ir.Object{"id": ir.Float(1)}, "", true},
		{"date as string", ir.Object{"born": ir.String("2020-05-01T00:00:00Z")}, "", true},
		{"nested subset", ir.Object{"pets": ir.Array{ir.Object{"name": ir.String("rex")}}}, "", true},
		{"wrong value", ir.Object{"name": ir.String("bob")}, "name", false},
		{"missing key", ir.Object{"age": ir.Int(3)}, "age", false},
		{"nested mismatch", ir.Object{"pets": ir.Array{ir.Object{"name": ir.String("tom")}}}, "pets.0.name", false},
		{"array length", ir.Object{"tags": ir.Array{ir.String("a")}}, "tags", false},
		{"array order", ir.Object{"tags": ir.Array{ir.String("b"), ir.String("a")}}, "tags.0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, ok := subset(tt.want, got)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.path, path)
		})
	}
}

func TestAssertIDs(t *testing.T) {
	records := []ir.Object{{"id": ir.Int(2)}, {"id": ir.Int(1)}}

	assert.NoError(t, assertIDs("id", []any{2, 1}, records))
	assert.NoError(t, assertIDs("id", []any{2.0, 1}, records))

	err := assertIDs("id", []any{1, 2}, records)
	require.Error(t, err)
	assert.Equal(t, "ids: expected [1, 2], got [2, 1]", err.Error())

	err = assertIDs("id", []any{}, records)
	require.Error(t, err)
	assert.Equal(t, "ids: expected [], got [2, 1]", err.Error())
}

func TestAssertRecords(t *testing.T) {
	got := []ir.Object{{"id": ir.Int(1), "name": ir.String("ann")}}

	assert.Empty(t, assertRecords([]map[string]any{{"name": "ann"}}, got))
	assert.Equal(t, []string{"records: expected 2, got 1"},
		assertRecords([]map[string]any{{}, {}}, got))
	assert.Equal(t, []string{`records[0].name: expected "bob", got "ann"`},
		assertRecords([]map[string]any{{"name": "bob"}}, got))
	assert.Equal(t, []string{`records[0].age: expected 3, got null`},
		assertRecords([]map[string]any{{"age": 3}}, got))
}

func TestCheck_NoExpectation(t *testing.T) {
	h := &Harness{}
	assert.Empty(t, h.check(Query{Name: "q"}, Outcome{}))
	assert.Equal(t, []string{"unexpected error: boom"}, h.check(Query{Name: "q"}, Outcome{Error: "boom"}))
}

func TestCheck_ErrorExpectation(t *testing.T) {
	h := &Harness{}
	q := Query{Name: "q", Expect: &Expect{Error: "NOT_FOUND"}}

	assert.Empty(t, h.check(q, Outcome{Error: "NOT_FOUND: no Owner with id 7"}))
	assert.Equal(t, []string{`expected error containing "NOT_FOUND", got "INVALID_ARGUMENT: bad"`},
		h.check(q, Outcome{Error: "INVALID_ARGUMENT: bad"}))
}

func TestCheck_CountOfRecords(t *testing.T) {
	h := &Harness{}
	q := Query{Name: "q", Op: OpFind, Expect: &Expect{Count: intPtr(2)}}

	assert.Empty(t, h.check(q, Outcome{Records: []ir.Object{{}, {}}}))
	assert.Equal(t, []string{"count: expected 2, got 0"}, h.check(q, Outcome{}))
}
