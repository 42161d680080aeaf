package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: owners
description: lists owners
fixtures:
  Owner:
    - { id: 1, name: ann }
queries:
  - model: Owner
    op: find
    filter: { order: name, limit: 5 }
    expect:
      ids: [1]
      count: 1
  - name: by_id
    model: Owner
    op: findById
    id: 1
golden: true
`), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "owners", s.Name)
	assert.True(t, s.Golden)
	assert.Equal(t, Fixtures{"Owner": {{"id": 1, "name": "ann"}}}, s.Fixtures)
	require.Len(t, s.Queries, 2)

	q := s.Queries[0]
	assert.Equal(t, "queries[0]", q.Name, "unnamed queries get their index")
	assert.Equal(t, OpFind, q.Op)
	assert.Equal(t, map[string]any{"order": "name", "limit": 5}, q.Filter)
	assert.Equal(t, []any{1}, q.Expect.IDs)
	assert.Equal(t, 1, *q.Expect.Count)

	assert.Equal(t, "by_id", s.Queries[1].Name)
	assert.Equal(t, 1, s.Queries[1].ID)
	assert.Nil(t, s.Queries[1].Expect)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		contains string
	}{
		{
			name:     "missing name",
			doc:      "description: d\nqueries: [{model: A, op: find}]",
			contains: "name is required",
		},
		{
			name:     "missing description",
			doc:      "name: n\nqueries: [{model: A, op: find}]",
			contains: "description is required",
		},
		{
			name:     "no queries",
			doc:      "name: n\ndescription: d",
			contains: "queries list is required",
		},
		{
			name:     "unknown field",
			doc:      "name: n\ndescription: d\nquery: []\nqueries: [{model: A, op: find}]",
			contains: "failed to parse YAML",
		},
		{
			name:     "unknown expect field",
			doc:      "name: n\ndescription: d\nqueries: [{model: A, op: find, expect: {rows: 1}}]",
			contains: "failed to parse YAML",
		},
		{
			name:     "missing model",
			doc:      "name: n\ndescription: d\nqueries: [{op: find}]",
			contains: "queries[0]: model is required",
		},
		{
			name:     "unknown op",
			doc:      "name: n\ndescription: d\nqueries: [{model: A, op: findAll}]",
			contains: `unknown op "findAll"`,
		},
		{
			name:     "findById without id",
			doc:      "name: n\ndescription: d\nqueries: [{name: q, model: A, op: findById}]",
			contains: "q: id is required for findById",
		},
		{
			name:     "negative count",
			doc:      "name: n\ndescription: d\nqueries: [{model: A, op: count, expect: {count: -1}}]",
			contains: "expect.count must be non-negative",
		},
		{
			name:     "ids on count",
			doc:      "name: n\ndescription: d\nqueries: [{model: A, op: count, expect: {ids: [1]}}]",
			contains: "count queries can only expect count or error",
		},
		{
			name:     "exists on find",
			doc:      "name: n\ndescription: d\nqueries: [{model: A, op: find, expect: {exists: true}}]",
			contains: "expect.exists only applies to exists",
		},
		{
			name:     "error with ids",
			doc:      "name: n\ndescription: d\nqueries: [{model: A, op: find, expect: {error: x, ids: [1]}}]",
			contains: "expect.error cannot be combined",
		},
		{
			name:     "null fixture record",
			doc:      "name: n\ndescription: d\nfixtures: {A: [null]}\nqueries: [{model: A, op: find}]",
			contains: "fixtures.A[0]: record must be a mapping",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}
