package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/modelq/internal/ir"
	"github.com/roach88/modelq/internal/queryir"
)

func TestIncludeDepth(t *testing.T) {
	nested := func(inner ...queryir.Include) *queryir.Filter {
		return &queryir.Filter{Include: inner}
	}

	tests := []struct {
		name     string
		includes []queryir.Include
		want     int
	}{
		{"none", nil, 0},
		{"flat", []queryir.Include{{Relation: "a"}, {Relation: "b"}}, 1},
		{"scope without include", []queryir.Include{{Relation: "a", Scope: &queryir.Filter{}}}, 1},
		{"deepest branch wins", []queryir.Include{
			{Relation: "a"},
			{Relation: "b", Scope: nested(queryir.Include{Relation: "c", Scope: nested(queryir.Include{Relation: "d"})})},
		}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IncludeDepth(tt.includes))
		})
	}
}

func TestCheckIncludeDepth(t *testing.T) {
	deep := []queryir.Include{{Relation: "a", Scope: &queryir.Filter{
		Include: []queryir.Include{{Relation: "b"}},
	}}}

	require.NoError(t, checkIncludeDepth("M", deep, 2))
	require.NoError(t, checkIncludeDepth("M", deep, 0), "zero disables the check")

	err := checkIncludeDepth("M", deep, 1)
	require.Error(t, err)
	assert.True(t, ir.IsInvalidArgument(err))
	assert.Contains(t, err.Error(), "2 levels deep")
}
