package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/modelq/internal/ir"
	"github.com/roach88/modelq/internal/queryir"
	"github.com/roach88/modelq/internal/schema"
)

func newResolver(t *testing.T) *schema.Resolver {
	t.Helper()
	reg := schema.NewRegistry()
	require.NoError(t, reg.RegisterModel(ir.ModelDefinition{
		Name: "Note",
		Properties: map[string]ir.PropertyDefinition{
			"id":     {Type: ir.TypeString, ID: true, DefaultFn: ir.DefaultFnUUID},
			"title":  {Type: ir.TypeString},
			"rank":   {Type: ir.TypeInteger},
			"status": {Type: ir.TypeString, Default: ir.String("draft")},
		},
	}))
	require.NoError(t, reg.RegisterModel(ir.ModelDefinition{
		Name:       "Remote",
		Datasource: "elsewhere",
		Properties: map[string]ir.PropertyDefinition{"id": {ID: true}},
	}))
	return schema.NewResolver(reg)
}

func seed(t *testing.T, m *Memory) {
	t.Helper()
	ctx := context.Background()
	for _, rec := range []ir.Object{
		{"id": ir.String("a"), "title": ir.String("first"), "rank": ir.Int(2)},
		{"id": ir.String("b"), "title": ir.String("second"), "rank": ir.Int(1)},
		{"id": ir.String("c"), "title": ir.String("third"), "rank": ir.Int(3)},
	} {
		_, err := m.Create(ctx, "Note", rec)
		require.NoError(t, err)
	}
}

func TestMemory_CreateAppliesDefaults(t *testing.T) {
	m := NewMemory(newResolver(t))

	rec, err := m.Create(context.Background(), "Note", ir.Object{"title": ir.String("x")})
	require.NoError(t, err)
	assert.Equal(t, ir.String("draft"), rec["status"])
	assert.Len(t, string(rec["id"].(ir.String)), 36, "uuid primary key generated")
}

func TestMemory_CreateDuplicate(t *testing.T) {
	m := NewMemory(newResolver(t))
	seed(t, m)

	_, err := m.Create(context.Background(), "Note", ir.Object{"id": ir.String("a")})
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestMemory_FindWhereOrderLimit(t *testing.T) {
	m := NewMemory(newResolver(t))
	seed(t, m)

	f, err := queryir.ParseFilterJSON([]byte(`{"where": {"rank": {"gte": 2}}, "order": "rank DESC", "limit": 1}`))
	require.NoError(t, err)

	got, err := m.Find(context.Background(), "Note", f)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ir.String("c"), got[0]["id"])
}

func TestMemory_FindReturnsCopies(t *testing.T) {
	m := NewMemory(newResolver(t))
	seed(t, m)
	ctx := context.Background()

	got, err := m.Find(ctx, "Note", nil)
	require.NoError(t, err)
	require.Len(t, got, 3)
	got[0]["title"] = ir.String("mutated")

	again, err := m.Find(ctx, "Note", nil)
	require.NoError(t, err)
	assert.Equal(t, ir.String("first"), again[0]["title"])
}

func TestMemory_Count(t *testing.T) {
	m := NewMemory(newResolver(t))
	seed(t, m)

	w, err := queryir.ParseWhere(ir.Object{"rank": ir.Object{"lt": ir.Int(3)}})
	require.NoError(t, err)
	n, err := m.Count(context.Background(), "Note", w)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = m.Count(context.Background(), "Note", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestMemory_WritePath(t *testing.T) {
	m := NewMemory(newResolver(t))
	seed(t, m)
	ctx := context.Background()

	require.NoError(t, m.PatchByID(ctx, "Note", ir.String("a"), ir.Object{"rank": ir.Int(9), "id": ir.String("zzz")}))
	require.NoError(t, m.ReplaceByID(ctx, "Note", ir.String("b"), ir.Object{"title": ir.String("only")}))
	require.NoError(t, m.DeleteByID(ctx, "Note", ir.String("c")))

	got, err := m.Find(ctx, "Note", nil)
	require.NoError(t, err)
	assert.Equal(t, []ir.Object{
		{"id": ir.String("a"), "title": ir.String("first"), "rank": ir.Int(9), "status": ir.String("draft")},
		{"id": ir.String("b"), "title": ir.String("only")},
	}, got)

	ok, err := m.Exists(ctx, "Note", ir.String("a"))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = m.Exists(ctx, "Note", ir.String("c"))
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, m.DeleteByID(ctx, "Note", ir.String("c")), ErrNotFound)
	assert.ErrorIs(t, m.PatchByID(ctx, "Note", ir.String("c"), ir.Object{}), ErrNotFound)
}

func TestMemory_UnknownModel(t *testing.T) {
	m := NewMemory(newResolver(t))
	_, err := m.Find(context.Background(), "Ghost", nil)
	assert.True(t, ir.HasCode(err, ir.ErrCodeUnknownModel))
}

func TestMemory_CancelledContext(t *testing.T) {
	m := NewMemory(newResolver(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Find(ctx, "Note", nil)
	assert.ErrorIs(t, err, context.Canceled)
}
