package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/modelq/internal/adapter"
	"github.com/roach88/modelq/internal/ir"
	"github.com/roach88/modelq/internal/queryir"
)

func seedBooks(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	published := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, rec := range []ir.Object{
		{"id": ir.Int(3), "title": ir.String("Gamma"), "price": ir.Float(12.5), "published": ir.NewTime(published)},
		{"id": ir.Int(1), "title": ir.String("Alpha"), "price": ir.Int(10), "tags": ir.Array{ir.String("x")}},
		{"id": ir.Int(2), "title": ir.String("Beta"), "price": ir.Float(7.25), "meta": ir.Object{"pages": ir.Int(100)}},
	} {
		_, err := s.Create(ctx, "Book", rec)
		require.NoError(t, err)
	}
}

func bookIDs(records []ir.Object) []ir.Value {
	out := make([]ir.Value, len(records))
	for i, r := range records {
		out[i] = r["id"]
	}
	return out
}

func TestFind_InsertionOrderAndTypes(t *testing.T) {
	s := createTestStore(t)
	seedBooks(t, s)

	got, err := s.Find(context.Background(), "Book", nil)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []ir.Value{ir.Int(3), ir.Int(1), ir.Int(2)}, bookIDs(got))

	gamma := got[0]
	assert.Equal(t, ir.String("Gamma"), gamma["title"], "column mapped back to property")
	assert.Equal(t, ir.Float(12.5), gamma["price"])
	assert.True(t, ir.Equal(ir.NewTime(time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)), gamma["published"]))
	assert.Equal(t, ir.Array{}, gamma["tags"], "default applied on create")

	assert.Equal(t, ir.Object{"pages": ir.Int(100)}, got[2]["meta"], "undeclared keys survive")
}

func TestFind_BodyIsColumnKeyed(t *testing.T) {
	s := createTestStore(t)
	seedBooks(t, s)

	var body []byte
	require.NoError(t, s.db.QueryRow(`SELECT body FROM records WHERE tbl = 'books' AND id_key = '1'`).Scan(&body))
	row, err := decodeBody(body)
	require.NoError(t, err)
	assert.Contains(t, row, "book_title")
	assert.NotContains(t, row, "title")
}

func TestFind_Filter(t *testing.T) {
	s := createTestStore(t)
	seedBooks(t, s)

	f, err := queryir.ParseFilterJSON([]byte(`{"where": {"price": {"lt": 11}}, "order": "title DESC", "fields": ["title"]}`))
	require.NoError(t, err)

	got, err := s.Find(context.Background(), "Book", f)
	require.NoError(t, err)
	assert.Equal(t, []ir.Object{
		{"id": ir.Int(2), "title": ir.String("Beta")},
		{"id": ir.Int(1), "title": ir.String("Alpha")},
	}, got)
}

func TestCount(t *testing.T) {
	s := createTestStore(t)
	seedBooks(t, s)

	w, err := queryir.ParseWhere(ir.Object{"published": ir.Object{"exists": ir.Bool(true)}})
	require.NoError(t, err)
	n, err := s.Count(context.Background(), "Book", w)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCreate_Errors(t *testing.T) {
	s := createTestStore(t)
	seedBooks(t, s)
	ctx := context.Background()

	_, err := s.Create(ctx, "Book", ir.Object{"id": ir.Int(1)})
	assert.ErrorIs(t, err, adapter.ErrDuplicateID)

	_, err = s.Create(ctx, "Book", ir.Object{"title": ir.String("no id")})
	assert.ErrorIs(t, err, adapter.ErrMissingID)

	_, err = s.Create(ctx, "Ghost", ir.Object{"id": ir.Int(1)})
	assert.True(t, ir.HasCode(err, ir.ErrCodeUnknownModel))
}

func TestWritePath(t *testing.T) {
	s := createTestStore(t)
	seedBooks(t, s)
	ctx := context.Background()

	require.NoError(t, s.PatchByID(ctx, "Book", ir.Int(1), ir.Object{"price": ir.Int(11)}))
	require.NoError(t, s.ReplaceByID(ctx, "Book", ir.Int(2), ir.Object{"title": ir.String("Beta 2")}))
	require.NoError(t, s.DeleteByID(ctx, "Book", ir.Int(3)))

	got, err := s.Find(ctx, "Book", nil)
	require.NoError(t, err)
	assert.Equal(t, []ir.Object{
		{"id": ir.Int(1), "title": ir.String("Alpha"), "price": ir.Int(11), "tags": ir.Array{ir.String("x")}},
		{"id": ir.Int(2), "title": ir.String("Beta 2")},
	}, got)

	ok, err := s.Exists(ctx, "Book", ir.Int(3))
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = s.Exists(ctx, "Book", ir.Int(2))
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, s.DeleteByID(ctx, "Book", ir.Int(3)), adapter.ErrNotFound)
	assert.ErrorIs(t, s.ReplaceByID(ctx, "Book", ir.Int(3), ir.Object{}), adapter.ErrNotFound)
	assert.ErrorIs(t, s.PatchByID(ctx, "Book", ir.Int(3), ir.Object{}), adapter.ErrNotFound)
}

func TestBodyRoundTrip(t *testing.T) {
	row := ir.Object{
		"i":   ir.Int(-7),
		"big": ir.Int(1 << 40),
		"f":   ir.Float(0.5),
		"s":   ir.String("x"),
		"b":   ir.Bool(true),
		"n":   ir.Null{},
		"arr": ir.Array{ir.Int(1), ir.String("two")},
		"obj": ir.Object{"k": ir.Bool(false)},
	}
	data, err := encodeBody(row)
	require.NoError(t, err)

	back, err := decodeBody(data)
	require.NoError(t, err)
	assert.Equal(t, row, back)

	again, err := encodeBody(row)
	require.NoError(t, err)
	assert.Equal(t, data, again, "encoding is deterministic")
}
