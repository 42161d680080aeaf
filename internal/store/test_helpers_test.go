package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/modelq/internal/ir"
	"github.com/roach88/modelq/internal/schema"
)

// testResolver registers a Book model with a renamed column and a date.
func testResolver(t *testing.T) *schema.Resolver {
	t.Helper()
	reg := schema.NewRegistry()
	err := reg.RegisterModel(ir.ModelDefinition{
		Name:  "Book",
		Table: "books",
		Properties: map[string]ir.PropertyDefinition{
			"id":        {Type: ir.TypeInteger, ID: true},
			"title":     {Type: ir.TypeString, Column: "book_title"},
			"price":     {Type: ir.TypeNumber},
			"published": {Type: ir.TypeDate},
			"tags":      {Type: ir.TypeArray, Default: ir.Array{}},
		},
	})
	if err != nil {
		t.Fatalf("RegisterModel() failed: %v", err)
	}
	return schema.NewResolver(reg)
}

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, testResolver(t))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
