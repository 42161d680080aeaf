// Package adapter defines the storage contracts the query core talks to and
// ships an in-memory implementation plus a datasource router.
//
// Adapters receive parsed filters and return records as ir.Object values.
// Returned records belong to the caller: adapters never hand out references
// into their own storage.
package adapter

import (
	"context"
	"errors"

	"github.com/roach88/modelq/internal/ir"
	"github.com/roach88/modelq/internal/queryir"
)

var (
	// ErrNotFound is returned by write operations that address a missing id.
	ErrNotFound = errors.New("adapter: record not found")

	// ErrDuplicateID is returned by Create when the id is already stored.
	ErrDuplicateID = errors.New("adapter: duplicate id")

	// ErrMissingID is returned by Create when no id was given or generated.
	ErrMissingID = errors.New("adapter: record has no id")
)

// Adapter is the read contract.
type Adapter interface {
	// Find returns the records of model matching filter. Adapters must honor
	// where; order, skip, limit and fields are honored when present.
	Find(ctx context.Context, model string, filter *queryir.Filter) ([]ir.Object, error)

	// Count returns how many records of model match where.
	Count(ctx context.Context, model string, where queryir.Where) (int, error)
}

// Writer is the write contract.
type Writer interface {
	Create(ctx context.Context, model string, record ir.Object) (ir.Object, error)
	ReplaceByID(ctx context.Context, model string, id ir.Value, record ir.Object) error
	PatchByID(ctx context.Context, model string, id ir.Value, patch ir.Object) error
	DeleteByID(ctx context.Context, model string, id ir.Value) error
	Exists(ctx context.Context, model string, id ir.Value) (bool, error)
}

// ReadWriter is an adapter that supports both contracts.
type ReadWriter interface {
	Adapter
	Writer
}
