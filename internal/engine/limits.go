package engine

import (
	"github.com/roach88/modelq/internal/ir"
	"github.com/roach88/modelq/internal/queryir"
)

// DefaultMaxIncludeDepth bounds how deeply include clauses may nest.
//
// Relations can point back at their source (Owner.pets -> Pet.owner -> ...),
// so a caller-supplied include is otherwise unbounded. Each level costs at
// least one adapter fetch.
const DefaultMaxIncludeDepth = 8

// IncludeDepth returns the nesting depth of includes: zero for none, one for
// a flat list.
func IncludeDepth(includes []queryir.Include) int {
	depth := 0
	for _, inc := range includes {
		d := 1
		if inc.Scope != nil {
			d += IncludeDepth(inc.Scope.Include)
		}
		depth = max(depth, d)
	}
	return depth
}

// checkIncludeDepth rejects includes nested deeper than limit. A limit of
// zero or less disables the check.
func checkIncludeDepth(model string, includes []queryir.Include, limit int) error {
	if limit <= 0 {
		return nil
	}
	if d := IncludeDepth(includes); d > limit {
		return ir.Errorf(ir.ErrCodeInvalidArgument, "include nests %d levels deep, limit is %d", d, limit).
			WithModel(model)
	}
	return nil
}
