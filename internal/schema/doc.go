// Package schema holds model definitions and resolves them across the
// inheritance hierarchy.
//
// A Registry is an explicit handle: callers create one, register models and
// datasources into it, and pass it to every component that needs schema
// information. There is no process-wide registry.
//
// A Resolver answers questions about a model as seen through its base chain:
// the flattened property and relation maps (root to leaf, leaf wins), the
// primary key, the table and column mapping, and default values. Results are
// computed on first use and memoized for the life of the Resolver. Definitions
// are immutable once registered, so there is no invalidation.
package schema
