// Package engine is the query entry point of modelq.
//
// An Engine ties the Schema Resolver, an Adapter (usually an adapter.Router
// over every configured datasource) and the Relation Resolver together:
//
//	eng := engine.New(resolver, router)
//	pets, err := eng.Find(ctx, "Pet", filter)
//
// QUERY PIPELINE:
//
// 1. Resolve the model and check the filter against its schema: where
// operands compile, skip/limit are valid, include relations resolve. All of
// this happens before any I/O.
// 2. Fetch with the where clause only.
// 3. Sort (stable), then skip/limit.
// 4. Resolve include clauses on the page; one batched fetch per relation.
// 5. Project fields; included relation names always survive projection.
//
// Sorting and paging run here rather than in the adapter so that every
// backend pages identically and includes are only resolved for the records
// actually returned.
//
// LOGGING:
//
// Each call is tagged with a correlation id (UUIDv7 by default) and logged at
// Debug with the model and record counts. Undeclared names referenced by a
// filter are logged at Warn.
package engine
