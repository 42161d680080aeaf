// Package store provides a SQLite-backed adapter for modelq records.
//
// Records are stored as opaque msgpack documents, one row per record, keyed
// by (table, canonical primary key). msgpack keeps the distinction between
// integers, floats and timestamps that a JSON body would lose.
//
// The store implements adapter.ReadWriter. It does not compile filters to
// SQL: Find loads a table's rows in insertion order and hands them to the
// filter engine, so every connector evaluates filters identically.
//
// # Critical Patterns
//
// Deterministic reads:
//   - All scans use ORDER BY seq ASC, so results follow insertion order
//   - Replace and patch keep a record's seq
//
// Column mapping:
//   - Bodies are keyed by column name (schema.Resolver.ToColumns)
//   - Records are returned keyed by property name
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
