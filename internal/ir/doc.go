// Package ir provides the foundational value and definition types for modelq.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps values, schema
// definitions and the error taxonomy at the bottom of the dependency graph.
//
// Key design constraints:
//   - Values are a sealed interface; records are Objects
//   - Definitions are plain data, immutable once registered
//   - Grouping keys use canonical JSON so equal values share a key
package ir
