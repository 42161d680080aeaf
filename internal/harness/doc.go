// Package harness provides conformance testing for model definitions and
// the query engine.
//
// A scenario seeds an in-memory SQLite store with fixtures, runs queries
// through the engine, and checks each query's outcome.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: pets_by_owner
//	description: "Owners come back with their pets, newest first"
//	fixtures:
//	  Owner:
//	    - { id: 1, name: ann }
//	  Pet:
//	    - { id: 10, name: rex, ownerId: 1, born: 2020-05-01 }
//	queries:
//	  - name: owners
//	    model: Owner
//	    op: find
//	    filter:
//	      include: { relation: pets, scope: { order: born DESC } }
//	    expect:
//	      ids: [1]
//	      records:
//	        - { name: ann, pets: [{ name: rex }] }
//	  - model: Pet
//	    op: count
//	    filter: { where: { ownerId: 1 } }
//	    expect: { count: 1 }
//	golden: true
//
// # Operations
//
//   - find: Engine.Find with the whole filter
//   - findOne: Engine.FindOne
//   - findById: Engine.FindByID with id
//   - count: Engine.Count with the filter's where
//   - exists: Engine.Exists with id
//
// # Expectations
//
//   - ids: primary keys of the returned records, in order
//   - count: the count, or the number of returned records
//   - records: position-by-position subset match
//   - exists: the exists result
//   - error: substring of the query's error; the query must fail
//
// A query without expect only has to succeed.
//
// # Golden Files
//
// Scenarios with golden: true are also compared against a canonical JSON
// snapshot of every outcome. Tests use AssertGolden (goldie, under
// testdata/golden); the CLI uses CompareGolden with --update.
//
// # Determinism
//
// Each scenario gets a fresh store, a step clock for "now" defaults and a
// fixed query id, so two runs of the same scenario produce identical
// snapshots.
package harness
