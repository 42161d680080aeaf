// Package filter evaluates modelq filters against in-memory record sets.
//
// The pipeline is where -> sort -> slice -> project. Each stage is exposed
// on its own (Filter, Sort, Slice, Project) and Apply runs them in order.
//
// OPERATOR LOGIC:
//
// Every operator test in a clause yields one of three outcomes: true, false
// or not applicable. A clause is false if any test is false, true if any
// test is true, and otherwise falls back to equality between the record value
// and the whole clause value. Ordering tests against a value of a different
// runtime type are false, not an error.
//
// Array-valued properties match when any element matches, except for exists
// and for equality against an array operand, which compare the whole value.
// The negated operators (neq, nin, nlike, nilike) hold for an array when no
// element satisfies their positive form.
//
// VALIDATION:
//
// Compile checks a where tree once, before any record is looked at: regular
// expressions are compiled, like patterns are translated, and when a property
// map is supplied the ordering operands are checked against declared types.
// Evaluation itself never fails.
package filter
