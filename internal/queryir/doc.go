// Package queryir provides the parsed intermediate representation of a
// modelq filter.
//
// A filter arrives as a map-shaped document:
//
//	{
//	  "where":   {"age": {"gte": 18}, "or": [{"role": "admin"}, {"role": "owner"}]},
//	  "order":   ["age DESC", "name"],
//	  "skip":    10,
//	  "limit":   5,
//	  "fields":  ["id", "name"],
//	  "include": {"orders": {"where": {"total": {"gt": 0}}}}
//	}
//
// ParseFilter turns it into a Filter. All operand-shape validation happens
// during parsing, so a filter that parses will never fail later because of a
// malformed operator value; evaluation only ever fails for reasons that depend
// on the schema (typed comparison) or the data source.
//
// SEALED INTERFACES:
//
// Where is a sealed interface using the marker method pattern. Only And, Or
// and Cond implement it, so evaluators can switch exhaustively:
//
//	switch w := where.(type) {
//	case queryir.And:
//	case queryir.Or:
//	case queryir.Cond:
//	}
//
// OPERATOR CLAUSES:
//
// A property clause whose value is an object made only of operator keys
// (eq, neq, gt, gte, lt, lte, inq, nin, between, exists, like, nlike, ilike,
// nilike, regexp) is an operator clause. An object with no operator keys is a
// literal compared by deep equality. Mixing operator and non-operator keys is
// rejected with NOT_IMPLEMENTED.
//
// Validate reports references to undeclared names as warnings against a
// Catalog; it never fails a filter.
package queryir
