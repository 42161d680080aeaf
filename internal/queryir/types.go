package queryir

import "github.com/roach88/modelq/internal/ir"

// Filter is the parsed form of {where, order, limit, skip, fields, include}.
//
// A nil Where matches every record. Nil Limit/Skip mean "absent"; when set
// they are guaranteed non-negative by ParseFilter.
type Filter struct {
	Where   Where
	Order   []OrderKey
	Limit   *int
	Skip    *int
	Fields  *Fields
	Include []Include
}

// Clone returns a shallow copy whose slices can be modified independently.
func (f *Filter) Clone() *Filter {
	if f == nil {
		return &Filter{}
	}
	out := *f
	out.Order = append([]OrderKey(nil), f.Order...)
	out.Include = append([]Include(nil), f.Include...)
	if f.Fields != nil {
		fields := *f.Fields
		out.Fields = &fields
	}
	return &out
}

// Where represents a boolean predicate over one record.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern keeps the evaluator's type switch exhaustive.
//
// Where types:
//   - And: all clauses must hold
//   - Or: at least one clause must hold
//   - Cond: one property tested against a literal or an operator clause
type Where interface {
	whereNode() // Marker method - seals interface to this package
}

// And represents a conjunction (empty = always true).
type And struct {
	Clauses []Where
}

func (And) whereNode() {}

// Or represents a disjunction (empty = always false).
type Or struct {
	Clauses []Where
}

func (Or) whereNode() {}

// Cond tests one property.
//
// Value is the raw clause value exactly as written: either a literal
// (implicit equality) or an operator object such as {gt: 1, lt: 5}. Ops
// holds the recognized operators of an operator object in canonical key
// order; it is empty for literals and for objects with no operator keys,
// which are compared by equality as a whole.
type Cond struct {
	Property string
	Value    ir.Value
	Ops      []OpTest
	Options  string // flags from the "options" modifier, applied to pattern operators
}

func (Cond) whereNode() {}

// Operator names a comparison in an operator clause.
type Operator string

const (
	OpEq      Operator = "eq"
	OpNeq     Operator = "neq"
	OpGt      Operator = "gt"
	OpGte     Operator = "gte"
	OpLt      Operator = "lt"
	OpLte     Operator = "lte"
	OpInq     Operator = "inq"
	OpNin     Operator = "nin"
	OpBetween Operator = "between"
	OpExists  Operator = "exists"
	OpLike    Operator = "like"
	OpNlike   Operator = "nlike"
	OpIlike   Operator = "ilike"
	OpNilike  Operator = "nilike"
	OpRegexp  Operator = "regexp"
)

// optionsKey is a modifier accepted next to pattern operators.
const optionsKey = "options"

// Operators lists every supported operator.
var Operators = map[Operator]bool{
	OpEq: true, OpNeq: true,
	OpGt: true, OpGte: true, OpLt: true, OpLte: true,
	OpInq: true, OpNin: true, OpBetween: true, OpExists: true,
	OpLike: true, OpNlike: true, OpIlike: true, OpNilike: true,
	OpRegexp: true,
}

// IsOrdering reports whether op compares by typed ordering.
func (op Operator) IsOrdering() bool {
	switch op {
	case OpGt, OpGte, OpLt, OpLte, OpBetween:
		return true
	}
	return false
}

// OpTest is one operator with its operand.
type OpTest struct {
	Op      Operator
	Operand ir.Value
}

// Direction is a sort direction.
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

// OrderKey is one normalized `property[ ASC|DESC]` token.
type OrderKey struct {
	Property  string
	Direction Direction
}

// Fields is a projection. A non-empty Include is an allow-list; Exclude then
// only records explicit false entries. With Include empty, Exclude is an
// exclude-list.
type Fields struct {
	Include []string
	Exclude []string
}

// IsExclude reports whether the projection is an exclude-list.
func (f *Fields) IsExclude() bool {
	return f != nil && len(f.Include) == 0 && len(f.Exclude) > 0
}

// Include requests one relation, optionally with a nested scope filter.
type Include struct {
	Relation string
	Scope    *Filter
}
