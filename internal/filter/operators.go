package filter

import (
	"regexp"

	"github.com/roach88/modelq/internal/ir"
	"github.com/roach88/modelq/internal/queryir"
)

// outcome is the result of one operator test.
type outcome int

const (
	notApplicable outcome = iota
	pass
	fail
)

func outcomeOf(b bool) outcome {
	if b {
		return pass
	}
	return fail
}

func (o outcome) negate() outcome {
	switch o {
	case pass:
		return fail
	case fail:
		return pass
	}
	return notApplicable
}

// opTest is one compiled operator.
type opTest struct {
	op      queryir.Operator
	operand ir.Value
	lo, hi  ir.Value   // between
	set     []ir.Value // inq, nin
	re      *regexp.Regexp
}

// positive maps a negated operator to the operator it negates.
var positive = map[queryir.Operator]queryir.Operator{
	queryir.OpNeq:    queryir.OpEq,
	queryir.OpNin:    queryir.OpInq,
	queryir.OpNlike:  queryir.OpLike,
	queryir.OpNilike: queryir.OpIlike,
}

func (c *condNode) match(rec ir.Object) bool {
	v, present := rec.Get(c.property)
	if present && ir.IsNull(v) {
		present = false
	}

	if len(c.tests) == 0 {
		return equalsClause(v, present, c.value)
	}

	anyPass := false
	for _, t := range c.tests {
		switch t.eval(v, present) {
		case fail:
			return false
		case pass:
			anyPass = true
		}
	}
	if anyPass {
		return true
	}
	return equalsClause(v, present, c.value)
}

// equalsClause is literal equality. An array record value matches a scalar
// literal when any element equals it.
func equalsClause(v ir.Value, present bool, want ir.Value) bool {
	if !present {
		return ir.IsNull(want)
	}
	if arr, ok := v.(ir.Array); ok {
		if _, wantArr := want.(ir.Array); !wantArr {
			for _, elem := range arr {
				if ir.Equal(elem, want) {
					return true
				}
			}
			return false
		}
	}
	return ir.Equal(v, want)
}

// eval runs the test against one record value, spreading over arrays.
func (t opTest) eval(v ir.Value, present bool) outcome {
	arr, isArray := v.(ir.Array)
	if !isArray || !t.elementwise() {
		return t.test(v, present)
	}

	base, negated := positive[t.op]
	if !negated {
		base = t.op
	}
	pos := t
	pos.op = base
	for _, elem := range arr {
		if pos.test(elem, !ir.IsNull(elem)) == pass {
			return outcomeOf(!negated)
		}
	}
	return outcomeOf(negated)
}

// elementwise reports whether the test spreads over array record values.
func (t opTest) elementwise() bool {
	switch t.op {
	case queryir.OpExists:
		return false
	case queryir.OpEq, queryir.OpNeq:
		_, whole := t.operand.(ir.Array)
		return !whole
	}
	return true
}

// test evaluates the operator against a single value.
func (t opTest) test(v ir.Value, present bool) outcome {
	if base, ok := positive[t.op]; ok {
		pos := t
		pos.op = base
		return pos.test(v, present).negate()
	}

	switch t.op {
	case queryir.OpEq:
		if !present {
			return outcomeOf(ir.IsNull(t.operand))
		}
		return outcomeOf(ir.Equal(v, t.operand))

	case queryir.OpGt, queryir.OpGte, queryir.OpLt, queryir.OpLte:
		if !present {
			return fail
		}
		cmp, ok := compareSameKind(v, t.operand)
		if !ok {
			return fail
		}
		switch t.op {
		case queryir.OpGt:
			return outcomeOf(cmp > 0)
		case queryir.OpGte:
			return outcomeOf(cmp >= 0)
		case queryir.OpLt:
			return outcomeOf(cmp < 0)
		}
		return outcomeOf(cmp <= 0)

	case queryir.OpBetween:
		if !present {
			return fail
		}
		lo, okLo := compareSameKind(v, t.lo)
		hi, okHi := compareSameKind(v, t.hi)
		return outcomeOf(okLo && okHi && lo >= 0 && hi <= 0)

	case queryir.OpInq:
		if !present {
			for _, m := range t.set {
				if ir.IsNull(m) {
					return pass
				}
			}
			return fail
		}
		for _, m := range t.set {
			if ir.Equal(v, m) {
				return pass
			}
		}
		return fail

	case queryir.OpExists:
		return outcomeOf(bool(t.operand.(ir.Bool)) == present)

	case queryir.OpLike, queryir.OpIlike, queryir.OpRegexp:
		s, ok := v.(ir.String)
		if !present || !ok {
			return notApplicable
		}
		return outcomeOf(t.re.MatchString(string(s)))
	}
	return notApplicable
}
