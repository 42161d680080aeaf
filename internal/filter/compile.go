package filter

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/roach88/modelq/internal/ir"
	"github.com/roach88/modelq/internal/queryir"
)

// Matcher is a compiled where tree. It is immutable and safe for concurrent use.
type Matcher struct {
	root node
}

// node is the compiled counterpart of queryir.Where.
type node interface {
	match(rec ir.Object) bool
}

type andNode []node

func (n andNode) match(rec ir.Object) bool {
	for _, c := range n {
		if !c.match(rec) {
			return false
		}
	}
	return true
}

type orNode []node

func (n orNode) match(rec ir.Object) bool {
	for _, c := range n {
		if c.match(rec) {
			return true
		}
	}
	return false
}

// condNode tests one property. tests is empty for literal clauses.
type condNode struct {
	property string
	value    ir.Value // whole clause value, the equality fallback
	tests    []opTest
}

// Compile validates a where tree and prepares it for evaluation.
//
// props may be nil; when given, ordering operands must agree with the
// declared type of their property and date operands given as strings are
// parsed as RFC 3339.
func Compile(where queryir.Where, props map[string]ir.PropertyDefinition) (*Matcher, error) {
	if where == nil {
		return &Matcher{}, nil
	}
	root, err := compileNode(where, props)
	if err != nil {
		return nil, err
	}
	return &Matcher{root: root}, nil
}

// Match reports whether rec satisfies the where tree. A nil tree matches all.
func (m *Matcher) Match(rec ir.Object) bool {
	if m == nil || m.root == nil {
		return true
	}
	return m.root.match(rec)
}

func compileNode(w queryir.Where, props map[string]ir.PropertyDefinition) (node, error) {
	switch n := w.(type) {
	case queryir.And:
		out := make(andNode, 0, len(n.Clauses))
		for _, c := range n.Clauses {
			child, err := compileNode(c, props)
			if err != nil {
				return nil, err
			}
			out = append(out, child)
		}
		return out, nil
	case queryir.Or:
		out := make(orNode, 0, len(n.Clauses))
		for _, c := range n.Clauses {
			child, err := compileNode(c, props)
			if err != nil {
				return nil, err
			}
			out = append(out, child)
		}
		return out, nil
	case queryir.Cond:
		return compileCond(n, props)
	case nil:
		return andNode{}, nil
	}
	return nil, ir.Errorf(ir.ErrCodeNotImplemented, "unsupported where node %T", w)
}

func compileCond(c queryir.Cond, props map[string]ir.PropertyDefinition) (node, error) {
	prop, declared := props[c.Property]
	want := ir.KindNull
	if declared {
		want = prop.Type.Kind()
	}

	cn := &condNode{property: c.Property, value: c.Value}
	if len(c.Ops) == 0 {
		if want == ir.KindTime {
			cn.value = asDate(c.Value)
		}
		return cn, nil
	}

	for _, t := range c.Ops {
		ot, err := compileOp(c.Property, t, c.Options, want)
		if err != nil {
			return nil, err
		}
		cn.tests = append(cn.tests, ot)
	}
	return cn, nil
}

func compileOp(property string, t queryir.OpTest, options string, want ir.Kind) (opTest, error) {
	invalid := func(format string, args ...any) error {
		return ir.Errorf(ir.ErrCodeInvalidOperatorValue, "%s operator for %q: %s",
			t.Op, property, fmt.Sprintf(format, args...)).WithProperty(property)
	}

	ot := opTest{op: t.Op, operand: t.Operand}
	switch t.Op {
	case queryir.OpEq, queryir.OpNeq:
		if want == ir.KindTime {
			ot.operand = asDate(t.Operand)
		}

	case queryir.OpGt, queryir.OpGte, queryir.OpLt, queryir.OpLte:
		v, err := typedOperand(t.Operand, want)
		if err != nil {
			return opTest{}, invalid("%v", err)
		}
		ot.operand = v

	case queryir.OpBetween:
		bounds := t.Operand.(ir.Array)
		lo, err := typedOperand(bounds[0], want)
		if err != nil {
			return opTest{}, invalid("%v", err)
		}
		hi, err := typedOperand(bounds[1], want)
		if err != nil {
			return opTest{}, invalid("%v", err)
		}
		ot.lo, ot.hi = lo, hi

	case queryir.OpInq, queryir.OpNin:
		list := t.Operand.(ir.Array)
		ot.set = make([]ir.Value, len(list))
		for i, v := range list {
			if want == ir.KindTime {
				v = asDate(v)
			}
			ot.set[i] = v
		}

	case queryir.OpExists:
		ot.operand = t.Operand

	case queryir.OpLike, queryir.OpNlike, queryir.OpIlike, queryir.OpNilike:
		insensitive := t.Op == queryir.OpIlike || t.Op == queryir.OpNilike || strings.Contains(options, "i")
		re, err := likeToRegexp(string(t.Operand.(ir.String)), insensitive)
		if err != nil {
			return opTest{}, invalid("%v", err)
		}
		ot.re = re

	case queryir.OpRegexp:
		re, err := compileRegexp(t.Operand, options)
		if err != nil {
			return opTest{}, invalid("%v", err)
		}
		ot.re = re

	default:
		return opTest{}, ir.Errorf(ir.ErrCodeNotImplemented, "unsupported operator %q for %q", t.Op, property).
			WithProperty(property)
	}
	return ot, nil
}

// typedOperand checks an ordering operand against the declared kind.
// KindNull means "no declared constraint".
func typedOperand(v ir.Value, want ir.Kind) (ir.Value, error) {
	if want == ir.KindTime {
		if s, ok := v.(ir.String); ok {
			ts, err := time.Parse(time.RFC3339Nano, string(s))
			if err != nil {
				return nil, fmt.Errorf("%q is not an RFC 3339 date", string(s))
			}
			return ir.NewTime(ts), nil
		}
	}
	switch want {
	case ir.KindNull, ir.KindArray, ir.KindObject:
		return v, nil
	}
	if got := ir.KindOf(v); got != want {
		return nil, fmt.Errorf("operand %s is a %s but the property is a %s", ir.Key(v), got, want)
	}
	return v, nil
}

// asDate converts an RFC 3339 string to a Time, leaving anything else alone.
func asDate(v ir.Value) ir.Value {
	if s, ok := v.(ir.String); ok {
		if ts, err := time.Parse(time.RFC3339Nano, string(s)); err == nil {
			return ir.NewTime(ts)
		}
	}
	return v
}

// likeToRegexp translates a SQL LIKE pattern: % is any run, _ is one
// character, a backslash escapes the next character, and everything else is
// literal.
func likeToRegexp(pattern string, insensitive bool) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("(?s)")
	if insensitive {
		b.WriteString("(?i)")
	}
	b.WriteByte('^')
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			b.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			b.WriteString(".*")
		case r == '_':
			b.WriteByte('.')
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	if escaped {
		b.WriteString(regexp.QuoteMeta(`\`))
	}
	b.WriteByte('$')
	return regexp.Compile(b.String())
}

// compileRegexp accepts "pattern", "/pattern/flags" or {pattern, flags}.
// Only the i, m and s flags change matching; g, u and y are accepted and
// ignored.
func compileRegexp(v ir.Value, options string) (*regexp.Regexp, error) {
	var pattern, flags string
	switch p := v.(type) {
	case ir.String:
		pattern = string(p)
		if strings.HasPrefix(pattern, "/") {
			if end := strings.LastIndexByte(pattern, '/'); end > 0 && validFlags(pattern[end+1:]) {
				flags = pattern[end+1:]
				pattern = pattern[1:end]
			}
		}
	case ir.Object:
		pattern = string(p["pattern"].(ir.String))
		if f, ok := p["flags"].(ir.String); ok {
			flags = string(f)
		}
	}
	flags += options
	if !validFlags(flags) {
		return nil, fmt.Errorf("unsupported regexp flags %q", flags)
	}

	var prefix string
	for _, f := range []string{"i", "m", "s"} {
		if strings.Contains(flags, f) {
			prefix += f
		}
	}
	if prefix != "" {
		pattern = "(?" + prefix + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regexp: %w", err)
	}
	return re, nil
}

func validFlags(flags string) bool {
	for _, r := range flags {
		if !strings.ContainsRune("gimsuy", r) {
			return false
		}
	}
	return true
}
