package filter

import (
	"cmp"
	"strings"

	"github.com/roach88/modelq/internal/ir"
)

// compareSameKind orders two values of the same runtime kind: numbers
// numerically, strings lexicographically, dates chronologically and booleans
// false before true. ok is false when the kinds differ or are not ordered.
func compareSameKind(a, b ir.Value) (int, bool) {
	ka, kb := ir.KindOf(a), ir.KindOf(b)
	if ka != kb {
		return 0, false
	}
	switch ka {
	case ir.KindNumber:
		if ai, aok := a.(ir.Int); aok {
			if bi, bok := b.(ir.Int); bok {
				return cmp.Compare(ai, bi), true
			}
		}
		fa, _ := ir.AsFloat(a)
		fb, _ := ir.AsFloat(b)
		return cmp.Compare(fa, fb), true
	case ir.KindString:
		return strings.Compare(string(a.(ir.String)), string(b.(ir.String))), true
	case ir.KindTime:
		return a.(ir.Time).Compare(b.(ir.Time).Time), true
	case ir.KindBool:
		ba, bb := bool(a.(ir.Bool)), bool(b.(ir.Bool))
		switch {
		case ba == bb:
			return 0, true
		case !ba:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

// compareForSort is a total order over values. Null and absent sort first;
// different kinds order by kind (bool, number, string, date, array, object);
// arrays and objects of the same kind order by their canonical encoding.
func compareForSort(a, b ir.Value) int {
	ka, kb := ir.KindOf(a), ir.KindOf(b)
	if ka != kb {
		return cmp.Compare(ka, kb)
	}
	if ka == ir.KindNull {
		return 0
	}
	if c, ok := compareSameKind(a, b); ok {
		return c
	}
	return strings.Compare(ir.Key(a), ir.Key(b))
}
