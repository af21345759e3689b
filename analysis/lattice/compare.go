package lattice

import (
	"github.com/zed-0xff/cs-reflow-sub000/analysis/itypes"
)

type cmpKind int

const (
	cmpEq cmpKind = iota
	cmpNe
	cmpLt
	cmpGt
	cmpLe
	cmpGe
)

func (k cmpKind) String() string {
	return [...]string{"==", "!=", "<", ">", "<=", ">="}[k]
}

func (k cmpKind) holds(c int) bool {
	switch k {
	case cmpEq:
		return c == 0
	case cmpNe:
		return c != 0
	case cmpLt:
		return c < 0
	case cmpGt:
		return c > 0
	case cmpLe:
		return c <= 0
	}
	return c >= 0
}

var unknownBool = Unknown{itypes.Bool}

func compare(k cmpKind, a, b Value) (Value, error) {
	if isTop(a) || isTop(b) {
		return unknownBool, nil
	}
	ab, bb := a.Type().IsBool(), b.Type().IsBool()
	switch {
	case ab != bb:
		return nil, unsupported(k.String(), a, b)
	case ab && k != cmpEq && k != cmpNe:
		return nil, unsupported(k.String(), a, b)
	case !ab:
		var err error
		if a, b, err = promote(k.String(), a, b); err != nil {
			return nil, err
		}
	}
	t := a.Type()

	if x, ok := a.(Const); ok {
		if y, ok := b.(Const); ok {
			return Elements().Bool(k.holds(t.Cmp(x.v, y.v))), nil
		}
	}

	// Provable bit differences and identities decide equality.
	if k == cmpEq || k == cmpNe {
		if x, y, ok := operandBits(a, b); ok {
			if r, ok := bitsEqual(x, y); ok {
				return Elements().Bool(r == (k == cmpEq)), nil
			}
		}
	}

	alo, ahi, _ := Bounds(a)
	blo, bhi, _ := Bounds(b)
	switch k {
	case cmpEq, cmpNe:
		if t.Cmp(ahi, blo) < 0 || t.Cmp(bhi, alo) < 0 {
			return Elements().Bool(k == cmpNe), nil
		}
	case cmpLt, cmpGe:
		switch {
		case t.Cmp(ahi, blo) < 0:
			return Elements().Bool(k == cmpLt), nil
		case t.Cmp(alo, bhi) >= 0:
			return Elements().Bool(k == cmpGe), nil
		}
	case cmpGt, cmpLe:
		switch {
		case t.Cmp(alo, bhi) > 0:
			return Elements().Bool(k == cmpGt), nil
		case t.Cmp(ahi, blo) <= 0:
			return Elements().Bool(k == cmpLe), nil
		}
	}

	if !isTracker(a) && !isTracker(b) {
		if v, ok, _ := crossProduct(itypes.Bool, a, b, func(x, y int64) (int64, error) {
			if k.holds(t.Cmp(x, y)) {
				return 1, nil
			}
			return 0, nil
		}); ok {
			return v, nil
		}
	}
	return unknownBool, nil
}

// bitsEqual decides whether two bit vectors are equal. It fails unless
// some bit provably differs or all bits are provably the same.
func bitsEqual(a, b []Bit) (eq, ok bool) {
	same := true
	for i := range a {
		switch {
		case a[i].opposite(b[i]):
			return false, true
		case !a[i].same(b[i]):
			same = false
		}
	}
	return true, same
}

func Eq(a, b Value) (Value, error) { return compare(cmpEq, a, b) }
func Ne(a, b Value) (Value, error) { return compare(cmpNe, a, b) }
func Lt(a, b Value) (Value, error) { return compare(cmpLt, a, b) }
func Gt(a, b Value) (Value, error) { return compare(cmpGt, a, b) }
func Le(a, b Value) (Value, error) { return compare(cmpLe, a, b) }
func Ge(a, b Value) (Value, error) { return compare(cmpGe, a, b) }
