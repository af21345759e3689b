package lattice

import (
	"github.com/zed-0xff/cs-reflow-sub000/analysis/itypes"
)

// Not is the bitwise complement.
func Not(a Value) (Value, error) {
	if isTop(a) {
		return Top{}, nil
	}
	if a.Type().IsBool() {
		return nil, unsupported("^", a)
	}
	t := itypes.UnaryPromote(a.Type())
	a = convert(a, t)

	switch a := a.(type) {
	case Unknown:
		return a, nil
	case Const:
		return Const{t, t.Wrap(^a.v)}, nil
	case Range:
		// Complement reverses the order of both signed and unsigned values.
		return normRange(t, t.Wrap(^a.hi), t.Wrap(^a.lo)), nil
	case Set:
		vals := make([]int64, len(a.vals))
		for i, x := range a.vals {
			vals[i] = ^x
		}
		return newSet(t, vals), nil
	}
	bs, _ := toBits(a)
	return normBits(t, notBits(bs)), nil
}

// Negate is the arithmetic negation. Negating a uint32 widens to int64.
func Negate(a Value) (Value, error) {
	if isTop(a) {
		return Top{}, nil
	}
	if a.Type().IsBool() {
		return nil, unsupported("-", a)
	}
	t := itypes.UnaryPromote(a.Type())
	if t == itypes.Uint32 {
		t = itypes.Int64
	}
	return Sub(Const{t, 0}, convert(a, t))
}

// LogicalNot negates a boolean.
func LogicalNot(a Value) (Value, error) {
	if isTop(a) {
		return unknownBool, nil
	}
	if !a.Type().IsBool() {
		return nil, unsupported("!", a)
	}
	switch a := a.(type) {
	case Const:
		return Const{itypes.Bool, a.v ^ 1}, nil
	case BitTracker:
		return normBits(itypes.Bool, notBits(a.bits)), nil
	}
	return unknownBool, nil
}
