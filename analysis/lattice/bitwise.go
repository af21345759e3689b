package lattice

import (
	"math/big"

	"github.com/zed-0xff/cs-reflow-sub000/analysis/itypes"
)

type bitwiseRules struct {
	name  string
	konst func(x, y int64) int64
	bit   func(a, b Bit) Bit
	// Interval bounds for non-negative operands.
	interval func(t *itypes.Type, a, b Value) (Value, bool)
}

func bitwise(r bitwiseRules, a, b Value) (Value, error) {
	if isTop(a) || isTop(b) {
		return Top{}, nil
	}
	ab, bb := a.Type().IsBool(), b.Type().IsBool()
	if ab != bb {
		return nil, unsupported(r.name, a, b)
	}
	if !ab {
		var err error
		if a, b, err = promote(r.name, a, b); err != nil {
			return nil, err
		}
	}
	t := a.Type()

	konst := func(x, y int64) (int64, error) {
		return t.Wrap(r.konst(x, y)), nil
	}
	if x, ok := a.(Const); ok {
		if y, ok := b.(Const); ok {
			v, _ := konst(x.v, y.v)
			return Const{t, v}, nil
		}
	}

	trackers := isTracker(a) || isTracker(b)
	if !trackers && (isSet(a) || isSet(b)) {
		if v, ok, _ := crossProduct(t, a, b, konst); ok {
			return v, nil
		}
	}

	var byBits, byRange Value
	if x, y, ok := operandBits(a, b); ok {
		byBits = normBits(t, mapBits(x, y, r.bit))
	}
	if r.interval != nil {
		if v, ok := r.interval(t, a, b); ok {
			byRange = v
		}
	}
	if res := refine(byBits, byRange); res != nil {
		return res, nil
	}
	return Unknown{t}, nil
}

// pow2Above returns the smallest 2^k - 1 not below x.
func pow2Above(x *big.Int) *big.Int {
	n := new(big.Int).Lsh(big.NewInt(1), uint(x.BitLen()))
	return n.Sub(n, big.NewInt(1))
}

var andRules = bitwiseRules{
	name:  "&",
	konst: func(x, y int64) int64 { return x & y },
	bit:   bitAnd,
	interval: func(t *itypes.Type, a, b Value) (Value, bool) {
		// x & y lies in [0, y] for any non-negative y.
		var hi *big.Int
		for _, v := range [...]Value{a, b} {
			if !nonNegative(v) {
				continue
			}
			if _, h := bigBounds(v); hi == nil || h.Cmp(hi) < 0 {
				hi = h
			}
		}
		if hi == nil {
			return nil, false
		}
		return fitRange(t, big.NewInt(0), hi)
	},
}

var orRules = bitwiseRules{
	name:  "|",
	konst: func(x, y int64) int64 { return x | y },
	bit:   bitOr,
	interval: func(t *itypes.Type, a, b Value) (Value, bool) {
		if !nonNegative(a) || !nonNegative(b) {
			return nil, false
		}
		alo, ahi := bigBounds(a)
		blo, bhi := bigBounds(b)
		lo, hi := alo, ahi
		if blo.Cmp(lo) > 0 {
			lo = blo
		}
		if bhi.Cmp(hi) > 0 {
			hi = bhi
		}
		return fitRange(t, lo, pow2Above(hi))
	},
}

var xorRules = bitwiseRules{
	name:  "^",
	konst: func(x, y int64) int64 { return x ^ y },
	bit:   bitXor,
	interval: func(t *itypes.Type, a, b Value) (Value, bool) {
		if !nonNegative(a) || !nonNegative(b) {
			return nil, false
		}
		_, ahi := bigBounds(a)
		_, bhi := bigBounds(b)
		hi := ahi
		if bhi.Cmp(hi) > 0 {
			hi = bhi
		}
		return fitRange(t, big.NewInt(0), pow2Above(hi))
	},
}

func And(a, b Value) (Value, error) { return bitwise(andRules, a, b) }
func Or(a, b Value) (Value, error)  { return bitwise(orRules, a, b) }
func Xor(a, b Value) (Value, error) { return bitwise(xorRules, a, b) }

// AndNot computes a & ^b.
func AndNot(a, b Value) (Value, error) {
	nb, err := Not(b)
	if err != nil {
		return nil, err
	}
	return And(a, nb)
}

type shiftKind int

const (
	shiftLeft shiftKind = iota
	// Fills with the sign bit for signed types.
	shiftRightSigned
	// Always fills with zeros.
	shiftRightUnsigned
)

func (k shiftKind) String() string {
	return [...]string{"<<", ">>", ">>>"}[k]
}

// shiftConst shifts the raw value x of type t by k positions. Counts at or
// beyond the width saturate.
func shiftConst(t *itypes.Type, kind shiftKind, x int64, k uint64) int64 {
	w := uint64(t.Bits())
	switch kind {
	case shiftLeft:
		if k >= w {
			return 0
		}
		return t.Wrap(x << k)
	case shiftRightSigned:
		if t.Signed() {
			if k >= w {
				k = w - 1
			}
			return t.Wrap(x >> k)
		}
	}
	if k >= w {
		return 0
	}
	return t.Wrap(int64((uint64(x) & t.Mask()) >> k))
}

func shift(kind shiftKind, a, b Value) (Value, error) {
	if isTop(a) {
		return Top{}, nil
	}
	if a.Type().IsBool() || (b.Type() != nil && b.Type().IsBool()) {
		return nil, unsupported(kind.String(), a, b)
	}
	t := itypes.UnaryPromote(a.Type())
	a = convert(a, t)
	if isTop(b) {
		return Unknown{t}, nil
	}

	counts, err := Values(b)
	if err != nil || len(counts) > int(t.Bits())+1 {
		// Counts beyond the width all saturate to the same result.
		if lo, _ := bigBounds(b); lo.Cmp(big.NewInt(int64(t.Bits()))) >= 0 {
			counts = []int64{int64(t.Bits())}
		} else {
			return Unknown{t}, nil
		}
	}

	var res Value
	for _, k := range counts {
		if b.Type().Signed() && k < 0 {
			return nil, unsupported(kind.String(), a, b)
		}
		v := shiftBy(t, kind, a, uint64(k))
		if res == nil {
			res = v
		} else {
			res = Join(res, v)
		}
	}
	return res, nil
}

func shiftBy(t *itypes.Type, kind shiftKind, a Value, k uint64) Value {
	if k == 0 {
		return a
	}
	switch a := a.(type) {
	case Const:
		return Const{t, shiftConst(t, kind, a.v, k)}
	case Set:
		vals := make([]int64, len(a.vals))
		for i, x := range a.vals {
			vals[i] = shiftConst(t, kind, x, k)
		}
		return newSet(t, vals)
	}

	var byBits, byRange Value
	if bs, ok := toBits(a); ok {
		n := uint(k)
		if k > uint64(t.Bits()) {
			n = t.Bits()
		}
		switch kind {
		case shiftLeft:
			bs = shlBits(bs, n)
		case shiftRightSigned:
			bs = shrBits(bs, n, t.Signed())
		default:
			bs = shrBits(bs, n, false)
		}
		byBits = normBits(t, bs)
	}

	lo, hi := bigBounds(a)
	switch {
	case k >= uint64(t.Bits()):
	case kind == shiftLeft:
		byRange, _ = fitRange(t, new(big.Int).Lsh(lo, uint(k)), new(big.Int).Lsh(hi, uint(k)))
	case kind == shiftRightSigned || lo.Sign() >= 0:
		// Floor division by 2^k is monotone.
		byRange, _ = fitRange(t, new(big.Int).Rsh(lo, uint(k)), new(big.Int).Rsh(hi, uint(k)))
	}
	return refine(byBits, byRange)
}

func ShiftLeft(a, b Value) (Value, error)          { return shift(shiftLeft, a, b) }
func ShiftRightSigned(a, b Value) (Value, error)   { return shift(shiftRightSigned, a, b) }
func ShiftRightUnsigned(a, b Value) (Value, error) { return shift(shiftRightUnsigned, a, b) }
