package lattice

import (
	"math/big"
	"math/bits"

	"github.com/zed-0xff/cs-reflow-sub000/analysis/itypes"
)

func isTop(v Value) bool {
	_, ok := v.(Top)
	return ok
}

func isTracker(v Value) bool {
	_, ok := v.(BitTracker)
	return ok
}

func isBitwise(v Value) bool {
	switch v.(type) {
	case BitMask, BitTracker:
		return true
	}
	return false
}

func isSet(v Value) bool {
	_, ok := v.(Set)
	return ok
}

func operand(v Value) itypes.Operand {
	o := itypes.Operand{Type: v.Type()}
	if c, ok := v.(Const); ok {
		o.Const, o.Value = true, c.v
	}
	return o
}

// promote converts both operands to their common type.
func promote(op string, a, b Value) (Value, Value, error) {
	lt, rt := itypes.Promote(operand(a), operand(b))
	if lt != nil {
		a = convert(a, lt)
	}
	if rt != nil {
		b = convert(b, rt)
	}
	if a.Type() != b.Type() {
		return nil, nil, unsupported(op, a, b)
	}
	return a, b, nil
}

// best picks the candidate of least cardinality. Earlier candidates win
// ties. Nil candidates are skipped.
func best(cands ...Value) Value {
	var res Value
	var card *big.Int
	for _, c := range cands {
		if c == nil {
			continue
		}
		if n := Cardinality(c); card == nil || n.Cmp(card) < 0 {
			res, card = c, n
		}
	}
	return res
}

// refineLimit bounds the enumeration used to intersect two candidates.
const refineLimit = 1 << 12

// refine intersects two sound candidates by enumerating the smaller one.
// Tracked values keep their identity and are only compared by size.
func refine(a, b Value) Value {
	if a == nil || b == nil || isTracker(a) || isTracker(b) {
		return best(a, b)
	}
	res, other := a, b
	if Cardinality(b).Cmp(Cardinality(a)) < 0 {
		res, other = b, a
	}
	if !small(res, refineLimit) {
		return res
	}
	vals, err := Values(res)
	if err != nil {
		return res
	}
	var in []int64
	for _, x := range vals {
		if Contains(other, x) {
			in = append(in, x)
		}
	}
	if len(in) == 0 {
		return res
	}
	return newSet(res.Type(), in)
}

// fitRange builds a range from logical bounds. Bounds outside of t are
// kept if the wrapped interval is still contiguous.
func fitRange(t *itypes.Type, lo, hi *big.Int) (Value, bool) {
	if l, ok := t.FromBig(lo); ok {
		if h, ok := t.FromBig(hi); ok {
			return normRange(t, l, h), true
		}
	}
	span := new(big.Int).Sub(hi, lo)
	if span.Cmp(t.Cardinality()) < 0 {
		l, h := t.WrapBig(lo), t.WrapBig(hi)
		if t.Cmp(l, h) <= 0 {
			return normRange(t, l, h), true
		}
	}
	return nil, false
}

func bigBounds(v Value) (lo, hi *big.Int) {
	l, h, _ := Bounds(v)
	return v.Type().Big(l), v.Type().Big(h)
}

// crossProduct applies f to every pair of values when both operands are
// small enough to enumerate. The result has type rt.
func crossProduct(rt *itypes.Type, a, b Value, f func(x, y int64) (int64, error)) (Value, bool, error) {
	n := new(big.Int).Mul(Cardinality(a), Cardinality(b))
	if n.Cmp(big.NewInt(int64(setCap()))) > 0 {
		return nil, false, nil
	}
	xs, err := Values(a)
	if err != nil {
		return nil, false, nil
	}
	ys, err := Values(b)
	if err != nil {
		return nil, false, nil
	}
	out := make([]int64, 0, len(xs)*len(ys))
	for _, x := range xs {
		for _, y := range ys {
			r, err := f(x, y)
			if err != nil {
				return nil, false, err
			}
			out = append(out, r)
		}
	}
	return newSet(rt, out), true, nil
}

// arithRules describes one arithmetic operator per representation.
type arithRules struct {
	name string
	// Concrete evaluation on raw values.
	konst func(t *itypes.Type, x, y int64) (int64, error)
	// Rejects operands without a meaningful result.
	check func(a, b Value) error
	// Interval evaluation on logical bounds.
	interval func(t *itypes.Type, a, b Value) (Value, bool)
	// Bit level evaluation.
	bits func(t *itypes.Type, a, b Value) ([]Bit, bool)
}

func arith(r arithRules, a, b Value) (Value, error) {
	if isTop(a) || isTop(b) {
		return Top{}, nil
	}
	if a.Type().IsBool() || b.Type().IsBool() {
		return nil, unsupported(r.name, a, b)
	}
	a, b, err := promote(r.name, a, b)
	if err != nil {
		return nil, err
	}
	t := a.Type()

	if x, ok := a.(Const); ok {
		if y, ok := b.(Const); ok {
			v, err := r.konst(t, x.v, y.v)
			if err != nil {
				return nil, err
			}
			return Const{t, t.Wrap(v)}, nil
		}
	}
	if r.check != nil {
		if err := r.check(a, b); err != nil {
			return nil, err
		}
	}

	konst := func(x, y int64) (int64, error) {
		v, err := r.konst(t, x, y)
		return t.Wrap(v), err
	}
	trackers := isTracker(a) || isTracker(b)
	// Enumerations are exact.
	if !trackers && (isSet(a) || isSet(b)) {
		if v, ok, err := crossProduct(t, a, b, konst); err != nil || ok {
			return v, err
		}
	}

	var byBits, byRange Value
	if r.bits != nil && (isBitwise(a) || isBitwise(b)) {
		if bs, ok := r.bits(t, a, b); ok {
			byBits = normBits(t, bs)
		}
	}
	if r.interval != nil {
		if v, ok := r.interval(t, a, b); ok {
			byRange = v
		} else if !trackers {
			if v, ok, err := crossProduct(t, a, b, konst); err != nil || ok {
				return v, err
			}
		}
	}
	if res := refine(byBits, byRange); res != nil {
		return res, nil
	}
	return Unknown{t}, nil
}

func operandBits(a, b Value) (ab, bb []Bit, ok bool) {
	if ab, ok = toBits(a); !ok {
		return
	}
	bb, ok = toBits(b)
	return
}

// sameTracker checks whether a and b are the same fully tracked value.
func sameTracker(a, b Value) bool {
	x, ok := a.(BitTracker)
	if !ok || !Equal(a, b) {
		return false
	}
	for _, bit := range x.bits {
		if bit.kind == bitUnknown {
			return false
		}
	}
	return true
}

var addRules = arithRules{
	name: "+",
	konst: func(_ *itypes.Type, x, y int64) (int64, error) {
		return x + y, nil
	},
	interval: func(t *itypes.Type, a, b Value) (Value, bool) {
		alo, ahi := bigBounds(a)
		blo, bhi := bigBounds(b)
		return fitRange(t, alo.Add(alo, blo), ahi.Add(ahi, bhi))
	},
	bits: func(t *itypes.Type, a, b Value) ([]Bit, bool) {
		ab, bb, ok := operandBits(a, b)
		if !ok {
			return nil, false
		}
		if sameTracker(a, b) {
			return shlBits(ab, 1), true
		}
		return addBits(ab, bb, zeroBit), true
	},
}

var subRules = arithRules{
	name: "-",
	konst: func(_ *itypes.Type, x, y int64) (int64, error) {
		return x - y, nil
	},
	interval: func(t *itypes.Type, a, b Value) (Value, bool) {
		alo, ahi := bigBounds(a)
		blo, bhi := bigBounds(b)
		return fitRange(t, alo.Sub(alo, bhi), ahi.Sub(ahi, blo))
	},
	bits: func(t *itypes.Type, a, b Value) ([]Bit, bool) {
		ab, bb, ok := operandBits(a, b)
		if !ok {
			return nil, false
		}
		return addBits(ab, notBits(bb), oneBit), true
	},
}

var mulRules = arithRules{
	name: "*",
	konst: func(_ *itypes.Type, x, y int64) (int64, error) {
		return x * y, nil
	},
	interval: func(t *itypes.Type, a, b Value) (Value, bool) {
		alo, ahi := bigBounds(a)
		blo, bhi := bigBounds(b)
		lo, hi := corners(func(x, y *big.Int) *big.Int {
			return new(big.Int).Mul(x, y)
		}, alo, ahi, blo, bhi)
		return fitRange(t, lo, hi)
	},
	bits: func(t *itypes.Type, a, b Value) ([]Bit, bool) {
		c, ok := b.(Const)
		other := a
		if !ok {
			c, ok = a.(Const)
			other = b
		}
		if !ok {
			return nil, false
		}
		ob, ok := toBits(other)
		if !ok {
			return nil, false
		}
		return mulBitsConst(ob, uint64(c.v), t.Bits()), true
	},
}

// corners evaluates f on the four corners of two intervals and returns the
// extremes.
func corners(f func(x, y *big.Int) *big.Int, alo, ahi, blo, bhi *big.Int) (lo, hi *big.Int) {
	for _, c := range [...]*big.Int{f(alo, blo), f(alo, bhi), f(ahi, blo), f(ahi, bhi)} {
		if lo == nil || c.Cmp(lo) < 0 {
			lo = c
		}
		if hi == nil || c.Cmp(hi) > 0 {
			hi = c
		}
	}
	return
}

func divisionByZero(op string) error {
	return &DomainError{Op: op, Msg: "division by zero"}
}

// checkDivisor rejects divisors that may be zero. Divisors without
// explicit bounds are unsupported rather than wrong.
func checkDivisor(op string) func(a, b Value) error {
	return func(a, b Value) error {
		if !Contains(b, 0) {
			return nil
		}
		switch b.(type) {
		case Const, Range, Set:
			return divisionByZero(op)
		}
		return unsupported(op, a, b)
	}
}

// powerOfTwo returns k such that the constant v is 2^k.
func powerOfTwo(t *itypes.Type, v Value) (uint, bool) {
	c, ok := v.(Const)
	if !ok {
		return 0, false
	}
	x := uint64(c.v) & t.Mask()
	if x == 0 || x&(x-1) != 0 || (t.Signed() && x>>(t.Bits()-1) == 1) {
		return 0, false
	}
	return uint(bits.TrailingZeros64(x)), true
}

// nonNegative checks whether every value of v is non-negative.
func nonNegative(v Value) bool {
	lo, _ := bigBounds(v)
	return lo.Sign() >= 0
}

var divRules = arithRules{
	name: "/",
	konst: func(t *itypes.Type, x, y int64) (int64, error) {
		if y == 0 {
			return 0, divisionByZero("/")
		}
		if t.Signed() {
			return x / y, nil
		}
		return int64((uint64(x) & t.Mask()) / (uint64(y) & t.Mask())), nil
	},
	check: checkDivisor("/"),
	interval: func(t *itypes.Type, a, b Value) (Value, bool) {
		alo, ahi := bigBounds(a)
		blo, bhi := bigBounds(b)
		quo := func(x, y *big.Int) *big.Int {
			return new(big.Int).Quo(x, y)
		}
		// The divisor excludes zero but its bounds may not. Each sign is
		// divided separately, the quotient is largest next to zero.
		var lo, hi *big.Int
		one, minusOne := big.NewInt(1), big.NewInt(-1)
		if blo.Sign() < 0 {
			nhi := bhi
			if nhi.Sign() >= 0 {
				nhi = minusOne
			}
			lo, hi = corners(quo, alo, ahi, blo, nhi)
		}
		if bhi.Sign() > 0 {
			plo := blo
			if plo.Sign() <= 0 {
				plo = one
			}
			l, h := corners(quo, alo, ahi, plo, bhi)
			if lo == nil || l.Cmp(lo) < 0 {
				lo = l
			}
			if hi == nil || h.Cmp(hi) > 0 {
				hi = h
			}
		}
		if lo == nil {
			return nil, false
		}
		return fitRange(t, lo, hi)
	},
	bits: func(t *itypes.Type, a, b Value) ([]Bit, bool) {
		k, ok := powerOfTwo(t, b)
		if !ok || !nonNegative(a) {
			return nil, false
		}
		ab, ok := toBits(a)
		if !ok {
			return nil, false
		}
		return shrBits(ab, k, false), true
	},
}

var modRules = arithRules{
	name: "%",
	konst: func(t *itypes.Type, x, y int64) (int64, error) {
		if y == 0 {
			return 0, divisionByZero("%")
		}
		if t.Signed() {
			return x % y, nil
		}
		return int64((uint64(x) & t.Mask()) % (uint64(y) & t.Mask())), nil
	},
	check: checkDivisor("%"),
	interval: func(t *itypes.Type, a, b Value) (Value, bool) {
		// The remainder takes the sign of the dividend and its magnitude
		// is below the largest magnitude of the divisor.
		alo, ahi := bigBounds(a)
		blo, bhi := bigBounds(b)
		m := new(big.Int).Abs(blo)
		if n := new(big.Int).Abs(bhi); n.Cmp(m) > 0 {
			m = n
		}
		m1 := new(big.Int).Sub(m, big.NewInt(1))
		neg := new(big.Int).Neg(m1)

		if new(big.Int).Abs(alo).Cmp(m) < 0 && new(big.Int).Abs(ahi).Cmp(m) < 0 &&
			Cardinality(b).Cmp(big.NewInt(1)) == 0 {
			// |a| < |n|: a % n == a
			return fitRange(t, alo, ahi)
		}

		lo, hi := neg, m1
		if alo.Sign() >= 0 {
			lo = big.NewInt(0)
			if ahi.Cmp(m1) < 0 {
				hi = ahi
			}
		}
		if ahi.Sign() <= 0 {
			hi = big.NewInt(0)
			if alo.Cmp(neg) > 0 {
				lo = alo
			}
		}
		return fitRange(t, lo, hi)
	},
	bits: func(t *itypes.Type, a, b Value) ([]Bit, bool) {
		k, ok := powerOfTwo(t, b)
		if !ok || !nonNegative(a) {
			return nil, false
		}
		ab, ok := toBits(a)
		if !ok {
			return nil, false
		}
		out := make([]Bit, len(ab))
		for i := range out {
			if uint(i) < k {
				out[i] = ab[i]
			} else {
				out[i] = zeroBit
			}
		}
		return out, true
	},
}

func Add(a, b Value) (Value, error) { return arith(addRules, a, b) }
func Sub(a, b Value) (Value, error) { return arith(subRules, a, b) }
func Mul(a, b Value) (Value, error) { return arith(mulRules, a, b) }

// Div is truncating division. A divisor that may be zero is a
// *DomainError.
func Div(a, b Value) (Value, error) { return arith(divRules, a, b) }

// Mod is the remainder of truncating division; its sign follows the
// dividend.
func Mod(a, b Value) (Value, error) { return arith(modRules, a, b) }
