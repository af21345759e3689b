package lattice

import (
	"math/big"
)

// Join computes the smallest representation covering both a and b that
// the domain can express. Values of different types join to Top.
func Join(a, b Value) Value {
	switch {
	case Equal(a, b):
		return a
	case isTop(a) || isTop(b) || a.Type() != b.Type():
		return Top{}
	}
	t := a.Type()
	if _, ok := a.(Unknown); ok {
		return a
	}
	if _, ok := b.(Unknown); ok {
		return b
	}

	if !isTracker(a) && !isTracker(b) {
		n := new(big.Int).Add(Cardinality(a), Cardinality(b))
		if n.Cmp(big.NewInt(int64(setCap()))) <= 0 {
			xs, errx := Values(a)
			ys, erry := Values(b)
			if errx == nil && erry == nil {
				return newSet(t, append(xs, ys...))
			}
		}
	}

	var byBits, byRange Value
	if x, y, ok := operandBits(a, b); ok {
		byBits = normBits(t, mapBits(x, y, func(p, q Bit) Bit {
			if p.same(q) {
				return p
			}
			return unkBit
		}))
	}
	alo, ahi, _ := Bounds(a)
	blo, bhi, _ := Bounds(b)
	if t.Cmp(blo, alo) < 0 {
		alo = blo
	}
	if t.Cmp(bhi, ahi) > 0 {
		ahi = bhi
	}
	byRange = normRange(t, alo, ahi)
	return best(byBits, byRange)
}

// Includes checks whether every value of b is denoted by a.
func Includes(a, b Value) bool {
	return Equal(Join(a, b), a)
}
