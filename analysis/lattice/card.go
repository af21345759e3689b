package lattice

import (
	"math/big"
	"math/bits"

	"github.com/pkg/errors"

	"github.com/zed-0xff/cs-reflow-sub000/analysis/itypes"
)

// Cardinality is the number of concrete values v denotes. Top is bounded
// by the widest supported type.
func Cardinality(v Value) *big.Int {
	switch v := v.(type) {
	case Top:
		return itypes.Uint64.Cardinality()
	case Unknown:
		return v.typ.Cardinality()
	case Const:
		return big.NewInt(1)
	case Range:
		n := new(big.Int).Sub(v.typ.Big(v.hi), v.typ.Big(v.lo))
		return n.Add(n, big.NewInt(1))
	case BitMask:
		unk := bits.OnesCount64(v.typ.Mask() &^ v.known)
		return new(big.Int).Lsh(big.NewInt(1), uint(unk))
	case BitTracker:
		return new(big.Int).Lsh(big.NewInt(1), uint(freeBits(v.bits)))
	case Set:
		return big.NewInt(int64(len(v.vals)))
	}
	panic(errInternal)
}

// small checks whether v has at most n values.
func small(v Value, n int) bool {
	return Cardinality(v).Cmp(big.NewInt(int64(n))) <= 0
}

// Bounds returns the raw inclusive bounds of v in the order of its type.
// The flag is false for Top.
func Bounds(v Value) (lo, hi int64, ok bool) {
	switch v := v.(type) {
	case Unknown:
		return v.typ.Min(), v.typ.Max(), true
	case Const:
		return v.v, v.v, true
	case Range:
		return v.lo, v.hi, true
	case BitMask:
		lo, hi = maskBounds(v.typ, v.known, v.ones)
		return lo, hi, true
	case BitTracker:
		var known, ones uint64
		for i, b := range v.bits {
			if b.isConst() {
				known |= 1 << i
				if b.kind == bitOne {
					ones |= 1 << i
				}
			}
		}
		lo, hi = maskBounds(v.typ, known, ones)
		return lo, hi, true
	case Set:
		return v.vals[0], v.vals[len(v.vals)-1], true
	}
	return 0, 0, false
}

// maskBounds computes the smallest and largest value matching a mask.
func maskBounds(t *itypes.Type, known, ones uint64) (lo, hi int64) {
	unk := t.Mask() &^ known
	if !t.Signed() {
		return int64(ones), int64(ones | unk)
	}
	sign := uint64(1) << (t.Bits() - 1)
	if known&sign != 0 {
		return t.Wrap(int64(ones)), t.Wrap(int64(ones | unk))
	}
	return t.Wrap(int64(ones | sign)), t.Wrap(int64(ones | unk&^sign))
}

// Values enumerates the raw values of v in ascending order. Values wider
// than the enumeration cap are unsupported.
func Values(v Value) ([]int64, error) {
	if _, ok := v.(Top); ok || !small(v, setCap()) {
		return nil, unsupported("enumerate", v)
	}

	switch v := v.(type) {
	case Const:
		return []int64{v.v}, nil
	case Set:
		return v.Values(), nil
	case Unknown, Range:
		lo, hi, _ := Bounds(v)
		var out []int64
		for x := lo; ; x++ {
			out = append(out, x)
			if x == hi {
				break
			}
		}
		return out, nil
	}

	bs, _ := toBits(v)
	vals := enumerateBits(v.Type(), bs)
	s := newSet(v.Type(), vals)
	if s, ok := s.(Set); ok {
		return s.vals, nil
	}
	// Contiguous results normalize to a range.
	return Values(s)
}

// Contains checks whether the concrete value x (raw, wrapped to the type
// of v) is denoted by v.
func Contains(v Value, x int64) bool {
	t := v.Type()
	if t == nil {
		return true
	}
	x = t.Wrap(x)

	switch v := v.(type) {
	case Unknown:
		return true
	case Const:
		return v.v == x
	case Range:
		return t.Cmp(v.lo, x) <= 0 && t.Cmp(x, v.hi) <= 0
	case BitMask:
		return uint64(x)&v.known == v.ones
	case Set:
		for _, y := range v.vals {
			if x == y {
				return true
			}
		}
		return false
	case BitTracker:
		type key struct {
			origin uint64
			index  uint8
		}
		assign := map[key]bool{}
		for i, b := range v.bits {
			one := uint64(x)>>i&1 == 1
			switch b.kind {
			case bitZero, bitOne:
				if one != (b.kind == bitOne) {
					return false
				}
			case bitSym:
				k := key{b.origin, b.index}
				want := one != b.neg
				if prev, ok := assign[k]; ok && prev != want {
					return false
				}
				assign[k] = want
			}
		}
		return true
	}
	panic(errors.Wrapf(errInternal, "contains on %v", v))
}
