package lattice

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/zed-0xff/cs-reflow-sub000/analysis/itypes"
)

// Value is a member of the abstract integer domain. All variants except
// Top carry their type. Values are immutable.
type Value interface {
	// Type is nil for Top.
	Type() *itypes.Type
	String() string
	isValue()
}

type (
	// Top is a value about which nothing is known, not even its type.
	Top struct{}

	// Unknown is any value representable by its type.
	Unknown struct {
		typ *itypes.Type
	}

	// Const is a concrete value, stored as a raw bit pattern.
	Const struct {
		typ *itypes.Type
		v   int64
	}

	// Range is an inclusive interval, ordered by the signedness of its type.
	Range struct {
		typ    *itypes.Type
		lo, hi int64
	}

	// BitMask knows the bits selected by known; their values are in ones.
	BitMask struct {
		typ   *itypes.Type
		known uint64
		ones  uint64
	}

	// BitTracker records the provenance of every bit.
	BitTracker struct {
		typ  *itypes.Type
		bits []Bit
	}

	// Set is a sorted, duplicate free enumeration.
	Set struct {
		typ  *itypes.Type
		vals []int64
	}
)

func (Top) isValue()        {}
func (Unknown) isValue()    {}
func (Const) isValue()      {}
func (Range) isValue()      {}
func (BitMask) isValue()    {}
func (BitTracker) isValue() {}
func (Set) isValue()        {}

func (Top) Type() *itypes.Type          { return nil }
func (v Unknown) Type() *itypes.Type    { return v.typ }
func (v Const) Type() *itypes.Type      { return v.typ }
func (v Range) Type() *itypes.Type      { return v.typ }
func (v BitMask) Type() *itypes.Type    { return v.typ }
func (v BitTracker) Type() *itypes.Type { return v.typ }
func (v Set) Type() *itypes.Type        { return v.typ }

// Value returns the raw bit pattern of the constant.
func (v Const) Value() int64 { return v.v }

// Bool interprets the constant as a truth value.
func (v Const) Bool() bool { return v.v != 0 }

// Literal renders the logical value without decoration.
func (v Const) Literal() string {
	switch {
	case v.typ.IsBool():
		return strconv.FormatBool(v.v != 0)
	case !v.typ.Signed():
		return strconv.FormatUint(uint64(v.v)&v.typ.Mask(), 10)
	}
	return strconv.FormatInt(v.v, 10)
}

// Bounds returns the raw inclusive bounds of the range.
func (v Range) Bounds() (lo, hi int64) { return v.lo, v.hi }

// Known returns the mask of known bits and their values.
func (v BitMask) Known() (known, ones uint64) { return v.known, v.ones }

// Bits returns a copy of the per-bit provenance, least significant first.
func (v BitTracker) Bits() []Bit {
	return append([]Bit(nil), v.bits...)
}

// Values returns a copy of the enumerated raw values.
func (v Set) Values() []int64 {
	return append([]int64(nil), v.vals...)
}

type elementFactory struct{}

// Elements is the factory of abstract values. Every constructor returns
// the normalized representation, so a value denoting a single concrete
// value is always a Const.
func Elements() elementFactory {
	return elementFactory{}
}

func (elementFactory) Top() Value {
	return Top{}
}

func (elementFactory) Unknown(t *itypes.Type) Value {
	return Unknown{t}
}

// Const wraps v to the width of t.
func (elementFactory) Const(t *itypes.Type, v int64) Value {
	return Const{t, t.Wrap(v)}
}

func (elementFactory) Bool(b bool) Value {
	if b {
		return Const{itypes.Bool, 1}
	}
	return Const{itypes.Bool, 0}
}

// Range constructs the interval [lo, hi] of raw values ordered by t.
func (elementFactory) Range(t *itypes.Type, lo, hi int64) Value {
	lo, hi = t.Wrap(lo), t.Wrap(hi)
	if t.Cmp(lo, hi) > 0 {
		panic(fmt.Errorf("%w: empty range %d..%d of %s", errInternal, lo, hi, t))
	}
	return normRange(t, lo, hi)
}

func (elementFactory) BitMask(t *itypes.Type, known, ones uint64) Value {
	return normMask(t, known, ones)
}

// Bits constructs a value from per-bit provenance, least significant bit
// first. Missing high bits are zero.
func (elementFactory) Bits(t *itypes.Type, bits []Bit) Value {
	bs := make([]Bit, t.Bits())
	copy(bs, bits)
	return normBits(t, bs)
}

// Set enumerates the given raw values. Sets exceeding the enumeration cap
// widen to their hull.
func (elementFactory) Set(t *itypes.Type, vals ...int64) Value {
	return newSet(t, vals)
}

// Fresh creates a value whose bits are all tied to a new origin.
func (elementFactory) Fresh(t *itypes.Type, o *Origins) Value {
	id := o.Fresh()
	bits := make([]Bit, t.Bits())
	for i := range bits {
		bits[i] = symBit(id, uint8(i))
	}
	return BitTracker{t, bits}
}

func normRange(t *itypes.Type, lo, hi int64) Value {
	switch {
	case lo == hi:
		return Const{t, lo}
	case lo == t.Min() && hi == t.Max():
		return Unknown{t}
	}
	return Range{t, lo, hi}
}

func normMask(t *itypes.Type, known, ones uint64) Value {
	known &= t.Mask()
	ones &= known
	unk := t.Mask() &^ known
	switch {
	case unk == 0:
		return Const{t, t.Wrap(int64(ones))}
	case known == 0:
		return Unknown{t}
	case unk&(unk+1) == 0:
		// Only a low block is unknown: the values are contiguous.
		lo, hi := maskBounds(t, known, ones)
		return normRange(t, lo, hi)
	}
	return BitMask{t, known, ones}
}

func normBits(t *itypes.Type, bits []Bit) Value {
	var known, ones uint64
	tracked := false
	for i, b := range bits {
		switch b.kind {
		case bitZero:
			known |= 1 << i
		case bitOne:
			known |= 1 << i
			ones |= 1 << i
		case bitSym:
			tracked = true
		}
	}
	if !tracked {
		return normMask(t, known, ones)
	}
	return BitTracker{t, bits}
}

func newSet(t *itypes.Type, vals []int64) Value {
	if len(vals) == 0 {
		panic(fmt.Errorf("%w: empty set of %s", errInternal, t))
	}
	vs := make([]int64, len(vals))
	for i, v := range vals {
		vs[i] = t.Wrap(v)
	}
	sort.Slice(vs, func(i, j int) bool { return t.Cmp(vs[i], vs[j]) < 0 })
	n := 1
	for i := 1; i < len(vs); i++ {
		if vs[i] != vs[n-1] {
			vs[n] = vs[i]
			n++
		}
	}
	vs = vs[:n]

	lo, hi := vs[0], vs[n-1]
	if n > setCap() || uint64(hi-lo) == uint64(n-1) {
		// Contiguous or oversized enumerations are ranges.
		return normRange(t, lo, hi)
	}
	return Set{t, vs}
}

// Equal checks whether two values denote the same abstract value. Values
// are normalized on construction, so a representation denoting a single
// value equals the corresponding Const.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case Top:
		_, ok := b.(Top)
		return ok
	case Unknown:
		b, ok := b.(Unknown)
		return ok && a.typ == b.typ
	case Const:
		b, ok := b.(Const)
		return ok && a.typ == b.typ && a.v == b.v
	case Range:
		b, ok := b.(Range)
		return ok && a.typ == b.typ && a.lo == b.lo && a.hi == b.hi
	case BitMask:
		b, ok := b.(BitMask)
		return ok && a.typ == b.typ && a.known == b.known && a.ones == b.ones
	case BitTracker:
		b, ok := b.(BitTracker)
		if !ok || a.typ != b.typ {
			return false
		}
		for i := range a.bits {
			if a.bits[i] != b.bits[i] {
				return false
			}
		}
		return true
	case Set:
		b, ok := b.(Set)
		if !ok || a.typ != b.typ || len(a.vals) != len(b.vals) {
			return false
		}
		for i := range a.vals {
			if a.vals[i] != b.vals[i] {
				return false
			}
		}
		return true
	}
	return false
}

// IsConst checks whether v is a concrete value.
func IsConst(v Value) bool {
	_, ok := v.(Const)
	return ok
}

// AsBool returns the truth value of a concrete boolean.
func AsBool(v Value) (b, ok bool) {
	c, ok := v.(Const)
	if !ok {
		return false, false
	}
	return c.v != 0, true
}

func literal(t *itypes.Type, v int64) string {
	return Const{t, v}.Literal()
}

func (Top) String() string {
	return colorize.Element("⊤")
}

func (v Unknown) String() string {
	return colorize.Type(v.typ) + colorize.Unknown("(?)")
}

func (v Const) String() string {
	return colorize.Const(v.Literal())
}

func (v Range) String() string {
	return colorize.Type(v.typ) + "[" +
		colorize.Const(literal(v.typ, v.lo)) + ".." +
		colorize.Const(literal(v.typ, v.hi)) + "]"
}

func (v BitMask) String() string {
	var sb strings.Builder
	for i := int(v.typ.Bits()) - 1; i >= 0; i-- {
		switch {
		case v.known>>i&1 == 0:
			sb.WriteString(colorize.Unknown("?"))
		case v.ones>>i&1 == 1:
			sb.WriteString("1")
		default:
			sb.WriteString("0")
		}
	}
	return colorize.Type(v.typ) + "(0b" + sb.String() + ")"
}

func (v BitTracker) String() string {
	return colorize.Type(v.typ) + "(" + formatBits(v.bits) + ")"
}

func (v Set) String() string {
	strs := make([]string, len(v.vals))
	for i, x := range v.vals {
		strs[i] = colorize.Const(literal(v.typ, x))
	}
	return colorize.Type(v.typ) + "{" + strings.Join(strs, ", ") + "}"
}
