package lattice

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/zed-0xff/cs-reflow-sub000/analysis/itypes"
)

type bitKind uint8

const (
	bitZero bitKind = iota
	bitOne
	// Unknown and unrelated to any other bit.
	bitUnknown
	// Equal to bit index of origin, negated if neg is set.
	bitSym
)

// Bit is the provenance of one bit of a BitTracker.
type Bit struct {
	kind   bitKind
	neg    bool
	index  uint8
	origin uint64
}

var (
	zeroBit = Bit{kind: bitZero}
	oneBit  = Bit{kind: bitOne}
	unkBit  = Bit{kind: bitUnknown}
)

func constBit(b bool) Bit {
	if b {
		return oneBit
	}
	return zeroBit
}

func symBit(origin uint64, index uint8) Bit {
	return Bit{kind: bitSym, origin: origin, index: index}
}

// Origin returns the origin id and bit index of a tracked bit.
func (b Bit) Origin() (origin uint64, index uint8, neg, ok bool) {
	return b.origin, b.index, b.neg, b.kind == bitSym
}

func (b Bit) isConst() bool {
	return b.kind == bitZero || b.kind == bitOne
}

func (b Bit) not() Bit {
	switch b.kind {
	case bitZero:
		return oneBit
	case bitOne:
		return zeroBit
	case bitSym:
		b.neg = !b.neg
	}
	return b
}

// same checks whether both bits provably hold the same value.
func (b Bit) same(o Bit) bool {
	if b.kind == bitUnknown || o.kind == bitUnknown {
		return false
	}
	return b == o
}

// opposite checks whether both bits provably hold different values.
func (b Bit) opposite(o Bit) bool {
	if b.kind == bitUnknown || o.kind == bitUnknown {
		return false
	}
	return b == o.not()
}

func (b Bit) String() string {
	switch b.kind {
	case bitZero:
		return "0"
	case bitOne:
		return "1"
	case bitUnknown:
		return "?"
	}
	s := fmt.Sprintf("#%d.%d", b.origin, b.index)
	if b.neg {
		s = "~" + s
	}
	return s
}

// Origins allocates origin ids. Every trace attempt owns one, so ids are
// deterministic for a given hint assignment.
type Origins struct {
	next uint64
}

func NewOrigins() *Origins {
	return &Origins{}
}

// Fresh returns a new origin id.
func (o *Origins) Fresh() uint64 {
	o.next++
	return o.next
}

func bitAnd(a, b Bit) Bit {
	switch {
	case a.kind == bitZero || b.kind == bitZero:
		return zeroBit
	case a.kind == bitOne:
		return b
	case b.kind == bitOne:
		return a
	case a.same(b):
		return a
	case a.opposite(b):
		return zeroBit
	}
	return unkBit
}

func bitOr(a, b Bit) Bit {
	switch {
	case a.kind == bitOne || b.kind == bitOne:
		return oneBit
	case a.kind == bitZero:
		return b
	case b.kind == bitZero:
		return a
	case a.same(b):
		return a
	case a.opposite(b):
		return oneBit
	}
	return unkBit
}

func bitXor(a, b Bit) Bit {
	switch {
	case a.kind == bitZero:
		return b
	case b.kind == bitZero:
		return a
	case a.kind == bitOne:
		return b.not()
	case b.kind == bitOne:
		return a.not()
	case a.same(b):
		return zeroBit
	case a.opposite(b):
		return oneBit
	}
	return unkBit
}

// fullAdd adds three bits symbolically. The flag is false if the sum or
// the carry cannot be expressed as a single bit.
func fullAdd(x, y, z Bit) (sum, carry Bit, ok bool) {
	ones := 0
	var syms []Bit
	for _, b := range [...]Bit{x, y, z} {
		switch b.kind {
		case bitOne:
			ones++
		case bitZero:
		default:
			syms = append(syms, b)
		}
	}
	// A bit and its complement contribute exactly one.
	for i := 0; i < len(syms); i++ {
		for j := i + 1; j < len(syms); j++ {
			if syms[i].opposite(syms[j]) {
				ones++
				syms = append(syms[:j], syms[j+1:]...)
				syms = append(syms[:i], syms[i+1:]...)
				i = -1
				break
			}
		}
	}

	switch len(syms) {
	case 0:
		return constBit(ones&1 == 1), constBit(ones >= 2), true
	case 1:
		s := syms[0]
		switch ones {
		case 0:
			return s, zeroBit, true
		case 1:
			return s.not(), s, true
		case 2:
			return s, oneBit, true
		}
	case 2:
		if syms[0].same(syms[1]) {
			// s + s = 2s
			return constBit(ones == 1), syms[0], true
		}
	case 3:
		if syms[0].same(syms[1]) && syms[1].same(syms[2]) {
			return syms[0], syms[0], true
		}
	}
	return unkBit, unkBit, false
}

// addBits is the symbolic ripple-carry adder. Once a position cannot be
// decided, it and every more significant position become unknown.
func addBits(a, b []Bit, carry Bit) []Bit {
	out := make([]Bit, len(a))
	for i := range a {
		s, c, ok := fullAdd(a[i], b[i], carry)
		if !ok {
			for j := i; j < len(out); j++ {
				out[j] = unkBit
			}
			break
		}
		out[i], carry = s, c
	}
	return out
}

func notBits(a []Bit) []Bit {
	out := make([]Bit, len(a))
	for i, b := range a {
		out[i] = b.not()
	}
	return out
}

func zeroBits(n int) []Bit {
	out := make([]Bit, n)
	for i := range out {
		out[i] = zeroBit
	}
	return out
}

func mapBits(a, b []Bit, f func(Bit, Bit) Bit) []Bit {
	out := make([]Bit, len(a))
	for i := range a {
		out[i] = f(a[i], b[i])
	}
	return out
}

// shlBits shifts towards the most significant bit, filling with zeros.
func shlBits(a []Bit, k uint) []Bit {
	out := make([]Bit, len(a))
	for i := range out {
		if uint(i) < k {
			out[i] = zeroBit
		} else {
			out[i] = a[uint(i)-k]
		}
	}
	return out
}

// shrBits shifts towards the least significant bit, filling with the sign
// bit if arith is set and with zeros otherwise.
func shrBits(a []Bit, k uint, arith bool) []Bit {
	fill := zeroBit
	if arith {
		fill = a[len(a)-1]
	}
	out := make([]Bit, len(a))
	for i := range out {
		if uint(i)+k < uint(len(a)) {
			out[i] = a[uint(i)+k]
		} else {
			out[i] = fill
		}
	}
	return out
}

// mulBitsConst multiplies by a constant through shift-and-add over the
// set bits of c, or of -c followed by a negation if that is shorter.
func mulBitsConst(a []Bit, c uint64, width uint) []Bit {
	mask := uint64(1)<<width - 1
	if width == 64 {
		mask = ^uint64(0)
	}
	c &= mask
	neg := -c & mask
	negate := bits.OnesCount64(neg) < bits.OnesCount64(c)
	if negate {
		c = neg
	}

	acc := zeroBits(len(a))
	for j := uint(0); j < width; j++ {
		if c>>j&1 == 1 {
			acc = addBits(acc, shlBits(a, j), zeroBit)
		}
	}
	if negate {
		acc = addBits(zeroBits(len(a)), notBits(acc), oneBit)
	}
	return acc
}

// toBits describes every bit of v, which must already have type t.
func toBits(v Value) ([]Bit, bool) {
	t := v.Type()
	if t == nil {
		return nil, false
	}
	n := int(t.Bits())
	fromMask := func(known, ones uint64) []Bit {
		out := make([]Bit, n)
		for i := range out {
			switch {
			case known>>i&1 == 0:
				out[i] = unkBit
			default:
				out[i] = constBit(ones>>i&1 == 1)
			}
		}
		return out
	}

	switch v := v.(type) {
	case Const:
		return fromMask(t.Mask(), uint64(v.v)), true
	case BitMask:
		return fromMask(v.known, v.ones), true
	case BitTracker:
		return v.bits, true
	case Unknown:
		return fromMask(0, 0), true
	case Range:
		// Values of a range not crossing zero share the bit prefix of its
		// bounds. Ranges crossing zero differ in the sign bit, so the
		// prefix is empty.
		lo, hi := uint64(v.lo)&t.Mask(), uint64(v.hi)&t.Mask()
		diff := lo ^ hi
		var known uint64
		for i := n - 1; i >= 0 && diff>>i&1 == 0; i-- {
			known |= 1 << i
		}
		return fromMask(known, lo&known), true
	case Set:
		and, or := t.Mask(), uint64(0)
		for _, x := range v.vals {
			and &= uint64(x)
			or |= uint64(x)
		}
		// Bits set in all values or clear in all values are known.
		known := (and | ^or) & t.Mask()
		return fromMask(known, and), true
	}
	return nil, false
}

// freeBits lists the independent unknowns of a bit vector: one entry per
// untracked bit and one per distinct tracked origin bit.
func freeBits(bits []Bit) int {
	type key struct {
		origin uint64
		index  uint8
	}
	seen := map[key]bool{}
	n := 0
	for _, b := range bits {
		switch b.kind {
		case bitUnknown:
			n++
		case bitSym:
			k := key{b.origin, b.index}
			if !seen[k] {
				seen[k] = true
				n++
			}
		}
	}
	return n
}

// enumerateBits produces every raw value a bit vector may take.
func enumerateBits(t *itypes.Type, bits []Bit) []int64 {
	type key struct {
		origin uint64
		index  uint8
	}
	// Assign a variable to every independent unknown.
	vars := make([]uint, len(bits))
	seen := map[key]uint{}
	next := uint(0)
	for i, b := range bits {
		switch b.kind {
		case bitUnknown:
			vars[i] = next
			next++
		case bitSym:
			k := key{b.origin, b.index}
			if j, ok := seen[k]; ok {
				vars[i] = j
			} else {
				seen[k] = next
				vars[i] = next
				next++
			}
		}
	}

	out := make([]int64, 0, 1<<next)
	for assign := uint64(0); assign < 1<<next; assign++ {
		var x uint64
		for i, b := range bits {
			var one bool
			switch b.kind {
			case bitOne:
				one = true
			case bitUnknown:
				one = assign>>vars[i]&1 == 1
			case bitSym:
				one = (assign>>vars[i]&1 == 1) != b.neg
			}
			if one {
				x |= 1 << i
			}
		}
		out = append(out, t.Wrap(int64(x)))
	}
	return out
}

// formatBits renders bits most significant first, compressing runs of
// consecutive bits of the same origin.
func formatBits(bits []Bit) string {
	var parts []string
	for i := len(bits) - 1; i >= 0; {
		b := bits[i]
		j := i
		switch b.kind {
		case bitSym:
			for j > 0 {
				n := bits[j-1]
				if n.kind != bitSym || n.origin != b.origin || n.neg != b.neg || n.index+1 != bits[j].index {
					break
				}
				j--
			}
			s := fmt.Sprintf("#%d", b.origin)
			if i == j {
				s += fmt.Sprintf(".%d", b.index)
			} else {
				s += fmt.Sprintf("[%d:%d]", b.index, bits[j].index)
			}
			if b.neg {
				s = "~" + s
			}
			parts = append(parts, colorize.Origin(s))
		default:
			var sb strings.Builder
			for ; j >= 0 && bits[j].kind != bitSym; j-- {
				sb.WriteString(bits[j].String())
			}
			j++
			parts = append(parts, sb.String())
		}
		i = j - 1
	}
	return strings.Join(parts, "|")
}
