// Package itypes catalogs the primitive integer, boolean and character
// types known to the engine, and the binary promotion rules used before
// any arithmetic is performed.
package itypes

import (
	"fmt"
	"math"
	"math/big"
	"sync"
)

// Type is an immutable primitive type descriptor. Values of a type are
// carried around as raw int64 bit patterns: for uint64 the raw value is
// the two's complement reinterpretation of the logical value.
type Type struct {
	name   string
	bits   uint
	signed bool
	min    int64
	max    int64
	mask   uint64
	// Platform-word types (int, uint, uintptr) point to their fixed-width
	// representation.
	fixed *Type
}

func mk(name string, bits uint, signed bool) *Type {
	t := &Type{name: name, bits: bits, signed: signed}
	if bits == 64 {
		t.mask = math.MaxUint64
	} else {
		t.mask = 1<<bits - 1
	}
	switch {
	case signed:
		t.min = -1 << (bits - 1)
		t.max = 1<<(bits-1) - 1
	case bits == 64:
		t.min = 0
		t.max = -1 // raw pattern of MaxUint64
	default:
		t.min = 0
		t.max = int64(t.mask)
	}
	t.fixed = t
	return t
}

var (
	Bool   = mk("bool", 1, false)
	Int8   = mk("int8", 8, true)
	Uint8  = mk("uint8", 8, false)
	Int16  = mk("int16", 16, true)
	Uint16 = mk("uint16", 16, false)
	Char   = mk("char", 16, false)
	Int32  = mk("int32", 32, true)
	Uint32 = mk("uint32", 32, false)
	Int64  = mk("int64", 64, true)
	Uint64 = mk("uint64", 64, false)

	// Platform-word types, parameterized by the pointer width.
	Int, Uint, Uintptr = words(64)
)

// Filled before any init function runs: package level variables may call
// Lookup.
var (
	mu           sync.RWMutex
	pointerWidth uint = 64
	registry          = newRegistry()
)

func words(bits uint) (i, u, uptr *Type) {
	word := func(name string, signed bool) *Type {
		t := mk(name, bits, signed)
		switch {
		case bits == 32 && signed:
			t.fixed = Int32
		case bits == 32:
			t.fixed = Uint32
		case signed:
			t.fixed = Int64
		default:
			t.fixed = Uint64
		}
		return t
	}
	return word("int", true), word("uint", false), word("uintptr", false)
}

func newRegistry() map[string]*Type {
	return map[string]*Type{
		"bool":    Bool,
		"int8":    Int8,
		"uint8":   Uint8,
		"byte":    Uint8,
		"int16":   Int16,
		"uint16":  Uint16,
		"char":    Char,
		"int32":   Int32,
		"rune":    Int32,
		"uint32":  Uint32,
		"int64":   Int64,
		"uint64":  Uint64,
		"int":     Int,
		"uint":    Uint,
		"uintptr": Uintptr,
	}
}

// SetPointerWidth configures the width of int, uint and uintptr.
// Only 32 and 64 are accepted.
func SetPointerWidth(bits uint) {
	if bits != 32 && bits != 64 {
		panic(fmt.Sprintf("unsupported pointer width %d", bits))
	}

	mu.Lock()
	defer mu.Unlock()

	pointerWidth = bits
	Int, Uint, Uintptr = words(bits)
	registry = newRegistry()
}

// PointerWidth returns the configured width of platform-word types.
func PointerWidth() uint {
	mu.RLock()
	defer mu.RUnlock()
	return pointerWidth
}

// Lookup finds a type by name.
func Lookup(name string) (*Type, bool) {
	mu.RLock()
	defer mu.RUnlock()
	t, ok := registry[name]
	return t, ok
}

// MustLookup is Lookup for names known to exist.
func MustLookup(name string) *Type {
	t, ok := Lookup(name)
	if !ok {
		panic(fmt.Sprintf("unknown primitive type %q", name))
	}
	return t
}

// Integers lists the eight fixed-width integer types.
func Integers() []*Type {
	return []*Type{Int8, Uint8, Int16, Uint16, Int32, Uint32, Int64, Uint64}
}

func (t *Type) Name() string   { return t.name }
func (t *Type) String() string { return t.name }
func (t *Type) Bits() uint     { return t.bits }
func (t *Type) Signed() bool   { return t.signed }
func (t *Type) Mask() uint64   { return t.mask }

// Min and Max return the raw bounds of the type.
func (t *Type) Min() int64 { return t.min }
func (t *Type) Max() int64 { return t.max }

// IsBool checks whether t is the boolean type.
func (t *Type) IsBool() bool { return t == Bool }

// Fixed returns the fixed-width representation of platform-word types,
// and t itself otherwise.
func (t *Type) Fixed() *Type { return t.fixed }

// Wrap truncates v to the width of t, sign-extending from the new top bit
// if t is signed.
func (t *Type) Wrap(v int64) int64 {
	x := uint64(v) & t.mask
	if t.signed && t.bits < 64 && x>>(t.bits-1)&1 == 1 {
		x |= ^t.mask
	}
	return int64(x)
}

// Cmp compares raw values a and b according to the signedness of t.
func (t *Type) Cmp(a, b int64) int {
	if !t.signed && t.bits == 64 {
		ua, ub := uint64(a), uint64(b)
		switch {
		case ua < ub:
			return -1
		case ua > ub:
			return 1
		}
		return 0
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Big converts the raw value v to its logical value.
func (t *Type) Big(v int64) *big.Int {
	if !t.signed && t.bits == 64 {
		return new(big.Int).SetUint64(uint64(v))
	}
	return big.NewInt(v)
}

// ContainsBig checks whether the logical value b is representable by t.
func (t *Type) ContainsBig(b *big.Int) bool {
	return b.Cmp(t.Big(t.min)) >= 0 && b.Cmp(t.Big(t.max)) <= 0
}

// FromBig converts a logical value to the raw representation of t.
// The flag is false if b is not representable.
func (t *Type) FromBig(b *big.Int) (int64, bool) {
	if !t.ContainsBig(b) {
		return 0, false
	}
	if !t.signed && t.bits == 64 {
		return int64(b.Uint64()), true
	}
	return b.Int64(), true
}

// WrapBig reduces an arbitrary logical value modulo 2^bits into t.
func (t *Type) WrapBig(b *big.Int) int64 {
	m := new(big.Int).And(b, new(big.Int).SetUint64(t.mask))
	return t.Wrap(int64(m.Uint64()))
}

// Cardinality is the number of values representable by t, i.e. 2^bits.
func (t *Type) Cardinality() *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), t.bits)
}

// Default returns the raw default (zero) value of t.
func Default(t *Type) int64 {
	return 0
}

// SizeOf returns the storage size of t in bytes.
func SizeOf(t *Type) int {
	if t.bits < 8 {
		return 1
	}
	return int(t.bits / 8)
}
