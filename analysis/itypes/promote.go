package itypes

// Operand describes one side of a binary operation for promotion.
// Const and Value are set when the operand is a known constant.
type Operand struct {
	Type  *Type
	Const bool
	Value int64
}

// Promote computes the binary promotion of two operands. The returned
// types are the types each operand must be converted to, or nil if the
// operand keeps its type. Booleans and mismatched non-numeric operands
// are never promoted.
//
// The tie-break order is:
//
//	uint64 dominates
//	else int64 dominates
//	else uint32 vs. a signed operand of at most 32 bits gives int64,
//	  unless the signed operand is a non-negative constant fitting uint32,
//	  in which case uint32
//	else uint32 dominates
//	else both become int32
func Promote(l, r Operand) (lt, rt *Type) {
	if l.Type == nil || r.Type == nil || l.Type.IsBool() || r.Type.IsBool() {
		return nil, nil
	}

	target := common(l, r)

	if l.Type != target {
		lt = target
	}
	if r.Type != target {
		rt = target
	}
	return
}

// Common returns the type both operands are promoted to.
func Common(l, r Operand) *Type {
	if l.Type == nil || r.Type == nil {
		return nil
	}
	if l.Type.IsBool() && r.Type.IsBool() {
		return Bool
	}
	return common(l, r)
}

func common(l, r Operand) *Type {
	lf, rf := l.Type.Fixed(), r.Type.Fixed()

	switch {
	case lf == Uint64 || rf == Uint64:
		return Uint64
	case lf == Int64 || rf == Int64:
		return Int64
	case lf == Uint32 && rf == Uint32:
		return Uint32
	case lf == Uint32:
		return uint32Against(r)
	case rf == Uint32:
		return uint32Against(l)
	}
	return Int32
}

// uint32Against resolves uint32 against the other operand o.
func uint32Against(o Operand) *Type {
	if !o.Type.Signed() {
		return Uint32
	}
	if o.Const && o.Value >= 0 && o.Value <= int64(Uint32.max) {
		return Uint32
	}
	return Int64
}

// UnaryPromote lifts types narrower than int32 to int32, as done for
// the operand of unary operators and the left operand of shifts.
func UnaryPromote(t *Type) *Type {
	if t == nil || t.IsBool() {
		return t
	}
	f := t.Fixed()
	if f.bits < 32 {
		return Int32
	}
	return f
}
