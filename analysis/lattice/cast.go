package lattice

import (
	"github.com/zed-0xff/cs-reflow-sub000/analysis/itypes"
)

// Cast converts v to t. Narrowing truncates and sign-extends from the new
// top bit when t is signed; widening extends per the signedness of the
// source. Conversions between booleans and integers are unsupported.
func Cast(v Value, t *itypes.Type) (Value, error) {
	if isTop(v) {
		return Unknown{t}, nil
	}
	if v.Type().IsBool() != t.IsBool() {
		return nil, unsupported("cast to "+t.String(), v)
	}
	return convert(v, t), nil
}

// convert is Cast between integer types.
func convert(v Value, t *itypes.Type) Value {
	from := v.Type()
	if from == t || from == nil {
		return v
	}

	switch v := v.(type) {
	case Const:
		return Const{t, t.Wrap(v.v)}
	case Set:
		// Raw values are already sign- or zero-extended.
		return newSet(t, v.vals)
	case Unknown, Range:
		lo, hi := bigBounds(v)
		if r, ok := fitRange(t, lo, hi); ok {
			return r
		}
		// Ranges straddling the wrap-around point split in two.
		if vals, err := Values(v); err == nil {
			return newSet(t, vals)
		}
		return Unknown{t}
	}

	// Bit vectors keep their low bits and extend from the source top bit.
	bs, _ := toBits(v)
	out := make([]Bit, t.Bits())
	for i := range out {
		switch {
		case i < len(bs):
			out[i] = bs[i]
		case from.Signed():
			out[i] = bs[len(bs)-1]
		default:
			out[i] = zeroBit
		}
	}
	res := normBits(t, out)

	// A mask whose values fit t keeps its bounds.
	if _, ok := v.(BitMask); ok {
		lo, hi := bigBounds(v)
		if r, ok := fitRange(t, lo, hi); ok {
			return refine(res, r)
		}
	}
	return res
}
