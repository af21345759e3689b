package eval

import (
	"github.com/pkg/errors"

	"github.com/zed-0xff/cs-reflow-sub000/analysis/ir"
	"github.com/zed-0xff/cs-reflow-sub000/analysis/itypes"
	L "github.com/zed-0xff/cs-reflow-sub000/analysis/lattice"
)

// degrade replaces the result of a failed operation by an unknown value of
// type t. Domain errors are hard and are passed on.
func degrade(v L.Value, err error) func(t *itypes.Type) (L.Value, error) {
	return func(t *itypes.Type) (L.Value, error) {
		if err == nil {
			return v, nil
		}
		var de *L.DomainError
		if errors.As(err, &de) {
			return nil, err
		}
		if t == nil {
			return elem.Top(), nil
		}
		return elem.Unknown(t), nil
	}
}

// narrow converts v to the declared type t, or gives up to Unknown(t).
func narrow(v L.Value, t *itypes.Type) L.Value {
	if t == nil || v == nil {
		return v
	}
	res, err := L.Cast(v, t)
	if err != nil {
		return elem.Unknown(t)
	}
	return res
}

// truth reinterprets v as the result of a logical operator.
func truth(v L.Value) L.Value {
	if v.Type() == itypes.Bool {
		return v
	}
	return elem.Unknown(itypes.Bool)
}

func unaryType(op ir.UnOp, x L.Value) *itypes.Type {
	t := x.Type()
	switch {
	case t == nil:
		return nil
	case op == ir.OpLNot:
		return itypes.Bool
	case op == ir.OpNeg && t.Fixed() == itypes.Uint32:
		return itypes.Int64
	}
	return itypes.UnaryPromote(t)
}

// binaryType is the type of `x op y` after promotion.
func binaryType(op ir.BinOp, x, y L.Value) *itypes.Type {
	if op.IsComparison() {
		return itypes.Bool
	}
	xt, yt := x.Type(), y.Type()
	switch {
	case xt == nil || yt == nil:
		return nil
	case op == ir.OpShl || op == ir.OpShr || op == ir.OpShrUn:
		return itypes.UnaryPromote(xt)
	}
	return itypes.Common(itypes.Operand{Type: xt}, itypes.Operand{Type: yt})
}
