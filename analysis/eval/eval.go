// Package eval computes the abstract values of expressions and simple
// statements against a variable environment.
package eval

import (
	"github.com/hashicorp/go-set/v3"
	"github.com/pkg/errors"

	"github.com/zed-0xff/cs-reflow-sub000/analysis/env"
	"github.com/zed-0xff/cs-reflow-sub000/analysis/ir"
	"github.com/zed-0xff/cs-reflow-sub000/analysis/itypes"
	L "github.com/zed-0xff/cs-reflow-sub000/analysis/lattice"
)

var elem = L.Elements()

// Access records the variables read and written while evaluating a node.
type Access struct {
	Reads  *set.Set[string]
	Writes *set.Set[string]
	// A call with unknown effects was evaluated.
	Calls bool
}

func NewAccess() Access {
	return Access{
		Reads:  set.New[string](0),
		Writes: set.New[string](0),
	}
}

// Merge returns the union of the accesses of a and o. Neither is
// modified, and zero accesses are treated as empty.
func (a Access) Merge(o Access) Access {
	res := NewAccess()
	for _, acc := range []Access{a, o} {
		if acc.Reads != nil {
			res.Reads.InsertSet(acc.Reads)
		}
		if acc.Writes != nil {
			res.Writes.InsertSet(acc.Writes)
		}
		res.Calls = res.Calls || acc.Calls
	}
	return res
}

// Evaluator evaluates the nodes of one trace attempt. Fresh values draw
// their origins from a single source, so replaying an attempt yields the
// same values.
type Evaluator struct {
	origins *L.Origins
	acc     Access
}

func New(origins *L.Origins) *Evaluator {
	if origins == nil {
		origins = L.NewOrigins()
	}
	return &Evaluator{origins: origins, acc: NewAccess()}
}

// Origins returns the origin source of the evaluator.
func (ev *Evaluator) Origins() *L.Origins {
	return ev.origins
}

// Expr evaluates e. The returned environment reflects the assignments
// performed by e. Only domain errors are returned: unsupported operations
// degrade to an unknown value of the expected type.
func (ev *Evaluator) Expr(e ir.Expr, en env.Env) (L.Value, Access, env.Env, error) {
	ev.acc = NewAccess()
	v, en, err := ev.expr(e, en)
	return v, ev.acc, en, err
}

// Stmt evaluates a declaration or an expression statement.
func (ev *Evaluator) Stmt(s ir.Stmt, en env.Env) (L.Value, Access, env.Env, error) {
	ev.acc = NewAccess()

	var (
		v   L.Value
		err error
	)
	switch s := s.(type) {
	case *ir.Decl:
		v, en, err = ev.decl(s, en)
	case *ir.ExprStmt:
		v, en, err = ev.expr(s.X, en)
	default:
		err = errors.Errorf("%T is not a simple statement", s)
	}
	return v, ev.acc, en, err
}

func (ev *Evaluator) decl(d *ir.Decl, en env.Env) (L.Value, env.Env, error) {
	if d.Init == nil {
		ev.acc.Writes.Insert(d.Name)
		// Re-declarations of merged code keep the value of the first one.
		if v, ok := en.Value(d.Name); ok {
			return v, en, nil
		}
		v := elem.Unknown(d.Type)
		return v, en.Set(d.Name, v), nil
	}

	v, en, err := ev.expr(d.Init, en)
	if err != nil {
		return nil, en, err
	}
	ev.acc.Writes.Insert(d.Name)
	v = narrow(v, d.Type)
	return v, en.Set(d.Name, v), nil
}

func (ev *Evaluator) expr(e ir.Expr, en env.Env) (L.Value, env.Env, error) {
	switch e := e.(type) {
	case *ir.Lit:
		return e.Value, en, nil
	case *ir.Paren:
		return ev.expr(e.X, en)
	case *ir.Ident:
		return ev.read(e.Name, en)
	case *ir.Unary:
		return ev.unary(e, en)
	case *ir.Binary:
		return ev.binary(e, en)
	case *ir.Assign:
		rhs, en, err := ev.expr(e.Value, en)
		if err != nil {
			return nil, en, err
		}
		return ev.store(e.Target, e.Op, rhs, en)
	case *ir.IncDec:
		op := ir.OpAdd
		if !e.Inc {
			op = ir.OpSub
		}
		return ev.store(e.Target, op, elem.Const(itypes.Int32, 1), en)
	case *ir.Cast:
		x, en, err := ev.expr(e.X, en)
		if err != nil {
			return nil, en, err
		}
		v, err := degrade(L.Cast(x, e.Type))(e.Type)
		return v, en, err
	case *ir.Call:
		for _, arg := range e.Args {
			var err error
			if _, en, err = ev.expr(arg, en); err != nil {
				return nil, en, err
			}
		}
		ev.acc.Calls = true
		return elem.Top(), en, nil
	case *ir.Cond:
		return ev.cond(e, en)
	}
	return elem.Top(), en, nil
}

// read looks up a variable. Unknown integers are replaced by a fresh
// tracked value on first read, so that later uses of the same variable
// can be related to each other.
func (ev *Evaluator) read(name string, en env.Env) (L.Value, env.Env, error) {
	ev.acc.Reads.Insert(name)
	v, ok := en.Value(name)
	if !ok {
		return elem.Top(), en, nil
	}
	if u, ok := v.(L.Unknown); ok && !u.Type().IsBool() {
		v = elem.Fresh(u.Type(), ev.origins)
		en = en.Set(name, v)
	}
	return v, en, nil
}

// store performs `target op= rhs`, or `target = rhs` if op is OpNone.
// The stored value is narrowed to the type of the existing binding.
func (ev *Evaluator) store(target string, op ir.BinOp, rhs L.Value, en env.Env) (L.Value, env.Env, error) {
	t := rhs.Type()
	if cur, ok := en.Value(target); ok && cur.Type() != nil {
		t = cur.Type()
	}

	v := rhs
	if op != ir.OpNone {
		var (
			x   L.Value
			err error
		)
		x, en, _ = ev.read(target, en)
		if v, err = degrade(binops[op](x, rhs))(t); err != nil {
			return nil, en, err
		}
	}

	ev.acc.Writes.Insert(target)
	v = narrow(v, t)
	return v, en.Set(target, v), nil
}

func (ev *Evaluator) unary(e *ir.Unary, en env.Env) (L.Value, env.Env, error) {
	x, en, err := ev.expr(e.X, en)
	if err != nil {
		return nil, en, err
	}

	var v L.Value
	switch e.Op {
	case ir.OpNeg:
		v, err = L.Negate(x)
	case ir.OpNot:
		v, err = L.Not(x)
	case ir.OpLNot:
		v, err = L.LogicalNot(x)
	case ir.OpPlus:
		v = x
		if t := x.Type(); t != nil {
			v, err = L.Cast(x, itypes.UnaryPromote(t))
		}
	}
	v, err = degrade(v, err)(unaryType(e.Op, x))
	return v, en, err
}

var binops = map[ir.BinOp]func(a, b L.Value) (L.Value, error){
	ir.OpAdd:    L.Add,
	ir.OpSub:    L.Sub,
	ir.OpMul:    L.Mul,
	ir.OpDiv:    L.Div,
	ir.OpMod:    L.Mod,
	ir.OpAnd:    L.And,
	ir.OpOr:     L.Or,
	ir.OpXor:    L.Xor,
	ir.OpAndNot: L.AndNot,
	ir.OpShl:    L.ShiftLeft,
	ir.OpShr:    L.ShiftRightSigned,
	ir.OpShrUn:  L.ShiftRightUnsigned,
	ir.OpEq:     L.Eq,
	ir.OpNe:     L.Ne,
	ir.OpLt:     L.Lt,
	ir.OpGt:     L.Gt,
	ir.OpLe:     L.Le,
	ir.OpGe:     L.Ge,
}

func (ev *Evaluator) binary(e *ir.Binary, en env.Env) (L.Value, env.Env, error) {
	if e.Op == ir.OpLAnd || e.Op == ir.OpLOr {
		return ev.logical(e, en)
	}

	x, en, err := ev.expr(e.X, en)
	if err != nil {
		return nil, en, err
	}
	y, en, err := ev.expr(e.Y, en)
	if err != nil {
		return nil, en, err
	}

	// x never equals its own complement, whatever is known about x.
	if (e.Op == ir.OpEq || e.Op == ir.OpNe) && complements(e.X, e.Y) {
		return elem.Bool(e.Op == ir.OpNe), en, nil
	}

	op, ok := binops[e.Op]
	if !ok {
		return nil, en, errors.Errorf("unknown operator %v", e.Op)
	}
	v, err := degrade(op(x, y))(binaryType(e.Op, x, y))
	return v, en, err
}

// logical evaluates && and || with short-circuiting. When the left operand
// is undecided, the right operand only runs on some paths and its effects
// are joined with the skipped path.
func (ev *Evaluator) logical(e *ir.Binary, en env.Env) (L.Value, env.Env, error) {
	// The left value that decides the outcome on its own.
	short := e.Op == ir.OpLOr

	x, en, err := ev.expr(e.X, en)
	if err != nil {
		return nil, en, err
	}
	xb, xok := L.AsBool(x)
	if xok && xb == short {
		return elem.Bool(short), en, nil
	}

	y, yen, err := ev.expr(e.Y, en)
	var de *L.DomainError
	switch {
	case err != nil && !xok && errors.As(err, &de):
		// The left operand may guard the right one, as in b != 0 && a/b > 1.
		return elem.Unknown(itypes.Bool), havoc(e.Y, en), nil
	case err != nil:
		return nil, en, err
	}
	if xok {
		return truth(y), yen, nil
	}

	yen = en.Join(yen)
	if yb, ok := L.AsBool(y); ok && yb == short {
		return elem.Bool(short), yen, nil
	}
	return elem.Unknown(itypes.Bool), yen, nil
}

// havoc forgets the variables assigned by e.
func havoc(e ir.Expr, en env.Env) env.Env {
	ir.Inspect(e, func(n ir.Node) bool {
		var target string
		switch n := n.(type) {
		case *ir.Assign:
			target = n.Target
		case *ir.IncDec:
			target = n.Target
		default:
			return true
		}
		if v, ok := en.Value(target); ok && v.Type() != nil {
			en = en.Set(target, elem.Unknown(v.Type()))
		}
		return true
	})
	return en
}

func (ev *Evaluator) cond(e *ir.Cond, en env.Env) (L.Value, env.Env, error) {
	c, en, err := ev.expr(e.Cond, en)
	if err != nil {
		return nil, en, err
	}
	if b, ok := L.AsBool(c); ok {
		if b {
			return ev.expr(e.Then, en)
		}
		return ev.expr(e.Else, en)
	}

	tv, ten, err := ev.expr(e.Then, en)
	if err != nil {
		return nil, en, err
	}
	fv, fen, err := ev.expr(e.Else, en)
	if err != nil {
		return nil, en, err
	}
	return L.Join(tv, fv), ten.Join(fen), nil
}

// complements checks whether one operand is the bitwise complement of the
// other, side-effect free, operand.
func complements(a, b ir.Expr) bool {
	a, b = ir.Unparen(a), ir.Unparen(b)
	check := func(a, b ir.Expr) bool {
		u, ok := a.(*ir.Unary)
		return ok && u.Op == ir.OpNot && pure(b) && ir.Equal(ir.Unparen(u.X), b)
	}
	return check(a, b) || check(b, a)
}

// pure checks that evaluating e changes nothing.
func pure(e ir.Expr) bool {
	res := true
	ir.Inspect(e, func(n ir.Node) bool {
		switch n.(type) {
		case *ir.Assign, *ir.IncDec, *ir.Call:
			res = false
		}
		return res
	})
	return res
}
