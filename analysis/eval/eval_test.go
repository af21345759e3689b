package eval

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/zed-0xff/cs-reflow-sub000/analysis/env"
	"github.com/zed-0xff/cs-reflow-sub000/analysis/ir"
	"github.com/zed-0xff/cs-reflow-sub000/analysis/itypes"
	L "github.com/zed-0xff/cs-reflow-sub000/analysis/lattice"
)

func i32(v int64) L.Value { return elem.Const(itypes.Int32, v) }

func run(t *testing.T, ev *Evaluator, en env.Env, stmts ...ir.Stmt) env.Env {
	t.Helper()
	for _, s := range stmts {
		var err error
		if _, _, en, err = ev.Stmt(s, en); err != nil {
			t.Fatalf("%s: %v", s, err)
		}
	}
	return en
}

func expectVar(t *testing.T, en env.Env, name string, expected L.Value) {
	t.Helper()
	if v, ok := en.Value(name); !ok || !L.Equal(v, expected) {
		t.Errorf("%s = %v, expected %s", name, v, expected)
	}
}

func TestDeclarations(t *testing.T) {
	b := ir.NewBuilder()
	ev := New(nil)

	en := run(t, ev, env.New(),
		b.Decl("a", itypes.Uint8, b.I32(300)),
		b.Decl("u", itypes.Int16, nil),
		b.Decl("k", itypes.Int32, b.I32(5)),
		// Re-declaration without initializer keeps the value.
		b.Decl("k", itypes.Int32, nil),
	)
	expectVar(t, en, "a", elem.Const(itypes.Uint8, 44))
	expectVar(t, en, "u", elem.Unknown(itypes.Int16))
	expectVar(t, en, "k", i32(5))
}

func TestCompoundAssignment(t *testing.T) {
	b := ir.NewBuilder()
	ev := New(nil)

	en := env.New().Set("x", i32(5)).Set("b", elem.Const(itypes.Uint8, 255))
	en = run(t, ev, en,
		b.Expr(b.OpAssign(ir.OpAdd, "x", b.I32(3))),
		b.Expr(b.OpAssign(ir.OpXor, "x", b.I32(1))),
		b.Expr(b.Inc("b")),
	)
	expectVar(t, en, "x", i32(9))
	expectVar(t, en, "b", elem.Const(itypes.Uint8, 0))

	// The target is never left stale when the operation fails.
	en = en.Set("y", elem.Unknown(itypes.Int32))
	en = run(t, ev, en, b.Expr(b.OpAssign(ir.OpDiv, "x", b.Ident("y"))))
	expectVar(t, en, "x", elem.Unknown(itypes.Int32))

	en = run(t, ev, en, b.Expr(b.OpAssign(ir.OpAdd, "x", b.Call("f"))))
	expectVar(t, en, "x", elem.Unknown(itypes.Int32))
}

func TestDivisionByZeroIsHard(t *testing.T) {
	b := ir.NewBuilder()
	en := env.New().Set("x", i32(5))

	_, _, _, err := New(nil).Stmt(b.Set("x", b.Bin(ir.OpDiv, b.Ident("x"), b.I32(0))), en)
	var de *L.DomainError
	if !errors.As(err, &de) {
		t.Errorf("expected a domain error, got %v", err)
	}
}

func TestGuardedDivision(t *testing.T) {
	b := ir.NewBuilder()
	en := env.New().
		Set("a", i32(10)).
		Set("d", elem.Range(itypes.Int32, -1, 1)).
		Set("n", i32(0))

	tests := []ir.Expr{
		// d != 0 && a/d > 1
		b.Bin(ir.OpLAnd,
			b.Bin(ir.OpNe, b.Ident("d"), b.I32(0)),
			b.Bin(ir.OpGt, b.Bin(ir.OpDiv, b.Ident("a"), b.Ident("d")), b.I32(1))),
		// d == 0 || a%d == 0
		b.Bin(ir.OpLOr,
			b.Bin(ir.OpEq, b.Ident("d"), b.I32(0)),
			b.Bin(ir.OpEq, b.Bin(ir.OpMod, b.Ident("a"), b.Ident("d")), b.I32(0))),
	}
	for _, e := range tests {
		v, _, _, err := New(nil).Expr(e, en)
		if err != nil {
			t.Fatalf("%s: %v", e, err)
		}
		if !L.Equal(v, elem.Unknown(itypes.Bool)) {
			t.Errorf("%s = %s, expected unknown", e, v)
		}
	}

	// Writes of the guarded operand are forgotten.
	e := b.Bin(ir.OpLAnd,
		b.Bin(ir.OpNe, b.Ident("d"), b.I32(0)),
		b.Bin(ir.OpGt, b.Assign("n", b.Bin(ir.OpDiv, b.Ident("a"), b.Ident("d"))), b.I32(1)))
	_, _, out, err := New(nil).Expr(e, en)
	if err != nil {
		t.Fatal(err)
	}
	expectVar(t, out, "n", elem.Unknown(itypes.Int32))

	// An unguarded division stays a hard error.
	e = b.Bin(ir.OpLAnd, b.Bool(true), b.Bin(ir.OpGt, b.Bin(ir.OpDiv, b.Ident("a"), b.Ident("d")), b.I32(1)))
	_, _, _, err = New(nil).Expr(e, en)
	var de *L.DomainError
	if !errors.As(err, &de) {
		t.Errorf("%s: expected a domain error, got %v", e, err)
	}
}

func TestComplementNeverEqual(t *testing.T) {
	for _, T := range itypes.Integers() {
		b := ir.NewBuilder()
		en := env.New().Set("x", elem.Unknown(T))

		for _, test := range []struct {
			op       ir.BinOp
			expected bool
		}{{ir.OpEq, false}, {ir.OpNe, true}} {
			e := b.Bin(test.op, b.Paren(b.Un(ir.OpNot, b.Ident("x"))), b.Ident("x"))
			v, _, _, err := New(nil).Expr(e, en)
			if err != nil {
				t.Fatal(err)
			}
			if !L.Equal(v, elem.Bool(test.expected)) {
				t.Errorf("%s with x: %s = %s, expected %t", e, T, v, test.expected)
			}
		}
	}
}

func TestFreshValuesRelateReads(t *testing.T) {
	b := ir.NewBuilder()
	ev := New(nil)

	en := env.New().Set("x", elem.Unknown(itypes.Uint16))
	en = run(t, ev, en,
		b.Decl("a", itypes.Int32, b.Bin(ir.OpXor, b.Ident("x"), b.Ident("x"))),
		b.Decl("s", itypes.Int32, b.Bin(ir.OpSub, b.Ident("x"), b.Ident("x"))),
		b.Decl("m", itypes.Int32, b.Bin(ir.OpAnd, b.Ident("x"), b.Un(ir.OpNot, b.Ident("x")))),
	)
	expectVar(t, en, "a", i32(0))
	expectVar(t, en, "s", i32(0))
	expectVar(t, en, "m", i32(0))

	if v, _ := en.Value("x"); L.Equal(v, elem.Unknown(itypes.Uint16)) {
		t.Errorf("x was not replaced by a tracked value")
	}
}

func TestShortCircuit(t *testing.T) {
	b := ir.NewBuilder()
	en := env.New().Set("c", elem.Unknown(itypes.Bool))

	tests := []struct {
		expr     ir.Expr
		expected L.Value
		calls    bool
	}{
		{b.Bin(ir.OpLAnd, b.Bool(false), b.Call("f")), elem.Bool(false), false},
		{b.Bin(ir.OpLOr, b.Bool(true), b.Call("f")), elem.Bool(true), false},
		{b.Bin(ir.OpLOr, b.Ident("c"), b.Bool(true)), elem.Bool(true), false},
		{b.Bin(ir.OpLAnd, b.Ident("c"), b.Bool(false)), elem.Bool(false), false},
		{b.Bin(ir.OpLAnd, b.Bool(true), b.Ident("c")), elem.Unknown(itypes.Bool), false},
		{b.Bin(ir.OpLAnd, b.Ident("c"), b.Call("f")), elem.Unknown(itypes.Bool), true},
	}
	for _, test := range tests {
		v, acc, _, err := New(nil).Expr(test.expr, en)
		if err != nil {
			t.Fatal(err)
		}
		if !L.Equal(v, test.expected) {
			t.Errorf("%s = %s, expected %s", test.expr, v, test.expected)
		}
		if acc.Calls != test.calls {
			t.Errorf("%s: calls = %t, expected %t", test.expr, acc.Calls, test.calls)
		}
	}
}

func TestConditionalJoinsBranches(t *testing.T) {
	b := ir.NewBuilder()
	en := env.New().Set("c", elem.Unknown(itypes.Bool)).Set("y", i32(0))

	e := b.Cond(b.Ident("c"), b.Assign("y", b.I32(1)), b.Assign("y", b.I32(2)))
	v, _, en, err := New(nil).Expr(e, en)
	if err != nil {
		t.Fatal(err)
	}
	if r := elem.Range(itypes.Int32, 1, 2); !L.Equal(v, r) {
		t.Errorf("%s = %s, expected %s", e, v, r)
	}
	expectVar(t, en, "y", elem.Range(itypes.Int32, 1, 2))

	en = en.Set("c", elem.Bool(true))
	v, _, _, _ = New(nil).Expr(e, en)
	if !L.Equal(v, i32(1)) {
		t.Errorf("%s with c = true: %s", e, v)
	}
}

func TestAccess(t *testing.T) {
	b := ir.NewBuilder()
	en := env.New().Set("x", i32(1)).Set("y", i32(2))

	_, acc, _, err := New(nil).Stmt(b.Decl("z", itypes.Int32, b.Bin(ir.OpAdd, b.Ident("x"), b.Ident("y"))), en)
	if err != nil {
		t.Fatal(err)
	}
	if acc.Reads.Size() != 2 || !acc.Reads.Contains("x") || !acc.Reads.Contains("y") {
		t.Errorf("reads: %v", acc.Reads)
	}
	if acc.Writes.Size() != 1 || !acc.Writes.Contains("z") {
		t.Errorf("writes: %v", acc.Writes)
	}

	_, acc, _, _ = New(nil).Stmt(b.Expr(b.Inc("x")), en)
	if !acc.Reads.Contains("x") || !acc.Writes.Contains("x") {
		t.Errorf("x++ must read and write x: %v %v", acc.Reads, acc.Writes)
	}
}

func TestAccessMerge(t *testing.T) {
	b := ir.NewBuilder()
	ev := New(nil)
	en := env.New().Set("x", i32(1)).Set("y", i32(2))

	_, a, _, err := ev.Stmt(b.Expr(b.Assign("x", b.Ident("y"))), en)
	if err != nil {
		t.Fatal(err)
	}
	_, o, _, err := ev.Stmt(b.Invoke("f", b.Ident("x")), en)
	if err != nil {
		t.Fatal(err)
	}

	m := a.Merge(o)
	if !m.Reads.Contains("x") || !m.Reads.Contains("y") || !m.Writes.Contains("x") || !m.Calls {
		t.Errorf("union lacks accesses: reads %v, writes %v, calls %t", m.Reads, m.Writes, m.Calls)
	}
	if a.Reads.Contains("x") || a.Calls {
		t.Errorf("merge modified its receiver: reads %v", a.Reads)
	}

	// Zero accesses are empty.
	if z := (Access{}).Merge(Access{}); z.Reads == nil || z.Reads.Size() != 0 {
		t.Errorf("merge of zero accesses: %v", z.Reads)
	}
	if z := (Access{}).Merge(a); !z.Writes.Contains("x") {
		t.Errorf("merge into a zero access lost writes: %v", z.Writes)
	}
}
