package ir

import (
	"testing"

	"github.com/zed-0xff/cs-reflow-sub000/analysis/itypes"
)

func TestFormatPrecedence(t *testing.T) {
	b := NewBuilder()
	x, y, z := b.Ident("x"), b.Ident("y"), b.Ident("z")

	tests := []struct {
		expr     Expr
		expected string
	}{
		{b.Bin(OpMul, b.Bin(OpAdd, x, y), z), "(x + y) * z"},
		{b.Bin(OpAdd, x, b.Bin(OpMul, y, z)), "x + y * z"},
		{b.Bin(OpSub, x, b.Bin(OpSub, y, z)), "x - (y - z)"},
		{b.Bin(OpSub, b.Bin(OpSub, x, y), z), "x - y - z"},
		{b.Bin(OpLOr, b.Bin(OpLAnd, x, y), z), "x && y || z"},
		{b.Bin(OpEq, b.Un(OpNot, x), x), "^x == x"},
		{b.Un(OpNeg, b.Bin(OpAdd, x, y)), "-(x + y)"},
		{b.Paren(x), "(x)"},
		{b.OpAssign(OpXor, "x", b.I32(3)), "x ^= 3"},
		{b.Cast(itypes.Uint8, b.Bin(OpShr, x, b.I32(8))), "uint8(x >> 8)"},
		{b.Call("f", x, b.Bool(true)), "f(x, true)"},
		{b.Int(itypes.Uint32, -1), "4294967295"},
	}
	for _, test := range tests {
		if s := FormatExpr(test.expr); s != test.expected {
			t.Errorf("got %q, expected %q", s, test.expected)
		}
	}
}

func TestFormatStatements(t *testing.T) {
	b := NewBuilder()
	body := b.Block(
		b.Decl("s", itypes.Int32, b.I32(2)),
		b.Label("loop", b.Switch(b.Ident("s"),
			b.Case([]Expr{b.I32(1)}, b.Invoke("a"), b.Break()),
			b.Case([]Expr{b.I32(2), b.I32(3)}, SetComment(b.Goto("done"), "jump")),
			b.Default(b.Fallthrough()),
		)),
		b.If(b.Ident("c"), b.Block(b.Return(nil)), b.Block(b.Set("s", b.I32(0)))),
		b.Label("done", b.Return(b.Ident("s"))),
	)
	expected := `{
	var s int32 = 2
loop:
	switch s {
	case 1:
		a()
		break
	case 2, 3:
		goto done // jump
	default:
		fallthrough
	}
	if c {
		return
	} else {
		s = 0
	}
done:
	return s
}`
	if s := Format(body); s != expected {
		t.Errorf("got\n%s\nexpected\n%s", s, expected)
	}
}

func TestFormatLoops(t *testing.T) {
	b := NewBuilder()
	tests := []struct {
		stmt     Stmt
		expected string
	}{
		{b.While(b.Bool(true), b.Block(b.Break())), "for true {\n\tbreak\n}"},
		{b.DoWhile(b.Block(b.Expr(b.Inc("i"))), b.Bin(OpLt, b.Ident("i"), b.I32(3))),
			"for ok := true; ok; ok = i < 3 {\n\ti++\n}"},
		{b.For(b.Decl("i", itypes.Int32, b.I32(0)), b.Bin(OpLt, b.Ident("i"), b.I32(3)), b.Expr(b.Inc("i")), b.Block()),
			"for i := int32(0); i < 3; i++ {\n}"},
		{b.For(nil, nil, nil, b.Block(b.Continue())), "for {\n\tcontinue\n}"},
		{b.GotoCase(b.I32(4)), "gotoCase(4)"},
		{b.GotoDefault(), "gotoDefault()"},
	}
	for _, test := range tests {
		if s := Format(test.stmt); s != test.expected {
			t.Errorf("got %q, expected %q", s, test.expected)
		}
	}
}

func TestEqualIgnoresIdentityAndComments(t *testing.T) {
	b := NewBuilder()
	mk := func() Stmt {
		return b.If(b.Bin(OpGt, b.Ident("x"), b.I32(0)), b.Block(b.Invoke("f")), nil)
	}
	s1, s2 := mk(), SetComment(mk(), "x = 5")
	if s1.ID() == s2.ID() || s1.Line() == s2.Line() {
		t.Fatalf("builder reused identities")
	}
	if !Equal(s1, s2) {
		t.Errorf("%s and %s should be equal", s1, s2)
	}
	if Fingerprint(s1) != Fingerprint(s2) {
		t.Errorf("fingerprints of equal statements differ")
	}

	s3 := b.If(b.Bin(OpGt, b.Ident("x"), b.I32(1)), b.Block(b.Invoke("f")), nil)
	if Equal(s1, s3) {
		t.Errorf("%s and %s should differ", s1, s3)
	}
}

func TestWalk(t *testing.T) {
	b := NewBuilder()
	body := b.Block(
		b.Set("y", b.Bin(OpAdd, b.Ident("x"), b.Ident("x"))),
		b.Label("a", b.Label("b", b.Expr(b.OpAssign(OpAdd, "z", b.Ident("w"))))),
	)

	labels := Labels(body)
	if len(labels) != 2 || labels["a"] == nil || labels["b"] == nil {
		t.Errorf("labels: %v", labels)
	}
	if i, ok := Declares(body.Stmts, "b"); !ok || i != 1 {
		t.Errorf("Declares(b) = %d, %v", i, ok)
	}
	if _, ok := Declares(body.Stmts, "c"); ok {
		t.Errorf("c is not declared")
	}

	idents := Idents(body.Stmts[0].(*ExprStmt).X)
	if len(idents) != 2 || idents[0] != "x" {
		t.Errorf("reads of y = x + x: %v", idents)
	}
	idents = Idents(labels["b"].Stmt.(*ExprStmt).X)
	if len(idents) != 2 || idents[0] != "z" || idents[1] != "w" {
		t.Errorf("reads of z += w: %v", idents)
	}
}
