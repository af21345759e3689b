package reflow

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/zed-0xff/cs-reflow-sub000/analysis/env"
	"github.com/zed-0xff/cs-reflow-sub000/analysis/ir"
	"github.com/zed-0xff/cs-reflow-sub000/analysis/itypes"
	L "github.com/zed-0xff/cs-reflow-sub000/analysis/lattice"
	"github.com/zed-0xff/cs-reflow-sub000/analysis/tracer"
	"github.com/zed-0xff/cs-reflow-sub000/utils"
)

var elem = L.Elements()

func init() {
	utils.Opts().SetNoColorize(true)
}

func config() Config {
	return Config{
		Tracer: tracer.Config{MaxSteps: 10000, MaxAttempts: 1000},
		Hints:  tracer.NoHints(),
	}
}

func run(t *testing.T, body *ir.Block, init env.Env, cfg Config) *Report {
	t.Helper()
	r, err := Run(body, init, cfg)
	if err != nil {
		t.Fatalf("reflow of\n%s\nfailed: %v", ir.Format(body), err)
	}
	return r
}

func expect(t *testing.T, r *Report, expected string) {
	t.Helper()
	if got := r.String(); got != expected {
		t.Errorf("got\n%s\nexpected\n%s", got, expected)
	}
}

func TestEarlyReturnIsKept(t *testing.T) {
	b := ir.NewBuilder()
	body := b.Block(
		b.If(b.Ident("cond"), b.Block(b.Return(nil)), nil),
		b.Invoke("stmt2"),
	)
	init := env.New().Set("cond", elem.Unknown(itypes.Bool))

	r := run(t, body, init, config())
	expect(t, r, "if cond {\n\treturn\n}\nstmt2()")
	if r.Attempts != 3 || r.Undetermined != 1 || r.Merges != 1 {
		t.Errorf("unexpected counters: %s", r.Summary())
	}
}

// Two states picked by an opaque condition, joined by a common state.
func flattened(b *ir.Builder) (*ir.Block, *ir.If) {
	branch := b.If(b.Bin(ir.OpGt, b.Ident("n"), b.I32(10)),
		b.Block(b.Set("state", b.I32(0x1f2))),
		b.Block(b.Set("state", b.Bin(ir.OpXor, b.Ident("state"), b.I32(0x100)))))
	body := b.Block(
		b.Decl("state", itypes.Int32, b.I32(0x2a)),
		b.Decl("acc", itypes.Int32, b.I32(0)),
		b.For(nil, nil, nil, b.Block(
			b.Switch(b.Ident("state"),
				b.Case([]ir.Expr{b.I32(0x2a)},
					b.Set("acc", b.Ident("n")),
					branch),
				b.Case([]ir.Expr{b.I32(0x1f2)},
					b.Expr(b.OpAssign(ir.OpMul, "acc", b.I32(2))),
					b.Set("state", b.I32(0x77))),
				b.Case([]ir.Expr{b.I32(0x12a)},
					b.Expr(b.Dec("acc")),
					b.Set("state", b.I32(0x77))),
				b.Case([]ir.Expr{b.I32(0x77)},
					b.Return(b.Ident("acc"))),
			),
		)),
	)
	return body, branch
}

func TestFlattenedBody(t *testing.T) {
	b := ir.NewBuilder()
	body, _ := flattened(b)
	init := env.New().Set("n", elem.Unknown(itypes.Int32))

	r := run(t, body, init, config())
	expect(t, r, "var acc int32 = 0\n"+
		"acc = n\n"+
		"if n > 10 {\n\tacc *= 2\n} else {\n\tacc--\n}\n"+
		"return acc")
	if !r.Dispatch.Contains("state") || r.Dispatch.Contains("acc") {
		t.Errorf("unexpected dispatch variables: %s", r.Summary())
	}
	if r.Merged.Hints.Len() != 0 {
		t.Errorf("merged trace still carries hints {%s}", r.Merged.Hints)
	}
}

func TestHintsSelectOneTrace(t *testing.T) {
	b := ir.NewBuilder()
	body, branch := flattened(b)
	init := env.New().Set("n", elem.Unknown(itypes.Int32))

	cfg := config()
	cfg.Hints = tracer.NoHints().With(branch.Line(), false)
	r := run(t, body, init, cfg)
	expect(t, r, "var acc int32 = 0\nacc = n\nacc--\nreturn acc")
	if r.Attempts != 1 || r.Merges != 0 {
		t.Errorf("unexpected counters: %s", r.Summary())
	}
}

func TestAnnotate(t *testing.T) {
	b := ir.NewBuilder()
	body := b.Block(
		b.Decl("k", itypes.Int32, b.Bin(ir.OpShl, b.I32(3), b.I32(4))),
		b.If(b.Ident("c"),
			b.Block(b.Invoke("f", b.Ident("k"))),
			b.Block(b.Expr(b.Inc("k")))),
	)
	init := env.New().Set("c", elem.Unknown(itypes.Bool))

	cfg := config()
	cfg.Annotate = true
	r := run(t, body, init, cfg)
	expect(t, r, "var k int32 = 3 << 4 // 48\n"+
		"if c {\n\tf(k)\n} else {\n\tk++ // 49\n}")

	if v := r.Lines[0].Value; !L.Equal(v, elem.Const(itypes.Int32, 48)) {
		t.Errorf("expected the declaration to compute 48, got %v", v)
	}
	if ir.Format(body.Stmts[0]) != "var k int32 = 3 << 4" {
		t.Errorf("annotating modified the input body:\n%s", ir.Format(body))
	}
}

func TestFailureCarriesHints(t *testing.T) {
	b := ir.NewBuilder()
	branch := b.If(b.Ident("c"), b.Block(b.Goto("missing")), nil)
	body := b.Block(branch, b.Invoke("a"))
	init := env.New().Set("c", elem.Unknown(itypes.Bool))

	_, err := Run(body, init, config())
	var f *Failure
	if !errors.As(err, &f) {
		t.Fatalf("expected a reflow failure, got %v", err)
	}
	if taken, ok := f.Hints.Get(branch.Line()); !ok || !taken {
		t.Errorf("expected the failure under {%d:true}, got {%s}", branch.Line(), f.Hints)
	}
	var le *tracer.UnresolvedLabelError
	if !errors.As(err, &le) {
		t.Errorf("expected the cause to be an unresolved label, got %v", f.Err)
	}
}

func TestAttemptBudget(t *testing.T) {
	b := ir.NewBuilder()
	body := b.Block(
		b.If(b.Ident("c1"), b.Block(b.Invoke("a")), nil),
		b.If(b.Ident("c2"), b.Block(b.Invoke("b")), nil),
	)
	init := env.New().
		Set("c1", elem.Unknown(itypes.Bool)).
		Set("c2", elem.Unknown(itypes.Bool))

	cfg := config()
	cfg.Tracer.MaxAttempts = 3
	_, err := Run(body, init, cfg)
	if !errors.Is(err, tracer.ErrBudgetExceeded) {
		t.Errorf("expected the attempt budget to be exceeded, got %v", err)
	}
}
