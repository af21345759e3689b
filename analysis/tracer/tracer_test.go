package tracer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/hashicorp/go-set/v3"
	"github.com/pkg/errors"

	"github.com/zed-0xff/cs-reflow-sub000/analysis/env"
	"github.com/zed-0xff/cs-reflow-sub000/analysis/ir"
	"github.com/zed-0xff/cs-reflow-sub000/analysis/itypes"
	L "github.com/zed-0xff/cs-reflow-sub000/analysis/lattice"
)

func trace(t *testing.T, body *ir.Block, hints Hints, init env.Env) *Log {
	t.Helper()
	lg, err := New(body, Config{MaxSteps: 10000}).Trace(hints, init)
	if err != nil {
		t.Fatalf("tracing\n%s\nfailed: %v", ir.Format(body), err)
	}
	return lg
}

func expectStmts(t *testing.T, stmts []ir.Stmt, expected ...string) {
	t.Helper()
	got := make([]string, len(stmts))
	for i, s := range stmts {
		got[i] = ir.Format(s)
	}
	if strings.Join(got, "\n") != strings.Join(expected, "\n") {
		t.Errorf("got\n%s\nexpected\n%s", strings.Join(got, "\n"), strings.Join(expected, "\n"))
	}
}

// Dispatch-only statements are dropped the way the reflow does it.
func visible(lg *Log) []ir.Stmt {
	return Stmts(DropDispatch(lg.Entries, DispatchVariables(lg.Entries, lg.Discriminants)))
}

func TestSwitchGotoLabel(t *testing.T) {
	b := ir.NewBuilder()
	body := b.Block(
		b.Decl("x", itypes.Int32, b.I32(2)),
		b.Switch(b.Ident("x"),
			b.Case([]ir.Expr{b.I32(1)}, b.Invoke("a"), b.Break()),
			b.Case([]ir.Expr{b.I32(2)}, b.Goto("L")),
		),
		b.Invoke("skipped"),
		b.Label("L", b.Invoke("b")),
	)

	lg := trace(t, body, NoHints(), env.New())
	expectStmts(t, lg.Stmts(), "var x int32 = 2", "b()")
	if !lg.Env.IsDispatch("x") {
		t.Errorf("x is not flagged as a dispatch variable")
	}
	expectStmts(t, visible(lg), "b()")
}

func TestUndeterminedBranch(t *testing.T) {
	b := ir.NewBuilder()
	branch := b.If(b.Ident("cond"), b.Block(b.Return(nil)), nil)
	body := b.Block(branch, b.Invoke("stmt2"))
	init := env.New().Set("cond", L.Elements().Unknown(itypes.Bool))

	_, err := New(body, Config{}).Trace(NoHints(), init)
	ue, ok := IsUndetermined(err)
	if !ok || ue.Line != branch.Line() {
		t.Fatalf("expected an undetermined branch at line %d, got %v", branch.Line(), err)
	}

	lg := trace(t, body, NoHints().With(branch.Line(), false), init)
	expectStmts(t, lg.Stmts(), "stmt2()")
	lg = trace(t, body, NoHints().With(branch.Line(), true), init)
	expectStmts(t, lg.Stmts(), "return")

	if e := lg.Entries[0]; e.Kind != Branch || !e.Taken || e.Line() != branch.Line() {
		t.Errorf("expected a branch marker first, got %v", lg)
	}
}

func TestHintOverridesComputedOutcome(t *testing.T) {
	b := ir.NewBuilder()
	branch := b.If(b.Bool(true), b.Block(b.Invoke("then")), b.Block(b.Invoke("else")))
	body := b.Block(branch)

	expectStmts(t, trace(t, body, NoHints(), env.New()).Stmts(), "then()")
	expectStmts(t, trace(t, body, NoHints().With(branch.Line(), false), env.New()).Stmts(), "else()")
}

func TestSwitchSections(t *testing.T) {
	b := ir.NewBuilder()
	body := b.Block(
		b.Decl("s", itypes.Int32, b.I32(0)),
		b.Switch(b.Ident("s"),
			b.Case([]ir.Expr{b.I32(0)}, b.Invoke("a"), b.GotoCase(b.I32(2))),
			b.Case([]ir.Expr{b.I32(1)}, b.Invoke("unreachable")),
			b.Case([]ir.Expr{b.I32(2)}, b.Invoke("b"), b.Fallthrough()),
			b.Case([]ir.Expr{b.I32(3)}, b.Invoke("c"), b.GotoDefault()),
			b.Default(b.Invoke("d"), b.Goto("inner")),
			b.Case([]ir.Expr{b.I32(4)}, b.Invoke("skipped"), b.Label("inner", b.Invoke("e"))),
		),
		b.Invoke("after"),
	)

	lg := trace(t, body, NoHints(), env.New())
	expectStmts(t, visible(lg), "a()", "b()", "c()", "d()", "e()", "after()")
}

func TestFlattenedLoop(t *testing.T) {
	b := ir.NewBuilder()
	body := b.Block(
		b.Decl("state", itypes.Int32, b.I32(3)),
		b.Decl("n", itypes.Int32, b.I32(0)),
		b.For(nil, nil, nil, b.Block(
			b.Switch(b.Ident("state"),
				b.Case([]ir.Expr{b.I32(1)},
					b.Invoke("f1", b.Ident("n")),
					b.Set("state", b.Bin(ir.OpXor, b.Ident("state"), b.I32(3))),
				),
				b.Case([]ir.Expr{b.I32(2)}, b.Return(b.Ident("n"))),
				b.Case([]ir.Expr{b.I32(3)},
					b.Expr(b.Inc("n")),
					b.Set("state", b.I32(1)),
				),
			),
		)),
	)

	lg := trace(t, body, NoHints(), env.New())
	expectStmts(t, lg.Stmts(),
		"var state int32 = 3", "var n int32 = 0", "n++", "state = 1", "f1(n)", "state = state ^ 3", "return n")
	expectStmts(t, visible(lg), "var n int32 = 0", "n++", "f1(n)", "return n")

	if v, _ := lg.Env.Value("n"); !L.Equal(v, L.Elements().Const(itypes.Int32, 1)) {
		t.Errorf("n = %s, expected 1", v)
	}
}

func TestDispatchVariableUsedElsewhere(t *testing.T) {
	b := ir.NewBuilder()
	body := b.Block(
		b.Decl("state", itypes.Int32, b.I32(1)),
		b.Decl("next", itypes.Int32, b.Bin(ir.OpAdd, b.Ident("state"), b.I32(1))),
		b.Switch(b.Ident("next"),
			b.Case([]ir.Expr{b.I32(2)}, b.Invoke("f", b.Ident("state"))),
		),
	)
	lg := trace(t, body, NoHints(), env.New())

	dispatch := DispatchVariables(lg.Entries, lg.Discriminants)
	if !dispatch.Equal(set.From([]string{"next"})) {
		t.Errorf("dispatch variables: %v, expected [next]", dispatch)
	}
	expectStmts(t, visible(lg), "var state int32 = 1", "f(state)")
}

func TestLoopCounters(t *testing.T) {
	b := ir.NewBuilder()
	body := b.Block(
		b.For(
			b.Decl("i", itypes.Int32, b.I32(0)),
			b.Bin(ir.OpLt, b.Ident("i"), b.I32(2)),
			b.Expr(b.Inc("i")),
			b.Block(b.Invoke("f", b.Ident("i"))),
		),
	)
	lg := trace(t, body, NoHints(), env.New())
	expectStmts(t, lg.Stmts(), "var i int32 = 0", "f(i)", "i++", "f(i)", "i++")
	if bd, _ := lg.Env.Get("i"); !bd.LoopCounter {
		t.Errorf("i is not flagged as a loop counter")
	}
	if lg.Entries[len(lg.Entries)-1].Kind != End {
		t.Errorf("trace does not end with an implicit return")
	}
}

func TestDoWhileRunsOnce(t *testing.T) {
	b := ir.NewBuilder()
	body := b.Block(
		b.DoWhile(b.Block(b.Invoke("once")), b.Bool(false)),
		b.While(b.Bool(false), b.Block(b.Invoke("never"))),
	)
	expectStmts(t, trace(t, body, NoHints(), env.New()).Stmts(), "once()")
}

func TestTryTracesMainBlockOnly(t *testing.T) {
	b := ir.NewBuilder()
	body := b.Block(b.Try(b.Block(b.Invoke("main")), b.Block(b.Invoke("handler")), b.Block(b.Invoke("cleanup"))))
	expectStmts(t, trace(t, body, NoHints(), env.New()).Stmts(), "main()")
}

func TestHardFailures(t *testing.T) {
	b := ir.NewBuilder()
	init := env.New().Set("s", L.Elements().Unknown(itypes.Int32))

	_, err := New(b.Block(b.Goto("nowhere")), Config{}).Trace(NoHints(), init)
	var le *UnresolvedLabelError
	if !errors.As(err, &le) || le.Label != "nowhere" {
		t.Errorf("expected an unresolved label, got %v", err)
	}

	_, err = New(b.Block(b.For(nil, nil, nil, b.Block())), Config{MaxSteps: 100}).Trace(NoHints(), init)
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Errorf("expected the step budget to be exceeded, got %v", err)
	}

	sw := b.Switch(b.Ident("s"), b.Case([]ir.Expr{b.I32(1)}, b.Invoke("a")))
	_, err = New(b.Block(sw), Config{}).Trace(NoHints(), init)
	if !errors.Is(err, ErrUndecidableSwitch) {
		t.Errorf("expected an undecidable switch, got %v", err)
	}

	div := b.Decl("x", itypes.Int32, b.Bin(ir.OpDiv, b.I32(1), b.I32(0)))
	_, err = New(b.Block(div), Config{}).Trace(NoHints(), init)
	var de *L.DomainError
	if !errors.As(err, &de) {
		t.Errorf("expected a domain error, got %v", err)
	}

	twice := b.Block(b.Label("L", b.Invoke("a")), b.Label("L", b.Invoke("b")))
	_, err = New(twice, Config{}).Trace(NoHints(), init)
	var dl *DuplicateLabelError
	if !errors.As(err, &dl) || dl.Label != "L" || len(dl.Lines) != 2 {
		t.Errorf("expected a duplicate label, got %v", err)
	}
}

func TestExplore(t *testing.T) {
	b := ir.NewBuilder()
	first := b.If(b.Ident("c1"), b.Block(b.Invoke("a")), nil)
	second := b.If(b.Ident("c2"), b.Block(b.Return(nil)), nil)
	body := b.Block(first, second, b.Invoke("z"))
	init := env.New().
		Set("c1", L.Elements().Unknown(itypes.Bool)).
		Set("c2", L.Elements().Unknown(itypes.Bool))

	ex, err := New(body, Config{}).Explore(NoHints(), init)
	if err != nil {
		t.Fatal(err)
	}
	if len(ex.Logs) != 4 || ex.Attempts != 7 || ex.Undetermined != 3 {
		t.Errorf("%d logs after %d attempts (%d undetermined), expected 4 after 7 (3)",
			len(ex.Logs), ex.Attempts, ex.Undetermined)
	}
	if ex.Root.Line != first.Line() || len(ex.Root.Children) != 2 {
		t.Errorf("root of the exploration tree should split at line %d", first.Line())
	}
	for _, lg := range ex.Logs {
		if lg.Hints.Len() != 2 {
			t.Errorf("completed trace with hints {%s}", lg.Hints)
		}
	}

	dot := ex.Dot()
	for _, s := range []string{"digraph", `id="attempt0"`, `id="attempt6"`, fmt.Sprintf("line %d?", first.Line()), "true", "false"} {
		if !strings.Contains(dot, s) {
			t.Errorf("DOT output lacks %q:\n%s", s, dot)
		}
	}

	_, err = New(body, Config{MaxAttempts: 2}).Explore(NoHints(), init)
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Errorf("expected the attempt budget to be exceeded, got %v", err)
	}
}

func TestHints(t *testing.T) {
	h, err := ParseHints("40:false, 12:true")
	if err != nil {
		t.Fatal(err)
	}
	if s := h.String(); s != "12:true,40:false" {
		t.Errorf("got %q", s)
	}
	if lines := h.Lines(); len(lines) != 2 || lines[0] != 12 || lines[1] != 40 {
		t.Errorf("lines: %v", lines)
	}

	o := h.With(40, true)
	if line, ok := h.SplitAt(o); !ok || line != 40 {
		t.Errorf("%s and %s split at %d, %t", h, o, line, ok)
	}
	if _, ok := h.SplitAt(o.With(12, false)); ok {
		t.Errorf("hints differing twice do not split")
	}
	if _, ok := h.SplitAt(h.Without(12)); ok {
		t.Errorf("hints on different lines do not split")
	}
	if !h.Without(40).Equal(HintsFrom(map[int]bool{12: true})) {
		t.Errorf("Without")
	}
	if _, err := ParseHints("12"); err == nil {
		t.Errorf("malformed hints accepted")
	}
}

func TestEntryFingerprint(t *testing.T) {
	b := ir.NewBuilder()
	x1 := Entry{Kind: Effect, Stmt: ir.SetComment(b.Set("x", b.I32(1)), "first")}
	x2 := Entry{Kind: Effect, Stmt: b.Set("x", b.I32(1))}
	y := Entry{Kind: Effect, Stmt: b.Set("x", b.I32(2))}
	branch := b.If(b.Ident("c"), b.Block(), nil)
	taken := Entry{Kind: Branch, Stmt: branch, Taken: true}
	skipped := Entry{Kind: Branch, Stmt: branch}

	tests := []struct {
		a, b Entry
		same bool
	}{
		{x1, x2, true},
		{x1, y, false},
		{taken, taken, true},
		{taken, skipped, false},
		{Entry{Kind: End}, Entry{Kind: End}, true},
		{x1, Entry{Kind: Merged, Stmt: x1.Stmt}, false},
	}
	for _, test := range tests {
		if test.a.Same(test.b) != test.same {
			t.Errorf("%s and %s: same = %t", ir.Format(test.a.Stmt), ir.Format(test.b.Stmt), !test.same)
		}
		if fa, fb := test.a.Fingerprint(), test.b.Fingerprint(); (fa == fb) != test.same {
			t.Errorf("%s and %s: fingerprints %x and %x", ir.Format(test.a.Stmt), ir.Format(test.b.Stmt), fa, fb)
		}
	}
}

func TestSwitchWithoutTag(t *testing.T) {
	b := ir.NewBuilder()
	first := b.Case([]ir.Expr{b.Ident("c1")}, b.Invoke("a"))
	second := b.Case([]ir.Expr{b.Ident("c2"), b.Ident("c3")}, b.Invoke("b"))
	body := b.Block(
		b.Switch(nil, first, second, b.Default(b.Invoke("d"))),
		b.Invoke("after"),
	)
	init := env.New().
		Set("c1", L.Elements().Unknown(itypes.Bool)).
		Set("c2", L.Elements().Unknown(itypes.Bool)).
		Set("c3", L.Elements().Bool(false))

	_, err := New(body, Config{}).Trace(NoHints(), init)
	if ue, ok := IsUndetermined(err); !ok || ue.Line != first.Line() {
		t.Fatalf("expected an undetermined case at line %d, got %v", first.Line(), err)
	}

	hints := NoHints().With(first.Line(), true)
	expectStmts(t, trace(t, body, hints, init).Stmts(), "a()", "after()")
	hints = NoHints().With(first.Line(), false).With(second.Line(), true)
	expectStmts(t, trace(t, body, hints, init).Stmts(), "b()", "after()")
	hints = NoHints().With(first.Line(), false).With(second.Line(), false)
	lg := trace(t, body, hints, init)
	expectStmts(t, lg.Stmts(), "d()", "after()")
	if e := lg.Entries[1]; e.Kind != Branch || ir.FormatExpr(e.Cond) != "c2 || c3" {
		t.Errorf("expected a decision on c2 || c3, got %v", lg)
	}

	ex, err := New(body, Config{}).Explore(NoHints(), init)
	if err != nil {
		t.Fatal(err)
	}
	if len(ex.Logs) != 3 {
		t.Errorf("%d completed traces, expected 3", len(ex.Logs))
	}

	// Known conditions need no hint.
	init = init.Set("c1", L.Elements().Bool(false)).Set("c2", L.Elements().Bool(true))
	expectStmts(t, trace(t, body, NoHints(), init).Stmts(), "b()", "after()")
}
