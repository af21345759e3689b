package merge

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/zed-0xff/cs-reflow-sub000/analysis/env"
	"github.com/zed-0xff/cs-reflow-sub000/analysis/ir"
	"github.com/zed-0xff/cs-reflow-sub000/analysis/itypes"
	L "github.com/zed-0xff/cs-reflow-sub000/analysis/lattice"
	"github.com/zed-0xff/cs-reflow-sub000/analysis/tracer"
)

var elem = L.Elements()

func trace(t *testing.T, body *ir.Block, hints tracer.Hints, init env.Env) *tracer.Log {
	t.Helper()
	lg, err := tracer.New(body, tracer.Config{MaxSteps: 10000}).Trace(hints, init)
	if err != nil {
		t.Fatalf("tracing\n%s\nunder {%s} failed: %v", ir.Format(body), hints, err)
	}
	return lg
}

func expect(t *testing.T, stmts []ir.Stmt, expected string) {
	t.Helper()
	if got := ir.FormatStmts(stmts); got != expected {
		t.Errorf("got\n%s\nexpected\n%s", got, expected)
	}
}

// roundTrip traces the merged statements again under the hints of every
// input trace and checks that the same statements are executed.
func roundTrip(t *testing.T, merged *tracer.Log, init env.Env, logs ...*tracer.Log) {
	t.Helper()
	body := &ir.Block{Stmts: merged.Stmts()}
	for _, lg := range logs {
		again := trace(t, body, lg.Hints, init).Stmts()
		orig := lg.Stmts()
		if len(again) != len(orig) {
			t.Errorf("under {%s}, expected\n%s\ngot\n%s", lg.Hints, ir.FormatStmts(orig), ir.FormatStmts(again))
			continue
		}
		for i := range orig {
			if !ir.Equal(orig[i], again[i]) {
				t.Errorf("under {%s}, statement %d: expected %s, got %s", lg.Hints, i, orig[i], again[i])
			}
		}
	}
}

func TestEarlyReturn(t *testing.T) {
	b := ir.NewBuilder()
	branch := b.If(b.Ident("cond"), b.Block(b.Return(nil)), nil)
	body := b.Block(branch, b.Invoke("stmt2"))
	init := env.New().Set("cond", elem.Unknown(itypes.Bool))

	yes := trace(t, body, tracer.NoHints().With(branch.Line(), true), init)
	no := trace(t, body, tracer.NoHints().With(branch.Line(), false), init)

	for _, order := range [][2]*tracer.Log{{yes, no}, {no, yes}} {
		m, err := Merge(order[0], order[1])
		if err != nil {
			t.Fatal(err)
		}
		expect(t, m.Stmts(), "if cond {\n\treturn\n}\nstmt2()")
		if m.Hints.Len() != 0 {
			t.Errorf("expected no hints left, got {%s}", m.Hints)
		}
		roundTrip(t, m, init, yes, no)
	}
}

func TestCommonSuffix(t *testing.T) {
	b := ir.NewBuilder()
	branch := b.If(b.Ident("c"), b.Block(b.Invoke("a")), b.Block(b.Invoke("b")))
	body := b.Block(b.Invoke("first"), branch, b.Invoke("z"))
	init := env.New().Set("c", elem.Unknown(itypes.Bool))

	yes := trace(t, body, tracer.NoHints().With(branch.Line(), true), init)
	no := trace(t, body, tracer.NoHints().With(branch.Line(), false), init)

	m, err := Merge(no, yes)
	if err != nil {
		t.Fatal(err)
	}
	expect(t, m.Stmts(), "first()\nif c {\n\ta()\n} else {\n\tb()\n}\nz()")
	if last := m.Entries[len(m.Entries)-1]; last.Kind != tracer.End {
		t.Errorf("expected the implicit return last, got %v", m)
	}
	roundTrip(t, m, init, yes, no)
}

func TestBothRunOffTheEnd(t *testing.T) {
	b := ir.NewBuilder()
	branch := b.If(b.Ident("c"), b.Block(b.Set("x", b.I32(1))), b.Block(b.Set("x", b.I32(2))))
	body := b.Block(branch, b.Invoke("z"))
	init := env.New().
		Set("c", elem.Unknown(itypes.Bool)).
		Set("x", elem.Unknown(itypes.Int32))

	yes := trace(t, body, tracer.NoHints().With(branch.Line(), true), init)
	no := trace(t, body, tracer.NoHints().With(branch.Line(), false), init)
	end := yes.Entries[len(yes.Entries)-1]
	if end.Kind != tracer.End {
		t.Fatalf("expected the trace to run off the end, got\n%v", yes)
	}

	m, err := Merge(yes, no)
	if err != nil {
		t.Fatal(err)
	}
	expect(t, m.Stmts(), "if c {\n\tx = 1\n} else {\n\tx = 2\n}\nz()")
	if last := m.Entries[len(m.Entries)-1]; last.Kind != tracer.End || last.Access.Reads == nil {
		t.Errorf("expected the joined implicit return last, got %v", m)
	}
	if v, _ := m.Env.Value("x"); L.Cardinality(v).Int64() != 2 {
		t.Errorf("expected x to join to both values, got %s", v)
	}
	roundTrip(t, m, init, yes, no)
}

func TestFlattenedConditional(t *testing.T) {
	b := ir.NewBuilder()
	branch := b.If(b.Ident("c"),
		b.Block(b.Set("state", b.I32(2))),
		b.Block(b.Set("state", b.I32(3))))
	body := b.Block(
		b.Decl("state", itypes.Int32, b.I32(1)),
		b.For(nil, nil, nil, b.Block(
			b.Switch(b.Ident("state"),
				b.Case([]ir.Expr{b.I32(1)}, branch),
				b.Case([]ir.Expr{b.I32(2)}, b.Invoke("a"), b.Set("state", b.I32(4))),
				b.Case([]ir.Expr{b.I32(3)}, b.Invoke("b"), b.Set("state", b.I32(4))),
				b.Case([]ir.Expr{b.I32(4)}, b.Return(nil)),
			),
		)),
	)
	init := env.New().Set("c", elem.Unknown(itypes.Bool))

	yes := trace(t, body, tracer.NoHints().With(branch.Line(), true), init)
	no := trace(t, body, tracer.NoHints().With(branch.Line(), false), init)

	m, err := Merge(yes, no)
	if err != nil {
		t.Fatal(err)
	}
	expect(t, m.Stmts(), "var state int32 = 1\n"+
		"if c {\n\tstate = 2\n\ta()\n} else {\n\tstate = 3\n\tb()\n}\n"+
		"state = 4\nreturn")
	roundTrip(t, m, init, yes, no)

	visible := tracer.DropDispatch(m.Entries, tracer.DispatchVariables(m.Entries, m.Discriminants))
	expect(t, tracer.Stmts(visible), "if c {\n\ta()\n} else {\n\tb()\n}\nreturn")
}

func TestAll(t *testing.T) {
	b := ir.NewBuilder()
	first := b.If(b.Ident("c1"), b.Block(b.Invoke("a")), nil)
	second := b.If(b.Ident("c2"), b.Block(b.Invoke("b")), nil)
	body := b.Block(first, second, b.Invoke("z"))
	init := env.New().
		Set("c1", elem.Unknown(itypes.Bool)).
		Set("c2", elem.Unknown(itypes.Bool))

	ex, err := tracer.New(body, tracer.Config{MaxSteps: 1000, MaxAttempts: 100}).Explore(tracer.NoHints(), init)
	if err != nil {
		t.Fatal(err)
	}

	var lines []int
	m, merges, err := All(ex.Logs, func(line int, _ *tracer.Log) { lines = append(lines, line) })
	if err != nil {
		t.Fatal(err)
	}
	if merges != 3 {
		t.Errorf("expected 3 merges, got %d", merges)
	}
	if len(lines) != 3 || lines[0] != second.Line() || lines[2] != first.Line() {
		t.Errorf("expected merges at lines %d, %d, %d, got %v", second.Line(), second.Line(), first.Line(), lines)
	}
	expect(t, m.Stmts(), "if c1 {\n\ta()\n}\nif c2 {\n\tb()\n}\nz()")
	roundTrip(t, m, init, ex.Logs...)
}

func TestConfluenceViolation(t *testing.T) {
	b := ir.NewBuilder()
	branch := b.If(b.Ident("c"), b.Block(b.Invoke("a")), nil)
	body := b.Block(b.Decl("y", itypes.Int32, b.Ident("x")), branch)

	yes := trace(t, body, tracer.NoHints().With(branch.Line(), true),
		env.New().Set("x", elem.Const(itypes.Int32, 1)))
	no := trace(t, body, tracer.NoHints().With(branch.Line(), false),
		env.New().Set("x", elem.Const(itypes.Int32, 2)))

	_, err := Merge(yes, no)
	var cv *ConfluenceViolation
	if !errors.As(err, &cv) {
		t.Fatalf("expected a confluence violation, got %v", err)
	}
	if cv.Line != branch.Line() {
		t.Errorf("expected the violation at decision line %d, got %d", branch.Line(), cv.Line)
	}
}

func TestUnrelatedHints(t *testing.T) {
	b := ir.NewBuilder()
	body := b.Block(b.Invoke("a"))
	lg := trace(t, body, tracer.NoHints(), env.New())

	if _, err := Merge(lg, lg); err == nil {
		t.Errorf("expected traces with equal hints not to merge")
	}
	if _, _, err := All(nil, nil); err == nil {
		t.Errorf("expected an error when merging nothing")
	}
	if m, merges, err := All([]*tracer.Log{lg}, nil); err != nil || m != lg || merges != 0 {
		t.Errorf("expected a single trace to be returned as is, got %v, %d, %v", m, merges, err)
	}
}
