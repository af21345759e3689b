// Package tracer executes a function body symbolically. Every attempt
// runs under a fixed assignment of hints and either completes with a
// linear log of the statements it executed, or stops at the first branch
// whose outcome is neither computed nor hinted.
package tracer

import (
	"log"

	"github.com/hashicorp/go-set/v3"
	"github.com/pkg/errors"

	"github.com/zed-0xff/cs-reflow-sub000/analysis/env"
	"github.com/zed-0xff/cs-reflow-sub000/analysis/eval"
	"github.com/zed-0xff/cs-reflow-sub000/analysis/ir"
	L "github.com/zed-0xff/cs-reflow-sub000/analysis/lattice"
)

var elem = L.Elements()

// Config bounds the work of the tracer. Zero values mean unbounded.
type Config struct {
	// Statements executed by a single attempt.
	MaxSteps int
	// Attempts run during exploration.
	MaxAttempts int
	// Log attempts and undetermined branches.
	Logging bool
}

// Tracer traces one function body.
type Tracer struct {
	body *ir.Block
	cfg  Config
	// Set if the body cannot be traced at all.
	invalid error
}

func New(body *ir.Block, cfg Config) *Tracer {
	return &Tracer{body: body, cfg: cfg, invalid: checkLabels(body)}
}

// checkLabels rejects bodies declaring a label twice.
func checkLabels(body *ir.Block) error {
	lines := map[string][]int{}
	var order []string
	ir.Inspect(body, func(n ir.Node) bool {
		if l, ok := n.(*ir.Labeled); ok {
			if _, seen := lines[l.Label]; !seen {
				order = append(order, l.Label)
			}
			lines[l.Label] = append(lines[l.Label], l.Line())
		}
		return true
	})
	for _, label := range order {
		if len(lines[label]) > 1 {
			return &DuplicateLabelError{Label: label, Lines: lines[label]}
		}
	}
	return nil
}

func (t *Tracer) Body() *ir.Block {
	return t.body
}

// attempt is the state of a single trace.
type attempt struct {
	*Tracer
	hints Hints
	ev    *eval.Evaluator
	env   env.Env
	log   []Entry
	disc  *set.Set[string]
	steps int
}

// Trace runs the body once under the given hints, starting from init.
// Undecidable branches yield an *UndeterminedError.
func (t *Tracer) Trace(hints Hints, init env.Env) (*Log, error) {
	if t.invalid != nil {
		return nil, t.invalid
	}
	a := &attempt{
		Tracer: t,
		hints:  hints,
		ev:     eval.New(L.NewOrigins()),
		env:    init.Clone(),
		disc:   set.New[string](0),
	}

	sig, err := a.list(t.body.Stmts, 0)
	if err != nil {
		return nil, err
	}

	switch sig.Kind {
	case Normal:
		a.log = append(a.log, Entry{
			Kind:   End,
			Stmt:   &ir.Return{Pos: ir.At(0, lastLine(t.body)+1)},
			Env:    a.env,
			Access: eval.NewAccess(),
		})
	case Return:
	case Undetermined:
		if t.cfg.Logging {
			log.Printf("{%s}: undetermined branch at line %d", hints, sig.Line)
		}
		return nil, &UndeterminedError{Line: sig.Line, Hints: hints}
	case Goto:
		return nil, &UnresolvedLabelError{Label: sig.Label, Line: sig.Line}
	default:
		return nil, errors.Errorf("%s outside of an enclosing statement", sig)
	}

	return &Log{
		Entries:       a.log,
		Hints:         hints,
		Env:           a.env,
		Discriminants: a.disc,
	}, nil
}

func lastLine(b *ir.Block) int {
	line := b.Line()
	ir.Inspect(b, func(n ir.Node) bool {
		if n.Line() > line {
			line = n.Line()
		}
		return true
	})
	return line
}

func (a *attempt) step(s ir.Stmt) error {
	a.steps++
	if limit := a.cfg.MaxSteps; limit > 0 && a.steps > limit {
		return errors.Wrapf(ErrBudgetExceeded, "more than %d statements executed, at line %d", limit, s.Line())
	}
	return nil
}

// list runs stmts starting at index from. Gotos targeting a label declared
// in stmts are resolved here; other signals are passed on.
func (a *attempt) list(stmts []ir.Stmt, from int) (Signal, error) {
	for i := from; i < len(stmts); i++ {
		sig, err := a.exec(stmts[i])
		if err != nil {
			return sig, err
		}
		switch sig.Kind {
		case Normal:
			continue
		case Goto:
			if j, ok := ir.Declares(stmts, sig.Label); ok {
				i = j - 1
				continue
			}
		}
		return sig, nil
	}
	return normal, nil
}

func (a *attempt) exec(s ir.Stmt) (Signal, error) {
	if err := a.step(s); err != nil {
		return normal, err
	}

	switch s := s.(type) {
	case *ir.Block:
		return a.list(s.Stmts, 0)
	case *ir.Decl, *ir.ExprStmt:
		return normal, a.effect(s)
	case *ir.If:
		return a.ifStmt(s, "")
	case *ir.While:
		return a.loop(s, nil, s.Cond, nil, s.Body, false)
	case *ir.DoWhile:
		return a.loop(s, nil, s.Cond, nil, s.Body, true)
	case *ir.For:
		return a.loop(s, s.Init, s.Cond, s.Post, s.Body, false)
	case *ir.Switch:
		return a.switchStmt(s)
	case *ir.Break:
		return Signal{Kind: Break}, nil
	case *ir.Continue:
		return Signal{Kind: Continue}, nil
	case *ir.Fallthrough:
		return Signal{Kind: Fallthrough}, nil
	case *ir.Goto:
		return Signal{Kind: Goto, Label: s.Label, Line: s.Line()}, nil
	case *ir.GotoCase:
		if s.Value == nil {
			return Signal{Kind: GotoCase, Line: s.Line()}, nil
		}
		v, _, en, err := a.ev.Expr(s.Value, a.env)
		if err != nil {
			return normal, errors.Wrapf(err, "line %d", s.Line())
		}
		a.env = en
		return Signal{Kind: GotoCase, Value: v, Line: s.Line()}, nil
	case *ir.Labeled:
		if c, ok := s.Stmt.(*ir.If); ok {
			return a.ifStmt(c, s.Label)
		}
		return a.exec(s.Stmt)
	case *ir.Return:
		return a.ret(s)
	case *ir.Try:
		// Handlers are not modeled.
		return a.list(s.Body.Stmts, 0)
	case *ir.Empty:
		return normal, nil
	}
	return normal, errors.Errorf("line %d: unexpected %T", s.Line(), s)
}

// effect executes and logs a simple statement.
func (a *attempt) effect(s ir.Stmt) error {
	v, acc, en, err := a.ev.Stmt(s, a.env)
	if err != nil {
		return errors.Wrapf(err, "line %d", s.Line())
	}
	a.env = en
	a.log = append(a.log, Entry{Kind: Effect, Stmt: s, Value: v, Env: en, Access: acc})
	return nil
}

func (a *attempt) ret(s *ir.Return) (Signal, error) {
	var v L.Value
	acc := eval.NewAccess()
	if s.Value != nil {
		var (
			en  env.Env
			err error
		)
		if v, acc, en, err = a.ev.Expr(s.Value, a.env); err != nil {
			return normal, errors.Wrapf(err, "line %d", s.Line())
		}
		a.env = en
	}
	a.log = append(a.log, Entry{Kind: Effect, Stmt: s, Value: v, Env: a.env, Access: acc})
	return Signal{Kind: Return}, nil
}

// decide evaluates the condition of the branch at node n. A hint for the
// line of n overrides the computed outcome and is recorded in the log.
func (a *attempt) decide(n ir.Stmt, cond ir.Expr, label string) (bool, Signal, error) {
	v, acc, en, err := a.ev.Expr(cond, a.env)
	if err != nil {
		return false, normal, errors.Wrapf(err, "line %d", n.Line())
	}
	a.env = en

	if h, ok := a.hints.Get(n.Line()); ok {
		a.log = append(a.log, Entry{
			Kind:   Branch,
			Stmt:   n,
			Value:  v,
			Env:    en,
			Access: acc,
			Cond:   cond,
			Taken:  h,
			Label:  label,
		})
		return h, normal, nil
	}
	if b, ok := L.AsBool(v); ok {
		return b, normal, nil
	}
	return false, Signal{Kind: Undetermined, Line: n.Line()}, nil
}

func (a *attempt) ifStmt(s *ir.If, label string) (Signal, error) {
	taken, sig, err := a.decide(s, s.Cond, label)
	if err != nil || sig.Kind != Normal {
		return sig, err
	}
	switch {
	case taken:
		return a.list(s.Then.Stmts, 0)
	case s.Else != nil:
		return a.exec(s.Else)
	}
	return normal, nil
}

// loop runs all loop forms. A nil condition is always true; a do-while
// loop skips the first check.
func (a *attempt) loop(s ir.Stmt, init ir.Stmt, cond ir.Expr, post ir.Stmt, body *ir.Block, doWhile bool) (Signal, error) {
	if init != nil {
		if err := a.counter(init); err != nil {
			return normal, err
		}
	}

	for first := true; ; first = false {
		if !first {
			if err := a.step(s); err != nil {
				return normal, err
			}
		}
		if cond != nil && !(doWhile && first) {
			taken, sig, err := a.decide(s, cond, "")
			if err != nil || sig.Kind != Normal {
				return sig, err
			}
			if !taken {
				return normal, nil
			}
		}

		sig, err := a.list(body.Stmts, 0)
		if err != nil {
			return sig, err
		}
		switch sig.Kind {
		case Break:
			return normal, nil
		case Normal, Continue:
		default:
			return sig, nil
		}

		if post != nil {
			if err := a.counter(post); err != nil {
				return normal, err
			}
		}
	}
}

// counter executes the init or post statement of a loop header and flags
// the variables it writes as loop counters.
func (a *attempt) counter(s ir.Stmt) error {
	n := len(a.log)
	if err := a.effect(s); err != nil {
		return err
	}
	for name := range a.log[n].Access.Writes.Items() {
		a.env = a.env.MarkLoopCounter(name)
	}
	a.log[n].Env = a.env
	return nil
}

func (a *attempt) switchStmt(s *ir.Switch) (Signal, error) {
	if s.Tag == nil {
		i, sig, err := a.firstTrue(s)
		if err != nil || sig.Kind != Normal || i < 0 {
			return sig, err
		}
		return a.sections(s, i, 0)
	}

	tag, acc, en, err := a.ev.Expr(s.Tag, a.env)
	if err != nil {
		return normal, errors.Wrapf(err, "line %d", s.Line())
	}
	a.env = en
	for name := range acc.Reads.Items() {
		a.disc.Insert(name)
		a.env = a.env.MarkDispatch(name, true)
	}

	i, err := a.match(s, tag)
	if err != nil || i < 0 {
		return normal, err
	}
	return a.sections(s, i, 0)
}

// firstTrue selects the first section of a switch without tag whose
// condition holds, or the default section. Each section is a decision on
// its own line, joining its values with ||.
func (a *attempt) firstTrue(s *ir.Switch) (int, Signal, error) {
	def := -1
	for i, c := range s.Cases {
		if c.Values == nil {
			def = i
			continue
		}
		if len(c.Values) == 0 {
			continue
		}
		cond := c.Values[0]
		for _, v := range c.Values[1:] {
			cond = &ir.Binary{Pos: ir.At(0, c.Line()), Op: ir.OpLOr, X: cond, Y: v}
		}
		taken, sig, err := a.decide(c, cond, "")
		if err != nil || sig.Kind != Normal {
			return -1, sig, err
		}
		if taken {
			return i, normal, nil
		}
	}
	return def, normal, nil
}

// match finds the section selected by v, or the default section if v is
// nil. The index is -1 if no section is selected.
func (a *attempt) match(s *ir.Switch, v L.Value) (int, error) {
	def := -1
	for i, c := range s.Cases {
		if c.Values == nil {
			def = i
			continue
		}
		if v == nil {
			continue
		}
		for _, ce := range c.Values {
			cv, _, en, err := a.ev.Expr(ce, a.env)
			if err != nil {
				return -1, errors.Wrapf(err, "line %d", c.Line())
			}
			a.env = en

			eq, err := L.Eq(v, cv)
			if err != nil {
				eq = elem.Top()
			}
			b, ok := L.AsBool(eq)
			switch {
			case !ok:
				return -1, errors.Wrapf(ErrUndecidableSwitch, "line %d: %s against %s", s.Line(), v, cv)
			case b:
				return i, nil
			}
		}
	}
	return def, nil
}

// sections runs the switch starting at statement from of section i.
func (a *attempt) sections(s *ir.Switch, i, from int) (Signal, error) {
	for {
		sig, err := a.list(s.Cases[i].Body, from)
		if err != nil {
			return sig, err
		}

		switch sig.Kind {
		case Normal, Break:
			return normal, nil
		case Fallthrough:
			if i+1 >= len(s.Cases) {
				return normal, nil
			}
			i, from = i+1, 0
		case GotoCase:
			j, err := a.match(s, sig.Value)
			if err != nil || j < 0 {
				return normal, err
			}
			i, from = j, 0
		case Goto:
			j, k, ok := sectionOf(s, sig.Label)
			if !ok {
				return sig, nil
			}
			i, from = j, k
		default:
			return sig, nil
		}

		if err := a.step(s); err != nil {
			return normal, err
		}
	}
}

// sectionOf finds the section and statement index declaring label.
func sectionOf(s *ir.Switch, label string) (section, index int, ok bool) {
	for i, c := range s.Cases {
		if j, ok := ir.Declares(c.Body, label); ok {
			return i, j, true
		}
	}
	return -1, -1, false
}
