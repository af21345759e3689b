// Package merge folds traces that part at a single decision back into one
// trace holding a conditional.
package merge

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/zed-0xff/cs-reflow-sub000/analysis/env"
	"github.com/zed-0xff/cs-reflow-sub000/analysis/ir"
	L "github.com/zed-0xff/cs-reflow-sub000/analysis/lattice"
	"github.com/zed-0xff/cs-reflow-sub000/analysis/tracer"
)

// ConfluenceViolation reports two traces whose shared parts do not agree.
// It points at a tracer defect or at an unsupported flattening pattern.
type ConfluenceViolation struct {
	// Line of the decision being merged.
	Line int
	// Line of the offending entry.
	At     int
	Reason string
}

func (e *ConfluenceViolation) Error() string {
	return fmt.Sprintf("confluence violation merging line %d, at line %d: %s", e.Line, e.At, e.Reason)
}

// Merge joins two traces whose hints differ at exactly one line L. The
// entries before the decision at L must agree exactly. The entries after
// it are split into a common suffix and two arms, which become the
// branches of the conditional at L. The arm of the trace taking the
// branch comes first.
func Merge(a, b *tracer.Log) (*tracer.Log, error) {
	line, ok := a.Hints.SplitAt(b.Hints)
	if !ok {
		return nil, errors.Errorf("hints {%s} and {%s} do not differ at exactly one line", a.Hints, b.Hints)
	}
	if taken, _ := a.Hints.Get(line); !taken {
		a, b = b, a
	}
	violation := func(at int, format string, args ...interface{}) error {
		return &ConfluenceViolation{Line: line, At: at, Reason: fmt.Sprintf(format, args...)}
	}

	ai, bi := marker(a.Entries, line), marker(b.Entries, line)
	if ai < 0 || bi < 0 {
		return nil, violation(line, "decision not reached by both traces")
	}
	if ai != bi {
		return nil, violation(line, "traces reach the decision after %d and %d steps", ai, bi)
	}
	for i := 0; i < ai; i++ {
		ea, eb := a.Entries[i], b.Entries[i]
		switch {
		case !ea.Same(eb):
			return nil, violation(ea.Line(), "%s differs from %s", ir.Format(ea.Stmt), ir.Format(eb.Stmt))
		case !ea.Env.Equal(eb.Env):
			return nil, violation(ea.Line(), "environments differ in %v", ea.Env.Diff(eb.Env))
		}
	}

	branch := a.Entries[ai]
	if branch.Label == "" {
		branch.Label = b.Entries[bi].Label
	}
	ra, rb := a.Entries[ai+1:], b.Entries[bi+1:]

	fa, fb := fingerprints(ra), fingerprints(rb)
	n := 0
	for n < len(ra) && n < len(rb) {
		i, j := len(ra)-1-n, len(rb)-1-n
		if fa[i] != fb[j] || !ra[i].Same(rb[j]) {
			break
		}
		n++
	}
	then, els := ra[:len(ra)-n], rb[:len(rb)-n]

	suffix := make([]tracer.Entry, n)
	for i := range suffix {
		ea, eb := ra[len(then)+i], rb[len(els)+i]
		e, err := join(ea, eb)
		if err != nil {
			return nil, violation(ea.Line(), "%v", err)
		}
		suffix[i] = e
	}

	entries := append([]tracer.Entry(nil), a.Entries[:ai]...)
	if returns(then) && len(els) > 0 {
		// The else arm follows the conditional.
		entries = append(entries, tracer.NewMerged(branch, then, nil))
		entries = append(entries, els...)
	} else {
		entries = append(entries, tracer.NewMerged(branch, then, els))
	}
	entries = append(entries, suffix...)

	final, err := joinEnv(a.Env, b.Env)
	if err != nil {
		return nil, violation(line, "final environments: %v", err)
	}

	disc := a.Discriminants.Copy()
	disc.InsertSet(b.Discriminants)

	return &tracer.Log{
		Entries:       entries,
		Hints:         a.Hints.Without(line),
		Env:           final,
		Discriminants: disc,
	}, nil
}

func fingerprints(entries []tracer.Entry) []uint64 {
	fps := make([]uint64, len(entries))
	for i, e := range entries {
		fps[i] = e.Fingerprint()
	}
	return fps
}

// marker finds the first top-level branch entry at line.
func marker(entries []tracer.Entry, line int) int {
	for i, e := range entries {
		if e.Kind == tracer.Branch && e.Line() == line {
			return i
		}
	}
	return -1
}

// returns checks whether an arm ends in an explicit return.
func returns(arm []tracer.Entry) bool {
	if len(arm) == 0 {
		return false
	}
	last := arm[len(arm)-1]
	_, ok := last.Stmt.(*ir.Return)
	return last.Kind == tracer.Effect && ok
}

// join combines equivalent entries of two traces.
func join(a, b tracer.Entry) (tracer.Entry, error) {
	en, err := joinEnv(a.Env, b.Env)
	if err != nil {
		return a, err
	}
	a.Env = en
	if a.Value != nil && b.Value != nil {
		if a.Value, err = joinValue(a.Value, b.Value); err != nil {
			return a, errors.Wrap(err, ir.Format(a.Stmt))
		}
	}
	a.Access = a.Access.Merge(b.Access)
	return a, nil
}

func joinValue(a, b L.Value) (L.Value, error) {
	v := L.Join(a, b)
	if _, top := v.(L.Top); top && a.Type() != nil && b.Type() != nil {
		return nil, errors.Errorf("%s and %s have different types", a, b)
	}
	return v, nil
}

// joinEnv joins environments, rejecting bindings whose types disagree.
func joinEnv(a, b env.Env) (env.Env, error) {
	for _, name := range a.Diff(b) {
		av, aok := a.Value(name)
		bv, bok := b.Value(name)
		if !aok || !bok {
			continue
		}
		if _, err := joinValue(av, bv); err != nil {
			return a, errors.Wrap(err, name)
		}
	}
	return a.Join(b), nil
}

// All merges traces pairwise until one remains. Each round merges the
// pair parting at the decision reached last, so inner decisions are
// folded before the ones enclosing them. If not nil, merged is called
// after each merge with the line of the decision it folded.
func All(logs []*tracer.Log, merged func(line int, lg *tracer.Log)) (*tracer.Log, int, error) {
	if len(logs) == 0 {
		return nil, 0, errors.New("no traces to merge")
	}
	logs = append([]*tracer.Log(nil), logs...)

	merges := 0
	for len(logs) > 1 {
		i, j := pair(logs)
		if i < 0 {
			hints := make([]string, len(logs))
			for k, lg := range logs {
				hints[k] = "{" + lg.Hints.String() + "}"
			}
			return nil, merges, errors.Errorf("no two of %d traces can be merged: %v", len(logs), hints)
		}

		line, _ := logs[i].Hints.SplitAt(logs[j].Hints)
		m, err := Merge(logs[i], logs[j])
		if err != nil {
			return nil, merges, err
		}
		merges++
		if merged != nil {
			merged(line, m)
		}
		logs[i] = m
		logs = append(logs[:j], logs[j+1:]...)
	}
	return logs[0], merges, nil
}

// pair picks the mergeable pair whose decision comes last in the trace.
func pair(logs []*tracer.Log) (int, int) {
	bi, bj, best := -1, -1, -1
	for i := range logs {
		for j := i + 1; j < len(logs); j++ {
			line, ok := logs[i].Hints.SplitAt(logs[j].Hints)
			if !ok {
				continue
			}
			if at := marker(logs[i].Entries, line); at > best {
				bi, bj, best = i, j, at
			}
		}
	}
	return bi, bj
}
