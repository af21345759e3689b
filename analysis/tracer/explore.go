package tracer

import (
	"log"

	"github.com/pkg/errors"

	"github.com/zed-0xff/cs-reflow-sub000/analysis/env"
	"github.com/zed-0xff/cs-reflow-sub000/utils/worklist"
)

// Node is an attempt of the exploration tree. An attempt stopped at an
// undecidable branch has two children, one per outcome.
type Node struct {
	ID    int
	Hints Hints
	// Line of the undecidable branch, or 0.
	Line int
	Log  *Log
	Err  error
	// Children for the true and false outcomes.
	Children []*Node
}

// Exploration is the result of exploring every outcome of the undecidable
// branches of a body.
type Exploration struct {
	Root *Node
	// Completed traces in order of completion.
	Logs []*Log
	// Number of traced attempts.
	Attempts int
	// Number of attempts stopped at an undecidable branch.
	Undetermined int
}

// Explore traces the body under hints, and under every extension of hints
// needed to decide the branches met on the way. Attempts are processed in
// FIFO order. The first attempt failing for another reason than an
// undecidable branch stops the exploration.
func (t *Tracer) Explore(hints Hints, init env.Env) (*Exploration, error) {
	ex := &Exploration{Root: &Node{Hints: hints}}
	ids := 0
	child := func(h Hints) *Node {
		ids++
		return &Node{ID: ids, Hints: h}
	}

	var failure error
	W := worklist.Empty[*Node]()
	W.Add(ex.Root)
	drained := W.ProcessBounded(t.cfg.MaxAttempts, func(n *Node, add func(*Node)) bool {
		ex.Attempts++
		if t.cfg.Logging {
			log.Printf("attempt %d: {%s}", ex.Attempts, n.Hints)
		}

		lg, err := t.Trace(n.Hints, init)
		if ue, ok := IsUndetermined(err); ok {
			ex.Undetermined++
			n.Line = ue.Line
			for _, b := range []bool{true, false} {
				c := child(n.Hints.With(ue.Line, b))
				n.Children = append(n.Children, c)
				add(c)
			}
			return true
		}
		if err != nil {
			n.Err = err
			failure = errors.Wrapf(err, "hints {%s}", n.Hints)
			return false
		}

		n.Log = lg
		ex.Logs = append(ex.Logs, lg)
		return true
	})

	switch {
	case failure != nil:
		return ex, failure
	case !drained:
		return ex, errors.Wrapf(ErrBudgetExceeded, "more than %d attempts", t.cfg.MaxAttempts)
	}
	return ex, nil
}
