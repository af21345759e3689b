// Package reflow rebuilds the body of a control-flow flattened function.
// The body is traced under every outcome of the branches that cannot be
// decided, the traces are merged back into one, and the statements that
// only drive the dispatch are dropped.
package reflow

import (
	"fmt"
	"log"
	"slices"
	"strings"

	"github.com/hashicorp/go-set/v3"
	"github.com/pkg/errors"

	"github.com/zed-0xff/cs-reflow-sub000/analysis/env"
	"github.com/zed-0xff/cs-reflow-sub000/analysis/ir"
	L "github.com/zed-0xff/cs-reflow-sub000/analysis/lattice"
	"github.com/zed-0xff/cs-reflow-sub000/analysis/merge"
	"github.com/zed-0xff/cs-reflow-sub000/analysis/tracer"
	"github.com/zed-0xff/cs-reflow-sub000/utils"
)

type Config struct {
	Tracer tracer.Config
	// Hints every attempt starts from.
	Hints tracer.Hints
	// Annotate statements with the constant values they compute.
	Annotate bool
}

// ConfigFromOpts builds the configuration given on the command line.
func ConfigFromOpts() (Config, error) {
	opts := utils.Opts()
	hints, err := tracer.ParseHints(opts.Hints())
	if err != nil {
		return Config{}, err
	}
	return Config{
		Tracer: tracer.Config{
			MaxSteps:    opts.MaxSteps(),
			MaxAttempts: opts.MaxAttempts(),
			Logging:     opts.TraceLogging(),
		},
		Hints:    hints,
		Annotate: opts.Annotate(),
	}, nil
}

// Line is a statement of the rebuilt body. Value is the value computed by
// the statement if it is a constant, or nil.
type Line struct {
	Stmt  ir.Stmt
	Value L.Value
}

func (l Line) String() string {
	return ir.Format(l.Stmt)
}

// Report is the outcome of a successful reflow.
type Report struct {
	Lines []Line
	// The single trace all completed traces were merged into.
	Merged      *tracer.Log
	Exploration *tracer.Exploration
	// Variables whose statements were dropped.
	Dispatch *set.Set[string]

	Attempts     int
	Undetermined int
	Merges       int
}

func (r *Report) Stmts() []ir.Stmt {
	stmts := make([]ir.Stmt, len(r.Lines))
	for i, l := range r.Lines {
		stmts[i] = l.Stmt
	}
	return stmts
}

// String renders the rebuilt body.
func (r *Report) String() string {
	return ir.FormatStmts(r.Stmts())
}

// Summary lists the counters of the run.
func (r *Report) Summary() string {
	dispatch := r.Dispatch.Slice()
	slices.Sort(dispatch)
	return fmt.Sprintf("%d attempts, %d undetermined, %d merges, dispatch variables: [%s]",
		r.Attempts, r.Undetermined, r.Merges, strings.Join(dispatch, " "))
}

// Failure reports a reflow that could not complete, with the hints in
// effect when it stopped.
type Failure struct {
	Hints tracer.Hints
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("reflow failed under hints {%s}: %v", f.Hints, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

func (f *Failure) Cause() error { return f.Err }

// Run rebuilds body, starting every attempt from init.
func Run(body *ir.Block, init env.Env, cfg Config) (*Report, error) {
	tr := tracer.New(body, cfg.Tracer)

	ex, err := tr.Explore(cfg.Hints, init)
	if err != nil {
		return nil, failure(ex, cfg.Hints, err)
	}
	if cfg.Tracer.Logging {
		log.Printf("explored %d attempts, %d completed", ex.Attempts, len(ex.Logs))
	}

	merged, merges, err := merge.All(ex.Logs, func(line int, lg *tracer.Log) {
		if cfg.Tracer.Logging {
			log.Printf("merged at line %d, remaining hints {%s}", line, lg.Hints)
		}
	})
	if err != nil {
		return nil, &Failure{Hints: cfg.Hints, Err: errors.Wrapf(err, "merging %d traces", len(ex.Logs))}
	}

	entries := merged.Entries
	if n := len(entries); n > 0 && entries[n-1].Kind == tracer.End {
		entries = entries[:n-1]
	}
	dispatch := tracer.DispatchVariables(entries, merged.Discriminants)
	entries = tracer.DropDispatch(entries, dispatch)
	if cfg.Annotate {
		entries = annotate(entries)
	}

	r := &Report{
		Merged:       merged,
		Exploration:  ex,
		Dispatch:     dispatch,
		Attempts:     ex.Attempts,
		Undetermined: ex.Undetermined,
		Merges:       merges,
	}
	for _, e := range entries {
		switch e.Kind {
		case tracer.Effect:
			var v L.Value
			if L.IsConst(e.Value) {
				v = e.Value
			}
			r.Lines = append(r.Lines, Line{Stmt: e.Stmt, Value: v})
		case tracer.Merged:
			r.Lines = append(r.Lines, Line{Stmt: e.Stmt})
		}
	}
	return r, nil
}

// failure locates the attempt that stopped the exploration.
func failure(ex *tracer.Exploration, hints tracer.Hints, err error) error {
	if ex != nil {
		var find func(n *tracer.Node) *tracer.Node
		find = func(n *tracer.Node) *tracer.Node {
			if n.Err != nil {
				return n
			}
			for _, c := range n.Children {
				if f := find(c); f != nil {
					return f
				}
			}
			return nil
		}
		if n := find(ex.Root); n != nil {
			return &Failure{Hints: n.Hints, Err: n.Err}
		}
	}
	return &Failure{Hints: hints, Err: err}
}

// annotate attaches computed constants to the statements as comments.
// Statements are copied, the input body is left untouched.
func annotate(entries []tracer.Entry) []tracer.Entry {
	res := make([]tracer.Entry, len(entries))
	for i, e := range entries {
		switch {
		case e.Kind == tracer.Merged:
			e = tracer.Rebuild(e, annotate(e.Then), annotate(e.Else))
		case e.Kind == tracer.Effect && L.IsConst(e.Value):
			e.Stmt = withComment(e.Stmt, e.Value.(L.Const).Literal())
		}
		res[i] = e
	}
	return res
}

func withComment(s ir.Stmt, c string) ir.Stmt {
	switch s := s.(type) {
	case *ir.Decl:
		cp := *s
		return ir.SetComment(&cp, c)
	case *ir.ExprStmt:
		cp := *s
		return ir.SetComment(&cp, c)
	case *ir.Return:
		cp := *s
		return ir.SetComment(&cp, c)
	}
	return s
}
