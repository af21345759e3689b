package tracer

import (
	"fmt"

	L "github.com/zed-0xff/cs-reflow-sub000/analysis/lattice"
)

// SignalKind tells how control left a statement.
type SignalKind int

const (
	// Normal completion: continue with the next statement.
	Normal SignalKind = iota
	Break
	Continue
	// Fallthrough transfers control to the next switch section.
	Fallthrough
	Return
	Goto
	GotoCase
	// Undetermined aborts the attempt at an undecidable branch.
	Undetermined
)

// Signal is the result of executing a statement. Control transfers unwind
// through the enclosing constructs until one of them handles the signal.
type Signal struct {
	Kind SignalKind
	// Target label of a Goto.
	Label string
	// Target value of a GotoCase, nil for the default section.
	Value L.Value
	// Line of the undecidable branch.
	Line int
}

var normal = Signal{}

func (s Signal) String() string {
	switch s.Kind {
	case Normal:
		return "normal"
	case Break:
		return "break"
	case Continue:
		return "continue"
	case Fallthrough:
		return "fallthrough"
	case Return:
		return "return"
	case Goto:
		return "goto " + s.Label
	case GotoCase:
		if s.Value == nil {
			return "goto default"
		}
		return fmt.Sprintf("goto case %s", s.Value)
	case Undetermined:
		return fmt.Sprintf("undetermined at line %d", s.Line)
	}
	return "?"
}
