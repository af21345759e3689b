package tracer

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrBudgetExceeded is returned when an attempt executes more statements
// than allowed, or exploration runs more attempts than allowed.
var ErrBudgetExceeded = errors.New("budget exceeded")

// ErrUndecidableSwitch is returned when a switch discriminant matches no
// section for certain but may match some. Hints cannot resolve it.
var ErrUndecidableSwitch = errors.New("undecidable switch")

// UndeterminedError reports a branch whose outcome is neither computed
// nor hinted.
type UndeterminedError struct {
	Line  int
	Hints Hints
}

func (e *UndeterminedError) Error() string {
	if e.Hints.Len() == 0 {
		return fmt.Sprintf("undetermined branch at line %d", e.Line)
	}
	return fmt.Sprintf("undetermined branch at line %d under hints %s", e.Line, e.Hints)
}

// UnresolvedLabelError reports a goto whose label is not declared in any
// enclosing statement list.
type UnresolvedLabelError struct {
	Label string
	Line  int
}

func (e *UnresolvedLabelError) Error() string {
	return fmt.Sprintf("line %d: unresolved label %s", e.Line, e.Label)
}

// DuplicateLabelError reports a label declared more than once in a body.
type DuplicateLabelError struct {
	Label string
	Lines []int
}

func (e *DuplicateLabelError) Error() string {
	return fmt.Sprintf("label %s declared at lines %v", e.Label, e.Lines)
}

// IsUndetermined checks whether err is an UndeterminedError and returns it.
func IsUndetermined(err error) (*UndeterminedError, bool) {
	var ue *UndeterminedError
	ok := errors.As(err, &ue)
	return ue, ok
}
