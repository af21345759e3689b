package testutil

import (
	"strings"

	"golang.org/x/tools/go/expect"
)

var (
	id_DISPATCH = "dispatch"
	id_DECISION = "decision"
	id_FAILS    = "fails"
)

// Convert expect.Identifier to string.
func idToStr(x interface{}) string {
	return string(x.(expect.Identifier))
}

type annFactory struct{}

// Factory for creating annotation strings. Interpolate
// results with Go source code. Wrap multiple factory calls
// in the At function to concatenate multiple annotations
// on the same line and prefix with "//@ "
var Ann = annFactory{}

// Create a dispatch annotation. Placed on the line of a function, it lists
// the variables the reflow is expected to identify as dispatch variables.
func (annFactory) Dispatch(vars ...string) string {
	return id_DISPATCH + "(" + strings.Join(vars, ", ") + ")"
}

// Decision tag. The branch on the annotated line cannot be decided and is
// expected to split the exploration.
func (annFactory) Decision() string {
	return id_DECISION
}

// Failure tag. The reflow of the annotated function is expected to fail.
func (annFactory) Fails() string {
	return id_FAILS
}

// Concatenate annotations and prefix with "//@ ".
func At(anns ...string) string {
	return "//@ " + strings.Join(anns, ", ")
}
