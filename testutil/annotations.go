package testutil

import (
	"slices"
	"strconv"

	"golang.org/x/tools/go/expect"
)

type Annotation interface {
	// Returns related annotations (created from notes on the same line).
	Related() annList
	String() string

	Note() *expect.Note
	Line() int
	Manager() NotesManager
}

// AnnDispatch lists the expected dispatch variables of the function
// declared on the annotated line.
type AnnDispatch struct {
	basicAnnotation
	vars []string
}

// Vars returns the expected dispatch variables in lexical order.
func (a AnnDispatch) Vars() []string {
	return a.vars
}

func (a AnnDispatch) String() string {
	return At(Ann.Dispatch(a.vars...)) + " at line " + strconv.Itoa(a.Line())
}

// AnnDecision marks a branch that cannot be decided.
type AnnDecision struct {
	basicAnnotation
}

func (a AnnDecision) String() string {
	return At(Ann.Decision()) + " at line " + strconv.Itoa(a.Line())
}

// AnnFails marks a function whose reflow fails.
type AnnFails struct {
	basicAnnotation
}

func (a AnnFails) String() string {
	return At(Ann.Fails()) + " at line " + strconv.Itoa(a.Line())
}

func (n NotesManager) CreateAnnotation(note *expect.Note) Annotation {
	basic := basicAnnotation{note: note, mgr: n}

	switch note.Name {
	case id_DISPATCH:
		vars := make([]string, 0, len(note.Args))
		for _, arg := range note.Args {
			vars = append(vars, idToStr(arg))
		}
		slices.Sort(vars)
		return AnnDispatch{basic, vars}
	case id_DECISION:
		return AnnDecision{basic}
	case id_FAILS:
		return AnnFails{basic}
	}
	return basic
}
