package testutil

import (
	"fmt"
	"strings"

	"golang.org/x/tools/go/expect"
)

type basicAnnotation struct {
	note *expect.Note
	mgr  NotesManager
}

func (a basicAnnotation) Note() *expect.Note {
	return a.note
}

func (a basicAnnotation) Name() string {
	return a.note.Name
}

func (a basicAnnotation) Manager() NotesManager {
	return a.mgr
}

// Line of the annotated program point.
func (a basicAnnotation) Line() int {
	return a.mgr.file.Fset.Position(a.note.Pos).Line
}

type annList []Annotation

// Returns all annotations found on the same line as the given annotation.
func (a1 basicAnnotation) Related() annList {
	as := make([]Annotation, 0, 2)

	for _, n2 := range a1.mgr.notes {
		if n2 != a1.note && a1.mgr.lineOf(n2) == a1.Line() {
			as = append(as, a1.mgr.AnnotationOf(n2))
		}
	}

	return as
}

func (a basicAnnotation) String() string {
	npos := a.mgr.file.Fset.Position(a.note.Pos)
	args := make([]string, 0, len(a.note.Args))
	for _, arg := range a.note.Args {
		args = append(args, fmt.Sprintf("%v", arg))
	}
	return "//@ Basic annotation: " + a.note.Name + "(" +
		strings.Join(args, ", ") + ") at " + npos.String()
}

func (l annList) Find(pred func(Annotation) bool) (Annotation, bool) {
	for _, a := range l {
		if pred(a) {
			return a, true
		}
	}
	return nil, false
}

func (l annList) Exists(pred func(Annotation) bool) bool {
	_, found := l.Find(pred)
	return found
}
