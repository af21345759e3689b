package testutil

import (
	"fmt"
	"go/ast"
	"testing"

	"golang.org/x/tools/go/expect"

	"github.com/zed-0xff/cs-reflow-sub000/frontend/goast"
)

// NotesManager holds the //@ notes found in the declaration of a function.
type NotesManager struct {
	anns  map[*expect.Note]Annotation
	notes []*expect.Note

	file *goast.File
}

func MakeNotesManager(t *testing.T, file *goast.File, fun string) (n NotesManager) {
	t.Helper()

	n.file = file
	n.anns = make(map[*expect.Note]Annotation)

	notes, err := expect.ExtractGo(file.Fset, file.AST)
	if err != nil {
		t.Fatal(err)
	}

	var decl *ast.FuncDecl
	for _, d := range file.AST.Decls {
		if fd, ok := d.(*ast.FuncDecl); ok && fd.Name.Name == fun {
			decl = fd
			break
		}
	}
	if decl == nil {
		t.Fatalf("function %s not found", fun)
	}

	for _, note := range notes {
		if decl.Pos() <= note.Pos && note.Pos < decl.End() {
			n.notes = append(n.notes, note)
		}
	}

	for _, note := range n.notes {
		n.anns[note] = n.CreateAnnotation(note)
	}
	return
}

func (n NotesManager) lineOf(note *expect.Note) int {
	return n.file.Fset.Position(note.Pos).Line
}

func (n NotesManager) ForEachNote(do func(i int, note *expect.Note)) {
	for i, note := range n.notes {
		do(i, note)
	}
}

// ForEachAnnotation visits the annotations in source order.
func (n NotesManager) ForEachAnnotation(do func(a Annotation)) {
	for _, note := range n.notes {
		do(n.anns[note])
	}
}

func (n NotesManager) AnnotationOf(note *expect.Note) Annotation {
	return n.anns[note]
}

func (n NotesManager) String() (str string) {
	str = "Note manager found the following notes:\n\n"
	for _, note := range n.notes {
		pos := n.file.Fset.Position(note.Pos)
		str += fmt.Sprintf("%s(%v) at position: %s\n", note.Name, note.Args, pos)
		str += "Annotation:\n" + n.anns[note].String() + "\n"
	}
	return
}

func (n NotesManager) Notes() []*expect.Note {
	return n.notes
}

func (n NotesManager) FindAllAnnotations(pred func(Annotation) bool) annList {
	res := []Annotation{}
	n.ForEachAnnotation(func(a Annotation) {
		if pred(a) {
			res = append(res, a)
		}
	})
	return res
}

// Dispatch returns the dispatch annotation of the function, if any.
func (n NotesManager) Dispatch() (AnnDispatch, bool) {
	a, found := n.FindAllAnnotations(func(a Annotation) bool {
		_, ok := a.(AnnDispatch)
		return ok
	}).Find(func(Annotation) bool { return true })
	if !found {
		return AnnDispatch{}, false
	}
	return a.(AnnDispatch), true
}

// Decisions returns the lines annotated as undecidable branches, in source
// order.
func (n NotesManager) Decisions() []int {
	lines := []int{}
	for _, a := range n.FindAllAnnotations(func(a Annotation) bool {
		_, ok := a.(AnnDecision)
		return ok
	}) {
		lines = append(lines, a.Line())
	}
	return lines
}

// Fails checks whether the function is annotated as failing.
func (n NotesManager) Fails() bool {
	return n.FindAllAnnotations(func(a Annotation) bool {
		_, ok := a.(AnnFails)
		return ok
	}).Exists(func(Annotation) bool { return true })
}
