package testutil

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/zed-0xff/cs-reflow-sub000/frontend/goast"
)

// Example is a function of an example file, lowered and ready for tracing,
// together with the notes annotating it.
type Example struct {
	File  *goast.File
	Func  *goast.Function
	Notes NotesManager
}

// LoadExample lowers function fun of an example file. The file is given
// relative to the examples/src directory found under pathToRoot.
func LoadExample(t *testing.T, pathToRoot, file, fun string) Example {
	t.Helper()

	path := filepath.Join(pathToRoot, "examples/src", file)
	f, err := goast.ParseFile(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	return loadFunction(t, f, fun)
}

// LoadSource lowers function fun of the given source.
func LoadSource(t *testing.T, content, fun string) Example {
	t.Helper()

	f, err := goast.ParseFile("source.go", content)
	if err != nil {
		t.Fatal(err)
	}
	return loadFunction(t, f, fun)
}

func loadFunction(t *testing.T, f *goast.File, fun string) Example {
	t.Helper()

	fn, err := f.Function(fun)
	if err != nil {
		t.Fatal(err)
	}
	return Example{
		File:  f,
		Func:  fn,
		Notes: MakeNotesManager(t, f, fn.Name),
	}
}

// ListExamples lists the Go files of a directory of examples, relative to
// the examples/src directory, in lexical order. Files named in blacklist
// are left out.
func ListExamples(t *testing.T, pathToRoot string, blacklist []string, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(filepath.Join(pathToRoot, "examples/src", dir))
	if err != nil {
		t.Fatal(err)
	}

	files := []string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || slices.Contains(blacklist, name) {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	slices.Sort(files)
	return files
}
