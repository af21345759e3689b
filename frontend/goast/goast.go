// Package goast lowers the body of a Go function to the statement tree
// traced by the reflow engine.
//
// Only the integer and boolean fragment of Go is supported. Calls are
// opaque and yield no value. Untyped constants whose type cannot be
// inferred from their context take the first of int32, uint32, int64 and
// uint64 that holds them. The pseudo-calls gotoCase(v) and gotoDefault()
// transfer control to a section of the enclosing switch.
package goast

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"

	"github.com/pkg/errors"

	"github.com/zed-0xff/cs-reflow-sub000/analysis/env"
	"github.com/zed-0xff/cs-reflow-sub000/analysis/ir"
	"github.com/zed-0xff/cs-reflow-sub000/analysis/itypes"
	L "github.com/zed-0xff/cs-reflow-sub000/analysis/lattice"
)

// File is a parsed and type checked Go source file.
type File struct {
	Fset *token.FileSet
	AST  *ast.File
	Info *types.Info
	// Type errors. Functions declared in other files are reported here
	// but do not prevent lowering.
	Errors []error

	comments ast.CommentMap
}

// ParseFile parses a Go source file. If src is nil the file is read from
// filename.
func ParseFile(filename string, src any) (*File, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", filename)
	}
	normalize(f)

	file := &File{
		Fset: fset,
		AST:  f,
		Info: &types.Info{
			Types: make(map[ast.Expr]types.TypeAndValue),
			Defs:  make(map[*ast.Ident]types.Object),
			Uses:  make(map[*ast.Ident]types.Object),
		},
		comments: ast.NewCommentMap(fset, f, f.Comments),
	}
	conf := types.Config{
		Importer: importer.ForCompiler(fset, "source", nil),
		Error: func(err error) {
			file.Errors = append(file.Errors, err)
		},
	}
	// Errors are collected above.
	_, _ = conf.Check(f.Name.Name, fset, []*ast.File{f}, file.Info)

	return file, nil
}

// Functions lists the names of the functions with a body, in source order.
func (f *File) Functions() []string {
	var names []string
	for _, d := range f.AST.Decls {
		if fd, ok := d.(*ast.FuncDecl); ok && fd.Body != nil {
			names = append(names, fd.Name.Name)
		}
	}
	return names
}

// Function lowers the function called name. An empty name selects the
// first function of the file.
func (f *File) Function(name string) (*Function, error) {
	for _, d := range f.AST.Decls {
		fd, ok := d.(*ast.FuncDecl)
		if !ok || fd.Body == nil || (name != "" && fd.Name.Name != name) {
			continue
		}
		return f.lower(fd)
	}
	if name == "" {
		return nil, errors.Errorf("%s declares no function", f.Fset.File(f.AST.Pos()).Name())
	}
	return nil, errors.Errorf("function %s not found", name)
}

// Param is a parameter of integer or boolean type.
type Param struct {
	Name string
	Type *itypes.Type
}

// Function is a lowered function.
type Function struct {
	Name string
	// Parameters of unsupported types are omitted.
	Params []Param
	Body   *ir.Block
}

// Env binds every parameter to an unknown value of its type.
func (fn *Function) Env() env.Env {
	en := env.New()
	for _, p := range fn.Params {
		en = en.Set(p.Name, L.Elements().Unknown(p.Type))
	}
	return en
}

func (fn *Function) String() string {
	return "func " + fn.Name + "() " + ir.Format(fn.Body)
}
