package goast

import (
	"go/ast"

	"golang.org/x/tools/go/ast/astutil"
)

// normalize hoists the init statement of if and switch statements into a
// block enclosing the statement, which keeps the scope of the variables
// it declares.
func normalize(f *ast.File) {
	hoist := func(c *astutil.Cursor, init *ast.Stmt, n ast.Stmt) {
		s := *init
		*init = nil
		c.Replace(&ast.BlockStmt{
			Lbrace: n.Pos(),
			List:   []ast.Stmt{s, n},
			Rbrace: n.End(),
		})
	}

	astutil.Apply(f, nil, func(c *astutil.Cursor) bool {
		switch n := c.Node().(type) {
		case *ast.IfStmt:
			if n.Init != nil {
				hoist(c, &n.Init, n)
			}
		case *ast.SwitchStmt:
			if n.Init != nil {
				hoist(c, &n.Init, n)
			}
		}
		return true
	})
}
