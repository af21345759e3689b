// Package ir defines the statement and expression tree the engine traces.
// Every node kind is a closed variant; consumers dispatch with type
// switches.
package ir

import (
	"github.com/zed-0xff/cs-reflow-sub000/analysis/itypes"
	"github.com/zed-0xff/cs-reflow-sub000/analysis/lattice"
)

// Node is implemented by all statements and expressions.
type Node interface {
	// ID is the stable identity of the node across tree edits.
	ID() int
	// Line is the source line of the node. Decision points are keyed by it.
	Line() int
	Comment() string
	String() string
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Pos carries the identity, position and comment of a node.
type Pos struct {
	id      int
	line    int
	comment string
}

func (p Pos) ID() int         { return p.id }
func (p Pos) Line() int       { return p.line }
func (p Pos) Comment() string { return p.comment }

// At creates a position. Nodes built outside of a Builder use it.
func At(id, line int) Pos {
	return Pos{id: id, line: line}
}

// WithComment returns p with a comment attached.
func (p Pos) WithComment(c string) Pos {
	p.comment = c
	return p
}

type (
	Block struct {
		Pos
		Stmts []Stmt
	}

	// Decl declares one variable. Init is nil for declarations without an
	// initializer.
	Decl struct {
		Pos
		Name string
		Type *itypes.Type
		Init Expr
	}

	ExprStmt struct {
		Pos
		X Expr
	}

	// If has an optional Else, which is a *Block or an *If.
	If struct {
		Pos
		Cond Expr
		Then *Block
		Else Stmt
	}

	While struct {
		Pos
		Cond Expr
		Body *Block
	}

	DoWhile struct {
		Pos
		Body *Block
		Cond Expr
	}

	// For has optional Init, Cond and Post.
	For struct {
		Pos
		Init Stmt
		Cond Expr
		Post Stmt
		Body *Block
	}

	Switch struct {
		Pos
		Tag   Expr
		Cases []*Case
	}

	// Case is a switch section. A nil Values list marks the default section.
	Case struct {
		Pos
		Values []Expr
		Body   []Stmt
	}

	Break struct {
		Pos
	}

	Continue struct {
		Pos
	}

	Goto struct {
		Pos
		Label string
	}

	// GotoCase re-dispatches the innermost switch. A nil Value targets the
	// default section.
	GotoCase struct {
		Pos
		Value Expr
	}

	Fallthrough struct {
		Pos
	}

	Labeled struct {
		Pos
		Label string
		Stmt  Stmt
	}

	// Return has an optional Value.
	Return struct {
		Pos
		Value Expr
	}

	// Try keeps its handlers for printing only.
	Try struct {
		Pos
		Body    *Block
		Catch   *Block
		Finally *Block
	}

	Empty struct {
		Pos
	}
)

func (*Block) stmtNode()       {}
func (*Decl) stmtNode()        {}
func (*ExprStmt) stmtNode()    {}
func (*If) stmtNode()          {}
func (*While) stmtNode()       {}
func (*DoWhile) stmtNode()     {}
func (*For) stmtNode()         {}
func (*Switch) stmtNode()      {}
func (*Case) stmtNode()        {}
func (*Break) stmtNode()       {}
func (*Continue) stmtNode()    {}
func (*Goto) stmtNode()        {}
func (*GotoCase) stmtNode()    {}
func (*Fallthrough) stmtNode() {}
func (*Labeled) stmtNode()     {}
func (*Return) stmtNode()      {}
func (*Try) stmtNode()         {}
func (*Empty) stmtNode()       {}

type (
	// Lit is a typed constant.
	Lit struct {
		Pos
		Value lattice.Const
	}

	Ident struct {
		Pos
		Name string
	}

	Binary struct {
		Pos
		Op   BinOp
		X, Y Expr
	}

	Unary struct {
		Pos
		Op UnOp
		X  Expr
	}

	// Assign is `Target = Value`, or `Target op= Value` if Op is not
	// OpNone.
	Assign struct {
		Pos
		Op     BinOp
		Target string
		Value  Expr
	}

	IncDec struct {
		Pos
		Target string
		Inc    bool
	}

	Cast struct {
		Pos
		Type *itypes.Type
		X    Expr
	}

	// Call is an opaque call. Its arguments are evaluated, its result is
	// unknown.
	Call struct {
		Pos
		Func string
		Args []Expr
	}

	Cond struct {
		Pos
		Cond, Then, Else Expr
	}

	Paren struct {
		Pos
		X Expr
	}
)

func (*Lit) exprNode()    {}
func (*Ident) exprNode()  {}
func (*Binary) exprNode() {}
func (*Unary) exprNode()  {}
func (*Assign) exprNode() {}
func (*IncDec) exprNode() {}
func (*Cast) exprNode()   {}
func (*Call) exprNode()   {}
func (*Cond) exprNode()   {}
func (*Paren) exprNode()  {}

// Unparen strips parentheses.
func Unparen(e Expr) Expr {
	for {
		p, ok := e.(*Paren)
		if !ok {
			return e
		}
		e = p.X
	}
}
