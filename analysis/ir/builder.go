package ir

import (
	"github.com/zed-0xff/cs-reflow-sub000/analysis/itypes"
	"github.com/zed-0xff/cs-reflow-sub000/analysis/lattice"
)

// Builder creates nodes with fresh identities. Statements are numbered
// with consecutive lines in construction order; SetLine overrides it.
type Builder struct {
	nextID int
	line   int
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) stmt() Pos {
	b.nextID++
	b.line++
	return Pos{id: b.nextID, line: b.line}
}

func (b *Builder) expr() Pos {
	b.nextID++
	return Pos{id: b.nextID, line: b.line}
}

// Fresh returns a position with a new identity on the given line.
func (b *Builder) Fresh(line int) Pos {
	b.nextID++
	if line > b.line {
		b.line = line
	}
	return Pos{id: b.nextID, line: line}
}

type positioned interface {
	setLine(int)
	setComment(string)
}

func (p *Pos) setLine(l int)       { p.line = l }
func (p *Pos) setComment(c string) { p.comment = c }

// SetLine moves a node to a line and returns it.
func SetLine[N Node](n N, line int) N {
	if p, ok := any(n).(positioned); ok {
		p.setLine(line)
	}
	return n
}

// SetComment attaches a comment to a node and returns it.
func SetComment[N Node](n N, c string) N {
	if p, ok := any(n).(positioned); ok {
		p.setComment(c)
	}
	return n
}

func (b *Builder) Block(stmts ...Stmt) *Block {
	return &Block{Pos: b.stmt(), Stmts: stmts}
}

func (b *Builder) Decl(name string, t *itypes.Type, init Expr) *Decl {
	return &Decl{Pos: b.stmt(), Name: name, Type: t, Init: init}
}

func (b *Builder) Expr(x Expr) *ExprStmt {
	return &ExprStmt{Pos: b.stmt(), X: x}
}

// Set is the statement `target = v`.
func (b *Builder) Set(target string, v Expr) *ExprStmt {
	return b.Expr(b.Assign(target, v))
}

// Invoke is the statement `f(args...)`.
func (b *Builder) Invoke(f string, args ...Expr) *ExprStmt {
	return b.Expr(b.Call(f, args...))
}

func (b *Builder) If(cond Expr, then *Block, els Stmt) *If {
	return &If{Pos: b.stmt(), Cond: cond, Then: then, Else: els}
}

func (b *Builder) While(cond Expr, body *Block) *While {
	return &While{Pos: b.stmt(), Cond: cond, Body: body}
}

func (b *Builder) DoWhile(body *Block, cond Expr) *DoWhile {
	return &DoWhile{Pos: b.stmt(), Body: body, Cond: cond}
}

func (b *Builder) For(init Stmt, cond Expr, post Stmt, body *Block) *For {
	return &For{Pos: b.stmt(), Init: init, Cond: cond, Post: post, Body: body}
}

func (b *Builder) Switch(tag Expr, cases ...*Case) *Switch {
	return &Switch{Pos: b.stmt(), Tag: tag, Cases: cases}
}

func (b *Builder) Case(values []Expr, body ...Stmt) *Case {
	if values == nil {
		values = []Expr{}
	}
	return &Case{Pos: b.stmt(), Values: values, Body: body}
}

func (b *Builder) Default(body ...Stmt) *Case {
	return &Case{Pos: b.stmt(), Body: body}
}

func (b *Builder) Break() *Break {
	return &Break{Pos: b.stmt()}
}

func (b *Builder) Continue() *Continue {
	return &Continue{Pos: b.stmt()}
}

func (b *Builder) Goto(label string) *Goto {
	return &Goto{Pos: b.stmt(), Label: label}
}

func (b *Builder) GotoCase(v Expr) *GotoCase {
	return &GotoCase{Pos: b.stmt(), Value: v}
}

func (b *Builder) GotoDefault() *GotoCase {
	return &GotoCase{Pos: b.stmt()}
}

func (b *Builder) Fallthrough() *Fallthrough {
	return &Fallthrough{Pos: b.stmt()}
}

func (b *Builder) Label(label string, s Stmt) *Labeled {
	return &Labeled{Pos: b.stmt(), Label: label, Stmt: s}
}

func (b *Builder) Return(v Expr) *Return {
	return &Return{Pos: b.stmt(), Value: v}
}

func (b *Builder) Try(body, catch, finally *Block) *Try {
	return &Try{Pos: b.stmt(), Body: body, Catch: catch, Finally: finally}
}

func (b *Builder) Empty() *Empty {
	return &Empty{Pos: b.stmt()}
}

// Int is a literal of type t, wrapped to its width.
func (b *Builder) Int(t *itypes.Type, v int64) *Lit {
	c := lattice.Elements().Const(t, v).(lattice.Const)
	return &Lit{Pos: b.expr(), Value: c}
}

func (b *Builder) I32(v int64) *Lit {
	return b.Int(itypes.Int32, v)
}

func (b *Builder) Bool(v bool) *Lit {
	c := lattice.Elements().Bool(v).(lattice.Const)
	return &Lit{Pos: b.expr(), Value: c}
}

func (b *Builder) Ident(name string) *Ident {
	return &Ident{Pos: b.expr(), Name: name}
}

func (b *Builder) Bin(op BinOp, x, y Expr) *Binary {
	return &Binary{Pos: b.expr(), Op: op, X: x, Y: y}
}

func (b *Builder) Un(op UnOp, x Expr) *Unary {
	return &Unary{Pos: b.expr(), Op: op, X: x}
}

func (b *Builder) Assign(target string, v Expr) *Assign {
	return &Assign{Pos: b.expr(), Target: target, Value: v}
}

func (b *Builder) OpAssign(op BinOp, target string, v Expr) *Assign {
	return &Assign{Pos: b.expr(), Op: op, Target: target, Value: v}
}

func (b *Builder) Inc(target string) *IncDec {
	return &IncDec{Pos: b.expr(), Target: target, Inc: true}
}

func (b *Builder) Dec(target string) *IncDec {
	return &IncDec{Pos: b.expr(), Target: target}
}

func (b *Builder) Cast(t *itypes.Type, x Expr) *Cast {
	return &Cast{Pos: b.expr(), Type: t, X: x}
}

func (b *Builder) Call(f string, args ...Expr) *Call {
	return &Call{Pos: b.expr(), Func: f, Args: args}
}

func (b *Builder) Cond(cond, then, els Expr) *Cond {
	return &Cond{Pos: b.expr(), Cond: cond, Then: then, Else: els}
}

func (b *Builder) Paren(x Expr) *Paren {
	return &Paren{Pos: b.expr(), X: x}
}
