package goast

import (
	"fmt"
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"math"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/tools/go/ast/astutil"

	"github.com/zed-0xff/cs-reflow-sub000/analysis/ir"
	"github.com/zed-0xff/cs-reflow-sub000/analysis/itypes"
)

type lowerer struct {
	*File
	b *ir.Builder
}

func (f *File) lower(fd *ast.FuncDecl) (*Function, error) {
	l := &lowerer{File: f, b: ir.NewBuilder()}
	fn := &Function{Name: fd.Name.Name}

	for _, field := range fd.Type.Params.List {
		for _, name := range field.Names {
			obj := f.Info.Defs[name]
			if obj == nil || name.Name == "_" {
				continue
			}
			if t, ok := itype(obj.Type()); ok {
				fn.Params = append(fn.Params, Param{Name: name.Name, Type: t})
			}
		}
	}

	body, err := l.block(fd.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "lowering %s", fn.Name)
	}
	fn.Body = body
	return fn, nil
}

func (l *lowerer) line(n ast.Node) int {
	return l.Fset.Position(n.Pos()).Line
}

func (l *lowerer) unsupported(n ast.Node, format string, args ...interface{}) error {
	return errors.Errorf("%s: unsupported %s", l.Fset.Position(n.Pos()), fmt.Sprintf(format, args...))
}

// at moves a lowered node to the line of its source.
func at[N ir.Node](l *lowerer, src ast.Node, n N) N {
	return ir.SetLine(n, l.line(src))
}

// comment finds a comment trailing a simple statement on its last line.
func (l *lowerer) comment(s ast.Stmt) string {
	end := l.Fset.Position(s.End()).Line
	for _, g := range l.comments[s] {
		if l.line(g) == end && g.Pos() >= s.End() {
			return strings.TrimSpace(g.Text())
		}
	}
	return ""
}

func (l *lowerer) block(b *ast.BlockStmt) (*ir.Block, error) {
	stmts, err := l.stmts(b.List)
	if err != nil {
		return nil, err
	}
	return at(l, b, l.b.Block(stmts...)), nil
}

func (l *lowerer) stmts(list []ast.Stmt) ([]ir.Stmt, error) {
	var res []ir.Stmt
	for _, s := range list {
		ss, err := l.stmt(s)
		if err != nil {
			return nil, err
		}
		res = append(res, ss...)
	}
	return res, nil
}

// single lowers a statement that must map to exactly one statement.
func (l *lowerer) single(s ast.Stmt) (ir.Stmt, error) {
	ss, err := l.stmt(s)
	switch {
	case err != nil:
		return nil, err
	case len(ss) == 1:
		return ss[0], nil
	case len(ss) == 0:
		return at(l, s, l.b.Empty()), nil
	}
	return nil, l.unsupported(s, "compound statement in a single statement position")
}

func (l *lowerer) stmt(s ast.Stmt) ([]ir.Stmt, error) {
	one := func(st ir.Stmt, err error) ([]ir.Stmt, error) {
		if err != nil {
			return nil, err
		}
		return []ir.Stmt{st}, nil
	}
	simple := func(st ir.Stmt) []ir.Stmt {
		at(l, s, st)
		if c := l.comment(s); c != "" {
			ir.SetComment(st, c)
		}
		return []ir.Stmt{st}
	}

	switch s := s.(type) {
	case *ast.BlockStmt:
		return one(l.block(s))
	case *ast.DeclStmt:
		return l.declStmt(s)
	case *ast.AssignStmt:
		return l.assign(s)
	case *ast.IncDecStmt:
		name, err := l.target(s.X)
		if err != nil {
			return nil, err
		}
		if s.Tok == token.INC {
			return simple(l.b.Expr(at(l, s, l.b.Inc(name)))), nil
		}
		return simple(l.b.Expr(at(l, s, l.b.Dec(name)))), nil
	case *ast.ExprStmt:
		if gc, ok, err := l.gotoCase(s.X); ok || err != nil {
			if err != nil {
				return nil, err
			}
			return simple(gc), nil
		}
		x, err := l.expr(s.X)
		if err != nil {
			return nil, err
		}
		return simple(l.b.Expr(x)), nil
	case *ast.ReturnStmt:
		switch len(s.Results) {
		case 0:
			return simple(l.b.Return(nil)), nil
		case 1:
			x, err := l.expr(s.Results[0])
			if err != nil {
				return nil, err
			}
			return simple(l.b.Return(x)), nil
		}
		return nil, l.unsupported(s, "return of %d results", len(s.Results))
	case *ast.BranchStmt:
		switch {
		case s.Tok == token.GOTO:
			return simple(l.b.Goto(s.Label.Name)), nil
		case s.Label != nil:
			return nil, l.unsupported(s, "labeled %s", s.Tok)
		case s.Tok == token.BREAK:
			return simple(l.b.Break()), nil
		case s.Tok == token.CONTINUE:
			return simple(l.b.Continue()), nil
		case s.Tok == token.FALLTHROUGH:
			return simple(l.b.Fallthrough()), nil
		}
	case *ast.LabeledStmt:
		inner, err := l.single(s.Stmt)
		if err != nil {
			return nil, err
		}
		return []ir.Stmt{at(l, s, l.b.Label(s.Label.Name, inner))}, nil
	case *ast.IfStmt:
		return one(l.ifStmt(s))
	case *ast.ForStmt:
		return one(l.forStmt(s))
	case *ast.SwitchStmt:
		return one(l.switchStmt(s))
	case *ast.EmptyStmt:
		return nil, nil
	}
	return nil, l.unsupported(s, "statement %T", s)
}

func (l *lowerer) declStmt(s *ast.DeclStmt) ([]ir.Stmt, error) {
	gen := s.Decl.(*ast.GenDecl)
	if gen.Tok != token.VAR {
		// Constants are substituted at their uses.
		return nil, nil
	}

	var res []ir.Stmt
	for _, spec := range gen.Specs {
		vs := spec.(*ast.ValueSpec)
		if len(vs.Values) != 0 && len(vs.Values) != len(vs.Names) {
			return nil, l.unsupported(vs, "multi-valued declaration")
		}
		for i, name := range vs.Names {
			var init ast.Expr
			if len(vs.Values) > 0 {
				init = vs.Values[i]
			}
			st, err := l.declare(name, init)
			if err != nil {
				return nil, err
			}
			if st != nil {
				res = append(res, st)
			}
		}
	}
	if len(res) == 1 {
		if c := l.comment(s); c != "" {
			ir.SetComment(res[0], c)
		}
	}
	return res, nil
}

// declare introduces a variable. Variables without an initializer are
// explicitly zeroed.
func (l *lowerer) declare(name *ast.Ident, init ast.Expr) (ir.Stmt, error) {
	if name.Name == "_" {
		if init == nil {
			return nil, nil
		}
		x, err := l.expr(init)
		if err != nil {
			return nil, err
		}
		return at(l, name, l.b.Expr(x)), nil
	}

	obj := l.Info.Defs[name]
	if obj == nil {
		return nil, l.unsupported(name, "declaration of %s without type information", name.Name)
	}
	t, ok := itype(obj.Type())
	if !ok {
		return nil, l.unsupported(name, "type %s of %s", obj.Type(), name.Name)
	}

	var x ir.Expr
	if init != nil {
		var err error
		if x, err = l.expr(init); err != nil {
			return nil, err
		}
	} else if t.IsBool() {
		x = at(l, name, l.b.Bool(false))
	} else {
		x = at(l, name, l.b.Int(t, 0))
	}
	return at(l, name, l.b.Decl(name.Name, t, x)), nil
}

var assignOps = map[token.Token]ir.BinOp{
	token.ASSIGN:         ir.OpNone,
	token.ADD_ASSIGN:     ir.OpAdd,
	token.SUB_ASSIGN:     ir.OpSub,
	token.MUL_ASSIGN:     ir.OpMul,
	token.QUO_ASSIGN:     ir.OpDiv,
	token.REM_ASSIGN:     ir.OpMod,
	token.AND_ASSIGN:     ir.OpAnd,
	token.OR_ASSIGN:      ir.OpOr,
	token.XOR_ASSIGN:     ir.OpXor,
	token.AND_NOT_ASSIGN: ir.OpAndNot,
	token.SHL_ASSIGN:     ir.OpShl,
	token.SHR_ASSIGN:     ir.OpShr,
}

func (l *lowerer) assign(s *ast.AssignStmt) ([]ir.Stmt, error) {
	if len(s.Lhs) != len(s.Rhs) {
		return nil, l.unsupported(s, "multi-valued assignment")
	}
	if len(s.Lhs) > 1 && s.Tok != token.DEFINE {
		return nil, l.unsupported(s, "parallel assignment")
	}

	var res []ir.Stmt
	for i, lhs := range s.Lhs {
		if s.Tok == token.DEFINE {
			id := lhs.(*ast.Ident)
			if l.Info.Defs[id] != nil || id.Name == "_" {
				st, err := l.declare(id, s.Rhs[i])
				if err != nil {
					return nil, err
				}
				if st != nil {
					res = append(res, st)
				}
				continue
			}
		}

		if id, ok := lhs.(*ast.Ident); ok && id.Name == "_" {
			x, err := l.expr(s.Rhs[i])
			if err != nil {
				return nil, err
			}
			res = append(res, at(l, s, l.b.Expr(x)))
			continue
		}

		name, err := l.target(lhs)
		if err != nil {
			return nil, err
		}
		x, err := l.expr(s.Rhs[i])
		if err != nil {
			return nil, err
		}
		op, ok := assignOps[s.Tok]
		if !ok {
			op = ir.OpNone
		}
		res = append(res, at(l, s, l.b.Expr(at(l, s, l.b.OpAssign(op, name, x)))))
	}
	if len(res) == 1 {
		if c := l.comment(s); c != "" {
			ir.SetComment(res[0], c)
		}
	}
	return res, nil
}

func (l *lowerer) target(e ast.Expr) (string, error) {
	if id, ok := astutil.Unparen(e).(*ast.Ident); ok {
		return id.Name, nil
	}
	return "", l.unsupported(e, "assignment to %s", types.ExprString(e))
}

// gotoCase recognizes the gotoCase(v) and gotoDefault() pseudo-calls.
func (l *lowerer) gotoCase(e ast.Expr) (ir.Stmt, bool, error) {
	call, ok := e.(*ast.CallExpr)
	if !ok {
		return nil, false, nil
	}
	fun, ok := call.Fun.(*ast.Ident)
	if !ok {
		return nil, false, nil
	}
	switch {
	case fun.Name == "gotoDefault" && len(call.Args) == 0:
		return l.b.GotoDefault(), true, nil
	case fun.Name == "gotoCase" && len(call.Args) == 1:
		v, err := l.expr(call.Args[0])
		if err != nil {
			return nil, true, err
		}
		return l.b.GotoCase(v), true, nil
	}
	return nil, false, nil
}

func (l *lowerer) ifStmt(s *ast.IfStmt) (ir.Stmt, error) {
	if s.Init != nil {
		return nil, l.unsupported(s, "if statement with an init statement")
	}
	cond, err := l.expr(astutil.Unparen(s.Cond))
	if err != nil {
		return nil, err
	}
	then, err := l.block(s.Body)
	if err != nil {
		return nil, err
	}
	var els ir.Stmt
	if s.Else != nil {
		if els, err = l.single(s.Else); err != nil {
			return nil, err
		}
	}
	return at(l, s, l.b.If(cond, then, els)), nil
}

func (l *lowerer) forStmt(s *ast.ForStmt) (ir.Stmt, error) {
	if cond, ok := doWhile(s); ok {
		c, err := l.expr(cond)
		if err != nil {
			return nil, err
		}
		body, err := l.block(s.Body)
		if err != nil {
			return nil, err
		}
		return at(l, s, l.b.DoWhile(body, c)), nil
	}

	var (
		init, post ir.Stmt
		cond       ir.Expr
		err        error
	)
	if s.Init != nil {
		if init, err = l.single(s.Init); err != nil {
			return nil, err
		}
	}
	if s.Cond != nil {
		if cond, err = l.expr(astutil.Unparen(s.Cond)); err != nil {
			return nil, err
		}
	}
	if s.Post != nil {
		if post, err = l.single(s.Post); err != nil {
			return nil, err
		}
	}
	body, err := l.block(s.Body)
	if err != nil {
		return nil, err
	}

	if init == nil && post == nil && cond != nil {
		return at(l, s, l.b.While(cond, body)), nil
	}
	return at(l, s, l.b.For(init, cond, post, body)), nil
}

// doWhile recognizes "for ok := true; ok; ok = cond { ... }", which runs
// the body before testing cond.
func doWhile(s *ast.ForStmt) (ast.Expr, bool) {
	init, ok := s.Init.(*ast.AssignStmt)
	if !ok || init.Tok != token.DEFINE || len(init.Lhs) != 1 || len(init.Rhs) != 1 {
		return nil, false
	}
	v, ok := init.Lhs[0].(*ast.Ident)
	if !ok {
		return nil, false
	}
	if t, ok := init.Rhs[0].(*ast.Ident); !ok || t.Name != "true" {
		return nil, false
	}
	if c, ok := s.Cond.(*ast.Ident); !ok || c.Name != v.Name {
		return nil, false
	}
	post, ok := s.Post.(*ast.AssignStmt)
	if !ok || post.Tok != token.ASSIGN || len(post.Lhs) != 1 || len(post.Rhs) != 1 {
		return nil, false
	}
	if p, ok := post.Lhs[0].(*ast.Ident); !ok || p.Name != v.Name {
		return nil, false
	}
	return astutil.Unparen(post.Rhs[0]), true
}

func (l *lowerer) switchStmt(s *ast.SwitchStmt) (ir.Stmt, error) {
	if s.Init != nil {
		return nil, l.unsupported(s, "switch statement with an init statement")
	}
	var (
		tag ir.Expr
		err error
	)
	if s.Tag != nil {
		if tag, err = l.expr(astutil.Unparen(s.Tag)); err != nil {
			return nil, err
		}
	}

	var cases []*ir.Case
	for _, c := range s.Body.List {
		cc := c.(*ast.CaseClause)
		body, err := l.stmts(cc.Body)
		if err != nil {
			return nil, err
		}
		if cc.List == nil {
			cases = append(cases, at(l, cc, l.b.Default(body...)))
			continue
		}
		values := make([]ir.Expr, len(cc.List))
		for i, v := range cc.List {
			if values[i], err = l.expr(astutil.Unparen(v)); err != nil {
				return nil, err
			}
		}
		cases = append(cases, at(l, cc, l.b.Case(values, body...)))
	}
	return at(l, s, l.b.Switch(tag, cases...)), nil
}

var binOps = map[token.Token]ir.BinOp{
	token.ADD:     ir.OpAdd,
	token.SUB:     ir.OpSub,
	token.MUL:     ir.OpMul,
	token.QUO:     ir.OpDiv,
	token.REM:     ir.OpMod,
	token.AND:     ir.OpAnd,
	token.OR:      ir.OpOr,
	token.XOR:     ir.OpXor,
	token.AND_NOT: ir.OpAndNot,
	token.SHL:     ir.OpShl,
	token.SHR:     ir.OpShr,
	token.EQL:     ir.OpEq,
	token.NEQ:     ir.OpNe,
	token.LSS:     ir.OpLt,
	token.GTR:     ir.OpGt,
	token.LEQ:     ir.OpLe,
	token.GEQ:     ir.OpGe,
	token.LAND:    ir.OpLAnd,
	token.LOR:     ir.OpLOr,
}

var unOps = map[token.Token]ir.UnOp{
	token.SUB: ir.OpNeg,
	token.ADD: ir.OpPlus,
	token.XOR: ir.OpNot,
	token.NOT: ir.OpLNot,
}

func (l *lowerer) expr(e ast.Expr) (ir.Expr, error) {
	if lit, ok, err := l.constant(e); ok || err != nil {
		return lit, err
	}

	switch e := e.(type) {
	case *ast.Ident:
		return at(l, e, l.b.Ident(e.Name)), nil
	case *ast.ParenExpr:
		x, err := l.expr(e.X)
		if err != nil {
			return nil, err
		}
		return at(l, e, l.b.Paren(x)), nil
	case *ast.BinaryExpr:
		op, ok := binOps[e.Op]
		if !ok {
			return nil, l.unsupported(e, "operator %s", e.Op)
		}
		x, err := l.expr(e.X)
		if err != nil {
			return nil, err
		}
		y, err := l.expr(e.Y)
		if err != nil {
			return nil, err
		}
		return l.typed(e, at(l, e, l.b.Bin(op, x, y))), nil
	case *ast.UnaryExpr:
		op, ok := unOps[e.Op]
		if !ok {
			return nil, l.unsupported(e, "operator %s", e.Op)
		}
		x, err := l.expr(e.X)
		if err != nil {
			return nil, err
		}
		return l.typed(e, at(l, e, l.b.Un(op, x))), nil
	case *ast.CallExpr:
		return l.call(e)
	}
	return nil, l.unsupported(e, "expression %s", types.ExprString(e))
}

// typed converts the result of an operator to its Go type. Operands
// narrower than 32 bits are computed promoted, so their results are
// wrapped back explicitly.
func (l *lowerer) typed(e ast.Expr, x ir.Expr) ir.Expr {
	t, ok := itype(l.Info.Types[e].Type)
	if !ok || t.IsBool() || t.Bits() >= 32 {
		return x
	}
	return at(l, e, l.b.Cast(t, x))
}

func (l *lowerer) call(e *ast.CallExpr) (ir.Expr, error) {
	if tv, ok := l.Info.Types[e.Fun]; ok && tv.IsType() {
		t, ok := itype(tv.Type)
		if !ok || len(e.Args) != 1 {
			return nil, l.unsupported(e, "conversion %s", types.ExprString(e))
		}
		x, err := l.expr(e.Args[0])
		if err != nil {
			return nil, err
		}
		return at(l, e, l.b.Cast(t, x)), nil
	}

	args := make([]ir.Expr, len(e.Args))
	for i, a := range e.Args {
		var err error
		if args[i], err = l.expr(a); err != nil {
			return nil, err
		}
	}
	return at(l, e, l.b.Call(types.ExprString(e.Fun), args...)), nil
}

// constant lowers literals, named constants and constant expressions to
// typed literals. Constant expressions are folded by the type checker with
// Go's exact arithmetic, before any conversion to their type.
func (l *lowerer) constant(e ast.Expr) (ir.Expr, bool, error) {
	tv := l.Info.Types[e]
	switch e := e.(type) {
	case *ast.BasicLit:
		if e.Kind != token.INT && e.Kind != token.CHAR {
			return nil, true, l.unsupported(e, "literal %s", e.Value)
		}
		if tv.Value == nil {
			tv.Value = constant.MakeFromLiteral(e.Value, e.Kind, 0)
		}
	case *ast.Ident:
		if _, ok := l.Info.Uses[e].(*types.Const); !ok {
			return nil, false, nil
		}
	default:
		if tv.Value == nil {
			return nil, false, nil
		}
	}

	v := tv.Value
	if v == nil || v.Kind() == constant.Unknown {
		return nil, true, l.unsupported(e, "constant %s", types.ExprString(e))
	}
	if v.Kind() == constant.Bool {
		return at(l, e, l.b.Bool(constant.BoolVal(v))), true, nil
	}
	if v.Kind() != constant.Int {
		return nil, true, l.unsupported(e, "constant %s", v)
	}

	t, typed := itype(tv.Type)
	if !typed {
		var err error
		if t, err = fit(v); err != nil {
			return nil, true, errors.Wrap(err, l.Fset.Position(e.Pos()).String())
		}
	}
	raw, err := bits(v)
	if err != nil {
		return nil, true, errors.Wrap(err, l.Fset.Position(e.Pos()).String())
	}
	return at(l, e, l.b.Int(t, raw)), true, nil
}

// fit picks the type of an untyped integer constant.
func fit(v constant.Value) (*itypes.Type, error) {
	if i, exact := constant.Int64Val(v); exact {
		switch {
		case i >= math.MinInt32 && i <= math.MaxInt32:
			return itypes.Int32, nil
		case i >= 0 && i <= math.MaxUint32:
			return itypes.Uint32, nil
		}
		return itypes.Int64, nil
	}
	if _, exact := constant.Uint64Val(v); exact {
		return itypes.Uint64, nil
	}
	return nil, errors.Errorf("constant %s overflows uint64", v)
}

// bits returns the two's complement pattern of an integer constant.
func bits(v constant.Value) (int64, error) {
	if i, exact := constant.Int64Val(v); exact {
		return i, nil
	}
	if u, exact := constant.Uint64Val(v); exact {
		return int64(u), nil
	}
	return 0, errors.Errorf("constant %s overflows uint64", v)
}

// itype maps a Go type to an integer type. Untyped and non-integer types
// have no counterpart.
func itype(t types.Type) (*itypes.Type, bool) {
	if t == nil {
		return nil, false
	}
	b, ok := t.Underlying().(*types.Basic)
	if !ok {
		return nil, false
	}
	switch {
	case b.Kind() == types.Bool:
		return itypes.Bool, true
	case b.Info()&types.IsUntyped != 0:
		return nil, false
	}
	return itypes.Lookup(b.Name())
}
