package ir

import (
	"strings"
)

// Format renders a statement as Go source.
func Format(s Stmt) string {
	p := &printer{}
	p.stmt(s, 0)
	return strings.TrimSuffix(p.buf.String(), "\n")
}

// FormatStmts renders a statement list, one statement after the other.
func FormatStmts(stmts []Stmt) string {
	p := &printer{}
	p.stmts(stmts, 0)
	return strings.TrimSuffix(p.buf.String(), "\n")
}

// FormatExpr renders an expression as Go source.
func FormatExpr(e Expr) string {
	return (&printer{}).expr(e, 0)
}

type printer struct {
	buf strings.Builder
	// Comments are omitted.
	bare bool
}

func (p *printer) line(depth int, text, comment string) {
	p.buf.WriteString(strings.Repeat("\t", depth))
	p.buf.WriteString(text)
	if comment != "" && !p.bare {
		if text != "" {
			p.buf.WriteString(" ")
		}
		p.buf.WriteString("// " + comment)
	}
	p.buf.WriteString("\n")
}

func (p *printer) stmts(stmts []Stmt, depth int) {
	for _, s := range stmts {
		p.stmt(s, depth)
	}
}

// block prints the opening line of a compound statement ending in `{`.
func (p *printer) block(depth int, head string, n Node, body []Stmt) {
	p.line(depth, head+" {", n.Comment())
	p.stmts(body, depth+1)
}

func (p *printer) stmt(s Stmt, depth int) {
	switch s := s.(type) {
	case *Block:
		p.line(depth, "{", s.Comment())
		p.stmts(s.Stmts, depth+1)
		p.line(depth, "}", "")
	case *Decl:
		text := "var " + s.Name + " " + s.Type.String()
		if s.Init != nil {
			text += " = " + p.expr(s.Init, 0)
		}
		p.line(depth, text, s.Comment())
	case *ExprStmt:
		p.line(depth, p.expr(s.X, 0), s.Comment())
	case *If:
		p.ifStmt(s, depth, "if ")
		p.line(depth, "}", "")
	case *While:
		p.block(depth, "for "+p.expr(s.Cond, 0), s, s.Body.Stmts)
		p.line(depth, "}", "")
	case *DoWhile:
		p.block(depth, "for ok := true; ok; ok = "+p.expr(s.Cond, 0), s, s.Body.Stmts)
		p.line(depth, "}", "")
	case *For:
		head := "for"
		switch {
		case s.Init == nil && s.Post == nil && s.Cond != nil:
			head += " " + p.expr(s.Cond, 0)
		case s.Init != nil || s.Post != nil:
			head += " " + p.simple(s.Init) + "; "
			if s.Cond != nil {
				head += p.expr(s.Cond, 0)
			}
			head += "; " + p.simple(s.Post)
		}
		p.block(depth, head, s, s.Body.Stmts)
		p.line(depth, "}", "")
	case *Switch:
		head := "switch"
		if s.Tag != nil {
			head += " " + p.expr(s.Tag, 0)
		}
		p.line(depth, head+" {", s.Comment())
		for _, c := range s.Cases {
			p.stmt(c, depth)
		}
		p.line(depth, "}", "")
	case *Case:
		if s.Values == nil {
			p.line(depth, "default:", s.Comment())
		} else {
			p.line(depth, "case "+p.exprList(s.Values)+":", s.Comment())
		}
		p.stmts(s.Body, depth+1)
	case *Break:
		p.line(depth, "break", s.Comment())
	case *Continue:
		p.line(depth, "continue", s.Comment())
	case *Fallthrough:
		p.line(depth, "fallthrough", s.Comment())
	case *Goto:
		p.line(depth, "goto "+s.Label, s.Comment())
	case *GotoCase:
		if s.Value == nil {
			p.line(depth, "gotoDefault()", s.Comment())
		} else {
			p.line(depth, "gotoCase("+p.expr(s.Value, 0)+")", s.Comment())
		}
	case *Labeled:
		ld := depth - 1
		if ld < 0 {
			ld = 0
		}
		p.line(ld, s.Label+":", s.Comment())
		p.stmt(s.Stmt, depth)
	case *Return:
		if s.Value == nil {
			p.line(depth, "return", s.Comment())
		} else {
			p.line(depth, "return "+p.expr(s.Value, 0), s.Comment())
		}
	case *Try:
		p.block(depth, "try", s, s.Body.Stmts)
		if s.Catch != nil {
			p.line(depth, "} catch {", "")
			p.stmts(s.Catch.Stmts, depth+1)
		}
		if s.Finally != nil {
			p.line(depth, "} finally {", "")
			p.stmts(s.Finally.Stmts, depth+1)
		}
		p.line(depth, "}", "")
	case *Empty:
		if s.Comment() != "" && !p.bare {
			p.line(depth, "", s.Comment())
		}
	}
}

func (p *printer) ifStmt(s *If, depth int, keyword string) {
	p.block(depth, keyword+p.expr(s.Cond, 0), s, s.Then.Stmts)
	switch e := s.Else.(type) {
	case *If:
		p.ifStmt(e, depth, "} else if ")
	case *Block:
		p.line(depth, "} else {", e.Comment())
		p.stmts(e.Stmts, depth+1)
	}
}

// simple renders the init or post statement of a for loop.
func (p *printer) simple(s Stmt) string {
	switch s := s.(type) {
	case nil:
		return ""
	case *ExprStmt:
		return p.expr(s.X, 0)
	case *Decl:
		if s.Init != nil {
			return s.Name + " := " + s.Type.String() + "(" + p.expr(s.Init, 0) + ")"
		}
	}
	q := &printer{bare: p.bare}
	q.stmt(s, 0)
	return strings.TrimSpace(q.buf.String())
}

func (p *printer) exprList(es []Expr) string {
	strs := make([]string, len(es))
	for i, e := range es {
		strs[i] = p.expr(e, 0)
	}
	return strings.Join(strs, ", ")
}

// expr renders e, parenthesizing it if it binds weaker than prec.
func (p *printer) expr(e Expr, prec int) string {
	switch e := e.(type) {
	case *Lit:
		return e.Value.Literal()
	case *Ident:
		return e.Name
	case *Binary:
		op := e.Op.Precedence()
		s := p.expr(e.X, op) + " " + e.Op.String() + " " + p.expr(e.Y, op+1)
		if op < prec {
			s = "(" + s + ")"
		}
		return s
	case *Unary:
		return e.Op.String() + p.expr(e.X, 6)
	case *Assign:
		return e.Target + " " + e.Op.String() + "= " + p.expr(e.Value, 0)
	case *IncDec:
		if e.Inc {
			return e.Target + "++"
		}
		return e.Target + "--"
	case *Cast:
		return e.Type.String() + "(" + p.expr(e.X, 0) + ")"
	case *Call:
		return e.Func + "(" + p.exprList(e.Args) + ")"
	case *Cond:
		s := p.expr(e.Cond, 1) + " ? " + p.expr(e.Then, 1) + " : " + p.expr(e.Else, 1)
		if prec > 0 {
			s = "(" + s + ")"
		}
		return s
	case *Paren:
		return "(" + p.expr(e.X, 0) + ")"
	}
	return "<nil>"
}

func (s *Block) String() string       { return Format(s) }
func (s *Decl) String() string        { return Format(s) }
func (s *ExprStmt) String() string    { return Format(s) }
func (s *If) String() string          { return Format(s) }
func (s *While) String() string       { return Format(s) }
func (s *DoWhile) String() string     { return Format(s) }
func (s *For) String() string         { return Format(s) }
func (s *Switch) String() string      { return Format(s) }
func (s *Case) String() string        { return Format(s) }
func (s *Break) String() string       { return Format(s) }
func (s *Continue) String() string    { return Format(s) }
func (s *Goto) String() string        { return Format(s) }
func (s *GotoCase) String() string    { return Format(s) }
func (s *Fallthrough) String() string { return Format(s) }
func (s *Labeled) String() string     { return Format(s) }
func (s *Return) String() string      { return Format(s) }
func (s *Try) String() string         { return Format(s) }
func (s *Empty) String() string       { return Format(s) }

func (e *Lit) String() string    { return FormatExpr(e) }
func (e *Ident) String() string  { return FormatExpr(e) }
func (e *Binary) String() string { return FormatExpr(e) }
func (e *Unary) String() string  { return FormatExpr(e) }
func (e *Assign) String() string { return FormatExpr(e) }
func (e *IncDec) String() string { return FormatExpr(e) }
func (e *Cast) String() string   { return FormatExpr(e) }
func (e *Call) String() string   { return FormatExpr(e) }
func (e *Cond) String() string   { return FormatExpr(e) }
func (e *Paren) String() string  { return FormatExpr(e) }
