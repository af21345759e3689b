package ir

// Inspect traverses the tree rooted at n in depth-first order. If f
// returns false, the children of the node are skipped.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	each := func(ns ...Node) {
		for _, c := range ns {
			if c != nil {
				Inspect(c, f)
			}
		}
	}
	stmts := func(ss []Stmt) {
		for _, s := range ss {
			Inspect(s, f)
		}
	}
	exprs := func(es []Expr) {
		for _, e := range es {
			Inspect(e, f)
		}
	}

	switch n := n.(type) {
	case *Block:
		stmts(n.Stmts)
	case *Decl:
		if n.Init != nil {
			Inspect(n.Init, f)
		}
	case *ExprStmt:
		Inspect(n.X, f)
	case *If:
		Inspect(n.Cond, f)
		Inspect(n.Then, f)
		if n.Else != nil {
			Inspect(n.Else, f)
		}
	case *While:
		each(n.Cond, n.Body)
	case *DoWhile:
		each(n.Body, n.Cond)
	case *For:
		if n.Init != nil {
			Inspect(n.Init, f)
		}
		if n.Cond != nil {
			Inspect(n.Cond, f)
		}
		if n.Post != nil {
			Inspect(n.Post, f)
		}
		Inspect(n.Body, f)
	case *Switch:
		if n.Tag != nil {
			Inspect(n.Tag, f)
		}
		for _, c := range n.Cases {
			Inspect(c, f)
		}
	case *Case:
		exprs(n.Values)
		stmts(n.Body)
	case *GotoCase:
		if n.Value != nil {
			Inspect(n.Value, f)
		}
	case *Labeled:
		Inspect(n.Stmt, f)
	case *Return:
		if n.Value != nil {
			Inspect(n.Value, f)
		}
	case *Try:
		Inspect(n.Body, f)
		if n.Catch != nil {
			Inspect(n.Catch, f)
		}
		if n.Finally != nil {
			Inspect(n.Finally, f)
		}
	case *Binary:
		each(n.X, n.Y)
	case *Unary:
		Inspect(n.X, f)
	case *Assign:
		Inspect(n.Value, f)
	case *Cast:
		Inspect(n.X, f)
	case *Call:
		exprs(n.Args)
	case *Cond:
		each(n.Cond, n.Then, n.Else)
	case *Paren:
		Inspect(n.X, f)
	}
}

// Labels collects the labeled statements below n by label.
func Labels(n Node) map[string]*Labeled {
	res := map[string]*Labeled{}
	Inspect(n, func(n Node) bool {
		if l, ok := n.(*Labeled); ok {
			res[l.Label] = l
		}
		return true
	})
	return res
}

// Idents lists the variable names read by an expression, in order of
// occurrence and with duplicates.
func Idents(e Expr) []string {
	var names []string
	Inspect(e, func(n Node) bool {
		switch n := n.(type) {
		case *Ident:
			names = append(names, n.Name)
		case *Assign:
			if n.Op != OpNone {
				names = append(names, n.Target)
			}
		case *IncDec:
			names = append(names, n.Target)
		}
		return true
	})
	return names
}

// Declares checks whether the statement list declares label at its top
// level, and returns its index.
func Declares(stmts []Stmt, label string) (int, bool) {
	for i, s := range stmts {
		for l, ok := s.(*Labeled); ok; l, ok = l.Stmt.(*Labeled) {
			if l.Label == label {
				return i, true
			}
		}
	}
	return -1, false
}
