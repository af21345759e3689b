package tracer

import (
	"github.com/hashicorp/go-set/v3"
	uf "github.com/spakin/disjoint"

	"github.com/zed-0xff/cs-reflow-sub000/analysis/ir"
)

// walkEntries visits entries and the arms of merged entries.
func walkEntries(entries []Entry, do func(e Entry)) {
	for _, e := range entries {
		do(e)
		if e.Kind == Merged {
			walkEntries(e.Then, do)
			walkEntries(e.Else, do)
		}
	}
}

func isAssignment(e Entry) bool {
	if e.Kind != Effect {
		return false
	}
	_, ret := e.Stmt.(*ir.Return)
	return !ret && e.Access.Writes != nil && e.Access.Writes.Size() > 0
}

// DispatchVariables finds the variables of a trace that only serve to
// select switch sections. Candidates are the variables connected to a
// discriminant through assignments. A candidate is discarded if it is read
// anywhere but in an assignment to a remaining candidate.
func DispatchVariables(entries []Entry, discriminants *set.Set[string]) *set.Set[string] {
	elems := map[string]*uf.Element{}
	element := func(name string) *uf.Element {
		el, ok := elems[name]
		if !ok {
			el = uf.NewElement()
			elems[name] = el
		}
		return el
	}

	walkEntries(entries, func(e Entry) {
		if !isAssignment(e) {
			return
		}
		for w := range e.Access.Writes.Items() {
			for r := range e.Access.Reads.Items() {
				uf.Union(element(w), element(r))
			}
			element(w)
		}
	})

	roots := set.New[*uf.Element](0)
	for d := range discriminants.Items() {
		roots.Insert(element(d).Find())
	}
	res := set.New[string](0)
	for name, el := range elems {
		if roots.Contains(el.Find()) {
			res.Insert(name)
		}
	}

	for changed := true; changed; {
		changed = false
		walkEntries(entries, func(e Entry) {
			switch {
			case e.Kind == End:
				return
			case DispatchOnly(e, res):
				return
			case isAssignment(e) && e.Access.Calls:
				changed = res.RemoveSet(e.Access.Writes) || changed
			}
			changed = res.RemoveSet(e.Access.Reads) || changed
		})
	}
	return res
}

// DispatchOnly checks whether e only assigns dispatch variables.
func DispatchOnly(e Entry, dispatch *set.Set[string]) bool {
	return isAssignment(e) && !e.Access.Calls && dispatch.Subset(e.Access.Writes)
}

// DropDispatch removes the entries assigning only dispatch variables, and
// conditionals left with two empty arms.
func DropDispatch(entries []Entry, dispatch *set.Set[string]) []Entry {
	var res []Entry
	for _, e := range entries {
		switch {
		case DispatchOnly(e, dispatch):
			continue
		case e.Kind == Merged:
			then := DropDispatch(e.Then, dispatch)
			els := DropDispatch(e.Else, dispatch)
			if len(then) == 0 && len(els) == 0 {
				continue
			}
			e = Rebuild(e, then, els)
		}
		res = append(res, e)
	}
	return res
}
