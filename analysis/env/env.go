// Package env holds the variable environment of a trace: a persistent map
// from variable names to abstract values, plus per-variable flags.
package env

import (
	"sort"

	"github.com/benbjohnson/immutable"
	"github.com/fatih/color"

	"github.com/zed-0xff/cs-reflow-sub000/analysis/lattice"
	"github.com/zed-0xff/cs-reflow-sub000/utils"
	i "github.com/zed-0xff/cs-reflow-sub000/utils/indenter"
)

// Binding is the state of one variable.
type Binding struct {
	Value lattice.Value
	// The variable is fed only by switch discriminants.
	Dispatch bool
	// The variable is updated by a loop header.
	LoopCounter bool
}

func (b Binding) Equal(o Binding) bool {
	return b.Dispatch == o.Dispatch &&
		b.LoopCounter == o.LoopCounter &&
		lattice.Equal(b.Value, o.Value)
}

// Env is an immutable variable environment. Updates return a new
// environment sharing structure with the old one, so forking is free.
type Env struct {
	m *immutable.Map[string, Binding]
}

func New() Env {
	return Env{immutable.NewMap[string, Binding](utils.StringHasher)}
}

func (e Env) mp() *immutable.Map[string, Binding] {
	if e.m == nil {
		return New().m
	}
	return e.m
}

func (e Env) Len() int {
	return e.mp().Len()
}

func (e Env) Get(name string) (Binding, bool) {
	return e.mp().Get(name)
}

// Value returns the value bound to name.
func (e Env) Value(name string) (lattice.Value, bool) {
	b, ok := e.Get(name)
	return b.Value, ok
}

func (e Env) Has(name string) bool {
	_, ok := e.Get(name)
	return ok
}

// Set binds name to v, keeping the flags of an existing binding.
func (e Env) Set(name string, v lattice.Value) Env {
	b, _ := e.Get(name)
	b.Value = v
	return Env{e.mp().Set(name, b)}
}

// Bind replaces the whole binding of name.
func (e Env) Bind(name string, b Binding) Env {
	return Env{e.mp().Set(name, b)}
}

func (e Env) Delete(name string) Env {
	return Env{e.mp().Delete(name)}
}

// MarkDispatch sets or clears the dispatch flag of a bound variable.
func (e Env) MarkDispatch(name string, on bool) Env {
	b, ok := e.Get(name)
	if !ok || b.Dispatch == on {
		return e
	}
	b.Dispatch = on
	return e.Bind(name, b)
}

// MarkLoopCounter flags a bound variable as a loop counter.
func (e Env) MarkLoopCounter(name string) Env {
	b, ok := e.Get(name)
	if !ok || b.LoopCounter {
		return e
	}
	b.LoopCounter = true
	return e.Bind(name, b)
}

// IsDispatch checks the dispatch flag of name.
func (e Env) IsDispatch(name string) bool {
	b, ok := e.Get(name)
	return ok && b.Dispatch
}

// Clone returns an independent copy. Environments are persistent, so this
// is only a copy of the root.
func (e Env) Clone() Env {
	return Env{e.mp()}
}

// ForEach visits every binding in unspecified order.
func (e Env) ForEach(do func(name string, b Binding)) {
	for iter := e.mp().Iterator(); !iter.Done(); {
		name, b, _ := iter.Next()
		do(name, b)
	}
}

// Names returns the bound names in sorted order.
func (e Env) Names() []string {
	names := make([]string, 0, e.Len())
	e.ForEach(func(name string, _ Binding) {
		names = append(names, name)
	})
	sort.Strings(names)
	return names
}

func (e Env) Equal(o Env) bool {
	if e.m == o.m {
		return true
	}
	if e.Len() != o.Len() {
		return false
	}
	eq := true
	e.ForEach(func(name string, b Binding) {
		if !eq {
			return
		}
		ob, ok := o.Get(name)
		eq = ok && b.Equal(ob)
	})
	return eq
}

// Join merges two environments. Bindings present in both are joined
// pointwise and their flags combined. Bindings present in only one side
// are kept, since they belong to a scope the other side never entered.
func (e Env) Join(o Env) Env {
	if e.m == o.m {
		return e
	}
	res := e
	o.ForEach(func(name string, ob Binding) {
		b, ok := res.Get(name)
		switch {
		case !ok:
			res = res.Bind(name, ob)
		case !b.Equal(ob):
			res = res.Bind(name, Binding{
				Value:       lattice.Join(b.Value, ob.Value),
				Dispatch:    b.Dispatch || ob.Dispatch,
				LoopCounter: b.LoopCounter || ob.LoopCounter,
			})
		}
	})
	return res
}

// Diff lists the names whose bindings differ between e and o, sorted.
func (e Env) Diff(o Env) []string {
	var names []string
	e.ForEach(func(name string, b Binding) {
		if ob, ok := o.Get(name); !ok || !b.Equal(ob) {
			names = append(names, name)
		}
	})
	o.ForEach(func(name string, _ Binding) {
		if !e.Has(name) {
			names = append(names, name)
		}
	})
	sort.Strings(names)
	return names
}

var colorize = struct {
	Name func(...interface{}) string
	Flag func(...interface{}) string
}{
	Name: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiWhite).SprintFunc())(is...)
	},
	Flag: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.Faint).SprintFunc())(is...)
	},
}

func (b Binding) String() string {
	s := b.Value.String()
	if b.Dispatch {
		s += colorize.Flag(" [dispatch]")
	}
	if b.LoopCounter {
		s += colorize.Flag(" [loop]")
	}
	return s
}

func (e Env) String() string {
	entries := []string{}
	for _, name := range e.Names() {
		b, _ := e.Get(name)
		entries = append(entries, colorize.Name(name)+" = "+b.String())
	}
	return i.Indenter().Start("{").Sep(",").NestStrings(entries...).End("}")
}
