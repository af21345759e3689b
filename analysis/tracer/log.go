package tracer

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/fatih/color"
	"github.com/hashicorp/go-set/v3"

	"github.com/zed-0xff/cs-reflow-sub000/analysis/env"
	"github.com/zed-0xff/cs-reflow-sub000/analysis/eval"
	"github.com/zed-0xff/cs-reflow-sub000/analysis/ir"
	L "github.com/zed-0xff/cs-reflow-sub000/analysis/lattice"
	"github.com/zed-0xff/cs-reflow-sub000/utils"
)

// EntryKind distinguishes the entries of a trace log.
type EntryKind int

const (
	// Effect is an executed declaration, expression statement or return.
	Effect EntryKind = iota
	// Branch is a decision forced by a hint.
	Branch
	// Merged is a conditional rebuilt from two traces.
	Merged
	// End is the implicit return of a body that runs off its end.
	End
)

// Entry is one step of a trace.
type Entry struct {
	Kind EntryKind
	// The executed statement. For a Branch, the decision node. For a Merged
	// entry, the rebuilt conditional, possibly labeled.
	Stmt  ir.Stmt
	Value L.Value
	// Environment after the entry.
	Env    env.Env
	Access eval.Access

	// Branch entries: the decision and its outcome.
	Cond  ir.Expr
	Taken bool
	// Label wrapping the decision node, if any.
	Label string

	// Merged entries: the node the conditional is rebuilt from, and the
	// entries of both arms.
	Decision   ir.Stmt
	Then, Else []Entry

	// Free form annotation.
	Note string
}

// Line is the line of the statement of the entry.
func (e Entry) Line() int {
	if e.Stmt == nil {
		return 0
	}
	return e.Stmt.Line()
}

// Same checks whether two entries are structurally equivalent, ignoring
// comments, values and environments.
func (e Entry) Same(o Entry) bool {
	if e.Kind != o.Kind {
		return false
	}
	switch e.Kind {
	case Branch:
		return e.Line() == o.Line() && e.Taken == o.Taken
	case End:
		return true
	}
	return ir.Equal(e.Stmt, o.Stmt)
}

// Fingerprint hashes what Same compares: entries that are the same have
// equal fingerprints.
func (e Entry) Fingerprint() uint64 {
	switch e.Kind {
	case Branch:
		return xxhash.Sum64String(fmt.Sprintf("branch %d %t", e.Line(), e.Taken))
	case End:
		return xxhash.Sum64String("end")
	}
	return ir.Fingerprint(e.Stmt)*31 + uint64(e.Kind)
}

// NewMerged creates the conditional joining two traces that part at the
// hinted decision branch. The first arm is taken if the condition holds.
func NewMerged(branch Entry, then, els []Entry) Entry {
	return Rebuild(Entry{
		Kind:     Merged,
		Value:    branch.Value,
		Env:      branch.Env,
		Access:   branch.Access,
		Cond:     branch.Cond,
		Label:    branch.Label,
		Decision: branch.Stmt,
	}, then, els)
}

// Rebuild replaces the arms of a merged entry. An empty else arm is
// omitted from the conditional.
func Rebuild(e Entry, then, els []Entry) Entry {
	e.Then, e.Else = then, els

	d := e.Decision
	line := d.Line()
	s := &ir.If{
		Pos:  ir.At(d.ID(), line).WithComment(d.Comment()),
		Cond: e.Cond,
		Then: &ir.Block{Pos: ir.At(0, line), Stmts: Stmts(then)},
	}
	if elsStmts := Stmts(els); len(elsStmts) > 0 {
		s.Else = &ir.Block{Pos: ir.At(0, line), Stmts: elsStmts}
	}

	e.Stmt = s
	if e.Label != "" {
		e.Stmt = &ir.Labeled{Pos: ir.At(0, line), Label: e.Label, Stmt: s}
	}
	return e
}

// Log is a completed trace.
type Log struct {
	Entries []Entry
	// The hints the trace was obtained with.
	Hints Hints
	// Environment at the end of the trace.
	Env env.Env
	// Variables read by switch discriminants.
	Discriminants *set.Set[string]
}

// Stmts flattens the log into the statements it executed. Branch markers
// and the implicit return are omitted.
func (l *Log) Stmts() []ir.Stmt {
	return Stmts(l.Entries)
}

// Stmts lists the statements of a sequence of entries.
func Stmts(entries []Entry) []ir.Stmt {
	var res []ir.Stmt
	for _, e := range entries {
		switch e.Kind {
		case Effect, Merged:
			res = append(res, e.Stmt)
		}
	}
	return res
}

var colorize = struct {
	Hints func(...interface{}) string
	Value func(...interface{}) string
}{
	Hints: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiMagenta).SprintFunc())(is...)
	},
	Value: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.Faint).SprintFunc())(is...)
	},
}

func (l *Log) String() string {
	var sb strings.Builder
	sb.WriteString(colorize.Hints("{" + l.Hints.String() + "}"))
	sb.WriteString("\n")
	writeEntries(&sb, l.Entries, 1)
	return strings.TrimSuffix(sb.String(), "\n")
}

func writeEntries(sb *strings.Builder, entries []Entry, depth int) {
	indent := strings.Repeat("\t", depth)
	for _, e := range entries {
		switch e.Kind {
		case Branch:
			fmt.Fprintf(sb, "%s%s\n", indent, colorize.Hints(fmt.Sprintf("[line %d: %t]", e.Line(), e.Taken)))
		case End:
			fmt.Fprintf(sb, "%s%s\n", indent, colorize.Hints("[end]"))
		default:
			text := strings.ReplaceAll(ir.Format(e.Stmt), "\n", "\n"+indent)
			if c, ok := e.Value.(L.Const); ok && e.Kind == Effect {
				text += colorize.Value(" // " + c.Literal())
			}
			fmt.Fprintf(sb, "%s%s\n", indent, text)
		}
	}
}
