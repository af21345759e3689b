package tracer

import (
	"fmt"
	"strings"

	"github.com/emicklei/dot"
)

// Dot renders the exploration tree as a DOT graph.
func (ex *Exploration) Dot() string {
	g := dot.NewGraph(dot.Directed)
	g.Attr("rankdir", "TB")

	var visit func(n *Node) dot.Node
	visit = func(n *Node) dot.Node {
		// The library numbers nodes on its own; the id attribute keeps the
		// attempt number in the output.
		id := fmt.Sprintf("attempt%d", n.ID)
		gn := g.Node(id).Attr("id", id)
		hints := "{" + n.Hints.String() + "}"

		switch {
		case n.Line > 0:
			gn.Label(fmt.Sprintf("%s\nline %d?", hints, n.Line)).Attr("shape", "diamond")
		case n.Err != nil:
			gn.Label(hints+"\n"+strings.ReplaceAll(n.Err.Error(), "\"", "'")).Box().Attr("color", "red")
		case n.Log != nil:
			gn.Label(fmt.Sprintf("%s\n%d statements", hints, len(n.Log.Stmts()))).Box()
		default:
			gn.Label(hints + "\nnot traced").Attr("style", "dashed")
		}

		for i, c := range n.Children {
			g.Edge(gn, visit(c)).Label(fmt.Sprint(i == 0))
		}
		return gn
	}
	visit(ex.Root)

	return g.String()
}
