package graph

import (
	"fmt"
	"strings"
)

// DOT exports Graphviz DOT text.
func (g *Graph) DOT() string {
	var b strings.Builder
	b.WriteString("digraph aries {\n")
	b.WriteString("  rankdir=LR;\n")

	aliases := make(map[ID]string, len(g.order))
	for i, id := range g.order {
		alias := fmt.Sprintf("n%d", i)
		aliases[id] = alias
		label := escapeDOT(id.Name) + "\\n(" + escapeDOT(id.Kind) + ")"
		fmt.Fprintf(&b, "  %s [label=\"%s\"];\n", alias, label)
	}
	for _, e := range g.edges {
		fmt.Fprintf(&b, "  %s -> %s;\n", aliases[e.From], aliases[e.To])
	}
	b.WriteString("}\n")
	return b.String()
}

// Mermaid exports Mermaid graph text.
func (g *Graph) Mermaid() string {
	var b strings.Builder
	b.WriteString("graph TD\n")

	aliases := make(map[ID]string, len(g.order))
	for i, id := range g.order {
		alias := fmt.Sprintf("n%d", i)
		aliases[id] = alias
		label := escapeMermaid(id.Name) + "<br/>(" + escapeMermaid(id.Kind) + ")"
		fmt.Fprintf(&b, "    %s[\"%s\"]\n", alias, label)
	}
	for _, e := range g.edges {
		fmt.Fprintf(&b, "    %s --> %s\n", aliases[e.From], aliases[e.To])
	}
	return b.String()
}

func escapeDOT(s string) string {
	return strings.ReplaceAll(s, "\"", "\\\"")
}

func escapeMermaid(s string) string {
	return strings.ReplaceAll(s, "\"", "#quot;")
}
