package graph

import (
	"fmt"
)

// Graph is a validated, immutable dependency graph.
type Graph struct {
	nodes map[ID]Node
	order []ID // declaration order
	edges []Edge
	topo  []ID
}

// New validates the nodes and builds the graph.
func New(nodes []Node) (*Graph, error) {
	g := &Graph{
		nodes: make(map[ID]Node, len(nodes)),
		order: make([]ID, 0, len(nodes)),
	}

	for _, n := range nodes {
		if n.ID.Kind == "" || n.ID.Name == "" {
			return nil, fmt.Errorf("resource id %q is incomplete", n.ID)
		}
		if _, exists := g.nodes[n.ID]; exists {
			return nil, DuplicateNodeError{ID: n.ID}
		}
		g.nodes[n.ID] = Node{ID: n.ID, DependsOn: append([]ID(nil), n.DependsOn...)}
		g.order = append(g.order, n.ID)
	}

	for _, id := range g.order {
		for _, dep := range g.nodes[id].DependsOn {
			if _, ok := g.nodes[dep]; !ok {
				return nil, DependencyNotFoundError{From: id, To: dep}
			}
			g.edges = append(g.edges, Edge{From: id, To: dep})
		}
	}

	topo, err := g.topoSort()
	if err != nil {
		return nil, err
	}
	g.topo = topo
	return g, nil
}

func (g *Graph) topoSort() ([]ID, error) {
	const (
		stateNew uint8 = iota
		stateVisiting
		stateDone
	)

	state := make(map[ID]uint8, len(g.order))
	stack := make([]ID, 0, len(g.order))
	stackPos := make(map[ID]int, len(g.order))
	topo := make([]ID, 0, len(g.order))

	var dfs func(id ID) error
	dfs = func(id ID) error {
		if state[id] == stateDone {
			return nil
		}

		state[id] = stateVisiting
		stackPos[id] = len(stack)
		stack = append(stack, id)

		for _, dep := range g.nodes[id].DependsOn {
			if state[dep] == stateVisiting {
				cycle := append([]ID(nil), stack[stackPos[dep]:]...)
				cycle = append(cycle, dep)
				return CycleDetectedError{Path: cycle}
			}
			if err := dfs(dep); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		delete(stackPos, id)
		state[id] = stateDone
		topo = append(topo, id)
		return nil
	}

	for _, id := range g.order {
		if state[id] == stateNew {
			if err := dfs(id); err != nil {
				return nil, err
			}
		}
	}
	return topo, nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.order) }

// Node returns the node with the given ID.
func (g *Graph) Node(id ID) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Has reports whether the graph contains id.
func (g *Graph) Has(id ID) bool {
	_, ok := g.nodes[id]
	return ok
}

// Nodes returns the nodes in declaration order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.order))
	for i, id := range g.order {
		out[i] = g.nodes[id]
	}
	return out
}

// Edges returns a copy of all edges.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// TopoOrder returns the IDs with dependencies first.
func (g *Graph) TopoOrder() []ID {
	return append([]ID(nil), g.topo...)
}

// ReverseOrder returns the IDs with dependents first.
func (g *Graph) ReverseOrder() []ID {
	out := make([]ID, len(g.topo))
	for i, id := range g.topo {
		out[len(g.topo)-1-i] = id
	}
	return out
}

// Dependents returns the nodes that directly depend on id, in declaration order.
func (g *Graph) Dependents(id ID) []ID {
	var out []ID
	for _, e := range g.edges {
		if e.To == id {
			out = append(out, e.From)
		}
	}
	return out
}

// Dependencies returns the direct dependencies of id.
func (g *Graph) Dependencies(id ID) []ID {
	return append([]ID(nil), g.nodes[id].DependsOn...)
}
