package graph

import "io"

// Normalize builds a [Graph] from a decoded spec. It never fails: edges from
// undeclared sources are skipped and counted, undeclared targets become
// implicit nodes, and duplicate node declarations keep the first one.
func Normalize(s Spec) *Graph {
	g := New()
	for _, n := range s.Nodes {
		_ = g.AddNode(Node{ID: n.ID, Label: n.Label})
	}

	for _, e := range s.Edges {
		if _, ok := g.nodes[e.Source]; !ok || g.nodes[e.Source].Dynamic {
			g.skipped++
			g.next++
			continue
		}
		target := e.Target
		if target == "" {
			target = g.ensureDynamic(e.Source)
		} else if _, ok := g.nodes[target]; !ok {
			_ = g.AddNode(Node{ID: target, Implicit: true})
		}
		_, _ = g.AddEdge(Edge{Source: e.Source, Target: target, Dynamic: e.Dynamic})
	}

	for _, id := range s.EntryNodes {
		if n, ok := g.nodes[id]; ok {
			n.Entry = true
		}
	}
	for _, id := range s.TerminalNodes {
		if n, ok := g.nodes[id]; ok {
			n.Terminal = true
		}
	}
	return g
}

// ensureDynamic returns the dynamic node for source, creating it on first use.
// A declared or implicit node that already owns the dynamic ID is turned into
// the dynamic node; it keeps its label, and edges already pointing at it
// become unresolved.
func (g *Graph) ensureDynamic(source string) string {
	id := DynamicNodeID(source)
	n, ok := g.nodes[id]
	if !ok {
		_ = g.AddNode(Node{ID: id, Label: DynamicLabel, Dynamic: true})
		return id
	}
	if !n.Dynamic {
		n.Dynamic = true
		if n.Label == "" {
			n.Label = DynamicLabel
		}
		for i := range g.edges {
			if g.edges[i].Target == id {
				g.edges[i].Unresolved = true
			}
		}
	}
	return id
}

// Load decodes and normalizes a graph description.
func Load(r io.Reader) (*Graph, error) {
	s, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return Normalize(s), nil
}
