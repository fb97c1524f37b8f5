package graph

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] when the node ID is empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Graph.AddNode] when a node with the
	// same ID already exists.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [Graph.AddEdge] when the source node
	// does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Graph.AddEdge] when the target node
	// does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")
)

// DynamicLabel is the display label of synthetic dynamic nodes.
const DynamicLabel = "Dynamic target"

const dynamicPrefix = "dynamic-"

// DynamicNodeID returns the ID of the synthetic node standing in for the
// runtime-chosen targets of source.
func DynamicNodeID(source string) string { return dynamicPrefix + source }

// Node is a workflow step, or a synthetic stand-in for a dynamic target.
type Node struct {
	ID       string
	Label    string // Display label; empty means "use ID"
	Entry    bool
	Terminal bool
	Dynamic  bool
	Implicit bool // Materialized from an edge endpoint, not declared
}

// DisplayLabel returns Label, falling back to ID when no label is set.
func (n Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// Edge is a directed connection. Index is the edge's position in input order
// and is unique within a graph.
type Edge struct {
	Index      int
	Source     string
	Target     string
	Dynamic    bool // Declared as non-deterministic by the backend
	Unresolved bool // Declared without a target; Target is a dynamic node
}

// Key returns the stable edge key "e-<source>-<target>-<index>".
func (e Edge) Key() string {
	return fmt.Sprintf("e-%s-%s-%d", e.Source, e.Target, e.Index)
}

// Graph is a directed graph with input-ordered nodes and edges. Cycles are
// allowed.
//
// The zero value is not usable; use [New] or [Normalize].
type Graph struct {
	nodes    map[string]*Node
	order    []string
	edges    []Edge
	outgoing map[string][]string
	incoming map[string][]string
	dynamic  map[string]string // source -> dynamic node ID
	skipped  int
	next     int // input position of the next edge
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
		dynamic:  make(map[string]string),
	}
}

// AddNode adds a node. Returns [ErrInvalidNodeID] for an empty ID and
// [ErrDuplicateNodeID] if the ID is taken.
func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, ok := g.nodes[n.ID]; ok {
		return ErrDuplicateNodeID
	}
	g.nodes[n.ID] = &n
	g.order = append(g.order, n.ID)
	return nil
}

// AddEdge appends an edge between two existing nodes and returns it with its
// Index assigned. Edges skipped by [Normalize] still consume an index.
// Unresolved is set when the target is a dynamic node. Parallel edges are
// kept.
func (g *Graph) AddEdge(e Edge) (Edge, error) {
	if _, ok := g.nodes[e.Source]; !ok {
		return Edge{}, fmt.Errorf("%w: %s", ErrUnknownSourceNode, e.Source)
	}
	dst, ok := g.nodes[e.Target]
	if !ok {
		return Edge{}, fmt.Errorf("%w: %s", ErrUnknownTargetNode, e.Target)
	}
	e.Index = g.next
	g.next++
	e.Unresolved = dst.Dynamic
	g.edges = append(g.edges, e)
	g.outgoing[e.Source] = append(g.outgoing[e.Source], e.Target)
	g.incoming[e.Target] = append(g.incoming[e.Target], e.Source)
	if dst.Dynamic {
		g.dynamic[e.Source] = e.Target
	}
	return e, nil
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Nodes returns all nodes in input order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.order))
	for i, id := range g.order {
		out[i] = *g.nodes[id]
	}
	return out
}

// NodeIDs returns all node IDs in input order.
func (g *Graph) NodeIDs() []string { return slices.Clone(g.order) }

// Edges returns all edges in input order.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// EdgesFrom returns the edges leaving source, in input order.
func (g *Graph) EdgesFrom(source string) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.Source == source {
			out = append(out, e)
		}
	}
	return out
}

// Children returns the targets of edges leaving id, in edge order. Duplicates
// appear once per parallel edge.
func (g *Graph) Children(id string) []string { return g.outgoing[id] }

// Parents returns the sources of edges entering id, in edge order.
func (g *Graph) Parents(id string) []string { return g.incoming[id] }

// DynamicNode returns the dynamic node attached to source, if any.
func (g *Graph) DynamicNode(source string) (string, bool) {
	id, ok := g.dynamic[source]
	return id, ok
}

// EntryIDs returns the IDs of entry nodes in node order.
func (g *Graph) EntryIDs() []string {
	return g.filter(func(n *Node) bool { return n.Entry })
}

// TerminalIDs returns the IDs of terminal nodes in node order.
func (g *Graph) TerminalIDs() []string {
	return g.filter(func(n *Node) bool { return n.Terminal })
}

// StaticIDs returns the IDs of all non-dynamic nodes in node order.
func (g *Graph) StaticIDs() []string {
	return g.filter(func(n *Node) bool { return !n.Dynamic })
}

func (g *Graph) filter(keep func(*Node) bool) []string {
	var out []string
	for _, id := range g.order {
		if keep(g.nodes[id]) {
			out = append(out, id)
		}
	}
	return out
}

// SkippedEdges returns how many input edges were dropped by [Normalize]
// because their source is not a declared node.
func (g *Graph) SkippedEdges() int { return g.skipped }

// NodeCount returns the number of nodes, dynamic nodes included.
func (g *Graph) NodeCount() int { return len(g.order) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// IsDynamic reports whether id names a synthetic dynamic node.
func (g *Graph) IsDynamic(id string) bool {
	n, ok := g.nodes[id]
	return ok && n.Dynamic
}

// IsEntry reports whether id names an entry node.
func (g *Graph) IsEntry(id string) bool {
	n, ok := g.nodes[id]
	return ok && n.Entry
}

// IsTerminal reports whether id names a terminal node.
func (g *Graph) IsTerminal(id string) bool {
	n, ok := g.nodes[id]
	return ok && n.Terminal
}
