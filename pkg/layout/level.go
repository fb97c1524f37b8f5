package layout

import "github.com/matzehuels/graphstudio/pkg/graph"

// Leveler assigns each node a level (rank): 0 is the top row.
//
// Implementations seed from entry nodes, or the first node when none are
// declared. Edges into dynamic nodes never influence levels; dynamic nodes
// take their source's level.
type Leveler interface {
	AssignLevels(g *graph.Graph) map[string]int
}

// LongestPath levels nodes by repeated relaxation so each node sits below all
// of its predecessors, entry nodes included. Edges that close a cycle are left
// out of the relaxation; relaxation is also bounded and levels are capped at
// the number of nodes.
type LongestPath struct{}

// ShortestPath levels nodes by breadth-first distance from the seeds.
type ShortestPath struct{}

// AssignLevels implements [Leveler].
func (LongestPath) AssignLevels(g *graph.Graph) map[string]int {
	levels, ids := seed(g)
	n := len(ids)
	edges := staticEdges(g)
	back := backEdges(levels, ids, edges)

	passes := max(2*n, 1)
	for range passes {
		updated := false
		for _, e := range edges {
			src, ok := levels[e.Source]
			if !ok || back[[2]string{e.Source, e.Target}] {
				continue
			}
			next := min(src+1, n)
			if cur, ok := levels[e.Target]; !ok || cur < next {
				levels[e.Target] = next
				updated = true
			}
		}
		if !updated {
			break
		}
	}
	return finalize(g, levels, ids)
}

// AssignLevels implements [Leveler].
func (ShortestPath) AssignLevels(g *graph.Graph) map[string]int {
	levels, ids := seed(g)
	queue := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := levels[id]; ok {
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, child := range g.Children(id) {
			if g.IsDynamic(child) {
				continue
			}
			if _, seen := levels[child]; seen {
				continue
			}
			levels[child] = levels[id] + 1
			queue = append(queue, child)
		}
	}
	return finalize(g, levels, ids)
}

// seed returns the initial levels (entries at 0) and the static node IDs.
func seed(g *graph.Graph) (map[string]int, []string) {
	ids := g.StaticIDs()
	levels := make(map[string]int, g.NodeCount())
	for _, id := range ids {
		if g.IsEntry(id) {
			levels[id] = 0
		}
	}
	if len(levels) == 0 && len(ids) > 0 {
		levels[ids[0]] = 0
	}
	return levels, ids
}

// backEdges finds the edges that close a cycle with a depth-first colouring
// pass, started from the seeds and then from every unvisited node.
func backEdges(seeds map[string]int, ids []string, edges []graph.Edge) map[[2]string]bool {
	const (
		white = iota
		gray
		black
	)

	children := make(map[string][]string)
	for _, e := range edges {
		children[e.Source] = append(children[e.Source], e.Target)
	}
	color := make(map[string]int, len(ids))
	back := make(map[[2]string]bool)

	var dfs func(id string)
	dfs = func(id string) {
		color[id] = gray
		for _, child := range children[id] {
			switch color[child] {
			case white:
				dfs(child)
			case gray:
				back[[2]string{id, child}] = true
			}
		}
		color[id] = black
	}

	for _, id := range ids {
		if _, ok := seeds[id]; ok && color[id] == white {
			dfs(id)
		}
	}
	for _, id := range ids {
		if color[id] == white {
			dfs(id)
		}
	}
	return back
}

func staticEdges(g *graph.Graph) []graph.Edge {
	var out []graph.Edge
	for _, e := range g.Edges() {
		if !e.Unresolved && !g.IsDynamic(e.Target) {
			out = append(out, e)
		}
	}
	return out
}

// finalize places unreachable nodes, aligns terminals and levels dynamic nodes.
func finalize(g *graph.Graph, levels map[string]int, ids []string) map[string]int {
	maxLevel := 0
	for _, lvl := range levels {
		maxLevel = max(maxLevel, lvl)
	}
	for _, id := range ids {
		if _, ok := levels[id]; !ok {
			levels[id] = maxLevel + 1
		}
	}
	alignTerminals(g, levels, ids, maxLevel)

	for _, n := range g.Nodes() {
		if !n.Dynamic {
			continue
		}
		for _, parent := range g.Parents(n.ID) {
			if lvl, ok := levels[parent]; ok {
				levels[n.ID] = lvl
				break
			}
		}
		if _, ok := levels[n.ID]; !ok {
			levels[n.ID] = 0
		}
	}
	return levels
}

// alignTerminals moves every terminal node to the row below the deepest
// non-terminal node, and pulls nodes that only feed terminals down to that
// deepest row.
func alignTerminals(g *graph.Graph, levels map[string]int, ids []string, maxLevel int) {
	maxNonTerminal := -1
	for _, id := range ids {
		if !g.IsTerminal(id) {
			maxNonTerminal = max(maxNonTerminal, levels[id])
		}
	}
	if maxNonTerminal < 0 {
		maxNonTerminal = maxLevel
	}

	for _, id := range ids {
		if g.IsTerminal(id) {
			levels[id] = maxNonTerminal + 1
		}
	}

	for _, id := range ids {
		if g.IsTerminal(id) {
			continue
		}
		feedsTerminals := false
		for _, child := range g.Children(id) {
			if g.IsDynamic(child) {
				continue
			}
			if !g.IsTerminal(child) {
				feedsTerminals = false
				break
			}
			feedsTerminals = true
		}
		if feedsTerminals {
			levels[id] = max(levels[id], maxNonTerminal)
		}
	}
}
