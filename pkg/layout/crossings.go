package layout

import (
	"slices"

	"github.com/matzehuels/graphstudio/pkg/graph"
)

// CountCrossings returns the number of edge crossings between each pair of
// consecutive rows. Edges spanning more than one row, and edges into dynamic
// nodes, are not counted.
func CountCrossings(g *graph.Graph, rows [][]string) int {
	total := 0
	for i := 0; i+1 < len(rows); i++ {
		total += countLayerCrossings(g, rows[i], rows[i+1])
	}
	return total
}

// countLayerCrossings counts inversions of lower positions among edges
// sorted by upper position, using a Fenwick tree. Two edges (u1,v1) and
// (u2,v2) cross when pos(u1) < pos(u2) and pos(v1) > pos(v2).
func countLayerCrossings(g *graph.Graph, upper, lower []string) int {
	if len(upper) == 0 || len(lower) == 0 {
		return 0
	}
	lowerPos := make(map[string]int, len(lower))
	for i, id := range lower {
		lowerPos[id] = i
	}

	type span struct{ upper, lower int }
	spans := make([]span, 0, len(upper)*2)
	for i, id := range upper {
		for _, child := range g.Children(id) {
			if pos, ok := lowerPos[child]; ok {
				spans = append(spans, span{i, pos})
			}
		}
	}
	if len(spans) < 2 {
		return 0
	}
	slices.SortFunc(spans, func(a, b span) int {
		if a.upper != b.upper {
			return a.upper - b.upper
		}
		return a.lower - b.lower
	})

	fenwick := make([]int, len(lower)+1)
	crossings, seen := 0, 0
	for _, s := range spans {
		atMost := 0
		for q := s.lower + 1; q > 0; q -= q & (-q) {
			atMost += fenwick[q]
		}
		crossings += seen - atMost
		seen++
		for i := s.lower + 1; i < len(fenwick); i += i & (-i) {
			fenwick[i]++
		}
	}
	return crossings
}
