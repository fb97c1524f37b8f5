package layout

import (
	"github.com/matzehuels/graphstudio/pkg/graph"
)

// RouteEdges assigns side lanes to edges that would be drawn through nodes.
//
// An edge spanning more than one level is detoured when the midpoint of its
// endpoints falls inside the bounds of any row strictly between them. Edges
// running right to left (or straight down) take lanes right of all nodes;
// edges running left to right take lanes on the left. Lanes are numbered per
// side in edge order. The result maps edge keys to lane X coordinates.
func RouteEdges(g *graph.Graph, levels map[string]int, geo Geometry, gapX float64) map[string]float64 {
	routes := make(map[string]float64)
	right, left := 0, 0
	for _, e := range g.Edges() {
		srcLevel, ok1 := levels[e.Source]
		dstLevel, ok2 := levels[e.Target]
		if !ok1 || !ok2 {
			continue
		}
		lo, hi := min(srcLevel, dstLevel), max(srcLevel, dstLevel)
		if hi-lo <= 1 {
			continue
		}
		src, ok1 := geo.Positions[e.Source]
		dst, ok2 := geo.Positions[e.Target]
		if !ok1 || !ok2 {
			continue
		}

		mid := (src.X + dst.X) / 2
		blocked := false
		for lvl := lo + 1; lvl < hi; lvl++ {
			if b, ok := geo.RowBounds[lvl]; ok && b.Contains(mid) {
				blocked = true
				break
			}
		}
		if !blocked {
			continue
		}

		if src.X >= dst.X {
			routes[e.Key()] = geo.MaxX + laneMargin*gapX + float64(right)*laneSpacing*gapX
			right++
		} else {
			routes[e.Key()] = geo.MinX - laneMargin*gapX - float64(left)*laneSpacing*gapX
			left++
		}
	}
	return routes
}
