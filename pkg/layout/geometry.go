package layout

import (
	"math"

	"github.com/matzehuels/graphstudio/pkg/graph"
)

// Point is a node anchor position in pixels.
type Point struct {
	X, Y float64
}

// Bounds is the horizontal extent of a row, node widths included.
type Bounds struct {
	Min, Max float64
}

// Contains reports whether x lies within b, edges inclusive.
func (b Bounds) Contains(x float64) bool { return x >= b.Min && x <= b.Max }

// Geometry holds node positions and the per-level extents routing needs.
// MinX and MaxX span the anchors of all non-dynamic nodes.
type Geometry struct {
	Positions map[string]Point
	RowBounds map[int]Bounds
	MinX      float64
	MaxX      float64
}

// gridPositions centers each row on the widest one.
func gridPositions(rows [][]string, gapX, gapY float64) map[string]Point {
	widest := 0
	for _, row := range rows {
		widest = max(widest, len(row))
	}
	pos := make(map[string]Point)
	for r, row := range rows {
		rowWidth := float64(len(row)-1) * gapX
		offset := (float64(widest-1)*gapX - rowWidth) / 2
		for c, id := range row {
			pos[id] = Point{X: float64(c)*gapX + offset, Y: float64(r) * gapY}
		}
	}
	return pos
}

// placeDynamic puts each dynamic node beside the source that owns it.
func placeDynamic(g *graph.Graph, pos map[string]Point, gapX, gapY float64) {
	for _, n := range g.Nodes() {
		if !n.Dynamic {
			continue
		}
		p := Point{}
		for _, parent := range g.Parents(n.ID) {
			if src, ok := pos[parent]; ok {
				p = src
				break
			}
		}
		pos[n.ID] = Point{X: p.X + dynamicOffsetX*gapX, Y: p.Y + dynamicOffsetY*gapY}
	}
}

// measure computes row bounds and the global anchor span. width returns the
// rendered width of a node.
func measure(g *graph.Graph, levels map[string]int, pos map[string]Point, width func(string) float64) Geometry {
	geo := Geometry{
		Positions: pos,
		RowBounds: make(map[int]Bounds),
		MinX:      math.Inf(1),
		MaxX:      math.Inf(-1),
	}
	for _, id := range g.StaticIDs() {
		p, ok := pos[id]
		if !ok {
			continue
		}
		geo.MinX = min(geo.MinX, p.X)
		geo.MaxX = max(geo.MaxX, p.X)

		half := width(id) / 2
		lvl := levels[id]
		b, ok := geo.RowBounds[lvl]
		if !ok {
			b = Bounds{Min: math.Inf(1), Max: math.Inf(-1)}
		}
		b.Min = min(b.Min, p.X-half)
		b.Max = max(b.Max, p.X+half)
		geo.RowBounds[lvl] = b
	}
	if math.IsInf(geo.MinX, 1) {
		geo.MinX, geo.MaxX = 0, 0
	}
	return geo
}
