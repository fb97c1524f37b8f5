package layout

import (
	"cmp"
	"math"
	"slices"

	"github.com/matzehuels/graphstudio/pkg/graph"
)

// DefaultPasses is the number of barycenter sweeps used when none is set.
const DefaultPasses = 3

const scoreEpsilon = 1e-4

// Orderer arranges the nodes of each level left to right. The returned rows
// are in ascending level order and never contain dynamic nodes.
type Orderer interface {
	OrderRows(g *graph.Graph, levels map[string]int) [][]string
}

// Barycenter reduces edge crossings by repeatedly sorting each row by the
// mean position of its neighbours. Each pass is a downward sweep using
// incoming neighbours followed by an upward sweep using outgoing neighbours.
type Barycenter struct {
	Passes int // Zero means DefaultPasses
}

// OrderRows implements [Orderer].
func (b Barycenter) OrderRows(g *graph.Graph, levels map[string]int) [][]string {
	rows := initialRows(g, levels)
	if len(rows) == 0 {
		return rows
	}
	passes := b.Passes
	if passes <= 0 {
		passes = DefaultPasses
	}

	index := make(map[string]int, g.NodeCount())
	reindex := func(row []string) {
		for i, id := range row {
			index[id] = i
		}
	}
	for _, row := range rows {
		reindex(row)
	}

	sortRow := func(row []string, neighbours func(string) []string) {
		scores := make(map[string]float64, len(row))
		for _, id := range row {
			scores[id] = barycenter(id, neighbours(id), index, g)
		}
		slices.SortStableFunc(row, func(x, y string) int {
			if d := scores[x] - scores[y]; math.Abs(d) > scoreEpsilon {
				return cmp.Compare(scores[x], scores[y])
			}
			return compareLabels(g, x, y)
		})
		reindex(row)
	}

	for range passes {
		for i := 1; i < len(rows); i++ {
			sortRow(rows[i], g.Parents)
		}
		for i := len(rows) - 2; i >= 0; i-- {
			sortRow(rows[i], g.Children)
		}
	}
	return rows
}

// initialRows groups static nodes by level, sorted by label.
func initialRows(g *graph.Graph, levels map[string]int) [][]string {
	byLevel := make(map[int][]string)
	for _, id := range g.StaticIDs() {
		lvl, ok := levels[id]
		if !ok {
			continue
		}
		byLevel[lvl] = append(byLevel[lvl], id)
	}
	keys := sortedKeys(byLevel)
	rows := make([][]string, len(keys))
	for i, lvl := range keys {
		row := byLevel[lvl]
		slices.SortStableFunc(row, func(x, y string) int { return compareLabels(g, x, y) })
		rows[i] = row
	}
	return rows
}

// barycenter returns the mean index of the neighbours that are placed in some
// row, or the node's own index when it has none.
func barycenter(id string, neighbours []string, index map[string]int, g *graph.Graph) float64 {
	sum, count := 0, 0
	for _, nb := range neighbours {
		if g.IsDynamic(nb) {
			continue
		}
		if i, ok := index[nb]; ok {
			sum += i
			count++
		}
	}
	if count == 0 {
		return float64(index[id])
	}
	return float64(sum) / float64(count)
}

func compareLabels(g *graph.Graph, x, y string) int {
	nx, _ := g.Node(x)
	ny, _ := g.Node(y)
	if c := cmp.Compare(nx.DisplayLabel(), ny.DisplayLabel()); c != 0 {
		return c
	}
	return cmp.Compare(x, y)
}
