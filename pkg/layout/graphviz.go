package layout

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/graphstudio/pkg/graph"
)

// pointsPerInch converts between Graphviz inches and pixel-sized points.
const pointsPerInch = 72.0

// Graphviz delegates ordering and coordinates to the Graphviz dot engine.
// Levels still come from the configured [Leveler] and are enforced as dot
// ranks, so detour routing behaves the same as with [Heuristic].
type Graphviz struct {
	opts Options
}

// NewGraphviz creates the Graphviz-backed strategy.
func NewGraphviz(opts Options) *Graphviz {
	opts.setDefaults()
	return &Graphviz{opts: opts}
}

// Name implements [Strategy].
func (s *Graphviz) Name() string { return StrategyGraphviz }

// ProbeGraphviz reports whether the embedded Graphviz runtime can start.
func ProbeGraphviz(ctx context.Context) error {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return fmt.Errorf("init graphviz: %w", err)
	}
	return gv.Close()
}

// Layout implements [Strategy].
func (s *Graphviz) Layout(ctx context.Context, g *graph.Graph) (*Result, error) {
	return observe(ctx, s.Name(), g, func() (*Result, error) {
		o := s.opts
		levels := o.Leveler.AssignLevels(g)
		ids := g.StaticIDs()

		sizes := make(map[string]Point, g.NodeCount())
		for _, n := range g.Nodes() {
			w, h := EstimateNodeSize(n, o.NodeWidth)
			sizes[n.ID] = Point{X: w, Y: h}
		}

		pos := make(map[string]Point, g.NodeCount())
		if len(ids) > 0 {
			out, err := render(ctx, layoutDOT(g, ids, levels, sizes, o), graphviz.DOT, graphviz.XDOT)
			if err != nil {
				return nil, err
			}
			if pos, err = parsePositions(out, ids); err != nil {
				return nil, err
			}
		}

		rows := rowsByX(ids, levels, pos)
		placeDynamic(g, pos, o.GapX, o.GapY)
		geo := measure(g, levels, pos, func(id string) float64 { return sizes[id].X })
		routes := RouteEdges(g, levels, geo, o.GapX)
		return assemble(g, s.Name(), levels, rows, geo, routes, func(n graph.Node) (float64, float64) {
			return sizes[n.ID].X, sizes[n.ID].Y
		}), nil
	})
}

// layoutDOT emits a DOT graph whose nodes are named n<i> after their index in
// ids. Nodes of one level share a rank, and an invisible spine keeps ranks in
// level order. Edges that point up a level do not constrain ranking.
func layoutDOT(g *graph.Graph, ids []string, levels map[string]int, sizes map[string]Point, o Options) string {
	name := make(map[string]string, len(ids))
	byLevel := make(map[int][]string)
	for i, id := range ids {
		name[id] = "n" + strconv.Itoa(i)
		byLevel[levels[id]] = append(byLevel[levels[id]], name[id])
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	fmt.Fprintf(&buf, "  nodesep=%.3f;\n", max(o.GapX-o.NodeWidth, 0)/pointsPerInch)
	fmt.Fprintf(&buf, "  ranksep=%.3f;\n", max(o.GapY-baseHeight, 0)/pointsPerInch)
	buf.WriteString("  node [shape=box, fixedsize=true, label=\"\"];\n\n")

	for _, id := range ids {
		sz := sizes[id]
		fmt.Fprintf(&buf, "  %s [width=%.4f, height=%.4f];\n", name[id], sz.X/pointsPerInch, sz.Y/pointsPerInch)
	}

	buf.WriteString("\n")
	lvls := sortedKeys(byLevel)
	for _, lvl := range lvls {
		fmt.Fprintf(&buf, "  { rank=same; %s; }\n", strings.Join(byLevel[lvl], "; "))
	}
	for i := 0; i+1 < len(lvls); i++ {
		fmt.Fprintf(&buf, "  %s -> %s [style=invis, weight=0];\n", byLevel[lvls[i]][0], byLevel[lvls[i+1]][0])
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		src, ok1 := name[e.Source]
		dst, ok2 := name[e.Target]
		if !ok1 || !ok2 {
			continue
		}
		if levels[e.Target] <= levels[e.Source] {
			fmt.Fprintf(&buf, "  %s -> %s [constraint=false];\n", src, dst)
			continue
		}
		fmt.Fprintf(&buf, "  %s -> %s;\n", src, dst)
	}
	buf.WriteString("}\n")
	return buf.String()
}

var (
	nodeStmtRe = regexp.MustCompile(`(?m)^\s*(n\d+)\s*\[([^\]]*)\]`)
	posRe      = regexp.MustCompile(`pos="(-?[0-9.]+),(-?[0-9.]+)"`)
)

// parsePositions reads node positions from dot output and flips them so Y
// grows downward with the top row at 0.
func parsePositions(out []byte, ids []string) (map[string]Point, error) {
	text := strings.ReplaceAll(string(out), "\\\n", "")
	pos := make(map[string]Point, len(ids))
	maxY := 0.0
	for _, m := range nodeStmtRe.FindAllStringSubmatch(text, -1) {
		i, err := strconv.Atoi(m[1][1:])
		if err != nil || i >= len(ids) {
			continue
		}
		p := posRe.FindStringSubmatch(m[2])
		if p == nil {
			continue
		}
		x, errX := strconv.ParseFloat(p[1], 64)
		y, errY := strconv.ParseFloat(p[2], 64)
		if errX != nil || errY != nil {
			return nil, fmt.Errorf("parse position of %s: %q", ids[i], p[0])
		}
		pos[ids[i]] = Point{X: x, Y: y}
		maxY = max(maxY, y)
	}
	if len(pos) != len(ids) {
		return nil, fmt.Errorf("graphviz placed %d of %d nodes", len(pos), len(ids))
	}
	for id, p := range pos {
		pos[id] = Point{X: p.X, Y: maxY - p.Y}
	}
	return pos, nil
}

// rowsByX groups nodes by level and orders each row by X.
func rowsByX(ids []string, levels map[string]int, pos map[string]Point) [][]string {
	byLevel := make(map[int][]string)
	for _, id := range ids {
		byLevel[levels[id]] = append(byLevel[levels[id]], id)
	}
	var rows [][]string
	for _, lvl := range sortedKeys(byLevel) {
		row := byLevel[lvl]
		slices.SortStableFunc(row, func(a, b string) int {
			if c := cmp.Compare(pos[a].X, pos[b].X); c != 0 {
				return c
			}
			return cmp.Compare(a, b)
		})
		rows = append(rows, row)
	}
	return rows
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// render runs DOT source through the embedded Graphviz runtime with the given
// layout engine.
func render(ctx context.Context, dot string, engine graphviz.Layout, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(engine)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
