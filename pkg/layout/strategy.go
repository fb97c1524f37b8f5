package layout

import (
	"context"
	"math"
	"time"

	errs "github.com/matzehuels/graphstudio/pkg/errors"
	"github.com/matzehuels/graphstudio/pkg/graph"
	"github.com/matzehuels/graphstudio/pkg/observability"
)

// Strategy names accepted by [Select].
const (
	StrategyAuto      = "auto"
	StrategyHeuristic = "heuristic"
	StrategyGraphviz  = "graphviz"
)

// Strategy computes a render model for a graph.
type Strategy interface {
	Name() string
	Layout(ctx context.Context, g *graph.Graph) (*Result, error)
}

// Heuristic is the built-in layered layout: leveling, barycenter ordering,
// grid coordinates and detour routing.
type Heuristic struct {
	opts Options
}

// NewHeuristic creates the built-in strategy.
func NewHeuristic(opts Options) *Heuristic {
	opts.setDefaults()
	return &Heuristic{opts: opts}
}

// Name implements [Strategy].
func (h *Heuristic) Name() string { return StrategyHeuristic }

// Layout implements [Strategy].
func (h *Heuristic) Layout(ctx context.Context, g *graph.Graph) (*Result, error) {
	return observe(ctx, h.Name(), g, func() (*Result, error) {
		o := h.opts
		levels := o.Leveler.AssignLevels(g)
		rows := o.Orderer.OrderRows(g, levels)
		pos := gridPositions(rows, o.GapX, o.GapY)
		placeDynamic(g, pos, o.GapX, o.GapY)
		geo := measure(g, levels, pos, func(string) float64 { return o.NodeWidth })
		routes := RouteEdges(g, levels, geo, o.GapX)
		return assemble(g, h.Name(), levels, rows, geo, routes, func(n graph.Node) (float64, float64) {
			_, height := EstimateNodeSize(n, o.NodeWidth)
			return o.NodeWidth, height
		}), nil
	})
}

// Select returns the strategy named by name. "auto" prefers Graphviz and
// falls back to the heuristic when Graphviz cannot be initialized.
func Select(ctx context.Context, name string, opts Options) (Strategy, error) {
	opts.setDefaults()
	switch name {
	case StrategyHeuristic:
		return NewHeuristic(opts), nil
	case StrategyGraphviz:
		if err := ProbeGraphviz(ctx); err != nil {
			return nil, err
		}
		return NewGraphviz(opts), nil
	case "", StrategyAuto:
		if err := ProbeGraphviz(ctx); err != nil {
			opts.Logger.Debug("graphviz unavailable, using heuristic layout", "error", err)
			return NewHeuristic(opts), nil
		}
		return NewGraphviz(opts), nil
	}
	return nil, errs.New(errs.ErrCodeInvalidStrategy, "unknown layout strategy %q (want auto, heuristic or graphviz)", name)
}

func observe(ctx context.Context, name string, g *graph.Graph, fn func() (*Result, error)) (*Result, error) {
	hooks := observability.Layout()
	hooks.OnLayoutStart(ctx, name, g.NodeCount())
	start := time.Now()
	r, err := fn()
	hooks.OnLayoutComplete(ctx, name, time.Since(start), err)
	return r, err
}

// assemble builds the render model. Nodes and edges keep graph order.
func assemble(g *graph.Graph, name string, levels map[string]int, rows [][]string, geo Geometry,
	routes map[string]float64, size func(graph.Node) (float64, float64)) *Result {
	r := &Result{
		Strategy:  name,
		Rows:      rows,
		Levels:    levels,
		Crossings: CountCrossings(g, rows),
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, n := range g.Nodes() {
		p := geo.Positions[n.ID]
		w, h := size(n)
		r.Nodes = append(r.Nodes, PlacedNode{
			ID:       n.ID,
			Label:    n.DisplayLabel(),
			X:        p.X,
			Y:        p.Y,
			Width:    w,
			Height:   h,
			Level:    levels[n.ID],
			Entry:    n.Entry,
			Terminal: n.Terminal,
			Dynamic:  n.Dynamic,
		})
		minX, maxX = min(minX, p.X-w/2), max(maxX, p.X+w/2)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y+h)
	}

	for _, e := range g.Edges() {
		re := RoutedEdge{
			Key:    e.Key(),
			Index:  e.Index,
			Source: e.Source,
			Target: e.Target,
			Dashed: e.Dynamic || e.Unresolved,
		}
		if x, ok := routes[re.Key]; ok {
			re.RouteX = &x
			minX, maxX = min(minX, x), max(maxX, x)
		}
		r.Edges = append(r.Edges, re)
	}

	if len(r.Nodes) > 0 {
		r.Width, r.Height = maxX-minX, maxY-minY
	}
	return r
}
