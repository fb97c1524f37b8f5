package layout

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"
)

// Fill colors by node status.
var statusFill = map[string]string{
	"idle":   "white",
	"active": "#fde68a",
	"done":   "#bbf7d0",
	"error":  "#fecaca",
}

// DOTOptions overlays run state onto an exported render model.
type DOTOptions struct {
	// NodeStatus maps node IDs to "idle", "active", "done" or "error".
	NodeStatus map[string]string
	// ActiveEdges holds the keys of edges that have been taken.
	ActiveEdges map[string]bool
}

// ToDOT converts a render model to Graphviz DOT with every node pinned at its
// computed position. Detoured edges bend through a point on their side lane.
func ToDOT(r *Result, opts DOTOptions) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  splines=false;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, fixedsize=true];\n")
	buf.WriteString("\n")

	for _, n := range r.Nodes {
		attrs := fmt.Sprintf("label=%q, pos=%s, width=%.4f, height=%.4f",
			n.Label, pinned(n.X, n.Y), n.Width/pointsPerInch, n.Height/pointsPerInch)
		if fill, ok := statusFill[opts.NodeStatus[n.ID]]; ok {
			attrs += fmt.Sprintf(", fillcolor=%q", fill)
		}
		if n.Dynamic {
			attrs += ", style=\"rounded,filled,dashed\", fontcolor=grey40"
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, attrs)
	}

	buf.WriteString("\n")
	for _, e := range r.Edges {
		attrs := edgeAttrs(e, opts.ActiveEdges[e.Key])
		if e.RouteX == nil {
			fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.Source, e.Target, attrs)
			continue
		}
		src, _ := r.Node(e.Source)
		dst, _ := r.Node(e.Target)
		bend := e.Key + "-lane"
		fmt.Fprintf(&buf, "  %q [shape=point, width=0.01, pos=%s];\n", bend, pinned(*e.RouteX, (src.Y+dst.Y)/2))
		fmt.Fprintf(&buf, "  %q -> %q [%s, arrowhead=none];\n", e.Source, bend, attrs)
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", bend, e.Target, attrs)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// pinned formats a fixed neato position. Graphviz Y grows upward.
func pinned(x, y float64) string {
	if y != 0 {
		y = -y
	}
	return fmt.Sprintf("\"%.1f,%.1f!\"", x, y)
}

func edgeAttrs(e RoutedEdge, active bool) string {
	attrs := "color=grey50"
	if active {
		attrs = "color=\"#2563eb\", penwidth=2"
	}
	if e.Dashed {
		attrs += ", style=dashed"
	}
	return attrs
}

// RenderSVG renders DOT from [ToDOT] to SVG using the embedded Graphviz
// runtime. Positions are taken as given by the neato engine.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	svg, err := render(ctx, dot, graphviz.NEATO, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(svg), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized svg header with a pixel-sized
// one so the output scales in browsers.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}
