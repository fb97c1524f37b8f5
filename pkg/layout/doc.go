// Package layout computes positions for workflow graphs.
//
// # Pipeline
//
// A layout runs in four stages:
//
//  1. Leveling ([Leveler]): each node gets a row. [LongestPath] places a node
//     below all its predecessors; [ShortestPath] uses breadth-first distance.
//     Unreachable nodes go one row below the deepest reachable one. Terminal
//     nodes share the row below the deepest non-terminal node.
//  2. Ordering ([Orderer]): [Barycenter] sorts each row by the mean position
//     of its neighbours, sweeping down and up for a fixed number of passes.
//  3. Coordinates: rows are centered on the widest row, spaced by GapX and
//     GapY. Dynamic nodes sit beside their source.
//  4. Routing ([RouteEdges]): edges spanning several rows whose midpoint
//     would cross a node row are assigned a side lane.
//
// # Strategies
//
// [Heuristic] runs all four stages in-process. [Graphviz] replaces ordering
// and coordinates with the dot engine from [github.com/goccy/go-graphviz],
// keeping the leveler's rows. [Select] picks one by name; "auto" falls back to
// the heuristic when Graphviz cannot start.
//
//	s, err := layout.Select(ctx, "auto", layout.DefaultOptions())
//	result, err := s.Layout(ctx, g)
//
// # Export
//
// [ToDOT] writes a [Result] as DOT with pinned positions, optionally colored
// by run state, and [RenderSVG] renders it.
package layout
