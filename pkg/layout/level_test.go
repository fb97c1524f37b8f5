package layout

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/graphstudio/pkg/graph"
)

// build normalizes a graph from "src>dst" edge strings; a missing target
// ("src>") declares a dynamic edge.
func build(nodes []string, edges []string, entry, terminal []string) *graph.Graph {
	s := graph.Spec{EntryNodes: entry, TerminalNodes: terminal}
	for _, id := range nodes {
		s.Nodes = append(s.Nodes, graph.NodeSpec{ID: id})
	}
	for _, e := range edges {
		for i := 0; i < len(e); i++ {
			if e[i] == '>' {
				s.Edges = append(s.Edges, graph.EdgeSpec{Source: e[:i], Target: e[i+1:], Dynamic: i+1 == len(e)})
				break
			}
		}
	}
	return graph.Normalize(s)
}

func TestLongestPathLevels(t *testing.T) {
	tests := []struct {
		name string
		g    *graph.Graph
		want map[string]int
	}{
		{
			name: "Chain",
			g:    build([]string{"a", "b", "c"}, []string{"a>b", "b>c"}, []string{"a"}, nil),
			want: map[string]int{"a": 0, "b": 1, "c": 2},
		},
		{
			name: "LongestWins",
			g:    build([]string{"a", "b", "c"}, []string{"a>b", "b>c", "a>c"}, []string{"a"}, nil),
			want: map[string]int{"a": 0, "b": 1, "c": 2},
		},
		{
			name: "NoEntrySeedsFirstNode",
			g:    build([]string{"x", "y"}, []string{"x>y"}, nil, nil),
			want: map[string]int{"x": 0, "y": 1},
		},
		{
			name: "UnreachableBelowDeepest",
			g:    build([]string{"a", "b", "orphan"}, []string{"a>b"}, []string{"a"}, nil),
			want: map[string]int{"a": 0, "b": 1, "orphan": 2},
		},
		{
			name: "DynamicTakesSourceLevel",
			g:    build([]string{"A", "B", "C"}, []string{"A>B", "B>C", "A>"}, []string{"A"}, nil),
			want: map[string]int{"A": 0, "B": 1, "C": 2, "dynamic-A": 0},
		},
		{
			name: "EntryBelowOtherEntry",
			g:    build([]string{"E1", "X", "E2", "Y"}, []string{"E1>X", "X>E2", "E2>Y"}, []string{"E1", "E2"}, nil),
			want: map[string]int{"E1": 0, "X": 1, "E2": 2, "Y": 3},
		},
		{
			name: "CycleBackToEntry",
			g:    build([]string{"a", "b", "c"}, []string{"a>b", "b>c", "c>a"}, []string{"a"}, nil),
			want: map[string]int{"a": 0, "b": 1, "c": 2},
		},
		{
			name: "Empty",
			g:    graph.New(),
			want: map[string]int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LongestPath{}.AssignLevels(tt.g)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("AssignLevels() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestShortestPathLevels(t *testing.T) {
	g := build([]string{"a", "b", "c"}, []string{"a>b", "b>c", "a>c"}, []string{"a"}, nil)
	got := ShortestPath{}.AssignLevels(g)
	want := map[string]int{"a": 0, "b": 1, "c": 1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("AssignLevels() mismatch (-want +got):\n%s", diff)
	}
}

func TestLevelInvariant(t *testing.T) {
	tests := []struct {
		name string
		g    *graph.Graph
	}{
		{
			name: "Workflow",
			g: build(
				[]string{"start", "plan", "search", "fetch", "merge", "review", "done"},
				[]string{"start>plan", "plan>search", "plan>fetch", "search>merge", "fetch>merge", "start>merge", "merge>review", "review>done", "plan>"},
				[]string{"start"},
				[]string{"done"},
			),
		},
		{
			name: "EntryReachableFromEntry",
			g:    build([]string{"E1", "X", "E2", "Y"}, []string{"E1>X", "X>E2", "E2>Y"}, []string{"E1", "E2"}, nil),
		},
		{
			name: "LaterEntryFeedsEarlierEntry",
			g:    build([]string{"E1", "E2", "Z"}, []string{"E2>E1", "E1>Z"}, []string{"E1", "E2"}, nil),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			levels := LongestPath{}.AssignLevels(tt.g)
			for _, e := range tt.g.Edges() {
				if e.Unresolved || tt.g.IsTerminal(e.Target) {
					continue
				}
				if levels[e.Target] < levels[e.Source]+1 {
					t.Errorf("level(%s)=%d < level(%s)+1=%d", e.Target, levels[e.Target], e.Source, levels[e.Source]+1)
				}
			}
		})
	}
}

func TestLevelInvariantTerminalRow(t *testing.T) {
	g := build(
		[]string{"start", "review", "done"},
		[]string{"start>review", "review>done"},
		[]string{"start"},
		[]string{"done"},
	)
	levels := LongestPath{}.AssignLevels(g)
	if levels["done"] != levels["review"]+1 {
		t.Errorf("level(done) = %d, want %d", levels["done"], levels["review"]+1)
	}
}

func TestTerminalInvariant(t *testing.T) {
	tests := []struct {
		name     string
		g        *graph.Graph
		terminal []string
	}{
		{
			name:     "SharedBottomRow",
			g:        build([]string{"a", "b", "c", "t1", "t2"}, []string{"a>b", "b>c", "a>t1", "c>t2"}, []string{"a"}, []string{"t1", "t2"}),
			terminal: []string{"t1", "t2"},
		},
		{
			name:     "TerminalWithoutIncomingEdges",
			g:        build([]string{"a", "b", "lonely"}, []string{"a>b"}, []string{"a"}, []string{"lonely"}),
			terminal: []string{"lonely"},
		},
		{
			name:     "AllTerminal",
			g:        build([]string{"a", "b"}, []string{"a>b"}, []string{"a"}, []string{"a", "b"}),
			terminal: []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			levels := LongestPath{}.AssignLevels(tt.g)
			maxNonTerminal := -1
			maxLevel := 0
			for _, id := range tt.g.StaticIDs() {
				if !tt.g.IsTerminal(id) {
					maxNonTerminal = max(maxNonTerminal, levels[id])
				}
			}
			for _, id := range tt.terminal {
				maxLevel = max(maxLevel, levels[id])
			}
			for _, id := range tt.terminal {
				if maxNonTerminal >= 0 && levels[id] != maxNonTerminal+1 {
					t.Errorf("level(%s) = %d, want %d", id, levels[id], maxNonTerminal+1)
				}
				if levels[id] != maxLevel {
					t.Errorf("terminal %s not on the shared row: %d != %d", id, levels[id], maxLevel)
				}
			}
		})
	}
}

func TestPullTowardTerminals(t *testing.T) {
	// "early" only feeds the terminal, so it moves down to the deepest
	// non-terminal row.
	g := build(
		[]string{"a", "b", "c", "early", "end"},
		[]string{"a>b", "b>c", "a>early", "early>end", "c>end"},
		[]string{"a"},
		[]string{"end"},
	)
	levels := LongestPath{}.AssignLevels(g)
	if levels["early"] != levels["c"] {
		t.Errorf("level(early) = %d, want %d", levels["early"], levels["c"])
	}
	if levels["end"] != levels["c"]+1 {
		t.Errorf("level(end) = %d, want %d", levels["end"], levels["c"]+1)
	}
}

func TestLongestPathCycleTerminates(t *testing.T) {
	g := build([]string{"a", "b", "c"}, []string{"a>b", "b>c", "c>b"}, []string{"a"}, nil)
	levels := LongestPath{}.AssignLevels(g)
	n := len(g.StaticIDs())
	for id, lvl := range levels {
		if lvl > n {
			t.Errorf("level(%s) = %d exceeds node count %d", id, lvl, n)
		}
	}
	want := map[string]int{"a": 0, "b": 1, "c": 2}
	if diff := cmp.Diff(want, levels); diff != "" {
		t.Errorf("AssignLevels() mismatch (-want +got):\n%s", diff)
	}
}

func TestLevelerByName(t *testing.T) {
	if _, ok := LevelerByName("shortest"); !ok {
		t.Error("LevelerByName(shortest) not found")
	}
	if lv, ok := LevelerByName(""); !ok || lv != (LongestPath{}) {
		t.Errorf("LevelerByName(\"\") = %v, %v, want LongestPath", lv, ok)
	}
	if _, ok := LevelerByName("widest"); ok {
		t.Error("LevelerByName(widest) should fail")
	}
}
