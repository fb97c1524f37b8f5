package cli

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/graphstudio/pkg/client"
	errs "github.com/matzehuels/graphstudio/pkg/errors"
	"github.com/matzehuels/graphstudio/pkg/layout"
	"github.com/matzehuels/graphstudio/pkg/runviz"
	"github.com/matzehuels/graphstudio/pkg/studio"
)

func TestWatchPlain(t *testing.T) {
	_, root, buf := newTestRoot(t)
	ts := newReplayBackend(t, testEvents)

	root.SetArgs([]string{"watch", "--plain", "--url", ts.URL, "--strategy", "heuristic", "--answer", "no"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error: %v\n%s", err, buf)
	}

	got := buf.String()
	for _, want := range []string{
		"Loaded graph (heuristic layout)",
		"Following run",
		"Plan active",
		`B "Proceed?" → no`,
		"tool search @ A ok",
		"stream complete after 2 ticks",
		"C done",
		"finished",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestWatchPlainRunError(t *testing.T) {
	_, root, buf := newTestRoot(t)
	ts := newReplayBackend(t, `{"event_type":"node_start","node_id":"A"}
{"event_type":"error","node_id":"A","message":"tool crashed"}
`)

	root.SetArgs([]string{"watch", "--plain", "--url", ts.URL, "--strategy", "heuristic"})
	err := root.Execute()
	if !errs.Is(err, errs.ErrCodeRunFailed) {
		t.Fatalf("Execute() error = %v, want RUN_FAILED", err)
	}
	if !strings.Contains(buf.String(), "tool crashed") {
		t.Errorf("output missing run error:\n%s", buf)
	}
}

func newTestController(t *testing.T, url string) *studio.Controller {
	t.Helper()
	logger := log.New(io.Discard)
	cl, err := client.New(url, client.WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	ctrl := studio.New(cl, layout.NewHeuristic(layout.Options{Logger: logger}), studio.Options{Logger: logger})
	t.Cleanup(func() { ctrl.Close() })
	return ctrl
}

// drive runs commands and feeds their messages back into the model until
// until reports true.
func drive(t *testing.T, m watchModel, cmd tea.Cmd, until func(watchModel) bool) (watchModel, tea.Cmd) {
	t.Helper()
	for range 100 {
		if until(m) {
			return m, cmd
		}
		if cmd == nil {
			t.Fatalf("model idle before condition; state %+v", m.state)
		}
		next, nextCmd := m.Update(cmd())
		m, cmd = next.(watchModel), nextCmd
	}
	t.Fatal("model did not reach condition")
	return m, nil
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestWatchModelRun(t *testing.T) {
	ts := newReplayBackend(t, testEvents)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	m := newWatchModel(ctx, newTestController(t, ts.URL), true)
	m, step := drive(t, m, m.Init(), func(m watchModel) bool { return m.state.Pending != nil })

	if got := m.state.Nodes["B"]; got != runviz.StatusActive {
		t.Errorf("Nodes[B] = %q, want active", got)
	}
	next, _ := m.Update(key("down"))
	m = next.(watchModel)
	if view := m.View(); !strings.Contains(view, "▸ no") || !strings.Contains(view, "Proceed?") {
		t.Errorf("prompt view:\n%s", view)
	}

	next, submit := m.Update(key("enter"))
	m = next.(watchModel)
	if submit == nil || !m.state.Pending.Submitting {
		t.Fatal("enter should submit the selected option")
	}
	next, _ = m.Update(submit())
	m = next.(watchModel)
	if m.notice != "" {
		t.Fatalf("submit notice = %q", m.notice)
	}

	m, _ = drive(t, m, step, func(m watchModel) bool { return m.run == nil && m.state.Phase != runviz.PhaseRunning })
	if m.state.Phase != runviz.PhaseReady {
		t.Fatalf("Phase = %q (error %q), want ready", m.state.Phase, m.state.Error)
	}
	if m.state.Pending != nil {
		t.Errorf("Pending = %+v, want answered", m.state.Pending)
	}

	view := m.View()
	for _, want := range []string{"Ready", "✓ Plan", "2/2 edges taken", "search", "2/2", "world"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	_, quit := m.Update(key("q"))
	if quit == nil {
		t.Fatal("q should quit")
	}
	if _, ok := quit().(tea.QuitMsg); !ok {
		t.Error("q should return tea.Quit")
	}
}

func TestWatchModelRestart(t *testing.T) {
	ts := newReplayBackend(t, testEvents)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	m := newWatchModel(ctx, newTestController(t, ts.URL), true)
	m, oldStep := drive(t, m, m.Init(), func(m watchModel) bool { return m.state.Pending != nil })
	first := m.state.RunID

	next, start := m.Update(key("r"))
	m = next.(watchModel)
	next, step := m.Update(start())
	m = next.(watchModel)
	if m.state.RunID == first || m.state.Phase != runviz.PhaseRunning {
		t.Fatalf("restart state = %+v", m.state)
	}

	// The superseded run's read ends and is ignored.
	next, cmd := m.Update(oldStep())
	m = next.(watchModel)
	if cmd != nil || m.run == nil {
		t.Error("stale step should not affect the current run")
	}

	m, _ = drive(t, m, step, func(m watchModel) bool { return m.state.Pending != nil })
	if m.state.Pending.RequestID != "q1" || m.cursor != 0 {
		t.Errorf("pending = %+v, cursor %d", m.state.Pending, m.cursor)
	}
}

func TestWatchModelLoadFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no graph here", http.StatusNotFound)
	}))
	defer ts.Close()

	m := newWatchModel(context.Background(), newTestController(t, ts.URL), true)
	next, cmd := m.Update(m.Init()())
	m = next.(watchModel)
	if cmd != nil {
		t.Error("failed load should not start a run")
	}
	if m.state.Phase != runviz.PhaseError || m.notice == "" {
		t.Errorf("state = %+v, notice %q", m.state, m.notice)
	}
	if _, cmd := m.Update(key("r")); cmd != nil {
		t.Error("run should be unavailable without a graph")
	}
	if view := m.View(); !strings.Contains(view, runviz.MsgLoadFailed+" (404)") || !strings.Contains(view, "No graph loaded") {
		t.Errorf("view:\n%s", view)
	}
}

func TestRenderSections(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want []string
	}{
		{
			name: "PendingDefaults",
			got: renderPending(&runviz.PendingInput{
				RequestID: "q1", NodeID: "B", Prompt: "Ship it?",
				Options: runviz.DefaultInputOptions, Error: "backend said no",
			}, 0),
			want: []string{"Input required", "Ship it?", "▸ yes", "backend said no"},
		},
		{
			name: "StreamWithoutTotal",
			got:  renderStream(runviz.StreamBuffer{Tick: 3, Chunks: []string{"c", "b", "a"}}),
			want: []string{"tick 3", "c"},
		},
		{
			name: "ToolFeedTruncated",
			got: renderTools([]runviz.ToolActivity{
				{CallID: "1", ToolName: "fetch", NodeID: "A", Completed: true, Success: false},
				{CallID: "2", ToolName: "parse", NodeID: "A", Arguments: json.RawMessage(`{"path":"` + strings.Repeat("x", 80) + `"}`)},
			}),
			want: []string{"✗ fetch", "● parse", "…"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, w := range tt.want {
				if !strings.Contains(tt.got, w) {
					t.Errorf("missing %q in:\n%s", w, tt.got)
				}
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"a  b\n c", 10, "a b c"},
		{"abcdefghij", 5, "abcd…"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
