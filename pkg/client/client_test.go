package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	errs "github.com/matzehuels/graphstudio/pkg/errors"
	"github.com/matzehuels/graphstudio/pkg/graph"
	"github.com/matzehuels/graphstudio/pkg/httputil"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	c, err := New(server.URL,
		WithHTTPClient(server.Client()),
		WithRetry(httputil.Policy{Attempts: 3, Delay: time.Millisecond}),
		WithLogger(log.New(io.Discard)),
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func TestNewRejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "localhost:8000", "ftp://host"} {
		if _, err := New(u); !errs.Is(err, errs.ErrCodeInvalidInput) {
			t.Errorf("New(%q) error = %v, want INVALID_INPUT", u, err)
		}
	}
}

func TestClientGraph(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != PathGraph || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if calls.Add(1) == 1 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"nodes":[{"node_id":"A"},{"node_id":"B","label":"Bee"}],"edges":[{"source_node_id":"A","target_node_id":"B"}],"entry_nodes":["A"]}`)
	}))

	spec, err := c.Graph(context.Background())
	if err != nil {
		t.Fatalf("Graph() error: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2 (one retry)", calls.Load())
	}
	want := graph.Spec{
		Nodes:         []graph.NodeSpec{{ID: "A"}, {ID: "B", Label: "Bee"}},
		Edges:         []graph.EdgeSpec{{Source: "A", Target: "B"}},
		EntryNodes:    []string{"A"},
		TerminalNodes: nil,
	}
	if diff := cmp.Diff(want, spec); diff != "" {
		t.Errorf("Graph() mismatch (-want +got):\n%s", diff)
	}
}

func TestClientGraphNotRetriedOn404(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))

	_, err := c.Graph(context.Background())
	var se *errs.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Fatalf("Graph() error = %v, want 404 StatusError", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestClientStartRun(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != PathRun {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"run_id": "abc123"})
	}))

	id, err := c.StartRun(context.Background())
	if err != nil {
		t.Fatalf("StartRun() error: %v", err)
	}
	if id != "abc123" {
		t.Errorf("StartRun() = %q, want abc123", id)
	}
}

func TestClientStartRunMissingID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	if _, err := c.StartRun(context.Background()); err == nil {
		t.Fatal("StartRun() expected error for missing run_id")
	}
}

func TestClientSubmitInput(t *testing.T) {
	var got InputRequest
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Content-Type = %q", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	if err := c.SubmitInput(context.Background(), "r1", "q1", "yes"); err != nil {
		t.Fatalf("SubmitInput() error: %v", err)
	}
	want := InputRequest{RunID: "r1", RequestID: "q1", Response: "yes"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("request body mismatch (-want +got):\n%s", diff)
	}
}

func TestClientSubmitInputErrorBody(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "No pending input for request_id", http.StatusConflict)
	}))

	err := c.SubmitInput(context.Background(), "r1", "q1", "yes")
	var se *errs.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("SubmitInput() error = %v, want StatusError", err)
	}
	if se.Body != "No pending input for request_id" {
		t.Errorf("Body = %q", se.Body)
	}
	if se.Code() != errs.ErrCodeConflict {
		t.Errorf("Code() = %v", se.Code())
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, submissions must not be retried", calls.Load())
	}
}

func TestClientEvents(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("run_id") != "r1" {
			t.Errorf("run_id = %q", r.URL.Query().Get("run_id"))
		}
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "data: {\"event_type\":\"run_end\"}\n\n")
	}))

	s, err := c.Events(context.Background(), "r1")
	if err != nil {
		t.Fatalf("Events() error: %v", err)
	}
	defer s.Close()

	data, err := s.Next(context.Background())
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if string(data) != `{"event_type":"run_end"}` {
		t.Errorf("Next() = %s", data)
	}
	if _, err := s.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("Next() after end = %v, want io.EOF", err)
	}
}

func TestClientEventsUnknownRun(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unknown run_id", http.StatusNotFound)
	}))
	_, err := c.Events(context.Background(), "nope")
	var se *errs.StatusError
	if !errors.As(err, &se) || se.Code() != errs.ErrCodeNotFound {
		t.Fatalf("Events() error = %v, want 404", err)
	}
}

func TestClientRequestIDs(t *testing.T) {
	ids := make(chan string, 2)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids <- r.Header.Get(HeaderRequestID)
		fmt.Fprint(w, `{"nodes":[]}`)
	}))

	for range 2 {
		if _, err := c.Graph(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	a, b := <-ids, <-ids
	if a == "" || a == b {
		t.Errorf("request ids %q, %q; want distinct and non-empty", a, b)
	}
}
