package replay

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/graphstudio/pkg/errors"
	"github.com/matzehuels/graphstudio/pkg/runviz"
)

func TestNewScript(t *testing.T) {
	tests := []struct {
		name     string
		graph    string
		events   string
		wantLen  int
		wantCode errs.Code
	}{
		{
			name:    "SkipsBlankAndComments",
			graph:   testGraph,
			events:  "\n# comment\n{\"event_type\":\"run_end\"}\n\n",
			wantLen: 1,
		},
		{
			name:    "KeepsUnknownTypes",
			graph:   testGraph,
			events:  `{"event_type":"heartbeat"}` + "\n" + `{"event_type":"run_end"}`,
			wantLen: 2,
		},
		{
			name:     "MalformedEvent",
			graph:    testGraph,
			events:   `{"event_type":"node_start"}`,
			wantCode: errs.ErrCodeMalformedEvent,
		},
		{
			name:     "NotAnObject",
			graph:    testGraph,
			events:   `["node_start"]`,
			wantCode: errs.ErrCodeMalformedEvent,
		},
		{
			name:     "InvalidGraph",
			graph:    `nodes: []`,
			events:   "",
			wantCode: errs.ErrCodeInvalidGraph,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewScript([]byte(tt.graph), strings.NewReader(tt.events), log.New(io.Discard))
			if tt.wantCode != "" {
				if !errs.Is(err, tt.wantCode) {
					t.Fatalf("NewScript() error = %v, want %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewScript() error: %v", err)
			}
			if len(s.Events) != tt.wantLen {
				t.Errorf("len(Events) = %d, want %d", len(s.Events), tt.wantLen)
			}
		})
	}
}

func TestLoadScript(t *testing.T) {
	dir := t.TempDir()
	graphPath := filepath.Join(dir, "graph.json")
	eventsPath := filepath.Join(dir, "events.jsonl")
	if err := os.WriteFile(graphPath, []byte(testGraph), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(eventsPath, []byte(testEvents), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadScript(graphPath, eventsPath, log.New(io.Discard))
	if err != nil {
		t.Fatalf("LoadScript() error: %v", err)
	}
	if len(s.Events) != 11 {
		t.Errorf("len(Events) = %d, want 11", len(s.Events))
	}
	if s.Events[4].Type != runviz.TypeInputRequest || s.Events[4].field("request_id") != "q1" {
		t.Errorf("Events[4] = %+v", s.Events[4])
	}

	if _, err := LoadScript(filepath.Join(dir, "missing.json"), eventsPath, nil); !errs.Is(err, errs.ErrCodeFileNotFound) {
		t.Errorf("LoadScript(missing) error = %v, want FILE_NOT_FOUND", err)
	}
}
