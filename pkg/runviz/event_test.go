package runviz

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Event
		wantErr error
	}{
		{
			name:    "NodeStart",
			payload: `{"run_id":"r1","event_type":"node_start","node_id":"A"}`,
			want:    NodeStart{RunID: "r1", NodeID: "A"},
		},
		{
			name:    "EdgeTakenNullTarget",
			payload: `{"run_id":"r1","event_type":"edge_taken","source_node_id":"A","target_node_id":null}`,
			want:    EdgeTaken{RunID: "r1", Source: "A"},
		},
		{
			name:    "InputRequestWithoutOptions",
			payload: `{"run_id":"r1","event_type":"input_request","node_id":"B","request_id":"q1","prompt":"Proceed?"}`,
			want:    InputRequest{RunID: "r1", NodeID: "B", RequestID: "q1", Prompt: "Proceed?"},
		},
		{
			name:    "ErrorWithoutMessage",
			payload: `{"run_id":"r1","event_type":"error"}`,
			want:    RunError{RunID: "r1"},
		},
		{
			name:    "NotJSON",
			payload: `data: nope`,
			wantErr: ErrMalformedEvent,
		},
		{
			name:    "MissingEventType",
			payload: `{"run_id":"r1"}`,
			wantErr: ErrMalformedEvent,
		},
		{
			name:    "MissingNodeID",
			payload: `{"run_id":"r1","event_type":"node_end"}`,
			wantErr: ErrMalformedEvent,
		},
		{
			name:    "WrongFieldType",
			payload: `{"run_id":"r1","event_type":"tool_call","call_id":7}`,
			wantErr: ErrMalformedEvent,
		},
		{
			name:    "UnknownType",
			payload: `{"run_id":"r1","event_type":"heartbeat"}`,
			wantErr: ErrUnknownEventType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.payload))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Decode() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestToolResultSucceeded(t *testing.T) {
	no := false
	if !(ToolResult{}).Succeeded() {
		t.Error("missing success flag should default to true")
	}
	if (ToolResult{Success: &no}).Succeeded() {
		t.Error("success=false should be reported")
	}
}

func TestEncodeAddsEventType(t *testing.T) {
	data, err := Encode(InputResponse{RunID: "r1", NodeID: "B", RequestID: "q1", Response: "yes"})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatal(err)
	}
	if fields["event_type"] != "input_response" {
		t.Errorf("event_type = %v, want input_response", fields["event_type"])
	}
	ev, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode(Encode()) error = %v", err)
	}
	if ev.Type() != TypeInputResponse || ev.Run() != "r1" {
		t.Errorf("decoded %T for run %q", ev, ev.Run())
	}
}
