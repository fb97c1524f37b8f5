package runviz

import (
	"encoding/json"
	"maps"
	"slices"
)

// Phase is the controller-level lifecycle state.
type Phase string

// Phases.
const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseRunning Phase = "running"
	PhaseError   Phase = "error"
)

// NodeStatus is the per-node execution status.
type NodeStatus string

// Node statuses. Done and error are sticky until the next run.
const (
	StatusIdle   NodeStatus = "idle"
	StatusActive NodeStatus = "active"
	StatusDone   NodeStatus = "done"
	StatusError  NodeStatus = "error"
)

// Failure messages shown in RunState.Error.
const (
	MsgExecutionError     = "Execution error"
	MsgMalformedEvent     = "Malformed event payload"
	MsgStreamDisconnected = "Event stream disconnected"
	MsgRunStartFailed     = "Failed to start run"
	MsgLoadFailed         = "Failed to load graph"
)

// DefaultInputOptions are offered when an input request declares none.
var DefaultInputOptions = []string{"yes", "no"}

// ToolActivity is one entry of the tool feed, keyed by CallID. A result
// merges into the entry of its call.
type ToolActivity struct {
	CallID    string          `json:"call_id"`
	NodeID    string          `json:"node_id"`
	ToolName  string          `json:"tool_name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Output    json.RawMessage `json:"output,omitempty"`
	Success   bool            `json:"success"`
	Completed bool            `json:"completed"`
}

// PendingInput is the single outstanding human-input request.
type PendingInput struct {
	RequestID  string          `json:"request_id"`
	NodeID     string          `json:"node_id"`
	Prompt     string          `json:"prompt"`
	Context    json.RawMessage `json:"context,omitempty"`
	Options    []string        `json:"options"`
	Submitting bool            `json:"submitting"`
	Error      string          `json:"error,omitempty"`
}

// StreamBuffer accumulates output of the streaming tool.
type StreamBuffer struct {
	Tick     int      `json:"tick"`
	Total    int      `json:"total"` // 0 until declared
	Chunks   []string `json:"chunks"`
	Final    bool     `json:"final"`
	HasTotal bool     `json:"has_total"`
}

// Progress returns Tick/Total in [0,1], or 0 when no total is known.
func (b StreamBuffer) Progress() float64 {
	if !b.HasTotal || b.Total <= 0 {
		return 0
	}
	return min(float64(b.Tick)/float64(b.Total), 1)
}

// RunState is the presentation state of the current run.
type RunState struct {
	Phase   Phase                 `json:"phase"`
	RunID   string                `json:"run_id,omitempty"`
	Error   string                `json:"error,omitempty"`
	Nodes   map[string]NodeStatus `json:"nodes"`
	Edges   map[string]bool       `json:"edges"`
	Tools   []ToolActivity        `json:"tools"`
	Pending *PendingInput         `json:"pending,omitempty"`
	Stream  StreamBuffer          `json:"stream"`
}

// StatusLabel returns the one-line status shown next to the run controls.
func (s RunState) StatusLabel() string {
	switch s.Phase {
	case PhaseRunning:
		return "Running " + s.RunID
	case PhaseError:
		return "Error"
	case PhaseLoading:
		return "Loading"
	case PhaseReady:
		return "Ready"
	}
	return "Idle"
}

// clone returns a deep copy so snapshots never alias machine state.
func (s RunState) clone() RunState {
	c := s
	c.Nodes = maps.Clone(s.Nodes)
	c.Edges = maps.Clone(s.Edges)
	c.Tools = slices.Clone(s.Tools)
	c.Stream.Chunks = slices.Clone(s.Stream.Chunks)
	if s.Pending != nil {
		p := *s.Pending
		p.Options = slices.Clone(p.Options)
		c.Pending = &p
	}
	return c
}
