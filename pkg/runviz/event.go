package runviz

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMalformedEvent is returned by [Decode] for payloads that are not
	// JSON objects or lack the fields their event type requires.
	ErrMalformedEvent = errors.New("malformed event payload")

	// ErrUnknownEventType is returned by [Decode] for well-formed payloads
	// whose event_type is not recognized.
	ErrUnknownEventType = errors.New("unknown event type")
)

// EventType discriminates events on the wire.
type EventType string

// Event types emitted by the backend.
const (
	TypeNodeStart     EventType = "node_start"
	TypeNodeEnd       EventType = "node_end"
	TypeEdgeTaken     EventType = "edge_taken"
	TypeToolCall      EventType = "tool_call"
	TypeToolResult    EventType = "tool_result"
	TypeInputRequest  EventType = "input_request"
	TypeInputResponse EventType = "input_response"
	TypeRunEnd        EventType = "run_end"
	TypeError         EventType = "error"
)

// Event is one message from the run event stream. The set of implementations
// is closed; use [Event.Dispatch] with a [Handler] to act on each kind.
type Event interface {
	Type() EventType
	Run() string
	Dispatch(h Handler)
	sealed()
}

// Handler has one method per event kind. Implementing it is the only way to
// consume events, so adding a kind breaks every handler at compile time.
type Handler interface {
	NodeStart(NodeStart)
	NodeEnd(NodeEnd)
	EdgeTaken(EdgeTaken)
	ToolCall(ToolCall)
	ToolResult(ToolResult)
	InputRequest(InputRequest)
	InputResponse(InputResponse)
	RunEnd(RunEnd)
	RunError(RunError)
}

// NodeStart reports that a node began executing.
type NodeStart struct {
	RunID  string `json:"run_id"`
	NodeID string `json:"node_id"`
}

// NodeEnd reports that a node finished executing.
type NodeEnd struct {
	RunID  string `json:"run_id"`
	NodeID string `json:"node_id"`
}

// EdgeTaken reports a traversed edge. An empty Target means the target was
// chosen at runtime.
type EdgeTaken struct {
	RunID  string `json:"run_id"`
	Source string `json:"source_node_id"`
	Target string `json:"target_node_id,omitempty"`
}

// ToolCall reports a tool invocation.
type ToolCall struct {
	RunID     string          `json:"run_id"`
	NodeID    string          `json:"node_id"`
	ToolName  string          `json:"tool_name"`
	CallID    string          `json:"call_id"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolResult reports a tool invocation's outcome. Success defaults to true
// when absent.
type ToolResult struct {
	RunID    string          `json:"run_id"`
	NodeID   string          `json:"node_id"`
	ToolName string          `json:"tool_name"`
	CallID   string          `json:"call_id"`
	Output   json.RawMessage `json:"output,omitempty"`
	Success  *bool           `json:"success,omitempty"`
}

// Succeeded reports the result's success flag, defaulting to true.
func (r ToolResult) Succeeded() bool { return r.Success == nil || *r.Success }

// InputRequest asks a human to choose among Options.
type InputRequest struct {
	RunID     string          `json:"run_id"`
	NodeID    string          `json:"node_id"`
	RequestID string          `json:"request_id"`
	Prompt    string          `json:"prompt"`
	Context   json.RawMessage `json:"context,omitempty"`
	Options   []string        `json:"options,omitempty"`
}

// InputResponse reports that a pending request was answered.
type InputResponse struct {
	RunID     string `json:"run_id"`
	NodeID    string `json:"node_id"`
	RequestID string `json:"request_id"`
	Response  string `json:"response"`
}

// RunEnd reports that the run completed.
type RunEnd struct {
	RunID string `json:"run_id"`
}

// RunError reports that the run failed, optionally at a node.
type RunError struct {
	RunID   string `json:"run_id"`
	Message string `json:"message,omitempty"`
	NodeID  string `json:"node_id,omitempty"`
}

func (NodeStart) Type() EventType     { return TypeNodeStart }
func (NodeEnd) Type() EventType       { return TypeNodeEnd }
func (EdgeTaken) Type() EventType     { return TypeEdgeTaken }
func (ToolCall) Type() EventType      { return TypeToolCall }
func (ToolResult) Type() EventType    { return TypeToolResult }
func (InputRequest) Type() EventType  { return TypeInputRequest }
func (InputResponse) Type() EventType { return TypeInputResponse }
func (RunEnd) Type() EventType        { return TypeRunEnd }
func (RunError) Type() EventType      { return TypeError }

func (e NodeStart) Run() string     { return e.RunID }
func (e NodeEnd) Run() string       { return e.RunID }
func (e EdgeTaken) Run() string     { return e.RunID }
func (e ToolCall) Run() string      { return e.RunID }
func (e ToolResult) Run() string    { return e.RunID }
func (e InputRequest) Run() string  { return e.RunID }
func (e InputResponse) Run() string { return e.RunID }
func (e RunEnd) Run() string        { return e.RunID }
func (e RunError) Run() string      { return e.RunID }

func (e NodeStart) Dispatch(h Handler)     { h.NodeStart(e) }
func (e NodeEnd) Dispatch(h Handler)       { h.NodeEnd(e) }
func (e EdgeTaken) Dispatch(h Handler)     { h.EdgeTaken(e) }
func (e ToolCall) Dispatch(h Handler)      { h.ToolCall(e) }
func (e ToolResult) Dispatch(h Handler)    { h.ToolResult(e) }
func (e InputRequest) Dispatch(h Handler)  { h.InputRequest(e) }
func (e InputResponse) Dispatch(h Handler) { h.InputResponse(e) }
func (e RunEnd) Dispatch(h Handler)        { h.RunEnd(e) }
func (e RunError) Dispatch(h Handler)      { h.RunError(e) }

func (NodeStart) sealed()     {}
func (NodeEnd) sealed()       {}
func (EdgeTaken) sealed()     {}
func (ToolCall) sealed()      {}
func (ToolResult) sealed()    {}
func (InputRequest) sealed()  {}
func (InputResponse) sealed() {}
func (RunEnd) sealed()        {}
func (RunError) sealed()      {}

// Decode parses one stream payload. It returns [ErrMalformedEvent] for
// invalid JSON or missing required fields, and [ErrUnknownEventType] for
// event types it does not know.
func Decode(data []byte) (Event, error) {
	var head struct {
		EventType EventType `json:"event_type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	switch head.EventType {
	case TypeNodeStart:
		return decodeAs[NodeStart](data, func(e NodeStart) bool { return e.NodeID != "" })
	case TypeNodeEnd:
		return decodeAs[NodeEnd](data, func(e NodeEnd) bool { return e.NodeID != "" })
	case TypeEdgeTaken:
		return decodeAs[EdgeTaken](data, func(e EdgeTaken) bool { return e.Source != "" })
	case TypeToolCall:
		return decodeAs[ToolCall](data, func(e ToolCall) bool { return e.CallID != "" })
	case TypeToolResult:
		return decodeAs[ToolResult](data, func(e ToolResult) bool { return e.CallID != "" })
	case TypeInputRequest:
		return decodeAs[InputRequest](data, func(e InputRequest) bool { return e.RequestID != "" })
	case TypeInputResponse:
		return decodeAs[InputResponse](data, func(e InputResponse) bool { return e.RequestID != "" })
	case TypeRunEnd:
		return decodeAs[RunEnd](data, nil)
	case TypeError:
		return decodeAs[RunError](data, nil)
	case "":
		return nil, fmt.Errorf("%w: missing event_type", ErrMalformedEvent)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, head.EventType)
}

func decodeAs[E Event](data []byte, valid func(E) bool) (Event, error) {
	var e E
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedEvent, e.Type(), err)
	}
	if valid != nil && !valid(e) {
		return nil, fmt.Errorf("%w: %s: missing required field", ErrMalformedEvent, e.Type())
	}
	return e, nil
}

// Encode serializes an event with its event_type discriminator.
func Encode(e Event) ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	fields["event_type"], _ = json.Marshal(e.Type())
	return json.Marshal(fields)
}
