package runviz

import (
	"encoding/json"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/graphstudio/pkg/graph"
)

// Streaming tool defaults.
const (
	DefaultStreamTool = "stream_chunk"
	DefaultChunkLimit = 8
)

// Options configures a [Machine].
type Options struct {
	// StreamTool names the tool whose results feed the streaming buffer.
	StreamTool string
	// ChunkLimit bounds the number of distinct recent chunks kept.
	ChunkLimit int
	Logger     *log.Logger
}

func (o *Options) setDefaults() {
	if o.StreamTool == "" {
		o.StreamTool = DefaultStreamTool
	}
	if o.ChunkLimit <= 0 {
		o.ChunkLimit = DefaultChunkLimit
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
}

// Machine reduces run events into [RunState] for one graph. Events only
// change presentation state; the graph is never modified.
//
// A Machine is not safe for concurrent use. Feed it from one goroutine.
type Machine struct {
	g     *graph.Graph
	opts  Options
	state RunState
}

// New creates a machine for g in the idle phase. A nil graph is treated as
// empty.
func New(g *graph.Graph, opts Options) *Machine {
	if g == nil {
		g = graph.New()
	}
	opts.setDefaults()
	m := &Machine{g: g, opts: opts}
	m.reset()
	m.state.Phase = PhaseIdle
	return m
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() RunState { return m.state.clone() }

// Phase returns the current phase.
func (m *Machine) Phase() Phase { return m.state.Phase }

// Graph returns the graph the machine was built for.
func (m *Machine) Graph() *graph.Graph { return m.g }

// =============================================================================
// Lifecycle
// =============================================================================

// Loading marks a graph load in progress.
func (m *Machine) Loading() {
	m.state.Phase = PhaseLoading
	m.state.Error = ""
}

// Loaded marks the graph as ready to run.
func (m *Machine) Loaded() {
	m.state.Phase = PhaseReady
	m.state.Error = ""
}

// Begin clears all run state and enters the running phase. The run ID is set
// once the backend accepts the run.
func (m *Machine) Begin() {
	m.reset()
	m.state.Phase = PhaseRunning
}

// Started records the run ID assigned by the backend.
func (m *Machine) Started(runID string) {
	m.state.RunID = runID
}

// Fail enters the error phase with msg.
func (m *Machine) Fail(msg string) {
	m.fail(msg)
}

// StreamFailed handles a broken event stream. It only fails the run while
// running and reports whether it did.
func (m *Machine) StreamFailed(err error) bool {
	if m.state.Phase != PhaseRunning {
		m.opts.Logger.Debug("stream error after run finished", "error", err)
		return false
	}
	m.opts.Logger.Warn("event stream failed", "run", m.state.RunID, "error", err)
	m.fail(MsgStreamDisconnected)
	return true
}

// Malformed fails the run after an undecodable payload.
func (m *Machine) Malformed(err error) {
	m.opts.Logger.Warn("malformed event", "run", m.state.RunID, "error", err)
	m.fail(MsgMalformedEvent)
}

// fail is the single writer of the error phase.
func (m *Machine) fail(msg string) {
	if msg == "" {
		msg = MsgExecutionError
	}
	m.state.Phase = PhaseError
	m.state.Error = msg
}

func (m *Machine) reset() {
	m.state = RunState{
		Nodes: make(map[string]NodeStatus, m.g.NodeCount()),
		Edges: make(map[string]bool, m.g.EdgeCount()),
	}
	for _, id := range m.g.NodeIDs() {
		m.state.Nodes[id] = StatusIdle
	}
	for _, e := range m.g.Edges() {
		m.state.Edges[e.Key()] = false
	}
}

// =============================================================================
// Input submission
// =============================================================================

// BeginSubmit marks the pending request as being answered and returns a copy
// of it. It reports false if there is nothing to answer or a submission is
// already in flight.
func (m *Machine) BeginSubmit() (PendingInput, bool) {
	p := m.state.Pending
	if p == nil || p.Submitting {
		return PendingInput{}, false
	}
	p.Submitting = true
	p.Error = ""
	return *p, true
}

// FinishSubmit records the outcome of answering requestID. Success clears the
// pending request; failure keeps it with the error set so it can be retried.
func (m *Machine) FinishSubmit(requestID string, err error) {
	p := m.state.Pending
	if p == nil || p.RequestID != requestID {
		return
	}
	if err != nil {
		m.opts.Logger.Warn("input submission failed", "request", requestID, "error", err)
		p.Submitting = false
		p.Error = err.Error()
		return
	}
	m.state.Pending = nil
}

// =============================================================================
// Event reduction
// =============================================================================

// Apply reduces one event. It reports true when the event ends the run and
// the stream should be closed. Events are ignored outside the running phase
// and when they belong to another run.
func (m *Machine) Apply(ev Event) bool {
	if m.state.Phase != PhaseRunning {
		m.opts.Logger.Debug("ignoring event outside a run", "type", ev.Type(), "phase", m.state.Phase)
		return false
	}
	if id := ev.Run(); id != "" && m.state.RunID != "" && id != m.state.RunID {
		m.opts.Logger.Debug("ignoring event from another run", "type", ev.Type(), "run", id)
		return false
	}
	r := &reducer{m: m}
	ev.Dispatch(r)
	return r.done
}

type reducer struct {
	m    *Machine
	done bool
}

var _ Handler = (*reducer)(nil)

func (r *reducer) NodeStart(e NodeStart) {
	st, ok := r.m.state.Nodes[e.NodeID]
	if !ok {
		r.m.opts.Logger.Debug("node_start for unknown node", "node", e.NodeID)
		return
	}
	if st == StatusIdle {
		r.m.state.Nodes[e.NodeID] = StatusActive
	}
}

func (r *reducer) NodeEnd(e NodeEnd) {
	st, ok := r.m.state.Nodes[e.NodeID]
	if !ok {
		r.m.opts.Logger.Debug("node_end for unknown node", "node", e.NodeID)
		return
	}
	if st == StatusIdle || st == StatusActive {
		r.m.state.Nodes[e.NodeID] = StatusDone
	}
}

func (r *reducer) EdgeTaken(e EdgeTaken) {
	matched := false
	for _, edge := range r.m.g.EdgesFrom(e.Source) {
		if e.Target != "" && edge.Target != e.Target {
			continue
		}
		if e.Target == "" && !r.m.g.IsDynamic(edge.Target) {
			continue
		}
		r.m.state.Edges[edge.Key()] = true
		matched = true
	}
	if !matched {
		r.m.opts.Logger.Debug("edge_taken matched no edge", "source", e.Source, "target", e.Target)
	}
}

func (r *reducer) ToolCall(e ToolCall) {
	a := r.m.upsertTool(e.CallID)
	a.NodeID = e.NodeID
	a.ToolName = e.ToolName
	a.Arguments = e.Arguments
	if e.ToolName == r.m.opts.StreamTool {
		r.m.ingestStream(e.Arguments)
	}
}

func (r *reducer) ToolResult(e ToolResult) {
	a := r.m.upsertTool(e.CallID)
	if a.NodeID == "" {
		a.NodeID = e.NodeID
	}
	if a.ToolName == "" {
		a.ToolName = e.ToolName
	}
	a.Output = e.Output
	a.Success = e.Succeeded()
	a.Completed = true
	if a.ToolName == r.m.opts.StreamTool {
		r.m.ingestStream(e.Output)
	}
}

func (r *reducer) InputRequest(e InputRequest) {
	if prev := r.m.state.Pending; prev != nil && prev.RequestID != e.RequestID {
		r.m.opts.Logger.Warn("input request replaces unanswered request", "previous", prev.RequestID, "request", e.RequestID)
	}
	options := e.Options
	if len(options) == 0 {
		options = DefaultInputOptions
	}
	r.m.state.Pending = &PendingInput{
		RequestID: e.RequestID,
		NodeID:    e.NodeID,
		Prompt:    e.Prompt,
		Context:   e.Context,
		Options:   slices.Clone(options),
	}
}

func (r *reducer) InputResponse(e InputResponse) {
	if p := r.m.state.Pending; p != nil && p.RequestID == e.RequestID {
		r.m.state.Pending = nil
	}
}

func (r *reducer) RunEnd(RunEnd) {
	r.m.state.Phase = PhaseReady
	r.done = true
}

func (r *reducer) RunError(e RunError) {
	if _, ok := r.m.state.Nodes[e.NodeID]; ok {
		r.m.state.Nodes[e.NodeID] = StatusError
	}
	r.m.fail(e.Message)
	r.done = true
}

// upsertTool returns the feed entry for callID, inserting a new one at the
// front if there is none.
func (m *Machine) upsertTool(callID string) *ToolActivity {
	for i := range m.state.Tools {
		if m.state.Tools[i].CallID == callID {
			return &m.state.Tools[i]
		}
	}
	m.state.Tools = slices.Insert(m.state.Tools, 0, ToolActivity{CallID: callID, Success: true})
	return &m.state.Tools[0]
}

// streamPayload covers both the arguments and the output of the streaming
// tool.
type streamPayload struct {
	Tick    *int    `json:"tick"`
	Total   *int    `json:"total"`
	Chunk   *string `json:"chunk"`
	IsFinal *bool   `json:"is_final"`
}

func (m *Machine) ingestStream(raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}
	var p streamPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		m.opts.Logger.Debug("ignoring streaming payload", "error", err)
		return
	}
	b := &m.state.Stream
	if p.Tick != nil {
		b.Tick = max(b.Tick, *p.Tick)
	}
	if p.Total != nil {
		b.Total = *p.Total
		b.HasTotal = true
	}
	if p.IsFinal != nil && *p.IsFinal {
		b.Final = true
	}
	if p.Chunk != nil && *p.Chunk != "" {
		chunks := slices.DeleteFunc(b.Chunks, func(c string) bool { return c == *p.Chunk })
		chunks = slices.Insert(chunks, 0, *p.Chunk)
		if len(chunks) > m.opts.ChunkLimit {
			chunks = chunks[:m.opts.ChunkLimit]
		}
		b.Chunks = chunks
	}
}
