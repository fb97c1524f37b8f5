package studio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/graphstudio/pkg/client"
	errs "github.com/matzehuels/graphstudio/pkg/errors"
	"github.com/matzehuels/graphstudio/pkg/graph"
	"github.com/matzehuels/graphstudio/pkg/layout"
	"github.com/matzehuels/graphstudio/pkg/observability"
	"github.com/matzehuels/graphstudio/pkg/runviz"
)

var (
	// ErrNotLoaded is returned by [Controller.StartRun] before a graph has
	// been loaded.
	ErrNotLoaded = errors.New("graph not loaded")

	// ErrNothingPending is returned by [Controller.Submit] when there is no
	// pending input request or a submission is already in flight.
	ErrNothingPending = errors.New("no pending input request")

	// ErrSuperseded is returned by [Controller.StartRun] when another run
	// was started while this one was being set up.
	ErrSuperseded = errors.New("run superseded by a newer run")
)

// Backend is the execution backend the controller drives.
// *client.Client implements it.
type Backend interface {
	Graph(ctx context.Context) (graph.Spec, error)
	StartRun(ctx context.Context) (string, error)
	Events(ctx context.Context, runID string) (*client.Stream, error)
	SubmitInput(ctx context.Context, runID, requestID, response string) error
}

var _ Backend = (*client.Client)(nil)

// Options configures a [Controller].
type Options struct {
	Run    runviz.Options
	Logger *log.Logger
}

// Run is a handle to a started run and its event stream.
type Run struct {
	ID     string
	stream *client.Stream
}

// Controller owns the graph model, its render model, the run state machine
// and the single open event stream. Starting a run closes the previous
// stream before opening the next.
//
// Controller methods are safe for concurrent use; events are still reduced
// one at a time.
type Controller struct {
	backend  Backend
	strategy layout.Strategy
	opts     Options
	logger   *log.Logger

	mu      sync.Mutex
	g       *graph.Graph
	render  *layout.Result
	machine *runviz.Machine
	stream  *client.Stream
	gen     int
}

// New creates a controller. Nothing is fetched until [Controller.Load].
func New(b Backend, strategy layout.Strategy, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Run.Logger == nil {
		opts.Run.Logger = opts.Logger
	}
	return &Controller{
		backend:  b,
		strategy: strategy,
		opts:     opts,
		logger:   opts.Logger,
		machine:  runviz.New(nil, opts.Run),
	}
}

// Load fetches the graph, normalizes it and computes the render model. On
// failure the render model stays empty and the machine is in the error
// phase.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	c.closeStreamLocked()
	c.gen++
	c.g, c.render = nil, nil
	c.machine = runviz.New(nil, c.opts.Run)
	c.machine.Loading()
	c.mu.Unlock()

	spec, err := c.backend.Graph(ctx)
	if err != nil {
		return c.loadFailed(errs.Wrap(codeOf(err, errs.ErrCodeNetwork), err, "failed to load graph"), err)
	}
	if spec.Empty() {
		c.logger.Warn("graph has no nodes")
	}

	g := graph.Normalize(spec)
	if n := g.SkippedEdges(); n > 0 {
		c.logger.Warn("skipped edges from unknown nodes", "count", n)
	}
	render, err := c.strategy.Layout(ctx, g)
	if err != nil {
		return c.loadFailed(errs.Wrap(errs.ErrCodeInternal, err, "failed to lay out graph"), err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.g, c.render = g, render
	c.machine = runviz.New(g, c.opts.Run)
	c.machine.Loaded()
	c.logger.Debug("graph loaded", "nodes", g.NodeCount(), "edges", g.EdgeCount(), "strategy", render.Strategy)
	return nil
}

// loadFailed puts the machine in the error phase with the status code of a
// failed response, or the cause, appended to the visible message.
func (c *Controller) loadFailed(err, cause error) error {
	msg := fmt.Sprintf("%s (%s)", runviz.MsgLoadFailed, errs.UserMessage(cause))
	var se *errs.StatusError
	if errors.As(cause, &se) {
		msg = fmt.Sprintf("%s (%d)", runviz.MsgLoadFailed, se.StatusCode)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.machine.Fail(msg)
	c.logger.Error("load failed", "error", err)
	return err
}

// StartRun starts a new run and opens its event stream. Any previously open
// stream is closed first. On failure the machine is in the error phase and
// no stream is open.
func (c *Controller) StartRun(ctx context.Context) (*Run, error) {
	c.mu.Lock()
	if c.render == nil {
		c.mu.Unlock()
		return nil, ErrNotLoaded
	}
	c.closeStreamLocked()
	c.gen++
	gen := c.gen
	c.machine.Begin()
	c.mu.Unlock()

	id, err := c.backend.StartRun(ctx)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return nil, ErrSuperseded
	}
	if err != nil {
		c.machine.Fail(runviz.MsgRunStartFailed)
		c.mu.Unlock()
		return nil, errs.Wrap(errs.ErrCodeRunFailed, err, "failed to start run")
	}
	c.machine.Started(id)
	c.mu.Unlock()

	stream, err := c.backend.Events(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		if stream != nil {
			stream.Close()
		}
		return nil, ErrSuperseded
	}
	if err != nil {
		c.machine.StreamFailed(err)
		return nil, errs.Wrap(codeOf(err, errs.ErrCodeNetwork), err, "failed to open event stream")
	}
	c.stream = stream
	observability.Run().OnRunStart(ctx, id)
	c.logger.Info("run started", "run", id)
	return &Run{ID: id, stream: stream}, nil
}

// Ingest reduces one stream read: either an event payload or the error the
// read returned. It reports true when the caller should stop reading run.
// Reads from a stream that is no longer current are ignored.
func (c *Controller) Ingest(ctx context.Context, run *Run, data []byte, readErr error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if run == nil || run.stream != c.stream {
		return true
	}

	if readErr != nil {
		if errors.Is(readErr, context.Canceled) || errors.Is(readErr, client.ErrStreamClosed) {
			c.logger.Debug("stopped following run", "run", run.ID, "error", readErr)
		} else {
			c.machine.StreamFailed(readErr)
		}
		c.endLocked(ctx, run)
		return true
	}

	ev, err := runviz.Decode(data)
	if errors.Is(err, runviz.ErrUnknownEventType) {
		c.logger.Warn("skipping unknown event", "run", run.ID, "error", err)
		return false
	}
	if err != nil {
		c.machine.Malformed(err)
		c.endLocked(ctx, run)
		return true
	}

	done := c.machine.Apply(ev)
	observability.Run().OnEvent(ctx, run.ID, string(ev.Type()))
	if done {
		c.endLocked(ctx, run)
	}
	return done
}

// Step reads and reduces the next event of run. It blocks until one is
// available and reports true when the run is over.
func (c *Controller) Step(ctx context.Context, run *Run) bool {
	data, err := run.stream.Next(ctx)
	return c.Ingest(ctx, run, data, err)
}

// Follow reduces events of run until it ends or ctx is done, calling
// onUpdate with a snapshot after each one.
func (c *Controller) Follow(ctx context.Context, run *Run, onUpdate func(runviz.RunState)) error {
	for {
		done := c.Step(ctx, run)
		if onUpdate != nil {
			onUpdate(c.Snapshot())
		}
		if done {
			return ctx.Err()
		}
	}
}

// Submit answers the pending input request with response. On failure the
// request stays pending with its error set and can be retried.
func (c *Controller) Submit(ctx context.Context, response string) error {
	c.mu.Lock()
	runID := c.machine.Snapshot().RunID
	req, ok := c.machine.BeginSubmit()
	c.mu.Unlock()
	if !ok {
		return ErrNothingPending
	}

	err := c.backend.SubmitInput(ctx, runID, req.RequestID, response)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.machine.FinishSubmit(req.RequestID, errors.New(errs.UserMessage(submitError(err))))
		return errs.Wrap(codeOf(err, errs.ErrCodeNetwork), err, "failed to submit input")
	}
	c.machine.FinishSubmit(req.RequestID, nil)
	c.logger.Debug("input submitted", "request", req.RequestID, "response", response)
	return nil
}

// submitError prefers the backend's plain-text body as the message shown to
// the user.
func submitError(err error) error {
	var se *errs.StatusError
	if errors.As(err, &se) && se.Body != "" {
		return errs.New(se.Code(), "%s", se.Body)
	}
	return err
}

// Close closes the open event stream, if any.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeStreamLocked()
}

// Snapshot returns a copy of the run state.
func (c *Controller) Snapshot() runviz.RunState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.Snapshot()
}

// Render returns the render model, or nil before a successful load.
func (c *Controller) Render() *layout.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.render
}

// Graph returns the loaded graph model, or nil before a successful load.
func (c *Controller) Graph() *graph.Graph {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.g
}

func (c *Controller) endLocked(ctx context.Context, run *Run) {
	c.closeStreamLocked()
	observability.Run().OnRunEnd(ctx, run.ID, string(c.machine.Phase()))
	c.logger.Info("run finished", "run", run.ID, "phase", c.machine.Phase())
}

func (c *Controller) closeStreamLocked() error {
	if c.stream == nil {
		return nil
	}
	err := c.stream.Close()
	c.stream = nil
	return err
}

// codeOf returns the code carried by err, or def.
func codeOf(err error, def errs.Code) errs.Code {
	var se *errs.StatusError
	if errors.As(err, &se) {
		return se.Code()
	}
	if code := errs.GetCode(err); code != "" {
		return code
	}
	return def
}
