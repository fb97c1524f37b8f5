package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/matzehuels/graphstudio/pkg/client"
	"github.com/matzehuels/graphstudio/pkg/runviz"
)

// DefaultDelay is the pause before each replayed event.
const DefaultDelay = 400 * time.Millisecond

const maxInputBody = 64 << 10

// Options configures a [Server].
type Options struct {
	// Delay is the pause before each event. Negative means no pause.
	Delay  time.Duration
	Logger *log.Logger
}

// Server replays a [Script] over the backend HTTP routes. Every started run
// replays the whole script. Scripted input_response events are dropped; the
// replay instead pauses at each input_request until POST /api/input answers
// it, then emits a matching input_response.
type Server struct {
	script *Script
	delay  time.Duration
	logger *log.Logger
	router chi.Router

	mu   sync.Mutex
	runs map[string]*run
}

type run struct {
	id      string
	answers chan string

	mu        sync.Mutex
	streaming bool
	pending   string // request id awaiting an answer
}

// New creates a replay server for script.
func New(script *Script, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	switch {
	case opts.Delay == 0:
		opts.Delay = DefaultDelay
	case opts.Delay < 0:
		opts.Delay = 0
	}
	s := &Server{
		script: script,
		delay:  opts.Delay,
		logger: opts.Logger,
		runs:   make(map[string]*run),
	}
	s.router = s.buildRouter()
	return s
}

// ServeHTTP delegates to the chi router, satisfying http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/graph", s.handleGraph)
		r.Post("/run", s.handleRun)
		r.Get("/events", s.handleEvents)
		r.Post("/input", s.handleInput)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(s.script.Graph)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	s.mu.Lock()
	s.runs[id] = &run{id: id, answers: make(chan string, 1)}
	s.mu.Unlock()

	s.logger.Info("run started", "run", id, "events", len(s.script.Events))
	writeJSON(w, http.StatusOK, map[string]string{"run_id": id})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	rn, ok := s.lookup(w, r.URL.Query().Get("run_id"))
	if !ok {
		return
	}
	rn.mu.Lock()
	busy := rn.streaming
	rn.streaming = true
	rn.mu.Unlock()
	if busy {
		http.Error(w, "Run is already being streamed", http.StatusConflict)
		return
	}
	defer s.remove(rn.id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, canFlush := w.(http.Flusher)
	emit := func(payload []byte) {
		fmt.Fprintf(w, "data: %s\n\n", payload)
		if canFlush {
			flusher.Flush()
		}
	}

	if err := s.replay(r.Context(), rn, emit); err != nil {
		s.logger.Debug("replay stopped", "run", rn.id, "error", err)
		return
	}
	s.logger.Info("run replayed", "run", rn.id)
}

// replay emits the script for rn, pausing at input requests.
func (s *Server) replay(ctx context.Context, rn *run, emit func([]byte)) error {
	for _, e := range s.script.Events {
		if e.Type == runviz.TypeInputResponse {
			continue
		}
		if err := sleep(ctx, s.delay); err != nil {
			return err
		}
		payload, err := e.withRun(rn.id)
		if err != nil {
			return err
		}

		if e.Type != runviz.TypeInputRequest {
			emit(payload)
			continue
		}

		requestID := e.field("request_id")
		rn.mu.Lock()
		rn.pending = requestID
		rn.mu.Unlock()
		emit(payload)

		var answer string
		select {
		case answer = <-rn.answers:
		case <-ctx.Done():
			return ctx.Err()
		}
		resp, err := runviz.Encode(runviz.InputResponse{
			RunID:     rn.id,
			NodeID:    e.field("node_id"),
			RequestID: requestID,
			Response:  answer,
		})
		if err != nil {
			return err
		}
		emit(resp)
	}
	return nil
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	var req client.InputRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxInputBody)).Decode(&req); err != nil {
		http.Error(w, "Invalid input body", http.StatusBadRequest)
		return
	}
	if req.RequestID == "" {
		http.Error(w, "Missing request_id", http.StatusBadRequest)
		return
	}
	rn, ok := s.lookup(w, req.RunID)
	if !ok {
		return
	}

	rn.mu.Lock()
	defer rn.mu.Unlock()
	if rn.pending == "" || rn.pending != req.RequestID {
		http.Error(w, "No pending input for request_id", http.StatusConflict)
		return
	}
	rn.pending = ""
	rn.answers <- req.Response

	s.logger.Debug("input received", "run", rn.id, "request", req.RequestID, "response", req.Response)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// lookup finds a run or writes the error response.
func (s *Server) lookup(w http.ResponseWriter, id string) (*run, bool) {
	if id == "" {
		http.Error(w, "Missing run_id", http.StatusBadRequest)
		return nil, false
	}
	s.mu.Lock()
	rn, ok := s.runs[id]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "Unknown run_id", http.StatusNotFound)
		return nil, false
	}
	return rn, true
}

func (s *Server) remove(id string) {
	s.mu.Lock()
	delete(s.runs, id)
	s.mu.Unlock()
}

// Runs returns the number of runs that have not finished streaming.
func (s *Server) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
