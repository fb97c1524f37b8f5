package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	errs "github.com/matzehuels/graphstudio/pkg/errors"
	"github.com/matzehuels/graphstudio/pkg/graph"
	"github.com/matzehuels/graphstudio/pkg/httputil"
	"github.com/matzehuels/graphstudio/pkg/observability"
)

const (
	httpTimeout  = 10 * time.Second
	maxErrorBody = 4 << 10
)

// Backend routes.
const (
	PathGraph  = "/api/graph"
	PathRun    = "/api/run"
	PathEvents = "/api/events"
	PathInput  = "/api/input"
)

// HeaderRequestID carries a per-request id for correlating client and
// backend logs.
const HeaderRequestID = "X-Request-Id"

// ErrNetwork is returned for transport failures (connection errors,
// timeouts). Non-2xx responses are reported as *errors.StatusError.
var ErrNetwork = errors.New("network error")

// Client talks to the execution backend. It is safe for concurrent use.
type Client struct {
	base    *url.URL
	http    *http.Client
	stream  *http.Client
	headers map[string]string
	retry   httputil.Policy
	logger  *log.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient sets the client used for request/response calls. The event
// stream uses a copy without a timeout.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
		s := *h
		s.Timeout = 0
		c.stream = &s
	}
}

// WithHeaders adds headers sent with every request.
func WithHeaders(h map[string]string) Option {
	return func(c *Client) { c.headers = h }
}

// WithRetry sets the retry policy for idempotent reads.
func WithRetry(p httputil.Policy) Option {
	return func(c *Client) { c.retry = p }
}

// WithLogger sets the logger. Defaults to log.Default().
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if err := errs.ValidateURL(baseURL); err != nil {
		return nil, err
	}
	base, _ := url.Parse(strings.TrimSuffix(baseURL, "/"))
	c := &Client{
		base:   base,
		http:   &http.Client{Timeout: httpTimeout},
		stream: &http.Client{},
		retry:  httputil.DefaultPolicy,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string { return c.base.String() }

// Graph fetches the graph description. Transient failures are retried.
func (c *Client) Graph(ctx context.Context) (graph.Spec, error) {
	var spec graph.Spec
	err := httputil.Retry(ctx, c.retry, func() error {
		body, err := c.do(ctx, http.MethodGet, PathGraph, nil, nil)
		if err != nil {
			return err
		}
		defer body.Close()
		spec, err = graph.Decode(body)
		return err
	})
	if err != nil {
		return graph.Spec{}, err
	}
	c.logger.Debug("fetched graph", "nodes", len(spec.Nodes), "edges", len(spec.Edges))
	return spec, nil
}

// StartRun asks the backend to start a run and returns its id.
func (c *Client) StartRun(ctx context.Context) (string, error) {
	body, err := c.do(ctx, http.MethodPost, PathRun, nil, nil)
	if err != nil {
		return "", err
	}
	defer body.Close()

	var resp struct {
		RunID string `json:"run_id"`
	}
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return "", fmt.Errorf("decode run response: %w", err)
	}
	if err := errs.ValidateIdentifier("run_id", resp.RunID); err != nil {
		return "", err
	}
	c.logger.Debug("run started", "run", resp.RunID)
	return resp.RunID, nil
}

// Events opens the event stream of a run. The caller owns the returned
// stream and must close it.
func (c *Client) Events(ctx context.Context, runID string) (*Stream, error) {
	q := url.Values{"run_id": {runID}}
	req, err := c.newRequest(ctx, http.MethodGet, PathEvents+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.send(c.stream, req)
	if err != nil {
		return nil, err
	}
	return NewStream(resp.Body), nil
}

// InputRequest is the body of POST /api/input.
type InputRequest struct {
	RunID     string `json:"run_id"`
	RequestID string `json:"request_id"`
	Response  string `json:"response"`
}

// SubmitInput answers a pending input request. A non-2xx response is
// returned as *errors.StatusError carrying the backend's plain-text body.
func (c *Client) SubmitInput(ctx context.Context, runID, requestID, response string) error {
	payload, err := json.Marshal(InputRequest{RunID: runID, RequestID: requestID, Response: response})
	if err != nil {
		return err
	}
	body, err := c.do(ctx, http.MethodPost, PathInput, payload, map[string]string{"Content-Type": "application/json"})
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, body)
	return body.Close()
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, headers map[string]string) (io.ReadCloser, error) {
	var r io.Reader
	if payload != nil {
		r = bytes.NewReader(payload)
	}
	req, err := c.newRequest(ctx, method, path, r)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.send(c.http, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set(HeaderRequestID, uuid.NewString())
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// send executes req and turns transport failures and non-2xx statuses into
// errors. On success the caller owns resp.Body.
func (c *Client) send(h *http.Client, req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	hooks := observability.HTTP()
	host, path := req.URL.Host, req.URL.Path
	hooks.OnRequest(ctx, req.Method, host, path)

	start := time.Now()
	resp, err := h.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &httputil.RetryableError{Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		c.logger.Debug("backend error", "method", req.Method, "path", path, "error", err)
		return nil, err
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	err := &errs.StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(text))}
	if httputil.RetryableStatus(resp.StatusCode) {
		return &httputil.RetryableError{Err: err}
	}
	return err
}
