package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/graphstudio/pkg/observability"
)

// logHooks reports layout, run and HTTP events to the CLI logger.
type logHooks struct {
	logger *log.Logger
}

var (
	_ observability.LayoutHooks = (*logHooks)(nil)
	_ observability.RunHooks    = (*logHooks)(nil)
	_ observability.HTTPHooks   = (*logHooks)(nil)
)

func (h *logHooks) OnLayoutStart(_ context.Context, strategy string, nodeCount int) {
	h.logger.Debug("layout started", "strategy", strategy, "nodes", nodeCount)
}

func (h *logHooks) OnLayoutComplete(_ context.Context, strategy string, d time.Duration, err error) {
	if err != nil {
		h.logger.Warn("layout failed", "strategy", strategy, "error", err)
		return
	}
	h.logger.Debug("layout complete", "strategy", strategy, "elapsed", d.Round(time.Microsecond))
}

func (h *logHooks) OnRunStart(_ context.Context, runID string) {
	h.logger.Debug("run accepted", "run", runID)
}

func (h *logHooks) OnEvent(_ context.Context, runID, eventType string) {
	h.logger.Debug("event", "run", runID, "type", eventType)
}

func (h *logHooks) OnRunEnd(_ context.Context, runID, phase string) {
	h.logger.Info("run finished", "run", runID, "phase", phase)
}

func (h *logHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("request", "method", method, "host", host, "path", path)
}

func (h *logHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("response", "method", method, "path", path, "status", status, "elapsed", d.Round(time.Millisecond))
}

func (h *logHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Warn("request failed", "method", method, "host", host, "path", path, "error", err)
}
