package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	l := NoopLayoutHooks{}
	l.OnLayoutStart(ctx, "heuristic", 12)
	l.OnLayoutComplete(ctx, "heuristic", time.Millisecond, nil)

	r := NoopRunHooks{}
	r.OnRunStart(ctx, "run-1")
	r.OnEvent(ctx, "run-1", "node_start")
	r.OnRunEnd(ctx, "run-1", "ready")

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "localhost:8000", "/api/graph")
	h.OnResponse(ctx, "GET", "localhost:8000", "/api/graph", 200, time.Second)
	h.OnError(ctx, "GET", "localhost:8000", "/api/graph", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	if _, ok := Layout().(NoopLayoutHooks); !ok {
		t.Error("Layout() should return NoopLayoutHooks by default")
	}
	if _, ok := Run().(NoopRunHooks); !ok {
		t.Error("Run() should return NoopRunHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	customLayout := &testLayoutHooks{}
	SetLayoutHooks(customLayout)
	if Layout() != customLayout {
		t.Error("SetLayoutHooks should set custom hooks")
	}

	customRun := &testRunHooks{}
	SetRunHooks(customRun)
	if Run() != customRun {
		t.Error("SetRunHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	Reset()
	if _, ok := Layout().(NoopLayoutHooks); !ok {
		t.Error("Reset() should restore NoopLayoutHooks")
	}
	if _, ok := Run().(NoopRunHooks); !ok {
		t.Error("Reset() should restore NoopRunHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	custom := &testRunHooks{}
	SetRunHooks(custom)
	SetRunHooks(nil)
	if Run() != custom {
		t.Error("SetRunHooks(nil) should not replace registered hooks")
	}
}

func TestCustomHooksReceiveEvents(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	h := &testRunHooks{}
	SetRunHooks(h)
	Run().OnRunStart(context.Background(), "run-7")
	Run().OnEvent(context.Background(), "run-7", "node_end")
	if h.started != "run-7" || h.events != 1 {
		t.Errorf("hooks = %+v, want started=run-7 events=1", h)
	}
}

type testLayoutHooks struct{ NoopLayoutHooks }

type testRunHooks struct {
	started string
	events  int
}

func (h *testRunHooks) OnRunStart(_ context.Context, runID string) { h.started = runID }
func (h *testRunHooks) OnEvent(context.Context, string, string)    { h.events++ }
func (h *testRunHooks) OnRunEnd(context.Context, string, string)   {}

type testHTTPHooks struct{ NoopHTTPHooks }
