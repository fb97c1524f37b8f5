// Package pkg provides the libraries behind graphstudio.
//
// # Overview
//
// Graphstudio lays out an execution graph served by a backend and overlays
// the live state of a run on it. The pkg directory is organized as:
//
//  1. [graph] - Wire types, tolerant decoding and the normalized graph model
//  2. [layout] - Level assignment, crossing reduction, coordinates and routing
//  3. [runviz] - Run events and the run-state machine
//  4. [client] - Backend HTTP client and event stream
//  5. [studio] - Controller tying graph, layout, run state and stream together
//  6. [replay] - Replay backend serving recorded runs
//
// Supporting packages: [config], [errors], [observability], [httputil] and
// [buildinfo].
//
// # Architecture
//
//	GET /api/graph
//	       ↓
//	[graph] Normalize (dynamic nodes, closed node set)
//	       ↓
//	[layout] Strategy: levels → rows → positions → side lanes
//	       ↓
//	render model  ←  [runviz] Machine  ←  [client] Stream (SSE)
//
// # Quick Start
//
//	cl, err := client.New("http://127.0.0.1:8000")
//	if err != nil {
//	    return err
//	}
//	strategy, err := layout.Select(ctx, layout.StrategyAuto, layout.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	ctrl := studio.New(cl, strategy, studio.Options{})
//	defer ctrl.Close()
//
//	if err := ctrl.Load(ctx); err != nil {
//	    return err
//	}
//	run, err := ctrl.StartRun(ctx)
//	if err != nil {
//	    return err
//	}
//	return ctrl.Follow(ctx, run, func(st runviz.RunState) {
//	    fmt.Println(st.StatusLabel())
//	})
package pkg
