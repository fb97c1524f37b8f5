// Package studio drives one graph visualization against an execution
// backend.
//
// A [Controller] loads the graph, computes its render model with a
// [layout.Strategy] and feeds the run's event stream into a
// [runviz.Machine]:
//
//	c := studio.New(backend, strategy, studio.Options{})
//	if err := c.Load(ctx); err != nil {
//	    return err
//	}
//	run, err := c.StartRun(ctx)
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//	err = c.Follow(ctx, run, func(s runviz.RunState) { redraw(c.Render(), s) })
//
// Callers that own their event loop (the terminal UI) read with
// [Controller.Step] or pass each stream read to [Controller.Ingest] instead
// of calling Follow.
package studio
