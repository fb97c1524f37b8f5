package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	errs "github.com/matzehuels/graphstudio/pkg/errors"
	"github.com/matzehuels/graphstudio/pkg/runviz"
	"github.com/matzehuels/graphstudio/pkg/studio"
)

type watchFlags struct {
	url      string
	strategy string
	leveling string
	plain    bool
	answer   string
	noStart  bool
	logFile  string
}

// watchCommand creates the watch command that follows a run live.
func (c *CLI) watchCommand() *cobra.Command {
	var f watchFlags

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Start a run and follow it live",
		Long: `Start a run on the backend and follow it live.

The graph is loaded from the backend and laid out, then a run is started and
its events drive the view: node status, taken edges, tool calls, streamed
output and input requests, which are answered from the keyboard.

With --plain the run is followed without a terminal UI. Progress is printed
line by line and input requests are answered with --answer, or with their
first option.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctrl, err := c.newController(ctx, f)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			if f.plain {
				return c.followPlain(ctx, ctrl, f.answer)
			}
			return c.runWatchTUI(ctx, ctrl, f)
		},
	}

	cmd.Flags().StringVar(&f.url, "url", "", "backend URL (default: backend_url)")
	cmd.Flags().StringVar(&f.strategy, "strategy", "", "layout strategy: auto, heuristic, graphviz")
	cmd.Flags().StringVar(&f.leveling, "leveling", "", "level assignment: longest, shortest")
	cmd.Flags().BoolVar(&f.plain, "plain", false, "print progress instead of the terminal UI")
	cmd.Flags().StringVar(&f.answer, "answer", "", "response to input requests in --plain mode (default: first option)")
	cmd.Flags().BoolVar(&f.noStart, "no-start", false, "load the graph without starting a run")
	cmd.Flags().StringVar(&f.logFile, "log-file", "", "write logs to this file while the terminal UI runs")
	registerLayoutCompletions(cmd)

	return cmd
}

func (c *CLI) newController(ctx context.Context, f watchFlags) (*studio.Controller, error) {
	strategy, err := c.newStrategy(ctx, f.strategy, f.leveling)
	if err != nil {
		return nil, err
	}
	cl, err := c.newClient(f.url)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("using backend", "url", cl.BaseURL(), "strategy", strategy.Name())
	return studio.New(cl, strategy, studio.Options{
		Run:    c.cfg.RunOptions(c.Logger),
		Logger: c.Logger,
	}), nil
}

// runWatchTUI runs the interactive view. Logs would corrupt the screen, so
// they go to --log-file or are dropped.
func (c *CLI) runWatchTUI(ctx context.Context, ctrl *studio.Controller, f watchFlags) error {
	var logOut io.Writer = io.Discard
	if f.logFile != "" {
		file, err := os.OpenFile(f.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer file.Close()
		logOut = file
	}
	c.Logger.SetOutput(logOut)
	defer c.Logger.SetOutput(os.Stderr)

	p := tea.NewProgram(newWatchModel(ctx, ctrl, !f.noStart), tea.WithContext(ctx), tea.WithAltScreen())
	final, err := p.Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	st := final.(watchModel).state
	if st.Phase == runviz.PhaseError {
		printError("%s", st.Error)
	} else if st.RunID != "" {
		printInfo("Last run %s: %s", st.RunID, st.StatusLabel())
	}
	return nil
}

// followPlain starts one run and follows it to the end, answering every input
// request with answer.
func (c *CLI) followPlain(ctx context.Context, ctrl *studio.Controller, answer string) error {
	if err := ctrl.Load(ctx); err != nil {
		return err
	}
	r := ctrl.Render()
	printSuccess("Loaded graph (%s layout)", r.Strategy)
	printStats(layoutStats{Nodes: len(r.Nodes), Edges: len(r.Edges), Detours: r.Detours(), Crossings: r.Crossings})

	run, err := ctrl.StartRun(ctx)
	if err != nil {
		return err
	}
	printInfo("Following run %s", run.ID)

	prev := ctrl.Snapshot()
	for {
		done := ctrl.Step(ctx, run)
		st := ctrl.Snapshot()
		reportChanges(ctrl, prev, st)
		prev = st
		if done {
			break
		}

		p := st.Pending
		if p == nil || p.Submitting {
			continue
		}
		resp := answer
		if resp == "" && len(p.Options) > 0 {
			resp = p.Options[0]
		}
		printDetail("%s %q %s %s", p.NodeID, p.Prompt, iconArrow, resp)
		if err := ctrl.Submit(ctx, resp); err != nil {
			return err
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	st := ctrl.Snapshot()
	if st.Phase == runviz.PhaseError {
		printError("Run %s failed: %s", run.ID, st.Error)
		return errs.New(errs.ErrCodeRunFailed, "run %s: %s", run.ID, st.Error)
	}
	printSuccess("Run %s finished", run.ID)
	return nil
}

// reportChanges prints node transitions and newly completed tool calls.
func reportChanges(ctrl *studio.Controller, prev, cur runviz.RunState) {
	if g := ctrl.Graph(); g != nil {
		for _, n := range g.Nodes() {
			if s := cur.Nodes[n.ID]; s != prev.Nodes[n.ID] {
				printDetail("%s %s %s", statusIcon(s), n.DisplayLabel(), s)
			}
		}
	}

	completed := make(map[string]bool, len(prev.Tools))
	for _, t := range prev.Tools {
		completed[t.CallID] = t.Completed
	}
	for _, t := range cur.Tools {
		if t.Completed && !completed[t.CallID] {
			result := "ok"
			if !t.Success {
				result = "failed"
			}
			printDetail("tool %s @ %s %s", t.ToolName, t.NodeID, result)
		}
	}

	if cur.Stream.Final && !prev.Stream.Final {
		printDetail("stream complete after %d ticks", cur.Stream.Tick)
	}
}
