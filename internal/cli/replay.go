package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/graphstudio/pkg/replay"
)

type replayFlags struct {
	addr  string
	delay time.Duration
}

// replayCommand creates the replay command that serves a recorded run.
func (c *CLI) replayCommand() *cobra.Command {
	var f replayFlags

	cmd := &cobra.Command{
		Use:   "replay <graph.json> <events.jsonl>",
		Short: "Serve a recorded graph and event log as a backend",
		Long: `Serve a recorded graph and event log over the backend HTTP API.

Every POST /api/run starts a fresh replay of the event log under a new run id.
Events are sent with a fixed delay, and the replay pauses at each
input_request until the request is answered through POST /api/input.

Lines of the event log that are blank or start with # are ignored.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("addr") {
				f.addr = c.cfg.Replay.Addr
			}
			opts := c.cfg.ReplayOptions(c.Logger)
			if cmd.Flags().Changed("delay") {
				opts.Delay = f.delay
				if opts.Delay == 0 {
					opts.Delay = -1
				}
			}
			return c.runReplay(cmd.Context(), args[0], args[1], f.addr, opts)
		},
	}

	cmd.Flags().StringVar(&f.addr, "addr", "", "listen address (default: replay.addr)")
	cmd.Flags().DurationVar(&f.delay, "delay", 0, "pause before each event, 0 for none (default: replay.delay)")

	return cmd
}

func (c *CLI) runReplay(ctx context.Context, graphPath, eventsPath, addr string, opts replay.Options) error {
	script, err := replay.LoadScript(graphPath, eventsPath, c.Logger)
	if err != nil {
		return err
	}
	srv := replay.New(script, opts)

	printInfo("Replaying %d events", len(script.Events))
	printKeyValue("Listening", StyleLink.Render("http://"+addr))
	printNewline()
	printNextStep("Watch", appName+" watch --url http://"+addr)

	if err := srv.ListenAndServe(ctx, addr); err != nil {
		return err
	}
	c.Logger.Info("replay server stopped")
	return nil
}
