package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/graphstudio/pkg/buildinfo"
	"github.com/matzehuels/graphstudio/pkg/client"
	"github.com/matzehuels/graphstudio/pkg/config"
	"github.com/matzehuels/graphstudio/pkg/graph"
	"github.com/matzehuels/graphstudio/pkg/layout"
	"github.com/matzehuels/graphstudio/pkg/observability"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display.
const appName = "graphstudio"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        config.Config
}

// New creates a new CLI instance with a default logger and the built-in
// configuration. The config file is read when a command runs.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		cfg:    config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// Config returns the active configuration.
func (c *CLI) Config() config.Config { return c.cfg }

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Graphstudio lays out execution graphs and follows their runs",
		Long:         `Graphstudio computes a readable layout for an execution graph served by a backend and overlays the live state of a run: node status, taken edges, tool calls, streamed output and pending approvals.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/graphstudio/config.toml)")

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.replayCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the config file and registers the log-backed hooks.
func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.registerHooks()
	return nil
}

func (c *CLI) registerHooks() {
	h := &logHooks{logger: c.Logger}
	observability.SetLayoutHooks(h)
	observability.SetRunHooks(h)
	observability.SetHTTPHooks(h)
}

// =============================================================================
// Shared Factories
// =============================================================================

// newClient creates a backend client. An empty url means the configured
// backend_url.
func (c *CLI) newClient(url string) (*client.Client, error) {
	if url == "" {
		url = c.cfg.BackendURL
	}
	return client.New(url, client.WithLogger(c.Logger))
}

// newStrategy selects the layout strategy, letting flag values override the
// configuration.
func (c *CLI) newStrategy(ctx context.Context, strategy, leveling string) (layout.Strategy, error) {
	cfg := c.cfg
	if strategy != "" {
		cfg.Layout.Strategy = strategy
	}
	if leveling != "" {
		cfg.Layout.Leveling = leveling
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return layout.Select(ctx, cfg.Layout.Strategy, cfg.LayoutOptions(c.Logger))
}

// fetchGraph loads a graph from the backend at url.
func (c *CLI) fetchGraph(ctx context.Context, url string) (*graph.Graph, error) {
	cl, err := c.newClient(url)
	if err != nil {
		return nil, err
	}
	s, err := cl.Graph(ctx)
	if err != nil {
		return nil, err
	}
	return graph.Normalize(s), nil
}
