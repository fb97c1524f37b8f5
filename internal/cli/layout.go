package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	errs "github.com/matzehuels/graphstudio/pkg/errors"
	"github.com/matzehuels/graphstudio/pkg/graph"
	"github.com/matzehuels/graphstudio/pkg/layout"
)

// Output formats of the layout command.
const (
	formatJSON = "json"
	formatDOT  = "dot"
	formatSVG  = "svg"
)

type layoutFlags struct {
	url      string
	output   string
	format   string
	strategy string
	leveling string
}

// layoutCommand creates the layout command for computing render models.
func (c *CLI) layoutCommand() *cobra.Command {
	var f layoutFlags

	cmd := &cobra.Command{
		Use:   "layout [graph.json]",
		Short: "Compute the layout of an execution graph",
		Long: `Compute the layout of an execution graph.

The graph is read from a graph.json file in the backend's wire format, or
fetched from the backend's /api/graph route when no file is given. The render
model is written as JSON (positions, levels, side lanes), Graphviz DOT with
pinned positions, or SVG.

Use -o - to write to stdout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := ""
			if len(args) == 1 {
				input = args[0]
			}
			return c.runLayout(cmd.Context(), input, f)
		},
	}

	cmd.Flags().StringVar(&f.url, "url", "", "backend URL to fetch the graph from (default: backend_url)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output file (default: <input>.layout.<format>)")
	cmd.Flags().StringVarP(&f.format, "format", "f", formatJSON, "output format: json, dot, svg")
	cmd.Flags().StringVar(&f.strategy, "strategy", "", "layout strategy: auto, heuristic, graphviz")
	cmd.Flags().StringVar(&f.leveling, "leveling", "", "level assignment: longest, shortest")
	registerLayoutCompletions(cmd)

	return cmd
}

// runLayout loads the graph, computes the layout, and writes output.
func (c *CLI) runLayout(ctx context.Context, input string, f layoutFlags) error {
	switch f.format {
	case formatJSON, formatDOT, formatSVG:
	default:
		return errs.New(errs.ErrCodeInvalidFormat, "unknown format %q (want json, dot or svg)", f.format)
	}

	strategy, err := c.newStrategy(ctx, f.strategy, f.leveling)
	if err != nil {
		return err
	}

	spinner := newSpinnerWithContext(ctx, "Loading graph...")
	spinner.Start()

	prog := newProgress(c.Logger)
	g, err := c.loadGraph(ctx, input, f.url)
	if err != nil {
		spinner.StopWithError("Failed to load graph")
		return err
	}
	if n := g.SkippedEdges(); n > 0 {
		printWarning("Skipped %d edges with an unknown source node", n)
	}

	spinner.Update(fmt.Sprintf("Computing %s layout...", strategy.Name()))
	r, err := strategy.Layout(ctx, g)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return errs.Wrap(errs.ErrCodeInternal, err, "compute layout")
	}
	data, err := encodeLayout(ctx, r, f.format)
	spinner.Stop()
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	prog.done("layout computed", "strategy", r.Strategy, "nodes", len(r.Nodes))

	if f.output == "-" {
		_, err := out.Write(data)
		return err
	}

	outputPath := f.output
	if outputPath == "" {
		base := "graph"
		if input != "" {
			base = strings.TrimSuffix(input, filepath.Ext(input))
		}
		outputPath = base + ".layout." + f.format
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Layout complete (%s)", r.Strategy)
	printFile(outputPath)
	printStats(layoutStats{
		Nodes:     len(r.Nodes),
		Edges:     len(r.Edges),
		Detours:   r.Detours(),
		Crossings: r.Crossings,
	})
	if f.format != formatSVG {
		printNewline()
		printNextStep("Render", fmt.Sprintf("%s layout -f svg %s", appName, displayInput(input)))
	}
	return nil
}

// loadGraph reads input, or fetches from the backend when input is empty.
func (c *CLI) loadGraph(ctx context.Context, input, url string) (*graph.Graph, error) {
	if input == "" {
		return c.fetchGraph(ctx, url)
	}
	s, err := graph.ReadFile(input)
	if err != nil {
		return nil, err
	}
	if s.Empty() {
		c.Logger.Warn("graph has no nodes", "file", input)
	}
	return graph.Normalize(s), nil
}

func encodeLayout(ctx context.Context, r *layout.Result, format string) ([]byte, error) {
	switch format {
	case formatDOT:
		return []byte(layout.ToDOT(r, layout.DOTOptions{})), nil
	case formatSVG:
		svg, err := layout.RenderSVG(ctx, layout.ToDOT(r, layout.DOTOptions{}))
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeUnsupported, err, "render svg")
		}
		return svg, nil
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func displayInput(input string) string {
	if input == "" {
		return "--url <backend>"
	}
	return input
}
