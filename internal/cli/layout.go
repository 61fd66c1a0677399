package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sentichart/pkg/chart/sink"
	"github.com/matzehuels/sentichart/pkg/pipeline"
)

// layoutCommand creates the layout command for computing chart geometry.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output  string
		noCache bool
		view    viewFlags
	)

	cmd := &cobra.Command{
		Use:   "layout [result.json]",
		Short: "Compute chart geometry from a simulation result",
		Long: `Compute chart geometry from a simulation result.

The layout command takes a backend response (as saved by 'fetch', or "-" for
stdin) and computes the price path, sentiment bars, axis ticks and trade
markers. The output is a layout.json file (same format as 'render -f json').

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args[0], output, noCache, &view)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.layout.json)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	view.register(cmd, false)

	return cmd
}

// runLayout loads the result, computes the layout, and writes output.
func (c *CLI) runLayout(ctx context.Context, input, output string, noCache bool, view *viewFlags) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	data, err := readInput(input)
	if err != nil {
		return err
	}

	opts := pipeline.Options{Input: data, Logger: c.Logger}
	if err := view.apply(&opts, cfg); err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, runnerOpts{noCache: noCache, offline: true})
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	res, err := runner.Fetch(ctx, opts)
	if err != nil {
		return fmt.Errorf("load %s: %w", input, err)
	}

	spinner := newSpinner(ctx, "Computing layout...")
	spinner.Start()
	model, cacheHit, err := runner.LayoutWithCacheInfo(ctx, res, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("compute layout: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	doc, err := sink.RenderJSON(model,
		sink.WithJSONTicker(res.Ticker),
		sink.WithJSONStyle(opts.Style),
		sink.WithJSONSummary(res.Summary()))
	if err != nil {
		return err
	}

	outputPath := output
	if outputPath == "" {
		outputPath = basePath("", input) + ".layout.json"
		if input == "-" {
			outputPath = "-"
		}
	}
	if err := writeFile(outputPath, doc); err != nil {
		return err
	}
	if outputPath == "-" {
		return nil
	}

	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(len(res.Series), len(model.Markers), cacheHit)
	if model.Empty() {
		printInfo("No price data in %s", input)
	}
	printNewline()
	printNextStep("Render", appName+" render "+input)

	return nil
}
