package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sentichart/pkg/pipeline"
)

// renderCommand creates the render command (result → chart files in one step).
func (c *CLI) renderCommand() *cobra.Command {
	var (
		output  string
		noCache bool
		view    viewFlags
	)

	cmd := &cobra.Command{
		Use:   "render [result.json]",
		Short: "Render a simulation result to SVG, PNG, PDF or JSON",
		Long: `Render a simulation result to SVG, PNG, PDF or JSON.

The input is a backend response as saved by 'fetch' ("-" reads stdin).
PNG and PDF output require rsvg-convert on the PATH.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			data, err := readInput(args[0])
			if err != nil {
				return err
			}
			opts := pipeline.Options{Input: data, Logger: c.Logger}
			if err := view.apply(&opts, cfg); err != nil {
				return err
			}
			if err := opts.ValidateAndSetDefaults(); err != nil {
				return err
			}
			input := args[0]
			if input == "-" && output == "" {
				input = "chart"
			}
			return c.runRender(cmd.Context(), input, output, opts, runnerOpts{noCache: noCache, offline: true})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	view.register(cmd, true)

	return cmd
}

// runRender executes the full pipeline and writes the artifacts next to input.
func (c *CLI) runRender(ctx context.Context, input, output string, opts pipeline.Options, ro runnerOpts) error {
	runner, err := c.newRunner(ctx, ro)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinner(ctx, "Rendering chart...")
	spinner.Start()
	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	paths, err := writeArtifacts(artifactWriteParams{
		artifacts: result.Artifacts,
		formats:   opts.Formats,
		input:     input,
		output:    output,
	})
	if err != nil {
		return err
	}
	if output == "-" {
		return nil
	}

	printSuccess("Rendered %s", result.Source.Ticker)
	for _, p := range paths {
		printFile(p)
	}
	printStats(result.Stats.Points, result.Stats.Markers, result.CacheInfo.LayoutHit && result.CacheInfo.RenderHit)
	if dropped := result.Stats.Events - result.Stats.Markers; dropped > 0 {
		printDetail("%d trade(s) outside the price series were skipped", dropped)
	}
	return nil
}
