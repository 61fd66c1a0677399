package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sentichart/pkg/pipeline"
)

// fetchCommand creates the fetch command that runs a backend simulation.
func (c *CLI) fetchCommand() *cobra.Command {
	var (
		start, end string
		output     string
		refresh    bool
		noCache    bool
		render     bool
		view       viewFlags
	)

	cmd := &cobra.Command{
		Use:   "fetch TICKER",
		Short: "Run a strategy simulation on the backend and store the result",
		Long: `Run a strategy simulation on the backend and store the result.

The response is saved to the store (MongoDB or the local store directory)
and to the cache, so later runs for the same ticker and range are served
locally. Use --refresh to force a new simulation.

With --render the chart is rendered as well.`,
		Example: `  sentichart fetch AAPL --start 2025-10-01 --end 2025-11-12
  sentichart fetch TSLA --render -f svg,png -o tsla`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeStoredTickers,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			opts := pipeline.Options{
				Ticker:  args[0],
				Start:   start,
				End:     end,
				Refresh: refresh,
				Logger:  c.Logger,
			}
			if err := view.apply(&opts, cfg); err != nil {
				return err
			}
			if err := opts.ValidateForFetch(); err != nil {
				return err
			}

			if render {
				if err := opts.ValidateAndSetDefaults(); err != nil {
					return err
				}
				input := output
				if input == "" {
					input = defaultName(opts)
				}
				return c.runRender(cmd.Context(), input, output, opts, runnerOpts{noCache: noCache})
			}
			return c.runFetch(cmd.Context(), opts, output, noCache)
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "first day of the simulation (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "last day of the simulation (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "also write the raw response (or, with --render, the chart) here")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore cached and stored results")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&render, "render", false, "render the chart after fetching")
	view.register(cmd, true)

	return cmd
}

// runFetch fetches, stores and summarises a simulation.
func (c *CLI) runFetch(ctx context.Context, opts pipeline.Options, output string, noCache bool) error {
	runner, err := c.newRunner(ctx, runnerOpts{noCache: noCache})
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	spinner := newSpinner(ctx, fmt.Sprintf("Simulating %s...", opts.Ticker))
	spinner.Start()
	res, raw, cached, err := runner.FetchWithCacheInfo(ctx, opts)
	if err != nil {
		spinner.StopWithError(fmt.Sprintf("Simulation for %s failed", opts.Ticker))
		return err
	}
	spinner.Stop()
	prog.done("fetched simulation", "ticker", res.Ticker, "cached", cached)

	if output != "" {
		if err := writeFile(output, raw); err != nil {
			return err
		}
	}

	printSuccess("Simulated %s", res.Ticker)
	if output != "" {
		printFile(output)
	}
	printSummary(res.Summary())
	printNewline()
	printNextStep("Render", fmt.Sprintf("%s fetch %s %s--render", appName, res.Ticker, rangeFlags(opts)))
	return nil
}

// defaultName is the output base for charts of fetched tickers.
func defaultName(opts pipeline.Options) string {
	parts := []string{strings.ToLower(opts.Ticker)}
	if opts.Start != "" {
		parts = append(parts, opts.Start)
	}
	if opts.End != "" {
		parts = append(parts, opts.End)
	}
	return strings.Join(parts, "_")
}

func rangeFlags(opts pipeline.Options) string {
	var b strings.Builder
	if opts.Start != "" {
		b.WriteString("--start " + opts.Start + " ")
	}
	if opts.End != "" {
		b.WriteString("--end " + opts.End + " ")
	}
	return b.String()
}
