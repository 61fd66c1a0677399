package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sentichart/internal/server"
)

// serveCommand creates the command that runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve layouts, charts and summaries over HTTP",
		Long: `Serve layouts, charts and summaries over HTTP.

Endpoints:
  GET  /healthz
  GET  /api/tickers/{ticker}/layout?start&end&width&height
  GET  /api/tickers/{ticker}/chart.svg?start&end&width&height&style&legend
  GET  /api/tickers/{ticker}/summary?start&end
  GET  /api/tickers/{ticker}/status?start&end
  POST /api/layout  (body: backend response)

The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}

			ctx := cmd.Context()
			runner, err := c.newRunner(ctx, runnerOpts{noCache: noCache})
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Close()

			srv := server.New(runner,
				server.WithLogger(c.Logger),
				server.WithViewport(cfg.Viewport()),
				server.WithStyle(cfg.Chart.Style))

			printInfo("Serving on %s (backend %s)", addr, runner.Client.BaseURL())
			return srv.ListenAndServe(ctx, addr, server.Timeouts{
				Read:  cfg.Server.ReadTimeout.Std(),
				Write: cfg.Server.WriteTimeout.Std(),
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}
