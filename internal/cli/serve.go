package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/siteplan/internal/metrics"
	"github.com/matzehuels/siteplan/internal/server"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		noMetrics bool
		noCache   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the solve and verify API over HTTP",
		Long: `Serve the solve, verify and render pipeline over HTTP.

The server shares the configured cache and run store with the command line,
and exposes Prometheus metrics at /metrics.

Examples:
  siteplan serve
  siteplan serve --addr 127.0.0.1:9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := c.config()
			if addr == "" {
				addr = cfg.Server.Addr
			}

			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Close()

			opts := []server.Option{server.WithDefaults(cfg.PipelineOptions())}
			if !noMetrics {
				m := metrics.New()
				m.Install()
				opts = append(opts, server.WithMetrics(m.Handler()))
			}

			printInfo("Listening on %s", StyleValue.Render(addr))
			printKeyValue("strategy", cfg.Strategy)
			printKeyValue("metrics", metricsLabel(!noMetrics))
			return server.New(runner, c.Logger, opts...).Run(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "do not serve /metrics")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func metricsLabel(on bool) string {
	if on {
		return "/metrics"
	}
	return "off"
}
