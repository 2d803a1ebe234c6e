package cli

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/siteplan/internal/config"
	"github.com/matzehuels/siteplan/pkg/buildinfo"
	"github.com/matzehuels/siteplan/pkg/cache"
	"github.com/matzehuels/siteplan/pkg/pipeline"
	"github.com/matzehuels/siteplan/pkg/render"
	"github.com/matzehuels/siteplan/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display.
const appName = config.AppName

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// ErrVerificationFailed is returned by "siteplan verify" when a solution
// fails a check. The report itself has already been printed.
var ErrVerificationFailed = errors.New("verification failed")

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Config is loaded before any subcommand runs.
	Config *config.Config

	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Siteplan places health centers fairly",
		Long: `Siteplan assigns communities to a bounded number of health centers under
capacity, workload-balance and distance-balance constraints, and verifies
solution files against their instances.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.Config = cfg
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/siteplan/config.toml)")

	root.AddCommand(c.solveCommand())
	root.AddCommand(c.verifyCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// config returns the loaded configuration, or the defaults when no command
// has loaded one yet.
func (c *CLI) config() *config.Config {
	if c.Config == nil {
		c.Config = config.Default()
	}
	return c.Config
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	ch, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	st, err := c.newStore(ctx)
	if err != nil {
		ch.Close()
		return nil, err
	}
	return pipeline.NewRunner(ch, nil, st, c.Logger), nil
}

// newCache picks Redis when a URL is configured and reachable, then the file
// cache, then no cache at all.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	cfg := c.config().Cache
	if noCache || !cfg.Enabled {
		return cache.NewNullCache(), nil
	}
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err == nil {
			return rc, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.Logger.Warn("redis cache unavailable, falling back to file cache", "error", err)
	}
	if cfg.Dir == "" {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(cfg.Dir)
}

// newStore opens the Mongo run store when configured, otherwise the file
// store. Run history is best effort: a store that cannot be opened is
// replaced by a null store.
func (c *CLI) newStore(ctx context.Context) (store.Store, error) {
	cfg := c.config().Store
	if cfg.MongoURI != "" {
		ms, err := store.NewMongoStore(ctx, cfg.MongoURI, cfg.Database)
		if err == nil {
			return ms, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.Logger.Warn("run store unavailable, history disabled", "error", err)
		return store.NewNullStore(), nil
	}
	fs, err := store.NewFileStore(cfg.Dir)
	if err != nil {
		c.Logger.Warn("run store unavailable, history disabled", "error", err)
		return store.NewNullStore(), nil
	}
	return fs, nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// solveOptions merges the configured defaults with flag overrides.
func (c *CLI) solveOptions(strategy string, workers int, refresh bool) pipeline.Options {
	opts := c.config().PipelineOptions()
	if strategy != "" {
		opts.Strategy = strategy
	}
	if workers > 0 {
		opts.Workers = workers
	}
	opts.Refresh = refresh
	return opts
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{render.FormatSVG}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
