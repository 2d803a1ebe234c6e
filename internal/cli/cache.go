package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/siteplan/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the assignment cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached assignments and reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ch, err := c.newCache(ctx, false)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			defer ch.Close()

			clr, ok := ch.(cache.Clearer)
			if !ok {
				printInfo("Cache is disabled")
				return nil
			}
			if err := clr.Clear(ctx); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}

			printSuccess("Cleared cached entries")
			if fc, ok := ch.(*cache.FileCache); ok {
				printDetail("Directory: %s", fc.Dir())
			}
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.config().Cache
			if cfg.RedisURL != "" {
				fmt.Fprintln(cmd.OutOrStdout(), cfg.RedisURL)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.Dir)
			return nil
		},
	}
}
