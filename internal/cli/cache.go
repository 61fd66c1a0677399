package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sentichart/pkg/cache"
	"github.com/matzehuels/sentichart/pkg/config"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the response, layout and chart cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear all cached entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			return clearCache(cmd.Context(), cfg)
		},
	}
}

func clearCache(ctx context.Context, cfg *config.Config) error {
	ch, err := newCache(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer ch.Close()

	switch cc := ch.(type) {
	case *cache.FileCache:
		count, err := cc.Clear()
		if err != nil {
			return err
		}
		printSuccess("Cleared %d cached entries", count)
		printDetail("Directory: %s", cc.Dir())
	case *cache.RedisCache:
		count, err := cc.Clear(ctx)
		if err != nil {
			return err
		}
		printSuccess("Cleared %d cached entries", count)
		printDetail("Redis: %s (prefix %q)", cfg.Cache.RedisAddr, cfg.Cache.Prefix)
	default:
		printInfo("Caching is disabled")
	}
	return nil
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache location",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			switch cfg.Cache.Backend {
			case cache.BackendRedis:
				fmt.Fprintf(out, "redis://%s/%d\n", cfg.Cache.RedisAddr, cfg.Cache.RedisDB)
				return nil
			case cache.BackendNone:
				printInfo("Caching is disabled")
				return nil
			}
			dir := cfg.Cache.Dir
			if dir == "" {
				if dir, err = cacheDir(); err != nil {
					return fmt.Errorf("get cache dir: %w", err)
				}
			}
			fmt.Fprintln(out, dir)
			return nil
		},
	}
}
