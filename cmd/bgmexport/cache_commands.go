package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"bgmexport/internal/cache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the response cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

func openCache(ctx *commandContext, cmd *cobra.Command) (*cache.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := ctx.ensureLogger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return cache.Open(cfg.Paths.CacheDir, logger)
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cached pages and episode lists",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCache(ctx, cmd)
			if err != nil {
				return err
			}
			stats, err := store.Stats()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cache directory: %s\n", store.Dir())
			rows := make([][]string, 0, len(stats)+1)
			var entries, empty int
			var bytes int64
			for _, s := range stats {
				rows = append(rows, []string{s.Kind, strconv.Itoa(s.Entries), strconv.Itoa(s.Empty), humanBytes(s.Bytes)})
				entries += s.Entries
				empty += s.Empty
				bytes += s.Bytes
			}
			rows = append(rows, []string{"total", strconv.Itoa(entries), strconv.Itoa(empty), humanBytes(bytes)})
			fmt.Fprintln(out, renderTable(
				[]string{"Kind", "Entries", "Empty", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached response (forces a full resync)",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCache(ctx, cmd)
			if err != nil {
				return err
			}
			if err := store.Lock(); err != nil {
				if errors.Is(err, cache.ErrLocked) {
					return fmt.Errorf("another bgmexport run is using %s", store.Dir())
				}
				return err
			}
			defer store.Unlock()
			if err := store.Clear(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared cache at %s\n", store.Dir())
			return nil
		},
	}
}
