package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"tonearm/internal/metacache"
	"tonearm/internal/probe"
	"tonearm/internal/reconcile"
	"tonearm/internal/resolver"
	"tonearm/internal/scanner"
)

func newCacheCommand(cmdCtx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Metadata cache utilities",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(cmdCtx))
	cacheCmd.AddCommand(newCacheCleanCommand(cmdCtx))
	cacheCmd.AddCommand(newCacheClearCommand(cmdCtx))
	cacheCmd.AddCommand(newCachePopulateCommand(cmdCtx))

	return cacheCmd
}

func (c *commandContext) withCache(fn func(*metacache.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	store, err := metacache.Open(cfg.General.CachePath, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newCacheStatsCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache size and entry counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withCache(func(store *metacache.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Cache database: %s\n", store.Path())
				fmt.Fprintf(out, "Entries:        %d\n", stats.Entries)
				fmt.Fprintf(out, "Database size:  %s\n", humanize.Bytes(uint64(stats.DatabaseSize)))
				if !stats.OldestEntry.IsZero() {
					fmt.Fprintf(out, "Oldest entry:   %s (%s)\n",
						stats.OldestEntry.Format(time.RFC3339), humanize.Time(stats.OldestEntry))
					fmt.Fprintf(out, "Newest entry:   %s (%s)\n",
						stats.NewestEntry.Format(time.RFC3339), humanize.Time(stats.NewestEntry))
				}
				return nil
			})
		},
	}
}

func newCacheCleanCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clean [directory...]",
		Short: "Drop entries for files that moved or changed",
		Long: "Clean drops cache entries whose files are gone or whose size or mtime " +
			"drifted. With directory arguments it also drops entries for files that " +
			"are no longer part of those library roots, even when the files still exist.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withCache(func(store *metacache.Store) error {
				removed, err := store.Clean(cmd.Context())
				if err != nil {
					return err
				}

				if len(args) > 0 {
					known, err := scanner.Collect(args)
					if err != nil {
						return err
					}
					invalidated, err := store.InvalidateMissing(cmd.Context(), known)
					if err != nil {
						return err
					}
					removed += invalidated
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d stale entries\n", removed)
				return nil
			})
		},
	}
}

func newCacheClearCommand(cmdCtx *commandContext) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cache entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return fmt.Errorf("refusing to clear the cache without --yes")
			}
			return cmdCtx.withCache(func(store *metacache.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&confirmed, "yes", "y", false, "Confirm clearing the cache")
	return cmd
}

func newCachePopulateCommand(cmdCtx *commandContext) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "populate [directory...]",
		Short: "Warm the cache by resolving every file under the given directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := cmdCtx.ensureLogger()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") && workers >= 0 {
				cfg.General.Workers = workers
			}

			store, err := metacache.Open(cfg.General.CachePath, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			paths, err := scanner.Collect(args)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No audio files found.")
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res := resolver.New(store, probe.FFprobe{Binary: cfg.FFprobeBinary()}, nil, logger)
			orch := reconcile.New(cfg, res, logger)
			if bar := newProgressBar(len(paths), "Populating cache"); bar != nil {
				orch.Progress = func(done, total int) {
					bar.Set(done)
				}
				defer bar.Finish()
			}

			// Dry run: populate only resolves and caches, never plans mutations.
			batch, err := orch.Run(ctx, paths, true)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cached %d files, %d unreadable\n",
				batch.Resolved, len(batch.Failures))
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Resolve worker count (0 = number of CPUs)")
	return cmd
}
