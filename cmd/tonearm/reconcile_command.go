package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"tonearm/internal/config"
	"tonearm/internal/decision"
	"tonearm/internal/executor"
	"tonearm/internal/fingerprint"
	"tonearm/internal/metacache"
	"tonearm/internal/probe"
	"tonearm/internal/quality"
	"tonearm/internal/reconcile"
	"tonearm/internal/resolver"
	"tonearm/internal/scanner"
)

func newReconcileCommand(cmdCtx *commandContext) *cobra.Command {
	var (
		dryRun       bool
		destructive  bool
		linkMode     bool
		workers      int
		useFpcalc    bool
		disableCache bool
	)

	cmd := &cobra.Command{
		Use:   "reconcile [directory...]",
		Short: "Find duplicate tracks and keep the best copy",
		Long: "Reconcile scans the given directories, groups files that are the same " +
			"logical track, and decides which copy to keep. Without --destructive or " +
			"--link the run only reports what it would do.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := cmdCtx.ensureLogger()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("workers") {
				if workers < 0 {
					return errors.New("--workers must be >= 0")
				}
				cfg.General.Workers = workers
			}
			cfg.Reconcile.Destructive = cfg.Reconcile.Destructive || destructive
			cfg.Reconcile.LinkMode = cfg.Reconcile.LinkMode || linkMode
			if useFpcalc {
				cfg.Reconcile.Fingerprint = true
			}

			// Mutating runs must be requested explicitly; everything else
			// reports only.
			mutating := cfg.Reconcile.Destructive || cfg.Reconcile.LinkMode
			if dryRun || !mutating {
				dryRun = true
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !dryRun {
				release, err := acquireRunLock(cfg)
				if err != nil {
					return err
				}
				defer release()
			}

			var cache *metacache.Store
			if cfg.General.CacheEnabled && !disableCache {
				cache, err = metacache.Open(cfg.General.CachePath, logger)
				if err != nil {
					return err
				}
				defer cache.Close()
			}

			var fp resolver.Fingerprinter
			if cfg.Reconcile.Fingerprint {
				fp = fingerprint.Fpcalc{Binary: cfg.FpcalcBinary()}
			}
			res := resolver.New(cache, probe.FFprobe{Binary: cfg.FFprobeBinary()}, fp, logger)
			orch := reconcile.New(cfg, res, logger)

			paths, err := scanner.Collect(args)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No audio files found.")
				return nil
			}

			if bar := newProgressBar(len(paths), "Resolving metadata"); bar != nil {
				orch.Progress = func(done, total int) {
					bar.Set(done)
				}
				defer bar.Finish()
			}

			batch, err := orch.Run(ctx, paths, dryRun)
			if err != nil {
				return err
			}

			printPlan(cmd, cfg, batch)

			if !dryRun {
				result := executor.New(cfg, logger).Apply(ctx, batch.Plan)
				fmt.Fprintf(cmd.OutOrStdout(), "\nApplied: %d removed, %d replaced, %d linked, %d converted, %d failed\n",
					result.Removed, result.Replaced, result.Linked, result.Converted, len(result.Failures))
				if len(result.Failures) > 0 {
					return fmt.Errorf("%d plan entries failed", len(result.Failures))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Report actions without touching files (default unless --destructive or --link)")
	cmd.Flags().BoolVar(&destructive, "destructive", false, "Remove lower-quality duplicates")
	cmd.Flags().BoolVar(&linkMode, "link", false, "Replace lower-quality duplicates with links to the best copy")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Resolve worker count (0 = number of CPUs)")
	cmd.Flags().BoolVar(&useFpcalc, "fingerprint", false, "Compute acoustic fingerprints during resolution")
	cmd.Flags().BoolVar(&disableCache, "no-cache", false, "Bypass the metadata cache for this run")
	return cmd
}

// acquireRunLock serializes mutating runs against the same cache.
func acquireRunLock(cfg *config.Config) (func(), error) {
	lockPath := filepath.Join(filepath.Dir(cfg.General.CachePath), "tonearm.lock")
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, errors.New("another tonearm run is already mutating this library")
	}
	return func() { _ = lock.Unlock() }, nil
}

func newProgressBar(total int, description string) *progressbar.ProgressBar {
	if !stdoutIsTerminal() {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionShowCount(),
	)
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func printPlan(cmd *cobra.Command, cfg *config.Config, batch *reconcile.Batch) {
	out := cmd.OutOrStdout()

	counts := batch.Plan.Counts()
	fmt.Fprintf(out, "Batch %s: %d files resolved, %d failed, %d groups\n",
		batch.ID, batch.Resolved, len(batch.Failures), len(batch.Groups))

	for _, failure := range batch.Failures {
		fmt.Fprintf(out, "  unreadable: %s (est. score %.1f): %v\n",
			failure.Path, quality.EstimateFromPath(failure.Path, cfg), failure.Err)
	}

	if stdoutIsTerminal() {
		fmt.Fprintln(out, renderPlanTable(batch.Plan))
	} else {
		for _, entry := range batch.Plan.Entries {
			fmt.Fprintf(out, "%-7s %s  %s\n", entry.Action, entry.Identity.Path, entry.Reason)
		}
	}

	for _, transcode := range batch.Plan.Transcodes {
		fmt.Fprintf(out, "convert %s -> %s (%s)\n",
			transcode.Identity.Path, transcode.TargetFormat, transcode.Reason)
	}

	fmt.Fprintf(out, "Summary: keep %d, skip %d, remove %d, replace %d, link %d, convert %d\n",
		counts[decision.ActionKeep], counts[decision.ActionSkip],
		counts[decision.ActionRemove], counts[decision.ActionReplace],
		counts[decision.ActionLink], len(batch.Plan.Transcodes))
}
