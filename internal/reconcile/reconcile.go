// Package reconcile orchestrates a full pass: resolve files concurrently,
// group duplicates, and produce an action plan.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tonearm/internal/config"
	"tonearm/internal/decision"
	"tonearm/internal/grouping"
	"tonearm/internal/logging"
	"tonearm/internal/mediameta"
	"tonearm/internal/resolver"
)

// Failure records a file whose metadata could not be resolved. Failed
// files are excluded from grouping and never block other files.
type Failure struct {
	Path string
	Err  error
}

// Batch is the outcome of one reconcile pass.
type Batch struct {
	ID       string
	Groups   []grouping.Group
	Plan     decision.Plan
	Resolved int
	Failures []Failure
}

// Orchestrator drives the resolve, group, and decide phases.
type Orchestrator struct {
	cfg      *config.Config
	resolver *resolver.Resolver
	logger   *slog.Logger

	// Progress, when set, is called after each file completes.
	Progress func(done, total int)
}

// New builds an orchestrator.
func New(cfg *config.Config, res *resolver.Resolver, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		resolver: res,
		logger:   logging.NewComponentLogger(logger, "reconcile"),
	}
}

type outcome struct {
	path   string
	record mediameta.Record
	err    error
}

// Run resolves every path with a bounded worker pool, waits for all of
// them, then partitions and decides. The plan is deterministic regardless
// of worker completion order. A cancelled context aborts without a plan;
// entries already cached stay cached.
func (o *Orchestrator) Run(ctx context.Context, paths []string, dryRun bool) (*Batch, error) {
	batch := &Batch{ID: uuid.New().String()}
	logger := o.logger.With(logging.String(logging.FieldBatchID, batch.ID))
	logger.Info("starting reconcile pass",
		logging.Int("files", len(paths)),
		logging.Int("workers", o.workers()),
		logging.Bool("dry_run", dryRun))

	results := make(chan outcome, len(paths))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(o.workers())
	for _, path := range paths {
		path := path
		group.Go(func() error {
			record, err := o.resolver.Resolve(groupCtx, path)
			if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
				return err
			}
			select {
			case results <- outcome{path: path, record: record, err: err}:
				return nil
			case <-groupCtx.Done():
				return groupCtx.Err()
			}
		})
	}

	// Single collector; the pool above is the only writer.
	done := make(chan struct{})
	var records []mediameta.Record
	go func() {
		defer close(done)
		collected := 0
		for result := range results {
			collected++
			if result.err != nil {
				batch.Failures = append(batch.Failures, Failure{Path: result.path, Err: result.err})
				logger.Warn("file excluded from grouping",
					logging.String(logging.FieldPath, result.path),
					logging.Error(result.err))
			} else {
				records = append(records, result.record)
			}
			if o.Progress != nil {
				o.Progress(collected, len(paths))
			}
		}
	}()

	waitErr := group.Wait()
	close(results)
	<-done

	if waitErr != nil {
		return nil, waitErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batch.Resolved = len(records)
	batch.Groups = grouping.Partition(records, o.cfg)
	batch.Plan = decision.Decide(batch.Groups, o.cfg, dryRun)

	counts := batch.Plan.Counts()
	logger.Info("reconcile pass complete",
		logging.Int("resolved", batch.Resolved),
		logging.Int("failed", len(batch.Failures)),
		logging.Int("groups", len(batch.Groups)),
		logging.Int("keep", counts[decision.ActionKeep]),
		logging.Int("skip", counts[decision.ActionSkip]),
		logging.Int("remove", counts[decision.ActionRemove]),
		logging.Int("link", counts[decision.ActionLink]))
	return batch, nil
}

func (o *Orchestrator) workers() int {
	if o.cfg.General.Workers > 0 {
		return o.cfg.General.Workers
	}
	return runtime.NumCPU()
}

// Resolver exposes the orchestrator's resolver, used by cache populate.
func (o *Orchestrator) Resolver() *resolver.Resolver {
	return o.resolver
}
