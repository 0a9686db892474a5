package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"pricepool/internal/aggregate"
	"pricepool/internal/fetcher"
	"pricepool/internal/pool"
	"pricepool/internal/task"
)

// Report summarises one run
type Report struct {
	RunID     string
	Tasks     int
	Workers   int
	Failed    int
	Abandoned int
	Duration  time.Duration
}

// Complete reports whether every task was attempted
func (r Report) Complete() bool {
	return r.Abandoned == 0
}

// Coordinator runs a set of price lookups through a worker pool and folds
// the outcomes into an aggregate result
type Coordinator struct {
	fetcher fetcher.PriceFetcher
	cfg     pool.Config
	logger  *slog.Logger
}

// New creates a new Coordinator with the given fetcher and pool configuration
func New(f fetcher.PriceFetcher, cfg pool.Config, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		fetcher: f,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run validates tasks, loads them into a source, runs the pool until every
// task is processed, then drains and aggregates the outcomes.
// Configuration problems are returned before any worker starts. Fetch
// failures are not errors: they show up as absent prices in the result.
// Cancelling ctx stops the workers early; tasks that were never attempted
// still appear in the result as absent prices and the report counts them
// as abandoned.
func (c *Coordinator) Run(ctx context.Context, tasks []task.Task) (aggregate.Result, Report, error) {
	if err := c.cfg.Validate(); err != nil {
		return nil, Report{}, err
	}
	if err := task.ValidateAll(tasks); err != nil {
		return nil, Report{}, err
	}

	report := Report{
		RunID:   uuid.NewString(),
		Tasks:   len(tasks),
		Workers: c.cfg.Workers,
	}
	logger := c.logger.With("run_id", report.RunID)

	src := task.NewSource(tasks...)
	sink := task.NewSink()

	p, err := pool.New(c.cfg, src, sink, c.fetcher, logger)
	if err != nil {
		return nil, report, fmt.Errorf("failed to create pool: %w", err)
	}

	start := time.Now()
	if err := p.Start(ctx); err != nil {
		return nil, report, fmt.Errorf("failed to start pool: %w", err)
	}
	p.Join()

	outcomes := sink.DrainAll()
	for _, t := range src.Dropped() {
		outcomes = append(outcomes, task.Failed(t, fetcher.NewCanceledError(ctx.Err())))
	}
	result := aggregate.Aggregate(outcomes)

	stats := p.Stats()
	report.Failed = int(stats.Failed)
	report.Abandoned = int(stats.Abandoned)
	report.Duration = time.Since(start)

	logger.Info("price run finished",
		"tasks", report.Tasks,
		"failed", report.Failed,
		"abandoned", report.Abandoned,
		"leaves", result.Leaves(),
		"duration", report.Duration,
	)

	return result, report, nil
}
