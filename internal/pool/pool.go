package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"

	"pricepool/internal/fetcher"
	"pricepool/internal/task"
)

var (
	// ErrInvalidWorkerCount is returned by New when Config.Workers <= 0.
	ErrInvalidWorkerCount = errors.New("worker count must be positive")
	// ErrMissingDependency is returned by New when the source, sink or fetcher is nil.
	ErrMissingDependency = errors.New("pool requires a source, a sink and a fetcher")
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("pool already started")
)

// Config holds pool configuration.
type Config struct {
	Workers      int           // Number of concurrent workers (default: 4)
	FetchTimeout time.Duration // Per-fetch timeout, 0 disables it (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:      4,
		FetchTimeout: 10 * time.Second,
	}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidWorkerCount, c.Workers)
	}
	if c.FetchTimeout < 0 {
		return fmt.Errorf("fetch timeout must not be negative: got %s", c.FetchTimeout)
	}
	return nil
}

// Stats is a snapshot of pool counters.
type Stats struct {
	Processed int64 // Tasks taken, fetched, published and acknowledged
	Failed    int64 // Subset of Processed whose fetch failed
	Abandoned int64 // Tasks never taken: cancelled, or put after the workers exited
}

// Pool runs a fixed number of workers against one Source/Sink pair.
type Pool struct {
	cfg     Config
	src     *task.Source
	sink    *task.Sink
	fetcher fetcher.PriceFetcher
	logger  *slog.Logger

	started atomic.Bool
	wg      conc.WaitGroup
	exited  chan struct{}

	processed atomic.Int64
	failed    atomic.Int64
}

// New creates a Pool. Configuration errors are reported here, before any
// worker exists and without touching the source.
func New(cfg Config, src *task.Source, sink *task.Sink, f fetcher.PriceFetcher, logger *slog.Logger) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil || sink == nil || f == nil {
		return nil, ErrMissingDependency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		cfg:     cfg,
		src:     src,
		sink:    sink,
		fetcher: f,
		logger:  logger,
		exited:  make(chan struct{}),
	}, nil
}

// Start launches the workers. Cancelling ctx makes every worker stop at the
// top of its loop; tasks that were never taken are then abandoned so Join
// still returns.
func (p *Pool) Start(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	for i := 0; i < p.cfg.Workers; i++ {
		w := &worker{id: i, pool: p}
		p.wg.Go(func() {
			w.run(ctx)
		})
	}
	go p.reap(ctx)

	p.logger.Info("price pool started",
		"workers", p.cfg.Workers,
		"queued", p.src.Len(),
		"fetch_timeout", p.cfg.FetchTimeout,
	)

	return nil
}

// reap waits for every worker to exit, then closes the source. Leftovers
// only exist after cancellation or a Put that raced with the last worker
// leaving; Puts after this point are abandoned by the source itself.
func (p *Pool) reap(ctx context.Context) {
	defer close(p.exited)

	// Worker panics are invariant violations; conc re-raises them here.
	p.wg.Wait()

	n := len(p.src.Close())
	if n == 0 {
		return
	}
	if ctx.Err() != nil {
		p.logger.Warn("price pool cancelled, tasks abandoned",
			"abandoned", n,
			"error", ctx.Err(),
		)
		return
	}
	p.logger.Warn("tasks put after every worker exited were abandoned", "abandoned", n)
}

// Join blocks until every task has been acknowledged (or abandoned) and
// every worker has exited. After Join returns no worker can publish, so the
// sink can be drained safely. Join panics if Start was never called.
func (p *Pool) Join() {
	if !p.started.Load() {
		panic("pool: Join called before Start")
	}
	<-p.exited
	p.src.WaitDrained()

	stats := p.Stats()
	p.logger.Info("price pool joined",
		"processed", stats.Processed,
		"failed", stats.Failed,
		"abandoned", stats.Abandoned,
	)
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Processed: p.processed.Load(),
		Failed:    p.failed.Load(),
		Abandoned: int64(p.src.Stats().Abandoned),
	}
}

// Workers returns the configured number of workers.
func (p *Pool) Workers() int {
	return p.cfg.Workers
}
