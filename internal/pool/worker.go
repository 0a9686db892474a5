package pool

import (
	"context"
	"errors"

	"github.com/sourcegraph/conc/panics"

	"pricepool/internal/fetcher"
	"pricepool/internal/task"
)

// worker runs the take/fetch/publish/ack loop. It holds no state across
// iterations besides its id.
type worker struct {
	id   int
	pool *Pool
}

func (w *worker) run(ctx context.Context) {
	p := w.pool
	handled := 0

	for {
		if ctx.Err() != nil {
			p.logger.Debug("worker stopping on cancellation", "worker", w.id, "handled", handled)
			return
		}

		t, ok := p.src.TryTake()
		if !ok {
			p.logger.Debug("worker exiting, source empty", "worker", w.id, "handled", handled)
			return
		}

		// Exactly one outcome and one ack per taken task, whatever the fetch did.
		p.sink.Publish(w.process(ctx, t))
		p.src.Ack()
		handled++
	}
}

func (w *worker) process(ctx context.Context, t task.Task) task.Outcome {
	p := w.pool
	defer p.processed.Add(1)

	fetchCtx, cancel := ctx, context.CancelFunc(func() {})
	if p.cfg.FetchTimeout > 0 {
		fetchCtx, cancel = context.WithTimeout(ctx, p.cfg.FetchTimeout)
	}
	defer cancel()

	var (
		price float64
		err   error
		pc    panics.Catcher
	)
	pc.Try(func() {
		price, err = p.fetcher.Fetch(fetchCtx, t.Exchange, t.Symbol, t.Date)
	})
	if r := pc.Recovered(); r != nil {
		err = fetcher.NewPanicError(r.AsError())
	}

	if err != nil {
		p.failed.Add(1)
		var fe *fetcher.FetchError
		if !errors.As(err, &fe) {
			err = fetcher.Classify(err)
		}
		p.logger.Debug("price fetch failed",
			"worker", w.id,
			"task", t.String(),
			"error", err,
		)
		return task.Failed(t, err)
	}

	return task.Succeeded(t, price)
}
