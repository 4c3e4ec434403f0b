package async

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/errutil"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/logging"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrency is the default number of detached jobs allowed to run at once
const DefaultMaxConcurrency = 64

// Dispatcher runs detached jobs on a bounded set of goroutines. Jobs never inherit the
// caller's cancellation, only its logger.
type Dispatcher struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// New creates a Dispatcher that runs at most maxConcurrency jobs at the same time.
func New(maxConcurrency int64) *Dispatcher {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &Dispatcher{
		sem: semaphore.NewWeighted(maxConcurrency),
	}
}

// Go submits a named job. The call returns immediately; the job waits for a free slot
// in its own goroutine.
func (d *Dispatcher) Go(ctx context.Context, name string, handler func(ctx context.Context) error) {
	bgCtx := detach(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		if err := d.sem.Acquire(bgCtx, 1); err != nil {
			logging.From(bgCtx).Error("failed to acquire dispatcher slot", "job", name, "error", err)
			return
		}
		defer d.sem.Release(1)

		run(bgCtx, name, handler)
	}()
}

// Wait blocks until every submitted job has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func detach(ctx context.Context) context.Context {
	bgCtx := context.Background()
	if logger := logging.From(ctx); logger != nil {
		bgCtx = logging.With(bgCtx, logger)
	}
	return bgCtx
}

func run(ctx context.Context, name string, handler func(ctx context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			logging.From(ctx).Error("panic in async handler", "job", name, "panic", r)
		}
	}()

	if err := handler(ctx); err != nil {
		errutil.Handle(ctx, goerr.Wrap(err, "async handler failed", goerr.V("job", name)), "async handler failed")
	}
}
