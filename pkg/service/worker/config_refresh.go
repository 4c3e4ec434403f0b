package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/nutrisha-ai/nutrisha/pkg/utils/logging"
)

const DefaultConfigRefreshInterval = 5 * time.Minute

// Refresher reloads one configuration key past its cache
type Refresher interface {
	Refresh(ctx context.Context, key string) (string, bool)
}

// ConfigRefreshWorker keeps prompt templates warm so edits made directly in the
// database reach the reply generator without waiting for the cache TTL.
//
// Single server instance is assumed; every instance runs its own loop.
type ConfigRefreshWorker struct {
	store    Refresher
	keys     []string
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewConfigRefreshWorker(store Refresher, keys []string, interval time.Duration) *ConfigRefreshWorker {
	if interval <= 0 {
		interval = DefaultConfigRefreshInterval
	}
	return &ConfigRefreshWorker{
		store:    store,
		keys:     keys,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the initial refresh and the periodic loop in a background goroutine
func (w *ConfigRefreshWorker) Start(ctx context.Context) error {
	logging.Default().Info("config refresh worker starting",
		slog.String("interval", w.interval.String()),
		slog.Int("keys", len(w.keys)))

	go w.run(ctx)
	return nil
}

// Stop signals the worker to stop and waits for completion
func (w *ConfigRefreshWorker) Stop() {
	close(w.stopCh)
	<-w.doneCh
	logging.Default().Info("config refresh worker stopped")
}

func (w *ConfigRefreshWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	w.refresh(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.refresh(ctx)

		case <-w.stopCh:
			return

		case <-ctx.Done():
			logging.Default().Info("config refresh worker context cancelled")
			return
		}
	}
}

// refresh reloads every key and returns how many were found
func (w *ConfigRefreshWorker) refresh(ctx context.Context) int {
	found := 0
	var missing []string
	for _, key := range w.keys {
		if _, ok := w.store.Refresh(ctx, key); ok {
			found++
		} else {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		logging.Default().Warn("config keys are not available",
			slog.Any("keys", missing))
	}
	logging.Default().Debug("config refresh completed",
		slog.Int("found", found),
		slog.Int("total", len(w.keys)))
	return found
}
