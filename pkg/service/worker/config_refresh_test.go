package worker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/repository/memory"
	"github.com/nutrisha-ai/nutrisha/pkg/service/configstore"
	"github.com/nutrisha-ai/nutrisha/pkg/service/worker"
)

type countingRefresher struct {
	mu     sync.Mutex
	calls  map[string]int
	values map[string]string
}

func (c *countingRefresher) Refresh(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[key]++
	v, ok := c.values[key]
	return v, ok
}

func (c *countingRefresher) count(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[key]
}

func TestConfigRefreshWorker_InitialRefresh(t *testing.T) {
	r := &countingRefresher{
		calls:  map[string]int{},
		values: map[string]string{model.ConfigKeySystemPrompt: "prompt"},
	}
	w := worker.NewConfigRefreshWorker(r, []string{model.ConfigKeySystemPrompt}, time.Hour)

	gt.NoError(t, w.Start(context.Background())).Required()

	deadline := time.Now().Add(2 * time.Second)
	for r.count(model.ConfigKeySystemPrompt) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	w.Stop()

	gt.Number(t, r.count(model.ConfigKeySystemPrompt)).Equal(1)
}

func TestConfigRefreshWorker_PeriodicRefresh(t *testing.T) {
	r := &countingRefresher{calls: map[string]int{}, values: map[string]string{}}
	w := worker.NewConfigRefreshWorker(r, []string{"a"}, 20*time.Millisecond)

	gt.NoError(t, w.Start(context.Background())).Required()

	deadline := time.Now().Add(2 * time.Second)
	for r.count("a") < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	w.Stop()

	gt.Bool(t, r.count("a") >= 3).True()
}

func TestConfigRefreshWorker_StopsOnContextCancel(t *testing.T) {
	r := &countingRefresher{calls: map[string]int{}, values: map[string]string{}}
	w := worker.NewConfigRefreshWorker(r, []string{"a"}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	gt.NoError(t, w.Start(ctx)).Required()
	cancel()

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}

func TestConfigRefreshWorker_PicksUpDirectEdits(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	store := configstore.New(repo.AppConfig())

	gt.NoError(t, store.Set(ctx, model.ConfigKeySystemPrompt, "v1")).Required()
	v, ok := store.Get(ctx, model.ConfigKeySystemPrompt)
	gt.Bool(t, ok).True()
	gt.Value(t, v).Equal("v1")

	// write behind the cache
	gt.NoError(t, repo.AppConfig().Put(ctx, &model.AppConfigEntry{
		Key:   model.ConfigKeySystemPrompt,
		Value: "v2",
	})).Required()
	v, _ = store.Get(ctx, model.ConfigKeySystemPrompt)
	gt.Value(t, v).Equal("v1")

	w := worker.NewConfigRefreshWorker(store, []string{
		model.ConfigKeySystemPrompt,
		model.ConfigKeyResponseJSONStructure,
	}, time.Hour)
	gt.Number(t, w.RefreshOnce(ctx)).Equal(1)

	v, _ = store.Get(ctx, model.ConfigKeySystemPrompt)
	gt.Value(t, v).Equal("v2")
}
