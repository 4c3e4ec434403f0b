package configstore_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/repository/memory"
	"github.com/nutrisha-ai/nutrisha/pkg/service/configstore"
)

// countingRepo counts reads and can be switched to fail
type countingRepo struct {
	interfaces.AppConfigRepository
	gets atomic.Int32
	fail atomic.Bool
}

func (r *countingRepo) Get(ctx context.Context, key string) (*model.AppConfigEntry, error) {
	r.gets.Add(1)
	if r.fail.Load() {
		return nil, errors.New("database unavailable")
	}
	return r.AppConfigRepository.Get(ctx, key)
}

func newRepo() *countingRepo {
	return &countingRepo{AppConfigRepository: memory.New().AppConfig()}
}

func TestStore_GetCachesHits(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()
	gt.NoError(t, repo.Put(ctx, &model.AppConfigEntry{Key: "risha_prompt", Value: "v1"})).Required()

	store := configstore.New(repo)

	v, ok := store.Get(ctx, "risha_prompt")
	gt.Bool(t, ok).True()
	gt.Value(t, v).Equal("v1")

	v, ok = store.Get(ctx, "risha_prompt")
	gt.Bool(t, ok).True()
	gt.Value(t, v).Equal("v1")
	gt.Value(t, repo.gets.Load()).Equal(int32(1))

	// stale cache tolerates a failing repository
	repo.fail.Store(true)
	v, ok = store.Get(ctx, "risha_prompt")
	gt.Bool(t, ok).True()
	gt.Value(t, v).Equal("v1")
}

func TestStore_MissingAndFailingKeys(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()
	store := configstore.New(repo)

	_, ok := store.Get(ctx, "missing")
	gt.Bool(t, ok).False()
	gt.Value(t, store.GetOrDefault(ctx, "missing", "fallback")).Equal("fallback")

	repo.fail.Store(true)
	_, ok = store.Get(ctx, "other")
	gt.Bool(t, ok).False()
}

func TestStore_SetInvalidates(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()
	store := configstore.New(repo)

	gt.NoError(t, store.Set(ctx, "k", "v1")).Required()
	v, _ := store.Get(ctx, "k")
	gt.Value(t, v).Equal("v1")

	gt.NoError(t, store.Set(ctx, "k", "v2")).Required()
	v, _ = store.Get(ctx, "k")
	gt.Value(t, v).Equal("v2")
}

func TestStore_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()
	gt.NoError(t, repo.Put(ctx, &model.AppConfigEntry{Key: "k", Value: "v"})).Required()

	store := configstore.New(repo, configstore.WithTTL(20*time.Millisecond))
	store.Get(ctx, "k")
	time.Sleep(60 * time.Millisecond)
	store.Get(ctx, "k")

	gt.Value(t, repo.gets.Load()).Equal(int32(2))
}

func TestStore_SeedKeepsExistingValues(t *testing.T) {
	ctx := context.Background()
	repo := newRepo()
	gt.NoError(t, repo.Put(ctx, &model.AppConfigEntry{Key: "risha_prompt", Value: "custom"})).Required()

	store := configstore.New(repo)
	seeded, err := store.Seed(ctx, map[string]string{
		"risha_prompt":            "default prompt",
		"response_json_structure": "default json",
		"empty":                   "",
	})
	gt.NoError(t, err).Required()
	gt.Value(t, seeded).Equal([]string{"response_json_structure"})

	v, _ := store.Get(ctx, "risha_prompt")
	gt.Value(t, v).Equal("custom")
	v, _ = store.Get(ctx, "response_json_structure")
	gt.Value(t, v).Equal("default json")
}
