package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
)

type appConfigRepository struct {
	mu      sync.RWMutex
	entries map[string]model.AppConfigEntry
}

func newAppConfigRepository() *appConfigRepository {
	return &appConfigRepository{
		entries: make(map[string]model.AppConfigEntry),
	}
}

func (r *appConfigRepository) Get(ctx context.Context, key string) (*model.AppConfigEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[key]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "config entry not found", goerr.V("key", key))
	}
	return &entry, nil
}

func (r *appConfigRepository) Put(ctx context.Context, entry *model.AppConfigEntry) error {
	if entry == nil || entry.Key == "" {
		return goerr.New("config entry key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *entry
	stored.UpdatedAt = model.Timestamp(time.Now())
	r.entries[entry.Key] = stored
	return nil
}

func (r *appConfigRepository) List(ctx context.Context) ([]*model.AppConfigEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.AppConfigEntry, 0, len(r.entries))
	for _, e := range r.entries {
		entry := e
		result = append(result, &entry)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})
	return result, nil
}

func (r *appConfigRepository) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[key]; !ok {
		return goerr.Wrap(interfaces.ErrNotFound, "config entry not found", goerr.V("key", key))
	}
	delete(r.entries, key)
	return nil
}
