// Package configstore serves externally managed configuration text, such as prompt
// templates, with a short-lived cache in front of the repository.
package configstore

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/logging"
)

const (
	DefaultTTL       = 15 * time.Minute
	DefaultCacheSize = 256
)

type Store struct {
	repo  interfaces.AppConfigRepository
	cache *expirable.LRU[string, string]
}

var _ interfaces.ConfigStore = &Store{}

type options struct {
	ttl  time.Duration
	size int
}

type Option func(*options)

// WithTTL sets how long a value is served from cache
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

func WithCacheSize(size int) Option {
	return func(o *options) {
		o.size = size
	}
}

func New(repo interfaces.AppConfigRepository, opts ...Option) *Store {
	o := options{ttl: DefaultTTL, size: DefaultCacheSize}
	for _, opt := range opts {
		opt(&o)
	}

	return &Store{
		repo:  repo,
		cache: expirable.NewLRU[string, string](o.size, nil, o.ttl),
	}
}

// Get returns the value for key. Missing keys and lookup failures both report false;
// failures are logged. Only hits are cached.
func (s *Store) Get(ctx context.Context, key string) (string, bool) {
	if v, ok := s.cache.Get(key); ok {
		return v, true
	}

	entry, err := s.repo.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, interfaces.ErrNotFound) {
			logging.From(ctx).Error("failed to read config entry",
				slog.String("key", key), slog.Any("error", err))
		}
		return "", false
	}

	s.cache.Add(key, entry.Value)
	return entry.Value, true
}

// GetOrDefault returns the stored value, or fallback when the key is unavailable
func (s *Store) GetOrDefault(ctx context.Context, key, fallback string) string {
	if v, ok := s.Get(ctx, key); ok {
		return v
	}
	return fallback
}

// Set writes the value and drops any cached copy
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.repo.Put(ctx, &model.AppConfigEntry{Key: key, Value: value}); err != nil {
		return goerr.Wrap(err, "failed to write config entry", goerr.V("key", key))
	}
	s.Invalidate(key)
	return nil
}

// Invalidate drops the cached value of key
func (s *Store) Invalidate(key string) {
	s.cache.Remove(key)
}

// Seed writes defaults for keys that are not stored yet and returns the keys it wrote.
// Existing values are left untouched.
func (s *Store) Seed(ctx context.Context, defaults map[string]string) ([]string, error) {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var seeded []string
	for _, key := range keys {
		_, err := s.repo.Get(ctx, key)
		if err == nil {
			continue
		}
		if !errors.Is(err, interfaces.ErrNotFound) {
			return seeded, goerr.Wrap(err, "failed to check config entry", goerr.V("key", key))
		}
		if defaults[key] == "" {
			continue
		}
		if err := s.Set(ctx, key, defaults[key]); err != nil {
			return seeded, err
		}
		seeded = append(seeded, key)
	}
	return seeded, nil
}

// Refresh reloads key from the repository, replacing any cached value
func (s *Store) Refresh(ctx context.Context, key string) (string, bool) {
	s.Invalidate(key)
	return s.Get(ctx, key)
}
