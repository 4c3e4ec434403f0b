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

type deviceTokenRepository struct {
	mu     sync.RWMutex
	tokens map[string]map[string]model.DeviceToken // userID -> token -> entry
}

func newDeviceTokenRepository() *deviceTokenRepository {
	return &deviceTokenRepository{
		tokens: make(map[string]map[string]model.DeviceToken),
	}
}

func (r *deviceTokenRepository) Put(ctx context.Context, token *model.DeviceToken) error {
	if token == nil || token.UserID == "" || token.Token == "" {
		return goerr.New("device token requires user ID and token")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tokens[token.UserID]; !ok {
		r.tokens[token.UserID] = make(map[string]model.DeviceToken)
	}
	stored := *token
	stored.UpdatedAt = model.Timestamp(time.Now())
	r.tokens[token.UserID][token.Token] = stored
	return nil
}

func (r *deviceTokenRepository) ListActive(ctx context.Context, userID string) ([]*model.DeviceToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.DeviceToken, 0)
	for _, t := range r.tokens[userID] {
		if !t.Active {
			continue
		}
		token := t
		result = append(result, &token)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

func (r *deviceTokenRepository) Deactivate(ctx context.Context, userID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[userID][token]
	if !ok {
		return goerr.Wrap(interfaces.ErrNotFound, "device token not found", goerr.V("user_id", userID))
	}
	t.Active = false
	t.UpdatedAt = model.Timestamp(time.Now())
	r.tokens[userID][token] = t
	return nil
}
