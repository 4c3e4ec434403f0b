package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/types"
)

type conversationRepository struct {
	mu            sync.RWMutex
	conversations map[model.ConversationID]*model.Conversation
}

func newConversationRepository() *conversationRepository {
	return &conversationRepository{
		conversations: make(map[model.ConversationID]*model.Conversation),
	}
}

func (r *conversationRepository) Create(ctx context.Context, conv *model.Conversation) (*model.Conversation, error) {
	if conv == nil {
		return nil, goerr.New("conversation is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	created := conv.Copy()
	if created.ID == "" {
		created.ID = model.NewConversationID()
	}
	if _, exists := r.conversations[created.ID]; exists {
		return nil, goerr.New("conversation already exists", goerr.V("conversation_id", created.ID))
	}
	now := model.Timestamp(time.Now())
	created.Mode = created.Mode.Normalize()
	created.Status = created.Status.Normalize()
	created.CreatedAt = now
	created.UpdatedAt = now

	r.conversations[created.ID] = created
	return created.Copy(), nil
}

func (r *conversationRepository) Get(ctx context.Context, id model.ConversationID) (*model.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conv, ok := r.conversations[id]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "conversation not found", goerr.V("conversation_id", id))
	}
	return conv.Copy(), nil
}

func (r *conversationRepository) ListByUser(ctx context.Context, userID string) ([]*model.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Conversation, 0)
	for _, conv := range r.conversations {
		if conv.UserID == userID {
			result = append(result, conv.Copy())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

func (r *conversationRepository) UpdateMode(ctx context.Context, id model.ConversationID, mode types.ConversationMode) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[id]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "conversation not found", goerr.V("conversation_id", id))
	}
	conv.Mode = mode
	conv.UpdatedAt = model.Timestamp(time.Now())
	return conv.Copy(), nil
}

func (r *conversationRepository) Touch(ctx context.Context, id model.ConversationID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[id]
	if !ok {
		return goerr.Wrap(interfaces.ErrNotFound, "conversation not found", goerr.V("conversation_id", id))
	}
	conv.UpdatedAt = model.Timestamp(at)
	return nil
}
