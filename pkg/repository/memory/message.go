package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
)

type messageRepository struct {
	mu       sync.RWMutex
	messages map[model.ConversationID][]*model.Message
}

func newMessageRepository() *messageRepository {
	return &messageRepository{
		messages: make(map[model.ConversationID][]*model.Message),
	}
}

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	if msg == nil {
		return goerr.New("message is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	bucket := r.messages[msg.ConversationID]
	for _, m := range bucket {
		if m.ID == msg.ID {
			return goerr.New("message already exists", goerr.V("message_id", msg.ID))
		}
	}

	bucket = append(bucket, msg.Copy())
	sort.SliceStable(bucket, func(i, j int) bool {
		return bucket[i].CreatedAt.Before(bucket[j].CreatedAt)
	})
	r.messages[msg.ConversationID] = bucket
	return nil
}

func (r *messageRepository) ListRecent(ctx context.Context, convID model.ConversationID, limit int) ([]*model.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket := r.messages[convID]
	start := 0
	if limit > 0 && len(bucket) > limit {
		start = len(bucket) - limit
	}
	return copyMessages(bucket[start:]), nil
}

func (r *messageRepository) List(ctx context.Context, convID model.ConversationID, limit, offset int) ([]*model.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket := r.messages[convID]
	if offset < 0 {
		offset = 0
	}
	if offset >= len(bucket) {
		return []*model.Message{}, nil
	}
	end := len(bucket)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return copyMessages(bucket[offset:end]), nil
}

func copyMessages(in []*model.Message) []*model.Message {
	out := make([]*model.Message, len(in))
	for i, m := range in {
		out[i] = m.Copy()
	}
	return out
}
