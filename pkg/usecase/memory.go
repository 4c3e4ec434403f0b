package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/types"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/logging"
)

// MemoryUseCase searches and removes the memories kept for a user
type MemoryUseCase struct {
	uc *UseCases
}

// rememberMessage runs extraction, embedding and storage for one message. Every failure
// is logged and ends the pipeline.
func (uc *UseCases) rememberMessage(ctx context.Context, userID string, convID model.ConversationID, content, recentContext string) {
	logger := logging.From(ctx)

	extracted := uc.extractor.Extract(ctx, content, recentContext)
	if !extracted.ShouldSave || strings.TrimSpace(extracted.Summary) == "" {
		logger.Debug("message not worth remembering")
		return
	}

	embedding := uc.embedder.Embed(ctx, extracted.Summary)
	if len(embedding) != model.EmbeddingDimension {
		logger.Warn("skip memory with unexpected embedding dimension",
			slog.Int("dimension", len(embedding)),
			slog.Int("expected", model.EmbeddingDimension))
		return
	}

	record := &model.MemoryRecord{
		ID:             model.NewMemoryID(),
		UserID:         userID,
		ConversationID: convID,
		Summary:        extracted.Summary,
		MessageContent: content,
		Embedding:      embedding,
		Topics:         extracted.Topics,
		Metadata:       extracted.Metadata,
		CreatedAt:      model.Timestamp(uc.now()),
	}
	if !uc.vectorStore.Store(ctx, record) {
		logger.Warn("failed to store memory", slog.String(MemoryIDKey, record.ID.String()))
		return
	}

	logger.Info("memory stored",
		slog.String(MemoryIDKey, record.ID.String()),
		slog.Any("topics", record.Topics))
}

// SearchMemories returns the caller's memories closest to query
func (m *MemoryUseCase) SearchMemories(ctx context.Context, userID, query string, limit int) ([]model.ScoredMemory, error) {
	if m.uc.vectorStore == nil || m.uc.embedder == nil {
		return nil, goerr.Wrap(ErrNotAvailable, "memory search is not configured")
	}
	if strings.TrimSpace(query) == "" {
		return nil, goerr.Wrap(ErrInvalidRequest, "query is required")
	}
	if limit <= 0 {
		limit = DefaultMemorySearchLimit
	}

	vector := m.uc.embedder.Embed(ctx, query)
	if len(vector) != model.EmbeddingDimension {
		logging.From(ctx).Warn("query embedding unavailable", slog.Int("dimension", len(vector)))
		return []model.ScoredMemory{}, nil
	}

	return m.uc.vectorStore.Search(ctx, vector, userID, limit), nil
}

// DeleteMemory removes a single memory. Only staff may delete by ID.
func (m *MemoryUseCase) DeleteMemory(ctx context.Context, role types.Role, id model.MemoryID) error {
	if m.uc.vectorStore == nil {
		return goerr.Wrap(ErrNotAvailable, "memory store is not configured")
	}
	if !m.uc.staffPolicy.IsStaff(role) {
		return goerr.Wrap(ErrForbidden, "only staff may delete memories",
			goerr.V(RoleKey, role),
			goerr.V(MemoryIDKey, id))
	}
	if id == "" {
		return goerr.Wrap(ErrInvalidRequest, "memory ID is required")
	}

	if !m.uc.vectorStore.DeleteOne(ctx, id) {
		return goerr.Wrap(ErrPersistence, "failed to delete memory", goerr.V(MemoryIDKey, id))
	}
	return nil
}

// PurgeUserMemories removes every memory of userID, as done on account deletion
func (m *MemoryUseCase) PurgeUserMemories(ctx context.Context, userID string) error {
	if m.uc.vectorStore == nil {
		return goerr.Wrap(ErrNotAvailable, "memory store is not configured")
	}
	if userID == "" {
		return goerr.Wrap(ErrInvalidRequest, "user ID is required")
	}

	if !m.uc.vectorStore.DeleteAllForUser(ctx, userID) {
		return goerr.Wrap(ErrPersistence, "failed to purge memories", goerr.V(UserIDKey, userID))
	}
	logging.From(ctx).Info("memories purged", slog.String(UserIDKey, userID))
	return nil
}
