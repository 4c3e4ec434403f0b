package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/types"
)

const defaultConversationTitle = "New Conversation"

type ConversationUseCase struct {
	uc *UseCases
}

// CreateConversation opens a conversation owned by userID. An empty mode means ai.
func (c *ConversationUseCase) CreateConversation(ctx context.Context, userID, title string, mode types.ConversationMode) (*model.Conversation, error) {
	if userID == "" {
		return nil, goerr.Wrap(ErrInvalidRequest, "user ID is required")
	}
	mode = mode.Normalize()
	if !mode.IsValid() {
		return nil, goerr.Wrap(ErrInvalidRequest, "invalid conversation mode", goerr.V("mode", mode))
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultConversationTitle
	}

	now := model.Timestamp(c.uc.now())
	conv := &model.Conversation{
		ID:        model.NewConversationID(),
		UserID:    userID,
		Title:     title,
		Mode:      mode,
		Status:    types.ConversationStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := c.uc.repo.Conversation().Create(ctx, conv)
	if err != nil {
		return nil, goerr.Wrap(errors.Join(ErrPersistence, err), "failed to create conversation",
			goerr.V(UserIDKey, userID))
	}
	return created, nil
}

// ListConversations returns the caller's conversations, most recently active first
func (c *ConversationUseCase) ListConversations(ctx context.Context, userID string) ([]*model.Conversation, error) {
	convs, err := c.uc.repo.Conversation().ListByUser(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list conversations", goerr.V(UserIDKey, userID))
	}
	return convs, nil
}

// GetMessages returns a page of messages in chronological order
func (c *ConversationUseCase) GetMessages(ctx context.Context, userID string, role types.Role, convID model.ConversationID, limit, offset int) ([]*model.MessageResponse, error) {
	if _, err := c.uc.accessibleConversation(ctx, convID, userID, role); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultMessagePageSize
	}
	limit = min(limit, MaxMessagePageSize)
	offset = max(offset, 0)

	messages, err := c.uc.repo.Message().List(ctx, convID, limit, offset)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list messages", goerr.V(ConversationIDKey, convID))
	}

	resp := make([]*model.MessageResponse, 0, len(messages))
	for _, m := range messages {
		resp = append(resp, m.ToResponse())
	}
	return resp, nil
}

// UpdateMode switches a conversation between AI and human replies
func (c *ConversationUseCase) UpdateMode(ctx context.Context, userID string, role types.Role, convID model.ConversationID, mode types.ConversationMode) (*model.Conversation, error) {
	if !mode.IsValid() {
		return nil, goerr.Wrap(ErrInvalidRequest, "invalid conversation mode", goerr.V("mode", mode))
	}
	if _, err := c.uc.accessibleConversation(ctx, convID, userID, role); err != nil {
		return nil, err
	}

	updated, err := c.uc.repo.Conversation().UpdateMode(ctx, convID, mode)
	if err != nil {
		return nil, goerr.Wrap(errors.Join(ErrPersistence, err), "failed to update conversation mode",
			goerr.V(ConversationIDKey, convID),
			goerr.V("mode", mode))
	}
	return updated, nil
}

// accessibleConversation loads the conversation and checks that the caller may use it
func (uc *UseCases) accessibleConversation(ctx context.Context, convID model.ConversationID, userID string, role types.Role) (*model.Conversation, error) {
	conv, err := uc.repo.Conversation().Get(ctx, convID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrConversationNotFound, "conversation not found",
				goerr.V(ConversationIDKey, convID))
		}
		return nil, goerr.Wrap(errors.Join(ErrPersistence, err), "failed to get conversation",
			goerr.V(ConversationIDKey, convID))
	}

	if !conv.CanAccess(userID, role, uc.staffPolicy) {
		return nil, goerr.Wrap(ErrAccessDenied, "caller may not access conversation",
			goerr.V(ConversationIDKey, convID),
			goerr.V(UserIDKey, userID),
			goerr.V(RoleKey, role))
	}
	return conv, nil
}
