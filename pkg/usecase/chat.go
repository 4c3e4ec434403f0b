package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/types"
	"github.com/nutrisha-ai/nutrisha/pkg/service/generator"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/logging"
)

// Push notification texts sent when staff write to a patient
const (
	PushTitleStaffMessage = "Message from your Nutritionist"
	PushBodyEmpty         = "You received a new message"
	pushBodyMaxLength     = 100
)

// SendMessageRequest is a message posted by an authenticated caller
type SendMessageRequest struct {
	ConversationID model.ConversationID
	Content        string
	MessageType    types.MessageType
	Attachments    []model.AttachmentRef
}

// ChatUseCase sends messages and runs the enrichment that follows them
type ChatUseCase struct {
	uc *UseCases
}

// SendUserMessage persists a message and returns it. Realtime delivery, push
// notifications, memory extraction and the AI reply run detached afterwards and never
// affect the result. Only access and persistence failures are returned.
func (c *ChatUseCase) SendUserMessage(ctx context.Context, userID string, role types.Role, req SendMessageRequest) (*model.MessageResponse, error) {
	msgType := req.MessageType.Normalize()
	if req.ConversationID == "" {
		return nil, goerr.Wrap(ErrInvalidRequest, "conversation ID is required")
	}
	if !msgType.IsValid() {
		return nil, goerr.Wrap(ErrInvalidRequest, "invalid message type", goerr.V("message_type", req.MessageType))
	}
	for _, a := range req.Attachments {
		if !a.Type.IsValid() || a.Locator == "" {
			return nil, goerr.Wrap(ErrInvalidRequest, "invalid attachment",
				goerr.V("type", a.Type),
				goerr.V("name", a.Name))
		}
	}

	conv, err := c.uc.accessibleConversation(ctx, req.ConversationID, userID, role)
	if err != nil {
		return nil, err
	}

	logger := logging.From(ctx).With(
		slog.String(ConversationIDKey, conv.ID.String()),
		slog.String(UserIDKey, userID),
	)
	ctx = logging.With(ctx, logger)

	// Context for the memory extractor is what came before this message
	recent, err := c.uc.repo.Message().ListRecent(ctx, conv.ID, c.uc.memoryHistoryLimit)
	if err != nil {
		logger.Warn("failed to load recent messages for memory context", "error", err)
		recent = nil
	}
	memoryContext := formatHistory(recent)

	msg := model.NewUserMessage(conv.ID, userID, req.Content, msgType, req.Attachments, c.uc.now())

	if err := c.uc.repo.Message().Create(ctx, msg); err != nil {
		return nil, goerr.Wrap(errors.Join(ErrPersistence, err), "failed to save message",
			goerr.V(ConversationIDKey, conv.ID),
			goerr.V("message_id", msg.ID))
	}
	// the conversation is only bumped for messages that exist
	if err := c.uc.repo.Conversation().Touch(ctx, conv.ID, msg.CreatedAt); err != nil {
		logger.Warn("failed to update conversation timestamp", "error", err)
	}

	saved := msg.Copy()
	c.publishDetached(ctx, "realtime.user_message", saved)
	c.extractMemoryDetached(ctx, saved, memoryContext)
	c.notifyDetached(ctx, conv.Copy(), saved, userID, role)

	if conv.Mode.Normalize() == types.ConversationModeAI {
		c.replyDetached(ctx, saved)
	}

	return saved.ToResponse(), nil
}

func (c *ChatUseCase) publishDetached(ctx context.Context, job string, msg *model.Message) {
	if c.uc.realtime == nil {
		return
	}
	event := model.NewMessageCreatedEvent(msg)

	c.uc.dispatcher.Go(ctx, job, func(ctx context.Context) error {
		if err := c.uc.realtime.Publish(ctx, msg.ConversationID, event); err != nil {
			return goerr.Wrap(err, "failed to publish message",
				goerr.V(ConversationIDKey, msg.ConversationID),
				goerr.V("message_id", msg.ID))
		}
		return nil
	})
}

func (c *ChatUseCase) extractMemoryDetached(ctx context.Context, msg *model.Message, recentContext string) {
	if c.uc.extractor == nil || c.uc.embedder == nil || c.uc.vectorStore == nil {
		return
	}
	if strings.TrimSpace(msg.Content) == "" || msg.SenderID == nil {
		return
	}

	c.uc.dispatcher.Go(ctx, "memory.extract", func(ctx context.Context) error {
		c.uc.rememberMessage(ctx, *msg.SenderID, msg.ConversationID, msg.Content, recentContext)
		return nil
	})
}

func (c *ChatUseCase) notifyDetached(ctx context.Context, conv *model.Conversation, msg *model.Message, senderID string, role types.Role) {
	if c.uc.notifier == nil {
		return
	}
	if !c.uc.staffPolicy.IsStaff(role) || senderID == conv.UserID {
		return
	}

	n := staffMessageNotification(conv, msg, senderID)
	c.uc.dispatcher.Go(ctx, "notification.staff_message", func(ctx context.Context) error {
		result := c.uc.notifier.SendToUser(ctx, conv.UserID, n)
		if !result.Success {
			logging.From(ctx).Warn("failed to send push notification",
				slog.String("recipient", conv.UserID),
				slog.String("reason", result.Error))
			return nil
		}
		logging.From(ctx).Info("push notification sent", slog.String("recipient", conv.UserID))
		return nil
	})
}

func staffMessageNotification(conv *model.Conversation, msg *model.Message, senderID string) model.PushNotification {
	return model.PushNotification{
		Title: PushTitleStaffMessage,
		Body:  pushBody(msg.Content),
		Data: map[string]string{
			"type":           "message",
			"conversationId": conv.ID.String(),
			"senderId":       senderID,
			"messageType":    msg.MessageType.String(),
		},
	}
}

func pushBody(content string) string {
	if content == "" {
		return PushBodyEmpty
	}
	if utf8.RuneCountInString(content) <= pushBodyMaxLength {
		return content
	}
	return string([]rune(content)[:pushBodyMaxLength]) + "..."
}

func (c *ChatUseCase) replyDetached(ctx context.Context, userMsg *model.Message) {
	if c.uc.generator == nil {
		return
	}

	c.uc.dispatcher.Go(ctx, "ai.reply", func(ctx context.Context) error {
		return c.reply(ctx, userMsg)
	})
}

func (c *ChatUseCase) reply(ctx context.Context, userMsg *model.Message) error {
	logger := logging.From(ctx)

	history, err := c.uc.repo.Message().ListRecent(ctx, userMsg.ConversationID, c.uc.aiHistoryLimit)
	if err != nil {
		return goerr.Wrap(err, "failed to load conversation history",
			goerr.V(ConversationIDKey, userMsg.ConversationID))
	}
	conversationContext := formatHistory(history)

	prompt := userMsg.Content
	var payloads []model.EncodedAttachment
	if len(userMsg.Attachments) > 0 && c.uc.attachments != nil {
		prompt, payloads = c.uc.attachments.Resolve(ctx, userMsg.Attachments, userMsg.Content)
	}

	text := c.uc.generator.GenerateReply(ctx, prompt, conversationContext, payloads)
	if strings.TrimSpace(text) == "" || generator.IsFallback(text) {
		logger.Warn("no AI reply generated", slog.String("reply", text))
		return nil
	}

	aiMsg := model.NewAIMessage(userMsg.ConversationID, text, userMsg.CreatedAt, c.uc.now())
	if err := c.uc.repo.Message().Create(ctx, aiMsg); err != nil {
		return goerr.Wrap(err, "failed to save AI reply",
			goerr.V(ConversationIDKey, userMsg.ConversationID),
			goerr.V("message_id", aiMsg.ID))
	}
	if err := c.uc.repo.Conversation().Touch(ctx, userMsg.ConversationID, aiMsg.CreatedAt); err != nil {
		logger.Warn("failed to update conversation timestamp", "error", err)
	}

	c.publishDetached(ctx, "realtime.ai_message", aiMsg.Copy())
	return nil
}

// formatHistory renders messages one per line as "AI: ..." or "User: ...", oldest first
func formatHistory(messages []*model.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		author := "User"
		if m.IsAIGenerated {
			author = "AI"
		}
		lines = append(lines, author+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}
