package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/types"
)

// MessageID is a UUID-based identifier for Message
type MessageID string

// NewMessageID generates a new UUID v4 MessageID
func NewMessageID() MessageID {
	return MessageID(uuid.New().String())
}

func (id MessageID) String() string {
	return string(id)
}

// TimestampResolution is the precision timestamps are stored with
const TimestampResolution = time.Microsecond

// MinOrderingGap is the minimum separation between a user message and the AI reply it
// triggered.
const MinOrderingGap = time.Millisecond

// Message is a single chat entry. A nil SenderID means the message was authored by the AI.
type Message struct {
	ID             MessageID
	ConversationID ConversationID
	SenderID       *string
	Content        string
	MessageType    types.MessageType
	IsAIGenerated  bool
	Attachments    []AttachmentRef
	CreatedAt      time.Time
}

// NewUserMessage creates a message authored by senderID
func NewUserMessage(convID ConversationID, senderID, content string, msgType types.MessageType, attachments []AttachmentRef, now time.Time) *Message {
	sender := senderID
	return &Message{
		ID:             NewMessageID(),
		ConversationID: convID,
		SenderID:       &sender,
		Content:        content,
		MessageType:    msgType.Normalize(),
		IsAIGenerated:  false,
		Attachments:    CopyAttachments(attachments),
		CreatedAt:      Timestamp(now),
	}
}

// NewAIMessage creates an AI-authored text message that sorts strictly after `after`.
func NewAIMessage(convID ConversationID, content string, after, now time.Time) *Message {
	return &Message{
		ID:             NewMessageID(),
		ConversationID: convID,
		SenderID:       nil,
		Content:        content,
		MessageType:    types.MessageTypeText,
		IsAIGenerated:  true,
		CreatedAt:      SequenceAfter(after, now),
	}
}

// Timestamp normalizes t to UTC at storage resolution
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(TimestampResolution)
}

// SequenceAfter returns now, or after+MinOrderingGap when now does not sort far enough
// past after. Two wall-clock reads are not ordered reliably, so the gap is explicit.
func SequenceAfter(after, now time.Time) time.Time {
	ts := Timestamp(now)
	floor := Timestamp(after).Add(MinOrderingGap)
	if ts.Before(floor) {
		return floor
	}
	return ts
}

// IsAuthoredByAI reports whether the message came from the AI
func (m *Message) IsAuthoredByAI() bool {
	return m.SenderID == nil && m.IsAIGenerated
}

// Copy returns a deep copy of the message
func (m *Message) Copy() *Message {
	if m == nil {
		return nil
	}
	copied := *m
	if m.SenderID != nil {
		sender := *m.SenderID
		copied.SenderID = &sender
	}
	copied.Attachments = CopyAttachments(m.Attachments)
	return &copied
}

// MessageResponse is the API representation of a persisted message
type MessageResponse struct {
	ID             MessageID              `json:"id"`
	ConversationID ConversationID         `json:"conversationId"`
	SenderID       *string                `json:"senderId"`
	Content        string                 `json:"content,omitempty"`
	MessageType    types.MessageType      `json:"messageType"`
	IsAIGenerated  bool                   `json:"isAiGenerated"`
	Attachments    []AttachmentRefPayload `json:"attachments,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
}

// ToResponse converts a message into its API representation
func (m *Message) ToResponse() *MessageResponse {
	resp := &MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Content:        m.Content,
		MessageType:    m.MessageType,
		IsAIGenerated:  m.IsAIGenerated,
		CreatedAt:      m.CreatedAt,
	}
	if m.SenderID != nil {
		sender := *m.SenderID
		resp.SenderID = &sender
	}
	for _, a := range m.Attachments {
		resp.Attachments = append(resp.Attachments, a.Payload())
	}
	return resp
}

// RealtimeEventMessageCreated is published whenever a message is persisted
const RealtimeEventMessageCreated = "message.created"

// RealtimeEvent is the payload pushed to realtime subscribers of a conversation
type RealtimeEvent struct {
	Type           string          `json:"type"`
	ConversationID ConversationID  `json:"conversationId"`
	Message        MessageResponse `json:"message"`
}

// NewMessageCreatedEvent builds the realtime event for a persisted message
func NewMessageCreatedEvent(m *Message) RealtimeEvent {
	return RealtimeEvent{
		Type:           RealtimeEventMessageCreated,
		ConversationID: m.ConversationID,
		Message:        *m.ToResponse(),
	}
}
