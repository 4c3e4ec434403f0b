package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/types"
)

// ErrNotFound is returned (wrapped) by repositories when an entity does not exist
var ErrNotFound = errors.New("not found")

// Repository defines the interface for data persistence
type Repository interface {
	Conversation() ConversationRepository
	Message() MessageRepository
	AppConfig() AppConfigRepository
	DeviceToken() DeviceTokenRepository

	Close() error
}

// ConversationRepository defines the interface for Conversation data persistence
type ConversationRepository interface {
	// Create stores a new conversation
	Create(ctx context.Context, conv *model.Conversation) (*model.Conversation, error)

	// Get retrieves a conversation by ID. Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, id model.ConversationID) (*model.Conversation, error)

	// ListByUser retrieves conversations owned by userID, most recently active first
	ListByUser(ctx context.Context, userID string) ([]*model.Conversation, error)

	// UpdateMode changes the conversation mode
	UpdateMode(ctx context.Context, id model.ConversationID, mode types.ConversationMode) (*model.Conversation, error)

	// Touch sets the last-activity timestamp. Concurrent calls are last-write-wins.
	Touch(ctx context.Context, id model.ConversationID, at time.Time) error
}

// MessageRepository defines the interface for Message data persistence
type MessageRepository interface {
	// Create stores a new message. Messages are immutable once created.
	Create(ctx context.Context, msg *model.Message) error

	// ListRecent returns up to limit newest messages in chronological order
	ListRecent(ctx context.Context, convID model.ConversationID, limit int) ([]*model.Message, error)

	// List returns messages in chronological order with offset pagination
	List(ctx context.Context, convID model.ConversationID, limit, offset int) ([]*model.Message, error)
}

// AppConfigRepository defines the interface for key/value application configuration
type AppConfigRepository interface {
	// Get returns the entry for key. Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, key string) (*model.AppConfigEntry, error)

	// Put creates or replaces the entry
	Put(ctx context.Context, entry *model.AppConfigEntry) error

	// List returns all entries ordered by key
	List(ctx context.Context) ([]*model.AppConfigEntry, error)

	// Delete removes the entry for key. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, key string) error
}

// DeviceTokenRepository defines the interface for push notification device tokens
type DeviceTokenRepository interface {
	// Put registers or refreshes a device token
	Put(ctx context.Context, token *model.DeviceToken) error

	// ListActive returns the active tokens of a user
	ListActive(ctx context.Context, userID string) ([]*model.DeviceToken, error)

	// Deactivate marks a token inactive. Returns ErrNotFound if it is unknown for the user.
	Deactivate(ctx context.Context, userID, token string) error
}
