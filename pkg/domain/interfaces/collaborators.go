package interfaces

import (
	"context"
	"io"

	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
)

// MemoryVectorStore stores embedded memory records and searches them per user.
// Implementations never return errors to callers of Store, Search and the delete
// methods: failures are logged and reported as false or empty results.
type MemoryVectorStore interface {
	// EnsureCollection creates the collection and its filter indexes if missing
	EnsureCollection(ctx context.Context) error

	// Store upserts the record keyed by its ID. Returns false when the embedding has the
	// wrong dimension or the backend is unavailable.
	Store(ctx context.Context, record *model.MemoryRecord) bool

	// Search returns up to limit records owned by userID, nearest first
	Search(ctx context.Context, query []float32, userID string, limit int) []model.ScoredMemory

	// DeleteOne removes a single record
	DeleteOne(ctx context.Context, id model.MemoryID) bool

	// DeleteAllForUser removes every record owned by userID
	DeleteAllForUser(ctx context.Context, userID string) bool
}

// BlobStore downloads previously uploaded files
type BlobStore interface {
	// Download opens the object at locator inside container. The caller closes the reader.
	Download(ctx context.Context, locator, container string) (io.ReadCloser, error)
}

// RealtimePublisher pushes events to whoever listens on a conversation channel
type RealtimePublisher interface {
	Publish(ctx context.Context, convID model.ConversationID, event model.RealtimeEvent) error
}

// Notifier delivers push notifications to a user's devices
type Notifier interface {
	SendToUser(ctx context.Context, userID string, n model.PushNotification) model.PushResult
}

// ConfigStore reads externally managed configuration text such as prompt templates
type ConfigStore interface {
	// Get returns the value and whether it was found. Lookup failures count as not found.
	Get(ctx context.Context, key string) (string, bool)
}

// Embedder turns text into a vector of model.EmbeddingDimension floats. An empty vector
// means no embedding was produced.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
}

// AttachmentResolver fetches attachments and builds the prompt that announces them
type AttachmentResolver interface {
	Resolve(ctx context.Context, attachments []model.AttachmentRef, userText string) (string, []model.EncodedAttachment)
}

// ReplyGenerator produces the assistant reply. It always returns text, using a fixed
// apology when generation is impossible.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, userPrompt, conversationContext string, attachments []model.EncodedAttachment) string
}

// MemoryExtractor decides whether the latest message is worth remembering
type MemoryExtractor interface {
	Extract(ctx context.Context, latestMessage, recentContext string) model.ExtractedMemory
}
