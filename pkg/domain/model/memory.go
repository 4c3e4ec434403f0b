package model

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// EmbeddingDimension is the length of memory embedding vectors
const EmbeddingDimension = 768

// MemoryID is a UUID-based identifier for MemoryRecord
type MemoryID string

// NewMemoryID generates a new UUID v4 MemoryID
func NewMemoryID() MemoryID {
	return MemoryID(uuid.New().String())
}

func (id MemoryID) String() string {
	return string(id)
}

// MemoryRecord is an embedded summary of a past exchange, used to personalize replies.
// Records are never mutated after creation.
type MemoryRecord struct {
	ID             MemoryID
	UserID         string
	ConversationID ConversationID
	Summary        string
	MessageContent string
	Embedding      []float32
	Topics         []string
	Metadata       map[string]string
	CreatedAt      time.Time
}

// Copy returns a deep copy of the record
func (m *MemoryRecord) Copy() *MemoryRecord {
	if m == nil {
		return nil
	}
	copied := *m
	copied.Embedding = slices.Clone(m.Embedding)
	copied.Topics = slices.Clone(m.Topics)
	copied.Metadata = maps.Clone(m.Metadata)
	return &copied
}

// ScoredMemory is a search hit with its similarity score (higher is closer)
type ScoredMemory struct {
	Record *MemoryRecord
	Score  float64
}

// ExtractedMemory is the memory extractor's decision about the latest exchange
type ExtractedMemory struct {
	ShouldSave bool
	Summary    string
	Topics     []string
	Metadata   map[string]string
}
