package vectorstore

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/logging"
)

// Memory keeps records in process and ranks them by cosine similarity
type Memory struct {
	mu        sync.RWMutex
	dimension int
	records   map[model.MemoryID]*model.MemoryRecord
}

var _ interfaces.MemoryVectorStore = &Memory{}

func NewMemory() *Memory {
	return &Memory{
		dimension: model.EmbeddingDimension,
		records:   make(map[model.MemoryID]*model.MemoryRecord),
	}
}

func (m *Memory) EnsureCollection(ctx context.Context) error {
	return nil
}

func (m *Memory) Store(ctx context.Context, record *model.MemoryRecord) bool {
	if record == nil {
		return false
	}
	if len(record.Embedding) != m.dimension {
		logging.From(ctx).Warn("reject memory with wrong embedding dimension",
			slog.String("memory_id", string(record.ID)),
			slog.Int("expected", m.dimension),
			slog.Int("actual", len(record.Embedding)))
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.ID] = record.Copy()
	return true
}

func (m *Memory) Search(ctx context.Context, query []float32, userID string, limit int) []model.ScoredMemory {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]model.ScoredMemory, 0)
	for _, r := range m.records {
		if r.UserID != userID {
			continue
		}
		hits = append(hits, model.ScoredMemory{
			Record: r.Copy(),
			Score:  cosineSimilarity(query, r.Embedding),
		})
	}
	return ownedBy(hits, userID, searchLimit(limit))
}

func (m *Memory) DeleteOne(ctx context.Context, id model.MemoryID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return false
	}
	delete(m.records, id)
	return true
}

func (m *Memory) DeleteAllForUser(ctx context.Context, userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, r := range m.records {
		if r.UserID == userID {
			delete(m.records, id)
		}
	}
	return true
}

// Count returns the number of stored records
func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
