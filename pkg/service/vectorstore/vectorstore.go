// Package vectorstore implements interfaces.MemoryVectorStore on Qdrant, Firestore and
// process memory.
package vectorstore

import (
	"sort"

	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
)

const (
	DefaultCollection  = "user_memories"
	DefaultSearchLimit = 200
)

// Payload field names shared by the backends
const (
	fieldUserID         = "user_id"
	fieldConversationID = "conversation_id"
	fieldSummary        = "summary"
	fieldMessageContent = "message_content"
	fieldTopics         = "topics"
	fieldCreatedAt      = "created_at"
	metadataPrefix      = "metadata_"
)

// searchLimit defaults non-positive limits and caps the rest at DefaultSearchLimit
func searchLimit(limit int) int {
	if limit <= 0 {
		return DefaultSearchLimit
	}
	return min(limit, DefaultSearchLimit)
}

// ownedBy drops hits that belong to another user, orders the rest by descending score
// and cuts to limit. Backends filter on the server too; this is the last check before
// records leave the store.
func ownedBy(hits []model.ScoredMemory, userID string, limit int) []model.ScoredMemory {
	result := make([]model.ScoredMemory, 0, len(hits))
	for _, h := range hits {
		if h.Record == nil || h.Record.UserID != userID {
			continue
		}
		result = append(result, h)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result
}
