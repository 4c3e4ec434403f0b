package vectorstore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/logging"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const vectorDistanceField = "VectorDistance"

// memoryDoc is the Firestore form of model.MemoryRecord. Embedding is a Vector32 so
// that FindNearest can search it.
type memoryDoc struct {
	ID             string             `firestore:"ID"`
	UserID         string             `firestore:"UserID"`
	ConversationID string             `firestore:"ConversationID"`
	Summary        string             `firestore:"Summary"`
	MessageContent string             `firestore:"MessageContent"`
	Embedding      firestore.Vector32 `firestore:"Embedding"`
	Topics         []string           `firestore:"Topics"`
	Metadata       map[string]string  `firestore:"Metadata"`
	CreatedAt      time.Time          `firestore:"CreatedAt"`
}

// Firestore stores memories as documents and searches them with Firestore vector search.
// The vector index is provisioned by the migrate command.
type Firestore struct {
	client     *firestore.Client
	collection string
	dimension  int
}

var _ interfaces.MemoryVectorStore = &Firestore{}

type FirestoreOption func(*Firestore)

func WithFirestoreCollection(name string) FirestoreOption {
	return func(f *Firestore) {
		f.collection = name
	}
}

func NewFirestore(client *firestore.Client, opts ...FirestoreOption) *Firestore {
	f := &Firestore{
		client:     client,
		collection: DefaultCollection,
		dimension:  model.EmbeddingDimension,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Firestore) docs() *firestore.CollectionRef {
	return f.client.Collection(f.collection)
}

func (f *Firestore) EnsureCollection(ctx context.Context) error {
	return nil
}

func (f *Firestore) Store(ctx context.Context, record *model.MemoryRecord) bool {
	if record == nil {
		return false
	}
	logger := logging.From(ctx).With(slog.String("memory_id", string(record.ID)))

	if len(record.Embedding) != f.dimension {
		logger.Warn("reject memory with wrong embedding dimension",
			slog.Int("expected", f.dimension),
			slog.Int("actual", len(record.Embedding)))
		return false
	}

	doc := &memoryDoc{
		ID:             string(record.ID),
		UserID:         record.UserID,
		ConversationID: string(record.ConversationID),
		Summary:        record.Summary,
		MessageContent: record.MessageContent,
		Embedding:      firestore.Vector32(record.Embedding),
		Topics:         record.Topics,
		Metadata:       record.Metadata,
		CreatedAt:      record.CreatedAt,
	}
	if _, err := f.docs().Doc(string(record.ID)).Set(ctx, doc); err != nil {
		logger.Error("failed to store memory in firestore", slog.Any("error", err))
		return false
	}
	return true
}

func (f *Firestore) Search(ctx context.Context, query []float32, userID string, limit int) []model.ScoredMemory {
	limit = searchLimit(limit)
	if len(query) == 0 || userID == "" {
		return []model.ScoredMemory{}
	}

	hits, err := f.search(ctx, query, userID, limit)
	if err != nil {
		logging.From(ctx).Error("failed to search firestore memories",
			slog.String("user_id", userID),
			slog.Any("error", err))
		return []model.ScoredMemory{}
	}
	return ownedBy(hits, userID, limit)
}

func (f *Firestore) search(ctx context.Context, query []float32, userID string, limit int) ([]model.ScoredMemory, error) {
	vq := f.docs().
		Where("UserID", "==", userID).
		FindNearest("Embedding", firestore.Vector32(query), limit, firestore.DistanceMeasureCosine,
			&firestore.FindNearestOptions{DistanceResultField: vectorDistanceField})

	iter := vq.Documents(ctx)
	defer iter.Stop()

	hits := make([]model.ScoredMemory, 0, limit)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate vector search results")
		}

		var d memoryDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal memory", goerr.V("doc_id", doc.Ref.ID))
		}

		// cosine distance is 1 - similarity
		score := 0.0
		if dist, ok := doc.Data()[vectorDistanceField].(float64); ok {
			score = 1 - dist
		}

		hits = append(hits, model.ScoredMemory{
			Record: &model.MemoryRecord{
				ID:             model.MemoryID(d.ID),
				UserID:         d.UserID,
				ConversationID: model.ConversationID(d.ConversationID),
				Summary:        d.Summary,
				MessageContent: d.MessageContent,
				Embedding:      []float32(d.Embedding),
				Topics:         d.Topics,
				Metadata:       d.Metadata,
				CreatedAt:      d.CreatedAt,
			},
			Score: score,
		})
	}
	return hits, nil
}

func (f *Firestore) DeleteOne(ctx context.Context, id model.MemoryID) bool {
	ref := f.docs().Doc(string(id))
	if _, err := ref.Get(ctx); err != nil {
		if status.Code(err) != codes.NotFound {
			logging.From(ctx).Error("failed to get firestore memory",
				slog.String("memory_id", string(id)), slog.Any("error", err))
		}
		return false
	}

	if _, err := ref.Delete(ctx); err != nil {
		logging.From(ctx).Error("failed to delete firestore memory",
			slog.String("memory_id", string(id)), slog.Any("error", err))
		return false
	}
	return true
}

func (f *Firestore) DeleteAllForUser(ctx context.Context, userID string) bool {
	if userID == "" {
		return false
	}
	if err := f.deleteAllForUser(ctx, userID); err != nil {
		logging.From(ctx).Error("failed to delete firestore memories for user",
			slog.String("user_id", userID), slog.Any("error", err))
		return false
	}
	return true
}

func (f *Firestore) deleteAllForUser(ctx context.Context, userID string) error {
	iter := f.docs().Where("UserID", "==", userID).Documents(ctx)
	defer iter.Stop()

	bw := f.client.BulkWriter(ctx)
	var jobs []*firestore.BulkWriterJob

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			bw.End()
			return goerr.Wrap(err, "failed to iterate memories", goerr.V("user_id", userID))
		}
		job, err := bw.Delete(doc.Ref)
		if err != nil {
			bw.End()
			return goerr.Wrap(err, "failed to enqueue memory deletion", goerr.V("doc_id", doc.Ref.ID))
		}
		jobs = append(jobs, job)
	}
	bw.End()

	return bulkJobsError(jobs, userID)
}

// bulkResult is the part of firestore.BulkWriterJob read after the writer ends
type bulkResult interface {
	Results() (*firestore.WriteResult, error)
}

// bulkJobsError joins the failures of every finished job
func bulkJobsError[J bulkResult](jobs []J, userID string) error {
	var errs []error
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return goerr.Wrap(errors.Join(errs...), "failed to delete memories",
			goerr.V("user_id", userID), goerr.V("failed", len(errs)), goerr.V("total", len(jobs)))
	}
	return nil
}
