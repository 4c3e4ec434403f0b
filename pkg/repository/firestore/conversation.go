package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type conversationDoc struct {
	ID        string    `firestore:"ID"`
	UserID    string    `firestore:"UserID"`
	StaffID   *string   `firestore:"StaffID"`
	Title     string    `firestore:"Title"`
	Mode      string    `firestore:"Mode"`
	Status    string    `firestore:"Status"`
	CreatedAt time.Time `firestore:"CreatedAt"`
	UpdatedAt time.Time `firestore:"UpdatedAt"`
}

func toConversationDoc(c *model.Conversation) *conversationDoc {
	return &conversationDoc{
		ID:        string(c.ID),
		UserID:    c.UserID,
		StaffID:   c.StaffID,
		Title:     c.Title,
		Mode:      string(c.Mode),
		Status:    string(c.Status),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func fromConversationDoc(d *conversationDoc) *model.Conversation {
	return &model.Conversation{
		ID:        model.ConversationID(d.ID),
		UserID:    d.UserID,
		StaffID:   d.StaffID,
		Title:     d.Title,
		Mode:      types.ConversationMode(d.Mode).Normalize(),
		Status:    types.ConversationStatus(d.Status).Normalize(),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type conversationRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newConversationRepository(client *firestore.Client) *conversationRepository {
	return &conversationRepository{client: client}
}

func (r *conversationRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.collectionPrefix + conversationsCollection)
}

func (r *conversationRepository) Create(ctx context.Context, conv *model.Conversation) (*model.Conversation, error) {
	if conv == nil {
		return nil, goerr.New("conversation is nil")
	}

	created := conv.Copy()
	if created.ID == "" {
		created.ID = model.NewConversationID()
	}
	now := model.Timestamp(time.Now())
	created.Mode = created.Mode.Normalize()
	created.Status = created.Status.Normalize()
	created.CreatedAt = now
	created.UpdatedAt = now

	if _, err := r.collection().Doc(string(created.ID)).Create(ctx, toConversationDoc(created)); err != nil {
		return nil, goerr.Wrap(err, "failed to create conversation", goerr.V("conversation_id", created.ID))
	}
	return created, nil
}

func (r *conversationRepository) Get(ctx context.Context, id model.ConversationID) (*model.Conversation, error) {
	doc, err := r.collection().Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "conversation not found", goerr.V("conversation_id", id))
		}
		return nil, goerr.Wrap(err, "failed to get conversation", goerr.V("conversation_id", id))
	}

	var d conversationDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal conversation", goerr.V("conversation_id", id))
	}
	return fromConversationDoc(&d), nil
}

func (r *conversationRepository) ListByUser(ctx context.Context, userID string) ([]*model.Conversation, error) {
	iter := r.collection().
		Where("UserID", "==", userID).
		OrderBy("UpdatedAt", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	result := make([]*model.Conversation, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate conversations", goerr.V("user_id", userID))
		}

		var d conversationDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal conversation", goerr.V("doc_id", doc.Ref.ID))
		}
		result = append(result, fromConversationDoc(&d))
	}
	return result, nil
}

func (r *conversationRepository) UpdateMode(ctx context.Context, id model.ConversationID, mode types.ConversationMode) (*model.Conversation, error) {
	_, err := r.collection().Doc(string(id)).Update(ctx, []firestore.Update{
		{Path: "Mode", Value: string(mode)},
		{Path: "UpdatedAt", Value: model.Timestamp(time.Now())},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "conversation not found", goerr.V("conversation_id", id))
		}
		return nil, goerr.Wrap(err, "failed to update conversation mode", goerr.V("conversation_id", id))
	}
	return r.Get(ctx, id)
}

func (r *conversationRepository) Touch(ctx context.Context, id model.ConversationID, at time.Time) error {
	_, err := r.collection().Doc(string(id)).Update(ctx, []firestore.Update{
		{Path: "UpdatedAt", Value: model.Timestamp(at)},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(interfaces.ErrNotFound, "conversation not found", goerr.V("conversation_id", id))
		}
		return goerr.Wrap(err, "failed to update conversation timestamp", goerr.V("conversation_id", id))
	}
	return nil
}
