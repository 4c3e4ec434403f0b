package firestore

import (
	"context"
	"slices"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/types"
	"google.golang.org/api/iterator"
)

type attachmentDoc struct {
	Type    string `firestore:"Type"`
	Locator string `firestore:"Locator"`
	Name    string `firestore:"Name,omitempty"`
	Size    *int64 `firestore:"Size,omitempty"`
}

type messageDoc struct {
	ID             string          `firestore:"ID"`
	ConversationID string          `firestore:"ConversationID"`
	SenderID       *string         `firestore:"SenderID"`
	Content        string          `firestore:"Content"`
	MessageType    string          `firestore:"MessageType"`
	IsAIGenerated  bool            `firestore:"IsAIGenerated"`
	Attachments    []attachmentDoc `firestore:"Attachments,omitempty"`
	CreatedAt      time.Time       `firestore:"CreatedAt"`
}

func toMessageDoc(m *model.Message) *messageDoc {
	d := &messageDoc{
		ID:             string(m.ID),
		ConversationID: string(m.ConversationID),
		SenderID:       m.SenderID,
		Content:        m.Content,
		MessageType:    string(m.MessageType),
		IsAIGenerated:  m.IsAIGenerated,
		CreatedAt:      m.CreatedAt,
	}
	for _, a := range m.Attachments {
		d.Attachments = append(d.Attachments, attachmentDoc{
			Type:    string(a.Type),
			Locator: a.Locator,
			Name:    a.Name,
			Size:    a.Size,
		})
	}
	return d
}

func fromMessageDoc(d *messageDoc) *model.Message {
	m := &model.Message{
		ID:             model.MessageID(d.ID),
		ConversationID: model.ConversationID(d.ConversationID),
		SenderID:       d.SenderID,
		Content:        d.Content,
		MessageType:    types.MessageType(d.MessageType).Normalize(),
		IsAIGenerated:  d.IsAIGenerated,
		CreatedAt:      d.CreatedAt,
	}
	for _, a := range d.Attachments {
		m.Attachments = append(m.Attachments, model.AttachmentRef{
			Type:    types.AttachmentType(a.Type),
			Locator: a.Locator,
			Name:    a.Name,
			Size:    a.Size,
		})
	}
	return m
}

type messageRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newMessageRepository(client *firestore.Client) *messageRepository {
	return &messageRepository{client: client}
}

func (r *messageRepository) messages(convID model.ConversationID) *firestore.CollectionRef {
	return r.client.
		Collection(r.collectionPrefix + conversationsCollection).Doc(string(convID)).
		Collection(messagesCollection)
}

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	if msg == nil {
		return goerr.New("message is nil")
	}

	ref := r.messages(msg.ConversationID).Doc(string(msg.ID))
	if _, err := ref.Create(ctx, toMessageDoc(msg)); err != nil {
		return goerr.Wrap(err, "failed to create message",
			goerr.V("conversation_id", msg.ConversationID),
			goerr.V("message_id", msg.ID))
	}
	return nil
}

func (r *messageRepository) ListRecent(ctx context.Context, convID model.ConversationID, limit int) ([]*model.Message, error) {
	query := r.messages(convID).OrderBy("CreatedAt", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	result, err := r.collect(ctx, convID, query)
	if err != nil {
		return nil, err
	}
	slices.Reverse(result)
	return result, nil
}

func (r *messageRepository) List(ctx context.Context, convID model.ConversationID, limit, offset int) ([]*model.Message, error) {
	query := r.messages(convID).OrderBy("CreatedAt", firestore.Asc)
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	return r.collect(ctx, convID, query)
}

func (r *messageRepository) collect(ctx context.Context, convID model.ConversationID, query firestore.Query) ([]*model.Message, error) {
	iter := query.Documents(ctx)
	defer iter.Stop()

	result := make([]*model.Message, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate messages", goerr.V("conversation_id", convID))
		}

		var d messageDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal message",
				goerr.V("conversation_id", convID),
				goerr.V("doc_id", doc.Ref.ID))
		}
		result = append(result, fromMessageDoc(&d))
	}
	return result, nil
}
