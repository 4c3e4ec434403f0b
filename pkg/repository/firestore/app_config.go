package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type appConfigDoc struct {
	Key       string    `firestore:"Key"`
	Value     string    `firestore:"Value"`
	UpdatedAt time.Time `firestore:"UpdatedAt"`
}

type appConfigRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newAppConfigRepository(client *firestore.Client) *appConfigRepository {
	return &appConfigRepository{client: client}
}

func (r *appConfigRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.collectionPrefix + appConfigCollection)
}

func (r *appConfigRepository) Get(ctx context.Context, key string) (*model.AppConfigEntry, error) {
	doc, err := r.collection().Doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "config entry not found", goerr.V("key", key))
		}
		return nil, goerr.Wrap(err, "failed to get config entry", goerr.V("key", key))
	}

	var d appConfigDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal config entry", goerr.V("key", key))
	}
	return &model.AppConfigEntry{Key: d.Key, Value: d.Value, UpdatedAt: d.UpdatedAt}, nil
}

func (r *appConfigRepository) Put(ctx context.Context, entry *model.AppConfigEntry) error {
	if entry == nil || entry.Key == "" {
		return goerr.New("config entry key is required")
	}

	d := &appConfigDoc{
		Key:       entry.Key,
		Value:     entry.Value,
		UpdatedAt: model.Timestamp(time.Now()),
	}
	if _, err := r.collection().Doc(entry.Key).Set(ctx, d); err != nil {
		return goerr.Wrap(err, "failed to put config entry", goerr.V("key", entry.Key))
	}
	return nil
}

func (r *appConfigRepository) List(ctx context.Context) ([]*model.AppConfigEntry, error) {
	iter := r.collection().OrderBy("Key", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	result := make([]*model.AppConfigEntry, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate config entries")
		}

		var d appConfigDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal config entry", goerr.V("doc_id", doc.Ref.ID))
		}
		result = append(result, &model.AppConfigEntry{Key: d.Key, Value: d.Value, UpdatedAt: d.UpdatedAt})
	}
	return result, nil
}

func (r *appConfigRepository) Delete(ctx context.Context, key string) error {
	ref := r.collection().Doc(key)
	if _, err := ref.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(interfaces.ErrNotFound, "config entry not found", goerr.V("key", key))
		}
		return goerr.Wrap(err, "failed to get config entry", goerr.V("key", key))
	}

	if _, err := ref.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete config entry", goerr.V("key", key))
	}
	return nil
}
