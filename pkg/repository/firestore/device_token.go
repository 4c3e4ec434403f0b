package firestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type deviceTokenDoc struct {
	UserID    string    `firestore:"UserID"`
	Token     string    `firestore:"Token"`
	Platform  string    `firestore:"Platform"`
	Active    bool      `firestore:"Active"`
	UpdatedAt time.Time `firestore:"UpdatedAt"`
}

type deviceTokenRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newDeviceTokenRepository(client *firestore.Client) *deviceTokenRepository {
	return &deviceTokenRepository{client: client}
}

func (r *deviceTokenRepository) tokens(userID string) *firestore.CollectionRef {
	return r.client.
		Collection(r.collectionPrefix + usersCollection).Doc(userID).
		Collection(deviceTokensCollection)
}

// FCM tokens contain characters that are awkward in document IDs
func tokenDocID(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (r *deviceTokenRepository) Put(ctx context.Context, token *model.DeviceToken) error {
	if token == nil || token.UserID == "" || token.Token == "" {
		return goerr.New("device token requires user ID and token")
	}

	d := &deviceTokenDoc{
		UserID:    token.UserID,
		Token:     token.Token,
		Platform:  string(token.Platform),
		Active:    token.Active,
		UpdatedAt: model.Timestamp(time.Now()),
	}
	if _, err := r.tokens(token.UserID).Doc(tokenDocID(token.Token)).Set(ctx, d); err != nil {
		return goerr.Wrap(err, "failed to put device token", goerr.V("user_id", token.UserID))
	}
	return nil
}

func (r *deviceTokenRepository) ListActive(ctx context.Context, userID string) ([]*model.DeviceToken, error) {
	iter := r.tokens(userID).
		Where("Active", "==", true).
		OrderBy("UpdatedAt", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	result := make([]*model.DeviceToken, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate device tokens", goerr.V("user_id", userID))
		}

		var d deviceTokenDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal device token", goerr.V("user_id", userID))
		}
		result = append(result, &model.DeviceToken{
			UserID:    d.UserID,
			Token:     d.Token,
			Platform:  model.DevicePlatform(d.Platform),
			Active:    d.Active,
			UpdatedAt: d.UpdatedAt,
		})
	}
	return result, nil
}

func (r *deviceTokenRepository) Deactivate(ctx context.Context, userID, token string) error {
	_, err := r.tokens(userID).Doc(tokenDocID(token)).Update(ctx, []firestore.Update{
		{Path: "Active", Value: false},
		{Path: "UpdatedAt", Value: model.Timestamp(time.Now())},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(interfaces.ErrNotFound, "device token not found", goerr.V("user_id", userID))
		}
		return goerr.Wrap(err, "failed to deactivate device token", goerr.V("user_id", userID))
	}
	return nil
}
