package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
)

// Collection names
const (
	conversationsCollection = "conversations"
	messagesCollection      = "messages"
	appConfigCollection     = "app_config"
	usersCollection         = "users"
	deviceTokensCollection  = "device_tokens"
)

type Firestore struct {
	client       *firestore.Client
	conversation *conversationRepository
	message      *messageRepository
	appConfig    *appConfigRepository
	deviceToken  *deviceTokenRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix prefixes every top-level collection name, so that tests can
// share one database
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.conversation.collectionPrefix = prefix
		f.message.collectionPrefix = prefix
		f.appConfig.collectionPrefix = prefix
		f.deviceToken.collectionPrefix = prefix
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID))
	}

	f := &Firestore{
		client:       client,
		conversation: newConversationRepository(client),
		message:      newMessageRepository(client),
		appConfig:    newAppConfigRepository(client),
		deviceToken:  newDeviceTokenRepository(client),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

// Client exposes the underlying client so other Firestore-backed components can share it
func (f *Firestore) Client() *firestore.Client {
	return f.client
}

func (f *Firestore) Conversation() interfaces.ConversationRepository {
	return f.conversation
}

func (f *Firestore) Message() interfaces.MessageRepository {
	return f.message
}

func (f *Firestore) AppConfig() interfaces.AppConfigRepository {
	return f.appConfig
}

func (f *Firestore) DeviceToken() interfaces.DeviceTokenRepository {
	return f.deviceToken
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
