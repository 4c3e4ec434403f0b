package memory

import (
	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory is an in-process repository backend for development and tests
type Memory struct {
	conversation *conversationRepository
	message      *messageRepository
	appConfig    *appConfigRepository
	deviceToken  *deviceTokenRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		conversation: newConversationRepository(),
		message:      newMessageRepository(),
		appConfig:    newAppConfigRepository(),
		deviceToken:  newDeviceTokenRepository(),
	}
}

func (m *Memory) Conversation() interfaces.ConversationRepository {
	return m.conversation
}

func (m *Memory) Message() interfaces.MessageRepository {
	return m.message
}

func (m *Memory) AppConfig() interfaces.AppConfigRepository {
	return m.appConfig
}

func (m *Memory) DeviceToken() interfaces.DeviceTokenRepository {
	return m.deviceToken
}

func (m *Memory) Close() error {
	return nil
}
