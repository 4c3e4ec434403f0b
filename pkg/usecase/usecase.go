package usecase

import (
	"time"

	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/types"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/async"
)

// Default history window sizes
const (
	DefaultMemoryHistoryLimit = 10
	DefaultAIHistoryLimit     = 100
	DefaultMessagePageSize    = 50
	MaxMessagePageSize        = 200
	DefaultMemorySearchLimit  = 10
)

// UseCases bundles every use case sharing the same collaborators
type UseCases struct {
	repo interfaces.Repository

	embedder    interfaces.Embedder
	vectorStore interfaces.MemoryVectorStore
	extractor   interfaces.MemoryExtractor
	generator   interfaces.ReplyGenerator
	attachments interfaces.AttachmentResolver
	realtime    interfaces.RealtimePublisher
	notifier    interfaces.Notifier
	dispatcher  *async.Dispatcher

	staffPolicy        types.StaffPolicy
	memoryHistoryLimit int
	aiHistoryLimit     int
	now                func() time.Time

	Chat         *ChatUseCase
	Conversation *ConversationUseCase
	Memory       *MemoryUseCase
	Device       *DeviceUseCase
	Auth         AuthUseCaseInterface
}

type Option func(*UseCases)

func WithEmbedder(e interfaces.Embedder) Option {
	return func(uc *UseCases) {
		uc.embedder = e
	}
}

func WithVectorStore(s interfaces.MemoryVectorStore) Option {
	return func(uc *UseCases) {
		uc.vectorStore = s
	}
}

func WithMemoryExtractor(e interfaces.MemoryExtractor) Option {
	return func(uc *UseCases) {
		uc.extractor = e
	}
}

func WithReplyGenerator(g interfaces.ReplyGenerator) Option {
	return func(uc *UseCases) {
		uc.generator = g
	}
}

func WithAttachmentResolver(r interfaces.AttachmentResolver) Option {
	return func(uc *UseCases) {
		uc.attachments = r
	}
}

func WithRealtime(p interfaces.RealtimePublisher) Option {
	return func(uc *UseCases) {
		uc.realtime = p
	}
}

func WithNotifier(n interfaces.Notifier) Option {
	return func(uc *UseCases) {
		uc.notifier = n
	}
}

// WithDispatcher sets the pool running detached work
func WithDispatcher(d *async.Dispatcher) Option {
	return func(uc *UseCases) {
		uc.dispatcher = d
	}
}

func WithStaffPolicy(p types.StaffPolicy) Option {
	return func(uc *UseCases) {
		uc.staffPolicy = p
	}
}

// WithMemoryHistoryLimit sets how many prior messages are given to the memory extractor
func WithMemoryHistoryLimit(n int) Option {
	return func(uc *UseCases) {
		if n > 0 {
			uc.memoryHistoryLimit = n
		}
	}
}

// WithAIHistoryLimit sets how many messages are given to the reply generator
func WithAIHistoryLimit(n int) Option {
	return func(uc *UseCases) {
		if n > 0 {
			uc.aiHistoryLimit = n
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(uc *UseCases) {
		uc.now = now
	}
}

func WithAuth(auth AuthUseCaseInterface) Option {
	return func(uc *UseCases) {
		uc.Auth = auth
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:               repo,
		staffPolicy:        types.NewStaffPolicy(),
		memoryHistoryLimit: DefaultMemoryHistoryLimit,
		aiHistoryLimit:     DefaultAIHistoryLimit,
		now:                time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	if uc.dispatcher == nil {
		uc.dispatcher = async.New(async.DefaultMaxConcurrency)
	}

	uc.Chat = &ChatUseCase{uc: uc}
	uc.Conversation = &ConversationUseCase{uc: uc}
	uc.Memory = &MemoryUseCase{uc: uc}
	uc.Device = &DeviceUseCase{uc: uc}

	return uc
}

// Dispatcher returns the pool running detached work. Shutdown waits on it.
func (uc *UseCases) Dispatcher() *async.Dispatcher {
	return uc.dispatcher
}

// StaffPolicy returns the configured staff predicate
func (uc *UseCases) StaffPolicy() types.StaffPolicy {
	return uc.staffPolicy
}
