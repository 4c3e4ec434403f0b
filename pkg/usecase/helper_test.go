package usecase_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/types"
	"github.com/nutrisha-ai/nutrisha/pkg/repository/memory"
	"github.com/nutrisha-ai/nutrisha/pkg/usecase"
)

// spyRepo counts writes and can fail message persistence
type spyRepo struct {
	*memory.Memory
	messages *spyMessages
	convs    *spyConversations
}

func newSpyRepo() *spyRepo {
	mem := memory.New()
	return &spyRepo{
		Memory:   mem,
		messages: &spyMessages{MessageRepository: mem.Message()},
		convs:    &spyConversations{ConversationRepository: mem.Conversation()},
	}
}

func (r *spyRepo) Message() interfaces.MessageRepository           { return r.messages }
func (r *spyRepo) Conversation() interfaces.ConversationRepository { return r.convs }

type spyMessages struct {
	interfaces.MessageRepository
	creates    atomic.Int32
	failCreate atomic.Bool
}

func (s *spyMessages) Create(ctx context.Context, msg *model.Message) error {
	s.creates.Add(1)
	if s.failCreate.Load() {
		return errors.New("database unavailable")
	}
	return s.MessageRepository.Create(ctx, msg)
}

type spyConversations struct {
	interfaces.ConversationRepository
	touches atomic.Int32
}

func (s *spyConversations) Touch(ctx context.Context, id model.ConversationID, at time.Time) error {
	s.touches.Add(1)
	return s.ConversationRepository.Touch(ctx, id, at)
}

type fakeGenerator struct {
	reply string
	mu    sync.Mutex
	calls []generateCall
}

type generateCall struct {
	prompt      string
	context     string
	attachments []model.EncodedAttachment
}

func (g *fakeGenerator) GenerateReply(ctx context.Context, userPrompt, conversationContext string, attachments []model.EncodedAttachment) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, generateCall{prompt: userPrompt, context: conversationContext, attachments: attachments})
	return g.reply
}

func (g *fakeGenerator) Calls() []generateCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]generateCall(nil), g.calls...)
}

type fakeExtractor struct {
	result model.ExtractedMemory
	mu     sync.Mutex
	inputs [][2]string
}

func (e *fakeExtractor) Extract(ctx context.Context, latestMessage, recentContext string) model.ExtractedMemory {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inputs = append(e.inputs, [2]string{latestMessage, recentContext})
	return e.result
}

type fakeEmbedder struct {
	dimension int
	calls     atomic.Int32
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) []float32 {
	e.calls.Add(1)
	v := make([]float32, e.dimension)
	if e.dimension > 0 {
		v[0] = 1
	}
	return v
}

// spyVectorStore counts Store calls and delegates elsewhere
type spyVectorStore struct {
	interfaces.MemoryVectorStore
	stores atomic.Int32
}

func (s *spyVectorStore) Store(ctx context.Context, record *model.MemoryRecord) bool {
	s.stores.Add(1)
	return s.MemoryVectorStore.Store(ctx, record)
}

type fakeRealtime struct {
	mu     sync.Mutex
	events []model.RealtimeEvent
	err    error
}

func (p *fakeRealtime) Publish(ctx context.Context, convID model.ConversationID, event model.RealtimeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *fakeRealtime) Events() []model.RealtimeEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.RealtimeEvent(nil), p.events...)
}

type fakeNotifier struct {
	mu         sync.Mutex
	recipients []string
	sent       []model.PushNotification
}

func (n *fakeNotifier) SendToUser(ctx context.Context, userID string, push model.PushNotification) model.PushResult {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.recipients = append(n.recipients, userID)
	n.sent = append(n.sent, push)
	return model.PushResult{Success: true}
}

type fakeResolver struct {
	prompt   string
	payloads []model.EncodedAttachment
}

func (r *fakeResolver) Resolve(ctx context.Context, attachments []model.AttachmentRef, userText string) (string, []model.EncodedAttachment) {
	return r.prompt, r.payloads
}

// fixedClock always returns the same instant so ordering must come from sequencing
func fixedClock() func() time.Time {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

// steppingClock advances one second per call
func steppingClock() func() time.Time {
	var mu sync.Mutex
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		at = at.Add(time.Second)
		return at
	}
}

func createConversation(t *testing.T, uc *usecase.UseCases, owner string, mode types.ConversationMode) *model.Conversation {
	t.Helper()
	conv, err := uc.Conversation.CreateConversation(context.Background(), owner, "Meal log", mode)
	gt.NoError(t, err).Required()
	return conv
}
