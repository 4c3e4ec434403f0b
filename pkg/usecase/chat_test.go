package usecase_test

import (
	"context"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/types"
	"github.com/nutrisha-ai/nutrisha/pkg/service/generator"
	"github.com/nutrisha-ai/nutrisha/pkg/service/vectorstore"
	"github.com/nutrisha-ai/nutrisha/pkg/usecase"
)

type chatFixture struct {
	repo      *spyRepo
	gen       *fakeGenerator
	extractor *fakeExtractor
	embedder  *fakeEmbedder
	vectors   *spyVectorStore
	store     *vectorstore.Memory
	realtime  *fakeRealtime
	notifier  *fakeNotifier
	uc        *usecase.UseCases
}

func newChatFixture(opts ...usecase.Option) *chatFixture {
	f := &chatFixture{
		repo:      newSpyRepo(),
		gen:       &fakeGenerator{reply: "Bananas are a great source of potassium. (Content:0)"},
		extractor: &fakeExtractor{},
		embedder:  &fakeEmbedder{dimension: model.EmbeddingDimension},
		store:     vectorstore.NewMemory(),
		realtime:  &fakeRealtime{},
		notifier:  &fakeNotifier{},
	}
	f.vectors = &spyVectorStore{MemoryVectorStore: f.store}

	base := []usecase.Option{
		usecase.WithReplyGenerator(f.gen),
		usecase.WithMemoryExtractor(f.extractor),
		usecase.WithEmbedder(f.embedder),
		usecase.WithVectorStore(f.vectors),
		usecase.WithRealtime(f.realtime),
		usecase.WithNotifier(f.notifier),
		usecase.WithClock(steppingClock()),
	}
	f.uc = usecase.New(f.repo, append(base, opts...)...)
	return f
}

func (f *chatFixture) send(t *testing.T, userID string, role types.Role, convID model.ConversationID, content string) *model.MessageResponse {
	t.Helper()
	resp, err := f.uc.Chat.SendUserMessage(context.Background(), userID, role, usecase.SendMessageRequest{
		ConversationID: convID,
		Content:        content,
		MessageType:    types.MessageTypeText,
	})
	gt.NoError(t, err).Required()
	f.uc.Dispatcher().Wait()
	return resp
}

func (f *chatFixture) messages(t *testing.T, convID model.ConversationID) []*model.Message {
	t.Helper()
	msgs, err := f.repo.Message().List(context.Background(), convID, 100, 0)
	gt.NoError(t, err).Required()
	return msgs
}

func TestChatUseCase_SendUserMessage(t *testing.T) {
	t.Run("ai conversation receives exactly one later AI reply", func(t *testing.T) {
		// Every clock read returns the same instant
		f := newChatFixture(usecase.WithClock(fixedClock()))
		conv := createConversation(t, f.uc, "patient-1", types.ConversationModeAI)

		resp := f.send(t, "patient-1", types.RolePatient, conv.ID, "I had a banana today")
		gt.Value(t, resp.ID).NotEqual(model.MessageID(""))
		gt.Bool(t, resp.IsAIGenerated).False()
		gt.Value(t, resp.Content).Equal("I had a banana today")
		gt.Value(t, *resp.SenderID).Equal("patient-1")

		msgs := f.messages(t, conv.ID)
		gt.Array(t, msgs).Length(2).Required()
		gt.Value(t, msgs[0].ID).Equal(resp.ID)
		gt.Bool(t, msgs[1].IsAIGenerated).True()
		gt.Value(t, msgs[1].SenderID).Nil()
		gt.Value(t, msgs[1].Content).Equal("Bananas are a great source of potassium. (Content:0)")
		gt.Bool(t, msgs[1].CreatedAt.After(msgs[0].CreatedAt)).True()

		events := f.realtime.Events()
		gt.Array(t, events).Length(2)
		gt.Array(t, f.gen.Calls()).Length(1)
	})

	t.Run("human conversation never invokes the generator", func(t *testing.T) {
		f := newChatFixture()
		conv := createConversation(t, f.uc, "patient-1", types.ConversationModeHuman)

		f.send(t, "patient-1", types.RolePatient, conv.ID, "I had a banana today")

		gt.Array(t, f.gen.Calls()).Length(0)
		msgs := f.messages(t, conv.ID)
		gt.Array(t, msgs).Length(1)
		gt.Bool(t, msgs[0].IsAIGenerated).False()
	})

	t.Run("generator fallback is not persisted", func(t *testing.T) {
		for _, reply := range []string{generator.ReplyTechnicalIssue, generator.ReplyConfigurationIssue, generator.ReplyEmpty, "", "  "} {
			f := newChatFixture()
			f.gen.reply = reply
			conv := createConversation(t, f.uc, "patient-1", types.ConversationModeAI)

			resp := f.send(t, "patient-1", types.RolePatient, conv.ID, "hello")
			gt.Value(t, resp.Content).Equal("hello")

			gt.Array(t, f.gen.Calls()).Length(1)
			gt.Array(t, f.messages(t, conv.ID)).Length(1)
		}
	})

	t.Run("AI context lists history oldest first", func(t *testing.T) {
		f := newChatFixture()
		conv := createConversation(t, f.uc, "patient-1", types.ConversationModeAI)

		f.send(t, "patient-1", types.RolePatient, conv.ID, "first")
		f.send(t, "patient-1", types.RolePatient, conv.ID, "second")

		calls := f.gen.Calls()
		gt.Array(t, calls).Length(2).Required()
		gt.Value(t, calls[1].prompt).Equal("second")
		lines := strings.Split(calls[1].context, "\n")
		gt.Array(t, lines).Length(3).Required()
		gt.Value(t, lines[0]).Equal("User: first")
		gt.Bool(t, strings.HasPrefix(lines[1], "AI: ")).True()
		gt.Value(t, lines[2]).Equal("User: second")
	})

	t.Run("attachments go through the resolver", func(t *testing.T) {
		resolver := &fakeResolver{
			prompt:   "Please analyze the 1 image the user has shared. \n\nUser message: what is this?",
			payloads: []model.EncodedAttachment{{Type: model.EncodedAttachmentImage, MIMEType: "image/jpeg", Data: "AAAA"}},
		}
		f := newChatFixture(usecase.WithAttachmentResolver(resolver))
		conv := createConversation(t, f.uc, "patient-1", types.ConversationModeAI)

		_, err := f.uc.Chat.SendUserMessage(context.Background(), "patient-1", types.RolePatient, usecase.SendMessageRequest{
			ConversationID: conv.ID,
			Content:        "what is this?",
			MessageType:    types.MessageTypeImage,
			Attachments: []model.AttachmentRef{
				{Type: types.AttachmentTypeImage, Locator: "meal.jpg"},
			},
		})
		gt.NoError(t, err).Required()
		f.uc.Dispatcher().Wait()

		calls := f.gen.Calls()
		gt.Array(t, calls).Length(1).Required()
		gt.Value(t, calls[0].prompt).Equal(resolver.prompt)
		gt.Array(t, calls[0].attachments).Length(1)

		msgs := f.messages(t, conv.ID)
		gt.Array(t, msgs[0].Attachments).Length(1)
		gt.Value(t, msgs[0].MessageType).Equal(types.MessageTypeImage)
	})

	t.Run("conversation timestamp follows the message", func(t *testing.T) {
		f := newChatFixture()
		conv := createConversation(t, f.uc, "patient-1", types.ConversationModeHuman)

		resp := f.send(t, "patient-1", types.RolePatient, conv.ID, "hi")

		got, err := f.repo.Conversation().Get(context.Background(), conv.ID)
		gt.NoError(t, err).Required()
		gt.Bool(t, got.UpdatedAt.Equal(resp.CreatedAt)).True()
		gt.Number(t, f.repo.convs.touches.Load()).Equal(1)
	})
}

func TestChatUseCase_AccessErrors(t *testing.T) {
	t.Run("conversation of another user is denied without writes", func(t *testing.T) {
		f := newChatFixture()
		conv := createConversation(t, f.uc, "patient-1", types.ConversationModeAI)

		_, err := f.uc.Chat.SendUserMessage(context.Background(), "patient-2", types.RolePatient, usecase.SendMessageRequest{
			ConversationID: conv.ID,
			Content:        "let me in",
		})
		gt.Error(t, err).Is(usecase.ErrAccessDenied)
		f.uc.Dispatcher().Wait()

		gt.Number(t, f.repo.messages.creates.Load()).Equal(0)
		gt.Number(t, f.repo.convs.touches.Load()).Equal(0)
		gt.Array(t, f.messages(t, conv.ID)).Length(0)
		gt.Array(t, f.realtime.Events()).Length(0)
		gt.Array(t, f.gen.Calls()).Length(0)
	})

	t.Run("unknown conversation", func(t *testing.T) {
		f := newChatFixture()

		_, err := f.uc.Chat.SendUserMessage(context.Background(), "patient-1", types.RolePatient, usecase.SendMessageRequest{
			ConversationID: model.NewConversationID(),
			Content:        "hello",
		})
		gt.Error(t, err).Is(usecase.ErrConversationNotFound)
		gt.Number(t, f.repo.messages.creates.Load()).Equal(0)
	})

	t.Run("invalid request", func(t *testing.T) {
		f := newChatFixture()
		conv := createConversation(t, f.uc, "patient-1", types.ConversationModeAI)
		ctx := context.Background()

		_, err := f.uc.Chat.SendUserMessage(ctx, "patient-1", types.RolePatient, usecase.SendMessageRequest{})
		gt.Error(t, err).Is(usecase.ErrInvalidRequest)

		_, err = f.uc.Chat.SendUserMessage(ctx, "patient-1", types.RolePatient, usecase.SendMessageRequest{
			ConversationID: conv.ID,
			MessageType:    "sticker",
		})
		gt.Error(t, err).Is(usecase.ErrInvalidRequest)

		_, err = f.uc.Chat.SendUserMessage(ctx, "patient-1", types.RolePatient, usecase.SendMessageRequest{
			ConversationID: conv.ID,
			Attachments:    []model.AttachmentRef{{Type: "video", Locator: "a.mp4"}},
		})
		gt.Error(t, err).Is(usecase.ErrInvalidRequest)
		gt.Number(t, f.repo.messages.creates.Load()).Equal(0)
	})

	t.Run("persistence failure is surfaced and nothing is detached", func(t *testing.T) {
		f := newChatFixture()
		conv := createConversation(t, f.uc, "patient-1", types.ConversationModeAI)
		f.repo.messages.failCreate.Store(true)

		resp, err := f.uc.Chat.SendUserMessage(context.Background(), "patient-1", types.RolePatient, usecase.SendMessageRequest{
			ConversationID: conv.ID,
			Content:        "hello",
		})
		gt.Error(t, err).Is(usecase.ErrPersistence)
		gt.Value(t, resp).Nil()
		f.uc.Dispatcher().Wait()

		gt.Array(t, f.realtime.Events()).Length(0)
		gt.Array(t, f.gen.Calls()).Length(0)
		gt.Number(t, f.repo.convs.touches.Load()).Equal(0)

		stored, err := f.repo.Conversation().Get(context.Background(), conv.ID)
		gt.NoError(t, err).Required()
		gt.Bool(t, stored.UpdatedAt.Equal(conv.UpdatedAt)).True()
	})
}

func TestChatUseCase_MemoryPipeline(t *testing.T) {
	t.Run("saved memory is stored for the sender and conversation", func(t *testing.T) {
		f := newChatFixture()
		f.extractor.result = model.ExtractedMemory{
			ShouldSave: true,
			Summary:    "User ate a banana",
			Topics:     []string{"fruit"},
			Metadata:   map[string]string{"category": "diet"},
		}
		conv := createConversation(t, f.uc, "patient-1", types.ConversationModeHuman)

		f.send(t, "patient-1", types.RolePatient, conv.ID, "I had a banana today")

		gt.Number(t, f.store.Count()).Equal(1)
		query := make([]float32, model.EmbeddingDimension)
		query[0] = 1
		hits := f.store.Search(context.Background(), query, "patient-1", 10)
		gt.Array(t, hits).Length(1).Required()
		rec := hits[0].Record
		gt.Value(t, rec.UserID).Equal("patient-1")
		gt.Value(t, rec.ConversationID).Equal(conv.ID)
		gt.Value(t, rec.Summary).Equal("User ate a banana")
		gt.Value(t, rec.MessageContent).Equal("I had a banana today")
		gt.Array(t, rec.Embedding).Length(model.EmbeddingDimension)
	})

	t.Run("extractor sees the history before the new message", func(t *testing.T) {
		f := newChatFixture()
		conv := createConversation(t, f.uc, "patient-1", types.ConversationModeHuman)

		f.send(t, "patient-1", types.RolePatient, conv.ID, "I am vegetarian")
		f.send(t, "patient-1", types.RolePatient, conv.ID, "I had lentils")

		gt.Array(t, f.extractor.inputs).Length(2).Required()
		gt.Value(t, f.extractor.inputs[0]).Equal([2]string{"I am vegetarian", ""})
		gt.Value(t, f.extractor.inputs[1]).Equal([2]string{"I had lentils", "User: I am vegetarian"})
	})

	t.Run("empty embedding never reaches the store", func(t *testing.T) {
		f := newChatFixture()
		f.embedder.dimension = 0
		f.extractor.result = model.ExtractedMemory{ShouldSave: true, Summary: "User ate a banana"}
		conv := createConversation(t, f.uc, "patient-1", types.ConversationModeAI)

		resp := f.send(t, "patient-1", types.RolePatient, conv.ID, "I had a banana today")
		gt.Value(t, resp.Content).Equal("I had a banana today")

		gt.Number(t, f.embedder.calls.Load()).Equal(1)
		gt.Number(t, f.vectors.stores.Load()).Equal(0)
		gt.Number(t, f.store.Count()).Equal(0)
	})

	t.Run("nothing to remember", func(t *testing.T) {
		f := newChatFixture()
		conv := createConversation(t, f.uc, "patient-1", types.ConversationModeHuman)

		f.send(t, "patient-1", types.RolePatient, conv.ID, "ok")

		gt.Number(t, f.embedder.calls.Load()).Equal(0)
		gt.Number(t, f.vectors.stores.Load()).Equal(0)
	})

	t.Run("failing realtime does not affect the send", func(t *testing.T) {
		f := newChatFixture()
		f.realtime.err = context.DeadlineExceeded
		conv := createConversation(t, f.uc, "patient-1", types.ConversationModeAI)

		resp := f.send(t, "patient-1", types.RolePatient, conv.ID, "hello")
		gt.Value(t, resp.Content).Equal("hello")
		gt.Array(t, f.messages(t, conv.ID)).Length(2)
	})
}

func TestChatUseCase_PushNotification(t *testing.T) {
	t.Run("staff message notifies the owner", func(t *testing.T) {
		f := newChatFixture()
		conv := createConversation(t, f.uc, "patient-1", types.ConversationModeHuman)

		resp := f.send(t, "nutritionist-1", types.RoleNutritionist, conv.ID, "Remember to drink water")

		gt.Array(t, f.notifier.recipients).Length(1).Required()
		gt.Value(t, f.notifier.recipients[0]).Equal("patient-1")
		push := f.notifier.sent[0]
		gt.Value(t, push.Title).Equal(usecase.PushTitleStaffMessage)
		gt.Value(t, push.Body).Equal("Remember to drink water")
		gt.Value(t, push.Data).Equal(map[string]string{
			"type":           "message",
			"conversationId": conv.ID.String(),
			"senderId":       "nutritionist-1",
			"messageType":    "text",
		})
		gt.Value(t, *resp.SenderID).Equal("nutritionist-1")
	})

	t.Run("long body is truncated", func(t *testing.T) {
		f := newChatFixture()
		conv := createConversation(t, f.uc, "patient-1", types.ConversationModeHuman)

		f.send(t, "nutritionist-1", types.RoleNutritionist, conv.ID, strings.Repeat("a", 150))

		gt.Array(t, f.notifier.sent).Length(1).Required()
		gt.Value(t, f.notifier.sent[0].Body).Equal(strings.Repeat("a", 100) + "...")
	})

	t.Run("empty content uses the placeholder body", func(t *testing.T) {
		f := newChatFixture()
		conv := createConversation(t, f.uc, "patient-1", types.ConversationModeHuman)

		f.send(t, "admin-1", types.RoleAdmin, conv.ID, "")

		gt.Array(t, f.notifier.sent).Length(1).Required()
		gt.Value(t, f.notifier.sent[0].Body).Equal(usecase.PushBodyEmpty)
	})

	t.Run("patient message does not notify", func(t *testing.T) {
		f := newChatFixture()
		conv := createConversation(t, f.uc, "patient-1", types.ConversationModeHuman)

		f.send(t, "patient-1", types.RolePatient, conv.ID, "hello")
		gt.Array(t, f.notifier.sent).Length(0)
	})

	t.Run("staff writing in own conversation does not notify", func(t *testing.T) {
		f := newChatFixture()
		conv := createConversation(t, f.uc, "nutritionist-1", types.ConversationModeHuman)

		f.send(t, "nutritionist-1", types.RoleNutritionist, conv.ID, "note to self")
		gt.Array(t, f.notifier.sent).Length(0)
	})

	t.Run("staff roles are configurable", func(t *testing.T) {
		f := newChatFixture(usecase.WithStaffPolicy(types.NewStaffPolicy("coach")))
		conv := createConversation(t, f.uc, "patient-1", types.ConversationModeHuman)

		f.send(t, "coach-1", "coach", conv.ID, "keep going")
		gt.Array(t, f.notifier.sent).Length(1)
	})
}
