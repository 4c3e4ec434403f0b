package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/types"
)

func TestSequenceAfter(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("same instant is pushed forward", func(t *testing.T) {
		got := model.SequenceAfter(base, base)
		gt.Bool(t, got.After(base)).True()
		gt.Value(t, got.Sub(base)).Equal(model.MinOrderingGap)
	})

	t.Run("clock going backwards is pushed forward", func(t *testing.T) {
		got := model.SequenceAfter(base, base.Add(-time.Second))
		gt.Value(t, got).Equal(base.Add(model.MinOrderingGap))
	})

	t.Run("sub-resolution difference is pushed forward", func(t *testing.T) {
		got := model.SequenceAfter(base, base.Add(300*time.Nanosecond))
		gt.Value(t, got).Equal(base.Add(model.MinOrderingGap))
	})

	t.Run("later clock is kept", func(t *testing.T) {
		now := base.Add(2 * time.Second)
		gt.Value(t, model.SequenceAfter(base, now)).Equal(now)
	})
}

func TestNewAIMessage(t *testing.T) {
	created := time.Now()
	user := model.NewUserMessage("c1", "u1", "I had a banana today", types.MessageTypeText, nil, created)
	ai := model.NewAIMessage("c1", "Nice choice", user.CreatedAt, created)

	gt.Value(t, ai.SenderID).Nil()
	gt.Bool(t, ai.IsAIGenerated).True()
	gt.Bool(t, ai.IsAuthoredByAI()).True()
	gt.Value(t, ai.MessageType).Equal(types.MessageTypeText)
	gt.Bool(t, ai.CreatedAt.After(user.CreatedAt)).True()
	gt.Bool(t, user.IsAuthoredByAI()).False()
}

func TestNewUserMessage(t *testing.T) {
	size := int64(10)
	atts := []model.AttachmentRef{{Type: types.AttachmentTypeImage, Locator: "uploads/a.png", Size: &size}}
	msg := model.NewUserMessage("c1", "u1", "", "", atts, time.Now())

	gt.Value(t, msg.MessageType).Equal(types.MessageTypeText)
	gt.Value(t, *msg.SenderID).Equal("u1")
	gt.Bool(t, msg.IsAIGenerated).False()

	// caller-owned slices are not shared
	*atts[0].Size = 99
	gt.Value(t, *msg.Attachments[0].Size).Equal(int64(10))
}

func TestMessage_ToResponse(t *testing.T) {
	msg := model.NewUserMessage("c1", "u1", "hi", types.MessageTypeImage,
		[]model.AttachmentRef{{Type: types.AttachmentTypeImage, Locator: "uploads/a.png", Name: "a.png"}},
		time.Now())

	resp := msg.ToResponse()
	gt.Value(t, resp.ID).Equal(msg.ID)
	gt.Value(t, *resp.SenderID).Equal("u1")
	gt.Bool(t, resp.IsAIGenerated).False()
	gt.A(t, resp.Attachments).Length(1)
	gt.Value(t, resp.Attachments[0].URL).Equal("uploads/a.png")
	gt.Value(t, resp.Attachments[0].Ref().Locator).Equal("uploads/a.png")

	*resp.SenderID = "changed"
	gt.Value(t, *msg.SenderID).Equal("u1")
}

func TestMessage_Copy(t *testing.T) {
	msg := model.NewUserMessage("c1", "u1", "hi", types.MessageTypeText,
		[]model.AttachmentRef{{Type: types.AttachmentTypeVoice, Locator: "v.webm"}}, time.Now())

	copied := msg.Copy()
	*copied.SenderID = "u2"
	copied.Attachments[0].Locator = "other"

	gt.Value(t, *msg.SenderID).Equal("u1")
	gt.Value(t, msg.Attachments[0].Locator).Equal("v.webm")
}

func TestNewMessageCreatedEvent(t *testing.T) {
	msg := model.NewAIMessage("c1", "reply", time.Now(), time.Now())
	ev := model.NewMessageCreatedEvent(msg)

	gt.Value(t, ev.Type).Equal(model.RealtimeEventMessageCreated)
	gt.Value(t, ev.ConversationID).Equal(model.ConversationID("c1"))
	gt.Value(t, ev.Message.SenderID).Nil()
	gt.Bool(t, ev.Message.IsAIGenerated).True()
}
