package attachment_test

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/types"
	"github.com/nutrisha-ai/nutrisha/pkg/service/attachment"
	"github.com/nutrisha-ai/nutrisha/pkg/service/storage"
)

func newStore(t *testing.T, objects map[string]string) *storage.Memory {
	t.Helper()
	store := storage.NewMemory("")
	for locator, data := range objects {
		gt.NoError(t, store.Put(locator, attachment.DefaultContainer, []byte(data))).Required()
	}
	return store
}

func TestResolve_NoAttachments(t *testing.T) {
	r := attachment.New(storage.NewMemory(""))

	prompt, payloads := r.Resolve(context.Background(), nil, "I had a banana today")
	gt.Value(t, prompt).Equal("I had a banana today")
	gt.Array(t, payloads).Length(0)
}

func TestResolve_OrderAndPrefix(t *testing.T) {
	store := newStore(t, map[string]string{
		"u1/report.pdf": "pdf",
		"u1/note.m4a":   "audio",
		"u1/meal.png":   "png",
		"u1/snack.jpg":  "jpg",
	})
	r := attachment.New(store)

	attachments := []model.AttachmentRef{
		{Type: types.AttachmentTypeDocument, Locator: "u1/report.pdf"},
		{Type: types.AttachmentTypeVoice, Locator: "u1/note.m4a"},
		{Type: types.AttachmentTypeImage, Locator: "u1/meal.png"},
		{Type: types.AttachmentTypeImage, Locator: "u1/snack.jpg"},
	}

	prompt, payloads := r.Resolve(context.Background(), attachments, "what do you think?")

	gt.Value(t, prompt).Equal(
		"Please analyze the 2 images the user has shared. " +
			"Please transcribe and respond to the 1 voice note from the user. " +
			"Please analyze the 1 document the user has provided. " +
			"\n\nUser message: what do you think?")

	gt.Array(t, payloads).Length(4).Required()
	gt.Value(t, payloads[0].Type).Equal(model.EncodedAttachmentImage)
	gt.Value(t, payloads[0].MIMEType).Equal("image/png")
	gt.Value(t, payloads[0].Data).Equal(base64.StdEncoding.EncodeToString([]byte("png")))
	gt.Value(t, payloads[1].MIMEType).Equal("image/jpeg")
	gt.Value(t, payloads[2].Type).Equal(model.EncodedAttachmentAudio)
	gt.Value(t, payloads[2].MIMEType).Equal("audio/mp4")
	gt.Value(t, payloads[3].Type).Equal(model.EncodedAttachmentDocument)
	gt.Value(t, payloads[3].MIMEType).Equal("application/pdf")
}

func TestResolve_EmptyTextPlaceholder(t *testing.T) {
	store := newStore(t, map[string]string{"u1/voice.webm": "audio"})
	r := attachment.New(store)

	prompt, payloads := r.Resolve(context.Background(), []model.AttachmentRef{
		{Type: types.AttachmentTypeVoice, Locator: "u1/voice.webm"},
	}, "")

	gt.Bool(t, strings.HasSuffix(prompt, "\n\nUser message: No text message")).True()
	gt.Array(t, payloads).Length(1)
}

func TestResolve_PartialFailure(t *testing.T) {
	store := newStore(t, map[string]string{
		"u1/a.png": "a",
		"u1/c.png": "c",
	})
	r := attachment.New(store)

	attachments := []model.AttachmentRef{
		{Type: types.AttachmentTypeImage, Locator: "u1/a.png"},
		{Type: types.AttachmentTypeImage, Locator: "u1/missing.png"},
		{Type: types.AttachmentTypeImage, Locator: "u1/c.png"},
	}

	prompt, payloads := r.Resolve(context.Background(), attachments, "lunch")

	gt.Value(t, prompt).Equal("Please analyze the 2 images the user has shared. \n\nUser message: lunch")
	gt.Array(t, payloads).Length(2).Required()
	gt.Value(t, payloads[0].Data).Equal(base64.StdEncoding.EncodeToString([]byte("a")))
	gt.Value(t, payloads[1].Data).Equal(base64.StdEncoding.EncodeToString([]byte("c")))
}

func TestResolve_AllFailedPassesTextThrough(t *testing.T) {
	r := attachment.New(storage.NewMemory(""))

	prompt, payloads := r.Resolve(context.Background(), []model.AttachmentRef{
		{Type: types.AttachmentTypeDocument, Locator: "u1/missing.pdf"},
	}, "hello")

	gt.Value(t, prompt).Equal("hello")
	gt.Array(t, payloads).Length(0)
}

func TestResolve_OversizeSkipped(t *testing.T) {
	store := newStore(t, map[string]string{
		"u1/big.png":   strings.Repeat("x", 32),
		"u1/small.png": "x",
	})
	r := attachment.New(store, attachment.WithMaxBlobSize(16))

	_, payloads := r.Resolve(context.Background(), []model.AttachmentRef{
		{Type: types.AttachmentTypeImage, Locator: "u1/big.png"},
		{Type: types.AttachmentTypeImage, Locator: "u1/small.png"},
	}, "")

	gt.Array(t, payloads).Length(1)
}

func TestMIMEType(t *testing.T) {
	testCases := []struct {
		locator  string
		fallback string
		want     string
	}{
		{"meal.JPEG", "x", "image/jpeg"},
		{"https://storage.googleapis.com/b/voice.ogg?token=abc", "x", "audio/ogg"},
		{"gs://b/doc.docx", "x", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{"notes.txt", "x", "text/plain"},
		{"unknown.heic", "image/jpeg", "image/jpeg"},
		{"noext", "audio/webm", "audio/webm"},
	}

	for _, tc := range testCases {
		t.Run(tc.locator, func(t *testing.T) {
			gt.Value(t, attachment.MIMEType(tc.locator, tc.fallback)).Equal(tc.want)
		})
	}
}
