package generator_test

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/service/generator"
	"google.golang.org/genai"
)

type mockModels struct {
	mu       sync.Mutex
	calls    int
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	resp     *genai.GenerateContentResponse
	err      error
}

func (m *mockModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.model = model
	m.contents = contents
	m.config = config
	return m.resp, m.err
}

type mapConfig map[string]string

func (c mapConfig) Get(ctx context.Context, key string) (string, bool) {
	v, ok := c[key]
	return v, ok
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func templates() mapConfig {
	return mapConfig{
		model.ConfigKeySystemPrompt:          "You are Risha.\nContext:\n{conversationContext}",
		model.ConfigKeyResponseJSONStructure: `Respond as {"reply": string, "contentCategory": 0|1|2}`,
	}
}

func TestGenerateReply_BuildsPromptAndFormats(t *testing.T) {
	models := &mockModels{resp: textResponse(`{"reply": "Great choice!", "contentCategory": 1}`)}
	g := generator.New(models, templates(), generator.WithModel("gemini-test"))

	reply := g.GenerateReply(context.Background(), "I had a banana today", "User: hi\nAI: hello", nil)
	gt.Value(t, reply).Equal("Great choice! (Content:1)")

	gt.Value(t, models.calls).Equal(1)
	gt.Value(t, models.model).Equal("gemini-test")
	gt.Array(t, models.contents).Length(1).Required()
	parts := models.contents[0].Parts
	gt.Array(t, parts).Length(1).Required()
	gt.Value(t, parts[0].Text).Equal(
		"You are Risha.\nContext:\nUser: hi\nAI: hello" +
			"\n\nUser Message: I had a banana today\n\n" +
			`Respond as {"reply": string, "contentCategory": 0|1|2}`)

	gt.Value(t, *models.config.Temperature).Equal(float32(0.7))
	gt.Value(t, models.config.MaxOutputTokens).Equal(int32(8192))
}

func TestGenerateReply_EmptyContextPlaceholder(t *testing.T) {
	models := &mockModels{resp: textResponse(`{"reply": "Welcome", "contentCategory": 0}`)}
	g := generator.New(models, templates())

	g.GenerateReply(context.Background(), "hello", "", nil)
	gt.Bool(t, strings.Contains(models.contents[0].Parts[0].Text, "This is the start of a new conversation.")).True()
}

func TestGenerateReply_InlinesAttachments(t *testing.T) {
	models := &mockModels{resp: textResponse(`{"reply": "Looks tasty", "contentCategory": 0}`)}
	g := generator.New(models, templates())

	attachments := []model.EncodedAttachment{
		{Type: model.EncodedAttachmentImage, MIMEType: "image/png", Data: base64.StdEncoding.EncodeToString([]byte("png"))},
		{Type: model.EncodedAttachmentAudio, MIMEType: "audio/webm", Data: base64.StdEncoding.EncodeToString([]byte("webm"))},
		{Type: model.EncodedAttachmentDocument, MIMEType: "application/pdf", Data: "%%%not-base64"},
	}
	g.GenerateReply(context.Background(), "what about this?", "", attachments)

	parts := models.contents[0].Parts
	gt.Array(t, parts).Length(3).Required()
	gt.Value(t, parts[1].InlineData.MIMEType).Equal("image/png")
	gt.Value(t, string(parts[1].InlineData.Data)).Equal("png")
	gt.Value(t, parts[2].InlineData.MIMEType).Equal("audio/webm")
}

func TestGenerateReply_MissingConfiguration(t *testing.T) {
	testCases := map[string]mapConfig{
		"no templates":       {},
		"no system prompt":   {model.ConfigKeyResponseJSONStructure: "json"},
		"no json structure":  {model.ConfigKeySystemPrompt: "prompt"},
		"empty system value": {model.ConfigKeySystemPrompt: "", model.ConfigKeyResponseJSONStructure: "json"},
	}

	for name, cfg := range testCases {
		t.Run(name, func(t *testing.T) {
			models := &mockModels{resp: textResponse("unused")}
			g := generator.New(models, cfg)

			reply := g.GenerateReply(context.Background(), "hello", "", nil)
			gt.Value(t, reply).Equal(generator.ReplyConfigurationIssue)
			gt.Value(t, models.calls).Equal(0)
		})
	}
}

func TestGenerateReply_RemoteFailure(t *testing.T) {
	models := &mockModels{err: errors.New("deadline exceeded")}
	g := generator.New(models, templates())

	gt.Value(t, g.GenerateReply(context.Background(), "hello", "", nil)).Equal(generator.ReplyTechnicalIssue)
}

func TestGenerateReply_EmptyResponses(t *testing.T) {
	testCases := map[string]*genai.GenerateContentResponse{
		"nil response":  nil,
		"no candidates": {},
		"nil content":   {Candidates: []*genai.Candidate{{}}},
		"no parts":      {Candidates: []*genai.Candidate{{Content: &genai.Content{}}}},
		"no text part": {Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: "image/png"}},
		}}}}},
	}

	for name, resp := range testCases {
		t.Run(name, func(t *testing.T) {
			g := generator.New(&mockModels{resp: resp}, templates())
			gt.Value(t, g.GenerateReply(context.Background(), "hello", "", nil)).Equal(generator.ReplyEmpty)
		})
	}
}
