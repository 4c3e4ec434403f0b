// Package generator produces the nutritionist's reply with a Gemini model.
package generator

import (
	"context"
	"encoding/base64"
	"log/slog"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/logging"
	"google.golang.org/genai"
)

const (
	DefaultModel           = "gemini-2.0-flash"
	DefaultTemperature     = 0.7
	DefaultMaxOutputTokens = 8192
)

// User-facing fallbacks
const (
	ReplyConfigurationIssue = "I apologize, but I'm experiencing configuration issues. Please try again later."
	ReplyTechnicalIssue     = "I apologize, but I'm experiencing technical difficulties. Please try again later."
	ReplyEmpty              = "I couldn't generate a response."
)

const newConversationContext = "This is the start of a new conversation."

// ContentGenerator is the part of genai.Models used here
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator builds the prompt from configured templates and asks the model for a reply
type Generator struct {
	models          ContentGenerator
	config          interfaces.ConfigStore
	model           string
	temperature     float32
	maxOutputTokens int32
}

var _ interfaces.ReplyGenerator = &Generator{}

type Option func(*Generator)

func WithModel(name string) Option {
	return func(g *Generator) {
		g.model = name
	}
}

func WithTemperature(t float32) Option {
	return func(g *Generator) {
		g.temperature = t
	}
}

func WithMaxOutputTokens(n int32) Option {
	return func(g *Generator) {
		g.maxOutputTokens = n
	}
}

func New(models ContentGenerator, config interfaces.ConfigStore, opts ...Option) *Generator {
	g := &Generator{
		models:          models,
		config:          config,
		model:           DefaultModel,
		temperature:     DefaultTemperature,
		maxOutputTokens: DefaultMaxOutputTokens,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateReply returns the formatted reply. It never fails: missing templates and remote
// errors produce fixed apology texts.
func (g *Generator) GenerateReply(ctx context.Context, userPrompt, conversationContext string, attachments []model.EncodedAttachment) string {
	logger := logging.From(ctx)

	prompt, ok := g.buildPrompt(ctx, userPrompt, conversationContext)
	if !ok {
		logger.Warn("reply templates are not configured",
			slog.String("system_prompt_key", model.ConfigKeySystemPrompt),
			slog.String("json_structure_key", model.ConfigKeyResponseJSONStructure))
		return ReplyConfigurationIssue
	}

	raw, err := g.generate(ctx, prompt, attachments)
	if err != nil {
		logger.Error("failed to generate reply", slog.Any("error", err))
		return ReplyTechnicalIssue
	}
	if raw == "" {
		return ReplyEmpty
	}

	return ParseReply(raw).Format()
}

func (g *Generator) buildPrompt(ctx context.Context, userPrompt, conversationContext string) (string, bool) {
	if g.config == nil {
		return "", false
	}
	template, ok := g.config.Get(ctx, model.ConfigKeySystemPrompt)
	if !ok || template == "" {
		return "", false
	}
	jsonStructure, ok := g.config.Get(ctx, model.ConfigKeyResponseJSONStructure)
	if !ok || jsonStructure == "" {
		return "", false
	}

	if strings.TrimSpace(conversationContext) == "" {
		conversationContext = newConversationContext
	}
	systemPrompt := strings.ReplaceAll(template, model.ConversationContextPlaceholder, conversationContext)

	return systemPrompt + "\n\nUser Message: " + userPrompt + "\n\n" + jsonStructure, true
}

// generate returns the first text part of the first candidate, or "" when the response
// carries no text
func (g *Generator) generate(ctx context.Context, prompt string, attachments []model.EncodedAttachment) (string, error) {
	if g.models == nil {
		return "", goerr.New("content generator is not configured")
	}

	parts := []*genai.Part{{Text: prompt}}
	for _, a := range attachments {
		if a.Data == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(a.Data)
		if err != nil {
			logging.From(ctx).Warn("skip attachment with invalid encoding",
				slog.String("type", string(a.Type)), slog.Any("error", err))
			continue
		}
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: a.MIMEType, Data: data},
		})
	}

	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temperature),
		TopK:            genai.Ptr[float32](40),
		TopP:            genai.Ptr[float32](0.95),
		MaxOutputTokens: g.maxOutputTokens,
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate content",
			goerr.V("model", g.model),
			goerr.V("attachments", len(attachments)))
	}

	return firstText(resp), nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	c := resp.Candidates[0]
	if c == nil || c.Content == nil || len(c.Content.Parts) == 0 {
		return ""
	}
	for _, p := range c.Content.Parts {
		if p != nil && p.Text != "" {
			return p.Text
		}
	}
	return ""
}

// IsFallback reports whether reply is one of the fixed texts returned when no real reply
// was generated
func IsFallback(reply string) bool {
	switch reply {
	case ReplyConfigurationIssue, ReplyTechnicalIssue, ReplyEmpty:
		return true
	default:
		return false
	}
}
