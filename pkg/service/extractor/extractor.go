// Package extractor decides which parts of a conversation are worth remembering.
package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/logging"
)

// MaxSummaryLength is the longest summary kept, in runes
const MaxSummaryLength = 200

const newConversationContext = "This is the start of a conversation."

// Extractor asks an LLM for a memory decision in one JSON-schema constrained call
type Extractor struct {
	llm gollem.LLMClient
}

var _ interfaces.MemoryExtractor = &Extractor{}

func New(llm gollem.LLMClient) *Extractor {
	return &Extractor{llm: llm}
}

type llmResponse struct {
	Summary    string         `json:"summary"`
	ShouldSave bool           `json:"shouldSave"`
	Topics     []string       `json:"topics"`
	Metadata   map[string]any `json:"metadata"`
}

// Extract never fails. Any problem yields ShouldSave=false with empty fields.
func (e *Extractor) Extract(ctx context.Context, latestMessage, recentContext string) model.ExtractedMemory {
	result, err := e.extract(ctx, latestMessage, recentContext)
	if err != nil {
		logging.From(ctx).Warn("memory extraction failed", slog.Any("error", err))
		return model.ExtractedMemory{}
	}
	return result
}

func (e *Extractor) extract(ctx context.Context, latestMessage, recentContext string) (model.ExtractedMemory, error) {
	if e.llm == nil {
		return model.ExtractedMemory{}, goerr.New("LLM client is not configured")
	}

	session, err := e.llm.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(responseSchema()),
		gollem.WithSessionSystemPrompt(systemPrompt),
	)
	if err != nil {
		return model.ExtractedMemory{}, goerr.Wrap(err, "failed to create LLM session")
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(buildUserPrompt(latestMessage, recentContext)))
	if err != nil {
		return model.ExtractedMemory{}, goerr.Wrap(err, "failed to generate content from LLM")
	}
	if resp == nil || len(resp.Texts) == 0 {
		return model.ExtractedMemory{}, goerr.New("LLM returned no text")
	}

	raw := strings.Join(resp.Texts, "")
	var parsed llmResponse
	if err := json.Unmarshal([]byte(jsonBody(raw)), &parsed); err != nil {
		return model.ExtractedMemory{}, goerr.Wrap(err, "failed to parse LLM response", goerr.V("response", raw))
	}

	result := model.ExtractedMemory{
		ShouldSave: parsed.ShouldSave,
		Summary:    truncate(strings.TrimSpace(parsed.Summary), MaxSummaryLength),
		Metadata:   make(map[string]string, len(parsed.Metadata)),
	}
	for _, t := range parsed.Topics {
		if t = strings.TrimSpace(t); t != "" {
			result.Topics = append(result.Topics, t)
		}
	}
	for k, v := range parsed.Metadata {
		result.Metadata[k] = stringify(v)
	}

	logging.From(ctx).Debug("extracted memory",
		slog.Bool("should_save", result.ShouldSave),
		slog.Int("topics", len(result.Topics)))
	return result, nil
}

// jsonBody strips markdown fences or surrounding prose some models add despite the schema
func jsonBody(raw string) string {
	s := strings.TrimSpace(raw)
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool, float64:
		return fmt.Sprintf("%v", x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(b)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
