// Package embedding converts memory summaries into vectors.
package embedding

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/logging"
)

// Generator is the part of gollem.LLMClient used for embeddings
type Generator interface {
	GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error)
}

// Client wraps an embedding endpoint. It never returns errors; failures produce an
// empty vector.
type Client struct {
	gen       Generator
	dimension int
}

var _ interfaces.Embedder = &Client{}

type Option func(*Client)

// WithDimension overrides the requested vector length
func WithDimension(dim int) Option {
	return func(c *Client) {
		c.dimension = dim
	}
}

func New(gen Generator, opts ...Option) *Client {
	c := &Client{
		gen:       gen,
		dimension: model.EmbeddingDimension,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Embed returns the embedding of text, or an empty vector when text is blank or the
// endpoint fails
func (c *Client) Embed(ctx context.Context, text string) []float32 {
	if strings.TrimSpace(text) == "" {
		return []float32{}
	}

	vec, err := c.generate(ctx, text)
	if err != nil {
		logging.From(ctx).Warn("failed to generate embedding",
			slog.Any("error", err),
			slog.Int("text_length", len(text)))
		return []float32{}
	}
	return vec
}

// EmbedBatch embeds each text in order, one request per text
func (c *Client) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	result := make([][]float32, len(texts))
	for i, text := range texts {
		result[i] = c.Embed(ctx, text)
	}
	return result
}

func (c *Client) generate(ctx context.Context, text string) ([]float32, error) {
	if c.gen == nil {
		return nil, goerr.New("embedding generator is not configured")
	}

	embeddings, err := c.gen.GenerateEmbedding(ctx, c.dimension, []string{text})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate embedding")
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, goerr.New("no embedding returned")
	}

	// Convert float64 to float32
	result := make([]float32, len(embeddings[0]))
	for i, v := range embeddings[0] {
		result[i] = float32(v)
	}
	return result, nil
}
