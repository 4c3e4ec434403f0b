package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
	"github.com/nutrisha-ai/nutrisha/pkg/service/generator"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

// Gemini holds configuration for the Gemini clients. The reply generator talks to
// genai directly for multimodal input; embeddings and memory extraction go through gollem.
type Gemini struct {
	projectID   string
	location    string
	model       string
	temperature float64
	maxTokens   int
}

// Flags returns CLI flags for Gemini configuration
func (g *Gemini) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini API",
			Category:    "Gemini",
			Sources:     cli.EnvVars("NUTRISHA_GEMINI_PROJECT"),
			Destination: &g.projectID,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini API",
			Category:    "Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("NUTRISHA_GEMINI_LOCATION"),
			Destination: &g.location,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Model used for nutritionist replies",
			Category:    "Gemini",
			Value:       generator.DefaultModel,
			Sources:     cli.EnvVars("NUTRISHA_GEMINI_MODEL"),
			Destination: &g.model,
		},
		&cli.FloatFlag{
			Name:        "gemini-temperature",
			Usage:       "Sampling temperature for replies",
			Category:    "Gemini",
			Value:       generator.DefaultTemperature,
			Sources:     cli.EnvVars("NUTRISHA_GEMINI_TEMPERATURE"),
			Destination: &g.temperature,
		},
		&cli.IntFlag{
			Name:        "gemini-max-output-tokens",
			Usage:       "Maximum output tokens for replies",
			Category:    "Gemini",
			Value:       generator.DefaultMaxOutputTokens,
			Sources:     cli.EnvVars("NUTRISHA_GEMINI_MAX_OUTPUT_TOKENS"),
			Destination: &g.maxTokens,
		},
	}
}

// LogAttrs returns log attributes for the Gemini configuration
func (g *Gemini) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("project_id", g.projectID),
		slog.String("location", g.location),
		slog.String("model", g.model),
	}
}

// IsEnabled reports whether a project is configured
func (g *Gemini) IsEnabled() bool {
	return g.projectID != ""
}

// ConfigureLLM creates the gollem client used for embeddings and memory extraction.
// Returns nil if projectID is not configured (memory features will be disabled).
func (g *Gemini) ConfigureLLM(ctx context.Context) (gollem.LLMClient, error) {
	if g.projectID == "" {
		return nil, nil
	}

	client, err := gemini.New(ctx, g.projectID, g.location)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Gemini client")
	}

	return client, nil
}

// ConfigureGenerator creates the reply generator. Returns nil if projectID is not
// configured (AI replies will be disabled).
func (g *Gemini) ConfigureGenerator(ctx context.Context, store interfaces.ConfigStore) (*generator.Generator, error) {
	if g.projectID == "" {
		return nil, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  g.projectID,
		Location: g.location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}

	return generator.New(client.Models, store,
		generator.WithModel(g.model),
		generator.WithTemperature(float32(g.temperature)),
		generator.WithMaxOutputTokens(int32(g.maxTokens)),
	), nil
}
