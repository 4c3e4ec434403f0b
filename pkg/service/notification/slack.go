package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/logging"
	"github.com/slack-go/slack"
)

// PostWebhookFunc matches slack.PostWebhookContext
type PostWebhookFunc func(ctx context.Context, url string, msg *slack.WebhookMessage) error

// SlackMirror posts a copy of every push notification to a Slack incoming webhook.
// Operators use it to watch push traffic in development.
type SlackMirror struct {
	webhookURL string
	post       PostWebhookFunc
}

var _ interfaces.Notifier = &SlackMirror{}

type SlackMirrorOption func(*SlackMirror)

// WithPostWebhook replaces the webhook transport
func WithPostWebhook(fn PostWebhookFunc) SlackMirrorOption {
	return func(s *SlackMirror) {
		s.post = fn
	}
}

func NewSlackMirror(webhookURL string, opts ...SlackMirrorOption) (*SlackMirror, error) {
	if webhookURL == "" {
		return nil, goerr.New("slack webhook URL is required")
	}

	s := &SlackMirror{
		webhookURL: webhookURL,
		post:       slack.PostWebhookContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SlackMirror) SendToUser(ctx context.Context, userID string, n model.PushNotification) model.PushResult {
	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf("Push to %s: %s", userID, n.Title),
		Blocks: &slack.Blocks{
			BlockSet: []slack.Block{
				slack.NewSectionBlock(
					slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*%s*\n%s", n.Title, n.Body), false, false),
					nil, nil,
				),
				slack.NewContextBlock("",
					slack.NewTextBlockObject(slack.MarkdownType, contextLine(userID, n.Data), false, false),
				),
			},
		},
	}

	if err := s.post(ctx, s.webhookURL, msg); err != nil {
		logging.From(ctx).Warn("failed to mirror push notification to slack",
			"error", err,
			slog.String("user_id", userID))
		return model.PushResult{Error: err.Error()}
	}
	return model.PushResult{Success: true}
}

func contextLine(userID string, data map[string]string) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := []string{"user: `" + userID + "`"}
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: `%s`", k, data[k]))
	}
	return strings.Join(parts, " | ")
}
