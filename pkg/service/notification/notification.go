// Package notification delivers push notifications to user devices.
package notification

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/logging"
)

// Noop reports every delivery as skipped
type Noop struct{}

var _ interfaces.Notifier = Noop{}

func (Noop) SendToUser(ctx context.Context, userID string, n model.PushNotification) model.PushResult {
	logging.From(ctx).Debug("push notifications disabled",
		slog.String("user_id", userID),
		slog.String("title", n.Title))
	return model.PushResult{Success: false, Error: "push notifications are disabled"}
}

// Multi sends through every notifier. It succeeds when at least one of them does.
type Multi struct {
	notifiers []interfaces.Notifier
}

var _ interfaces.Notifier = &Multi{}

func NewMulti(notifiers ...interfaces.Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

func (m *Multi) SendToUser(ctx context.Context, userID string, n model.PushNotification) model.PushResult {
	if len(m.notifiers) == 0 {
		return model.PushResult{Error: "no notifier configured"}
	}

	var (
		success bool
		errs    []string
	)
	for _, notifier := range m.notifiers {
		result := notifier.SendToUser(ctx, userID, n)
		if result.Success {
			success = true
			continue
		}
		if result.Error != "" {
			errs = append(errs, result.Error)
		}
	}

	if success {
		return model.PushResult{Success: true}
	}
	return model.PushResult{Error: strings.Join(errs, "; ")}
}
