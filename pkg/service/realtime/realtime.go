// Package realtime publishes conversation events to listening clients.
package realtime

import (
	"context"
	"log/slog"

	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/logging"
)

// ChannelName returns the pub/sub channel of a conversation
func ChannelName(convID model.ConversationID) string {
	return "conversation:" + string(convID)
}

// Noop drops events. Used when no realtime transport is configured.
type Noop struct{}

var _ interfaces.RealtimePublisher = Noop{}

func (Noop) Publish(ctx context.Context, convID model.ConversationID, event model.RealtimeEvent) error {
	logging.From(ctx).Debug("realtime transport disabled, event dropped",
		slog.String("channel", ChannelName(convID)),
		slog.String("type", event.Type))
	return nil
}
