package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
	"github.com/nutrisha-ai/nutrisha/pkg/service/notification"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Notification configures push delivery to staff devices
type Notification struct {
	fcmProjectID    string
	slackWebhookURL string `masq:"secret"`
}

func (x *Notification) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "fcm-project-id",
			Usage:       "Firebase project ID for Cloud Messaging (push disabled when empty)",
			Category:    "Notification",
			Sources:     cli.EnvVars("NUTRISHA_FCM_PROJECT_ID"),
			Destination: &x.fcmProjectID,
		},
		&cli.StringFlag{
			Name:        "slack-webhook-url",
			Usage:       "Slack incoming webhook that mirrors push notifications",
			Category:    "Notification",
			Sources:     cli.EnvVars("NUTRISHA_SLACK_WEBHOOK_URL"),
			Destination: &x.slackWebhookURL,
		},
	}
}

// Configure combines every configured channel. With none configured a no-op notifier
// is returned.
func (x *Notification) Configure(ctx context.Context, tokens interfaces.DeviceTokenRepository) (interfaces.Notifier, error) {
	var notifiers []interfaces.Notifier

	if x.fcmProjectID != "" {
		fcm, err := notification.NewFCM(ctx, x.fcmProjectID, tokens, nil)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize FCM notifier")
		}
		notifiers = append(notifiers, fcm)
		logging.Default().Info("FCM push notifications enabled", "project_id", x.fcmProjectID)
	}

	if x.slackWebhookURL != "" {
		mirror, err := notification.NewSlackMirror(x.slackWebhookURL)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize Slack mirror")
		}
		notifiers = append(notifiers, mirror)
		logging.Default().Info("Slack notification mirror enabled")
	}

	switch len(notifiers) {
	case 0:
		logging.Default().Info("Push notifications disabled")
		return &notification.Noop{}, nil
	case 1:
		return notifiers[0], nil
	default:
		return notification.NewMulti(notifiers...), nil
	}
}
