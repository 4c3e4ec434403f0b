package notification

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/logging"
	fcm "google.golang.org/api/fcm/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	defaultSendTimeout   = 10 * time.Second
	androidIcon          = "ic_notification"
	androidColor         = "#FF6B35"
	errNoTokens          = "No FCM tokens found for user"
	errAllDeliveryFailed = "failed to deliver to any device"
)

// FCM sends notifications through the Firebase Cloud Messaging HTTP v1 API to every
// active device token of a user. Tokens reported as unregistered are deactivated.
type FCM struct {
	service   *fcm.Service
	projectID string
	tokens    interfaces.DeviceTokenRepository
	timeout   time.Duration
}

var _ interfaces.Notifier = &FCM{}

type FCMOption func(*FCM)

// WithSendTimeout bounds each send call
func WithSendTimeout(d time.Duration) FCMOption {
	return func(f *FCM) {
		f.timeout = d
	}
}

func NewFCM(ctx context.Context, projectID string, tokens interfaces.DeviceTokenRepository, clientOpts []option.ClientOption, opts ...FCMOption) (*FCM, error) {
	if projectID == "" {
		return nil, goerr.New("FCM project ID is required")
	}

	svc, err := fcm.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create FCM service", goerr.V("project_id", projectID))
	}

	f := &FCM{
		service:   svc,
		projectID: projectID,
		tokens:    tokens,
		timeout:   defaultSendTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *FCM) SendToUser(ctx context.Context, userID string, n model.PushNotification) model.PushResult {
	logger := logging.From(ctx).With(slog.String("user_id", userID))

	devices, err := f.tokens.ListActive(ctx, userID)
	if err != nil {
		logger.Error("failed to list device tokens", "error", err)
		return model.PushResult{Error: err.Error()}
	}
	if len(devices) == 0 {
		return model.PushResult{Error: errNoTokens}
	}

	var sent, failed int
	for _, device := range devices {
		if err := f.send(ctx, device.Token, n); err != nil {
			failed++
			logger.Warn("failed to send push notification",
				"error", err,
				slog.String("platform", string(device.Platform)))

			if isUnregistered(err) {
				if err := f.tokens.Deactivate(ctx, userID, device.Token); err != nil && !errors.Is(err, interfaces.ErrNotFound) {
					logger.Warn("failed to deactivate device token", "error", err)
				}
			}
			continue
		}
		sent++
	}

	logger.Info("push notification sent",
		slog.Int("success_count", sent),
		slog.Int("failure_count", failed))

	if sent == 0 {
		return model.PushResult{Error: errAllDeliveryFailed}
	}
	return model.PushResult{Success: true}
}

func (f *FCM) send(ctx context.Context, token string, n model.PushNotification) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req := &fcm.SendMessageRequest{Message: buildMessage(token, n)}
	parent := "projects/" + f.projectID
	if _, err := f.service.Projects.Messages.Send(parent, req).Context(ctx).Do(); err != nil {
		return goerr.Wrap(err, "FCM send failed", goerr.V("project_id", f.projectID))
	}
	return nil
}

func buildMessage(token string, n model.PushNotification) *fcm.Message {
	aps, _ := json.Marshal(map[string]any{
		"aps": map[string]any{
			"alert": map[string]string{"title": n.Title, "body": n.Body},
			"badge": 1,
			"sound": "default",
		},
	})

	return &fcm.Message{
		Token: token,
		Notification: &fcm.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data: n.Data,
		Android: &fcm.AndroidConfig{
			Notification: &fcm.AndroidNotification{
				Icon:  androidIcon,
				Color: androidColor,
			},
		},
		Apns: &fcm.ApnsConfig{
			Headers: map[string]string{"apns-priority": "10"},
			Payload: googleapi.RawMessage(aps),
		},
	}
}

// isUnregistered reports whether FCM rejected the token as no longer valid
func isUnregistered(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusNotFound
}
