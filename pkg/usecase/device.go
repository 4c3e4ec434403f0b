package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
)

// DeviceUseCase manages the push notification tokens of a user
type DeviceUseCase struct {
	uc *UseCases
}

// RegisterDevice stores or refreshes a token. An empty platform means android.
func (d *DeviceUseCase) RegisterDevice(ctx context.Context, userID, token string, platform model.DevicePlatform) (*model.DeviceToken, error) {
	token = strings.TrimSpace(token)
	if userID == "" || token == "" {
		return nil, goerr.Wrap(ErrInvalidRequest, "user ID and token are required")
	}
	platform = model.DevicePlatform(strings.ToLower(string(platform)))
	switch platform {
	case "":
		platform = model.DevicePlatformAndroid
	case model.DevicePlatformIOS, model.DevicePlatformAndroid, model.DevicePlatformWeb:
	default:
		return nil, goerr.Wrap(ErrInvalidRequest, "invalid device platform", goerr.V("platform", platform))
	}

	device := &model.DeviceToken{
		UserID:    userID,
		Token:     token,
		Platform:  platform,
		Active:    true,
		UpdatedAt: model.Timestamp(d.uc.now()),
	}
	if err := d.uc.repo.DeviceToken().Put(ctx, device); err != nil {
		return nil, goerr.Wrap(errors.Join(ErrPersistence, err), "failed to register device token",
			goerr.V(UserIDKey, userID),
			goerr.V("platform", platform))
	}
	return device, nil
}

// DeactivateDevice stops notifications to a token, typically on sign-out
func (d *DeviceUseCase) DeactivateDevice(ctx context.Context, userID, token string) error {
	token = strings.TrimSpace(token)
	if userID == "" || token == "" {
		return goerr.Wrap(ErrInvalidRequest, "user ID and token are required")
	}

	if err := d.uc.repo.DeviceToken().Deactivate(ctx, userID, token); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return goerr.Wrap(ErrInvalidRequest, "device token is not registered", goerr.V(UserIDKey, userID))
		}
		return goerr.Wrap(errors.Join(ErrPersistence, err), "failed to deactivate device token",
			goerr.V(UserIDKey, userID))
	}
	return nil
}
