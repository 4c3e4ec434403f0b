package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/types"
	"github.com/nutrisha-ai/nutrisha/pkg/usecase"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestAuthUseCase(t *testing.T) {
	ctx := context.Background()

	t.Run("issued token authenticates", func(t *testing.T) {
		auth, err := usecase.NewAuthUseCase(testSecret)
		gt.NoError(t, err).Required()

		token, err := auth.IssueToken("nutritionist-1", types.RoleNutritionist, time.Hour)
		gt.NoError(t, err).Required()

		p, err := auth.Authenticate(ctx, "Bearer "+token)
		gt.NoError(t, err).Required()
		gt.Value(t, p.UserID).Equal("nutritionist-1")
		gt.Value(t, p.Role).Equal(types.RoleNutritionist)
		gt.Bool(t, auth.IsNoAuthn()).False()
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		issuedAt := time.Now().Add(-2 * time.Hour)
		issuer, err := usecase.NewAuthUseCase(testSecret, usecase.WithAuthClock(func() time.Time { return issuedAt }))
		gt.NoError(t, err).Required()
		token, err := issuer.IssueToken("patient-1", types.RolePatient, time.Hour)
		gt.NoError(t, err).Required()

		auth, err := usecase.NewAuthUseCase(testSecret)
		gt.NoError(t, err).Required()
		_, err = auth.Authenticate(ctx, token)
		gt.Error(t, err).Is(usecase.ErrUnauthorized)
	})

	t.Run("token signed with another secret is rejected", func(t *testing.T) {
		other, err := usecase.NewAuthUseCase("ffffffffffffffffffffffffffffffff")
		gt.NoError(t, err).Required()
		token, err := other.IssueToken("patient-1", types.RolePatient, time.Hour)
		gt.NoError(t, err).Required()

		auth, err := usecase.NewAuthUseCase(testSecret)
		gt.NoError(t, err).Required()
		_, err = auth.Authenticate(ctx, token)
		gt.Error(t, err).Is(usecase.ErrUnauthorized)
	})

	t.Run("malformed and missing tokens", func(t *testing.T) {
		auth, err := usecase.NewAuthUseCase(testSecret)
		gt.NoError(t, err).Required()

		_, err = auth.Authenticate(ctx, "")
		gt.Error(t, err).Is(usecase.ErrUnauthorized)
		_, err = auth.Authenticate(ctx, "Bearer not-a-jwt")
		gt.Error(t, err).Is(usecase.ErrUnauthorized)
	})

	t.Run("short secret", func(t *testing.T) {
		_, err := usecase.NewAuthUseCase("short")
		gt.Error(t, err)
	})
}

func TestNoAuthnUseCase(t *testing.T) {
	auth := usecase.NewNoAuthnUseCase("dev-user", "")
	p, err := auth.Authenticate(context.Background(), "")
	gt.NoError(t, err).Required()
	gt.Value(t, p.UserID).Equal("dev-user")
	gt.Value(t, p.Role).Equal(types.RolePatient)
	gt.Bool(t, auth.IsNoAuthn()).True()

	_, err = auth.IssueToken("dev-user", types.RolePatient, time.Hour)
	gt.Error(t, err).Is(usecase.ErrNotAvailable)
}
