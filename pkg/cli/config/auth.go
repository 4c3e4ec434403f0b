package config

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/types"
	"github.com/nutrisha-ai/nutrisha/pkg/usecase"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Auth configures request authentication
type Auth struct {
	jwtSecret  string `masq:"secret"`
	issuer     string
	noAuthUID  string
	noAuthRole string
}

func (x *Auth) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "jwt-secret",
			Usage:       "HS256 secret used to verify bearer tokens (at least 32 characters)",
			Category:    "Auth",
			Sources:     cli.EnvVars("NUTRISHA_JWT_SECRET"),
			Destination: &x.jwtSecret,
		},
		&cli.StringFlag{
			Name:        "jwt-issuer",
			Usage:       "Expected issuer of bearer tokens",
			Category:    "Auth",
			Value:       usecase.DefaultTokenIssuer,
			Sources:     cli.EnvVars("NUTRISHA_JWT_ISSUER"),
			Destination: &x.issuer,
		},
		&cli.StringFlag{
			Name:        "no-auth",
			Usage:       "Disable authentication and act as the given user ID (development only)",
			Category:    "Auth",
			Sources:     cli.EnvVars("NUTRISHA_NO_AUTH"),
			Destination: &x.noAuthUID,
		},
		&cli.StringFlag{
			Name:        "no-auth-role",
			Usage:       "Role of the --no-auth user",
			Category:    "Auth",
			Value:       types.RolePatient.String(),
			Sources:     cli.EnvVars("NUTRISHA_NO_AUTH_ROLE"),
			Destination: &x.noAuthRole,
		},
	}
}

func (x Auth) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("jwt-secret.len", len(x.jwtSecret)),
		slog.String("issuer", x.issuer),
		slog.String("no-auth", x.noAuthUID),
	)
}

// IsNoAuthMode returns true if no-auth mode is enabled
func (x *Auth) IsNoAuthMode() bool {
	return x.noAuthUID != ""
}

// Configure returns the JWT verifier, or the no-auth stand-in when --no-auth is set
func (x *Auth) Configure() (usecase.AuthUseCaseInterface, error) {
	if x.noAuthUID != "" {
		if x.jwtSecret != "" {
			logging.Default().Warn("--no-auth is set, ignoring --jwt-secret")
		}
		return usecase.NewNoAuthnUseCase(x.noAuthUID, types.Role(x.noAuthRole)), nil
	}

	if x.jwtSecret == "" {
		return nil, goerr.Wrap(ErrMissingValue, "authentication is required: set --jwt-secret, or use --no-auth for development",
			goerr.V(FlagKey, "jwt-secret"))
	}

	uc, err := usecase.NewAuthUseCase(x.jwtSecret, usecase.WithIssuer(x.issuer))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to configure JWT authentication")
	}
	return uc, nil
}

// IssueToken signs a token with the configured secret. Only used by the token command.
func (x *Auth) IssueToken(userID string, role types.Role, ttl time.Duration) (string, error) {
	uc, err := usecase.NewAuthUseCase(x.jwtSecret, usecase.WithIssuer(x.issuer))
	if err != nil {
		return "", goerr.Wrap(err, "failed to configure JWT signer")
	}
	return uc.IssueToken(userID, role, ttl)
}
