package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/types"
)

const DefaultTokenIssuer = "nutrisha"

const (
	roleClaim           = "role"
	acceptableClockSkew = 10 * time.Second
	minSecretLength     = 32
)

// AuthUseCaseInterface authenticates API callers
type AuthUseCaseInterface interface {
	Authenticate(ctx context.Context, token string) (*model.Principal, error)
	IssueToken(userID string, role types.Role, ttl time.Duration) (string, error)
	IsNoAuthn() bool
}

// AuthUseCase verifies HS256 access tokens. The subject is the user ID and the
// private "role" claim carries the caller's role.
type AuthUseCase struct {
	secret []byte
	issuer string
	now    func() time.Time
}

var _ AuthUseCaseInterface = &AuthUseCase{}

// AuthOption is a functional option for AuthUseCase
type AuthOption func(*AuthUseCase)

// WithIssuer sets the expected "iss" claim
func WithIssuer(issuer string) AuthOption {
	return func(uc *AuthUseCase) {
		uc.issuer = issuer
	}
}

// WithAuthClock replaces time.Now for token validation
func WithAuthClock(now func() time.Time) AuthOption {
	return func(uc *AuthUseCase) {
		uc.now = now
	}
}

func NewAuthUseCase(secret string, options ...AuthOption) (*AuthUseCase, error) {
	if len(secret) < minSecretLength {
		return nil, goerr.New("JWT secret is too short", goerr.V("min_length", minSecretLength))
	}

	uc := &AuthUseCase{
		secret: []byte(secret),
		issuer: DefaultTokenIssuer,
		now:    time.Now,
	}
	for _, opt := range options {
		opt(uc)
	}
	return uc, nil
}

// Authenticate parses and validates a bearer token
func (uc *AuthUseCase) Authenticate(ctx context.Context, token string) (*model.Principal, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return nil, goerr.Wrap(ErrUnauthorized, "token is required")
	}

	parsed, err := jwt.ParseString(token,
		jwt.WithKey(jwa.HS256, uc.secret),
		jwt.WithValidate(true),
		jwt.WithIssuer(uc.issuer),
		jwt.WithAcceptableSkew(acceptableClockSkew),
		jwt.WithClock(jwt.ClockFunc(uc.now)),
	)
	if err != nil {
		return nil, goerr.Wrap(ErrUnauthorized, "invalid token", goerr.V("reason", err.Error()))
	}

	if parsed.Subject() == "" {
		return nil, goerr.Wrap(ErrUnauthorized, "token has no subject")
	}

	role := types.RolePatient
	if v, ok := parsed.Get(roleClaim); ok {
		if s, ok := v.(string); ok && s != "" {
			role = types.Role(strings.ToLower(s))
		}
	}

	return &model.Principal{UserID: parsed.Subject(), Role: role}, nil
}

// IssueToken signs a token for userID. Used by the token command for development.
func (uc *AuthUseCase) IssueToken(userID string, role types.Role, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", goerr.Wrap(ErrInvalidRequest, "user ID is required")
	}
	if ttl <= 0 {
		return "", goerr.Wrap(ErrInvalidRequest, "token lifetime must be positive", goerr.V("ttl", ttl))
	}

	now := uc.now()
	tok, err := jwt.NewBuilder().
		Issuer(uc.issuer).
		Subject(userID).
		IssuedAt(now).
		Expiration(now.Add(ttl)).
		Claim(roleClaim, string(role)).
		Build()
	if err != nil {
		return "", goerr.Wrap(err, "failed to build token", goerr.V(UserIDKey, userID))
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, uc.secret))
	if err != nil {
		return "", goerr.Wrap(err, "failed to sign token", goerr.V(UserIDKey, userID))
	}
	return string(signed), nil
}

// IsNoAuthn returns false for AuthUseCase
func (uc *AuthUseCase) IsNoAuthn() bool {
	return false
}

// NoAuthnUseCase authenticates every request as a fixed user (for development/testing)
type NoAuthnUseCase struct {
	userID string
	role   types.Role
}

var _ AuthUseCaseInterface = &NoAuthnUseCase{}

func NewNoAuthnUseCase(userID string, role types.Role) *NoAuthnUseCase {
	if role == "" {
		role = types.RolePatient
	}
	return &NoAuthnUseCase{userID: userID, role: role}
}

// Authenticate ignores the token and returns the configured user
func (uc *NoAuthnUseCase) Authenticate(ctx context.Context, token string) (*model.Principal, error) {
	return &model.Principal{UserID: uc.userID, Role: uc.role}, nil
}

// IssueToken is not supported in no-auth mode
func (uc *NoAuthnUseCase) IssueToken(userID string, role types.Role, ttl time.Duration) (string, error) {
	return "", goerr.Wrap(ErrNotAvailable, "token issuing is disabled in no-auth mode")
}

// IsNoAuthn returns true for NoAuthnUseCase
func (uc *NoAuthnUseCase) IsNoAuthn() bool {
	return true
}
