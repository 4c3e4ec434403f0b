package model

import (
	"context"

	"github.com/nutrisha-ai/nutrisha/pkg/domain/types"
)

// Principal is the authenticated caller of an API request
type Principal struct {
	UserID string
	Role   types.Role
}

type principalCtxKey struct{}

// ContextWithPrincipal stores the caller in ctx
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFromContext returns the caller stored in ctx, or nil
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalCtxKey{}).(*Principal)
	return p
}
