package http

import (
	"net/http"

	"github.com/nutrisha-ai/nutrisha/pkg/domain/model"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/errutil"
	"github.com/nutrisha-ai/nutrisha/pkg/utils/logging"
)

// authMiddleware resolves the caller from the Authorization header
func authMiddleware(authUC AuthUseCase) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authUC == nil {
				errutil.WriteJSONError(w, "Authentication is not configured", http.StatusUnauthorized)
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" && !authUC.IsNoAuthn() {
				errutil.WriteJSONError(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			principal, err := authUC.Authenticate(r.Context(), header)
			if err != nil {
				logging.From(r.Context()).Info("authentication failed", "error", err)
				errutil.WriteJSONError(w, "Invalid authentication token", http.StatusUnauthorized)
				return
			}

			ctx := model.ContextWithPrincipal(r.Context(), principal)
			ctx = logging.With(ctx, logging.From(ctx).With("user_id", principal.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
