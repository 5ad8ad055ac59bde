package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/edgex-labs/edgex/backend/internal/auth"
	"github.com/edgex-labs/edgex/backend/internal/model/user"
	"github.com/edgex-labs/edgex/backend/pkg/utils"
)

// Verifier resolves a bearer token to its user.
type Verifier interface {
	Verify(ctx context.Context, token string) (*user.User, error)
}

// BearerToken reads the token from the Authorization header, or from the
// "token" query parameter for EventSource and websocket clients.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// RequireAuth rejects requests without a valid token with 401.
func RequireAuth(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				utils.RespondError(w, http.StatusUnauthorized, "🔐 Please log in first.")
				return
			}
			u, err := v.Verify(r.Context(), token)
			if err != nil {
				utils.RespondError(w, http.StatusUnauthorized, auth.Message(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), u)))
		})
	}
}

// OptionalAuth attaches the user when a valid token is present and passes
// anonymous requests through unchanged.
func OptionalAuth(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := BearerToken(r); token != "" {
				if u, err := v.Verify(r.Context(), token); err == nil {
					r = r.WithContext(auth.WithUser(r.Context(), u))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
