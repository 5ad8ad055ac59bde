package auth

import (
	"context"

	"github.com/edgex-labs/edgex/backend/internal/model/user"
)

type contextKey struct{}

// WithUser stores the authenticated user on ctx.
func WithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// UserFrom returns the authenticated user, if any.
func UserFrom(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(contextKey{}).(*user.User)
	return u, ok && u != nil
}
