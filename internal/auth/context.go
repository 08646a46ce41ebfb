package auth

import (
	"context"

	"github.com/aanand-mishra/globe-markers/internal/types"
)

type contextKey struct{}

// WithUser returns a copy of ctx carrying the authenticated user.
func WithUser(ctx context.Context, u types.User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (types.User, bool) {
	u, ok := ctx.Value(contextKey{}).(types.User)
	return u, ok
}
