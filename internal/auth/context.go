package auth

import "context"

type contextKey string

const contextKeyIdentity contextKey = "auth.identity"

// Identity is the authenticated caller attached to a request context.
type Identity struct {
	UserID   int64
	Username string
	Role     Role
}

// WithIdentity stores the caller in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKeyIdentity, id)
}

// IdentityFromContext extracts the caller; ok is false for unauthenticated requests.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(contextKeyIdentity).(Identity)
	return id, ok
}

// RoleFromContext returns the caller's role, or "" when unauthenticated.
func RoleFromContext(ctx context.Context) Role {
	id, _ := IdentityFromContext(ctx)
	return id.Role
}
