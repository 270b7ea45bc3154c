package authz

import "context"

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id *AuthContext) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context, nil when absent.
func IdentityFromContext(ctx context.Context) *AuthContext {
	id, _ := ctx.Value(identityContextKey{}).(*AuthContext)
	return id
}
