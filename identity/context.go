package identity

import "context"

type contextKey int

const identityKey contextKey = iota

// WithIdentity returns a new context with the given identity attached.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext retrieves the identity from the context.
// Returns nil if no identity is present.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

// PrincipalFromContext retrieves the caller principal from the context.
// Returns empty string for anonymous or absent identities.
func PrincipalFromContext(ctx context.Context) string {
	id := FromContext(ctx)
	if id == nil {
		return ""
	}
	return id.Principal
}
