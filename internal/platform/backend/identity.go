package backend

import "context"

// Identity is the per-user part of every backend request.
type Identity struct {
	DUZ      string
	Location string
}

type identityKey struct{}

// WithIdentity returns a context whose backend calls carry id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity set by WithIdentity, or the zero value.
func IdentityFromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey{}).(Identity)
	return id
}
