// Package auth resolves the caller's identity for each request. An identity
// is an opaque subject string supplied by a session cookie or a bearer
// token; mapping it to an internal user record is the user directory's job.
package auth

import "context"

type contextKey string

const identityKey contextKey = "caller_identity"

type Identity struct {
	Subject string
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// CallerIdentity extracts the resolved identity from context, if any.
func CallerIdentity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

func IsAuthenticated(ctx context.Context) bool {
	_, ok := CallerIdentity(ctx)
	return ok
}
