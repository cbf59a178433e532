package models

import "context"

type actingUserKey struct{}

// WithActingUser attaches the authenticated user id to a context so every
// ledger call downstream of the HTTP layer sees the same identity.
func WithActingUser(ctx context.Context, userId string) context.Context {
	return context.WithValue(ctx, actingUserKey{}, userId)
}

// ActingUser returns the user id carried by ctx, or "" if absent.
func ActingUser(ctx context.Context) string {
	userId, _ := ctx.Value(actingUserKey{}).(string)
	return userId
}
