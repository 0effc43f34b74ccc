package core

import (
	"context"

	"github.com/google/uuid"
)

// NewID returns a random identifier for runs, jobs and synthesized tool calls.
func NewID() string { return uuid.NewString() }

type userIDKey struct{}

// WithUserID returns a context carrying the end-user identifier. Tool
// providers use it as their namespace.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the identifier stored by WithUserID.
func UserIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey{}).(string)
	return v
}
