// internal/reqctx/reqctx.go
// Package reqctx carries request-scoped values (the authenticated user and
// the correlation id) through context.Context.
package reqctx

import "context"

// ContextKey is used for context values to avoid collisions
// when storing values in request context
type ContextKey string

const (
	ContextKeyUserID        ContextKey = "userId"        // Authenticated user id from the JWT sub claim
	ContextKeyCorrelationID ContextKey = "correlationId" // Unique ID for request tracking
)

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

// UserID returns the authenticated user id, or "" when there is none.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyUserID).(string)
	return id
}

// WithCorrelationID returns a context carrying the correlation id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyCorrelationID, id)
}

// CorrelationID returns the correlation id, or "".
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyCorrelationID).(string)
	return id
}
