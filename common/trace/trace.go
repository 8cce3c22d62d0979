// Package trace provides turn/session ID generation and context propagation so
// every log line emitted while handling one turn can be correlated.
package trace

import (
	"context"

	"github.com/google/uuid"
)

// traceKey is the unexported context key used to store the turn ID.
type traceKey struct{}

// GenerateID returns a new random turn ID ("t_" + UUIDv4 without dashes).
func GenerateID() string {
	id := uuid.New()
	return "t_" + hexString(id)
}

// NewSessionID returns a new session identifier in canonical UUID form.
func NewSessionID() string {
	return uuid.NewString()
}

func hexString(id uuid.UUID) string {
	const digits = "0123456789abcdef"
	out := make([]byte, 0, len(id)*2)
	for _, b := range id {
		out = append(out, digits[b>>4], digits[b&0x0f])
	}
	return string(out)
}

// WithTraceID returns a child context carrying the given ID.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

// FromContext extracts the ID from ctx, returning "" if absent.
func FromContext(ctx context.Context) string {
	if v, ok := ctx.Value(traceKey{}).(string); ok {
		return v
	}
	return ""
}
