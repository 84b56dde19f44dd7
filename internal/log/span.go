package log

import (
	"context"

	"github.com/bassosimone/runtimex"
	"github.com/google/uuid"
)

type spanIDKey struct{}

// NewSpanID returns a new time-ordered identifier used to correlate the log
// records and stored rows of a single navigation.
func NewSpanID() string {
	return runtimex.PanicOnError1(uuid.NewV7()).String()
}

// ContextWithSpanID returns a copy of ctx carrying spanID.
func ContextWithSpanID(ctx context.Context, spanID string) context.Context {
	return context.WithValue(ctx, spanIDKey{}, spanID)
}

// SpanIDFromContext returns the span ID carried by ctx, or a new one when
// ctx carries none.
func SpanIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(spanIDKey{}).(string); ok && id != "" {
		return id
	}
	return NewSpanID()
}
