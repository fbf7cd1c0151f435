package services

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	runKindKey   contextKey = "run_kind"
)

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRunKind annotates context with the kind of run in flight (import,
// implications, prune).
func WithRunKind(ctx context.Context, kind string) context.Context {
	if kind == "" {
		return ctx
	}
	return context.WithValue(ctx, runKindKey, kind)
}

// RunKindFromContext returns the run kind if present.
func RunKindFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runKindKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
