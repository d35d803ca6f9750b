package logger

import "context"

// contextKey is a type for context keys to avoid collisions.
type contextKey string

const (
	loggerKey    contextKey = "tunnelmgr.logger"
	attemptIDKey contextKey = "tunnelmgr.attempt_id"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext extracts the logger from context.
// Returns the default logger if none is set.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Default()
}

// WithAttemptID tags the context with a connection attempt id.
func WithAttemptID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, attemptIDKey, id)
}

// AttemptIDFromContext extracts the attempt id from context.
func AttemptIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(attemptIDKey).(string); ok {
		return id
	}
	return ""
}

// L is a shorthand for FromContext that also adds the attempt id, when
// the context carries one.
func L(ctx context.Context) Logger {
	l := FromContext(ctx)
	if id := AttemptIDFromContext(ctx); id != "" {
		l = l.With("attempt_id", id)
	}
	return l
}
