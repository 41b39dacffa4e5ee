package logging

import (
	"context"

	"go.uber.org/zap"
)

type contextIDKey struct{}
type subtaskKey struct{}
type loggerKey struct{}

// ContextFields extracts correlation data from ctx.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 2)
	if id := ContextIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("context.id", id))
	}
	if sub := SubtaskFromContext(ctx); sub != "" {
		fields = append(fields, zap.String("subtask", sub))
	}
	return fields
}

// WithContextID tags ctx with the orchestration session's correlation token.
// The token is opaque and stored as given.
func WithContextID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextIDKey{}, id)
}

// ContextIDFromContext returns the correlation token, or "".
func ContextIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(contextIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithSubtask tags ctx with the subtask currently being dispatched.
func WithSubtask(ctx context.Context, subtask string) context.Context {
	return context.WithValue(ctx, subtaskKey{}, subtask)
}

// SubtaskFromContext returns the current subtask, or "".
func SubtaskFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(subtaskKey{}).(string); ok {
		return s
	}
	return ""
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext retrieves the logger from ctx, or a nop logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey{}).(*Logger); ok {
		return l
	}
	return NewNop()
}
