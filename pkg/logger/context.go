package logger

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// With returns a context carrying the context logger extended with fields.
// Handlers further down the chain pick it up with From.
func With(ctx context.Context, fields ...any) context.Context {
	return Into(ctx, From(ctx).With(fields...))
}

// Into stores l as the context logger.
func Into(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// From returns the context logger, or the process logger when none is set.
func From(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return LoggerWrapper()
	}
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return LoggerWrapper()
}
