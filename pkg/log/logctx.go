// log переносит request- и job-scoped *slog.Logger через context.Context.
package log

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// Into возвращает дочерний контекст с логгером l.
func Into(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// From достаёт логгер из контекста.
// Без логгера (или с nil) возвращает slog.Default() на момент вызова.
func From(ctx context.Context) *slog.Logger {
	if l, _ := ctx.Value(loggerKey{}).(*slog.Logger); l != nil {
		return l
	}

	return slog.Default()
}

// With дополняет логгер из ctx атрибутами и возвращает дочерний контекст с ним.
// Родительский контекст не меняется.
func With(ctx context.Context, args ...any) context.Context {
	if len(args) == 0 {
		return ctx
	}

	return Into(ctx, From(ctx).With(args...))
}
