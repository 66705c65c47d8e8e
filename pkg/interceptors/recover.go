package interceptors

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/report-board/pkg/log"
)

// Recover превращает панику обработчика в codes.Internal без деталей.
// Метод, значение паники и стек уходят в лог: логгер вызова, если он
// уже лежит в контексте, иначе base.
func Recover(base *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if p := recover(); p != nil {
				loggerFor(ctx, base).LogAttrs(ctx, slog.LevelError, "panic_recovered",
					slog.String("method", info.FullMethod),
					slog.String("panic", fmt.Sprint(p)),
					slog.String("stack", string(debug.Stack())),
				)
				resp, err = nil, status.Error(codes.Internal, "internal server error")
			}
		}()

		return next(ctx, req)
	}
}

func loggerFor(ctx context.Context, base *slog.Logger) *slog.Logger {
	if l := log.From(ctx); l != slog.Default() || base == nil {
		return l
	}
	return base
}
