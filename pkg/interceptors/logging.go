package interceptors

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/pribylovaa/report-board/pkg/log"
)

// metadataRequestID - ключ metadata с идентификатором запроса.
const metadataRequestID = "x-request-id"

// UnaryLoggingInterceptor даёт обработчику логгер вызова в контексте
// (request_id, method, peer) и после него пишет одну запись "grpc"
// с кодом статуса и длительностью; неуспешные вызовы пишутся уровнем Warn.
// request_id берётся из metadata x-request-id, иначе генерируется UUID.
func UnaryLoggingInterceptor(base *slog.Logger) grpc.UnaryServerInterceptor {
	if base == nil {
		base = slog.Default()
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		start := time.Now()
		l := base.With(
			slog.String("request_id", incomingRequestID(ctx)),
			slog.String("method", info.FullMethod),
			slog.String("peer", peerAddr(ctx)),
		)

		resp, err := next(log.Into(ctx, l), req)

		level := slog.LevelInfo
		if err != nil {
			level = slog.LevelWarn
		}
		l.LogAttrs(ctx, level, "grpc",
			slog.String("code", status.Code(err).String()),
			slog.Duration("dur", time.Since(start)),
		)

		return resp, err
	}
}

func incomingRequestID(ctx context.Context) string {
	md, _ := metadata.FromIncomingContext(ctx)
	for _, v := range md.Get(metadataRequestID) {
		if v != "" {
			return v
		}
	}
	return uuid.NewString()
}

func peerAddr(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "-"
	}
	return p.Addr.String()
}
