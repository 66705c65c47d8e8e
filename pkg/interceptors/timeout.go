// interceptors - серверные unary-интерсепторы gRPC: таймаут, логирование, recover.
package interceptors

import (
	"context"
	"time"

	"google.golang.org/grpc"
)

// WithTimeout ограничивает вызов сроком d, если клиент не прислал свой дедлайн.
// d <= 0 отключает интерсептор.
func WithTimeout(d time.Duration) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if _, has := ctx.Deadline(); d > 0 && !has {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}

		return next(ctx, req)
	}
}
