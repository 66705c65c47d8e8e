package middleware

import (
	"log/slog"
	"net/http"
	"time"

	logctx "github.com/pribylovaa/report-board/pkg/log"
)

// Logging кладёт в контекст логгер запроса (с request_id, если он есть)
// и по завершении пишет одну запись "http". Ответы 5xx пишутся уровнем Error.
func Logging(base *slog.Logger) Middleware {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			l := base
			if id := r.Header.Get(HeaderRequestID); id != "" {
				l = l.With(slog.String("request_id", id))
			}

			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r.WithContext(logctx.Into(r.Context(), l)))

			status := sw.code()
			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelError
			}

			l.LogAttrs(r.Context(), level, "http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", sw.count),
				slog.Duration("dur", time.Since(start)),
			)
		})
	}
}
