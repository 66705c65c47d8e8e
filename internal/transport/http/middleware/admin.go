package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/pribylovaa/report-board/internal/transport/http/errors"
	logctx "github.com/pribylovaa/report-board/pkg/log"
)

// adminLeeway - допуск на расхождение часов при проверке exp/nbf.
const adminLeeway = 5 * time.Second

// RequireAdmin пропускает запрос только с валидным Bearer JWT,
// подписанным HS256 общим секретом. Токен обязан содержать exp.
// Пустой secret отключает проверку (локальная разработка).
func RequireAdmin(secret []byte) Middleware {
	return func(next http.Handler) http.Handler {
		if len(secret) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.admin.RequireAdmin"

			raw, ok := bearer(r.Header.Get("Authorization"))
			if !ok {
				apierrors.WriteError(w, r, fmt.Errorf("%s: %w", op, apierrors.ErrUnauthenticated))
				return
			}

			claims := &jwt.RegisteredClaims{}
			_, err := jwt.ParseWithClaims(raw, claims,
				func(*jwt.Token) (any, error) { return secret, nil },
				jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
				jwt.WithExpirationRequired(),
				jwt.WithLeeway(adminLeeway),
			)
			if err != nil {
				logctx.From(r.Context()).LogAttrs(r.Context(), slog.LevelWarn, "admin_token_rejected",
					slog.String("err", err.Error()),
				)
				apierrors.WriteError(w, r, fmt.Errorf("%s: %w", op, apierrors.ErrUnauthenticated))
				return
			}

			next.ServeHTTP(w, r.WithContext(logctx.With(r.Context(), slog.String("admin", claims.Subject))))
		})
	}
}

func bearer(h string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}

	tok := strings.TrimSpace(h[len(prefix):])
	return tok, tok != ""
}
