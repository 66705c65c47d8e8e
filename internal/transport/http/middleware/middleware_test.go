package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	apierrors "github.com/pribylovaa/report-board/internal/transport/http/errors"
	logctx "github.com/pribylovaa/report-board/pkg/log"
)

// capHandler - тестовый slog.Handler: копит attrs из With(...) и из
// каждой записи, последнюю запись хранит в attrs.
type capHandler struct {
	mu      sync.Mutex
	base    []slog.Attr
	lastMsg string
	lastLvl slog.Level
	attrs   map[string]any
	count   int
}

func (h *capHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *capHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[string]any, len(h.base)+8)
	for _, a := range h.base {
		out[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.Any()
		return true
	})

	h.count++
	h.lastMsg = r.Message
	h.lastLvl = r.Level
	h.attrs = out
	return nil
}

func (h *capHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.base = append(h.base, attrs...)
	return h
}

func (h *capHandler) WithGroup(string) slog.Handler { return h }

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) apierrors.ErrorResponse {
	t.Helper()

	var env apierrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name+"-begin")
				next.ServeHTTP(w, r)
				order = append(order, name+"-end")
			})
		}
	}

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	Chain(final, mark("m1"), mark("m2")).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"m1-begin", "m2-begin", "handler", "m2-end", "m1-end"}, order)
	require.Equal(t, http.StatusTeapot, rr.Code)
}

func TestRequestID_GeneratesUUID(t *testing.T) {
	var seenHeader, seenCtx string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenHeader = r.Header.Get(HeaderRequestID)
		seenCtx = RequestIDFrom(r.Context())
	})

	rr := httptest.NewRecorder()
	Chain(h, RequestID()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	id := rr.Header().Get(HeaderRequestID)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	require.Equal(t, id, seenHeader)
	require.Equal(t, id, seenCtx)
}

func TestRequestID_KeepsIncoming(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "rid-123")

	Chain(http.NotFoundHandler(), RequestID()).ServeHTTP(rr, req)

	require.Equal(t, "rid-123", rr.Header().Get(HeaderRequestID))
}

func TestLogging_WritesRecord(t *testing.T) {
	h := &capHandler{}
	var ctxLogger *slog.Logger

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxLogger = logctx.From(r.Context())
		_, _ = w.Write([]byte("0123456789"))
	})

	req := httptest.NewRequest(http.MethodGet, "/log", nil)
	req.Header.Set(HeaderRequestID, "rid-456")
	rr := httptest.NewRecorder()
	Chain(final, RequestID(), Logging(slog.New(h))).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, ctxLogger)
	require.Equal(t, 1, h.count)
	require.Equal(t, "http", h.lastMsg)
	require.Equal(t, slog.LevelInfo, h.lastLvl)
	require.Equal(t, http.MethodGet, h.attrs["method"])
	require.Equal(t, "/log", h.attrs["path"])
	require.EqualValues(t, http.StatusOK, h.attrs["status"])
	require.EqualValues(t, 10, h.attrs["bytes"])
	require.Equal(t, "rid-456", h.attrs["request_id"])
	require.Contains(t, h.attrs, "dur")
}

func TestLogging_EmptyHandlerIs200(t *testing.T) {
	h := &capHandler{}
	final := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	Chain(final, Logging(slog.New(h))).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.EqualValues(t, http.StatusOK, h.attrs["status"])
	require.EqualValues(t, 0, h.attrs["bytes"])
}

func TestRecover_Panic(t *testing.T) {
	h := &capHandler{}
	final := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set(HeaderRequestID, "rid-789")
	rr := httptest.NewRecorder()
	Chain(final, Logging(slog.New(h)), Recover()).ServeHTTP(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	env := decodeEnvelope(t, rr)
	require.Equal(t, "internal", env.Error.Code)
	require.Equal(t, "rid-789", env.Error.RequestID)
	require.NotContains(t, rr.Body.String(), "boom")

	// последняя запись - итог запроса, паника была залогирована до неё.
	require.Equal(t, 2, h.count)
	require.Equal(t, slog.LevelError, h.lastLvl)
	require.EqualValues(t, http.StatusInternalServerError, h.attrs["status"])
}

func TestTimeout(t *testing.T) {
	t.Run("sets deadline", func(t *testing.T) {
		var has bool
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, has = r.Context().Deadline()
		})
		Chain(h, Timeout(time.Second)).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		require.True(t, has)
	})

	t.Run("keeps existing deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
		defer cancel()
		want, _ := ctx.Deadline()

		var got time.Time
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, _ = r.Context().Deadline()
		})
		req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
		Chain(h, Timeout(time.Millisecond)).ServeHTTP(httptest.NewRecorder(), req)
		require.Equal(t, want, got)
	})

	t.Run("expired without response is 504", func(t *testing.T) {
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		})
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, "rid-t")
		rr := httptest.NewRecorder()
		Chain(h, Timeout(10*time.Millisecond)).ServeHTTP(rr, req)

		require.Equal(t, http.StatusGatewayTimeout, rr.Code)
		env := decodeEnvelope(t, rr)
		require.Equal(t, "deadline_exceeded", env.Error.Code)
		require.Equal(t, "rid-t", env.Error.RequestID)
	})

	t.Run("handler response is kept", func(t *testing.T) {
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		rr := httptest.NewRecorder()
		Chain(h, Timeout(10*time.Millisecond)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})

	t.Run("disabled", func(t *testing.T) {
		var has bool
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, has = r.Context().Deadline()
		})
		Chain(h, Timeout(0)).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		require.False(t, has)
	})
}

func signToken(t *testing.T, secret []byte, method jwt.SigningMethod, claims jwt.Claims) string {
	t.Helper()

	s, err := jwt.NewWithClaims(method, claims).SignedString(secret)
	require.NoError(t, err)
	return s
}

func TestRequireAdmin(t *testing.T) {
	secret := []byte("s3cret")
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	past := jwt.NewNumericDate(time.Now().Add(-time.Hour))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{
			name:   "valid",
			header: "Bearer " + signToken(t, secret, jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "ops", ExpiresAt: future}),
			status: http.StatusNoContent,
		},
		{name: "no header", header: "", status: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "empty bearer", header: "Bearer   ", status: http.StatusUnauthorized},
		{
			name:   "wrong secret",
			header: "Bearer " + signToken(t, []byte("other"), jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: future}),
			status: http.StatusUnauthorized,
		},
		{
			name:   "expired",
			header: "Bearer " + signToken(t, secret, jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: past}),
			status: http.StatusUnauthorized,
		},
		{
			name:   "no exp",
			header: "Bearer " + signToken(t, secret, jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "ops"}),
			status: http.StatusUnauthorized,
		},
		{
			name:   "other alg",
			header: "Bearer " + signToken(t, secret, jwt.SigningMethodHS512, jwt.RegisteredClaims{ExpiresAt: future}),
			status: http.StatusUnauthorized,
		},
	}

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := Chain(ok, RequireAdmin(secret))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			require.Equal(t, tt.status, rr.Code)
			if tt.status == http.StatusUnauthorized {
				require.Equal(t, "unauthenticated", decodeEnvelope(t, rr).Error.Code)
			}
		})
	}
}

func TestRequireAdmin_EmptySecretPassesThrough(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	rr := httptest.NewRecorder()
	Chain(ok, RequireAdmin(nil)).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))

	require.Equal(t, http.StatusNoContent, rr.Code)
}
