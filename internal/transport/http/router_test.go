package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/report-board/internal/models"
	"github.com/pribylovaa/report-board/internal/service"
	"github.com/pribylovaa/report-board/internal/storage"
	apierrors "github.com/pribylovaa/report-board/internal/transport/http/errors"
	"github.com/pribylovaa/report-board/internal/transport/http/handlers"
)

// fakeReports - управляемая подмена сервисного слоя.
type fakeReports struct {
	grouping *models.Grouping
	state    service.State
	err      error

	firmOrder int
	refreshed models.ViewID
	fp        models.Fingerprint
}

func (f *fakeReports) CurrentGrouping(_ context.Context, _ models.ViewID) (*models.Grouping, service.State, error) {
	return f.grouping, f.state, f.err
}

func (f *fakeReports) FirmReports(_ context.Context, order int) (*models.Grouping, error) {
	f.firmOrder = order
	if f.err != nil {
		return nil, f.err
	}
	if order < 0 {
		return nil, service.ErrInvalidArgument
	}
	return f.grouping, nil
}

func (f *fakeReports) ForceRefresh(_ context.Context, view models.ViewID) (service.Outcome, models.Fingerprint, error) {
	f.refreshed = view
	if f.err != nil {
		return "", models.Fingerprint{}, f.err
	}
	return service.OutcomeUpdated, f.fp, nil
}

func sampleGrouping() *models.Grouping {
	g := models.NewGrouping()
	g.Append("2025-01-10", "X", models.CleanedEntry{Title: "Q4", Link: "t1", Writer: "w"})
	return g
}

func newTestRouter(f handlers.Reports, secret []byte) http.Handler {
	lg := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(f, Options{Logger: lg, Timeout: time.Second, JWTSecret: secret})
}

func do(t *testing.T, h http.Handler, method, target string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()

	var env apierrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env.Error.Code
}

func TestGrouping_OK(t *testing.T) {
	f := &fakeReports{grouping: sampleGrouping(), state: service.StateFresh}
	rr := do(t, newTestRouter(f, nil), http.MethodGet, "/api/reports/daily", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "fresh", rr.Header().Get(handlers.HeaderCacheState))
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	require.NotEmpty(t, rr.Header().Get("X-Request-Id"))
	require.JSONEq(t,
		`{"2025-01-10":{"X":[{"title":"Q4","link":"t1","writer":"w"}]}}`,
		rr.Body.String(),
	)
}

func TestGrouping_EmptyState(t *testing.T) {
	f := &fakeReports{grouping: models.NewGrouping(), state: service.StateEmpty}
	rr := do(t, newTestRouter(f, nil), http.MethodGet, "/api/reports/recent", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "empty", rr.Header().Get(handlers.HeaderCacheState))
	require.JSONEq(t, `{}`, rr.Body.String())
}

func TestGrouping_UnknownView(t *testing.T) {
	rr := do(t, newTestRouter(&fakeReports{}, nil), http.MethodGet, "/api/reports/weekly", nil)

	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "not_found", errorCode(t, rr))
}

func TestFirmReports(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		f := &fakeReports{grouping: sampleGrouping()}
		rr := do(t, newTestRouter(f, nil), http.MethodGet, "/api/firms/7/reports", nil)

		require.Equal(t, http.StatusOK, rr.Code)
		require.Equal(t, 7, f.firmOrder)
	})

	t.Run("not a number", func(t *testing.T) {
		rr := do(t, newTestRouter(&fakeReports{}, nil), http.MethodGet, "/api/firms/abc/reports", nil)

		require.Equal(t, http.StatusBadRequest, rr.Code)
		require.Equal(t, "invalid_argument", errorCode(t, rr))
	})

	t.Run("store unavailable", func(t *testing.T) {
		f := &fakeReports{err: storage.ErrStoreUnavailable}
		rr := do(t, newTestRouter(f, nil), http.MethodGet, "/api/firms/1/reports", nil)

		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
		require.Equal(t, "unavailable", errorCode(t, rr))
	})
}

func TestRefresh_Open(t *testing.T) {
	f := &fakeReports{fp: models.NewFingerprint("2025-01-10T08:00:00.000000")}

	rr := do(t, newTestRouter(f, nil), http.MethodPost, "/api/reports/recent/refresh", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, models.ViewRecent, f.refreshed)
	require.JSONEq(t,
		`{"view":"recent","outcome":"updated","fingerprint":"2025-01-10T08:00:00.000000"}`,
		rr.Body.String(),
	)
}

func TestRefresh_RequiresToken(t *testing.T) {
	secret := []byte("k")
	f := &fakeReports{}
	h := newTestRouter(f, secret)

	rr := do(t, h, http.MethodPost, "/api/reports/daily/refresh", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Empty(t, f.refreshed)

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "ops",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString(secret)
	require.NoError(t, err)

	rr = do(t, h, http.MethodPost, "/api/reports/daily/refresh", map[string]string{"Authorization": "Bearer " + tok})
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, models.ViewDaily, f.refreshed)

	// чтение по-прежнему без токена.
	rr = do(t, h, http.MethodGet, "/api/reports/daily", nil)
	require.NotEqual(t, http.StatusUnauthorized, rr.Code)
}

func TestRefresh_FailurePropagates(t *testing.T) {
	f := &fakeReports{err: context.DeadlineExceeded}
	rr := do(t, newTestRouter(f, nil), http.MethodPost, "/api/reports/daily/refresh", nil)

	require.Equal(t, http.StatusGatewayTimeout, rr.Code)
	require.Equal(t, "deadline_exceeded", errorCode(t, rr))
}

func TestNewRouter_Extra(t *testing.T) {
	h := NewRouter(&fakeReports{}, Options{}, func(r chi.Router) {
		r.Get("/livez", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	})

	rr := do(t, h, http.MethodGet, "/livez", nil)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.NotEmpty(t, rr.Header().Get("X-Request-Id"))
}
