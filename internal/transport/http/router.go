package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/report-board/internal/transport/http/handlers"
	"github.com/pribylovaa/report-board/internal/transport/http/middleware"
)

// Options - параметры сборки HTTP-роутера.
type Options struct {
	Logger    *slog.Logger
	Timeout   time.Duration
	JWTSecret []byte // пустой секрет отключает проверку на /refresh.
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
// Служебные ручки (/livez, /healthz, /metrics) монтируются снаружи через extra.
func NewRouter(reports handlers.Reports, opts Options, extra ...func(chi.Router)) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),
		middleware.RequestID(), // до логирования, чтобы request_id попал в логгер
		middleware.Logging(opts.Logger),
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout))
	}

	for _, fn := range extra {
		fn(root)
	}

	h := handlers.New(reports)
	root.Route("/api", func(r chi.Router) {
		registerRoutes(r, h, opts.JWTSecret)
	})

	return root
}

func registerRoutes(r chi.Router, h *handlers.Handlers, secret []byte) {
	r.Get("/reports/{view}", h.Grouping)
	r.Get("/firms/{order}/reports", h.FirmReports)

	r.With(middleware.RequireAdmin(secret)).Post("/reports/{view}/refresh", h.Refresh)
}
