package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // часовой пояс расписания не должен зависеть от образа

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/report-board/internal/config"
	"github.com/pribylovaa/report-board/internal/scheduler"
	"github.com/pribylovaa/report-board/internal/service"
	grpcserver "github.com/pribylovaa/report-board/internal/transport/grpc"
	httpserver "github.com/pribylovaa/report-board/internal/transport/http"
	"github.com/pribylovaa/report-board/pkg/log"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file (overrides CONFIG_PATH env)")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	lg := setupLogger(cfg.Env)
	slog.SetDefault(lg)
	lg.Info("starting report-board",
		slog.String("env", cfg.Env),
		slog.String("store", cfg.Store.Driver),
		slog.String("cache", cfg.Cache.Backend),
		slog.String("snapshot", cfg.Cache.Snapshot),
		slog.String("policy", cfg.Refresh.Policy),
	)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	rootCtx = log.Into(rootCtx, lg)

	if err := run(rootCtx, cfg, lg); err != nil {
		lg.Error("service_failed", slog.String("err", err.Error()))
		rootCancel()
		os.Exit(1)
	}

	rootCancel()
	lg.Info("service_stopped")
}

// run собирает зависимости, прогревает кэш и держит серверы до отмены ctx.
func run(ctx context.Context, cfg *config.Config, lg *slog.Logger) error {
	st, err := openStore(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer st.Close()

	backend, err := openCache(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	opts, err := serviceOptions(cfg)
	if err != nil {
		return err
	}

	svc := service.New(st, backend, opts)
	defer svc.Close()
	lg.Info("service_initialized")

	// Снимки восстанавливаются до прогрева: при недоступной базе
	// пользователи получат последние данные со статусом stale.
	if backend.restorer != nil {
		if _, err := backend.restorer.Restore(ctx); err != nil {
			lg.Warn("snapshot_restore_failed", slog.String("err", err.Error()))
		}
	}

	// Сервис стартует и при неудачном прогреве: плановое обновление догонит.
	if err := svc.Initialize(ctx); err != nil {
		lg.Warn("warmup_failed", slog.String("err", err.Error()))
	}

	sch, err := scheduler.New(cfg.Refresh.Timezone, lg)
	if err != nil {
		return err
	}
	if err := sch.Schedule(cfg.Refresh.Cron, "refresh_all", func(ctx context.Context) {
		if err := svc.RefreshAll(ctx); err != nil {
			log.From(ctx).Warn("scheduled_refresh_failed", slog.String("err", err.Error()))
		}
	}); err != nil {
		return err
	}
	sch.Start()
	lg.Info("scheduler_started", slog.String("cron", cfg.Refresh.Cron), slog.Time("next", sch.Next()))

	httpSrv := &http.Server{
		Addr: cfg.HTTP.Addr(),
		Handler: httpserver.NewRouter(svc, httpserver.Options{
			Logger:    lg,
			Timeout:   cfg.Timeouts.Service,
			JWTSecret: []byte(cfg.Admin.JWTSecret),
		}, probes(svc)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		lg.Info("http_listen_start", slog.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}()

	grpcSrv := grpcserver.New(grpcserver.Options{
		Logger:     lg,
		Timeout:    cfg.Timeouts.Service,
		Reflection: cfg.Env == envLocal || cfg.Env == envDev,
	})

	lis, err := net.Listen("tcp", cfg.GRPC.Addr())
	if err != nil {
		lg.Error("grpc_listen_failed", slog.String("addr", cfg.GRPC.Addr()), slog.String("err", err.Error()))
		_ = httpSrv.Shutdown(context.Background())
		_ = sch.Stop(context.Background())
		return err
	}

	serveErrCh := make(chan error, 1)
	go func() {
		serveErrCh <- grpcSrv.Serve(lis)
		close(serveErrCh)
	}()

	grpcSrv.SetServing(svc.Ready())

	select {
	case <-ctx.Done():
		lg.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			lg.Error("grpc_serve_failed", slog.String("err", err.Error()))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	grpcSrv.Stop(shutdownCtx)
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		lg.Warn("http_shutdown_failed", slog.String("err", err.Error()))
	}
	if err := sch.Stop(shutdownCtx); err != nil {
		lg.Warn("scheduler_stop_timeout", slog.String("err", err.Error()))
	}

	return nil
}

// probes монтирует служебные ручки: liveness, readiness и метрики.
func probes(svc *service.Service) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/livez", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})

		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			if svc.Ready() {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("ok"))
				return
			}
			http.Error(w, "not ready", http.StatusServiceUnavailable)
		})

		r.Handle("/metrics", promhttp.Handler())
	}
}

func serviceOptions(cfg *config.Config) (service.Options, error) {
	policy, err := service.ParsePolicy(cfg.Refresh.Policy)
	if err != nil {
		return service.Options{}, err
	}

	ref, err := cfg.Refresh.RefDate()
	if err != nil {
		return service.Options{}, err
	}

	loc, err := cfg.Refresh.Location()
	if err != nil {
		return service.Options{}, err
	}

	return service.Options{
		Policy:        policy,
		StoreTimeout:  cfg.Refresh.StoreTimeout,
		ReferenceDate: ref,
		Location:      loc,
	}, nil
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	switch env {
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
