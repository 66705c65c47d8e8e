package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pribylovaa/report-board/internal/cache"
	"github.com/pribylovaa/report-board/internal/config"
	"github.com/pribylovaa/report-board/internal/storage"
	"github.com/pribylovaa/report-board/internal/storage/postgres"
	"github.com/pribylovaa/report-board/internal/storage/sqlite"
	"github.com/pribylovaa/report-board/pkg/redact"
)

// connectTimeout ограничивает подключение к внешним зависимостям на старте.
const connectTimeout = 10 * time.Second

// openStore открывает основное хранилище; при store.mirror чтение идёт через зеркало в памяти.
func openStore(ctx context.Context, cfg *config.Config, lg *slog.Logger) (storage.ReportStorage, error) {
	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	var primary storage.ReportStorage

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pg, err := postgres.New(cctx, cfg.Store.PostgresURL)
		if err != nil {
			lg.Error("postgres_connect_failed",
				slog.String("url", redact.URL(cfg.Store.PostgresURL)),
				slog.String("err", err.Error()),
			)
			return nil, err
		}
		primary = pg
		lg.Info("postgres_connected", slog.String("url", redact.URL(cfg.Store.PostgresURL)))

	default:
		sq, err := sqlite.New(cctx, cfg.Store.SQLitePath)
		if err != nil {
			lg.Error("sqlite_open_failed", slog.String("path", cfg.Store.SQLitePath), slog.String("err", err.Error()))
			return nil, err
		}
		if err := sq.EnsureSchema(cctx); err != nil {
			sq.Close()
			return nil, err
		}
		primary = sq
		lg.Info("sqlite_opened", slog.String("path", cfg.Store.SQLitePath))
	}

	if !cfg.Store.Mirror {
		return primary, nil
	}

	mirror, err := sqlite.NewMirror(cctx)
	if err != nil {
		primary.Close()
		return nil, err
	}
	lg.Info("mirror_enabled")

	return sqlite.NewMirrored(primary, mirror), nil
}

// cacheBackend - выбранный бэкенд кэша; restorer задан, если включены снимки.
type cacheBackend struct {
	cache.Backend
	restorer *cache.Snapshotting
}

func openCache(ctx context.Context, cfg *config.Config, lg *slog.Logger) (*cacheBackend, error) {
	const op = "main.openCache"

	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	var inner cache.Backend
	switch cfg.Cache.Backend {
	case config.BackendRedis:
		rc, err := cache.NewRedis(cctx, cfg.Cache.RedisURL, cache.RedisOptions{
			Prefix:    cfg.Cache.RedisPrefix,
			TTL:       cfg.Cache.TTL,
			SplitKeys: cfg.Cache.SplitKeys,
		})
		if err != nil {
			lg.Error("redis_connect_failed",
				slog.String("url", redact.URL(cfg.Cache.RedisURL)),
				slog.String("err", err.Error()),
			)
			return nil, err
		}
		inner = rc
		lg.Info("redis_connected", slog.String("url", redact.URL(cfg.Cache.RedisURL)))
	default:
		inner = cache.NewMemory()
	}

	var sink cache.SnapshotSink
	switch cfg.Cache.Snapshot {
	case config.SnapshotFile:
		fs, err := cache.NewFileSnapshots(cfg.Cache.SnapshotDir)
		if err != nil {
			_ = inner.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		sink = fs
	case config.SnapshotS3:
		s3, err := cache.NewS3Snapshots(cctx, cache.S3Options{
			Endpoint:  cfg.Cache.S3.Endpoint,
			AccessKey: cfg.Cache.S3.AccessKey,
			SecretKey: cfg.Cache.S3.SecretKey,
			Bucket:    cfg.Cache.S3.Bucket,
			Prefix:    cfg.Cache.S3.Prefix,
		})
		if err != nil {
			lg.Error("minio_connect_failed",
				slog.String("endpoint", cfg.Cache.S3.Endpoint),
				slog.String("access_key", redact.Secret(cfg.Cache.S3.AccessKey)),
				slog.String("err", err.Error()),
			)
			_ = inner.Close()
			return nil, err
		}
		sink = s3
		lg.Info("minio_connected")
	}

	if sink == nil {
		return &cacheBackend{Backend: inner}, nil
	}

	snap := cache.NewSnapshotting(inner, sink)
	return &cacheBackend{Backend: snap, restorer: snap}, nil
}
