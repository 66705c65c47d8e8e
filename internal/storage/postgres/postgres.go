// postgres реализует storage.ReportStorage поверх PostgreSQL (pgx/v5).
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pribylovaa/report-board/internal/storage"
)

// pool - подмножество *pgxpool.Pool, которое использует хранилище.
// Выделено, чтобы в тестах подставлять pgxmock.
type pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Storage - хранилище отчётов в PostgreSQL.
type Storage struct {
	db pool
}

// New создает новое подключение к PostgreSQL.
func New(ctx context.Context, dbURL string) (*Storage, error) {
	const op = "storage.postgres.New"

	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, storage.ErrStoreUnavailable, err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w: %w", op, storage.ErrStoreUnavailable, err)
	}

	return &Storage{db: db}, nil
}

// Ping проверяет соединение с базой.
func (s *Storage) Ping(ctx context.Context) error {
	const op = "storage.postgres.Ping"

	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("%s: %w: %w", op, classify(err), err)
	}

	return nil
}

// Close закрывает пул соединений.
func (s *Storage) Close() {
	s.db.Close()
}

// classify относит ошибку драйвера к одному из видов storage.
//
//   - серверная ошибка класса 08 (connection exception), shutdown,
//     too_many_connections, cannot_connect_now -> ErrStoreUnavailable;
//   - любая другая серверная ошибка (*pgconn.PgError) -> ErrQueryFailed;
//   - прочее (сеть, таймаут, отмена ctx, закрытый пул) -> ErrStoreUnavailable.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgerrcode.IsConnectionException(pgErr.Code),
			pgErr.Code == pgerrcode.AdminShutdown,
			pgErr.Code == pgerrcode.CrashShutdown,
			pgErr.Code == pgerrcode.CannotConnectNow,
			pgErr.Code == pgerrcode.TooManyConnections:
			return storage.ErrStoreUnavailable
		default:
			return storage.ErrQueryFailed
		}
	}

	return storage.ErrStoreUnavailable
}

// Проверка на соответствие интерфейсу ReportStorage.
var _ storage.ReportStorage = (*Storage)(nil)
