// sqlite реализует storage.ReportStorage поверх SQLite (modernc.org/sqlite, без cgo).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/pribylovaa/report-board/internal/storage"
)

// schema повторяет migrations/1_init_reports.up.sql.
const schema = `
CREATE TABLE IF NOT EXISTS data_main_daily_send (
    sec_firm_order      INTEGER NOT NULL DEFAULT 0,
    article_board_order INTEGER NOT NULL DEFAULT 0,
    firm_nm             TEXT NOT NULL DEFAULT '',
    reg_dt              TEXT NOT NULL,
    attach_url          TEXT,
    article_title       TEXT NOT NULL DEFAULT '',
    article_url         TEXT,
    main_ch_send_yn     TEXT,
    download_url        TEXT,
    writer              TEXT,
    save_time           TEXT NOT NULL,
    telegram_url        TEXT,
    key                 TEXT PRIMARY KEY
);
CREATE INDEX IF NOT EXISTS idx_daily_send_reg_dt ON data_main_daily_send (reg_dt);
CREATE INDEX IF NOT EXISTS idx_daily_send_save_time ON data_main_daily_send (save_time);
`

// Storage - хранилище отчётов в файле SQLite или в памяти.
type Storage struct {
	db *sql.DB
}

// New открывает базу по пути path и проверяет соединение.
// Схему не создаёт: таблицу пишет внешний ингестер, см. EnsureSchema.
func New(ctx context.Context, path string) (*Storage, error) {
	const op = "storage.sqlite.New"

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, storage.ErrStoreUnavailable, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w: %w", op, classify(err), err)
	}

	return &Storage{db: db}, nil
}

// EnsureSchema создаёт таблицу отчётов и индексы, если их ещё нет.
func (s *Storage) EnsureSchema(ctx context.Context) error {
	const op = "storage.sqlite.EnsureSchema"

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%s: %w: %w", op, classify(err), err)
	}

	return nil
}

// Ping проверяет соединение с базой.
func (s *Storage) Ping(ctx context.Context) error {
	const op = "storage.sqlite.Ping"

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%s: %w: %w", op, classify(err), err)
	}

	return nil
}

// Close закрывает базу.
func (s *Storage) Close() {
	_ = s.db.Close()
}

// classify относит ошибку SQLite к одному из видов storage по первичному коду результата.
// Ошибки не из драйвера (закрытая база, отмена ctx) считаются недоступностью.
func classify(err error) error {
	var sqlErr *sqlite.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.Code() & 0xff {
		case sqlite3.SQLITE_CANTOPEN,
			sqlite3.SQLITE_BUSY,
			sqlite3.SQLITE_LOCKED,
			sqlite3.SQLITE_IOERR,
			sqlite3.SQLITE_NOTADB,
			sqlite3.SQLITE_PERM:
			return storage.ErrStoreUnavailable
		default:
			return storage.ErrQueryFailed
		}
	}

	return storage.ErrStoreUnavailable
}

// Проверка на соответствие интерфейсу ReportStorage.
var _ storage.ReportStorage = (*Storage)(nil)
