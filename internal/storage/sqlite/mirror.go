package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/pribylovaa/report-board/internal/models"
	"github.com/pribylovaa/report-board/internal/storage"
)

const insertRowQuery = `INSERT INTO ` + storage.ReportTable + ` (` + storage.ReportColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// NewMirror создаёт пустую реплику таблицы отчётов в памяти.
//
// Пул ограничен одним соединением: каждое соединение к ":memory:" - отдельная база.
func NewMirror(ctx context.Context) (*Storage, error) {
	const op = "storage.sqlite.NewMirror"

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, storage.ErrStoreUnavailable, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	st := &Storage{db: db}
	if err := st.EnsureSchema(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return st, nil
}

// SyncFrom заменяет содержимое реплики строками окна дат из src.
// Замена выполняется одной транзакцией: читатели видят либо старый, либо новый набор.
// Возвращает число скопированных строк.
func (s *Storage) SyncFrom(ctx context.Context, src storage.ReportStorage, opts models.FetchOptions) (int, error) {
	const op = "storage.sqlite.SyncFrom"

	rows, err := src.FetchWindowed(ctx, models.FetchOptions{ReferenceDate: opts.ReferenceDate})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %w", op, classify(err), err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+storage.ReportTable); err != nil {
		return 0, fmt.Errorf("%s: %w: %w", op, classify(err), err)
	}

	stmt, err := tx.PrepareContext(ctx, insertRowQuery)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %w", op, classify(err), err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx,
			r.SecFirmOrder, r.ArticleBoardOrder, r.FirmName, r.RegDate, r.AttachURL,
			r.ArticleTitle, r.ArticleURL, r.MainChSendYN, r.DownloadURL, r.Writer,
			r.SaveTime, r.TelegramURL, r.Key,
		); err != nil {
			return 0, fmt.Errorf("%s: insert %q: %w: %w", op, r.Key, classify(err), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w: %w", op, classify(err), err)
	}

	return len(rows), nil
}

// Mirrored читает отчёты из зеркала в памяти и держит его в согласии с основным хранилищем.
//
// Особенности:
//   - LastModified всегда спрашивает основное хранилище и запоминает отпечаток;
//   - Fetch* пересинхронизирует зеркало перед чтением, если отпечаток основного
//     хранилища сменился с прошлой синхронизации или сдвинулось окно дат;
//   - ошибка синхронизации возвращается из Fetch*, зеркало остаётся прежним.
type Mirrored struct {
	primary storage.ReportStorage
	mirror  *Storage

	mu        sync.Mutex
	latest    models.Fingerprint
	synced    bool
	syncedFP  models.Fingerprint
	syncedRef time.Time
}

// NewMirrored связывает основное хранилище с зеркалом. Владение обоими переходит к Mirrored.
func NewMirrored(primary storage.ReportStorage, mirror *Storage) *Mirrored {
	return &Mirrored{primary: primary, mirror: mirror}
}

// LastModified возвращает отпечаток основного хранилища.
func (m *Mirrored) LastModified(ctx context.Context) (models.Fingerprint, error) {
	const op = "storage.sqlite.Mirrored.LastModified"

	fp, err := m.primary.LastModified(ctx)
	if err != nil {
		return models.Fingerprint{}, fmt.Errorf("%s: %w", op, err)
	}

	m.mu.Lock()
	m.latest = fp
	m.mu.Unlock()

	return fp, nil
}

// FetchWindowed читает окно дат из зеркала.
func (m *Mirrored) FetchWindowed(ctx context.Context, opts models.FetchOptions) ([]models.ReportRow, error) {
	const op = "storage.sqlite.Mirrored.FetchWindowed"

	rows, err := m.read(ctx, opts, m.mirror.FetchWindowed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return rows, nil
}

// FetchRecent читает окно дат из зеркала.
func (m *Mirrored) FetchRecent(ctx context.Context, opts models.FetchOptions) ([]models.ReportRow, error) {
	const op = "storage.sqlite.Mirrored.FetchRecent"

	rows, err := m.read(ctx, opts, m.mirror.FetchRecent)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return rows, nil
}

// read синхронизирует зеркало при необходимости и читает из него под одной блокировкой.
func (m *Mirrored) read(
	ctx context.Context,
	opts models.FetchOptions,
	fetch func(context.Context, models.FetchOptions) ([]models.ReportRow, error),
) ([]models.ReportRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.synced || !m.latest.Equal(m.syncedFP) || !opts.ReferenceDate.Equal(m.syncedRef) {
		fp := m.latest
		if _, err := m.mirror.SyncFrom(ctx, m.primary, models.FetchOptions{ReferenceDate: opts.ReferenceDate}); err != nil {
			return nil, err
		}
		m.synced, m.syncedFP, m.syncedRef = true, fp, opts.ReferenceDate
	}

	return fetch(ctx, opts)
}

// Ping проверяет основное хранилище.
func (m *Mirrored) Ping(ctx context.Context) error { return m.primary.Ping(ctx) }

// Close закрывает зеркало и основное хранилище.
func (m *Mirrored) Close() {
	m.mirror.Close()
	m.primary.Close()
}

var _ storage.ReportStorage = (*Mirrored)(nil)
