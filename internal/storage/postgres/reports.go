package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pribylovaa/report-board/internal/models"
	"github.com/pribylovaa/report-board/internal/storage"
)

const lastModifiedQuery = `SELECT MAX(save_time) FROM ` + storage.ReportTable

// LastModified возвращает MAX(save_time); пустая таблица -> Fingerprint{Valid: false}.
func (s *Storage) LastModified(ctx context.Context) (models.Fingerprint, error) {
	const op = "storage.postgres.LastModified"

	var raw *string
	if err := s.db.QueryRow(ctx, lastModifiedQuery).Scan(&raw); err != nil {
		return models.Fingerprint{}, fmt.Errorf("%s: %w: %w", op, classify(err), err)
	}

	if raw == nil {
		return models.Fingerprint{}, nil
	}

	return models.NewFingerprint(*raw), nil
}

// FetchWindowed возвращает строки окна дат в порядке storage.OrderWindowed.
func (s *Storage) FetchWindowed(ctx context.Context, opts models.FetchOptions) ([]models.ReportRow, error) {
	const op = "storage.postgres.FetchWindowed"

	rows, err := s.fetch(ctx, opts, storage.OrderWindowed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return rows, nil
}

// FetchRecent возвращает строки окна дат в порядке storage.OrderRecent.
func (s *Storage) FetchRecent(ctx context.Context, opts models.FetchOptions) ([]models.ReportRow, error) {
	const op = "storage.postgres.FetchRecent"

	rows, err := s.fetch(ctx, opts, storage.OrderRecent)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return rows, nil
}

// windowQuery собирает запрос окна дат с опциональным фильтром по фирме.
func windowQuery(withFirm bool, orderBy string) string {
	q := `SELECT ` + storage.ReportColumns + ` FROM ` + storage.ReportTable +
		` WHERE reg_dt BETWEEN $1 AND $2`
	if withFirm {
		q += ` AND sec_firm_order = $3`
	}

	return q + ` ORDER BY ` + orderBy
}

func (s *Storage) fetch(ctx context.Context, opts models.FetchOptions, orderBy string) ([]models.ReportRow, error) {
	from, to := models.DateWindow(opts.ReferenceDate)
	args := []any{from, to}
	if opts.FirmOrder != nil {
		args = append(args, *opts.FirmOrder)
	}

	rows, err := s.db.Query(ctx, windowQuery(opts.FirmOrder != nil, orderBy), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", classify(err), err)
	}
	defer rows.Close()

	out := make([]models.ReportRow, 0)
	for rows.Next() {
		r, scanErr := scanRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("%w: scan row: %w", storage.ErrQueryFailed, scanErr)
		}
		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %w", classify(err), err)
	}

	return out, nil
}

func scanRow(rows pgx.Rows) (models.ReportRow, error) {
	var r models.ReportRow
	err := rows.Scan(
		&r.SecFirmOrder,
		&r.ArticleBoardOrder,
		&r.FirmName,
		&r.RegDate,
		&r.AttachURL,
		&r.ArticleTitle,
		&r.ArticleURL,
		&r.MainChSendYN,
		&r.DownloadURL,
		&r.Writer,
		&r.SaveTime,
		&r.TelegramURL,
		&r.Key,
	)

	return r, err
}
