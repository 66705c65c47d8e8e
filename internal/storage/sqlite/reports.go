package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pribylovaa/report-board/internal/models"
	"github.com/pribylovaa/report-board/internal/storage"
)

const lastModifiedQuery = `SELECT MAX(save_time) FROM ` + storage.ReportTable

// LastModified возвращает MAX(save_time); пустая таблица -> Fingerprint{Valid: false}.
func (s *Storage) LastModified(ctx context.Context) (models.Fingerprint, error) {
	const op = "storage.sqlite.LastModified"

	var raw sql.NullString
	if err := s.db.QueryRowContext(ctx, lastModifiedQuery).Scan(&raw); err != nil {
		return models.Fingerprint{}, fmt.Errorf("%s: %w: %w", op, classify(err), err)
	}

	if !raw.Valid {
		return models.Fingerprint{}, nil
	}

	return models.NewFingerprint(raw.String), nil
}

// FetchWindowed возвращает строки окна дат в порядке storage.OrderWindowed.
func (s *Storage) FetchWindowed(ctx context.Context, opts models.FetchOptions) ([]models.ReportRow, error) {
	const op = "storage.sqlite.FetchWindowed"

	rows, err := s.fetch(ctx, opts, storage.OrderWindowed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return rows, nil
}

// FetchRecent возвращает строки окна дат в порядке storage.OrderRecent.
func (s *Storage) FetchRecent(ctx context.Context, opts models.FetchOptions) ([]models.ReportRow, error) {
	const op = "storage.sqlite.FetchRecent"

	rows, err := s.fetch(ctx, opts, storage.OrderRecent)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return rows, nil
}

func windowQuery(withFirm bool, orderBy string) string {
	q := `SELECT ` + storage.ReportColumns + ` FROM ` + storage.ReportTable +
		` WHERE reg_dt BETWEEN ? AND ?`
	if withFirm {
		q += ` AND sec_firm_order = ?`
	}

	return q + ` ORDER BY ` + orderBy
}

func (s *Storage) fetch(ctx context.Context, opts models.FetchOptions, orderBy string) ([]models.ReportRow, error) {
	from, to := models.DateWindow(opts.ReferenceDate)
	args := []any{from, to}
	if opts.FirmOrder != nil {
		args = append(args, *opts.FirmOrder)
	}

	rows, err := s.db.QueryContext(ctx, windowQuery(opts.FirmOrder != nil, orderBy), args...)
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

func scanRow(rows *sql.Rows) (models.ReportRow, error) {
	var (
		r                                                   models.ReportRow
		attach, articleURL, sendYN, download, writer, tgURL sql.NullString
	)

	err := rows.Scan(
		&r.SecFirmOrder,
		&r.ArticleBoardOrder,
		&r.FirmName,
		&r.RegDate,
		&attach,
		&r.ArticleTitle,
		&articleURL,
		&sendYN,
		&download,
		&writer,
		&r.SaveTime,
		&tgURL,
		&r.Key,
	)
	if err != nil {
		return models.ReportRow{}, err
	}

	r.AttachURL = nullable(attach)
	r.ArticleURL = nullable(articleURL)
	r.MainChSendYN = nullable(sendYN)
	r.DownloadURL = nullable(download)
	r.Writer = nullable(writer)
	r.TelegramURL = nullable(tgURL)

	return r, nil
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
