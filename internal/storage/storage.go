// storage определяет контракты доступа к таблице отчётов для report-board.
package storage

import (
	"context"
	"errors"

	"github.com/pribylovaa/report-board/internal/models"
)

var (
	// ErrStoreUnavailable - не удалось установить/удержать соединение с хранилищем
	// (транспорт, таймаут, база занята или закрыта).
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrQueryFailed - хранилище отвергло запрос или вернуло данные,
	// которые не удалось разобрать.
	ErrQueryFailed = errors.New("query failed")
)

// ReportStorage описывает чтение таблицы отчётов.
//
// Пустой результат - это не ошибка: LastModified возвращает Fingerprint{Valid: false},
// Fetch* - пустой срез. Ошибки всегда оборачивают ErrStoreUnavailable или ErrQueryFailed.
type ReportStorage interface {
	// LastModified возвращает MAX(save_time) по всей таблице - дешёвый отпечаток свежести.
	LastModified(ctx context.Context) (models.Fingerprint, error)
	// FetchWindowed возвращает строки окна дат,
	// ORDER BY reg_dt DESC, sec_firm_order, article_board_order, save_time.
	FetchWindowed(ctx context.Context, opts models.FetchOptions) ([]models.ReportRow, error)
	// FetchRecent возвращает строки окна дат, ORDER BY save_time DESC, reg_dt DESC.
	FetchRecent(ctx context.Context, opts models.FetchOptions) ([]models.ReportRow, error)
	// Ping проверяет доступность хранилища.
	Ping(ctx context.Context) error
	// Close освобождает соединения.
	Close()
}

// Общие части SQL для реализаций. Порядок ORDER BY - часть контракта:
// группировка наследует его без пересортировки.
const (
	// ReportTable - имя таблицы, которую пишет ингестер.
	ReportTable = "data_main_daily_send"
	// ReportColumns - колонки в порядке сканирования в models.ReportRow.
	ReportColumns = "sec_firm_order, article_board_order, firm_nm, reg_dt, attach_url, " +
		"article_title, article_url, main_ch_send_yn, download_url, writer, save_time, telegram_url, key"
	// OrderWindowed - сортировка для «отчётов по дням».
	OrderWindowed = "reg_dt DESC, sec_firm_order, article_board_order, save_time"
	// OrderRecent - сортировка для «последних отчётов».
	OrderRecent = "save_time DESC, reg_dt DESC"
)
