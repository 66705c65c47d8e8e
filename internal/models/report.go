// models содержит доменные сущности report-board.
// Эти типы используются слоями хранилища, кэша, бизнес-логики и транспорта.
package models

import (
	"time"
)

// RegDateLayout - формат колонки reg_dt (YYYYMMDD).
const RegDateLayout = "20060102"

// ReportRow - одна строка таблицы отчётов в том виде, в каком её пишет
// внешний ингестер. Для этого слоя строки только читаются.
//
// Особенности:
//   - Key - глобально уникальный натуральный ключ записи;
//   - nullable-колонки представлены *string, NULL != "";
//   - SaveTime - строка ISO-8601 с дробными секундами, как её хранит ингестер.
type ReportRow struct {
	SecFirmOrder      int
	ArticleBoardOrder int
	FirmName          string
	RegDate           string
	AttachURL         *string
	ArticleTitle      string
	ArticleURL        *string
	MainChSendYN      *string
	DownloadURL       *string
	Writer            *string
	SaveTime          string
	TelegramURL       *string
	Key               string
}

// CleanedEntry - проекция ReportRow для выдачи наружу.
// Пересчитывается на каждом проходе группировки и отдельно не хранится.
type CleanedEntry struct {
	Title  string `json:"title"`
	Link   string `json:"link"`
	Writer string `json:"writer"`
}

// FetchOptions - параметры выборки строк для представления.
//
// Особенности:
//   - ReferenceDate - «сегодня» для окна дат; нулевое значение недопустимо,
//     его подставляет вызывающий слой;
//   - FirmOrder == nil -> без фильтра по sec_firm_order.
type FetchOptions struct {
	ReferenceDate time.Time
	FirmOrder     *int
}

// DateWindow возвращает границы окна [ref-3d, ref+2d] в формате reg_dt.
func DateWindow(ref time.Time) (from, to string) {
	return ref.AddDate(0, 0, -3).Format(RegDateLayout), ref.AddDate(0, 0, 2).Format(RegDateLayout)
}

// ParseRegDate разбирает дату в формате YYYYMMDD (UTC).
func ParseRegDate(s string) (time.Time, error) {
	return time.ParseInLocation(RegDateLayout, s, time.UTC)
}
