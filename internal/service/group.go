package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/pribylovaa/report-board/internal/models"
)

// saveTimeLayout - формат save_time, который пишет ингестер: ровно шесть знаков дробной части.
const saveTimeLayout = "2006-01-02T15:04:05.000000"

// dayLayout - ключ даты для представления «последние отчёты».
const dayLayout = "2006-01-02"

// DateKeyFunc вычисляет ключ первого уровня группировки для строки.
type DateKeyFunc func(models.ReportRow) (string, error)

// RegDateKey - ключ «отчётов по дням»: reg_dt как есть, без пробелов по краям.
func RegDateKey(r models.ReportRow) (string, error) {
	return strings.TrimSpace(r.RegDate), nil
}

// SaveTimeDayKey - ключ «последних отчётов»: save_time, усечённый до YYYY-MM-DD.
// Пробелы по краям отбрасываются; остаток не в формате YYYY-MM-DDTHH:MM:SS.ffffff -> ErrMalformedTimestamp.
func SaveTimeDayKey(r models.ReportRow) (string, error) {
	t, err := time.Parse(saveTimeLayout, strings.TrimSpace(r.SaveTime))
	if err != nil {
		return "", fmt.Errorf("%w: key %q save_time %q", ErrMalformedTimestamp, r.Key, r.SaveTime)
	}

	return t.Format(dayLayout), nil
}

// GroupRows строит группировку дата -> фирма -> записи.
//
// Особенности:
//   - строки обходятся в порядке получения, ничего не сортируется;
//   - первая же ошибка ключа прерывает весь проход: частичная группировка не возвращается.
func GroupRows(rows []models.ReportRow, dateKey DateKeyFunc) (*models.Grouping, error) {
	const op = "service.group.GroupRows"

	g := models.NewGrouping()
	for _, r := range rows {
		date, err := dateKey(r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		g.Append(date, strings.TrimSpace(r.FirmName), cleanEntry(r))
	}

	return g, nil
}

// cleanEntry проецирует строку в запись для выдачи: trim полей, NULL -> "".
func cleanEntry(r models.ReportRow) models.CleanedEntry {
	return models.CleanedEntry{
		Title:  strings.TrimSpace(r.ArticleTitle),
		Link:   trimOrEmpty(r.TelegramURL),
		Writer: trimOrEmpty(r.Writer),
	}
}

func trimOrEmpty(s *string) string {
	if s == nil {
		return ""
	}

	return strings.TrimSpace(*s)
}
