package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/report-board/internal/models"
)

func strPtr(s string) *string { return &s }

func TestGroupRows_PreservesInputOrder(t *testing.T) {
	t.Parallel()

	rows := []models.ReportRow{
		{RegDate: "D1", FirmName: "A", ArticleTitle: "r1", Key: "1"},
		{RegDate: "D1", FirmName: "A", ArticleTitle: "r2", Key: "2"},
		{RegDate: "D2", FirmName: "B", ArticleTitle: "r3", Key: "3"},
	}

	g, err := GroupRows(rows, RegDateKey)
	require.NoError(t, err)

	raw, err := json.Marshal(g)
	require.NoError(t, err)
	require.Equal(t,
		`{"D1":{"A":[{"title":"r1","link":"","writer":""},{"title":"r2","link":"","writer":""}]},"D2":{"B":[{"title":"r3","link":"","writer":""}]}}`,
		string(raw))
}

func TestGroupRows_NoSorting(t *testing.T) {
	t.Parallel()

	// даты и фирмы не по порядку: группировка обязана сохранить порядок первого появления
	rows := []models.ReportRow{
		{RegDate: "20250101", FirmName: "Z", ArticleTitle: "1"},
		{RegDate: "20250105", FirmName: "A", ArticleTitle: "2"},
		{RegDate: "20250101", FirmName: "B", ArticleTitle: "3"},
		{RegDate: "20250101", FirmName: "Z", ArticleTitle: "4"},
	}

	g, err := GroupRows(rows, RegDateKey)
	require.NoError(t, err)
	require.Equal(t, []string{"20250101", "20250105"}, g.Dates())
	require.Equal(t, []string{"Z", "B"}, g.Firms("20250101"))
	require.Len(t, g.Entries("20250101", "Z"), 2)
	require.Equal(t, "4", g.Entries("20250101", "Z")[1].Title)
}

func TestGroupRows_TrimsKeys(t *testing.T) {
	t.Parallel()

	rows := []models.ReportRow{
		{RegDate: " 20250110 ", FirmName: "  X ", ArticleTitle: "a"},
		{RegDate: "20250110", FirmName: "X", ArticleTitle: "b"},
	}

	g, err := GroupRows(rows, RegDateKey)
	require.NoError(t, err)
	require.Equal(t, []string{"20250110"}, g.Dates())
	require.Equal(t, []string{"X"}, g.Firms("20250110"))
	require.Equal(t, 2, g.Count())
}

func TestGroupRows_EndToEndScenario(t *testing.T) {
	t.Parallel()

	rows := []models.ReportRow{
		{Key: "a", RegDate: "20250110", FirmName: "X", ArticleTitle: "T1"},
		{Key: "b", RegDate: "20250110", FirmName: "Y", ArticleTitle: "T2"},
	}

	g, err := GroupRows(rows, RegDateKey)
	require.NoError(t, err)

	raw, err := json.Marshal(g)
	require.NoError(t, err)
	require.Equal(t,
		`{"20250110":{"X":[{"title":"T1","link":"","writer":""}],"Y":[{"title":"T2","link":"","writer":""}]}}`,
		string(raw))
}

func TestGroupRows_EmptyInput(t *testing.T) {
	t.Parallel()

	g, err := GroupRows(nil, SaveTimeDayKey)
	require.NoError(t, err)
	require.Equal(t, 0, g.Len())

	raw, err := json.Marshal(g)
	require.NoError(t, err)
	require.Equal(t, `{}`, string(raw))
}

func TestGroupRows_MalformedTimestampAbortsWholePass(t *testing.T) {
	t.Parallel()

	rows := []models.ReportRow{
		{Key: "ok", SaveTime: "2025-01-15T09:30:00.123456", FirmName: "X"},
		{Key: "bad", SaveTime: "2025-01-15", FirmName: "X"},
	}

	g, err := GroupRows(rows, SaveTimeDayKey)
	require.ErrorIs(t, err, ErrMalformedTimestamp)
	require.Nil(t, g)
}

func TestCleanEntry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		row  models.ReportRow
		want models.CleanedEntry
	}{
		{
			name: "trims title and writer, null link becomes empty",
			row:  models.ReportRow{ArticleTitle: "  Hello  ", TelegramURL: nil, Writer: strPtr(" Jane ")},
			want: models.CleanedEntry{Title: "Hello", Link: "", Writer: "Jane"},
		},
		{
			name: "trims link",
			row:  models.ReportRow{ArticleTitle: "T", TelegramURL: strPtr(" https://t.me/x\n")},
			want: models.CleanedEntry{Title: "T", Link: "https://t.me/x"},
		},
		{
			name: "null writer becomes empty",
			row:  models.ReportRow{ArticleTitle: "T", Writer: nil},
			want: models.CleanedEntry{Title: "T"},
		},
		{
			name: "article url is not the link",
			row:  models.ReportRow{ArticleTitle: "T", ArticleURL: strPtr("https://example.org")},
			want: models.CleanedEntry{Title: "T"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, cleanEntry(tt.row))
		})
	}
}

func TestSaveTimeDayKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "six fractional digits", in: "2025-01-15T09:30:00.123456", want: "2025-01-15"},
		{name: "zero fraction", in: "2025-12-31T23:59:59.000000", want: "2025-12-31"},
		{name: "padded", in: "  2025-01-15T09:30:00.123456\n", want: "2025-01-15"},
		{name: "date only", in: "2025-01-15", wantErr: true},
		{name: "no fraction", in: "2025-01-15T09:30:00", wantErr: true},
		{name: "three fractional digits", in: "2025-01-15T09:30:00.123", wantErr: true},
		{name: "space separator", in: "2025-01-15 09:30:00.123456", wantErr: true},
		{name: "with zone", in: "2025-01-15T09:30:00.123456Z", wantErr: true},
		{name: "empty", in: "", wantErr: true},
		{name: "blank", in: "   ", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := SaveTimeDayKey(models.ReportRow{SaveTime: tt.in})
			if tt.wantErr {
				require.ErrorIs(t, err, ErrMalformedTimestamp)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
