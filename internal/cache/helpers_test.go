package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/report-board/internal/models"
)

func sampleGrouping() *models.Grouping {
	g := models.NewGrouping()
	g.Append("20250110", "X", models.CleanedEntry{Title: "T1", Link: "https://t.me/1", Writer: "Jane"})
	g.Append("20250110", "Y", models.CleanedEntry{Title: "T2"})
	return g
}

func sampleFingerprint() models.Fingerprint {
	return models.NewFingerprint("2025-01-10T09:00:00.000001")
}

func requireSameGrouping(t *testing.T, want, got *models.Grouping) {
	t.Helper()

	wantJSON, err := want.MarshalJSON()
	require.NoError(t, err)
	gotJSON, err := got.MarshalJSON()
	require.NoError(t, err)
	require.Equal(t, string(wantJSON), string(gotJSON))
}
