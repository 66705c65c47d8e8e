// metrics - метрики Prometheus для report-board.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "report_board"

// Исходы обновления.
const (
	OutcomeSkipped = "skipped"
	OutcomeUpdated = "updated"
	OutcomeFailed  = "failed"
)

var (
	// RefreshTotal - число обновлений по представлениям и исходам.
	RefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Total number of cache refresh attempts by outcome",
		},
		[]string{"view", "outcome"},
	)

	// RefreshDuration - длительность обновления, включая быстрый путь по отпечатку.
	RefreshDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of cache refresh attempts in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"view"},
	)

	// CacheEntries - число записей в последней опубликованной группировке.
	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Number of report entries in the cached grouping",
		},
		[]string{"view"},
	)

	// ServeTotal - число выдач группировки по состоянию кэша.
	ServeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "serve_total",
			Help:      "Total number of grouping reads by cache state",
		},
		[]string{"view", "state"},
	)
)

// RecordRefresh учитывает одну попытку обновления.
func RecordRefresh(view, outcome string, d time.Duration) {
	RefreshTotal.WithLabelValues(view, outcome).Inc()
	RefreshDuration.WithLabelValues(view).Observe(d.Seconds())
}

// SetCacheEntries выставляет размер опубликованной группировки.
func SetCacheEntries(view string, n int) {
	CacheEntries.WithLabelValues(view).Set(float64(n))
}

// RecordServe учитывает одну выдачу.
func RecordServe(view, state string) {
	ServeTotal.WithLabelValues(view, state).Inc()
}
