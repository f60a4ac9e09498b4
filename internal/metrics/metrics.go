// Package metrics exposes Prometheus collectors for statistics runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediastats_run_duration_seconds",
			Help:    "Duration of statistics runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"mode", "status"},
	)

	LastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mediastats_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run per mode",
		},
		[]string{"mode"},
	)

	SkippedRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediastats_runs_skipped_total",
			Help: "Scheduled runs skipped because another run was in progress",
		},
		[]string{"mode"},
	)

	EpisodeLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediastats_episode_lookups_total",
			Help: "Authoritative episode count lookups by result",
		},
		[]string{"provider", "result"}, // result: ok, error, rejected
	)

	ItemsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediastats_items_skipped_total",
			Help: "Items excluded from a statistic because reading them failed",
		},
		[]string{"statistic"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mediastats_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	LedgerSeries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediastats_ledger_series",
			Help: "Series in the episode ledger of the last run",
		},
	)
)
