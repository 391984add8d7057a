package importer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	variantsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "card_import_variants_total",
			Help: "Card variants processed by the importer, by result (created or skipped).",
		},
		[]string{"result"},
	)

	importRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "card_import_runs_total",
			Help: "Import runs, by status (success or failure).",
		},
		[]string{"status"},
	)

	importDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "card_import_run_duration_seconds",
			Help:    "Duration of import runs.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)
)
