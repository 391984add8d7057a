package scryfall

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scryfall_pages_fetched_total",
			Help: "Search result pages fetched, by source (api or cache).",
		},
		[]string{"source"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scryfall_request_duration_seconds",
			Help:    "Latency of Scryfall API requests, by outcome.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
)
