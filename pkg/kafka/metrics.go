package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_events_published_total",
			Help: "Events written to Kafka, by topic, event type and result",
		},
		[]string{"topic", "event_type", "result"},
	)

	publishLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_event_publish_duration_seconds",
			Help:    "Time spent writing one event to Kafka",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"topic"},
	)
)
