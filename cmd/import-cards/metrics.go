package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const pushJob = "card_import"

// pushMetrics sends the process's metrics to a Prometheus Pushgateway so a
// one-shot run leaves its counters behind.
func pushMetrics(ctx context.Context, url string) error {
	if err := push.New(url, pushJob).Gatherer(prometheus.DefaultGatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("push to %s: %w", url, err)
	}
	return nil
}
