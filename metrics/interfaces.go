// Package metrics provides Prometheus-compatible instruments for the dashboard.
//
// Two modes are supported:
//   - Scrape mode (server): metrics live in a Prometheus registry exposed on /metrics
//   - Push mode (taskctl): samples are buffered and remote-written to VictoriaMetrics on Flush
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Gauge is a metric that represents a single numerical value that can go up and down.
type Gauge interface {
	Set(float64)
}

// Counter is a monotonically increasing metric.
type Counter interface {
	Inc()
	// Add panics if the value is negative.
	Add(float64)
}

// GaugeVec is a Gauge with labels.
type GaugeVec interface {
	With(prometheus.Labels) Gauge
	// Delete removes the series with exactly these labels. It reports whether
	// a series was removed.
	Delete(prometheus.Labels) bool
}

// CounterVec is a Counter with labels.
type CounterVec interface {
	With(prometheus.Labels) Counter
}

// Registry creates and registers metrics.
type Registry interface {
	NewGaugeVec(opts prometheus.GaugeOpts, labels []string) (GaugeVec, error)
	NewCounterVec(opts prometheus.CounterOpts, labels []string) (CounterVec, error)
}
