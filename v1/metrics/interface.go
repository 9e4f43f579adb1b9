package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Aleph-Alpha/registry-serde/v1/observability"
)

// MetricsCollector records operations of the registry client, the
// serializer and the bus adapters, and lets applications add their own
// series to the same registry.
type MetricsCollector interface {
	observability.Observer

	// CreateCounter registers a new counter vector under the metrics namespace.
	CreateCounter(name, help string, labels []string) *prometheus.CounterVec

	// CreateHistogram registers a new histogram vector under the metrics namespace.
	CreateHistogram(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec

	// CreateGauge registers a new gauge vector under the metrics namespace.
	CreateGauge(name, help string, labels []string) *prometheus.GaugeVec
}
