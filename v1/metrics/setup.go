package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ MetricsCollector = (*Metrics)(nil)

// Metrics owns a Prometheus registry, the HTTP server exposing it and the
// series fed by ObserveOperation.
type Metrics struct {
	Server *http.Server

	Registry *prometheus.Registry

	namespace  string
	registerer prometheus.Registerer

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	payloadSize       *prometheus.HistogramVec
	cacheLookups      *prometheus.CounterVec
}

// NewMetrics creates the registry and the server. The server is started by
// the fx lifecycle or by the caller.
func NewMetrics(cfg Config) *Metrics {
	registry := prometheus.NewRegistry()

	var registerer prometheus.Registerer = registry
	if cfg.ServiceName != "" {
		registerer = prometheus.WrapRegistererWith(prometheus.Labels{"service": cfg.ServiceName}, registry)
	}

	m := &Metrics{
		Registry:   registry,
		namespace:  cfg.Namespace,
		registerer: registerer,
	}

	m.operationsTotal = m.counterVec("operations_total",
		"Total number of operations by component, operation and status",
		[]string{"component", "operation", "status"})
	m.operationDuration = m.histogramVec("operation_duration_seconds",
		"Duration of operations in seconds",
		[]string{"component", "operation"}, prometheus.DefBuckets)
	m.payloadSize = m.histogramVec("payload_size_bytes",
		"Size of encoded and decoded payloads in bytes",
		[]string{"component", "operation"}, prometheus.ExponentialBuckets(64, 4, 8))
	m.cacheLookups = m.counterVec("cache_lookups_total",
		"Schema cache lookups by result",
		[]string{"component", "operation", "result"})

	registerer.MustRegister(
		m.operationsTotal,
		m.operationDuration,
		m.payloadSize,
		m.cacheLookups,
	)

	if cfg.EnableDefaultCollectors {
		registerer.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewBuildInfoCollector(),
		)
	}

	address := cfg.Address
	if address == "" {
		address = defaultAddress
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	m.Server = &http.Server{
		Addr:    address,
		Handler: mux,
	}
	return m
}
