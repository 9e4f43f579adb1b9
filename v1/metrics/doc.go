// Package metrics exposes Prometheus metrics for registry-serde components.
//
// Metrics implements observability.Observer. Give it to the registry client,
// the HTTP gateway, the schema store, the serializer or a bus client through
// WithObserver (or let fx inject it) and every operation is counted:
//
//	operations_total{component, operation, status}
//	operation_duration_seconds{component, operation}
//	payload_size_bytes{component, operation}
//	cache_lookups_total{component, operation, result}
//
// Series carry a "service" label when Config.ServiceName is set and are
// prefixed with Config.Namespace.
//
// # Usage
//
//	m := metrics.NewMetrics(metrics.Config{Address: ":9090", Namespace: "orders"})
//	client := schema_registry.NewCachedClient(gateway).WithObserver(m)
//	go m.Server.ListenAndServe()
//
// Custom series share the registry:
//
//	dlq := m.CreateCounter("dead_letters_total", "Messages moved to the DLQ", []string{"topic"})
//
// # FX Module Integration
//
//	app := fx.New(
//		logger.FXModule,
//		metrics.FXModule, // provides *Metrics and observability.Observer
//		fx.Supply(metrics.Config{Address: ":9090"}),
//	)
//
// The server answers on /metrics and is shut down with the application.
package metrics
