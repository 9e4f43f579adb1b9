package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/Aleph-Alpha/registry-serde/v1/observability"
)

func TestObserveOperation(t *testing.T) {
	m := NewMetrics(Config{})

	m.ObserveOperation(observability.OperationContext{
		Component: "serializer",
		Operation: "encode",
		Resource:  "orders",
		Duration:  20 * time.Millisecond,
		Size:      128,
	})
	m.ObserveOperation(observability.OperationContext{
		Component: "serializer",
		Operation: "encode",
		Duration:  time.Millisecond,
		Error:     errors.New("boom"),
	})
	m.ObserveOperation(observability.OperationContext{
		Component: "schema_registry",
		Operation: "get_by_id",
		Metadata:  map[string]string{"cache": "hit"},
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("serializer", "encode", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("serializer", "encode", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("schema_registry", "get_by_id", "hit")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("schema_registry", "get_by_id", "miss")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.operationDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(m.payloadSize))
}

func TestServiceLabelAndNamespace(t *testing.T) {
	m := NewMetrics(Config{ServiceName: "orders", Namespace: "serde"})
	m.ObserveOperation(observability.OperationContext{Component: "kafka", Operation: "publish"})

	expected := `
# HELP serde_operations_total Total number of operations by component, operation and status
# TYPE serde_operations_total counter
serde_operations_total{component="kafka",operation="publish",service="orders",status="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry, strings.NewReader(expected), "serde_operations_total"))
}

func TestCreateCustomSeries(t *testing.T) {
	m := NewMetrics(Config{})

	counter := m.CreateCounter("dead_letters_total", "Messages moved to the DLQ", []string{"topic"})
	counter.WithLabelValues("orders").Add(3)
	gauge := m.CreateGauge("consumer_lag", "Consumer lag", []string{"topic"})
	gauge.WithLabelValues("orders").Set(7)
	hist := m.CreateHistogram("batch_size", "Batch size", nil, []float64{1, 10, 100})
	hist.WithLabelValues().Observe(5)

	assert.Equal(t, 3.0, testutil.ToFloat64(counter.WithLabelValues("orders")))
	assert.Equal(t, 7.0, testutil.ToFloat64(gauge.WithLabelValues("orders")))
	assert.Panics(t, func() {
		m.CreateCounter("dead_letters_total", "again", []string{"topic"})
	})
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics(Config{})
	m.ObserveOperation(observability.OperationContext{Component: "rabbit", Operation: "consume"})

	rec := httptest.NewRecorder()
	m.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `operations_total{component="rabbit",operation="consume",status="success"} 1`)
	assert.Equal(t, defaultAddress, m.Server.Addr)
}

func TestFXModule(t *testing.T) {
	var observer observability.Observer
	app := fxtest.New(t,
		fx.Supply(Config{Address: "127.0.0.1:0"}),
		FXModule,
		fx.Populate(&observer),
	)
	app.RequireStart()
	defer app.RequireStop()

	_, ok := observer.(*Metrics)
	assert.True(t, ok)
}
