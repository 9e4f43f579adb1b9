package rabbit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/Aleph-Alpha/registry-serde/v1/avro"
	"github.com/Aleph-Alpha/registry-serde/v1/observability"
	"github.com/Aleph-Alpha/registry-serde/v1/schema_registry"
	"github.com/Aleph-Alpha/registry-serde/v1/serializer"
)

const orderSchema = `{
  "type": "record",
  "name": "Order",
  "namespace": "shop",
  "fields": [
    {"name": "id", "type": "long"},
    {"name": "item", "type": "string"}
  ]
}`

// TestObserver records observed operations.
type TestObserver struct {
	mu         sync.Mutex
	operations []observability.OperationContext
}

func (t *TestObserver) ObserveOperation(ctx observability.OperationContext) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.operations = append(t.operations, ctx)
}

func (t *TestObserver) GetOperations() []observability.OperationContext {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]observability.OperationContext{}, t.operations...)
}

// MockLogger remembers which levels were used.
type MockLogger struct {
	mu          sync.Mutex
	InfoCalled  bool
	WarnCalled  bool
	ErrorCalled bool
}

func (m *MockLogger) InfoWithContext(context.Context, string, error, ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InfoCalled = true
}

func (m *MockLogger) WarnWithContext(context.Context, string, error, ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WarnCalled = true
}

func (m *MockLogger) ErrorWithContext(context.Context, string, error, ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ErrorCalled = true
}

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

// fakeChannel stands in for *amqp.Channel. Publishing without confirm mode
// returns a nil confirmation, like the real channel does.
type fakeChannel struct {
	mu         sync.Mutex
	published  []published
	publishErr error
	deliveries chan amqp.Delivery
	consumed   []string
}

func (c *fakeChannel) PublishWithDeferredConfirmWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return nil, c.publishErr
	}
	c.published = append(c.published, published{exchange: exchange, key: key, msg: msg})
	return nil, nil
}

func (c *fakeChannel) Consume(queue, _ string, _, _, _, _ bool, _ amqp.Table) (<-chan amqp.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumed = append(c.consumed, queue)
	return c.deliveries, nil
}

func (c *fakeChannel) Close() error { return nil }

type fakeAcknowledger struct {
	mu     sync.Mutex
	acked  []uint64
	nacked []uint64
}

func (a *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, _ bool, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = append(a.nacked, tag)
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, _ bool) error {
	return a.Nack(tag, false, false)
}

func newTestClient(t *testing.T, cfg Config) (*RabbitClient, *fakeChannel, *serializer.Serializer) {
	t.Helper()
	ser := serializer.NewSerializer(schema_registry.NewCachedClient(schema_registry.NewMemoryGateway()), serializer.Config{})
	schema, err := loadValueSchema(cfg)
	require.NoError(t, err)

	ch := &fakeChannel{deliveries: make(chan amqp.Delivery, 10)}
	return &RabbitClient{
		cfg:            cfg,
		serializer:     ser,
		valueSchema:    schema,
		channel:        ch,
		shutdownSignal: make(chan struct{}),
	}, ch, ser
}

func ordersConfig() Config {
	return Config{Channel: Channel{
		Topic:        "orders",
		ExchangeName: "shop",
		QueueName:    "orders-queue",
		ValueSchema:  orderSchema,
	}}
}

func TestNewClientValidation(t *testing.T) {
	ser := serializer.NewSerializer(schema_registry.NewCachedClient(schema_registry.NewMemoryGateway()), serializer.Config{})

	_, err := NewClient(ordersConfig(), nil)
	assert.Error(t, err)

	cfg := ordersConfig()
	cfg.Channel.Topic = ""
	_, err = NewClient(cfg, ser)
	assert.Error(t, err)

	cfg = ordersConfig()
	cfg.Channel.ValueSchema = `{"type": "nope"}`
	_, err = NewClient(cfg, ser)
	assert.ErrorContains(t, err, "invalid value schema")
}

func TestConfigDefaults(t *testing.T) {
	cfg := ordersConfig()
	assert.Equal(t, "orders", cfg.routingKey())
	assert.Equal(t, "direct", cfg.exchangeType())

	cfg.Channel.RoutingKey = "orders.created"
	cfg.Channel.ExchangeType = "topic"
	assert.Equal(t, "orders.created", cfg.routingKey())
	assert.Equal(t, "topic", cfg.exchangeType())
}

func TestPublishEncodesRecord(t *testing.T) {
	previous := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(previous) })

	client, ch, ser := newTestClient(t, ordersConfig())
	observer := &TestObserver{}
	client.WithObserver(observer)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	err := client.Publish(ctx, avro.Record{"id": int64(3), "item": "lamp"}, map[string]interface{}{"source": "test"})
	require.NoError(t, err)

	require.Len(t, ch.published, 1)
	p := ch.published[0]
	assert.Equal(t, "shop", p.exchange)
	assert.Equal(t, "orders", p.key)
	assert.Equal(t, avroContentType, p.msg.ContentType)
	assert.Equal(t, "test", p.msg.Headers["source"])
	assert.Contains(t, p.msg.Headers, "traceparent")

	record, err := ser.DecodeMessage(ctx, p.msg.Body)
	require.NoError(t, err)
	assert.Equal(t, avro.Record{"id": int64(3), "item": "lamp"}, record)

	ops := observer.GetOperations()
	if len(ops) != 1 {
		t.Fatalf("Expected 1 operation, got %d", len(ops))
	}
	if ops[0].Operation != "produce" || ops[0].Resource != "shop" || ops[0].SubResource != "orders" {
		t.Errorf("unexpected operation %+v", ops[0])
	}
	if ops[0].Size != int64(len(p.msg.Body)) {
		t.Errorf("Expected size %d, got %d", len(p.msg.Body), ops[0].Size)
	}
}

func TestPublishFailures(t *testing.T) {
	client, ch, _ := newTestClient(t, ordersConfig())
	logger := &MockLogger{}
	client.WithLogger(logger)

	err := client.Publish(context.Background(), "not a record")
	assert.True(t, serializer.IsSerializationError(err))
	assert.True(t, logger.ErrorCalled)

	ch.publishErr = amqp.ErrClosed
	err = client.Publish(context.Background(), avro.Record{"id": int64(1), "item": "x"})
	assert.ErrorIs(t, err, ErrChannelClosed)
	assert.True(t, IsRetryableError(err))

	client.GracefulShutdown()
	err = client.Publish(context.Background(), avro.Record{"id": int64(1), "item": "x"})
	assert.ErrorIs(t, err, ErrClientClosed)
	assert.False(t, IsRetryableError(err))
}

func TestPublishWithoutSchemaUsesLatest(t *testing.T) {
	cfg := ordersConfig()
	cfg.Channel.ValueSchema = ""
	client, ch, ser := newTestClient(t, cfg)
	ctx := context.Background()

	err := client.Publish(ctx, avro.Record{"id": int64(1), "item": "x"})
	require.Error(t, err)

	_, err = ser.EncodeRecordWithSchema(ctx, "orders", avro.MustParse(orderSchema), avro.Record{"id": int64(0), "item": ""}, false)
	require.NoError(t, err)
	require.NoError(t, client.Publish(ctx, avro.Record{"id": int64(1), "item": "x"}))
	assert.Len(t, ch.published, 1)
}

func TestConsumeDecodesDeliveries(t *testing.T) {
	client, ch, ser := newTestClient(t, ordersConfig())
	logger := &MockLogger{}
	client.WithLogger(logger)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	body, err := ser.EncodeRecordWithSchema(ctx, "orders", avro.MustParse(orderSchema), avro.Record{"id": int64(9), "item": "cup"}, false)
	require.NoError(t, err)

	ack := &fakeAcknowledger{}
	ch.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: body}
	ch.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte{0, 0, 0}}

	wg := &sync.WaitGroup{}
	msgs := client.Consume(ctx, wg)

	first := <-msgs
	require.NoError(t, first.Err())
	assert.Equal(t, avro.Record{"id": int64(9), "item": "cup"}, first.Record())
	require.NoError(t, first.AckMsg())

	second := <-msgs
	require.Error(t, second.Err())
	assert.Nil(t, second.Record())
	require.NoError(t, second.NackMsg(false))

	cancel()
	for range msgs {
	}
	wg.Wait()

	assert.Equal(t, []uint64{1}, ack.acked)
	assert.Equal(t, []uint64{2}, ack.nacked)
	assert.Equal(t, []string{"orders-queue"}, ch.consumed)
	logger.mu.Lock()
	defer logger.mu.Unlock()
	assert.True(t, logger.WarnCalled)
}

func TestConsumeDLQUsesDeadLetterQueue(t *testing.T) {
	cfg := ordersConfig()
	cfg.DeadLetter = DeadLetter{ExchangeName: "shop-dlx", QueueName: "orders-dlq", RoutingKey: "orders"}
	client, ch, _ := newTestClient(t, cfg)

	wg := &sync.WaitGroup{}
	msgs := client.ConsumeDLQ(context.Background(), wg)
	time.Sleep(50 * time.Millisecond)
	client.GracefulShutdown()
	for range msgs {
	}
	wg.Wait()

	ch.mu.Lock()
	defer ch.mu.Unlock()
	require.NotEmpty(t, ch.consumed)
	assert.Equal(t, "orders-dlq", ch.consumed[0])
}

func TestMessageContextRestoresTrace(t *testing.T) {
	previous := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(previous) })

	msg := &ConsumerMessage{delivery: &amqp.Delivery{Headers: amqp.Table{
		"traceparent": "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
	}}}
	sc := trace.SpanContextFromContext(msg.Context(context.Background()))
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", sc.TraceID().String())
}

func TestBuilderChaining(t *testing.T) {
	testObserver := &TestObserver{}
	mockLogger := &MockLogger{}
	client := &RabbitClient{cfg: ordersConfig()}

	result := client.WithObserver(testObserver).WithLogger(mockLogger)
	if result != client {
		t.Error("builders should return the same client instance for chaining")
	}
	if client.observer != testObserver {
		t.Error("Observer was not attached")
	}
	if client.logger != mockLogger {
		t.Error("Logger was not attached")
	}

	client.logInfo(context.Background(), "test message", map[string]interface{}{"key": "value"})
	if !mockLogger.InfoCalled {
		t.Error("Expected logger.Info to be called")
	}
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		want     error
		category ErrorCategory
	}{
		{"access refused", &amqp.Error{Code: amqp.AccessRefused, Reason: "ACCESS_REFUSED"}, ErrAccessDenied, CategoryPermission},
		{"not found", &amqp.Error{Code: amqp.NotFound, Reason: "NOT_FOUND - no exchange 'shop'"}, ErrNotFound, CategoryResource},
		{"connection forced", &amqp.Error{Code: amqp.ConnectionForced}, ErrConnectionClosed, CategoryConnection},
		{"too large", &amqp.Error{Code: amqp.ContentTooLarge}, ErrMessageTooLarge, CategoryMessage},
		{"by reason", &amqp.Error{Code: 999, Reason: "login refused"}, ErrAccessDenied, CategoryPermission},
		{"deadline", fmt.Errorf("publish: %w", context.DeadlineExceeded), ErrTimeout, CategoryTimeout},
		{"network", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, ErrNetworkError, CategoryConnection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TranslateError(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err, "the cause is kept")
			assert.Equal(t, tt.category, GetErrorCategory(got))
		})
	}

	plain := errors.New("something else")
	assert.Same(t, plain, TranslateError(plain))
	assert.NoError(t, TranslateError(nil))
	assert.Equal(t, CategoryUnknown, GetErrorCategory(plain))
	assert.Equal(t, "permission", CategoryPermission.String())
}
