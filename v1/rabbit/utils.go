package rabbit

import (
	"context"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/Aleph-Alpha/registry-serde/v1/avro"
)

// ConsumerMessage implements Message.
type ConsumerMessage struct {
	record   avro.Record
	err      error
	delivery *amqp.Delivery
}

// Publish implements Client. Extra headers are merged with the trace context
// of ctx.
func (rb *RabbitClient) Publish(ctx context.Context, record any, headers ...map[string]interface{}) (publishErr error) {
	start := time.Now()
	var size int64
	defer func() {
		rb.observeOperation("produce", rb.cfg.Channel.ExchangeName, rb.cfg.routingKey(), time.Since(start), publishErr, size)
	}()

	select {
	case <-ctx.Done():
		return TranslateError(ctx.Err())
	case <-rb.shutdownSignal:
		return ErrClientClosed
	default:
	}

	var body []byte
	var err error
	if rb.valueSchema != nil {
		body, err = rb.serializer.EncodeRecordWithSchema(ctx, rb.cfg.Channel.Topic, rb.valueSchema, record, false)
	} else {
		body, err = rb.serializer.EncodeRecordForTopic(ctx, rb.cfg.Channel.Topic, record, false)
	}
	if err != nil {
		rb.logError(ctx, "Failed to encode record for rabbit", map[string]interface{}{
			"topic": rb.cfg.Channel.Topic,
			"error": err.Error(),
		})
		return err
	}
	size = int64(len(body))

	table := amqp.Table{}
	for _, h := range headers {
		for k, v := range h {
			table[k] = v
		}
	}
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		table[k] = v
	}

	rb.mu.RLock()
	confirm, err := rb.channel.PublishWithDeferredConfirmWithContext(ctx,
		rb.cfg.Channel.ExchangeName,
		rb.cfg.routingKey(),
		false,
		false,
		amqp.Publishing{
			Headers:      table,
			ContentType:  avroContentType,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	rb.mu.RUnlock()
	if err != nil {
		return TranslateError(err)
	}

	if confirm != nil {
		acked, err := confirm.WaitContext(ctx)
		if err != nil {
			return TranslateError(err)
		}
		if !acked {
			return ErrMessageNacked
		}
	}
	return nil
}

// Consume implements Client.
func (rb *RabbitClient) Consume(ctx context.Context, wg *sync.WaitGroup) <-chan Message {
	return rb.consumeQueue(ctx, wg, rb.cfg.Channel.QueueName)
}

// ConsumeDLQ implements Client.
func (rb *RabbitClient) ConsumeDLQ(ctx context.Context, wg *sync.WaitGroup) <-chan Message {
	return rb.consumeQueue(ctx, wg, rb.cfg.DeadLetter.QueueName)
}

func (rb *RabbitClient) consumeQueue(ctx context.Context, wg *sync.WaitGroup, queueName string) <-chan Message {
	outChan := make(chan Message, 100)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(outChan)
	outerLoop:
		for {
			select {
			case <-rb.shutdownSignal:
				rb.logInfo(ctx, "Stopping consumer due to shutdown signal", map[string]interface{}{"queue": queueName})
				return
			case <-ctx.Done():
				rb.logInfo(ctx, "Stopping consumer due to context cancellation", map[string]interface{}{"queue": queueName})
				return
			default:
			}

			rb.mu.RLock()
			msgs, err := rb.channel.Consume(queueName, "", false, false, false, false, nil)
			rb.mu.RUnlock()
			if err != nil {
				rb.logError(ctx, "Failed to establish consumer", map[string]interface{}{
					"queue": queueName,
					"error": err.Error(),
				})
				time.Sleep(100 * time.Millisecond)
				continue
			}

			for {
				select {
				case <-ctx.Done():
					continue outerLoop
				case <-rb.shutdownSignal:
					continue outerLoop
				case delivery, ok := <-msgs:
					if !ok {
						continue outerLoop
					}
					msg := rb.decode(ctx, queueName, delivery)
					select {
					case outChan <- msg:
					case <-ctx.Done():
						continue outerLoop
					case <-rb.shutdownSignal:
						continue outerLoop
					}
				}
			}
		}
	}()
	return outChan
}

func (rb *RabbitClient) decode(ctx context.Context, queueName string, delivery amqp.Delivery) *ConsumerMessage {
	start := time.Now()
	msg := &ConsumerMessage{delivery: &delivery}

	msgCtx := msg.Context(ctx)
	msg.record, msg.err = rb.serializer.DecodeMessage(msgCtx, delivery.Body)
	if msg.err != nil {
		rb.logWarn(msgCtx, "Failed to decode rabbit message", map[string]interface{}{
			"queue":        queueName,
			"delivery_tag": delivery.DeliveryTag,
			"error":        msg.err.Error(),
		})
	}

	rb.observeOperation("consume", queueName, "", time.Since(start), msg.err, int64(len(delivery.Body)))
	return msg
}

func (m *ConsumerMessage) AckMsg() error {
	return m.delivery.Ack(false)
}

func (m *ConsumerMessage) NackMsg(requeue bool) error {
	return m.delivery.Nack(false, requeue)
}

func (m *ConsumerMessage) Body() []byte {
	return m.delivery.Body
}

func (m *ConsumerMessage) Header() map[string]interface{} {
	return m.delivery.Headers
}

func (m *ConsumerMessage) Record() avro.Record {
	return m.record
}

func (m *ConsumerMessage) Err() error {
	return m.err
}

func (m *ConsumerMessage) Context(ctx context.Context) context.Context {
	carrier := propagation.MapCarrier{}
	for k, v := range m.delivery.Headers {
		if s, ok := v.(string); ok {
			carrier[k] = s
		}
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

func (rb *RabbitClient) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if rb.logger != nil {
		rb.logger.InfoWithContext(ctx, msg, nil, fields)
	}
}

func (rb *RabbitClient) logWarn(ctx context.Context, msg string, fields map[string]interface{}) {
	if rb.logger != nil {
		rb.logger.WarnWithContext(ctx, msg, nil, fields)
	}
}

func (rb *RabbitClient) logError(ctx context.Context, msg string, fields map[string]interface{}) {
	if rb.logger != nil {
		rb.logger.ErrorWithContext(ctx, msg, nil, fields)
	}
}
