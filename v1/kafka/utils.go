package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/Aleph-Alpha/registry-serde/v1/avro"
)

// ErrNotConsumer and ErrNotProducer report a call the client was not
// configured for.
var (
	ErrNotConsumer = errors.New("kafka: client is not configured as consumer")
	ErrNotProducer = errors.New("kafka: client is configured as consumer")
)

// Message is a consumed record.
type Message interface {
	// Record is the decoded value, nil when Err is set.
	Record() avro.Record
	// Err is the decode error of the message, if any.
	Err() error
	// Body is the raw framed value.
	Body() []byte
	Key() string
	Header() map[string]string
	// Context returns ctx carrying the trace context sent by the producer.
	Context(ctx context.Context) context.Context
	// CommitMsg commits the offset of the message for the consumer group.
	CommitMsg() error
}

// ConsumerMessage implements Message.
type ConsumerMessage struct {
	record avro.Record
	err    error
	msg    kafka.Message
	header map[string]string
	reader messageReader
	ctx    context.Context
}

func (m *ConsumerMessage) Record() avro.Record { return m.record }

func (m *ConsumerMessage) Err() error { return m.err }

func (m *ConsumerMessage) Body() []byte { return m.msg.Value }

func (m *ConsumerMessage) Key() string { return string(m.msg.Key) }

func (m *ConsumerMessage) Header() map[string]string { return m.header }

func (m *ConsumerMessage) Context(ctx context.Context) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(m.header))
}

func (m *ConsumerMessage) CommitMsg() error {
	return m.reader.CommitMessages(m.ctx, m.msg)
}

// Publish encodes record and writes it to the topic under key. The schema is
// Config.ValueSchema when set, otherwise the latest schema of the topic's
// value subject. The trace context of ctx travels in the message headers.
func (k *Client) Publish(ctx context.Context, key string, record any) (err error) {
	start := time.Now()
	var size int
	defer func() { k.observeOperation("publish", k.cfg.Topic, time.Since(start), err, int64(size)) }()

	if k.writer == nil {
		return ErrNotProducer
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-k.shutdownSignal:
		return errors.New("kafka: client is closed")
	default:
	}

	var value []byte
	if k.valueSchema != nil {
		value, err = k.serializer.EncodeRecordWithSchema(ctx, k.cfg.Topic, k.valueSchema, record, false)
	} else {
		value, err = k.serializer.EncodeRecordForTopic(ctx, k.cfg.Topic, record, false)
	}
	if err != nil {
		k.logError("error in encoding record for kafka", err, map[string]interface{}{"topic": k.cfg.Topic})
		return err
	}
	size = len(value)

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	headers := make([]kafka.Header, 0, len(carrier))
	for name, v := range carrier {
		headers = append(headers, kafka.Header{Key: name, Value: []byte(v)})
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(key),
		Value:   value,
		Headers: headers,
	})
	if err != nil {
		k.logError("error in publishing message into kafka", err, map[string]interface{}{"topic": k.cfg.Topic})
		return err
	}
	return nil
}

// Consume fetches messages until ctx is done or the client is closed and
// returns them decoded. Messages that fail to decode are logged and still
// delivered, with Err set. The channel is closed when consumption stops.
func (k *Client) Consume(ctx context.Context, wg *sync.WaitGroup) <-chan Message {
	return k.ConsumeParallel(ctx, wg, 1)
}

// ConsumeParallel is Consume with workers goroutines decoding concurrently.
// With more than one worker, messages may be delivered out of order.
func (k *Client) ConsumeParallel(ctx context.Context, wg *sync.WaitGroup, workers int) <-chan Message {
	out := make(chan Message, channelBuffer)
	if k.reader == nil {
		close(out)
		k.logError("consume called on a producer", ErrNotConsumer, nil)
		return out
	}
	if workers < 1 {
		workers = 1
	}

	fetched := make(chan kafka.Message, workers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(fetched)
		k.fetchLoop(ctx, fetched)
	}()

	var workersWG sync.WaitGroup
	for i := 0; i < workers; i++ {
		workersWG.Add(1)
		go func() {
			defer workersWG.Done()
			for msg := range fetched {
				select {
				case out <- k.decode(ctx, msg):
				case <-ctx.Done():
					return
				case <-k.shutdownSignal:
					return
				}
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		workersWG.Wait()
		close(out)
	}()
	return out
}

func (k *Client) fetchLoop(ctx context.Context, fetched chan<- kafka.Message) {
	for {
		select {
		case <-k.shutdownSignal:
			k.logInfo("consumer is shutting down due to shutdown signal", nil)
			return
		case <-ctx.Done():
			k.logInfo("consumer is shutting down due to context cancellation", nil)
			return
		default:
		}

		msg, err := k.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				continue
			}
			if isClosed(err) {
				return
			}
			k.logError("error in fetching message from kafka", err, map[string]interface{}{"topic": k.cfg.Topic})
			time.Sleep(fetchRetryDelay)
			continue
		}

		select {
		case fetched <- msg:
		case <-ctx.Done():
			return
		case <-k.shutdownSignal:
			return
		}
	}
}

func (k *Client) decode(ctx context.Context, msg kafka.Message) Message {
	start := time.Now()

	header := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		header[h.Key] = string(h.Value)
	}
	out := &ConsumerMessage{msg: msg, header: header, reader: k.reader, ctx: ctx}

	msgCtx := out.Context(ctx)
	out.record, out.err = k.serializer.DecodeMessage(msgCtx, msg.Value)
	if out.err != nil {
		k.logWarn(msgCtx, "error in decoding message from kafka", out.err, map[string]interface{}{
			"topic":     msg.Topic,
			"partition": msg.Partition,
			"offset":    msg.Offset,
		})
	} else {
		k.logDebug(msgCtx, "message consumed from kafka", map[string]interface{}{
			"topic":  msg.Topic,
			"offset": msg.Offset,
		})
	}

	k.observeOperation("consume", k.cfg.Topic, time.Since(start), out.err, int64(len(msg.Value)))
	return out
}

func isClosed(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe)
}

func (k *Client) logInfo(msg string, fields map[string]interface{}) {
	if k.logger != nil {
		k.logger.Info(msg, nil, fields)
	}
}

func (k *Client) logError(msg string, err error, fields map[string]interface{}) {
	if k.logger != nil {
		k.logger.Error(msg, err, fields)
	}
}

func (k *Client) logWarn(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if k.logger != nil {
		k.logger.WarnWithContext(ctx, msg, err, fields)
	}
}

func (k *Client) logDebug(ctx context.Context, msg string, fields map[string]interface{}) {
	if k.logger != nil {
		k.logger.DebugWithContext(ctx, msg, nil, fields)
	}
}
