package rabbit

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Aleph-Alpha/registry-serde/v1/avro"
)

// Client publishes Avro records to an exchange and consumes them decoded.
type Client interface {
	// Publish encodes record and publishes it to the configured exchange and
	// routing key. It waits for the broker confirm.
	Publish(ctx context.Context, record any, headers ...map[string]interface{}) error

	// Consume delivers decoded messages of the configured queue until ctx is
	// done or the client shuts down.
	Consume(ctx context.Context, wg *sync.WaitGroup) <-chan Message

	// ConsumeDLQ is Consume for the dead letter queue.
	ConsumeDLQ(ctx context.Context, wg *sync.WaitGroup) <-chan Message

	// RetryConnection reconnects whenever the connection closes. It blocks
	// until GracefulShutdown.
	RetryConnection(cfg Config)

	GracefulShutdown()

	GetChannel() *amqp.Channel
}

// Message is a consumed delivery.
type Message interface {
	AckMsg() error
	NackMsg(requeue bool) error
	Body() []byte
	Header() map[string]interface{}

	// Record is the decoded body, nil when Err is set.
	Record() avro.Record
	// Err is the decode error of the delivery, if any.
	Err() error
	// Context returns ctx carrying the trace context sent by the publisher.
	Context(ctx context.Context) context.Context
}
