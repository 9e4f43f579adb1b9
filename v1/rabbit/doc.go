// Package rabbit moves Avro records through RabbitMQ.
//
// RabbitClient wraps amqp091-go. Records are encoded by a Serializer
// (normally *serializer.Serializer) into the registry wire format before
// they are published, and deliveries are decoded before they reach the
// consumer channel.
//
// # Architecture
//
//   - Client interface: publish and consume contract
//   - RabbitClient struct: the amqp091 implementation, returned by NewClient
//   - Message interface: a delivery together with its decoded record
//   - FXModule: provides both *RabbitClient and Client
//
// # Direct Usage (Without FX)
//
//	client, err := rabbit.NewClient(rabbit.Config{
//		Connection: rabbit.Connection{
//			Host: "localhost", Port: 5672,
//			User: "guest", Password: "guest",
//		},
//		Channel: rabbit.Channel{
//			Topic:        "orders",       // subject "orders-value", routing key "orders"
//			ExchangeName: "shop",
//			QueueName:    "orders",
//			IsConsumer:   true,
//			ValueSchema:  orderSchema,
//		},
//	}, ser)
//	if err != nil {
//		return err
//	}
//	defer client.GracefulShutdown()
//
//	err = client.Publish(ctx, avro.Record{"id": int64(1), "item": "book"})
//
//	wg := &sync.WaitGroup{}
//	for msg := range client.Consume(ctx, wg) {
//		if msg.Err() != nil {
//			_ = msg.NackMsg(false) // dead-letter undecodable bodies
//			continue
//		}
//		handle(msg.Context(ctx), msg.Record())
//		_ = msg.AckMsg()
//	}
//
// Publish waits for the broker confirm and returns ErrMessageNacked when the
// broker refuses the message. Failures are wrapped with the package errors,
// see TranslateError, GetErrorCategory and IsRetryableError.
//
// # Dead Letters
//
// When DeadLetter names an exchange and a queue, the consumer queue is
// declared with them as its dead letter target and an optional message TTL.
// ConsumeDLQ reads the dead letter queue.
//
// # Tracing
//
// The trace context of the publishing ctx travels in the message headers.
// Message.Context restores it on the consumer side.
//
// # FX Module Integration
//
//	app := fx.New(
//		schema_registry.HTTPGatewayModule,
//		schema_registry.FXModule,
//		serializer.FXModule,
//		rabbit.FXModule,
//		fx.Supply(rabbitConfig),
//	)
//
// The module runs RetryConnection, which restores the connection and the
// channel after the broker drops them, and shuts the client down on stop.
package rabbit
