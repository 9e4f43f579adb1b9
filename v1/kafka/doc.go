// Package kafka moves Avro records through Apache Kafka.
//
// Client wraps segmentio/kafka-go. Published records are encoded by a
// Serializer (normally *serializer.Serializer) into the registry wire format:
// a zero magic byte, the big-endian schema id and the Avro body. Consumed
// messages are decoded the same way, so producers and consumers only deal
// with avro.Record values.
//
// # Producing
//
//	client, err := kafka.NewClient(kafka.Config{
//		Brokers:     []string{"localhost:9092"},
//		Topic:       "orders",
//		ValueSchema: orderSchema, // registered as "orders-value"
//	}, ser)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	err = client.Publish(ctx, "order-42", avro.Record{"id": int64(42), "item": "book"})
//
// Without ValueSchema, Publish encodes with the latest schema registered for
// "<topic>-value".
//
// # Consuming
//
//	wg := &sync.WaitGroup{}
//	for msg := range client.Consume(ctx, wg) {
//		if msg.Err() != nil {
//			// undecodable message, already logged
//			continue
//		}
//		handle(msg.Context(ctx), msg.Record())
//		_ = msg.CommitMsg()
//	}
//	wg.Wait()
//
// ConsumeParallel decodes with several workers and does not keep ordering.
//
// # Tracing
//
// Publish injects the trace context of ctx into the message headers using
// the global OpenTelemetry propagator. Message.Context extracts it again.
//
// # FX Module Integration
//
//	app := fx.New(
//		schema_registry.HTTPGatewayModule,
//		schema_registry.FXModule,
//		serializer.FXModule,
//		kafka.FXModule,
//		fx.Supply(kafka.Config{Brokers: brokers, Topic: "orders"}),
//	)
//
// # Security
//
// TLS (CA, client certificates) and SASL (PLAIN, SCRAM-SHA-256,
// SCRAM-SHA-512) are configured through Config.TLS and Config.SASL.
// Compression is one of gzip, snappy, lz4 or zstd.
package kafka
