// Package tracer installs the OpenTelemetry tracer provider used by the
// registry-serde components.
//
// NewClient configures a provider (optionally exporting over OTLP/HTTP) and
// registers it, together with the W3C propagators, as the process globals.
// The schema registry HTTP gateway opens a client span per request and
// injects the trace context into the request headers, and the bus clients
// carry it in message headers via GetCarrier / SetCarrierOnContext.
//
//	tr, err := tracer.NewClient(tracer.Config{ServiceName: "orders"}, log)
//	if err != nil {
//		return err
//	}
//	defer tr.Shutdown(ctx)
//
//	ctx, span := tr.StartSpan(ctx, "process-order")
//	defer span.End()
package tracer
