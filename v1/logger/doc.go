// Package logger provides the structured logger used by every registry-serde
// component.
//
// LoggerClient wraps Uber's zap with a small field-map API. Each method takes
// a message, an optional error and any number of field maps:
//
//	log := logger.NewLoggerClient(logger.Config{
//		Level:         logger.Info,
//		ServiceName:   "orders-consumer",
//		EnableTracing: true,
//	})
//
//	log.Info("schema registered", nil, map[string]interface{}{
//		"subject": "orders-value",
//		"id":      42,
//	})
//
// The *WithContext variants add trace_id and span_id taken from the active
// OpenTelemetry span when EnableTracing is set, so registry requests and
// decode failures can be correlated with traces:
//
//	log.WarnWithContext(ctx, "compatibility check failed", err, nil)
//
// # Consuming the logger
//
// Other packages in this module never import LoggerClient. They declare the
// few methods they need as a local Logger interface and accept it through an
// fx.In parameter marked optional, so any logger with the same method set can
// be plugged in.
//
// # FX Module Integration
//
//	app := fx.New(
//		logger.FXModule, // provides *LoggerClient and logger.Logger
//		fx.Provide(func() logger.Config {
//			return logger.Config{Level: logger.Debug}
//		}),
//	)
//
// # Configuration
//
//	ZAP_LOGGER_LEVEL=debug          # debug, info, warning, error
//	LOGGER_SERVICE_NAME=orders      # value of the "service" field
//	LOGGER_ENABLE_TRACING=true      # attach trace_id / span_id
//
// # Thread Safety
//
// All methods are safe for concurrent use.
package logger
