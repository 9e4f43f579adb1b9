package logger

import (
	"log"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerClient wraps a zap.Logger with the field-map API used across the module.
type LoggerClient struct {
	// Zap is exposed for callers that need zap specific functionality.
	Zap *zap.Logger

	// tracingEnabled makes the *WithContext methods attach trace and span ids.
	tracingEnabled bool
}

// NewLoggerClient builds a JSON zap logger from cfg.
//
// Entries carry an ISO8601 "timestamp", a capitalised level, the caller, the
// process id and the configured service name. Output goes to stderr.
// If zap cannot be built the process exits through log.Fatal.
//
// Example:
//
//	log := logger.NewLoggerClient(logger.Config{Level: logger.Info, ServiceName: "orders"})
//	log.Info("serializer ready", nil, nil)
func NewLoggerClient(cfg Config) *LoggerClient {
	zapLogger, err := buildZap(cfg, "stderr")
	if err != nil {
		log.Fatal(err)
	}

	return &LoggerClient{
		Zap:            zapLogger,
		tracingEnabled: cfg.EnableTracing,
	}
}

// NewFromZap wraps an existing zap logger. Mostly useful in tests with zaptest/observer.
func NewFromZap(z *zap.Logger, tracingEnabled bool) *LoggerClient {
	return &LoggerClient{Zap: z, tracingEnabled: tracingEnabled}
}

func buildZap(cfg Config, output string) (*zap.Logger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderCfg.EncodeDuration = zapcore.MillisDurationEncoder

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "registry-serde"
	}

	config := zap.Config{
		Level:             zap.NewAtomicLevelAt(levelOf(cfg.Level)),
		Development:       false,
		DisableCaller:     false,
		DisableStacktrace: false,
		Sampling:          nil,
		Encoding:          "json",
		EncoderConfig:     encoderCfg,
		OutputPaths:       []string{output},
		ErrorOutputPaths:  []string{"stderr"},
		InitialFields: map[string]interface{}{
			"pid":     os.Getpid(),
			"service": serviceName,
		},
	}

	return config.Build(zap.AddCaller(), zap.AddCallerSkip(1))
}

func levelOf(level string) zapcore.Level {
	switch level {
	case Debug:
		return zap.DebugLevel
	case Warning:
		return zap.WarnLevel
	case Error:
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}
