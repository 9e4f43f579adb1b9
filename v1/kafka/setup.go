package kafka

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"github.com/Aleph-Alpha/registry-serde/v1/avro"
	"github.com/Aleph-Alpha/registry-serde/v1/observability"
)

// Serializer turns records into schema-id framed Avro messages and back.
// *serializer.Serializer implements it.
type Serializer interface {
	EncodeRecordWithSchema(ctx context.Context, topic string, schema *avro.Schema, record any, isKey bool) ([]byte, error)
	EncodeRecordForTopic(ctx context.Context, topic string, record any, isKey bool) ([]byte, error)
	DecodeMessage(ctx context.Context, data []byte) (avro.Record, error)
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Client publishes records to a topic or consumes and decodes them,
// depending on Config.IsConsumer.
type Client struct {
	cfg         Config
	serializer  Serializer
	valueSchema *avro.Schema

	writer messageWriter
	reader messageReader

	logger   Logger
	observer observability.Observer

	shutdownSignal    chan struct{}
	closeShutdownOnce sync.Once
}

// NewClient creates a producer or a consumer for cfg.Topic that encodes and
// decodes through serializer.
func NewClient(cfg Config, serializer Serializer) (*Client, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka: topic is required")
	}
	if serializer == nil {
		return nil, errors.New("kafka: serializer is required")
	}

	cfg = withDefaults(cfg)

	k := &Client{
		cfg:            cfg,
		serializer:     serializer,
		shutdownSignal: make(chan struct{}),
	}

	schema, err := loadValueSchema(cfg)
	if err != nil {
		return nil, err
	}
	k.valueSchema = schema

	var tlsConfig *tls.Config
	if cfg.TLS.Enabled {
		tlsConfig, err = createTLSConfig(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	var mechanism sasl.Mechanism
	if cfg.SASL.Enabled {
		mechanism, err = createSASLMechanism(cfg.SASL)
		if err != nil {
			return nil, fmt.Errorf("failed to create SASL mechanism: %w", err)
		}
	}

	dialer := &kafka.Dialer{
		TLS:           tlsConfig,
		SASLMechanism: mechanism,
	}
	if cfg.IsConsumer {
		k.reader = kafka.NewReader(readerConfig(cfg, dialer, k.errorLogger()))
	} else {
		k.writer = kafka.NewWriter(writerConfig(cfg, dialer, k.errorLogger()))
	}
	return k, nil
}

func withDefaults(cfg Config) Config {
	if cfg.MinBytes == 0 {
		cfg.MinBytes = DefaultMinBytes
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.MaxWait == 0 {
		cfg.MaxWait = DefaultMaxWait
	}
	if cfg.CommitInterval == 0 {
		cfg.CommitInterval = DefaultCommitInterval
	}
	if cfg.StartOffset == 0 {
		cfg.StartOffset = DefaultStartOffset
	}
	if cfg.RequiredAcks == 0 {
		cfg.RequiredAcks = DefaultRequiredAcks
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = DefaultBatchTimeout
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	return cfg
}

func loadValueSchema(cfg Config) (*avro.Schema, error) {
	switch {
	case cfg.ValueSchema != "":
		schema, err := avro.Parse(cfg.ValueSchema)
		if err != nil {
			return nil, fmt.Errorf("kafka: invalid value schema: %w", err)
		}
		return schema, nil
	case cfg.ValueSchemaFile != "":
		schema, err := avro.ParseFile(cfg.ValueSchemaFile)
		if err != nil {
			return nil, fmt.Errorf("kafka: invalid value schema file: %w", err)
		}
		return schema, nil
	}
	return nil, nil
}

// WithLogger sets the logger and returns the same instance.
func (k *Client) WithLogger(logger Logger) *Client {
	k.logger = logger
	return k
}

// WithObserver sets the observer and returns the same instance.
func (k *Client) WithObserver(observer observability.Observer) *Client {
	k.observer = observer
	return k
}

// Close stops running consumers and closes the reader or writer.
func (k *Client) Close() error {
	k.closeShutdownOnce.Do(func() {
		close(k.shutdownSignal)
	})

	var errs []error
	if k.writer != nil {
		errs = append(errs, k.writer.Close())
	}
	if k.reader != nil {
		errs = append(errs, k.reader.Close())
	}
	return errors.Join(errs...)
}

func (k *Client) errorLogger() kafka.LoggerFunc {
	return func(msg string, args ...interface{}) {
		if k.logger != nil {
			k.logger.Error("kafka internal error", nil, map[string]interface{}{
				"error": fmt.Sprintf(msg, args...),
			})
		}
	}
}

func writerConfig(cfg Config, dialer *kafka.Dialer, errorLogger kafka.LoggerFunc) kafka.WriterConfig {
	wc := kafka.WriterConfig{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  cfg.MaxAttempts,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: int(cfg.RequiredAcks),
		Dialer:       dialer,
		ErrorLogger:  errorLogger,
	}

	if cfg.Async {
		wc.Async = true
		wc.BatchSize = cfg.BatchSize
		wc.BatchTimeout = cfg.BatchTimeout
	}

	switch cfg.CompressionCodec {
	case "gzip":
		wc.CompressionCodec = &compress.GzipCodec
	case "snappy":
		wc.CompressionCodec = &compress.SnappyCodec
	case "lz4":
		wc.CompressionCodec = &compress.Lz4Codec
	case "zstd":
		wc.CompressionCodec = &compress.ZstdCodec
	}
	return wc
}

func readerConfig(cfg Config, dialer *kafka.Dialer, errorLogger kafka.LoggerFunc) kafka.ReaderConfig {
	rc := kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		MaxWait:     cfg.MaxWait,
		StartOffset: cfg.StartOffset,
		Dialer:      dialer,
		ErrorLogger: errorLogger,
	}
	if cfg.GroupID == "" {
		rc.Partition = cfg.Partition
	}
	if cfg.EnableAutoCommit {
		rc.CommitInterval = cfg.CommitInterval
	}
	return rc
}

func createTLSConfig(cfg TLSConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	if cfg.CACertPath != "" {
		caCert, err := os.ReadFile(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, errors.New("failed to parse CA cert")
		}
		tlsConfig.RootCAs = pool
	}

	if cfg.ClientCertPath != "" && cfg.ClientKeyPath != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return tlsConfig, nil
}

func createSASLMechanism(cfg SASLConfig) (sasl.Mechanism, error) {
	switch cfg.Mechanism {
	case "PLAIN":
		return plain.Mechanism{Username: cfg.Username, Password: cfg.Password}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, cfg.Username, cfg.Password)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, cfg.Username, cfg.Password)
	default:
		return nil, fmt.Errorf("unsupported SASL mechanism: %s", cfg.Mechanism)
	}
}
