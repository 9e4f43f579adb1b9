package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// Config configures a producer or a consumer of Avro records.
type Config struct {
	// Brokers lists the bootstrap brokers.
	Brokers []string `yaml:"brokers" envconfig:"KAFKA_BROKERS"`

	// Topic is the topic records are published to or consumed from. It also
	// determines the subject, "<topic>-value".
	Topic string `yaml:"topic" envconfig:"KAFKA_TOPIC"`

	// GroupID enables consumer groups. Without it the consumer reads Partition.
	GroupID string `yaml:"group_id" envconfig:"KAFKA_GROUP_ID"`

	// IsConsumer selects a reader instead of a writer.
	IsConsumer bool `yaml:"is_consumer" envconfig:"KAFKA_IS_CONSUMER"`

	// ValueSchema is the Avro schema of published values. When set it is
	// registered under the topic's value subject, otherwise Publish uses the
	// latest schema registered for the subject.
	ValueSchema string `yaml:"value_schema" envconfig:"KAFKA_VALUE_SCHEMA"`

	// ValueSchemaFile is read into ValueSchema when ValueSchema is empty.
	ValueSchemaFile string `yaml:"value_schema_file" envconfig:"KAFKA_VALUE_SCHEMA_FILE"`

	// Consumer settings.
	Partition        int           `yaml:"partition" envconfig:"KAFKA_PARTITION"`
	MinBytes         int           `yaml:"min_bytes" envconfig:"KAFKA_MIN_BYTES"`
	MaxBytes         int           `yaml:"max_bytes" envconfig:"KAFKA_MAX_BYTES"`
	MaxWait          time.Duration `yaml:"max_wait" envconfig:"KAFKA_MAX_WAIT"`
	StartOffset      int64         `yaml:"start_offset" envconfig:"KAFKA_START_OFFSET"`
	EnableAutoCommit bool          `yaml:"enable_auto_commit" envconfig:"KAFKA_ENABLE_AUTO_COMMIT"`
	CommitInterval   time.Duration `yaml:"commit_interval" envconfig:"KAFKA_COMMIT_INTERVAL"`

	// Producer settings.
	RequiredAcks     kafka.RequiredAcks `yaml:"required_acks" envconfig:"KAFKA_REQUIRED_ACKS"`
	Async            bool               `yaml:"async" envconfig:"KAFKA_ASYNC"`
	BatchSize        int                `yaml:"batch_size" envconfig:"KAFKA_BATCH_SIZE"`
	BatchTimeout     time.Duration      `yaml:"batch_timeout" envconfig:"KAFKA_BATCH_TIMEOUT"`
	MaxAttempts      int                `yaml:"max_attempts" envconfig:"KAFKA_MAX_ATTEMPTS"`
	WriteTimeout     time.Duration      `yaml:"write_timeout" envconfig:"KAFKA_WRITE_TIMEOUT"`
	CompressionCodec string             `yaml:"compression_codec" envconfig:"KAFKA_COMPRESSION_CODEC"`

	TLS  TLSConfig  `yaml:"tls"`
	SASL SASLConfig `yaml:"sasl"`
}

// TLSConfig enables TLS towards the brokers.
type TLSConfig struct {
	Enabled            bool   `yaml:"enabled" envconfig:"KAFKA_TLS_ENABLED"`
	CACertPath         string `yaml:"ca_cert_path" envconfig:"KAFKA_TLS_CA_CERT_PATH"`
	ClientCertPath     string `yaml:"client_cert_path" envconfig:"KAFKA_TLS_CLIENT_CERT_PATH"`
	ClientKeyPath      string `yaml:"client_key_path" envconfig:"KAFKA_TLS_CLIENT_KEY_PATH"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify" envconfig:"KAFKA_TLS_INSECURE_SKIP_VERIFY"`
}

// SASLConfig enables SASL authentication. Mechanism is PLAIN,
// SCRAM-SHA-256 or SCRAM-SHA-512.
type SASLConfig struct {
	Enabled   bool   `yaml:"enabled" envconfig:"KAFKA_SASL_ENABLED"`
	Mechanism string `yaml:"mechanism" envconfig:"KAFKA_SASL_MECHANISM"`
	Username  string `yaml:"username" envconfig:"KAFKA_SASL_USERNAME"`
	Password  string `yaml:"password" envconfig:"KAFKA_SASL_PASSWORD"`
}

const (
	DefaultMinBytes       = 1
	DefaultMaxBytes       = 10_000_000
	DefaultMaxWait        = time.Second
	DefaultCommitInterval = time.Second
	DefaultStartOffset    = kafka.FirstOffset
	DefaultRequiredAcks   = kafka.RequireAll
	DefaultBatchSize      = 100
	DefaultBatchTimeout   = time.Second
	DefaultMaxAttempts    = 10
	DefaultWriteTimeout   = 10 * time.Second

	fetchRetryDelay = 100 * time.Millisecond
	channelBuffer   = 100
)

// Logger is the subset of logger.Logger used by Client.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
	DebugWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}
