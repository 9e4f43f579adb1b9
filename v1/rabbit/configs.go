package rabbit

import "context"

// Config configures the connection, the exchange/queue topology and the
// Avro schema of published records.
type Config struct {
	Connection Connection `yaml:"connection"`

	Channel Channel `yaml:"channel"`

	DeadLetter DeadLetter `yaml:"dead_letter"`
}

// Connection holds the broker address, credentials and TLS settings.
type Connection struct {
	Host     string `yaml:"host" envconfig:"RABBITMQ_HOST"`
	Port     uint   `yaml:"port" envconfig:"RABBITMQ_PORT"`
	User     string `yaml:"user" envconfig:"RABBITMQ_USER"`
	Password string `yaml:"password" envconfig:"RABBITMQ_PASSWORD"`

	// IsSSLEnabled switches to amqps. UseCert adds the CA and client
	// certificate below.
	IsSSLEnabled   bool   `yaml:"is_ssl_enabled" envconfig:"RABBITMQ_IS_SSL_ENABLED"`
	UseCert        bool   `yaml:"use_cert" envconfig:"RABBITMQ_USE_CERT"`
	CACertPath     string `yaml:"ca_cert_path" envconfig:"RABBITMQ_CA_CERT_PATH"`
	ClientCertPath string `yaml:"client_cert_path" envconfig:"RABBITMQ_CLIENT_CERT_PATH"`
	ClientKeyPath  string `yaml:"client_key_path" envconfig:"RABBITMQ_CLIENT_KEY_PATH"`
	ServerName     string `yaml:"server_name" envconfig:"RABBITMQ_SERVER_NAME"`
}

// Channel describes where records go.
type Channel struct {
	// Topic names the record stream. The registry subject is "<topic>-value"
	// and RoutingKey defaults to it.
	Topic string `yaml:"topic" envconfig:"RABBITMQ_TOPIC"`

	ExchangeName  string `yaml:"exchange_name" envconfig:"RABBITMQ_EXCHANGE_NAME"`
	ExchangeType  string `yaml:"exchange_type" envconfig:"RABBITMQ_EXCHANGE_TYPE"`
	RoutingKey    string `yaml:"routing_key" envconfig:"RABBITMQ_ROUTING_KEY"`
	QueueName     string `yaml:"queue_name" envconfig:"RABBITMQ_QUEUE_NAME"`
	PrefetchCount int    `yaml:"prefetch_count" envconfig:"RABBITMQ_PREFETCH_COUNT"`
	IsConsumer    bool   `yaml:"is_consumer" envconfig:"RABBITMQ_IS_CONSUMER"`

	// ValueSchema is the Avro schema of published records. Without it the
	// latest schema registered for the subject is used.
	ValueSchema     string `yaml:"value_schema" envconfig:"RABBITMQ_VALUE_SCHEMA"`
	ValueSchemaFile string `yaml:"value_schema_file" envconfig:"RABBITMQ_VALUE_SCHEMA_FILE"`
}

// DeadLetter configures the queue rejected or expired messages move to.
// Ttl is in seconds.
type DeadLetter struct {
	ExchangeName string `yaml:"exchange_name" envconfig:"RABBITMQ_DLX_EXCHANGE_NAME"`
	QueueName    string `yaml:"queue_name" envconfig:"RABBITMQ_DLX_QUEUE_NAME"`
	RoutingKey   string `yaml:"routing_key" envconfig:"RABBITMQ_DLX_ROUTING_KEY"`
	Ttl          int    `yaml:"ttl" envconfig:"RABBITMQ_DLX_TTL"`
}

const (
	defaultExchangeType = "direct"

	// avroContentType marks published bodies as registry framed Avro.
	avroContentType = "application/vnd.confluent.avro"
)

// Logger is the subset of logger.Logger used by RabbitClient.
type Logger interface {
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}

func (c Config) routingKey() string {
	if c.Channel.RoutingKey != "" {
		return c.Channel.RoutingKey
	}
	return c.Channel.Topic
}

func (c Config) exchangeType() string {
	if c.Channel.ExchangeType != "" {
		return c.Channel.ExchangeType
	}
	return defaultExchangeType
}
