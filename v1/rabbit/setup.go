package rabbit

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

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

// amqpChannel is the part of *amqp.Channel the client uses.
type amqpChannel interface {
	PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (*amqp.DeferredConfirmation, error)
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// RabbitClient implements Client over amqp091.
type RabbitClient struct {
	cfg         Config
	serializer  Serializer
	valueSchema *avro.Schema

	channel amqpChannel
	conn    *amqp.Connection

	mu sync.RWMutex

	logger   Logger
	observer observability.Observer

	shutdownSignal    chan struct{}
	closeShutdownOnce sync.Once
}

// NewClient connects to the broker, declares the topology for consumers and
// enables publisher confirms.
func NewClient(cfg Config, serializer Serializer) (*RabbitClient, error) {
	if serializer == nil {
		return nil, errors.New("rabbit: serializer is required")
	}
	if cfg.Channel.Topic == "" {
		return nil, errors.New("rabbit: topic is required")
	}

	schema, err := loadValueSchema(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := newConnection(cfg)
	if err != nil {
		return nil, err
	}

	ch, err := connectToChannel(conn, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &RabbitClient{
		cfg:            cfg,
		serializer:     serializer,
		valueSchema:    schema,
		conn:           conn,
		channel:        ch,
		shutdownSignal: make(chan struct{}),
	}, nil
}

func loadValueSchema(cfg Config) (*avro.Schema, error) {
	switch {
	case cfg.Channel.ValueSchema != "":
		schema, err := avro.Parse(cfg.Channel.ValueSchema)
		if err != nil {
			return nil, fmt.Errorf("rabbit: invalid value schema: %w", err)
		}
		return schema, nil
	case cfg.Channel.ValueSchemaFile != "":
		schema, err := avro.ParseFile(cfg.Channel.ValueSchemaFile)
		if err != nil {
			return nil, fmt.Errorf("rabbit: invalid value schema file: %w", err)
		}
		return schema, nil
	}
	return nil, nil
}

// WithLogger sets the logger and returns the same instance.
func (rb *RabbitClient) WithLogger(logger Logger) *RabbitClient {
	rb.logger = logger
	return rb
}

// WithObserver sets the observer and returns the same instance.
func (rb *RabbitClient) WithObserver(observer observability.Observer) *RabbitClient {
	rb.observer = observer
	return rb
}

func connectToChannel(conn *amqp.Connection, cfg Config) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	if err = ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	if err = ch.ExchangeDeclare(cfg.Channel.ExchangeName, cfg.exchangeType(), true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	if !cfg.Channel.IsConsumer {
		return ch, nil
	}

	queueArgs := amqp.Table{}
	if cfg.DeadLetter.ExchangeName != "" && cfg.DeadLetter.QueueName != "" {
		if err = ch.ExchangeDeclare(cfg.DeadLetter.ExchangeName, "direct", true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("failed to declare dead letter exchange: %w", err)
		}
		if _, err = ch.QueueDeclare(cfg.DeadLetter.QueueName, true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("failed to declare dead letter queue: %w", err)
		}
		if err = ch.QueueBind(cfg.DeadLetter.QueueName, cfg.DeadLetter.RoutingKey, cfg.DeadLetter.ExchangeName, false, nil); err != nil {
			return nil, fmt.Errorf("failed to bind dead letter queue: %w", err)
		}

		queueArgs["x-dead-letter-exchange"] = cfg.DeadLetter.ExchangeName
		queueArgs["x-dead-letter-routing-key"] = cfg.DeadLetter.RoutingKey
		if cfg.DeadLetter.Ttl > 0 {
			queueArgs["x-message-ttl"] = cfg.DeadLetter.Ttl * 1000
		}
	}

	if _, err = ch.QueueDeclare(cfg.Channel.QueueName, true, false, false, false, queueArgs); err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}
	if err = ch.QueueBind(cfg.Channel.QueueName, cfg.routingKey(), cfg.Channel.ExchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	if cfg.Channel.PrefetchCount > 0 {
		if err = ch.Qos(cfg.Channel.PrefetchCount, 0, false); err != nil {
			return nil, fmt.Errorf("failed to set QoS: %w", err)
		}
	}
	return ch, nil
}

// RetryConnection watches the connection and re-establishes it and the
// channel after the broker closes it.
func (rb *RabbitClient) RetryConnection(cfg Config) {
	ctx := context.Background()
outerLoop:
	for {
		rb.mu.RLock()
		conn := rb.conn
		rb.mu.RUnlock()

		errChan := conn.NotifyClose(make(chan *amqp.Error, 1))

		select {
		case <-rb.shutdownSignal:
			return
		case amqpErr, ok := <-errChan:
			if !ok && rb.isShuttingDown() {
				return
			}
			rb.logWarn(ctx, "RabbitMQ connection closed, retrying", map[string]interface{}{
				"error": fmt.Sprint(amqpErr),
			})
			for {
				select {
				case <-rb.shutdownSignal:
					return
				default:
				}

				newConn, err := newConnection(cfg)
				if err != nil {
					rb.logError(ctx, "RabbitMQ reconnection failed", map[string]interface{}{"error": err.Error()})
					time.Sleep(time.Second)
					continue
				}
				ch, err := connectToChannel(newConn, cfg)
				if err != nil {
					_ = newConn.Close()
					rb.logError(ctx, "Failed to re-establish RabbitMQ channel", map[string]interface{}{"error": err.Error()})
					time.Sleep(time.Second)
					continue
				}

				rb.mu.Lock()
				rb.conn = newConn
				rb.channel = ch
				rb.mu.Unlock()

				rb.logInfo(ctx, "Successfully reconnected to RabbitMQ", nil)
				continue outerLoop
			}
		}
	}
}

func (rb *RabbitClient) isShuttingDown() bool {
	select {
	case <-rb.shutdownSignal:
		return true
	default:
		return false
	}
}

// GracefulShutdown stops consumers and the retry loop and closes the
// channel and the connection.
func (rb *RabbitClient) GracefulShutdown() {
	rb.closeShutdownOnce.Do(func() {
		close(rb.shutdownSignal)
	})

	rb.mu.Lock()
	defer rb.mu.Unlock()

	ctx := context.Background()
	rb.logInfo(ctx, "Shutting down RabbitMQ client", nil)

	if rb.channel != nil {
		if err := rb.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			rb.logWarn(ctx, "Failed to close rabbit channel", map[string]interface{}{"error": err.Error()})
		}
	}
	if rb.conn != nil && !rb.conn.IsClosed() {
		if err := rb.conn.Close(); err != nil {
			rb.logWarn(ctx, "Failed to close rabbit connection", map[string]interface{}{"error": err.Error()})
		}
	}
}

// GetChannel returns the current AMQP channel.
func (rb *RabbitClient) GetChannel() *amqp.Channel {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	ch, _ := rb.channel.(*amqp.Channel)
	return ch
}

func newConnection(cfg Config) (*amqp.Connection, error) {
	scheme := "amqp"
	amqpCfg := amqp.Config{Heartbeat: 2 * time.Second}

	if cfg.Connection.IsSSLEnabled {
		scheme = "amqps"
		tlsConfig := &tls.Config{ServerName: cfg.Connection.ServerName}
		if cfg.Connection.UseCert {
			caCert, err := os.ReadFile(cfg.Connection.CACertPath)
			if err != nil {
				return nil, fmt.Errorf("failed to read CA cert: %w", err)
			}
			pool := x509.NewCertPool()
			pool.AppendCertsFromPEM(caCert)

			cert, err := tls.LoadX509KeyPair(cfg.Connection.ClientCertPath, cfg.Connection.ClientKeyPath)
			if err != nil {
				return nil, fmt.Errorf("failed to load client cert: %w", err)
			}
			tlsConfig.RootCAs = pool
			tlsConfig.Certificates = []tls.Certificate{cert}
		}
		amqpCfg.TLSClientConfig = tlsConfig
	}

	uri := amqp.URI{
		Scheme:   scheme,
		Host:     cfg.Connection.Host,
		Port:     int(cfg.Connection.Port),
		Username: cfg.Connection.User,
		Password: cfg.Connection.Password,
		Vhost:    "/",
	}
	conn, err := amqp.DialConfig(uri.String(), amqpCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return conn, nil
}
