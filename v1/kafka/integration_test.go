package kafka

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Aleph-Alpha/registry-serde/v1/avro"
	"github.com/Aleph-Alpha/registry-serde/v1/schema_registry"
	"github.com/Aleph-Alpha/registry-serde/v1/serializer"
)

type redpanda struct {
	broker      string
	registryURL string
}

// setupRedpanda starts a single node Redpanda, which bundles a Kafka broker
// and a schema registry.
func setupRedpanda(t *testing.T) redpanda {
	t.Helper()
	ctx := context.Background()

	kafkaPort, err := getFreePort()
	require.NoError(t, err)

	req := testcontainers.ContainerRequest{
		Image: "docker.redpanda.com/redpandadata/redpanda:v23.3.5",
		Cmd: []string{
			"redpanda", "start",
			"--mode", "dev-container",
			"--smp", "1",
			"--kafka-addr", "PLAINTEXT://0.0.0.0:9092",
			"--advertise-kafka-addr", fmt.Sprintf("PLAINTEXT://localhost:%d", kafkaPort),
			"--schema-registry-addr", "0.0.0.0:8081",
		},
		ExposedPorts: []string{"9092/tcp", "8081/tcp"},
		HostConfigModifier: func(cfg *container.HostConfig) {
			cfg.PortBindings = nat.PortMap{
				"9092/tcp": []nat.PortBinding{{HostPort: fmt.Sprintf("%d", kafkaPort)}},
			}
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("Successfully started Redpanda!").WithStartupTimeout(90*time.Second),
			wait.ForHTTP("/subjects").WithPort("8081/tcp").WithStartupTimeout(90*time.Second),
		),
	}

	rp, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := rp.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	host, err := rp.Host(ctx)
	require.NoError(t, err)
	registryPort, err := rp.MappedPort(ctx, "8081")
	require.NoError(t, err)

	return redpanda{
		broker:      fmt.Sprintf("localhost:%d", kafkaPort),
		registryURL: fmt.Sprintf("http://%s:%s", host, registryPort.Port()),
	}
}

func getFreePort() (int, error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafka.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func TestKafkaWithRegistryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	rp := setupRedpanda(t)
	createTopic(t, rp.broker, "orders")

	gateway, err := schema_registry.NewHTTPGateway(schema_registry.Config{URL: rp.registryURL}, nil)
	require.NoError(t, err)
	registry := schema_registry.NewCachedClient(gateway)
	ser := serializer.NewSerializer(registry, serializer.Config{})

	producer, err := NewClient(Config{
		Brokers:     []string{rp.broker},
		Topic:       "orders",
		ValueSchema: orderSchema,
	}, ser)
	require.NoError(t, err)
	defer producer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	for i := 0; i < 3; i++ {
		require.NoError(t, producer.Publish(ctx, fmt.Sprintf("order-%d", i), avro.Record{"id": int64(i), "item": "book"}))
	}

	latest, found, err := registry.GetLatestSchema(ctx, "orders-value")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1, latest.Version)

	level, err := registry.GetCompatibility(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, schema_registry.CompatibilityBackward, level)

	consumer, err := NewClient(Config{
		Brokers:    []string{rp.broker},
		Topic:      "orders",
		GroupID:    "orders-it",
		IsConsumer: true,
	}, serializer.NewSerializer(schema_registry.NewCachedClient(gateway), serializer.Config{}))
	require.NoError(t, err)

	consumeCtx, stop := context.WithCancel(ctx)
	wg := &sync.WaitGroup{}
	msgs := consumer.Consume(consumeCtx, wg)

	for i := 0; i < 3; i++ {
		select {
		case msg := <-msgs:
			require.NoError(t, msg.Err())
			assert.Equal(t, fmt.Sprintf("order-%d", i), msg.Key())
			assert.Equal(t, avro.Record{"id": int64(i), "item": "book"}, msg.Record())
			require.NoError(t, msg.CommitMsg())
		case <-ctx.Done():
			t.Fatal("timed out waiting for messages")
		}
	}

	stop()
	for range msgs {
	}
	wg.Wait()
	require.NoError(t, consumer.Close())
}
