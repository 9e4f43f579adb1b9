package serializer

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/registry-serde/v1/avro"
	"github.com/Aleph-Alpha/registry-serde/v1/schema_registry"
	"github.com/Aleph-Alpha/registry-serde/v1/wire"
)

const orderSchema = `{
  "type": "record",
  "name": "Order",
  "namespace": "shop",
  "fields": [
    {"name": "name", "type": "string"},
    {"name": "number", "type": ["null", "int"], "default": null}
  ]
}`

// stubRegistry counts calls and lets tests override individual operations.
type stubRegistry struct {
	registerCalls atomic.Int32
	getByIDCalls  atomic.Int32
	latestCalls   atomic.Int32

	register  func(ctx context.Context, subject string, schema *avro.Schema) (int, error)
	getByID   func(ctx context.Context, id int) (*avro.Schema, bool, error)
	getLatest func(ctx context.Context, subject string) (schema_registry.LatestSchema, bool, error)
}

func (r *stubRegistry) Register(ctx context.Context, subject string, schema *avro.Schema) (int, error) {
	r.registerCalls.Add(1)
	return r.register(ctx, subject, schema)
}

func (r *stubRegistry) GetByID(ctx context.Context, id int) (*avro.Schema, bool, error) {
	r.getByIDCalls.Add(1)
	return r.getByID(ctx, id)
}

func (r *stubRegistry) GetLatestSchema(ctx context.Context, subject string) (schema_registry.LatestSchema, bool, error) {
	r.latestCalls.Add(1)
	return r.getLatest(ctx, subject)
}

func newMemorySerializer(t *testing.T, cfg Config) (*Serializer, *schema_registry.CachedClient) {
	t.Helper()
	client := schema_registry.NewCachedClient(schema_registry.NewMemoryGateway())
	return NewSerializer(client, cfg), client
}

func TestOrdersScenario(t *testing.T) {
	s, client := newMemorySerializer(t, Config{})
	ctx := context.Background()

	_, err := client.Register(ctx, "orders-value", avro.MustParse(orderSchema))
	require.NoError(t, err)

	msg, err := s.EncodeRecordForTopic(ctx, "orders", avro.Record{"name": "a-1", "number": 5}, false)
	require.NoError(t, err)

	latest, found, err := client.GetLatestSchema(ctx, "orders-value")
	require.NoError(t, err)
	require.True(t, found)

	require.Greater(t, len(msg), wire.HeaderSize)
	assert.Equal(t, byte(0), msg[0])
	assert.Equal(t, uint32(latest.ID), binary.BigEndian.Uint32(msg[1:5]))

	record, err := s.DecodeMessage(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, avro.Record{"name": "a-1", "number": 5}, record)
}

func TestEncodeRecordWithSchemaRoundTrip(t *testing.T) {
	s, client := newMemorySerializer(t, Config{})
	ctx := context.Background()
	schema := avro.MustParse(orderSchema)

	tests := []struct {
		name    string
		isKey   bool
		subject string
		record  avro.Record
	}{
		{name: "value", isKey: false, subject: "orders-value", record: avro.Record{"name": "v", "number": 1}},
		{name: "key", isKey: true, subject: "orders-key", record: avro.Record{"name": "k", "number": nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := s.EncodeRecordWithSchema(ctx, "orders", schema, tt.record, tt.isKey)
			require.NoError(t, err)

			version, found, err := client.GetVersion(ctx, tt.subject, schema)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, 1, version)

			record, err := s.DecodeMessage(ctx, msg)
			require.NoError(t, err)
			assert.Equal(t, tt.record, record)
		})
	}
}

func TestEncodeRecordWithSchemaIDCachesWriter(t *testing.T) {
	schema := avro.MustParse(orderSchema)
	registry := &stubRegistry{
		getByID: func(context.Context, int) (*avro.Schema, bool, error) { return schema, true, nil },
	}
	s := NewSerializer(registry, Config{})

	for i := 0; i < 3; i++ {
		_, err := s.EncodeRecordWithSchemaID(context.Background(), 9, avro.Record{"name": "x"})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), registry.getByIDCalls.Load())
}

func TestEncodeRejectsNonRecordsBeforeIO(t *testing.T) {
	registry := &stubRegistry{}
	s := NewSerializer(registry, Config{})
	ctx := context.Background()
	schema := avro.MustParse(orderSchema)

	for _, record := range []any{"a string", []any{1}, nil, map[string]string{"name": "x"}} {
		_, err := s.EncodeRecordWithSchemaID(ctx, 1, record)
		assert.True(t, IsSerializationError(err), "%T", record)

		_, err = s.EncodeRecordWithSchema(ctx, "orders", schema, record, false)
		assert.True(t, IsSerializationError(err), "%T", record)

		_, err = s.EncodeRecordForTopic(ctx, "orders", record, false)
		assert.True(t, IsSerializationError(err), "%T", record)
	}

	assert.Zero(t, registry.getByIDCalls.Load())
	assert.Zero(t, registry.registerCalls.Load())
	assert.Zero(t, registry.latestCalls.Load())
}

func TestEncodeUnknownSchemaID(t *testing.T) {
	s, _ := newMemorySerializer(t, Config{})

	_, err := s.EncodeRecordWithSchemaID(context.Background(), 404, avro.Record{"name": "x"})
	var serErr *SerializationError
	require.ErrorAs(t, err, &serErr)
	assert.Contains(t, serErr.Message, "does not exist")
}

func TestEncodeRegistryFailureIsSerializationError(t *testing.T) {
	cause := &schema_registry.RegistryError{StatusCode: -1, Message: "connection refused"}
	registry := &stubRegistry{
		register: func(context.Context, string, *avro.Schema) (int, error) { return 0, cause },
		getByID: func(context.Context, int) (*avro.Schema, bool, error) {
			return nil, false, cause
		},
		getLatest: func(context.Context, string) (schema_registry.LatestSchema, bool, error) {
			return schema_registry.LatestSchema{}, false, cause
		},
	}
	s := NewSerializer(registry, Config{})
	ctx := context.Background()
	record := avro.Record{"name": "x"}

	_, err := s.EncodeRecordWithSchema(ctx, "orders", avro.MustParse(orderSchema), record, true)
	var serErr *SerializationError
	require.ErrorAs(t, err, &serErr)
	assert.Contains(t, serErr.Message, "orders-key")
	assert.ErrorIs(t, err, cause)

	_, err = s.EncodeRecordWithSchemaID(ctx, 3, record)
	require.ErrorAs(t, err, &serErr)
	assert.Contains(t, serErr.Message, "error fetching schema")

	_, err = s.EncodeRecordForTopic(ctx, "orders", record, false)
	require.ErrorAs(t, err, &serErr)
	assert.Contains(t, serErr.Message, "orders-value")
}

func TestEncodeRecordForTopicWithoutSchema(t *testing.T) {
	s, _ := newMemorySerializer(t, Config{})

	_, err := s.EncodeRecordForTopic(context.Background(), "orders", avro.Record{"name": "x"}, false)
	var serErr *SerializationError
	require.ErrorAs(t, err, &serErr)
	assert.Equal(t, "subject orders-value has no registered schema", serErr.Message)
}

func TestEncodeInvalidRecord(t *testing.T) {
	s, _ := newMemorySerializer(t, Config{})

	_, err := s.EncodeRecordWithSchema(context.Background(), "orders", avro.MustParse(orderSchema), avro.Record{"number": 3}, false)
	assert.True(t, IsSerializationError(err))
	assert.ErrorIs(t, err, avro.ErrEncode)
}

func TestDecodeMessageValidation(t *testing.T) {
	s, _ := newMemorySerializer(t, Config{})
	ctx := context.Background()

	_, err := s.DecodeMessage(ctx, []byte{0, 0, 0, 0, 1})
	assert.True(t, IsSerializationError(err))
	assert.ErrorIs(t, err, wire.ErrMessageTooSmall)
	assert.Contains(t, err.Error(), "message is too small to decode")

	_, err = s.DecodeMessage(ctx, []byte{1, 0, 0, 0, 1, 2})
	assert.True(t, IsSerializationError(err))
	assert.ErrorIs(t, err, wire.ErrInvalidMagicByte)
	assert.Contains(t, err.Error(), "does not start with magic byte")

	_, err = s.DecodeMessage(ctx, []byte{0, 0, 0, 0, 77, 2})
	var serErr *SerializationError
	require.ErrorAs(t, err, &serErr)
	assert.Contains(t, serErr.Message, "does not exist")
}

func TestDecodeValueNonRecordSchema(t *testing.T) {
	s, client := newMemorySerializer(t, Config{})
	ctx := context.Background()
	keySchema := avro.MustParse(`"string"`)

	id, err := client.Register(ctx, "orders-key", keySchema)
	require.NoError(t, err)

	payload, err := keySchema.Encode("order-7")
	require.NoError(t, err)
	msg, err := wire.Encode(id, payload)
	require.NoError(t, err)

	value, err := s.DecodeValue(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, "order-7", value)

	_, err = s.DecodeMessage(ctx, msg)
	assert.True(t, IsSerializationError(err))
}

func TestDecodeStrategySelection(t *testing.T) {
	ctx := context.Background()

	t.Run("fast path by default", func(t *testing.T) {
		s, client := newMemorySerializer(t, Config{})
		msg := encodeOrder(t, s, client)

		_, ok := s.DecodeStrategy(1)
		assert.False(t, ok)

		_, err := s.DecodeMessage(ctx, msg)
		require.NoError(t, err)

		strategy, ok := s.DecodeStrategy(1)
		require.True(t, ok)
		assert.Equal(t, StrategyFast, strategy)
	})

	t.Run("disabled fast path", func(t *testing.T) {
		s, client := newMemorySerializer(t, Config{DisableFastPath: true})
		msg := encodeOrder(t, s, client)

		record, err := s.DecodeMessage(ctx, msg)
		require.NoError(t, err)
		assert.Equal(t, avro.Record{"name": "a-1", "number": 5}, record)

		strategy, _ := s.DecodeStrategy(1)
		assert.Equal(t, StrategyGeneral, strategy)
	})

	t.Run("failed trial decode selects general decoder once", func(t *testing.T) {
		s, client := newMemorySerializer(t, Config{})
		var trials atomic.Int32
		s.newFastDecoder = func(*avro.Schema) decodeFunc {
			return func([]byte) (any, error) {
				trials.Add(1)
				return nil, errors.New("unsupported")
			}
		}
		msg := encodeOrder(t, s, client)

		for i := 0; i < 3; i++ {
			record, err := s.DecodeMessage(ctx, msg)
			require.NoError(t, err)
			assert.Equal(t, avro.Record{"name": "a-1", "number": 5}, record)
		}

		assert.Equal(t, int32(1), trials.Load())
		strategy, _ := s.DecodeStrategy(1)
		assert.Equal(t, StrategyGeneral, strategy)
	})

	t.Run("trial then decode the same payload", func(t *testing.T) {
		s, client := newMemorySerializer(t, Config{})
		var calls atomic.Int32
		s.newFastDecoder = func(schema *avro.Schema) decodeFunc {
			return func(payload []byte) (any, error) {
				calls.Add(1)
				return schema.DecodeFast(payload)
			}
		}
		msg := encodeOrder(t, s, client)

		_, err := s.DecodeMessage(ctx, msg)
		require.NoError(t, err)
		assert.Equal(t, int32(2), calls.Load(), "one trial and one decode of the same payload")

		_, err = s.DecodeMessage(ctx, msg)
		require.NoError(t, err)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("choice is never revisited", func(t *testing.T) {
		s, client := newMemorySerializer(t, Config{})
		var calls atomic.Int32
		s.newFastDecoder = func(schema *avro.Schema) decodeFunc {
			return func(payload []byte) (any, error) {
				if calls.Add(1) > 2 {
					return nil, errors.New("fast decoder broke")
				}
				return schema.DecodeFast(payload)
			}
		}
		msg := encodeOrder(t, s, client)

		_, err := s.DecodeMessage(ctx, msg)
		require.NoError(t, err)

		_, err = s.DecodeMessage(ctx, msg)
		assert.True(t, IsSerializationError(err))

		strategy, _ := s.DecodeStrategy(1)
		assert.Equal(t, StrategyFast, strategy)
	})

	t.Run("concurrent first decodes try the fast decoder once", func(t *testing.T) {
		s, client := newMemorySerializer(t, Config{})
		var trials atomic.Int32
		s.newFastDecoder = func(*avro.Schema) decodeFunc {
			return func([]byte) (any, error) {
				trials.Add(1)
				return nil, errors.New("unsupported")
			}
		}
		msg := encodeOrder(t, s, client)

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				record, err := s.DecodeMessage(ctx, append([]byte(nil), msg...))
				assert.NoError(t, err)
				assert.Equal(t, "a-1", record["name"])
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), trials.Load())
	})
}

func TestDecodeMatchesAcrossStrategies(t *testing.T) {
	ctx := context.Background()
	fast, client := newMemorySerializer(t, Config{})
	general := NewSerializer(client, Config{DisableFastPath: true})

	msg := encodeOrder(t, fast, client)

	a, err := fast.DecodeMessage(ctx, msg)
	require.NoError(t, err)
	b, err := general.DecodeMessage(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestStrategyString(t *testing.T) {
	assert.Equal(t, "fast", StrategyFast.String())
	assert.Equal(t, "general", StrategyGeneral.String())
	assert.Equal(t, "unresolved", StrategyUnresolved.String())
}

func TestSubjectName(t *testing.T) {
	assert.Equal(t, "orders-key", SubjectName("orders", true))
	assert.Equal(t, "orders-value", SubjectName("orders", false))
}

// encodeOrder registers orderSchema, which gets id 1 in a fresh memory
// registry, and returns an encoded order.
func encodeOrder(t *testing.T, s *Serializer, client *schema_registry.CachedClient) []byte {
	t.Helper()
	id, err := client.Register(context.Background(), "orders-value", avro.MustParse(orderSchema))
	require.NoError(t, err)
	require.Equal(t, 1, id)

	msg, err := s.EncodeRecordWithSchemaID(context.Background(), id, avro.Record{"name": "a-1", "number": 5})
	require.NoError(t, err)
	return msg
}
