package serializer

import (
	"context"
	"sync"
	"time"

	"github.com/Aleph-Alpha/registry-serde/v1/avro"
	"github.com/Aleph-Alpha/registry-serde/v1/observability"
	"github.com/Aleph-Alpha/registry-serde/v1/wire"
)

// Serializer turns records into self-describing messages and back.
//
// Schema resolution is paid once per schema id, not per message: writers and
// decoders are cached by id for the lifetime of the Serializer. The decoder of
// an id is chosen the first time a message with that id is decoded. The fast
// decoder is tried on that message; if it succeeds it is used for the id from
// then on, otherwise the general decoder is. The choice is never revisited.
//
// A Serializer is safe for concurrent use.
type Serializer struct {
	registry Registry
	cfg      Config
	logger   Logger
	observer observability.Observer

	writersMu  sync.RWMutex
	idToWriter map[int]*avro.Schema

	decodersMu  sync.Mutex
	idToDecoder map[int]decoder

	newFastDecoder    func(*avro.Schema) decodeFunc
	newGeneralDecoder func(*avro.Schema) decodeFunc
}

// NewSerializer returns a Serializer resolving schemas through registry.
func NewSerializer(registry Registry, cfg Config) *Serializer {
	return &Serializer{
		registry:          registry,
		cfg:               cfg,
		idToWriter:        make(map[int]*avro.Schema),
		idToDecoder:       make(map[int]decoder),
		newFastDecoder:    fastDecoder,
		newGeneralDecoder: generalDecoder,
	}
}

// WithLogger attaches a logger and returns the serializer.
func (s *Serializer) WithLogger(logger Logger) *Serializer {
	s.logger = logger
	return s
}

// WithObserver attaches an observer and returns the serializer.
func (s *Serializer) WithObserver(observer observability.Observer) *Serializer {
	s.observer = observer
	return s
}

// SubjectName returns the registry subject of a topic's keys or values.
func SubjectName(topic string, isKey bool) string {
	if isKey {
		return topic + "-key"
	}
	return topic + "-value"
}

// EncodeRecordWithSchemaID encodes record with the schema registered under id.
// record must be a map[string]any; anything else fails before any registry
// request is made.
func (s *Serializer) EncodeRecordWithSchemaID(ctx context.Context, id int, record any) ([]byte, error) {
	start := time.Now()
	out, err := s.encodeWithID(ctx, id, record)
	s.observeOperation("encode", "", id, time.Since(start), err, len(out))
	return out, err
}

// EncodeRecordWithSchema registers schema under the topic's key or value
// subject and encodes record with it. Every registration failure is reported
// as a *SerializationError naming the subject.
func (s *Serializer) EncodeRecordWithSchema(ctx context.Context, topic string, schema *avro.Schema, record any, isKey bool) ([]byte, error) {
	start := time.Now()
	subject := SubjectName(topic, isKey)

	if _, err := asRecord(record); err != nil {
		s.observeOperation("encode", subject, 0, time.Since(start), err, 0)
		return nil, err
	}

	id, err := s.registry.Register(ctx, subject, schema)
	if err != nil {
		serErr := newError(err, "unable to retrieve schema id for subject %s", subject)
		s.observeOperation("encode", subject, 0, time.Since(start), serErr, 0)
		return nil, serErr
	}
	s.cacheWriter(id, schema)

	out, err := s.encodeWithID(ctx, id, record)
	s.observeOperation("encode", subject, id, time.Since(start), err, len(out))
	return out, err
}

// EncodeRecordForTopic encodes record with the newest schema of the topic's
// key or value subject. The latest schema is looked up on every call.
func (s *Serializer) EncodeRecordForTopic(ctx context.Context, topic string, record any, isKey bool) ([]byte, error) {
	start := time.Now()
	subject := SubjectName(topic, isKey)

	if _, err := asRecord(record); err != nil {
		s.observeOperation("encode", subject, 0, time.Since(start), err, 0)
		return nil, err
	}

	latest, found, err := s.registry.GetLatestSchema(ctx, subject)
	if err != nil {
		serErr := newError(err, "unable to retrieve latest schema for subject %s", subject)
		s.observeOperation("encode", subject, 0, time.Since(start), serErr, 0)
		return nil, serErr
	}
	if !found {
		serErr := newError(nil, "subject %s has no registered schema", subject)
		s.observeOperation("encode", subject, 0, time.Since(start), serErr, 0)
		return nil, serErr
	}
	s.cacheWriter(latest.ID, latest.Schema)

	out, err := s.encodeWithID(ctx, latest.ID, record)
	s.observeOperation("encode", subject, latest.ID, time.Since(start), err, len(out))
	return out, err
}

// DecodeMessage decodes a message whose schema is a record.
func (s *Serializer) DecodeMessage(ctx context.Context, data []byte) (avro.Record, error) {
	value, id, err := s.decode(ctx, data)
	if err != nil {
		return nil, err
	}
	record, ok := value.(map[string]any)
	if !ok {
		return nil, newError(nil, "schema %d does not describe a record, decoded %T", id, value)
	}
	return record, nil
}

// DecodeValue decodes a message of any schema, e.g. a primitive key schema.
func (s *Serializer) DecodeValue(ctx context.Context, data []byte) (any, error) {
	value, _, err := s.decode(ctx, data)
	return value, err
}

// DecodeStrategy reports the decoder chosen for id. The second result is
// false while no message with the id has been decoded.
func (s *Serializer) DecodeStrategy(id int) (Strategy, bool) {
	s.decodersMu.Lock()
	defer s.decodersMu.Unlock()
	d, ok := s.idToDecoder[id]
	if !ok {
		return StrategyUnresolved, false
	}
	return d.strategy, true
}

func (s *Serializer) encodeWithID(ctx context.Context, id int, record any) ([]byte, error) {
	rec, err := asRecord(record)
	if err != nil {
		return nil, err
	}

	writer, err := s.writer(ctx, id)
	if err != nil {
		return nil, err
	}

	out, err := wire.EncodeRecord(writer, id, rec)
	if err != nil {
		return nil, newError(err, "unable to encode record with schema %d", id)
	}
	return out, nil
}

func (s *Serializer) decode(ctx context.Context, data []byte) (any, int, error) {
	start := time.Now()

	env, err := wire.Decode(data)
	if err != nil {
		serErr := newError(err, "invalid message")
		s.observeOperation("decode", "", 0, time.Since(start), serErr, len(data))
		return nil, 0, serErr
	}

	dec, err := s.decoder(ctx, env)
	if err != nil {
		s.observeOperation("decode", "", env.SchemaID, time.Since(start), err, len(data))
		return nil, env.SchemaID, err
	}

	value, err := dec.decode(env.Payload)
	if err != nil {
		serErr := newError(err, "unable to decode message with schema %d using the %s decoder", env.SchemaID, dec.strategy)
		s.observeOperation("decode", "", env.SchemaID, time.Since(start), serErr, len(data))
		return nil, env.SchemaID, serErr
	}

	s.observeOperation("decode", "", env.SchemaID, time.Since(start), nil, len(data))
	return value, env.SchemaID, nil
}

// writer returns the cached writer schema of id, fetching it if needed.
func (s *Serializer) writer(ctx context.Context, id int) (*avro.Schema, error) {
	s.writersMu.RLock()
	writer, ok := s.idToWriter[id]
	s.writersMu.RUnlock()
	if ok {
		return writer, nil
	}

	schema, err := s.schemaByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.cacheWriter(id, schema), nil
}

func (s *Serializer) cacheWriter(id int, schema *avro.Schema) *avro.Schema {
	s.writersMu.Lock()
	defer s.writersMu.Unlock()
	if existing, ok := s.idToWriter[id]; ok {
		return existing
	}
	s.idToWriter[id] = schema
	return schema
}

// decoder returns the memoized decoder of env.SchemaID, resolving it on
// first use. The schema is fetched before the decoder lock is taken; the
// trial decode runs under the lock, so each id is tried exactly once.
func (s *Serializer) decoder(ctx context.Context, env wire.Envelope) (decoder, error) {
	s.decodersMu.Lock()
	d, ok := s.idToDecoder[env.SchemaID]
	s.decodersMu.Unlock()
	if ok {
		return d, nil
	}

	schema, err := s.schemaByID(ctx, env.SchemaID)
	if err != nil {
		return decoder{}, err
	}

	s.decodersMu.Lock()
	defer s.decodersMu.Unlock()

	if d, ok := s.idToDecoder[env.SchemaID]; ok {
		return d, nil
	}

	d = s.resolve(ctx, env, schema)
	s.idToDecoder[env.SchemaID] = d
	return d, nil
}

// resolve tries the fast decoder on the payload. Decoding never consumes the
// payload slice, so the chosen decoder then runs on the same bytes.
func (s *Serializer) resolve(ctx context.Context, env wire.Envelope, schema *avro.Schema) decoder {
	general := decoder{strategy: StrategyGeneral, decode: s.newGeneralDecoder(schema)}
	if s.cfg.DisableFastPath {
		return general
	}

	fast := s.newFastDecoder(schema)
	if _, err := fast(env.Payload); err != nil {
		s.logDebug(ctx, "fast decoder rejected payload, using general decoder", err, map[string]interface{}{
			"schema_id": env.SchemaID,
		})
		return general
	}
	return decoder{strategy: StrategyFast, decode: fast}
}

func (s *Serializer) schemaByID(ctx context.Context, id int) (*avro.Schema, error) {
	schema, found, err := s.registry.GetByID(ctx, id)
	if err != nil {
		s.logWarn(ctx, "unable to fetch schema from registry", err, map[string]interface{}{"schema_id": id})
		return nil, newError(err, "error fetching schema %d from registry", id)
	}
	if !found {
		return nil, newError(nil, "schema %d does not exist", id)
	}
	return schema, nil
}

func asRecord(record any) (map[string]any, error) {
	rec, ok := record.(map[string]any)
	if !ok || rec == nil {
		return nil, newError(nil, "record must be a map[string]any, got %T", record)
	}
	return rec, nil
}

func (s *Serializer) logDebug(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if s.logger != nil {
		s.logger.DebugWithContext(ctx, msg, err, fields)
	}
}

func (s *Serializer) logWarn(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if s.logger != nil {
		s.logger.WarnWithContext(ctx, msg, err, fields)
	}
}
