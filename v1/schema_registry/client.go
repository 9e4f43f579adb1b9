package schema_registry

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Aleph-Alpha/registry-serde/v1/avro"
	"github.com/Aleph-Alpha/registry-serde/v1/observability"
)

// LatestSchema is the newest schema of a subject.
type LatestSchema struct {
	ID      int
	Schema  *avro.Schema
	Version int
}

// CachedClient is a schema registry client that remembers everything it has
// learned for the lifetime of the process.
//
// Three caches are kept, each behind its own lock:
//
//	idToSchema              schema id -> parsed schema
//	subjectSchemaToID       subject -> fingerprint -> schema id
//	subjectSchemaToVersion  subject -> fingerprint -> version
//
// Entries are only ever added. An id, once cached, keeps pointing at the same
// *avro.Schema. Concurrent registrations of the same (subject, schema) and
// concurrent fetches of the same id share a single registry request; a caller
// whose context is cancelled leaves the shared request running for the others.
//
// A CachedClient is safe for concurrent use.
type CachedClient struct {
	gateway  Gateway
	logger   Logger
	observer observability.Observer

	idMu       sync.RWMutex
	idToSchema map[int]*avro.Schema

	subjectIDMu       sync.RWMutex
	subjectSchemaToID map[string]map[avro.Fingerprint]int

	subjectVersionMu       sync.RWMutex
	subjectSchemaToVersion map[string]map[avro.Fingerprint]int

	registrations singleflight.Group
	fetches       singleflight.Group
}

// NewCachedClient returns a client with empty caches in front of gateway.
func NewCachedClient(gateway Gateway) *CachedClient {
	return &CachedClient{
		gateway:                gateway,
		idToSchema:             make(map[int]*avro.Schema),
		subjectSchemaToID:      make(map[string]map[avro.Fingerprint]int),
		subjectSchemaToVersion: make(map[string]map[avro.Fingerprint]int),
	}
}

// WithLogger attaches a logger and returns the client.
func (c *CachedClient) WithLogger(logger Logger) *CachedClient {
	c.logger = logger
	return c
}

// WithObserver attaches an observer and returns the client.
func (c *CachedClient) WithObserver(observer observability.Observer) *CachedClient {
	c.observer = observer
	return c
}

// Register returns the id of schema under subject, registering it if this
// client has not seen the pair before. A cached pair causes no request.
func (c *CachedClient) Register(ctx context.Context, subject string, schema *avro.Schema) (int, error) {
	start := time.Now()
	fp := schema.Fingerprint()

	if id, ok := c.cachedID(subject, fp); ok {
		c.observeLookup("register", subject, strconv.Itoa(id), true, time.Since(start), nil)
		return id, nil
	}

	v, err := flight(ctx, &c.registrations, subject+"|"+fp.String(), func(ctx context.Context) (any, error) {
		// A flight that finished just before this one started has filled the cache.
		if id, ok := c.cachedID(subject, fp); ok {
			return id, nil
		}

		id, err := c.gateway.Register(ctx, subject, schema.Text())
		if err != nil {
			return 0, asRegistryError(err)
		}

		c.cacheSchema(id, schema)
		c.cacheID(subject, fp, id)
		c.logInfo(ctx, "registered schema", map[string]interface{}{
			"subject": subject,
			"id":      id,
		})
		return id, nil
	})

	c.observeLookup("register", subject, "", false, time.Since(start), err)
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// GetByID returns the schema registered under id.
//
// The second result is false, with a nil error, when the registry does not
// know the id. Text that does not parse is reported as a RegistryError
// wrapping ErrMalformedSchema.
func (c *CachedClient) GetByID(ctx context.Context, id int) (*avro.Schema, bool, error) {
	start := time.Now()

	if schema, ok := c.cachedSchema(id); ok {
		c.observeLookup("get_by_id", strconv.Itoa(id), "", true, time.Since(start), nil)
		return schema, true, nil
	}

	v, err := flight(ctx, &c.fetches, strconv.Itoa(id), func(ctx context.Context) (any, error) {
		if schema, ok := c.cachedSchema(id); ok {
			return schema, nil
		}

		text, err := c.gateway.SchemaByID(ctx, id)
		if err != nil {
			return nil, asRegistryError(err)
		}

		schema, err := avro.Parse(text)
		if err != nil {
			c.logError(ctx, "registry returned a schema that does not parse", err, map[string]interface{}{"id": id})
			return nil, malformedSchemaError(err)
		}
		return c.cacheSchema(id, schema), nil
	})

	c.observeLookup("get_by_id", strconv.Itoa(id), "", false, time.Since(start), err)
	if err != nil {
		if IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return v.(*avro.Schema), true, nil
}

// GetLatestSchema asks the registry for the newest schema of subject. It is
// never answered from cache, because a newer version may have been
// registered since the last call. The result populates the id and version
// caches; a schema whose id is already cached is returned as the cached object.
//
// The second result is false, with a nil error, when the subject does not exist.
func (c *CachedClient) GetLatestSchema(ctx context.Context, subject string) (LatestSchema, bool, error) {
	start := time.Now()

	meta, err := c.gateway.LatestVersion(ctx, subject)
	c.observeLookup("get_latest", subject, "", false, time.Since(start), err)
	if err != nil {
		if IsNotFound(err) {
			return LatestSchema{}, false, nil
		}
		return LatestSchema{}, false, asRegistryError(err)
	}

	schema, ok := c.cachedSchema(meta.ID)
	if !ok {
		parsed, err := avro.Parse(meta.Schema)
		if err != nil {
			c.logError(ctx, "registry returned a schema that does not parse", err, map[string]interface{}{
				"subject": subject,
				"id":      meta.ID,
			})
			return LatestSchema{}, false, malformedSchemaError(err)
		}
		schema = c.cacheSchema(meta.ID, parsed)
	}

	c.cacheID(subject, schema.Fingerprint(), meta.ID)
	c.cacheVersion(subject, schema.Fingerprint(), meta.Version)

	return LatestSchema{ID: meta.ID, Schema: schema, Version: meta.Version}, true, nil
}

// GetVersion returns the version of schema within subject. The second result
// is false, with version -1 and a nil error, when the registry has no such
// schema under subject.
func (c *CachedClient) GetVersion(ctx context.Context, subject string, schema *avro.Schema) (int, bool, error) {
	start := time.Now()
	fp := schema.Fingerprint()

	if version, ok := c.cachedVersion(subject, fp); ok {
		c.observeLookup("get_version", subject, strconv.Itoa(version), true, time.Since(start), nil)
		return version, true, nil
	}

	meta, err := c.gateway.LookupVersion(ctx, subject, schema.Text())
	c.observeLookup("get_version", subject, "", false, time.Since(start), err)
	if err != nil {
		if IsNotFound(err) {
			return -1, false, nil
		}
		return -1, false, asRegistryError(err)
	}

	c.cacheSchema(meta.ID, schema)
	c.cacheID(subject, fp, meta.ID)
	c.cacheVersion(subject, fp, meta.Version)
	return meta.Version, true, nil
}

// TestCompatibility reports whether schema is compatible with version of
// subject; an empty version means "latest".
//
// The check fails closed: any error, including a missing subject or an
// unreachable registry, yields false. The error is logged at warn level.
func (c *CachedClient) TestCompatibility(ctx context.Context, subject string, schema *avro.Schema, version string) bool {
	if version == "" {
		version = LatestVersion
	}

	start := time.Now()
	ok, err := c.gateway.TestCompatibility(ctx, subject, schema.Text(), version)
	c.observeLookup("test_compatibility", subject, version, false, time.Since(start), err)
	if err != nil {
		c.logWarn(ctx, "compatibility check failed, treating schema as incompatible", err, map[string]interface{}{
			"subject": subject,
			"version": version,
		})
		return false
	}
	return ok
}

// UpdateCompatibility sets the compatibility level of subject, or the global
// level when subject is empty. An unsupported level is rejected before any
// request is made.
func (c *CachedClient) UpdateCompatibility(ctx context.Context, level CompatibilityLevel, subject string) (CompatibilityLevel, error) {
	if !level.Valid() {
		return "", localError("invalid compatibility level "+string(level), ErrInvalidCompatibilityLevel)
	}

	start := time.Now()
	updated, err := c.gateway.UpdateCompatibility(ctx, subject, level)
	c.observeLookup("update_compatibility", subject, string(level), false, time.Since(start), err)
	if err != nil {
		return "", asRegistryError(err)
	}
	return updated, nil
}

// GetCompatibility returns the compatibility level of subject, or the global
// level when subject is empty.
func (c *CachedClient) GetCompatibility(ctx context.Context, subject string) (CompatibilityLevel, error) {
	start := time.Now()
	level, err := c.gateway.Compatibility(ctx, subject)
	c.observeLookup("get_compatibility", subject, "", false, time.Since(start), err)
	if err != nil {
		return "", asRegistryError(err)
	}
	return level, nil
}

func (c *CachedClient) cachedID(subject string, fp avro.Fingerprint) (int, bool) {
	c.subjectIDMu.RLock()
	defer c.subjectIDMu.RUnlock()
	id, ok := c.subjectSchemaToID[subject][fp]
	return id, ok
}

func (c *CachedClient) cacheID(subject string, fp avro.Fingerprint, id int) {
	c.subjectIDMu.Lock()
	defer c.subjectIDMu.Unlock()
	bySchema, ok := c.subjectSchemaToID[subject]
	if !ok {
		bySchema = make(map[avro.Fingerprint]int)
		c.subjectSchemaToID[subject] = bySchema
	}
	bySchema[fp] = id
}

func (c *CachedClient) cachedSchema(id int) (*avro.Schema, bool) {
	c.idMu.RLock()
	defer c.idMu.RUnlock()
	schema, ok := c.idToSchema[id]
	return schema, ok
}

// cacheSchema stores schema under id unless id is already cached, and returns
// the schema that is cached afterwards.
func (c *CachedClient) cacheSchema(id int, schema *avro.Schema) *avro.Schema {
	c.idMu.Lock()
	defer c.idMu.Unlock()
	if existing, ok := c.idToSchema[id]; ok {
		return existing
	}
	c.idToSchema[id] = schema
	return schema
}

func (c *CachedClient) cachedVersion(subject string, fp avro.Fingerprint) (int, bool) {
	c.subjectVersionMu.RLock()
	defer c.subjectVersionMu.RUnlock()
	version, ok := c.subjectSchemaToVersion[subject][fp]
	return version, ok
}

func (c *CachedClient) cacheVersion(subject string, fp avro.Fingerprint, version int) {
	c.subjectVersionMu.Lock()
	defer c.subjectVersionMu.Unlock()
	bySchema, ok := c.subjectSchemaToVersion[subject]
	if !ok {
		bySchema = make(map[avro.Fingerprint]int)
		c.subjectSchemaToVersion[subject] = bySchema
	}
	bySchema[fp] = version
}

// flight runs fn once for all concurrent callers of key. fn gets the values
// and the deadline of the ctx that started the flight but not its
// cancellation, so one cancelled caller does not fail the others. Each
// caller stops waiting when its own ctx is done.
func flight(ctx context.Context, group *singleflight.Group, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	results := group.DoChan(key, func() (any, error) {
		shared := context.WithoutCancel(ctx)
		if deadline, ok := ctx.Deadline(); ok {
			var cancel context.CancelFunc
			shared, cancel = context.WithDeadline(shared, deadline)
			defer cancel()
		}
		return fn(shared)
	})

	select {
	case res := <-results:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, asRegistryError(ctx.Err())
	}
}

// asRegistryError makes sure every failure leaving the client is a *RegistryError.
func asRegistryError(err error) error {
	var regErr *RegistryError
	if errors.As(err, &regErr) {
		return err
	}
	return localError("registry request failed", err)
}

func (c *CachedClient) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.InfoWithContext(ctx, msg, nil, fields)
	}
}

func (c *CachedClient) logWarn(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.WarnWithContext(ctx, msg, err, fields)
	}
}

func (c *CachedClient) logError(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.ErrorWithContext(ctx, msg, err, fields)
	}
}
