package serializer

import (
	"context"

	"github.com/Aleph-Alpha/registry-serde/v1/avro"
	"github.com/Aleph-Alpha/registry-serde/v1/schema_registry"
)

// Config defines the serializer settings.
type Config struct {
	// DisableFastPath skips the fast decoder trial; every schema id then uses
	// the general decoder.
	DisableFastPath bool `yaml:"disable_fast_path" envconfig:"SERIALIZER_DISABLE_FAST_PATH"`
}

// Registry is the part of schema_registry.CachedClient the serializer uses.
type Registry interface {
	Register(ctx context.Context, subject string, schema *avro.Schema) (int, error)
	GetByID(ctx context.Context, id int) (*avro.Schema, bool, error)
	GetLatestSchema(ctx context.Context, subject string) (schema_registry.LatestSchema, bool, error)
}

// Logger is the logging contract of this package.
type Logger interface {
	DebugWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}
