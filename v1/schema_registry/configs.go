package schema_registry

import (
	"context"
	"time"
)

// Config holds the settings of the HTTP gateway.
type Config struct {
	// URL is the registry endpoint, e.g. "http://localhost:8081".
	URL string `yaml:"url" envconfig:"SCHEMA_REGISTRY_URL"`

	// Username and Password enable HTTP basic auth when Username is set.
	Username string `yaml:"username" envconfig:"SCHEMA_REGISTRY_USERNAME"`
	Password string `yaml:"password" envconfig:"SCHEMA_REGISTRY_PASSWORD"`

	// BearerToken is sent as "Authorization: Bearer <token>" when set and no
	// Username is configured.
	BearerToken string `yaml:"bearer_token" envconfig:"SCHEMA_REGISTRY_BEARER_TOKEN"`

	// Timeout bounds each HTTP request. Zero means 10s.
	Timeout time.Duration `yaml:"timeout" envconfig:"SCHEMA_REGISTRY_TIMEOUT" default:"10s"`
}

const defaultTimeout = 10 * time.Second

// Logger is the logging contract of this package. logger.LoggerClient implements it.
type Logger interface {
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}
