package schemastore

import (
	"context"
	"time"
)

// Config holds the Postgres connection used by Store.
type Config struct {
	Connection        Connection        `yaml:"connection"`
	ConnectionDetails ConnectionDetails `yaml:"connection_details"`

	// MonitorInterval is the period of the connection health check.
	// Defaults to 10s.
	MonitorInterval time.Duration `yaml:"monitor_interval" envconfig:"SCHEMASTORE_MONITOR_INTERVAL"`

	// SkipMigration leaves the registry tables alone on startup. Use it when
	// the tables are managed by an external migration tool.
	SkipMigration bool `yaml:"skip_migration" envconfig:"SCHEMASTORE_SKIP_MIGRATION"`
}

// Connection identifies the database.
type Connection struct {
	Host     string `yaml:"host" envconfig:"SCHEMASTORE_HOST"`
	Port     string `yaml:"port" envconfig:"SCHEMASTORE_PORT"`
	User     string `yaml:"user" envconfig:"SCHEMASTORE_USER"`
	Password string `yaml:"password" envconfig:"SCHEMASTORE_PASSWORD"`
	DbName   string `yaml:"db_name" envconfig:"SCHEMASTORE_DB_NAME"`
	SSLMode  string `yaml:"ssl_mode" envconfig:"SCHEMASTORE_SSL_MODE"`
}

// ConnectionDetails tunes the connection pool. Zero values fall back to
// 50 open, 25 idle and a one minute lifetime.
type ConnectionDetails struct {
	MaxOpenConns    int           `yaml:"max_open_conns" envconfig:"SCHEMASTORE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" envconfig:"SCHEMASTORE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" envconfig:"SCHEMASTORE_CONN_MAX_LIFETIME"`
}

const (
	defaultMaxOpenConns    = 50
	defaultMaxIdleConns    = 25
	defaultConnMaxLifetime = time.Minute
	defaultMonitorInterval = 10 * time.Second
	healthCheckTimeout     = 5 * time.Second
	reconnectBackoff       = time.Second
)

// Logger is the subset of logger.Logger used by Store.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}
