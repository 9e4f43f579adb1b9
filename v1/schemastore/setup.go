package schemastore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Aleph-Alpha/registry-serde/v1/observability"
)

// Store is a schema registry persisted in Postgres. It implements
// schema_registry.Gateway, so a CachedClient can run against it in
// environments without a registry service.
//
// The connection is swapped atomically when MonitorConnection detects a
// broken connection and RetryConnection reconnects.
type Store struct {
	cfg    Config
	client atomic.Pointer[gorm.DB]

	shutdownSignal  chan struct{}
	retryChanSignal chan error

	closeShutdownOnce sync.Once

	logger   Logger
	observer observability.Observer
}

// NewStore connects to Postgres and creates the registry tables unless
// cfg.SkipMigration is set.
func NewStore(cfg Config) (*Store, error) {
	db, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("error in connecting to postgres: %w", err)
	}
	return newStore(cfg, db)
}

// NewStoreFromDB builds a Store over an existing gorm connection. The
// connection is not monitored or reconnected.
func NewStoreFromDB(db *gorm.DB, cfg Config) (*Store, error) {
	if db == nil {
		return nil, errors.New("schemastore: nil database")
	}
	return newStore(cfg, db)
}

func newStore(cfg Config, db *gorm.DB) (*Store, error) {
	if !cfg.SkipMigration {
		if err := migrate(db); err != nil {
			return nil, err
		}
	}

	s := &Store{
		cfg:             cfg,
		shutdownSignal:  make(chan struct{}),
		retryChanSignal: make(chan error, 1),
	}
	s.client.Store(db)
	return s, nil
}

// WithLogger sets the logger and returns the same instance.
func (s *Store) WithLogger(logger Logger) *Store {
	s.logger = logger
	return s
}

// WithObserver sets the observer and returns the same instance.
func (s *Store) WithObserver(observer observability.Observer) *Store {
	s.observer = observer
	return s
}

// DB returns the current connection.
func (s *Store) DB() *gorm.DB {
	return s.client.Load()
}

func dsn(cfg Config) string {
	sslMode := cfg.Connection.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Connection.Host,
		cfg.Connection.Port,
		cfg.Connection.User,
		cfg.Connection.Password,
		cfg.Connection.DbName,
		sslMode)
}

func connect(cfg Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn(cfg)), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgresSQL database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get PostgresSQL database instance: %w", err)
	}

	maxOpen := cfg.ConnectionDetails.MaxOpenConns
	if maxOpen == 0 {
		maxOpen = defaultMaxOpenConns
	}
	maxIdle := cfg.ConnectionDetails.MaxIdleConns
	if maxIdle == 0 {
		maxIdle = defaultMaxIdleConns
	}
	maxLifetime := cfg.ConnectionDetails.ConnMaxLifetime
	if maxLifetime == 0 {
		maxLifetime = defaultConnMaxLifetime
	}

	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(maxLifetime)

	return db, nil
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&schemaRow{}, &subjectVersionRow{}, &configRow{}); err != nil {
		return fmt.Errorf("failed to migrate registry tables: %w", err)
	}
	return nil
}

// RetryConnection reconnects whenever MonitorConnection reports a failed
// health check. It returns when ctx is done or the store shuts down.
func (s *Store) RetryConnection(ctx context.Context) {
outerLoop:
	for {
		select {
		case <-s.shutdownSignal:
			return
		case <-ctx.Done():
			return
		case err := <-s.retryChanSignal:
			s.logError("postgres health check failed, reconnecting", err, nil)
			for {
				select {
				case <-s.shutdownSignal:
					return
				case <-ctx.Done():
					return
				default:
				}

				conn, err := connect(s.cfg)
				if err != nil {
					s.logError("postgres reconnection failed", err, nil)
					time.Sleep(reconnectBackoff)
					continue
				}
				old := s.client.Swap(conn)
				if old != nil {
					if sqlDB, err := old.DB(); err == nil {
						_ = sqlDB.Close()
					}
				}
				s.logInfo("reconnected to postgres", nil)
				continue outerLoop
			}
		}
	}
}

// MonitorConnection pings the database periodically and signals
// RetryConnection when the ping fails.
func (s *Store) MonitorConnection(ctx context.Context) {
	interval := s.cfg.MonitorInterval
	if interval <= 0 {
		interval = defaultMonitorInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.shutdownSignal:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.healthCheck(ctx); err != nil {
				select {
				case s.retryChanSignal <- err:
				default:
				}
			}
		}
	}
}

func (s *Store) healthCheck(ctx context.Context) error {
	db := s.DB()
	if db == nil {
		return errors.New("database client is not initialized")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance during health check: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed during health check: %w", err)
	}
	return nil
}

// Close stops the monitor loops and closes the connection pool.
func (s *Store) Close() error {
	s.closeShutdownOnce.Do(func() {
		close(s.shutdownSignal)
	})
	sqlDB, err := s.DB().DB()
	if err != nil {
		return nil
	}
	return sqlDB.Close()
}

func (s *Store) logInfo(msg string, fields map[string]interface{}) {
	if s.logger != nil {
		s.logger.Info(msg, nil, fields)
	}
}

func (s *Store) logError(msg string, err error, fields map[string]interface{}) {
	if s.logger != nil {
		s.logger.Error(msg, err, fields)
	}
}

func (s *Store) logWarn(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if s.logger != nil {
		s.logger.WarnWithContext(ctx, msg, err, fields)
	}
}
