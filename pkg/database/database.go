// Package database provides PostgreSQL and SQLite connection management
// with lifecycle coordination.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/JaimeStill/pestwatch/pkg/lifecycle"
)

// System manages database connections and lifecycle coordination.
type System interface {
	// Connection returns the underlying database connection pool.
	Connection() *sql.DB
	// Driver reports the configured driver (DriverPostgres or DriverSQLite).
	Driver() string
	// Start registers startup and shutdown hooks with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
}

// Migrator brings the schema described by cfg up to date.
// It manages its own connection so the pool handed to domain systems is never closed by it.
type Migrator func(cfg *Config) error

// Option customizes a database System.
type Option func(*database)

// WithMigrator runs m after the startup ping succeeds.
func WithMigrator(m Migrator) Option {
	return func(d *database) {
		d.migrate = m
	}
}

type database struct {
	conn        *sql.DB
	cfg         *Config
	driver      string
	logger      *slog.Logger
	connTimeout time.Duration
	migrate     Migrator
}

// New creates a database system with the given configuration.
// It calls sql.Open to validate the DSN and configure pool parameters,
// but does not establish a connection until Start is called.
func New(cfg *Config, logger *slog.Logger, opts ...Option) (System, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	d := &database{
		conn:        db,
		cfg:         cfg,
		driver:      cfg.Driver,
		logger:      logger.With("system", "database", "driver", cfg.Driver),
		connTimeout: cfg.ConnTimeoutDuration(),
	}
	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// Open returns a configured *sql.DB for cfg without verifying connectivity.
func Open(cfg *Config) (*sql.DB, error) {
	name, err := driverName(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(name, cfg.Dsn())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	return db, nil
}

func (d *database) Connection() *sql.DB {
	return d.conn
}

func (d *database) Driver() string {
	return d.driver
}

func (d *database) Start(lc *lifecycle.Coordinator) error {
	d.logger.Info("starting database connection")

	lc.OnStartup(func() error {
		pingCtx, cancel := context.WithTimeout(lc.Context(), d.connTimeout)
		defer cancel()

		if err := d.conn.PingContext(pingCtx); err != nil {
			d.logger.Error("database ping failed", "error", err)
			return fmt.Errorf("database ping: %w", err)
		}

		d.logger.Info("database connection established")

		if d.migrate != nil {
			if err := d.migrate(d.cfg); err != nil {
				d.logger.Error("database migration failed", "error", err)
				return fmt.Errorf("database migrate: %w", err)
			}
			d.logger.Info("database schema up to date")
		}

		return nil
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		d.logger.Info("closing database connection")

		if err := d.conn.Close(); err != nil {
			d.logger.Error("database close failed", "error", err)
			return
		}

		d.logger.Info("database connection closed")
	})

	return nil
}

func driverName(driver string) (string, error) {
	switch driver {
	case DriverPostgres:
		return "pgx", nil
	case DriverSQLite:
		return "sqlite", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}
