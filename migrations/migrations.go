// Package migrations embeds the versioned schema for each supported database
// driver and applies it with golang-migrate.
package migrations

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/JaimeStill/pestwatch/pkg/database"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Up applies all pending migrations for cfg.Driver.
// It opens a dedicated connection that is closed before returning.
func Up(cfg *database.Config) error {
	m, err := New(cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// New builds a migrator over a dedicated connection for cfg.
// Callers own the returned instance and must Close it.
func New(cfg *database.Config) (*migrate.Migrate, error) {
	src, err := iofs.New(files, cfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("load %s migrations: %w", cfg.Driver, err)
	}

	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}

	var drv migratedb.Driver
	switch cfg.Driver {
	case database.DriverPostgres:
		drv, err = pgx.WithInstance(db, &pgx.Config{})
	case database.DriverSQLite:
		drv, err = sqlite.WithInstance(db, &sqlite.Config{})
	default:
		err = fmt.Errorf("%w: %q", database.ErrUnsupportedDriver, cfg.Driver)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, cfg.Driver, drv)
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}
