// Package infrastructure provides core service initialization for application startup.
// It assembles the long-lived handles (logging, database, storage, model,
// geolocation, notification, metrics) that domain systems receive by constructor.
package infrastructure

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/JaimeStill/pestwatch/internal/config"
	"github.com/JaimeStill/pestwatch/internal/location"
	"github.com/JaimeStill/pestwatch/internal/metrics"
	"github.com/JaimeStill/pestwatch/internal/notify"
	"github.com/JaimeStill/pestwatch/internal/predictor"
	"github.com/JaimeStill/pestwatch/migrations"
	"github.com/JaimeStill/pestwatch/pkg/database"
	"github.com/JaimeStill/pestwatch/pkg/lifecycle"
	"github.com/JaimeStill/pestwatch/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	Predictor predictor.Predictor
	Locator   location.Locator
	Notifier  notify.Notifier
	Metrics   *metrics.Metrics
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))

	m, err := metrics.New()
	if err != nil {
		return nil, fmt.Errorf("metrics init failed: %w", err)
	}

	var dbOpts []database.Option
	if cfg.Database.AutoMigrate {
		dbOpts = append(dbOpts, database.WithMigrator(migrations.Up))
	}
	db, err := database.New(&cfg.Database, logger, dbOpts...)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	pred, err := predictor.New(&cfg.Predictor, logger)
	if err != nil {
		return nil, fmt.Errorf("predictor init failed: %w", err)
	}

	locator, err := location.New(&cfg.Location, logger, m)
	if err != nil {
		return nil, fmt.Errorf("location init failed: %w", err)
	}

	notifier, err := notify.New(&cfg.Notify, logger)
	if err != nil {
		return nil, fmt.Errorf("notify init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Storage:   store,
		Predictor: pred,
		Locator:   locator,
		Notifier:  notifier,
		Metrics:   m,
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
// A predictor holding native resources is released on shutdown.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}

	if closer, ok := i.Predictor.(io.Closer); ok {
		i.Lifecycle.OnShutdown(func() {
			<-i.Lifecycle.Context().Done()
			if err := closer.Close(); err != nil {
				i.Logger.Error("predictor close failed", "error", err)
				return
			}
			i.Logger.Info("predictor released")
		})
	}
	return nil
}
