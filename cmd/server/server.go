package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JaimeStill/pestwatch/internal/config"
	"github.com/JaimeStill/pestwatch/internal/infrastructure"
)

// Server owns the shared infrastructure and the HTTP listener in front of it.
type Server struct {
	infra  *infrastructure.Infrastructure
	http   *httpServer
	logger *slog.Logger
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra, cfg)
	if err := modules.Mount(router); err != nil {
		return nil, fmt.Errorf("mount modules: %w", err)
	}

	infra.Logger.Info(
		"pestwatch initialized",
		"version", cfg.Version,
		"env", cfg.Env(),
		"addr", cfg.Server.Addr(),
		"predictor", cfg.Predictor.Type,
		"storage", cfg.Storage.Type,
		"database", cfg.Database.Driver,
		"modules", router.Prefixes(),
	)

	return &Server{
		infra:  infra,
		http:   newHTTPServer(&cfg.Server, router, infra.Logger),
		logger: infra.Logger,
	}, nil
}

// Run starts every subsystem and blocks until ctx is cancelled, then drains
// within timeout. A failed startup hook leaves the service running but not
// ready so that /readyz can report the cause.
func (s *Server) Run(ctx context.Context, timeout time.Duration) error {
	if err := s.infra.Start(); err != nil {
		return fmt.Errorf("start infrastructure: %w", err)
	}
	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		_ = s.infra.Lifecycle.Shutdown(timeout)
		return err
	}

	go func() {
		if err := s.infra.Lifecycle.WaitForStartup(); err != nil {
			s.logger.Error("startup failed", "error", err)
			return
		}
		s.logger.Info("all subsystems ready")
	}()

	<-ctx.Done()
	s.logger.Info("shutdown requested", "timeout", timeout)

	if err := s.infra.Lifecycle.Shutdown(timeout); err != nil {
		return err
	}
	s.logger.Info("pestwatch stopped")
	return nil
}
