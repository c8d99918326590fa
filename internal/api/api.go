// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/pestwatch/internal/config"
	"github.com/JaimeStill/pestwatch/internal/infrastructure"
	"github.com/JaimeStill/pestwatch/pkg/middleware"
	"github.com/JaimeStill/pestwatch/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// When admin auth is enabled the OIDC issuer is discovered here, so an
// unreachable issuer fails startup.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	var admin middleware.Chain
	if cfg.API.Auth.Enabled {
		verifier, err := middleware.NewVerifier(runtime.Lifecycle.Context(), &cfg.API.Auth)
		if err != nil {
			return nil, fmt.Errorf("auth verifier: %w", err)
		}
		admin.Use(middleware.Auth(verifier, runtime.Logger))
	}

	spec, err := specJSON(cfg)
	if err != nil {
		return nil, fmt.Errorf("openapi: %w", err)
	}

	mux := http.NewServeMux()
	registerRoutes(mux, domain, runtime, admin, spec)

	m, err := module.New(cfg.API.BasePath, mux)
	if err != nil {
		return nil, err
	}
	m.Use(middleware.RequestID())
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))
	m.Use(middleware.Metrics(runtime.Metrics))

	return m, nil
}
