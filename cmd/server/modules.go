package main

import (
	"net/http"

	"github.com/JaimeStill/pestwatch/internal/api"
	"github.com/JaimeStill/pestwatch/internal/config"
	"github.com/JaimeStill/pestwatch/internal/infrastructure"
	"github.com/JaimeStill/pestwatch/pkg/handlers"
	"github.com/JaimeStill/pestwatch/pkg/module"
)

// Modules holds every mountable module of the service.
type Modules struct {
	API *module.Module
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Modules{
		API: apiModule,
	}, nil
}

func (m *Modules) Mount(router *module.Router) error {
	return router.Mount(m.API)
}

func buildRouter(infra *infrastructure.Infrastructure, cfg *config.Config) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"message": "Pest classification service is running",
		})
	})

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if !infra.Lifecycle.Ready() {
			body := map[string]string{"status": "not ready"}
			if err := infra.Lifecycle.Err(); err != nil {
				body["error"] = err.Error()
			}
			handlers.RespondJSON(w, http.StatusServiceUnavailable, body)
			return
		}
		handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	if cfg.Metrics.Enabled {
		router.HandleNative("GET "+cfg.Metrics.Path, infra.Metrics.Handler().ServeHTTP)
	}

	return router
}
