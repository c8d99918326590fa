package api

import (
	"github.com/JaimeStill/pestwatch/internal/config"
	"github.com/JaimeStill/pestwatch/internal/infrastructure"
)

// Runtime is the API module's view of shared infrastructure: the same
// subsystems with a logger tagged for the module and the loaded config
// close at hand.
type Runtime struct {
	*infrastructure.Infrastructure
	Config *config.Config
}

// NewRuntime scopes infra to the API module. infra itself is left untouched
// so other modules keep their own logger attributes.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	scoped := *infra
	scoped.Logger = infra.Logger.With("module", "api", "base_path", cfg.API.BasePath)

	return &Runtime{Infrastructure: &scoped, Config: cfg}
}
