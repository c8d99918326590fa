package api

import (
	"net/http"

	"github.com/JaimeStill/pestwatch/pkg/middleware"
	"github.com/JaimeStill/pestwatch/pkg/openapi"
	"github.com/JaimeStill/pestwatch/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	runtime *Runtime,
	admin middleware.Chain,
	spec []byte,
) {
	cfg := runtime.Config
	recordsHandler := domain.Records.Handler()
	predictionsHandler := domain.Predictions.Handler()
	storageHandler := newStorageHandler(runtime.Storage, runtime.Logger, cfg.Storage.MaxListSize)

	patterns := routes.Register(
		mux,
		predictionsHandler.Routes(),
		recordsHandler.Routes(),
		routes.Group{
			Prefix:     "/admin",
			Middleware: admin,
			Children: []routes.Group{
				predictionsHandler.AdminRoutes(),
				recordsHandler.AdminRoutes(),
				storageHandler.routes(),
			},
		},
		routes.Group{
			Routes: []routes.Route{
				{Method: "GET", Pattern: cfg.API.OpenAPI.Path, Handler: openapi.ServeSpec(spec)},
			},
		},
	)

	runtime.Logger.Debug("routes registered", "count", len(patterns), "patterns", patterns)
}
