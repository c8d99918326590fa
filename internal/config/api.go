package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/pestwatch/pkg/middleware"
	"github.com/JaimeStill/pestwatch/pkg/openapi"
	"github.com/JaimeStill/pestwatch/pkg/pagination"
)

const EnvAPIBasePath = "PESTWATCH_API_BASE_PATH"

var corsEnv = &middleware.CORSEnv{
	Enabled:          "PESTWATCH_CORS_ENABLED",
	Origins:          "PESTWATCH_CORS_ORIGINS",
	AllowedMethods:   "PESTWATCH_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "PESTWATCH_CORS_ALLOWED_HEADERS",
	AllowCredentials: "PESTWATCH_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "PESTWATCH_CORS_MAX_AGE",
}

var paginationEnv = &pagination.Env{
	DefaultPageSize: "PESTWATCH_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "PESTWATCH_PAGINATION_MAX_PAGE_SIZE",
}

var openapiEnv = &openapi.ConfigEnv{
	Title:       "PESTWATCH_OPENAPI_TITLE",
	Description: "PESTWATCH_OPENAPI_DESCRIPTION",
	Path:        "PESTWATCH_OPENAPI_PATH",
}

var authEnv = &middleware.AuthEnv{
	Enabled:  "PESTWATCH_AUTH_ENABLED",
	Issuer:   "PESTWATCH_AUTH_ISSUER",
	ClientID: "PESTWATCH_AUTH_CLIENT_ID",
}

// APIConfig holds API routing, CORS, pagination, OpenAPI, and admin auth settings.
type APIConfig struct {
	BasePath   string                `toml:"base_path"`
	CORS       middleware.CORSConfig `toml:"cors"`
	Pagination pagination.Config     `toml:"pagination"`
	OpenAPI    openapi.Config        `toml:"openapi"`
	Auth       middleware.AuthConfig `toml:"auth"`
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.OpenAPI.Finalize(openapiEnv); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	if err := c.Auth.Finalize(authEnv); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
	c.OpenAPI.Merge(&overlay.OpenAPI)
	c.Auth.Merge(&overlay.Auth)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv(EnvAPIBasePath); v != "" {
		c.BasePath = v
	}
}
