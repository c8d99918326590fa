// Package config loads the service configuration from config.toml, an optional
// environment overlay, and PESTWATCH_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/pestwatch/internal/location"
	"github.com/JaimeStill/pestwatch/internal/metrics"
	"github.com/JaimeStill/pestwatch/internal/notify"
	"github.com/JaimeStill/pestwatch/internal/predictions"
	"github.com/JaimeStill/pestwatch/internal/predictor"
	"github.com/JaimeStill/pestwatch/pkg/database"
	"github.com/JaimeStill/pestwatch/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvPestwatchEnv             = "PESTWATCH_ENV"
	EnvPestwatchShutdownTimeout = "PESTWATCH_SHUTDOWN_TIMEOUT"
	EnvPestwatchVersion         = "PESTWATCH_VERSION"
	EnvPestwatchLogLevel        = "PESTWATCH_LOG_LEVEL"
)

var databaseEnv = &database.Env{
	Driver:          "PESTWATCH_DB_DRIVER",
	Host:            "PESTWATCH_DB_HOST",
	Port:            "PESTWATCH_DB_PORT",
	Name:            "PESTWATCH_DB_NAME",
	User:            "PESTWATCH_DB_USER",
	Password:        "PESTWATCH_DB_PASSWORD",
	SSLMode:         "PESTWATCH_DB_SSL_MODE",
	Path:            "PESTWATCH_DB_PATH",
	AutoMigrate:     "PESTWATCH_DB_AUTO_MIGRATE",
	MaxOpenConns:    "PESTWATCH_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "PESTWATCH_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "PESTWATCH_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "PESTWATCH_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Type:             "PESTWATCH_STORAGE_TYPE",
	RelocateOnReview: "PESTWATCH_STORAGE_RELOCATE_ON_REVIEW",
	MaxListSize:      "PESTWATCH_STORAGE_MAX_LIST_SIZE",
	LocalRoot:        "PESTWATCH_STORAGE_LOCAL_ROOT",
	ContainerName:    "PESTWATCH_STORAGE_CONTAINER_NAME",
	ConnectionString: "PESTWATCH_STORAGE_CONNECTION_STRING",
	AccountURL:       "PESTWATCH_STORAGE_ACCOUNT_URL",
	S3Endpoint:       "PESTWATCH_STORAGE_S3_ENDPOINT",
	S3Bucket:         "PESTWATCH_STORAGE_S3_BUCKET",
	S3AccessKey:      "PESTWATCH_STORAGE_S3_ACCESS_KEY",
	S3SecretKey:      "PESTWATCH_STORAGE_S3_SECRET_KEY",
	S3Region:         "PESTWATCH_STORAGE_S3_REGION",
	S3UseSSL:         "PESTWATCH_STORAGE_S3_USE_SSL",
}

var predictorEnv = &predictor.Env{
	Type:          "PESTWATCH_PREDICTOR_TYPE",
	Timeout:       "PESTWATCH_PREDICTOR_TIMEOUT",
	HTTPURL:       "PESTWATCH_PREDICTOR_HTTP_URL",
	HTTPToken:     "PESTWATCH_PREDICTOR_HTTP_TOKEN",
	ONNXModelPath: "PESTWATCH_PREDICTOR_ONNX_MODEL_PATH",
	ONNXLibrary:   "PESTWATCH_PREDICTOR_ONNX_LIBRARY_PATH",
}

var locationEnv = &location.Env{
	Enabled:         "PESTWATCH_LOCATION_ENABLED",
	ProviderTimeout: "PESTWATCH_LOCATION_PROVIDER_TIMEOUT",
	CacheTTL:        "PESTWATCH_LOCATION_CACHE_TTL",
	RateLimit:       "PESTWATCH_LOCATION_RATE_LIMIT",
}

var notifyEnv = &notify.Env{
	URLs:    "PESTWATCH_NOTIFY_URLS",
	Title:   "PESTWATCH_NOTIFY_TITLE",
	Timeout: "PESTWATCH_NOTIFY_TIMEOUT",
}

var metricsEnv = &metrics.Env{
	Enabled: "PESTWATCH_METRICS_ENABLED",
	Path:    "PESTWATCH_METRICS_PATH",
}

var predictionsEnv = &predictions.Env{
	AllowedExtensions: "PESTWATCH_PREDICTIONS_ALLOWED_EXTENSIONS",
	MaxUploadSize:     "PESTWATCH_PREDICTIONS_MAX_UPLOAD_SIZE",
}

// Config is the root configuration for the Pestwatch service.
type Config struct {
	Server          ServerConfig       `toml:"server"`
	Database        database.Config    `toml:"database"`
	Storage         storage.Config     `toml:"storage"`
	API             APIConfig          `toml:"api"`
	Predictor       predictor.Config   `toml:"predictor"`
	Location        location.Config    `toml:"location"`
	Notify          notify.Config      `toml:"notify"`
	Metrics         metrics.Config     `toml:"metrics"`
	Predictions     predictions.Config `toml:"predictions"`
	ShutdownTimeout string             `toml:"shutdown_timeout"`
	Version         string             `toml:"version"`
	LogLevel        string             `toml:"log_level"`
}

// Env returns the PESTWATCH_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvPestwatchEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return duration(c.ShutdownTimeout)
}

// Level returns LogLevel as a slog.Level.
func (c *Config) Level() slog.Level {
	var level slog.Level
	level.UnmarshalText([]byte(c.LogLevel))
	return level
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	mergeString(&c.ShutdownTimeout, overlay.ShutdownTimeout)
	mergeString(&c.Version, overlay.Version)
	mergeString(&c.LogLevel, overlay.LogLevel)
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Predictor.Merge(&overlay.Predictor)
	c.Location.Merge(&overlay.Location)
	c.Notify.Merge(&overlay.Notify)
	c.Metrics.Merge(&overlay.Metrics)
	c.Predictions.Merge(&overlay.Predictions)
}

// Finalize applies defaults, PESTWATCH_* overrides, and validation to every sub-config.
func (c *Config) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Predictor.Finalize(predictorEnv); err != nil {
		return fmt.Errorf("predictor: %w", err)
	}
	if err := c.Location.Finalize(locationEnv); err != nil {
		return fmt.Errorf("location: %w", err)
	}
	if err := c.Notify.Finalize(notifyEnv); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	if err := c.Metrics.Finalize(metricsEnv); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if err := c.Predictions.Finalize(predictionsEnv); err != nil {
		return fmt.Errorf("predictions: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	defaultString(&c.ShutdownTimeout, "30s")
	defaultString(&c.Version, "0.1.0")
	defaultString(&c.LogLevel, "info")
}

func (c *Config) loadEnv() {
	envString(EnvPestwatchShutdownTimeout, &c.ShutdownTimeout)
	envString(EnvPestwatchVersion, &c.Version)
	envString(EnvPestwatchLogLevel, &c.LogLevel)
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvPestwatchEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
