package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/pestwatch/internal/config"
	"github.com/JaimeStill/pestwatch/pkg/database"
	"github.com/JaimeStill/pestwatch/pkg/storage"
)

const baseConfig = `
shutdown_timeout = "20s"
log_level = "debug"

[server]
port = 8080

[database]
driver = "sqlite"
path = "pestwatch.db"
auto_migrate = true

[storage]
type = "local"
relocate_on_review = true

[storage.local]
root = "data/artifacts"

[api.pagination]
default_page_size = 25
max_page_size = 50

[predictor]
type = "http"
timeout = "15s"

[predictor.http]
url = "http://model:8501/predict"

[location]
provider_timeout = "2s"

[[location.providers]]
name = "ipinfo"

[[location.providers]]
name = "ipapi"

[notify]
urls = ["logger://"]

[metrics]
enabled = true

[predictions]
allowed_extensions = ["png", "jpg"]
max_upload_size = "5MB"
`

const overlayConfig = `
[server]
port = 9090

[predictor]
timeout = "45s"
`

func chdir(t *testing.T, files map[string]string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	t.Chdir(dir)
}

func TestLoad(t *testing.T) {
	chdir(t, map[string]string{config.BaseConfigFile: baseConfig})

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 20*time.Second, cfg.ShutdownTimeoutDuration())
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, database.DriverSQLite, cfg.Database.Driver)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, storage.TypeLocal, cfg.Storage.Type)
	assert.True(t, cfg.Storage.RelocateOnReview)
	assert.Equal(t, "data/artifacts", cfg.Storage.Local.Root)
	assert.Equal(t, "/api", cfg.API.BasePath)
	assert.Equal(t, 25, cfg.API.Pagination.DefaultPageSize)
	assert.Equal(t, "Pestwatch API", cfg.API.OpenAPI.Title)
	assert.False(t, cfg.API.Auth.Enabled)
	assert.Equal(t, 15*time.Second, cfg.Predictor.TimeoutDuration())
	assert.Equal(t, "http://model:8501/predict", cfg.Predictor.HTTP.URL)
	assert.Equal(t, 2*time.Second, cfg.Location.ProviderTimeoutDuration())
	require.Len(t, cfg.Location.Providers, 2)
	assert.Equal(t, "ipinfo", cfg.Location.Providers[0].Name)
	assert.Equal(t, []string{"logger://"}, cfg.Notify.URLs)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, []string{"png", "jpg"}, cfg.Predictions.AllowedExtensions)
	assert.Equal(t, int64(5<<20), cfg.Predictions.MaxUploadSizeBytes())
}

func TestLoadOverlay(t *testing.T) {
	chdir(t, map[string]string{
		config.BaseConfigFile:   baseConfig,
		"config.staging.toml": overlayConfig,
	})
	t.Setenv(config.EnvPestwatchEnv, "staging")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Env())
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 45*time.Second, cfg.Predictor.TimeoutDuration())
	assert.Equal(t, database.DriverSQLite, cfg.Database.Driver)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdir(t, map[string]string{config.BaseConfigFile: baseConfig})
	t.Setenv("PESTWATCH_SERVER_PORT", "7070")
	t.Setenv("PESTWATCH_DB_PATH", "override.db")
	t.Setenv("PESTWATCH_STORAGE_LOCAL_ROOT", "/srv/artifacts")
	t.Setenv("PESTWATCH_PREDICTOR_HTTP_URL", "http://other:9000/predict")
	t.Setenv("PESTWATCH_LOCATION_ENABLED", "false")
	t.Setenv("PESTWATCH_PREDICTIONS_MAX_UPLOAD_SIZE", "1MB")
	t.Setenv(config.EnvPestwatchLogLevel, "warn")
	t.Setenv(config.EnvAPIBasePath, "/v1")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "override.db", cfg.Database.Path)
	assert.Equal(t, "/srv/artifacts", cfg.Storage.Local.Root)
	assert.Equal(t, "http://other:9000/predict", cfg.Predictor.HTTP.URL)
	assert.False(t, cfg.Location.IsEnabled())
	assert.Equal(t, int64(1<<20), cfg.Predictions.MaxUploadSizeBytes())
	assert.Equal(t, slog.LevelWarn, cfg.Level())
	assert.Equal(t, "/v1", cfg.API.BasePath)
}

func TestLoadWithoutFile(t *testing.T) {
	chdir(t, nil)
	t.Setenv("PESTWATCH_DB_DRIVER", "sqlite")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeoutDuration())
	assert.Equal(t, slog.LevelInfo, cfg.Level())
	assert.Equal(t, "pestwatch.db", cfg.Database.Path)
	assert.Equal(t, "http", cfg.Predictor.Type)
	assert.True(t, cfg.Location.IsEnabled())
	assert.Len(t, cfg.Location.Providers, 3)
	assert.Equal(t, []string{"png", "jpg", "jpeg"}, cfg.Predictions.AllowedExtensions)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		toml string
		env  map[string]string
	}{
		{"bad toml", "server = [", nil},
		{"bad log level", `log_level = "loud"`, map[string]string{"PESTWATCH_DB_DRIVER": "sqlite"}},
		{"postgres without name", `[database]` + "\n" + `driver = "postgres"`, nil},
		{"bad predictor", "[predictor]\ntype = \"magic\"", map[string]string{"PESTWATCH_DB_DRIVER": "sqlite"}},
		{"auth without issuer", "[api.auth]\nenabled = true", map[string]string{"PESTWATCH_DB_DRIVER": "sqlite"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, map[string]string{config.BaseConfigFile: tt.toml})
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}
