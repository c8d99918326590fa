package predictions

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/JaimeStill/pestwatch/pkg/formatting"
)

// Config bounds what a submission may contain.
type Config struct {
	AllowedExtensions []string `toml:"allowed_extensions"`
	MaxUploadSize     string   `toml:"max_upload_size"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	AllowedExtensions string
	MaxUploadSize     string
}

// MaxUploadSizeBytes returns MaxUploadSize as a byte count.
func (c *Config) MaxUploadSizeBytes() int64 {
	n, _ := formatting.ParseBytes(c.MaxUploadSize)
	return n
}

// Allowed reports whether ext (with or without its leading dot) is accepted.
func (c *Config) Allowed(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	return ext != "" && slices.Contains(c.AllowedExtensions, ext)
}

// Finalize applies environment overrides, defaults, and validation.
func (c *Config) Finalize(env *Env) error {
	if env != nil {
		c.loadEnv(env)
	}
	c.loadDefaults()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if len(overlay.AllowedExtensions) > 0 {
		c.AllowedExtensions = overlay.AllowedExtensions
	}
	if overlay.MaxUploadSize != "" {
		c.MaxUploadSize = overlay.MaxUploadSize
	}
}

func (c *Config) loadDefaults() {
	if len(c.AllowedExtensions) == 0 {
		c.AllowedExtensions = []string{"png", "jpg", "jpeg"}
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "10MB"
	}
	for i, ext := range c.AllowedExtensions {
		c.AllowedExtensions[i] = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.AllowedExtensions != "" {
		if v := os.Getenv(env.AllowedExtensions); v != "" {
			c.AllowedExtensions = strings.Split(v, ",")
		}
	}
	if env.MaxUploadSize != "" {
		if v := os.Getenv(env.MaxUploadSize); v != "" {
			c.MaxUploadSize = v
		}
	}
}

func (c *Config) validate() error {
	n, err := formatting.ParseBytes(c.MaxUploadSize)
	if err != nil {
		return fmt.Errorf("invalid max_upload_size: %w", err)
	}
	if n <= 0 {
		return fmt.Errorf("max_upload_size must be positive")
	}
	if slices.Contains(c.AllowedExtensions, "") {
		return fmt.Errorf("allowed_extensions contains an empty entry")
	}
	return nil
}
