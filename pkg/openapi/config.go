package openapi

import (
	"fmt"
	"os"
	"strings"
)

// Config describes the generated document and where it is served.
type Config struct {
	Title       string `toml:"title"`
	Description string `toml:"description"`
	Path        string `toml:"path"`
}

// ConfigEnv names the environment variables that override Config.
type ConfigEnv struct {
	Title       string
	Description string
	Path        string
}

// Finalize applies env overrides, fills defaults and validates.
func (c *Config) Finalize(env *ConfigEnv) error {
	if env != nil {
		for dst, key := range map[*string]string{
			&c.Title:       env.Title,
			&c.Description: env.Description,
			&c.Path:        env.Path,
		} {
			if v := os.Getenv(key); key != "" && v != "" {
				*dst = v
			}
		}
	}

	if c.Title == "" {
		c.Title = "Pestwatch API"
	}
	if c.Description == "" {
		c.Description = "Crop pest image classification with reviewer approval."
	}
	if c.Path == "" {
		c.Path = "/openapi.json"
	}

	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("path must start with /: %q", c.Path)
	}
	return nil
}

// Merge overwrites non-empty fields from overlay.
func (c *Config) Merge(overlay *Config) {
	for dst, v := range map[*string]string{
		&c.Title:       overlay.Title,
		&c.Description: overlay.Description,
		&c.Path:        overlay.Path,
	} {
		if v != "" {
			*dst = v
		}
	}
}
