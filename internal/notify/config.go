package notify

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config lists shoutrrr service URLs in addition to the always-on log notifier.
type Config struct {
	URLs    []string `toml:"urls"`
	Title   string   `toml:"title"`
	Timeout string   `toml:"timeout"`
}

// Env maps config fields to environment variable names for override injection.
// URLs is read as a comma-separated list.
type Env struct {
	URLs    string
	Title   string
	Timeout string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Finalize applies environment variable overrides, defaults, and validation.
func (c *Config) Finalize(env *Env) error {
	if env != nil {
		c.loadEnv(env)
	}
	c.loadDefaults()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if len(overlay.URLs) > 0 {
		c.URLs = overlay.URLs
	}
	if overlay.Title != "" {
		c.Title = overlay.Title
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}

func (c *Config) loadDefaults() {
	if c.Title == "" {
		c.Title = "Pestwatch"
	}
	if c.Timeout == "" {
		c.Timeout = "10s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.URLs != "" {
		if v := os.Getenv(env.URLs); v != "" {
			var urls []string
			for u := range strings.SplitSeq(v, ",") {
				if u = strings.TrimSpace(u); u != "" {
					urls = append(urls, u)
				}
			}
			c.URLs = urls
		}
	}
	if env.Title != "" {
		if v := os.Getenv(env.Title); v != "" {
			c.Title = v
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	return nil
}
