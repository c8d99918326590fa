package location

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// ProviderConfig names one provider and the endpoint it queries.
type ProviderConfig struct {
	Name string `toml:"name"`
	URL  string `toml:"url"`
}

// Config controls the provider chain. Providers are tried in listed order.
type Config struct {
	Enabled         *bool            `toml:"enabled"`
	ProviderTimeout string           `toml:"provider_timeout"`
	CacheTTL        string           `toml:"cache_ttl"`
	RateLimit       float64          `toml:"rate_limit"`
	Providers       []ProviderConfig `toml:"providers"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Enabled         string
	ProviderTimeout string
	CacheTTL        string
	RateLimit       string
}

// IsEnabled reports whether location enrichment runs. It defaults to true.
func (c *Config) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// ProviderTimeoutDuration returns ProviderTimeout as a time.Duration.
func (c *Config) ProviderTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ProviderTimeout)
	return d
}

// CacheTTLDuration returns CacheTTL as a time.Duration.
func (c *Config) CacheTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.CacheTTL)
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

// Merge overwrites non-zero fields from overlay. A non-empty provider list
// replaces the base list.
func (c *Config) Merge(overlay *Config) {
	if overlay.Enabled != nil {
		c.Enabled = overlay.Enabled
	}
	if overlay.ProviderTimeout != "" {
		c.ProviderTimeout = overlay.ProviderTimeout
	}
	if overlay.CacheTTL != "" {
		c.CacheTTL = overlay.CacheTTL
	}
	if overlay.RateLimit != 0 {
		c.RateLimit = overlay.RateLimit
	}
	if len(overlay.Providers) > 0 {
		c.Providers = overlay.Providers
	}
}

// New builds the configured Locator. A disabled config yields a Resolver
// with no providers, which always resolves to an empty Info.
func New(cfg *Config, logger *slog.Logger, observer Observer) (Locator, error) {
	resolver := NewResolver(cfg.ProviderTimeoutDuration(), logger)
	if observer != nil {
		resolver.WithObserver(observer)
	}

	if !cfg.IsEnabled() {
		return resolver, nil
	}

	for _, pc := range cfg.Providers {
		p, err := NewProvider(pc.Name, pc.URL, cfg.RateLimit)
		if err != nil {
			return nil, err
		}
		resolver.Append(p)
	}

	if ttl := cfg.CacheTTLDuration(); ttl > 0 {
		return NewCached(resolver, ttl), nil
	}
	return resolver, nil
}

func defaultURL(name string) string {
	switch name {
	case ProviderIPAPI:
		return DefaultIPAPIURL
	case ProviderFreeGeoIP:
		return DefaultFreeGeoIPURL
	case ProviderIPInfo:
		return DefaultIPInfoURL
	default:
		return ""
	}
}

func (c *Config) loadDefaults() {
	if c.ProviderTimeout == "" {
		c.ProviderTimeout = "3s"
	}
	if c.CacheTTL == "" {
		c.CacheTTL = "10m"
	}
	if c.RateLimit == 0 {
		c.RateLimit = 1
	}
	if len(c.Providers) == 0 {
		c.Providers = []ProviderConfig{
			{Name: ProviderIPAPI},
			{Name: ProviderFreeGeoIP},
			{Name: ProviderIPInfo},
		}
	}
	for i := range c.Providers {
		if c.Providers[i].URL == "" {
			c.Providers[i].URL = defaultURL(c.Providers[i].Name)
		}
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Enabled != "" {
		if v := os.Getenv(env.Enabled); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Enabled = &b
			}
		}
	}
	if env.ProviderTimeout != "" {
		if v := os.Getenv(env.ProviderTimeout); v != "" {
			c.ProviderTimeout = v
		}
	}
	if env.CacheTTL != "" {
		if v := os.Getenv(env.CacheTTL); v != "" {
			c.CacheTTL = v
		}
	}
	if env.RateLimit != "" {
		if v := os.Getenv(env.RateLimit); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.RateLimit = f
			}
		}
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ProviderTimeout); err != nil {
		return fmt.Errorf("invalid provider_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.CacheTTL); err != nil {
		return fmt.Errorf("invalid cache_ttl: %w", err)
	}
	for _, p := range c.Providers {
		if defaultURL(p.Name) == "" {
			return fmt.Errorf("%w: %q", ErrUnknownProvider, p.Name)
		}
	}
	return nil
}
