package storage

import (
	"fmt"
	"os"
	"strconv"
)

// Config selects and configures the storage backend.
type Config struct {
	Type             string      `toml:"type"`
	RelocateOnReview bool        `toml:"relocate_on_review"`
	MaxListSize      int         `toml:"max_list_size"`
	Local            LocalConfig `toml:"local"`
	Azure            AzureConfig `toml:"azure"`
	S3               S3Config    `toml:"s3"`
}

// LocalConfig holds filesystem backend settings.
type LocalConfig struct {
	Root string `toml:"root"`
}

// AzureConfig holds Azure Blob Storage settings.
// ConnectionString takes precedence over AccountURL with the default credential chain.
type AzureConfig struct {
	ContainerName    string `toml:"container_name"`
	ConnectionString string `toml:"connection_string"`
	AccountURL       string `toml:"account_url"`
	MaxRetries       int    `toml:"max_retries"`
}

// S3Config holds S3-compatible object storage settings.
type S3Config struct {
	Endpoint  string `toml:"endpoint"`
	Bucket    string `toml:"bucket"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Region    string `toml:"region"`
	UseSSL    bool   `toml:"use_ssl"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Type             string
	RelocateOnReview string
	MaxListSize      string
	LocalRoot        string
	ContainerName    string
	ConnectionString string
	AccountURL       string
	S3Endpoint       string
	S3Bucket         string
	S3AccessKey      string
	S3SecretKey      string
	S3Region         string
	S3UseSSL         string
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
	if overlay.Type != "" {
		c.Type = overlay.Type
	}
	if overlay.RelocateOnReview {
		c.RelocateOnReview = true
	}
	if overlay.MaxListSize != 0 {
		c.MaxListSize = overlay.MaxListSize
	}
	if overlay.Local.Root != "" {
		c.Local.Root = overlay.Local.Root
	}
	if overlay.Azure.ContainerName != "" {
		c.Azure.ContainerName = overlay.Azure.ContainerName
	}
	if overlay.Azure.ConnectionString != "" {
		c.Azure.ConnectionString = overlay.Azure.ConnectionString
	}
	if overlay.Azure.AccountURL != "" {
		c.Azure.AccountURL = overlay.Azure.AccountURL
	}
	if overlay.Azure.MaxRetries != 0 {
		c.Azure.MaxRetries = overlay.Azure.MaxRetries
	}
	if overlay.S3.Endpoint != "" {
		c.S3.Endpoint = overlay.S3.Endpoint
	}
	if overlay.S3.Bucket != "" {
		c.S3.Bucket = overlay.S3.Bucket
	}
	if overlay.S3.AccessKey != "" {
		c.S3.AccessKey = overlay.S3.AccessKey
	}
	if overlay.S3.SecretKey != "" {
		c.S3.SecretKey = overlay.S3.SecretKey
	}
	if overlay.S3.Region != "" {
		c.S3.Region = overlay.S3.Region
	}
	if overlay.S3.UseSSL {
		c.S3.UseSSL = true
	}
}

func (c *Config) loadDefaults() {
	if c.Type == "" {
		c.Type = TypeLocal
	}
	if c.MaxListSize <= 0 {
		c.MaxListSize = 100
	}
	if c.Local.Root == "" {
		c.Local.Root = "data/artifacts"
	}
	if c.Azure.ContainerName == "" {
		c.Azure.ContainerName = "artifacts"
	}
	if c.Azure.MaxRetries == 0 {
		c.Azure.MaxRetries = 3
	}
}

func (c *Config) loadEnv(env *Env) {
	str := func(name string, dst *string) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	str(env.Type, &c.Type)
	boolean(env.RelocateOnReview, &c.RelocateOnReview)
	if env.MaxListSize != "" {
		if v := os.Getenv(env.MaxListSize); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.MaxListSize = n
			}
		}
	}
	str(env.LocalRoot, &c.Local.Root)
	str(env.ContainerName, &c.Azure.ContainerName)
	str(env.ConnectionString, &c.Azure.ConnectionString)
	str(env.AccountURL, &c.Azure.AccountURL)
	str(env.S3Endpoint, &c.S3.Endpoint)
	str(env.S3Bucket, &c.S3.Bucket)
	str(env.S3AccessKey, &c.S3.AccessKey)
	str(env.S3SecretKey, &c.S3.SecretKey)
	str(env.S3Region, &c.S3.Region)
	boolean(env.S3UseSSL, &c.S3.UseSSL)
}

func (c *Config) validate() error {
	switch c.Type {
	case TypeLocal:
		if c.Local.Root == "" {
			return fmt.Errorf("local.root required")
		}
	case TypeAzure:
		if c.Azure.ContainerName == "" {
			return fmt.Errorf("azure.container_name required")
		}
		if c.Azure.ConnectionString == "" && c.Azure.AccountURL == "" {
			return fmt.Errorf("azure.connection_string or azure.account_url required")
		}
	case TypeS3:
		if c.S3.Endpoint == "" {
			return fmt.Errorf("s3.endpoint required")
		}
		if c.S3.Bucket == "" {
			return fmt.Errorf("s3.bucket required")
		}
		if c.S3.AccessKey == "" || c.S3.SecretKey == "" {
			return fmt.Errorf("s3.access_key and s3.secret_key required")
		}
	default:
		return fmt.Errorf("unsupported type: %q", c.Type)
	}
	return nil
}
