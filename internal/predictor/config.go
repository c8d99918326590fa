package predictor

import (
	"fmt"
	"os"
	"time"
)

// Supported values for Config.Type.
const (
	TypeHTTP = "http"
	TypeONNX = "onnx"
)

// Supported values for ONNXConfig.Preprocess.
const (
	PreprocessCaffe = "caffe"
	PreprocessUnit  = "unit"
)

// Config selects and configures the model backend.
type Config struct {
	Type    string     `toml:"type"`
	Timeout string     `toml:"timeout"`
	HTTP    HTTPConfig `toml:"http"`
	ONNX    ONNXConfig `toml:"onnx"`
}

// HTTPConfig configures a remote model service.
type HTTPConfig struct {
	URL        string `toml:"url"`
	Token      string `toml:"token"`
	MaxRetries int    `toml:"max_retries"`
	Backoff    string `toml:"backoff"`
}

// ONNXConfig configures in-process inference with ONNX Runtime.
// ChannelOrder is the order of colour channels in the input tensor ("rgb" or "bgr").
type ONNXConfig struct {
	ModelPath    string `toml:"model_path"`
	LibraryPath  string `toml:"library_path"`
	InputSize    int    `toml:"input_size"`
	Preprocess   string `toml:"preprocess"`
	ChannelOrder string `toml:"channel_order"`
	Threads      int    `toml:"threads"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Type          string
	Timeout       string
	HTTPURL       string
	HTTPToken     string
	ONNXModelPath string
	ONNXLibrary   string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// BackoffDuration returns the base retry delay as a time.Duration.
func (c *HTTPConfig) BackoffDuration() time.Duration {
	d, _ := time.ParseDuration(c.Backoff)
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
	if overlay.Type != "" {
		c.Type = overlay.Type
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.HTTP.URL != "" {
		c.HTTP.URL = overlay.HTTP.URL
	}
	if overlay.HTTP.Token != "" {
		c.HTTP.Token = overlay.HTTP.Token
	}
	if overlay.HTTP.MaxRetries != 0 {
		c.HTTP.MaxRetries = overlay.HTTP.MaxRetries
	}
	if overlay.HTTP.Backoff != "" {
		c.HTTP.Backoff = overlay.HTTP.Backoff
	}
	if overlay.ONNX.ModelPath != "" {
		c.ONNX.ModelPath = overlay.ONNX.ModelPath
	}
	if overlay.ONNX.LibraryPath != "" {
		c.ONNX.LibraryPath = overlay.ONNX.LibraryPath
	}
	if overlay.ONNX.InputSize != 0 {
		c.ONNX.InputSize = overlay.ONNX.InputSize
	}
	if overlay.ONNX.Preprocess != "" {
		c.ONNX.Preprocess = overlay.ONNX.Preprocess
	}
	if overlay.ONNX.ChannelOrder != "" {
		c.ONNX.ChannelOrder = overlay.ONNX.ChannelOrder
	}
	if overlay.ONNX.Threads != 0 {
		c.ONNX.Threads = overlay.ONNX.Threads
	}
}

func (c *Config) loadDefaults() {
	if c.Type == "" {
		c.Type = TypeHTTP
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
	if c.HTTP.URL == "" {
		c.HTTP.URL = "http://localhost:8501/predict"
	}
	if c.HTTP.MaxRetries == 0 {
		c.HTTP.MaxRetries = 3
	}
	if c.HTTP.Backoff == "" {
		c.HTTP.Backoff = "1s"
	}
	if c.ONNX.InputSize == 0 {
		c.ONNX.InputSize = 100
	}
	if c.ONNX.Preprocess == "" {
		c.ONNX.Preprocess = PreprocessCaffe
	}
	if c.ONNX.ChannelOrder == "" {
		c.ONNX.ChannelOrder = "rgb"
	}
	if c.ONNX.Threads == 0 {
		c.ONNX.Threads = 4
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Type != "" {
		if v := os.Getenv(env.Type); v != "" {
			c.Type = v
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
	if env.HTTPURL != "" {
		if v := os.Getenv(env.HTTPURL); v != "" {
			c.HTTP.URL = v
		}
	}
	if env.HTTPToken != "" {
		if v := os.Getenv(env.HTTPToken); v != "" {
			c.HTTP.Token = v
		}
	}
	if env.ONNXModelPath != "" {
		if v := os.Getenv(env.ONNXModelPath); v != "" {
			c.ONNX.ModelPath = v
		}
	}
	if env.ONNXLibrary != "" {
		if v := os.Getenv(env.ONNXLibrary); v != "" {
			c.ONNX.LibraryPath = v
		}
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}

	switch c.Type {
	case TypeHTTP:
		if _, err := time.ParseDuration(c.HTTP.Backoff); err != nil {
			return fmt.Errorf("invalid http.backoff: %w", err)
		}
		if c.HTTP.MaxRetries < 0 {
			return fmt.Errorf("http.max_retries must not be negative")
		}
	case TypeONNX:
		if c.ONNX.ModelPath == "" {
			return fmt.Errorf("onnx.model_path required")
		}
		if c.ONNX.Preprocess != PreprocessCaffe && c.ONNX.Preprocess != PreprocessUnit {
			return fmt.Errorf("unsupported onnx.preprocess: %q", c.ONNX.Preprocess)
		}
		if c.ONNX.ChannelOrder != "rgb" && c.ONNX.ChannelOrder != "bgr" {
			return fmt.Errorf("unsupported onnx.channel_order: %q", c.ONNX.ChannelOrder)
		}
		if c.ONNX.InputSize < 1 {
			return fmt.Errorf("onnx.input_size must be positive")
		}
	default:
		return fmt.Errorf("unsupported type: %q", c.Type)
	}
	return nil
}

