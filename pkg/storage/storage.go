// Package storage provides artifact byte storage behind a single System
// interface with local filesystem, Azure Blob Storage, and S3-compatible backends.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JaimeStill/pestwatch/pkg/lifecycle"
)

// Supported values for Config.Type.
const (
	TypeLocal = "local"
	TypeAzure = "azure"
	TypeS3    = "s3"
)

// System manages artifact storage operations and lifecycle coordination.
// Every backend guarantees a byte-exact round trip and that a key is
// readable as soon as Put returns.
type System interface {
	// Start registers a startup hook that prepares the backing container, bucket, or directory.
	Start(lc *lifecycle.Coordinator) error
	// Put writes data at key and returns the location handle to persist.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Get returns the bytes stored at key. Returns ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes the object at key. Returns ErrNotFound if the key does not exist.
	Delete(ctx context.Context, key string) error
	// Exists reports whether an object exists at key.
	Exists(ctx context.Context, key string) (bool, error)
	// Move relocates the object at src to dst. Returns ErrNotFound if src does not exist.
	Move(ctx context.Context, src, dst string) error
	// List returns up to limit objects whose keys start with prefix.
	List(ctx context.Context, prefix string, limit int) ([]Object, error)
}

// Object describes a stored artifact.
type Object struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// New creates the storage backend selected by cfg.Type.
// Clients are constructed eagerly; remote resources are prepared in Start.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	logger = logger.With("system", "storage", "type", cfg.Type)

	switch cfg.Type {
	case TypeLocal:
		return newLocal(&cfg.Local, logger), nil
	case TypeAzure:
		return newAzure(&cfg.Azure, logger)
	case TypeS3:
		return newS3(&cfg.S3, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, cfg.Type)
	}
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	return nil
}
