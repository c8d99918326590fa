package storage

import (
	"errors"
	"net/http"
)

// Sentinel errors shared by every backend. Backends translate their native
// not-found responses into ErrNotFound.
var (
	ErrNotFound        = errors.New("artifact not found")
	ErrEmptyKey        = errors.New("storage key must not be empty")
	ErrInvalidKey      = errors.New("storage key contains invalid path segment")
	ErrUnsupportedType = errors.New("unsupported storage type")
)

// MapHTTPStatus maps storage errors to HTTP status codes. Key errors are
// caller mistakes; anything unrecognized is a backend failure.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEmptyKey), errors.Is(err, ErrInvalidKey):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
