package predictions

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/JaimeStill/pestwatch/internal/records"
	"github.com/JaimeStill/pestwatch/pkg/storage"
)

// Failure categories of the prediction workflow.
var (
	ErrValidation    = errors.New("invalid submission")
	ErrArtifactWrite = errors.New("failed to store image")
	ErrArtifactRead  = errors.New("failed to read image")
	ErrPrediction    = errors.New("prediction failed")
	ErrRepository    = errors.New("failed to persist record")
)

// Validation failures. Each wraps ErrValidation.
var (
	ErrNoFile               = fmt.Errorf("%w: no file uploaded", ErrValidation)
	ErrEmptyFile            = fmt.Errorf("%w: empty file", ErrValidation)
	ErrMissingFilename      = fmt.Errorf("%w: missing filename", ErrValidation)
	ErrUnsupportedExtension = fmt.Errorf("%w: unsupported file extension", ErrValidation)
	ErrFileTooLarge         = fmt.Errorf("%w: file too large", ErrValidation)
	ErrInvalidID            = fmt.Errorf("%w: invalid record id", ErrValidation)
)

// Stable error kinds rendered in response bodies.
const (
	KindValidation    = "validation"
	KindNotFound      = "not_found"
	KindArtifactWrite = "artifact_write"
	KindArtifactRead  = "artifact_read"
	KindPrediction    = "prediction"
	KindRepository    = "repository"
	KindInternal      = "internal"
)

// Kind classifies err into one of the stable error kinds.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, records.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrArtifactWrite):
		return KindArtifactWrite
	case errors.Is(err, ErrArtifactRead):
		return KindArtifactRead
	case errors.Is(err, ErrPrediction):
		return KindPrediction
	case errors.Is(err, ErrRepository):
		return KindRepository
	default:
		return KindInternal
	}
}

// MapHTTPStatus maps prediction workflow errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrFileTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	switch Kind(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindPrediction:
		return http.StatusBadGateway
	case KindRepository:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicError reduces err to the message of its category so that backend
// detail never reaches the client.
func publicError(err error) error {
	for _, public := range []error{
		ErrNoFile,
		ErrEmptyFile,
		ErrMissingFilename,
		ErrUnsupportedExtension,
		ErrFileTooLarge,
		ErrInvalidID,
		ErrValidation,
		records.ErrNotFound,
		records.ErrInvalidStatus,
		storage.ErrNotFound,
		ErrArtifactWrite,
		ErrArtifactRead,
		ErrPrediction,
		ErrRepository,
	} {
		if errors.Is(err, public) {
			return public
		}
	}
	return errors.New("internal error")
}
