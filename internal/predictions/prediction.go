// Package predictions orchestrates image classification submissions and
// their review. A submission stores the image, classifies it, resolves the
// submitter's location, and persists a pending record; reviewers then
// approve or reject that record.
package predictions

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/pestwatch/internal/location"
	"github.com/JaimeStill/pestwatch/internal/records"
)

// Submission outcomes reported to the Observer.
const (
	OutcomeSuccess       = "success"
	OutcomeInvalid       = "invalid"
	OutcomeArtifactWrite = "artifact_write_error"
	OutcomePrediction    = "prediction_error"
	OutcomeRepository    = "repository_error"
)

// Observer receives workflow measurements.
type Observer interface {
	ObserveSubmission(outcome string)
	ObservePrediction(elapsed time.Duration)
	ObserveReview(status string)
}

// SubmitCommand is one uploaded image with the submitter's details.
type SubmitCommand struct {
	Data        []byte
	Filename    string
	ContentType string
	Submitter   records.Submitter
}

// Result is returned to the submitter after a successful classification.
type Result struct {
	Label          string             `json:"label"`
	Confidence     float64            `json:"confidence"`
	Probabilities  map[string]float64 `json:"probabilities"`
	RecordID       uuid.UUID          `json:"record_id"`
	StoredFilename string             `json:"stored_filename"`
	Location       location.Info      `json:"location"`
}

// ReviewResult reports the outcome of an approve or reject action.
type ReviewResult struct {
	Status   records.Status `json:"status"`
	RecordID uuid.UUID      `json:"record_id"`
	Label    *string        `json:"label,omitempty"`
}

// Artifact is a stored image read back through its record.
type Artifact struct {
	RecordID       uuid.UUID
	StoredFilename string
	ContentType    string
	Data           []byte
}
