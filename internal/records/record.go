// Package records persists classification records and their review state.
// It provides the record types, the status lifecycle, and a repository over
// PostgreSQL or SQLite that keeps each record's artifact in step with it.
package records

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/pestwatch/internal/location"
)

// AnonymousSubmitter is recorded when a submission carries no submitter id.
const AnonymousSubmitter = "anonymous"

// Status is the review state of a record.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Probabilities maps class label to model probability.
// It is stored as a JSON object.
type Probabilities map[string]float64

func (p Probabilities) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (p *Probabilities) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*p = Probabilities{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("scan probabilities: unsupported type %T", src)
	}

	out := Probabilities{}
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("scan probabilities: %w", err)
	}
	*p = out
	return nil
}

// Submitter identifies the farmer who sent the image.
// ID carries the RSBSA registry number.
type Submitter struct {
	ID       string `json:"id"`
	FullName string `json:"full_name,omitempty"`
	Barangay string `json:"barangay,omitempty"`
	Crop     string `json:"crop,omitempty"`
	Area     string `json:"area,omitempty"`
	Contact  string `json:"contact,omitempty"`
}

// DisplayName returns FullName, or "Unknown" when it is empty.
func (s Submitter) DisplayName() string {
	if s.FullName == "" {
		return "Unknown"
	}
	return s.FullName
}

// Record is one classified submission.
type Record struct {
	ID               uuid.UUID     `json:"id"`
	OriginalFilename string        `json:"original_filename"`
	StoredFilename   string        `json:"stored_filename"`
	ArtifactLocation string        `json:"artifact_location"`
	PredictedLabel   string        `json:"predicted_label"`
	Confidence       float64       `json:"confidence"`
	Probabilities    Probabilities `json:"probabilities"`
	Submitter        Submitter     `json:"submitter"`
	Location         location.Info `json:"location"`
	Status           Status        `json:"status"`
	ApprovedLabel    *string       `json:"approved_label"`
	ReviewedAt       *time.Time    `json:"reviewed_at"`
	CreatedAt        time.Time     `json:"created_at"`
}

// Summary is the condensed view of a record returned in submitter history.
type Summary struct {
	ID             uuid.UUID  `json:"id"`
	StoredFilename string     `json:"stored_filename"`
	PredictedLabel string     `json:"predicted_label"`
	Confidence     float64    `json:"confidence"`
	Status         Status     `json:"status"`
	ApprovedLabel  *string    `json:"approved_label"`
	CreatedAt      time.Time  `json:"created_at"`
	ReviewedAt     *time.Time `json:"reviewed_at"`
}

// Summarize condenses r.
func (r Record) Summarize() Summary {
	return Summary{
		ID:             r.ID,
		StoredFilename: r.StoredFilename,
		PredictedLabel: r.PredictedLabel,
		Confidence:     r.Confidence,
		Status:         r.Status,
		ApprovedLabel:  r.ApprovedLabel,
		CreatedAt:      r.CreatedAt,
		ReviewedAt:     r.ReviewedAt,
	}
}

// Stats aggregates record counts.
type Stats struct {
	Total              int `json:"total"`
	Pending            int `json:"pending"`
	Approved           int `json:"approved"`
	Rejected           int `json:"rejected"`
	DistinctSubmitters int `json:"distinct_submitters"`
}

// CreateCommand carries everything needed to persist a new pending record.
type CreateCommand struct {
	OriginalFilename string
	StoredFilename   string
	ArtifactLocation string
	PredictedLabel   string
	Confidence       float64
	Probabilities    Probabilities
	Submitter        Submitter
	Location         location.Info
}
