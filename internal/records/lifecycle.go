package records

import (
	"path"
	"time"

	"github.com/JaimeStill/pestwatch/internal/predictor"
)

// Review is a status transition to apply to a record.
// Transitions are not guarded: applying one to a terminal record
// overwrites its status, approved label, and review time.
type Review struct {
	Status        Status
	ApprovedLabel *string
	ReviewedAt    time.Time
}

// Approve returns the Pending -> Approved transition. A label outside the
// known classes is coerced to predictor.Unknown.
func Approve(label string, now time.Time) Review {
	if !predictor.IsClass(label) {
		label = predictor.Unknown
	}
	return Review{
		Status:        StatusApproved,
		ApprovedLabel: &label,
		ReviewedAt:    now.UTC(),
	}
}

// Reject returns the Pending -> Rejected transition. It carries no label, so
// applying it clears any label left by an earlier approval.
func Reject(now time.Time) Review {
	return Review{
		Status:     StatusRejected,
		ReviewedAt: now.UTC(),
	}
}

// Artifact key prefixes by review state.
const (
	PendingPrefix  = "pending"
	ApprovedPrefix = "approved"
	RejectedPrefix = "rejected"
)

// PendingKey returns the storage key for a freshly submitted artifact.
func PendingKey(storedFilename string) string {
	return path.Join(PendingPrefix, storedFilename)
}

// Destination returns the storage key an artifact moves to under review.
// Approved artifacts are grouped by their approved label.
func (r Review) Destination(storedFilename string) string {
	switch r.Status {
	case StatusApproved:
		label := predictor.Unknown
		if r.ApprovedLabel != nil {
			label = *r.ApprovedLabel
		}
		return path.Join(ApprovedPrefix, label, storedFilename)
	case StatusRejected:
		return path.Join(RejectedPrefix, storedFilename)
	default:
		return PendingKey(storedFilename)
	}
}
