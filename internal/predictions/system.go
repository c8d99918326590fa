package predictions

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/pestwatch/internal/records"
)

// System defines the public contract of the prediction workflow.
// Operations taking a ref accept either a record id or a stored filename.
type System interface {
	Handler() *Handler

	Submit(ctx context.Context, cmd SubmitCommand) (*Result, error)
	Approve(ctx context.Context, ref, label string) (*ReviewResult, error)
	Reject(ctx context.Context, ref string) (*ReviewResult, error)
	History(ctx context.Context, submitterID string) ([]records.Summary, error)
	Stats(ctx context.Context) (*records.Stats, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Artifact(ctx context.Context, ref string) (*Artifact, error)
}
