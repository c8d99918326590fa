package records

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/pestwatch/pkg/pagination"
)

// System defines the public contract for record persistence.
// Operations taking a ref accept either a record id or a stored filename.
type System interface {
	Handler() *Handler

	Create(ctx context.Context, cmd CreateCommand) (*Record, error)
	Find(ctx context.Context, id uuid.UUID) (*Record, error)
	FindByStoredFilename(ctx context.Context, name string) (*Record, error)
	Resolve(ctx context.Context, ref string) (*Record, error)
	UpdateStatus(ctx context.Context, ref string, review Review) (*Record, error)

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Record], error)

	ListByStatus(ctx context.Context, status Status) ([]Record, error)
	ListBySubmitter(ctx context.Context, submitterID string) ([]Record, error)
	ListByLocation(ctx context.Context, city, country *string) ([]Record, error)
	Counts(ctx context.Context) (*Stats, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
