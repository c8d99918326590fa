package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/pestwatch/pkg/pagination"
	"github.com/JaimeStill/pestwatch/pkg/query"
	"github.com/JaimeStill/pestwatch/pkg/repository"
	"github.com/JaimeStill/pestwatch/pkg/storage"
)

// Option customizes the record repository.
type Option func(*repo)

// WithRelocation moves artifacts between review prefixes on status updates.
func WithRelocation(enabled bool) Option {
	return func(r *repo) {
		r.relocate = enabled
	}
}

// WithClock replaces the time source used to stamp new records.
func WithClock(now func() time.Time) Option {
	return func(r *repo) {
		r.now = now
	}
}

type repo struct {
	db         *sql.DB
	store      storage.System
	projection *query.ProjectionMap
	logger     *slog.Logger
	pagination pagination.Config
	relocate   bool
	now        func() time.Time
}

// New creates a record repository implementing the System interface.
// driver selects the SQL dialect; store is used to reclaim and relocate artifacts.
func New(
	db *sql.DB,
	driver string,
	store storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
	opts ...Option,
) System {
	r := &repo{
		db:         db,
		store:      store,
		projection: newProjection(driver),
		logger:     logger.With("system", "records"),
		pagination: pagination,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Record, error) {
	submitterID := cmd.Submitter.ID
	if submitterID == "" {
		submitterID = AnonymousSubmitter
	}

	probs := cmd.Probabilities
	if probs == nil {
		probs = Probabilities{}
	}

	q := `
		INSERT INTO records(
			id, original_filename, stored_filename, artifact_location,
			predicted_label, confidence, probabilities, submitter_id, full_name,
			barangay, crop, area, contact, latitude, longitude, city, country,
			status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	id := uuid.New()
	args := []any{
		id,
		cmd.OriginalFilename,
		cmd.StoredFilename,
		cmd.ArtifactLocation,
		cmd.PredictedLabel,
		cmd.Confidence,
		probs,
		submitterID,
		nullable(cmd.Submitter.FullName),
		nullable(cmd.Submitter.Barangay),
		nullable(cmd.Submitter.Crop),
		nullable(cmd.Submitter.Area),
		nullable(cmd.Submitter.Contact),
		cmd.Location.Latitude,
		cmd.Location.Longitude,
		cmd.Location.City,
		cmd.Location.Country,
		string(StatusPending),
		r.now().UTC(),
	}

	rec, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Record, error) {
		if err := repository.ExecOne(ctx, tx, q, args...); err != nil {
			return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
		}
		return r.findBy(ctx, tx, "ID", id)
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("record created",
		"id", rec.ID,
		"stored_filename", rec.StoredFilename,
		"predicted_label", rec.PredictedLabel,
		"submitter_id", rec.Submitter.ID,
	)
	return rec, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Record, error) {
	return r.findBy(ctx, r.db, "ID", id)
}

func (r *repo) FindByStoredFilename(ctx context.Context, name string) (*Record, error) {
	return r.findBy(ctx, r.db, "StoredFilename", name)
}

func (r *repo) findBy(ctx context.Context, db repository.DBTX, field string, value any) (*Record, error) {
	q, args := query.NewBuilder(r.projection).BuildSingle(field, value)

	rec, err := repository.QueryOne(ctx, db, q, args, scanRecord)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &rec, nil
}

func (r *repo) Resolve(ctx context.Context, ref string) (*Record, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return r.Find(ctx, id)
	}
	return r.FindByStoredFilename(ctx, ref)
}

// UpdateStatus applies review to the record identified by ref. With
// relocation enabled the artifact is moved first; if the update then fails
// the move is reverted. A missing artifact leaves the location unchanged and
// the review still applies.
//
// The update is conditional on the artifact location read beforehand. When a
// concurrent review relocated the artifact in between, the record is read
// again and the review retried, so the last review to commit wins and the
// stored location always names an existing artifact.
func (r *repo) UpdateStatus(ctx context.Context, ref string, review Review) (*Record, error) {
	if !review.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, review.Status)
	}

	for attempt := 1; ; attempt++ {
		current, err := r.Resolve(ctx, ref)
		if err != nil {
			return nil, err
		}

		rec, err := r.applyReview(ctx, current, review)
		if !errors.Is(err, errStaleLocation) {
			return rec, err
		}
		if attempt == maxReviewAttempts {
			return nil, fmt.Errorf("review record %s: %w", current.ID, err)
		}
		r.logger.Debug("artifact relocated concurrently, retrying review",
			"id", current.ID,
			"attempt", attempt,
		)
	}
}

func (r *repo) applyReview(ctx context.Context, current *Record, review Review) (*Record, error) {
	key := current.ArtifactLocation
	moved := false
	if r.relocate {
		if dst := review.Destination(current.StoredFilename); dst != key {
			err := r.store.Move(ctx, key, dst)
			switch {
			case err == nil:
				key = dst
				moved = true
			case errors.Is(err, storage.ErrNotFound) && r.relocatedSince(ctx, current):
				return nil, errStaleLocation
			default:
				r.logger.Warn("artifact relocation failed",
					"id", current.ID,
					"src", key,
					"dst", dst,
					"error", err,
				)
			}
		}
	}

	q := `
		UPDATE records
		SET status = $1, approved_label = $2, reviewed_at = $3, artifact_location = $4
		WHERE id = $5 AND artifact_location = $6`

	reviewedAt := review.ReviewedAt.UTC()
	args := []any{
		string(review.Status),
		review.ApprovedLabel,
		reviewedAt,
		key,
		current.ID,
		current.ArtifactLocation,
	}

	if err := repository.ExecOne(ctx, r.db, q, args...); err != nil {
		if moved {
			if mvErr := r.store.Move(context.WithoutCancel(ctx), key, current.ArtifactLocation); mvErr != nil {
				r.logger.Warn("artifact relocation revert failed",
					"id", current.ID,
					"key", key,
					"error", mvErr,
				)
			}
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errStaleLocation
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	rec := *current
	rec.Status = review.Status
	rec.ApprovedLabel = review.ApprovedLabel
	rec.ReviewedAt = &reviewedAt
	rec.ArtifactLocation = key

	r.logger.Info("record reviewed",
		"id", rec.ID,
		"status", rec.Status,
		"approved_label", rec.ApprovedLabel,
		"previous_status", current.Status,
	)
	return &rec, nil
}

// relocatedSince reports whether the stored artifact location of current
// changed after it was read.
func (r *repo) relocatedSince(ctx context.Context, current *Record) bool {
	latest, err := r.Find(ctx, current.ID)
	if err != nil {
		return errors.Is(err, ErrNotFound)
	}
	return latest.ArtifactLocation != current.ArtifactLocation
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Record], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(r.projection, defaultSort).
		WhereSearch(page.Search, "OriginalFilename", "StoredFilename", "FullName")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)

	p, err := repository.QueryPage(ctx, r.db, countSQL, countArgs, pageSQL, pageArgs, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	result := pagination.NewPageResult(p.Items, p.Total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) ListByStatus(ctx context.Context, status Status) ([]Record, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return r.list(ctx, Filters{Status: &status})
}

func (r *repo) ListBySubmitter(ctx context.Context, submitterID string) ([]Record, error) {
	return r.list(ctx, Filters{SubmitterID: &submitterID})
}

// ListByLocation matches records by city and country. With neither given it
// returns every record that carries coordinates.
func (r *repo) ListByLocation(ctx context.Context, city, country *string) ([]Record, error) {
	if city == nil && country == nil {
		q, args := query.
			NewBuilder(r.projection, defaultSort).
			WhereNotNull("Latitude").
			WhereNotNull("Longitude").
			Build()
		return r.query(ctx, q, args)
	}
	return r.list(ctx, Filters{City: city, Country: country})
}

func (r *repo) Counts(ctx context.Context) (*Stats, error) {
	q := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'approved' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'rejected' THEN 1 ELSE 0 END), 0),
			COUNT(DISTINCT submitter_id)
		FROM records`

	st, err := repository.QueryOne(ctx, r.db, q, nil, scanStats)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	return &st, nil
}

// Delete removes the record and then reclaims its artifact. The reclaim
// outlives a cancelled request once the row is gone. A failure to reclaim is
// logged; the record deletion stands.
func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	rec, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Record, error) {
		rec, err := r.findBy(ctx, tx, "ID", id)
		if err != nil {
			return nil, err
		}
		if err := repository.ExecOne(ctx, tx, "DELETE FROM records WHERE id = $1", id); err != nil {
			return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
		}
		return rec, nil
	})
	if err != nil {
		return err
	}

	if err := r.store.Delete(context.WithoutCancel(ctx), rec.ArtifactLocation); err != nil && !errors.Is(err, storage.ErrNotFound) {
		r.logger.Warn("artifact reclaim failed",
			"id", id,
			"key", rec.ArtifactLocation,
			"error", err,
		)
	}

	r.logger.Info("record deleted", "id", id, "key", rec.ArtifactLocation)
	return nil
}

func (r *repo) list(ctx context.Context, filters Filters) ([]Record, error) {
	qb := query.NewBuilder(r.projection, defaultSort)
	filters.Apply(qb)
	q, args := qb.Build()
	return r.query(ctx, q, args)
}

func (r *repo) query(ctx context.Context, q string, args []any) ([]Record, error) {
	items, err := repository.QueryMany(ctx, r.db, q, args, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	return items, nil
}
