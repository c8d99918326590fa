package predictions

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/pestwatch/internal/location"
	"github.com/JaimeStill/pestwatch/internal/notify"
	"github.com/JaimeStill/pestwatch/internal/predictor"
	"github.com/JaimeStill/pestwatch/internal/records"
	"github.com/JaimeStill/pestwatch/pkg/storage"
)

// Option customizes the orchestrator.
type Option func(*orchestrator)

// WithObserver reports submission outcomes, prediction latency, and reviews to o.
func WithObserver(o Observer) Option {
	return func(p *orchestrator) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithClock replaces the time source used to stamp reviews.
func WithClock(now func() time.Time) Option {
	return func(p *orchestrator) {
		p.now = now
	}
}

// WithPredictTimeout bounds each predictor call. Zero leaves it bounded
// only by the request context.
func WithPredictTimeout(d time.Duration) Option {
	return func(p *orchestrator) {
		p.predictTimeout = d
	}
}

type orchestrator struct {
	records        records.System
	store          storage.System
	predictor      predictor.Predictor
	locator        location.Locator
	notifier       notify.Notifier
	logger         *slog.Logger
	cfg            *Config
	observer       Observer
	now            func() time.Time
	predictTimeout time.Duration
}

// New creates the prediction workflow over its collaborators.
func New(
	recs records.System,
	store storage.System,
	pred predictor.Predictor,
	locator location.Locator,
	notifier notify.Notifier,
	logger *slog.Logger,
	cfg *Config,
	opts ...Option,
) System {
	o := &orchestrator{
		records:   recs,
		store:     store,
		predictor: pred,
		locator:   locator,
		notifier:  notifier,
		logger:    logger.With("system", "predictions"),
		cfg:       cfg,
		observer:  noopObserver{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *orchestrator) Handler() *Handler {
	return NewHandler(o, o.logger, o.cfg.MaxUploadSizeBytes())
}

func (o *orchestrator) Submit(ctx context.Context, cmd SubmitCommand) (*Result, error) {
	ext, err := o.validate(cmd)
	if err != nil {
		o.observer.ObserveSubmission(OutcomeInvalid)
		return nil, err
	}

	token := uuid.New()
	stored := hex.EncodeToString(token[:]) + ext
	key := records.PendingKey(stored)

	handle, err := o.store.Put(ctx, key, cmd.Data, contentType(cmd.ContentType, cmd.Data))
	if err != nil {
		o.observer.ObserveSubmission(OutcomeArtifactWrite)
		return nil, fmt.Errorf("%w: %w", ErrArtifactWrite, err)
	}

	var (
		pred  predictor.Prediction
		place location.Info
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pctx := gctx
		if o.predictTimeout > 0 {
			var cancel context.CancelFunc
			pctx, cancel = context.WithTimeout(gctx, o.predictTimeout)
			defer cancel()
		}

		start := time.Now()
		p, err := o.predictor.Predict(pctx, cmd.Data)
		o.observer.ObservePrediction(time.Since(start))
		if err != nil {
			return err
		}
		pred = p
		return nil
	})
	g.Go(func() error {
		place = o.locator.Resolve(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		o.discard(ctx, handle)
		o.observer.ObserveSubmission(OutcomePrediction)
		return nil, fmt.Errorf("%w: %w", ErrPrediction, err)
	}

	rec, err := o.records.Create(ctx, records.CreateCommand{
		OriginalFilename: cmd.Filename,
		StoredFilename:   stored,
		ArtifactLocation: handle,
		PredictedLabel:   pred.Label,
		Confidence:       pred.Confidence,
		Probabilities:    pred.Probabilities,
		Submitter:        cmd.Submitter,
		Location:         place,
	})
	if err != nil {
		o.discard(ctx, handle)
		o.observer.ObserveSubmission(OutcomeRepository)
		return nil, fmt.Errorf("%w: %w", ErrRepository, err)
	}

	o.observer.ObserveSubmission(OutcomeSuccess)
	o.logger.Info(
		"submission classified",
		"id", rec.ID,
		"label", rec.PredictedLabel,
		"confidence", rec.Confidence,
		"submitter", rec.Submitter.ID,
	)

	msg := notify.Message{
		Submitter:  cmd.Submitter.DisplayName(),
		Label:      rec.PredictedLabel,
		Confidence: rec.Confidence,
		RecordID:   rec.ID.String(),
	}
	if err := o.notifier.Notify(ctx, msg); err != nil {
		o.logger.Warn("admin notification failed", "id", rec.ID, "error", err)
	}

	return &Result{
		Label:          rec.PredictedLabel,
		Confidence:     rec.Confidence,
		Probabilities:  rec.Probabilities,
		RecordID:       rec.ID,
		StoredFilename: rec.StoredFilename,
		Location:       rec.Location,
	}, nil
}

func (o *orchestrator) Approve(ctx context.Context, ref, label string) (*ReviewResult, error) {
	review := records.Approve(label, o.now())
	rec, err := o.review(ctx, ref, review)
	if err != nil {
		return nil, err
	}

	o.logger.Info("record approved", "id", rec.ID, "label", *review.ApprovedLabel)
	return &ReviewResult{
		Status:   review.Status,
		RecordID: rec.ID,
		Label:    review.ApprovedLabel,
	}, nil
}

func (o *orchestrator) Reject(ctx context.Context, ref string) (*ReviewResult, error) {
	review := records.Reject(o.now())
	rec, err := o.review(ctx, ref, review)
	if err != nil {
		return nil, err
	}

	o.logger.Info("record rejected", "id", rec.ID)
	return &ReviewResult{
		Status:   review.Status,
		RecordID: rec.ID,
	}, nil
}

func (o *orchestrator) History(ctx context.Context, submitterID string) ([]records.Summary, error) {
	recs, err := o.records.ListBySubmitter(ctx, submitterID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRepository, err)
	}

	out := make([]records.Summary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.Summarize())
	}
	return out, nil
}

func (o *orchestrator) Stats(ctx context.Context) (*records.Stats, error) {
	stats, err := o.records.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRepository, err)
	}
	return stats, nil
}

func (o *orchestrator) Delete(ctx context.Context, id uuid.UUID) error {
	if err := o.records.Delete(ctx, id); err != nil {
		return repositoryError(err)
	}
	return nil
}

func (o *orchestrator) Artifact(ctx context.Context, ref string) (*Artifact, error) {
	rec, err := o.records.Resolve(ctx, ref)
	if err != nil {
		return nil, repositoryError(err)
	}

	data, err := o.store.Get(ctx, rec.ArtifactLocation)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArtifactRead, err)
	}

	return &Artifact{
		RecordID:       rec.ID,
		StoredFilename: rec.StoredFilename,
		ContentType:    http.DetectContentType(data),
		Data:           data,
	}, nil
}

func (o *orchestrator) review(ctx context.Context, ref string, review records.Review) (*records.Record, error) {
	rec, err := o.records.UpdateStatus(ctx, ref, review)
	if err != nil {
		return nil, repositoryError(err)
	}
	o.observer.ObserveReview(string(review.Status))
	return rec, nil
}

// validate returns the lower-cased extension, dot included.
func (o *orchestrator) validate(cmd SubmitCommand) (string, error) {
	if len(cmd.Data) == 0 {
		return "", ErrEmptyFile
	}
	if strings.TrimSpace(cmd.Filename) == "" {
		return "", ErrMissingFilename
	}
	if limit := o.cfg.MaxUploadSizeBytes(); limit > 0 && int64(len(cmd.Data)) > limit {
		return "", ErrFileTooLarge
	}

	ext := strings.ToLower(filepath.Ext(cmd.Filename))
	if !o.cfg.Allowed(ext) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
	}
	return ext, nil
}

// discard removes an artifact whose submission failed downstream.
func (o *orchestrator) discard(ctx context.Context, key string) {
	if err := o.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		o.logger.Warn("compensating artifact delete failed", "key", key, "error", err)
	}
}

// repositoryError keeps lookup misses and bad input distinguishable from backend failures.
func repositoryError(err error) error {
	if errors.Is(err, records.ErrNotFound) || errors.Is(err, records.ErrInvalidStatus) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRepository, err)
}

func contentType(header string, data []byte) string {
	header = strings.TrimSpace(header)
	if header != "" && header != "application/octet-stream" {
		return header
	}
	return http.DetectContentType(data)
}

type noopObserver struct{}

func (noopObserver) ObserveSubmission(string)        {}
func (noopObserver) ObservePrediction(time.Duration) {}
func (noopObserver) ObserveReview(string)            {}
