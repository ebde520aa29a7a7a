package assessments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/listing-qa-backend/internal/listings"
	"github.com/angelmondragon/listing-qa-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/listing-qa-backend/pkg/errors"
	"github.com/angelmondragon/listing-qa-backend/pkg/logger"
	"github.com/angelmondragon/listing-qa-backend/pkg/metrics"
)

const defaultReconcileBatchSize = 500

type assessmentCreator interface {
	CreateAssessment(ctx context.Context, listingID, sellerID uuid.UUID) (*CreateResult, error)
}

// ReconcileResult summarizes one reconciliation pass.
type ReconcileResult struct {
	Found    int `json:"found"`
	Created  int `json:"created"`
	Bypassed int `json:"bypassed"`
	Existing int `json:"existing"`
	Failed   int `json:"failed"`
}

// ReconcilerParams wires the orphan reconciler.
type ReconcilerParams struct {
	Listings  listings.Repository
	Creator   assessmentCreator
	BatchSize int
	Metrics   *metrics.AssessmentMetrics
	Logger    *logger.Logger
}

// Reconciler finds listings without an assessment and repairs them through
// the regular creation path.
type Reconciler struct {
	listings  listings.Repository
	creator   assessmentCreator
	batchSize int
	metrics   *metrics.AssessmentMetrics
	logg      *logger.Logger
}

func NewReconciler(params ReconcilerParams) (*Reconciler, error) {
	if params.Listings == nil {
		return nil, fmt.Errorf("listing repository required")
	}
	if params.Creator == nil {
		return nil, fmt.Errorf("assessment creator required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatchSize
	}
	return &Reconciler{
		listings:  params.Listings,
		creator:   params.Creator,
		batchSize: batch,
		metrics:   params.Metrics,
		logg:      params.Logger,
	}, nil
}

// FindOrphans lists every listing id that has no assessment. Read-only.
func (r *Reconciler) FindOrphans(ctx context.Context) ([]uuid.UUID, error) {
	orphans, err := r.scan(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(orphans))
	for _, listing := range orphans {
		ids = append(ids, listing.ID)
	}
	r.metrics.SetOrphans(len(ids))
	return ids, nil
}

// Reconcile creates an assessment for each orphan. A listing that gained an
// assessment since the scan counts as existing, not as a failure. Per-listing
// errors are collected and returned together after the pass completes.
func (r *Reconciler) Reconcile(ctx context.Context) (ReconcileResult, error) {
	orphans, err := r.scan(ctx)
	if err != nil {
		return ReconcileResult{}, err
	}
	r.metrics.SetOrphans(len(orphans))

	result := ReconcileResult{Found: len(orphans)}
	var errs error
	for _, listing := range orphans {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		created, err := r.creator.CreateAssessment(ctx, listing.ID, listing.SellerID)
		if err != nil {
			result.Failed++
			errs = multierr.Append(errs, fmt.Errorf("listing %s: %w", listing.ID, err))
			continue
		}
		switch {
		case !created.Created:
			result.Existing++
		case created.Bypassed:
			result.Bypassed++
		default:
			result.Created++
		}
	}

	if r.logg != nil {
		fields := map[string]any{
			"found":    result.Found,
			"created":  result.Created,
			"bypassed": result.Bypassed,
			"existing": result.Existing,
			"failed":   result.Failed,
		}
		logCtx := r.logg.WithFields(ctx, fields)
		if errs != nil {
			r.logg.Error(logCtx, "assessment.reconcile.partial_failure", errs)
		} else {
			r.logg.Info(logCtx, "assessment.reconcile.completed")
		}
	}
	return result, errs
}

func (r *Reconciler) scan(ctx context.Context) ([]models.Listing, error) {
	var (
		out   []models.Listing
		after uuid.UUID
	)
	for {
		page, err := r.listings.FindWithoutAssessment(ctx, after, r.batchSize)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan orphan listings")
		}
		out = append(out, page...)
		if len(page) < r.batchSize {
			return out, nil
		}
		after = page[len(page)-1].ID
	}
}
