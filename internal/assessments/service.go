package assessments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/listing-qa-backend/internal/listings"
	"github.com/angelmondragon/listing-qa-backend/pkg/db"
	"github.com/angelmondragon/listing-qa-backend/pkg/db/models"
	"github.com/angelmondragon/listing-qa-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/listing-qa-backend/pkg/errors"
	"github.com/angelmondragon/listing-qa-backend/pkg/logger"
	"github.com/angelmondragon/listing-qa-backend/pkg/metrics"
	"github.com/angelmondragon/listing-qa-backend/pkg/outbox"
	"github.com/angelmondragon/listing-qa-backend/pkg/outbox/payloads"
	pkgpagination "github.com/angelmondragon/listing-qa-backend/pkg/pagination"
)

const (
	listingUniqueConstraint       = "assessments_listing_id_key"
	listingUniqueConstraintSQLite = "assessments.listing_id"
	bypassNote                    = "bypassed"
)

var errDuplicateAssessment = errors.New("assessment already exists for listing")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type tierResolver interface {
	IsBypassEligible(ctx context.Context, sellerID uuid.UUID) (bool, error)
}

// Service is the assessment workflow: creation, transitions and reads.
type Service interface {
	CreateAssessment(ctx context.Context, listingID, sellerID uuid.UUID) (*CreateResult, error)
	ApproveDigital(ctx context.Context, input TransitionInput) (*models.Assessment, error)
	RequestRevision(ctx context.Context, input RevisionInput) (*models.Assessment, error)
	Reject(ctx context.Context, input RejectInput) (*models.Assessment, error)
	SubmitSample(ctx context.Context, input SampleInput) (*models.Assessment, error)
	ApprovePhysical(ctx context.Context, input TransitionInput) (*models.Assessment, error)
	Resubmit(ctx context.Context, input TransitionInput) (*models.Assessment, error)
	GetByListingID(ctx context.Context, listingID uuid.UUID) (*models.Assessment, error)
	GetByID(ctx context.Context, assessmentID uuid.UUID) (*models.Assessment, error)
	ListAssessments(ctx context.Context, params ListParams) (*ListResult, error)
	ListAuditTrail(ctx context.Context, assessmentID uuid.UUID) ([]AuditEntry, error)
	LatestDecisions(ctx context.Context, assessmentID uuid.UUID) (*Decisions, error)
}

// ServiceParams wires the assessment service.
type ServiceParams struct {
	Repo     Repository
	Audit    AuditRepository
	Listings listings.Repository
	Tiers    tierResolver
	DB       txRunner
	Outbox   outboxPublisher
	Metrics  *metrics.AssessmentMetrics
	Logger   *logger.Logger
	Now      func() time.Time
}

type service struct {
	repo       Repository
	audit      AuditRepository
	listings   listings.Repository
	tiers      tierResolver
	tx         txRunner
	outbox     outboxPublisher
	visibility *VisibilitySynchronizer
	metrics    *metrics.AssessmentMetrics
	logg       *logger.Logger
	now        func() time.Time
}

// NewService builds the assessment service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("assessment repository required")
	}
	if params.Audit == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	if params.Listings == nil {
		return nil, fmt.Errorf("listing repository required")
	}
	if params.Tiers == nil {
		return nil, fmt.Errorf("tier resolver required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	sync, err := NewVisibilitySynchronizer(params.Listings)
	if err != nil {
		return nil, err
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:       params.Repo,
		audit:      params.Audit,
		listings:   params.Listings,
		tiers:      params.Tiers,
		tx:         params.DB,
		outbox:     params.Outbox,
		visibility: sync,
		metrics:    params.Metrics,
		logg:       params.Logger,
		now:        now,
	}, nil
}

// CreateAssessment opens the single assessment for a listing. A second call
// for the same listing, concurrent or not, returns the existing row with
// Created=false instead of an error.
func (s *service) CreateAssessment(ctx context.Context, listingID, sellerID uuid.UUID) (*CreateResult, error) {
	if listingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}

	bypass, err := s.tiers.IsBypassEligible(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	assessment := newAssessment(listingID, sellerID, bypass, now)
	var visibilityStatus enums.VisibilityStatus

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		listing, err := s.listings.WithTx(tx).FindByID(ctx, listingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
		}
		if listing.SellerID != sellerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "listing does not belong to seller")
		}

		inserted, err := s.repo.WithTx(tx).Insert(ctx, assessment)
		if err != nil {
			return err
		}
		if !inserted {
			return errDuplicateAssessment
		}

		if bypass {
			note := bypassNote
			if err := s.audit.WithTx(tx).AppendApproval(ctx, &models.Approval{
				ID:           uuid.New(),
				AssessmentID: assessment.ID,
				Stage:        enums.ApprovalStageBypass,
				Note:         &note,
				CreatedAt:    now,
			}); err != nil {
				return err
			}
		}

		visibilityStatus, err = s.visibility.Sync(ctx, tx, assessment)
		if err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAssessmentCreated,
			AggregateType: enums.AggregateAssessment,
			AggregateID:   assessment.ID,
			Version:       1,
			OccurredAt:    now,
			Actor:         &outbox.ActorRef{UserID: sellerID, Role: enums.ActorRoleSeller.String()},
			Data: payloads.AssessmentCreatedEvent{
				AssessmentID:     assessment.ID,
				ListingID:        assessment.ListingID,
				SellerID:         sellerID,
				Status:           assessment.Status,
				VisibilityStatus: visibilityStatus,
				Bypassed:         bypass,
			},
		})
	})
	if err != nil {
		if errors.Is(err, errDuplicateAssessment) || isDuplicateListing(err) {
			return s.existingAssessment(ctx, listingID)
		}
		return nil, classifyWriteError(err, "create assessment")
	}

	outcome := metrics.CreateOutcomeCreated
	if bypass {
		outcome = metrics.CreateOutcomeBypassed
	}
	s.metrics.IncCreate(outcome)

	if s.logg != nil {
		logCtx := s.logg.WithAssessmentID(s.logg.WithListingID(ctx, listingID.String()), assessment.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"status":            assessment.Status,
			"visibility_status": visibilityStatus,
			"bypassed":          bypass,
		})
		s.logg.Info(logCtx, "assessment.created")
	}

	return &CreateResult{Assessment: assessment, Created: true, Bypassed: bypass}, nil
}

func (s *service) existingAssessment(ctx context.Context, listingID uuid.UUID) (*CreateResult, error) {
	existing, err := s.repo.FindByListingID(ctx, listingID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load existing assessment")
	}
	s.metrics.IncCreate(metrics.CreateOutcomeDuplicate)
	if s.logg != nil {
		logCtx := s.logg.WithAssessmentID(s.logg.WithListingID(ctx, listingID.String()), existing.ID.String())
		s.logg.Info(s.logg.WithField(logCtx, "status", existing.Status), "assessment.create.duplicate_suppressed")
	}
	return &CreateResult{Assessment: existing, Created: false}, nil
}

func newAssessment(listingID, sellerID uuid.UUID, bypass bool, now time.Time) *models.Assessment {
	id := uuid.New()
	for id == listingID {
		id = uuid.New()
	}
	submitted := now
	assessment := &models.Assessment{
		ID:          id,
		ListingID:   listingID,
		Status:      enums.AssessmentStatusPendingDigitalReview,
		SubmittedAt: &submitted,
		CreatedBy:   sellerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if bypass {
		verified := now
		assessment.Status = enums.AssessmentStatusVerified
		assessment.VerifiedAt = &verified
	}
	return assessment
}

func (s *service) GetByListingID(ctx context.Context, listingID uuid.UUID) (*models.Assessment, error) {
	if listingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	assessment, err := s.repo.FindByListingID(ctx, listingID)
	if err != nil {
		return nil, notFoundOr(err, "assessment not found", "load assessment")
	}
	return assessment, nil
}

// GetByID looks up by the assessment's own id. A listing id never matches.
func (s *service) GetByID(ctx context.Context, assessmentID uuid.UUID) (*models.Assessment, error) {
	if assessmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assessment id required")
	}
	assessment, err := s.repo.FindByID(ctx, assessmentID)
	if err != nil {
		return nil, notFoundOr(err, "assessment not found", "load assessment")
	}
	return assessment, nil
}

func (s *service) ListAssessments(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	cursor, err := pkgpagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, listQuery{
		status: params.Status,
		limit:  pkgpagination.LimitWithBuffer(params.Limit),
		cursor: cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assessments")
	}

	views := make([]View, 0, len(rows))
	for i := range rows {
		views = append(views, ToView(&rows[i]))
	}
	page := pkgpagination.BuildPage(views, params.Limit, func(v View) pkgpagination.Cursor {
		return pkgpagination.Cursor{CreatedAt: v.CreatedAt, ID: v.ID}
	})
	return &page, nil
}

func (s *service) ListAuditTrail(ctx context.Context, assessmentID uuid.UUID) ([]AuditEntry, error) {
	if _, err := s.GetByID(ctx, assessmentID); err != nil {
		return nil, err
	}
	entries, err := s.audit.ListTrail(ctx, assessmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit trail")
	}
	return entries, nil
}

// LatestDecisions surfaces the newest approval, rejection reason, revision
// feedback and logistics note for an assessment.
func (s *service) LatestDecisions(ctx context.Context, assessmentID uuid.UUID) (*Decisions, error) {
	if _, err := s.GetByID(ctx, assessmentID); err != nil {
		return nil, err
	}

	var out Decisions
	approval, err := s.audit.LatestApproval(ctx, assessmentID)
	if out.Approval, err = latestEntry(approval, err, approvalEntry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load latest approval")
	}
	rejection, err := s.audit.LatestRejection(ctx, assessmentID)
	if out.Rejection, err = latestEntry(rejection, err, rejectionEntry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load latest rejection")
	}
	revision, err := s.audit.LatestRevision(ctx, assessmentID)
	if out.Revision, err = latestEntry(revision, err, revisionEntry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load latest revision")
	}
	logistics, err := s.audit.LatestLogistics(ctx, assessmentID)
	if out.Logistics, err = latestEntry(logistics, err, logisticsEntry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load latest logistics")
	}
	return &out, nil
}

// latestEntry maps a Latest* lookup onto an AuditEntry; a missing record is nil.
func latestEntry[T any](rec *T, err error, toEntry func(T) AuditEntry) (*AuditEntry, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	entry := toEntry(*rec)
	return &entry, nil
}

func isDuplicateListing(err error) bool {
	return db.IsUniqueViolation(err, listingUniqueConstraint) || db.IsUniqueViolation(err, listingUniqueConstraintSQLite)
}

// classifyWriteError keeps typed errors and maps raw storage failures onto the
// error taxonomy. Integrity violations are surfaced, never masked.
func classifyWriteError(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	if db.IsConstraintViolation(err) {
		return pkgerrors.Wrap(pkgerrors.CodeConstraint, err, msg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func notFoundOr(err error, notFoundMsg, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
