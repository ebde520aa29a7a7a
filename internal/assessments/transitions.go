package assessments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/listing-qa-backend/pkg/db/models"
	"github.com/angelmondragon/listing-qa-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/listing-qa-backend/pkg/errors"
	"github.com/angelmondragon/listing-qa-backend/pkg/outbox"
	"github.com/angelmondragon/listing-qa-backend/pkg/outbox/payloads"
)

// transition describes one edge of the workflow. source is set only when the
// input fixes it (rejection stage); otherwise it comes from ExpectedStatus or
// the stored row.
type transition struct {
	action  enums.AssessmentAction
	input   TransitionInput
	source  enums.AssessmentStatus
	columns func(now time.Time) map[string]any
	audit   func(ctx context.Context, audit AuditRepository, assessment *models.Assessment, now time.Time) error
}

func (s *service) ApproveDigital(ctx context.Context, input TransitionInput) (*models.Assessment, error) {
	return s.apply(ctx, transition{
		action: enums.AssessmentActionApproveDigital,
		input:  input,
		columns: func(now time.Time) map[string]any {
			return map[string]any{"approved_at": setOnce("approved_at", now)}
		},
		audit: func(ctx context.Context, audit AuditRepository, a *models.Assessment, now time.Time) error {
			return audit.AppendApproval(ctx, &models.Approval{
				ID:           uuid.New(),
				AssessmentID: a.ID,
				Stage:        enums.ApprovalStageDigital,
				ApprovedBy:   actorPtr(input.ActorID),
				CreatedAt:    now,
			})
		},
	})
}

func (s *service) RequestRevision(ctx context.Context, input RevisionInput) (*models.Assessment, error) {
	feedback := strings.TrimSpace(input.Feedback)
	if feedback == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "feedback is required")
	}
	return s.apply(ctx, transition{
		action: enums.AssessmentActionRequestRevision,
		input:  input.TransitionInput,
		columns: func(now time.Time) map[string]any {
			return map[string]any{"revision_requested_at": setOnce("revision_requested_at", now)}
		},
		audit: func(ctx context.Context, audit AuditRepository, a *models.Assessment, now time.Time) error {
			return audit.AppendRevision(ctx, &models.Revision{
				ID:           uuid.New(),
				AssessmentID: a.ID,
				Feedback:     feedback,
				RequestedBy:  actorPtr(input.ActorID),
				CreatedAt:    now,
			})
		},
	})
}

func (s *service) Reject(ctx context.Context, input RejectInput) (*models.Assessment, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason is required")
	}
	if !input.Stage.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stage must be digital or physical")
	}
	return s.apply(ctx, transition{
		action: enums.AssessmentActionReject,
		input:  input.TransitionInput,
		source: input.Stage.ReviewStatus(),
		columns: func(now time.Time) map[string]any {
			return map[string]any{"rejected_at": setOnce("rejected_at", now)}
		},
		audit: func(ctx context.Context, audit AuditRepository, a *models.Assessment, now time.Time) error {
			return audit.AppendRejection(ctx, &models.Rejection{
				ID:           uuid.New(),
				AssessmentID: a.ID,
				Stage:        input.Stage,
				Reason:       reason,
				RejectedBy:   actorPtr(input.ActorID),
				CreatedAt:    now,
			})
		},
	})
}

func (s *service) SubmitSample(ctx context.Context, input SampleInput) (*models.Assessment, error) {
	logistics := strings.TrimSpace(input.Logistics)
	if logistics == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logistics is required")
	}
	return s.apply(ctx, transition{
		action: enums.AssessmentActionSubmitSample,
		input:  input.TransitionInput,
		columns: func(time.Time) map[string]any {
			return map[string]any{"logistics": logistics}
		},
		audit: func(ctx context.Context, audit AuditRepository, a *models.Assessment, now time.Time) error {
			return audit.AppendLogistics(ctx, &models.LogisticsRecord{
				ID:           uuid.New(),
				AssessmentID: a.ID,
				Logistics:    logistics,
				SubmittedBy:  actorPtr(input.ActorID),
				CreatedAt:    now,
			})
		},
	})
}

func (s *service) ApprovePhysical(ctx context.Context, input TransitionInput) (*models.Assessment, error) {
	return s.apply(ctx, transition{
		action: enums.AssessmentActionApprovePhysical,
		input:  input,
		columns: func(now time.Time) map[string]any {
			return map[string]any{"verified_at": setOnce("verified_at", now)}
		},
		audit: func(ctx context.Context, audit AuditRepository, a *models.Assessment, now time.Time) error {
			return audit.AppendApproval(ctx, &models.Approval{
				ID:           uuid.New(),
				AssessmentID: a.ID,
				Stage:        enums.ApprovalStagePhysical,
				ApprovedBy:   actorPtr(input.ActorID),
				CreatedAt:    now,
			})
		},
	})
}

// Resubmit refreshes submitted_at and writes no audit record.
func (s *service) Resubmit(ctx context.Context, input TransitionInput) (*models.Assessment, error) {
	return s.apply(ctx, transition{
		action: enums.AssessmentActionResubmit,
		input:  input,
		columns: func(now time.Time) map[string]any {
			return map[string]any{"submitted_at": now}
		},
	})
}

// apply runs a transition as one unit: CAS status write, audit append,
// visibility sync and outbox event commit or roll back together.
func (s *service) apply(ctx context.Context, t transition) (*models.Assessment, error) {
	if t.input.ListingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	if expected := t.input.ExpectedStatus; expected != nil {
		if _, ok := expected.Next(t.action); !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s is not allowed from %s", t.action, *expected)).
				WithDetails(map[string]any{"allowed_statuses": enums.SourceStatuses(t.action)})
		}
		if t.source != "" && *expected != t.source {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "expected status does not match rejection stage")
		}
	}

	now := s.now()
	var (
		from, to         enums.AssessmentStatus
		updated          *models.Assessment
		visibilityStatus enums.VisibilityStatus
	)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.FindByListingID(ctx, t.input.ListingID)
		if err != nil {
			return notFoundOr(err, "assessment not found", "load assessment")
		}
		if t.action.Actor() == enums.ActorRoleSeller && t.input.ActorID != uuid.Nil && t.input.ActorID != current.CreatedBy {
			return pkgerrors.New(pkgerrors.CodeForbidden, "assessment does not belong to seller")
		}

		from = sourceStatus(t, current.Status)
		next, ok := from.Next(t.action)
		if !ok || current.Status != from {
			return conflictError(t.action, from, current.Status)
		}
		to = next

		columns := t.columns(now)
		columns["status"] = to
		columns["updated_at"] = now
		affected, err := repo.CompareAndSwap(ctx, current.ID, from, columns)
		if err != nil {
			return err
		}
		if affected == 0 {
			return conflictError(t.action, from, "")
		}

		updated, err = repo.FindByID(ctx, current.ID)
		if err != nil {
			return err
		}

		if t.audit != nil {
			if err := t.audit(ctx, s.audit.WithTx(tx), updated, now); err != nil {
				return err
			}
		}

		visibilityStatus, err = s.visibility.Sync(ctx, tx, updated)
		if err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventAssessmentStatusChanged,
			AggregateType: enums.AggregateAssessment,
			AggregateID:   updated.ID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.AssessmentStatusChangedEvent{
				AssessmentID:     updated.ID,
				ListingID:        updated.ListingID,
				Action:           t.action,
				FromStatus:       from,
				ToStatus:         to,
				VisibilityStatus: visibilityStatus,
				ChangedAt:        now,
			},
		}
		if t.input.ActorID != uuid.Nil {
			event.Actor = &outbox.ActorRef{UserID: t.input.ActorID, Role: t.action.Actor().String()}
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeConflict {
			s.metrics.IncConflict(t.action.String())
			if s.logg != nil {
				logCtx := s.logg.WithListingID(ctx, t.input.ListingID.String())
				s.logg.Warn(s.logg.WithFields(logCtx, map[string]any{
					"action":  t.action,
					"details": typed.Details(),
				}), "assessment.transition.conflict")
			}
		}
		return nil, classifyWriteError(err, "apply assessment transition")
	}

	s.metrics.IncTransition(from.String(), to.String())
	if s.logg != nil {
		logCtx := s.logg.WithAssessmentID(s.logg.WithListingID(ctx, updated.ListingID.String()), updated.ID.String())
		s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
			"action":            t.action,
			"from":              from,
			"to":                to,
			"visibility_status": visibilityStatus,
		}), "assessment.transition")
	}
	return updated, nil
}

func sourceStatus(t transition, current enums.AssessmentStatus) enums.AssessmentStatus {
	if t.source != "" {
		return t.source
	}
	if t.input.ExpectedStatus != nil {
		return *t.input.ExpectedStatus
	}
	return current
}

// conflictError reports a lost race or a transition from the wrong status.
// actual is empty when the CAS write found the row already moved.
func conflictError(action enums.AssessmentAction, expected, actual enums.AssessmentStatus) error {
	details := map[string]any{
		"action":          action,
		"expected_status": expected,
	}
	if _, ok := expected.Next(action); !ok {
		details["expected_status"] = enums.SourceStatuses(action)
	}
	if actual != "" {
		details["actual_status"] = actual
	}
	return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("assessment status does not allow %s", action)).WithDetails(details)
}

// setOnce writes now only if the column is still NULL.
func setOnce(column string, now time.Time) any {
	return gorm.Expr("COALESCE("+column+", ?)", now)
}

func actorPtr(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
