package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/listing-qa-backend/api/responses"
	"github.com/angelmondragon/listing-qa-backend/api/validators"
	"github.com/angelmondragon/listing-qa-backend/internal/assessments"
	"github.com/angelmondragon/listing-qa-backend/pkg/db/models"
	"github.com/angelmondragon/listing-qa-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/listing-qa-backend/pkg/errors"
	"github.com/angelmondragon/listing-qa-backend/pkg/logger"
)

type reviewRequest struct {
	ExpectedStatus string `json:"expected_status"`
}

type rejectRequest struct {
	Reason         string `json:"reason" validate:"required,max=4000"`
	Stage          string `json:"stage" validate:"required,oneof=digital physical"`
	ExpectedStatus string `json:"expected_status"`
}

type revisionRequest struct {
	Feedback       string `json:"feedback" validate:"required,max=4000"`
	ExpectedStatus string `json:"expected_status"`
}

// Reconciler is the orphan repair surface exposed to admins.
type Reconciler interface {
	FindOrphans(ctx context.Context) ([]uuid.UUID, error)
	Reconcile(ctx context.Context) (assessments.ReconcileResult, error)
}

type orphansResponse struct {
	Count      int         `json:"count"`
	ListingIDs []uuid.UUID `json:"listing_ids"`
}

// AdminListAssessments returns the review queue, optionally filtered by status.
func AdminListAssessments(svc assessments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assessment service unavailable"))
			return
		}

		pageParams, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := validators.ParseAssessmentStatus(r.URL.Query().Get("status"), "status")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListAssessments(r.Context(), assessments.ListParams{
			Status: status,
			Params: pageParams,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// AdminGetAssessment looks an assessment up by its own id, never by listing id.
func AdminGetAssessment(svc assessments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assessment service unavailable"))
			return
		}

		assessmentID, err := validators.ParseUUIDParam(r, "assessmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		assessment, err := svc.GetByID(r.Context(), assessmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assessments.ToView(assessment))
	}
}

// AdminAssessmentAudit lists the audit trail of an assessment, newest first.
func AdminAssessmentAudit(svc assessments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assessment service unavailable"))
			return
		}

		assessmentID, err := validators.ParseUUIDParam(r, "assessmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		trail, err := svc.ListAuditTrail(r.Context(), assessmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, trail)
	}
}

// AdminApproveDigital moves a listing from digital review to waiting for sample.
func AdminApproveDigital(svc assessments.Service, logg *logger.Logger) http.HandlerFunc {
	return adminReview(svc, logg, assessments.Service.ApproveDigital)
}

// AdminVerify concludes physical review and verifies the listing.
func AdminVerify(svc assessments.Service, logg *logger.Logger) http.HandlerFunc {
	return adminReview(svc, logg, assessments.Service.ApprovePhysical)
}

func adminReview(svc assessments.Service, logg *logger.Logger, action func(assessments.Service, context.Context, assessments.TransitionInput) (*models.Assessment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assessment service unavailable"))
			return
		}

		input, err := transitionInputFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req reviewRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.ExpectedStatus, err = validators.ParseAssessmentStatus(req.ExpectedStatus, "expected_status"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := action(svc, r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assessments.ToView(updated))
	}
}

// AdminReject rejects a listing at the digital or physical stage.
func AdminReject(svc assessments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assessment service unavailable"))
			return
		}

		input, err := transitionInputFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req rejectRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stage, err := enums.ParseRejectionStage(req.Stage)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid rejection stage"))
			return
		}
		if input.ExpectedStatus, err = validators.ParseAssessmentStatus(req.ExpectedStatus, "expected_status"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Reject(r.Context(), assessments.RejectInput{
			TransitionInput: input,
			Stage:           stage,
			Reason:          validators.SanitizeNote(req.Reason),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assessments.ToView(updated))
	}
}

// AdminRequestRevision sends a listing back to the seller with feedback.
func AdminRequestRevision(svc assessments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assessment service unavailable"))
			return
		}

		input, err := transitionInputFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req revisionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.ExpectedStatus, err = validators.ParseAssessmentStatus(req.ExpectedStatus, "expected_status"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.RequestRevision(r.Context(), assessments.RevisionInput{
			TransitionInput: input,
			Feedback:        validators.SanitizeNote(req.Feedback),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assessments.ToView(updated))
	}
}

// AdminListOrphans reports listings that have no assessment. Read-only.
func AdminListOrphans(rec Reconciler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rec == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciler unavailable"))
			return
		}
		ids, err := rec.FindOrphans(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orphansResponse{Count: len(ids), ListingIDs: ids})
	}
}

// AdminReconcile creates missing assessments on demand. Partial failures are
// reported as a dependency error after every orphan was attempted.
func AdminReconcile(rec Reconciler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rec == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciler unavailable"))
			return
		}
		result, err := rec.Reconcile(r.Context())
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reconcile incomplete").WithDetails(map[string]any{
				"found":   result.Found,
				"created": result.Created + result.Bypassed,
				"failed":  result.Failed,
			}))
			return
		}
		responses.WriteSuccess(w, result)
	}
}
