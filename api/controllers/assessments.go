package controllers

import (
	"net/http"

	"github.com/angelmondragon/listing-qa-backend/api/controllers/actorcontext"
	"github.com/angelmondragon/listing-qa-backend/api/responses"
	"github.com/angelmondragon/listing-qa-backend/api/validators"
	"github.com/angelmondragon/listing-qa-backend/internal/assessments"
	"github.com/angelmondragon/listing-qa-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/listing-qa-backend/pkg/errors"
	"github.com/angelmondragon/listing-qa-backend/pkg/logger"
)

type sampleRequest struct {
	Logistics      string `json:"logistics" validate:"required,max=4000"`
	ExpectedStatus string `json:"expected_status"`
}

type resubmitRequest struct {
	ExpectedStatus string `json:"expected_status"`
}

type createAssessmentResponse struct {
	Assessment assessments.View `json:"assessment"`
	Created    bool             `json:"created"`
	Bypassed   bool             `json:"bypassed"`
}

// SellerCreateAssessment opens the assessment for a listing owned by the caller.
// A repeat call returns the existing assessment with created=false.
func SellerCreateAssessment(svc assessments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assessment service unavailable"))
			return
		}

		sellerID, err := actorcontext.ResolveActorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listingID, err := validators.ParseUUIDParam(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateAssessment(r.Context(), listingID, sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusOK
		if result.Created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, createAssessmentResponse{
			Assessment: assessments.ToView(result.Assessment),
			Created:    result.Created,
			Bypassed:   result.Bypassed,
		})
	}
}

// SellerGetAssessment returns the status of the caller's listing assessment.
func SellerGetAssessment(svc assessments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assessment service unavailable"))
			return
		}

		assessment, err := sellerOwnedAssessment(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assessments.ToView(assessment))
	}
}

// SellerAssessmentAudit lists the review history of the caller's listing, newest first.
func SellerAssessmentAudit(svc assessments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assessment service unavailable"))
			return
		}

		assessment, err := sellerOwnedAssessment(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		trail, err := svc.ListAuditTrail(r.Context(), assessment.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, trail)
	}
}

// SellerAssessmentDecisions returns the latest approval, rejection reason,
// revision feedback and logistics note for the caller's listing.
func SellerAssessmentDecisions(svc assessments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "assessment service unavailable"))
			return
		}

		assessment, err := sellerOwnedAssessment(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		decisions, err := svc.LatestDecisions(r.Context(), assessment.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, decisions)
	}
}

// sellerOwnedAssessment loads the assessment of the listing in the URL and
// refuses callers that did not create it.
func sellerOwnedAssessment(r *http.Request, svc assessments.Service) (*models.Assessment, error) {
	sellerID, err := actorcontext.ResolveActorID(r)
	if err != nil {
		return nil, err
	}
	listingID, err := validators.ParseUUIDParam(r, "listingId")
	if err != nil {
		return nil, err
	}
	assessment, err := svc.GetByListingID(r.Context(), listingID)
	if err != nil {
		return nil, err
	}
	if err := actorcontext.RequireOwner(sellerID, assessment.CreatedBy); err != nil {
		return nil, err
	}
	return assessment, nil
}

// SellerSubmitSample records shipping details for the physical sample.
func SellerSubmitSample(svc assessments.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req sampleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.ExpectedStatus, err = validators.ParseAssessmentStatus(req.ExpectedStatus, "expected_status"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.SubmitSample(r.Context(), assessments.SampleInput{
			TransitionInput: input,
			Logistics:       validators.SanitizeNote(req.Logistics),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assessments.ToView(updated))
	}
}

// SellerResubmit returns a listing sent back for revision to digital review.
func SellerResubmit(svc assessments.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req resubmitRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.ExpectedStatus, err = validators.ParseAssessmentStatus(req.ExpectedStatus, "expected_status"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Resubmit(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, assessments.ToView(updated))
	}
}

func transitionInputFromRequest(r *http.Request) (assessments.TransitionInput, error) {
	actorID, err := actorcontext.ResolveActorID(r)
	if err != nil {
		return assessments.TransitionInput{}, err
	}
	listingID, err := validators.ParseUUIDParam(r, "listingId")
	if err != nil {
		return assessments.TransitionInput{}, err
	}
	return assessments.TransitionInput{ListingID: listingID, ActorID: actorID}, nil
}
