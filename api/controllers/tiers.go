package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/listing-qa-backend/api/controllers/actorcontext"
	"github.com/angelmondragon/listing-qa-backend/api/responses"
	"github.com/angelmondragon/listing-qa-backend/api/validators"
	"github.com/angelmondragon/listing-qa-backend/internal/tiers"
	"github.com/angelmondragon/listing-qa-backend/pkg/db/models"
	"github.com/angelmondragon/listing-qa-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/listing-qa-backend/pkg/errors"
	"github.com/angelmondragon/listing-qa-backend/pkg/logger"
)

type tierRequest struct {
	TierLevel          string `json:"tier_level" validate:"required,oneof=standard premium_outlet trusted_brand"`
	BypassesAssessment bool   `json:"bypasses_assessment"`
}

type tierResponse struct {
	SellerID           uuid.UUID             `json:"seller_id"`
	TierLevel          enums.SellerTierLevel `json:"tier_level"`
	BypassesAssessment bool                  `json:"bypasses_assessment"`
	BypassEligible     bool                  `json:"bypass_eligible"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

func toTierResponse(t *models.SellerTier) tierResponse {
	return tierResponse{
		SellerID:           t.SellerID,
		TierLevel:          t.TierLevel,
		BypassesAssessment: t.BypassesAssessment,
		BypassEligible:     t.TierLevel.SupportsBypass() && t.BypassesAssessment,
		UpdatedAt:          t.UpdatedAt,
	}
}

// AdminGetSellerTier returns the tier assignment of a seller.
func AdminGetSellerTier(svc tiers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tier service unavailable"))
			return
		}
		sellerID, err := validators.ParseUUIDParam(r, "sellerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tier, err := svc.GetTier(r.Context(), sellerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toTierResponse(tier))
	}
}

// AdminUpsertSellerTier assigns a tier. Existing assessments are not affected.
func AdminUpsertSellerTier(svc tiers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tier service unavailable"))
			return
		}
		actorID, err := actorcontext.ResolveActorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sellerID, err := validators.ParseUUIDParam(r, "sellerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req tierRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		level, err := enums.ParseSellerTierLevel(req.TierLevel)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tier level"))
			return
		}

		tier, err := svc.UpsertTier(r.Context(), tiers.UpsertTierInput{
			SellerID:           sellerID,
			TierLevel:          level,
			BypassesAssessment: req.BypassesAssessment,
			ActorUserID:        actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toTierResponse(tier))
	}
}
