package controllers

import (
	"net/http"

	"github.com/angelmondragon/listing-qa-backend/api/responses"
	"github.com/angelmondragon/listing-qa-backend/api/validators"
	"github.com/angelmondragon/listing-qa-backend/internal/listings"
	pkgerrors "github.com/angelmondragon/listing-qa-backend/pkg/errors"
	"github.com/angelmondragon/listing-qa-backend/pkg/logger"
)

// ListingBuyerVisibility answers whether buyers may see a listing.
func ListingBuyerVisibility(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}
		listingID, err := validators.ParseUUIDParam(r, "listingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		visibility, err := svc.BuyerVisibility(r.Context(), listingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, visibility)
	}
}
