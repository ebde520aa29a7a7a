package visibility

import (
	"github.com/angelmondragon/listing-qa-backend/pkg/db/models"
	"github.com/angelmondragon/listing-qa-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/listing-qa-backend/pkg/errors"
)

// ForAssessmentStatus is the only mapping from QA status to the listing's
// buyer-facing visibility. It is total: unknown statuses stay pending.
func ForAssessmentStatus(status enums.AssessmentStatus) enums.VisibilityStatus {
	switch status {
	case enums.AssessmentStatusVerified:
		return enums.VisibilityStatusApproved
	case enums.AssessmentStatusRejected:
		return enums.VisibilityStatusRejected
	default:
		return enums.VisibilityStatusPending
	}
}

// EnsureListingVisible enforces the buyer criteria so unapproved listings never leak through buyer queries.
func EnsureListingVisible(listing *models.Listing) error {
	if listing == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	if listing.VisibilityStatus != enums.VisibilityStatusApproved {
		return pkgerrors.New(pkgerrors.CodeNotFound, "listing not approved")
	}
	if !listing.IsActive {
		return pkgerrors.New(pkgerrors.CodeNotFound, "listing inactive")
	}
	return nil
}
