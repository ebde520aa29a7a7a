package payloads

import (
	"time"

	"github.com/angelmondragon/listing-qa-backend/pkg/enums"
	"github.com/google/uuid"
)

// AssessmentCreatedEvent announces the single assessment opened for a listing.
type AssessmentCreatedEvent struct {
	AssessmentID     uuid.UUID              `json:"assessment_id"`
	ListingID        uuid.UUID              `json:"listing_id"`
	SellerID         uuid.UUID              `json:"seller_id"`
	Status           enums.AssessmentStatus `json:"status"`
	VisibilityStatus enums.VisibilityStatus `json:"visibility_status"`
	Bypassed         bool                   `json:"bypassed"`
}

// AssessmentStatusChangedEvent is emitted for every committed transition.
type AssessmentStatusChangedEvent struct {
	AssessmentID     uuid.UUID              `json:"assessment_id"`
	ListingID        uuid.UUID              `json:"listing_id"`
	Action           enums.AssessmentAction `json:"action"`
	FromStatus       enums.AssessmentStatus `json:"from_status"`
	ToStatus         enums.AssessmentStatus `json:"to_status"`
	VisibilityStatus enums.VisibilityStatus `json:"visibility_status"`
	ChangedAt        time.Time              `json:"changed_at"`
}

// SellerTierChangedEvent records a tier upsert. It never affects existing assessments.
type SellerTierChangedEvent struct {
	SellerID           uuid.UUID             `json:"seller_id"`
	TierLevel          enums.SellerTierLevel `json:"tier_level"`
	BypassesAssessment bool                  `json:"bypasses_assessment"`
}
