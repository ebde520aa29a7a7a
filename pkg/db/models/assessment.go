package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/listing-qa-backend/pkg/enums"
)

// Assessment tracks one listing's QA lifecycle. ID and ListingID are separate
// identities and are never interchangeable.
type Assessment struct {
	ID                  uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ListingID           uuid.UUID              `gorm:"column:listing_id;type:uuid;not null;uniqueIndex"`
	Status              enums.AssessmentStatus `gorm:"column:status;type:assessment_status;not null;default:'pending_digital_review'"`
	SubmittedAt         *time.Time             `gorm:"column:submitted_at"`
	ApprovedAt          *time.Time             `gorm:"column:approved_at"`
	VerifiedAt          *time.Time             `gorm:"column:verified_at"`
	RejectedAt          *time.Time             `gorm:"column:rejected_at"`
	RevisionRequestedAt *time.Time             `gorm:"column:revision_requested_at"`
	Logistics           *string                `gorm:"column:logistics"`
	CreatedBy           uuid.UUID              `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt           time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
