package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/listing-qa-backend/pkg/enums"
)

// Audit rows are append-only and only disappear when their assessment is deleted.

type Approval struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AssessmentID uuid.UUID           `gorm:"column:assessment_id;type:uuid;not null;index"`
	Stage        enums.ApprovalStage `gorm:"column:stage;not null"`
	Note         *string             `gorm:"column:note"`
	ApprovedBy   *uuid.UUID          `gorm:"column:approved_by;type:uuid"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
}

type Rejection struct {
	ID           uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AssessmentID uuid.UUID            `gorm:"column:assessment_id;type:uuid;not null;index"`
	Stage        enums.RejectionStage `gorm:"column:stage;type:rejection_stage;not null"`
	Reason       string               `gorm:"column:reason;not null"`
	RejectedBy   *uuid.UUID           `gorm:"column:rejected_by;type:uuid"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime"`
}

type Revision struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AssessmentID uuid.UUID  `gorm:"column:assessment_id;type:uuid;not null;index"`
	Feedback     string     `gorm:"column:feedback;not null"`
	RequestedBy  *uuid.UUID `gorm:"column:requested_by;type:uuid"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
}

type LogisticsRecord struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AssessmentID uuid.UUID  `gorm:"column:assessment_id;type:uuid;not null;index"`
	Logistics    string     `gorm:"column:logistics;not null"`
	SubmittedBy  *uuid.UUID `gorm:"column:submitted_by;type:uuid"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
}
