package assessments

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/listing-qa-backend/pkg/db/models"
	"github.com/angelmondragon/listing-qa-backend/pkg/enums"
	pkgpagination "github.com/angelmondragon/listing-qa-backend/pkg/pagination"
)

// CreateResult reports what CreateAssessment did. Created is false when the
// listing already had an assessment and the existing one is returned.
type CreateResult struct {
	Assessment *models.Assessment
	Created    bool
	Bypassed   bool
}

// TransitionInput addresses an assessment by its listing. ExpectedStatus pins
// the source status; the write fails with a conflict if the row moved.
type TransitionInput struct {
	ListingID      uuid.UUID
	ActorID        uuid.UUID
	ExpectedStatus *enums.AssessmentStatus
}

type RejectInput struct {
	TransitionInput
	Stage  enums.RejectionStage
	Reason string
}

type RevisionInput struct {
	TransitionInput
	Feedback string
}

type SampleInput struct {
	TransitionInput
	Logistics string
}

type ListParams struct {
	Status *enums.AssessmentStatus
	pkgpagination.Params
}

type ListResult = pkgpagination.Page[View]

type listQuery struct {
	status *enums.AssessmentStatus
	limit  int
	cursor *pkgpagination.Cursor
}

// View is the JSON shape of an assessment.
type View struct {
	ID                  uuid.UUID              `json:"id"`
	ListingID           uuid.UUID              `json:"listing_id"`
	Status              enums.AssessmentStatus `json:"status"`
	SubmittedAt         *time.Time             `json:"submitted_at"`
	ApprovedAt          *time.Time             `json:"approved_at"`
	VerifiedAt          *time.Time             `json:"verified_at"`
	RejectedAt          *time.Time             `json:"rejected_at"`
	RevisionRequestedAt *time.Time             `json:"revision_requested_at"`
	Logistics           *string                `json:"logistics"`
	CreatedBy           uuid.UUID              `json:"created_by"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

func ToView(m *models.Assessment) View {
	return View{
		ID:                  m.ID,
		ListingID:           m.ListingID,
		Status:              m.Status,
		SubmittedAt:         m.SubmittedAt,
		ApprovedAt:          m.ApprovedAt,
		VerifiedAt:          m.VerifiedAt,
		RejectedAt:          m.RejectedAt,
		RevisionRequestedAt: m.RevisionRequestedAt,
		Logistics:           m.Logistics,
		CreatedBy:           m.CreatedBy,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

// AuditKind names the audit table an entry came from.
type AuditKind string

const (
	AuditKindApproval  AuditKind = "approval"
	AuditKindRejection AuditKind = "rejection"
	AuditKindRevision  AuditKind = "revision"
	AuditKindLogistics AuditKind = "logistics"
)

// Decisions holds the most recent record of each audit kind. A kind with
// no records is nil.
type Decisions struct {
	Approval  *AuditEntry `json:"latest_approval"`
	Rejection *AuditEntry `json:"latest_rejection"`
	Revision  *AuditEntry `json:"latest_revision"`
	Logistics *AuditEntry `json:"latest_logistics"`
}

// AuditEntry flattens the four audit record kinds into one timeline row.
type AuditEntry struct {
	ID           uuid.UUID  `json:"id"`
	AssessmentID uuid.UUID  `json:"assessment_id"`
	Kind         AuditKind  `json:"kind"`
	Stage        string     `json:"stage,omitempty"`
	Text         string     `json:"text,omitempty"`
	ActorID      *uuid.UUID `json:"actor_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func approvalEntry(rec models.Approval) AuditEntry {
	entry := AuditEntry{
		ID:           rec.ID,
		AssessmentID: rec.AssessmentID,
		Kind:         AuditKindApproval,
		Stage:        rec.Stage.String(),
		ActorID:      rec.ApprovedBy,
		CreatedAt:    rec.CreatedAt,
	}
	if rec.Note != nil {
		entry.Text = *rec.Note
	}
	return entry
}

func rejectionEntry(rec models.Rejection) AuditEntry {
	return AuditEntry{
		ID:           rec.ID,
		AssessmentID: rec.AssessmentID,
		Kind:         AuditKindRejection,
		Stage:        rec.Stage.String(),
		Text:         rec.Reason,
		ActorID:      rec.RejectedBy,
		CreatedAt:    rec.CreatedAt,
	}
}

func revisionEntry(rec models.Revision) AuditEntry {
	return AuditEntry{
		ID:           rec.ID,
		AssessmentID: rec.AssessmentID,
		Kind:         AuditKindRevision,
		Text:         rec.Feedback,
		ActorID:      rec.RequestedBy,
		CreatedAt:    rec.CreatedAt,
	}
}

func logisticsEntry(rec models.LogisticsRecord) AuditEntry {
	return AuditEntry{
		ID:           rec.ID,
		AssessmentID: rec.AssessmentID,
		Kind:         AuditKindLogistics,
		Text:         rec.Logistics,
		ActorID:      rec.SubmittedBy,
		CreatedAt:    rec.CreatedAt,
	}
}
