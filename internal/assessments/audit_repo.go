package assessments

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/listing-qa-backend/pkg/db/models"
)

// AuditRepository appends and reads audit records. Rows are never updated
// or deleted here; they go away only with their assessment.
type AuditRepository interface {
	WithTx(tx *gorm.DB) AuditRepository
	AppendApproval(ctx context.Context, record *models.Approval) error
	AppendRejection(ctx context.Context, record *models.Rejection) error
	AppendRevision(ctx context.Context, record *models.Revision) error
	AppendLogistics(ctx context.Context, record *models.LogisticsRecord) error
	LatestApproval(ctx context.Context, assessmentID uuid.UUID) (*models.Approval, error)
	LatestRejection(ctx context.Context, assessmentID uuid.UUID) (*models.Rejection, error)
	LatestRevision(ctx context.Context, assessmentID uuid.UUID) (*models.Revision, error)
	LatestLogistics(ctx context.Context, assessmentID uuid.UUID) (*models.LogisticsRecord, error)
	ListTrail(ctx context.Context, assessmentID uuid.UUID) ([]AuditEntry, error)
}

type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository constructs an audit repository tied to the provided GORM DB.
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) WithTx(tx *gorm.DB) AuditRepository {
	if tx == nil {
		return r
	}
	return &auditRepository{db: tx}
}

func (r *auditRepository) AppendApproval(ctx context.Context, record *models.Approval) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *auditRepository) AppendRejection(ctx context.Context, record *models.Rejection) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *auditRepository) AppendRevision(ctx context.Context, record *models.Revision) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *auditRepository) AppendLogistics(ctx context.Context, record *models.LogisticsRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *auditRepository) LatestApproval(ctx context.Context, assessmentID uuid.UUID) (*models.Approval, error) {
	var record models.Approval
	if err := r.newest(ctx, assessmentID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *auditRepository) LatestRejection(ctx context.Context, assessmentID uuid.UUID) (*models.Rejection, error) {
	var record models.Rejection
	if err := r.newest(ctx, assessmentID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *auditRepository) LatestRevision(ctx context.Context, assessmentID uuid.UUID) (*models.Revision, error) {
	var record models.Revision
	if err := r.newest(ctx, assessmentID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *auditRepository) LatestLogistics(ctx context.Context, assessmentID uuid.UUID) (*models.LogisticsRecord, error) {
	var record models.LogisticsRecord
	if err := r.newest(ctx, assessmentID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// ListTrail merges every record kind for the assessment, newest first.
func (r *auditRepository) ListTrail(ctx context.Context, assessmentID uuid.UUID) ([]AuditEntry, error) {
	var approvals []models.Approval
	if err := r.newest(ctx, assessmentID).Find(&approvals).Error; err != nil {
		return nil, err
	}
	var rejections []models.Rejection
	if err := r.newest(ctx, assessmentID).Find(&rejections).Error; err != nil {
		return nil, err
	}
	var revisions []models.Revision
	if err := r.newest(ctx, assessmentID).Find(&revisions).Error; err != nil {
		return nil, err
	}
	var logistics []models.LogisticsRecord
	if err := r.newest(ctx, assessmentID).Find(&logistics).Error; err != nil {
		return nil, err
	}

	entries := make([]AuditEntry, 0, len(approvals)+len(rejections)+len(revisions)+len(logistics))
	for _, rec := range approvals {
		entries = append(entries, approvalEntry(rec))
	}
	for _, rec := range rejections {
		entries = append(entries, rejectionEntry(rec))
	}
	for _, rec := range revisions {
		entries = append(entries, revisionEntry(rec))
	}
	for _, rec := range logistics {
		entries = append(entries, logisticsEntry(rec))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

func (r *auditRepository) newest(ctx context.Context, assessmentID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("assessment_id = ?", assessmentID).
		Order("created_at DESC").
		Order("id DESC")
}
