package assessments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/listing-qa-backend/pkg/db/models"
	"github.com/angelmondragon/listing-qa-backend/pkg/enums"
	pkgpagination "github.com/angelmondragon/listing-qa-backend/pkg/pagination"
)

// Repository persists assessments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, assessment *models.Assessment) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Assessment, error)
	FindByListingID(ctx context.Context, listingID uuid.UUID) (*models.Assessment, error)
	CompareAndSwap(ctx context.Context, id uuid.UUID, from enums.AssessmentStatus, columns map[string]any) (int64, error)
	List(ctx context.Context, opts listQuery) ([]models.Assessment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs an assessment repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Insert returns false when the listing already has an assessment. The
// listing_id unique constraint decides, so racing inserts never both succeed.
func (r *repository) Insert(ctx context.Context, assessment *models.Assessment) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "listing_id"}},
			DoNothing: true,
		}).
		Create(assessment)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// FindByID matches the assessment's own id only.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Assessment, error) {
	var assessment models.Assessment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&assessment).Error; err != nil {
		return nil, err
	}
	return &assessment, nil
}

func (r *repository) FindByListingID(ctx context.Context, listingID uuid.UUID) (*models.Assessment, error) {
	var assessment models.Assessment
	if err := r.db.WithContext(ctx).Where("listing_id = ?", listingID).First(&assessment).Error; err != nil {
		return nil, err
	}
	return &assessment, nil
}

// CompareAndSwap applies columns only while the row is still in status from.
// Zero affected rows means another writer moved it first.
func (r *repository) CompareAndSwap(ctx context.Context, id uuid.UUID, from enums.AssessmentStatus, columns map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Assessment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(columns)
	return res.RowsAffected, res.Error
}

func (r *repository) List(ctx context.Context, opts listQuery) ([]models.Assessment, error) {
	query := r.db.WithContext(ctx).Model(&models.Assessment{})

	if opts.status != nil {
		query = query.Where("status = ?", *opts.status)
	}
	query = query.Scopes(pkgpagination.Seek("created_at", opts.cursor)).Limit(opts.limit)

	var rows []models.Assessment
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
