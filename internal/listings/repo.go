package listings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/listing-qa-backend/pkg/db/models"
	"github.com/angelmondragon/listing-qa-backend/pkg/enums"
)

// Repository reads catalog listings and writes the one column this service owns.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	UpdateVisibility(ctx context.Context, id uuid.UUID, status enums.VisibilityStatus) (int64, error)
	FindWithoutAssessment(ctx context.Context, after uuid.UUID, limit int) ([]models.Listing, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a listing repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

// UpdateVisibility returns the number of listings touched so callers can detect a vanished row.
func (r *repository) UpdateVisibility(ctx context.Context, id uuid.UUID, status enums.VisibilityStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ?", id).
		Update("visibility_status", status)
	return res.RowsAffected, res.Error
}

// FindWithoutAssessment pages through listings that have no assessment row,
// ordered by id. Pass uuid.Nil to start from the beginning.
func (r *repository) FindWithoutAssessment(ctx context.Context, after uuid.UUID, limit int) ([]models.Listing, error) {
	query := r.db.WithContext(ctx).
		Table("listings AS l").
		Select("l.*").
		Joins("LEFT JOIN assessments a ON a.listing_id = l.id").
		Where("a.id IS NULL")
	if after != uuid.Nil {
		query = query.Where("l.id > ?", after)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.Listing
	if err := query.Order("l.id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
