package tiers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/listing-qa-backend/pkg/db/models"
)

// Repository persists seller tiers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindBySellerID(ctx context.Context, sellerID uuid.UUID) (*models.SellerTier, error)
	Upsert(ctx context.Context, tier *models.SellerTier) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a tier repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindBySellerID(ctx context.Context, sellerID uuid.UUID) (*models.SellerTier, error) {
	var tier models.SellerTier
	if err := r.db.WithContext(ctx).Where("seller_id = ?", sellerID).First(&tier).Error; err != nil {
		return nil, err
	}
	return &tier, nil
}

// Upsert keeps the one-row-per-seller invariant by overwriting on seller_id.
func (r *repository) Upsert(ctx context.Context, tier *models.SellerTier) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "seller_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"tier_level", "bypasses_assessment", "updated_at"}),
		}).
		Create(tier).Error
}
