package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/listing-qa-backend/pkg/enums"
)

// SellerTier holds at most one row per seller.
type SellerTier struct {
	SellerID           uuid.UUID             `gorm:"column:seller_id;type:uuid;primaryKey"`
	TierLevel          enums.SellerTierLevel `gorm:"column:tier_level;type:seller_tier_level;not null;default:'standard'"`
	BypassesAssessment bool                  `gorm:"column:bypasses_assessment;not null;default:false"`
	CreatedAt          time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
