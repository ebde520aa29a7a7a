package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/listing-qa-backend/pkg/enums"
)

// Listing is the catalog-owned entity. This service reads its identity and
// seller and writes only visibility_status.
type Listing struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID         uuid.UUID              `gorm:"column:seller_id;type:uuid;not null"`
	Title            string                 `gorm:"column:title;not null"`
	VisibilityStatus enums.VisibilityStatus `gorm:"column:visibility_status;type:visibility_status;not null;default:'pending'"`
	IsActive         bool                   `gorm:"column:is_active;not null;default:true"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
