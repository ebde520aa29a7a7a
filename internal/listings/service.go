package listings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/listing-qa-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/listing-qa-backend/pkg/errors"
	"github.com/angelmondragon/listing-qa-backend/pkg/visibility"
)

// BuyerVisibility is what the catalog sees when asking whether to show a listing.
type BuyerVisibility struct {
	ListingID        uuid.UUID              `json:"listing_id"`
	VisibilityStatus enums.VisibilityStatus `json:"visibility_status"`
	IsActive         bool                   `json:"is_active"`
	Visible          bool                   `json:"visible"`
}

// Service answers buyer-facing visibility questions.
type Service interface {
	BuyerVisibility(ctx context.Context, listingID uuid.UUID) (*BuyerVisibility, error)
}

type service struct {
	repo Repository
}

// NewService builds the listing visibility service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("listing repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) BuyerVisibility(ctx context.Context, listingID uuid.UUID) (*BuyerVisibility, error) {
	if listingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listing id required")
	}
	listing, err := s.repo.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	return &BuyerVisibility{
		ListingID:        listing.ID,
		VisibilityStatus: listing.VisibilityStatus,
		IsActive:         listing.IsActive,
		Visible:          visibility.EnsureListingVisible(listing) == nil,
	}, nil
}
