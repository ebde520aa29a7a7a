package assessments

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/listing-qa-backend/internal/listings"
	"github.com/angelmondragon/listing-qa-backend/pkg/db/models"
	"github.com/angelmondragon/listing-qa-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/listing-qa-backend/pkg/errors"
	"github.com/angelmondragon/listing-qa-backend/pkg/visibility"
)

// VisibilitySynchronizer is the only writer of listings.visibility_status.
type VisibilitySynchronizer struct {
	listings listings.Repository
}

func NewVisibilitySynchronizer(repo listings.Repository) (*VisibilitySynchronizer, error) {
	if repo == nil {
		return nil, fmt.Errorf("listing repository required")
	}
	return &VisibilitySynchronizer{listings: repo}, nil
}

// Sync writes the visibility derived from the assessment's status. It must run
// in the same transaction as the status write.
func (v *VisibilitySynchronizer) Sync(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) (enums.VisibilityStatus, error) {
	status := visibility.ForAssessmentStatus(assessment.Status)
	affected, err := v.listings.WithTx(tx).UpdateVisibility(ctx, assessment.ListingID, status)
	if err != nil {
		return "", err
	}
	if affected == 0 {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
	}
	return status, nil
}
