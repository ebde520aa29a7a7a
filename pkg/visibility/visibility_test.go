package visibility

import (
	"testing"

	"github.com/angelmondragon/listing-qa-backend/pkg/db/models"
	"github.com/angelmondragon/listing-qa-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/listing-qa-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForAssessmentStatusIsTotal(t *testing.T) {
	want := map[enums.AssessmentStatus]enums.VisibilityStatus{
		enums.AssessmentStatusPendingDigitalReview:  enums.VisibilityStatusPending,
		enums.AssessmentStatusWaitingForSample:      enums.VisibilityStatusPending,
		enums.AssessmentStatusPendingPhysicalReview: enums.VisibilityStatusPending,
		enums.AssessmentStatusForRevision:           enums.VisibilityStatusPending,
		enums.AssessmentStatusRejected:              enums.VisibilityStatusRejected,
		enums.AssessmentStatusVerified:              enums.VisibilityStatusApproved,
	}

	for _, status := range enums.AssessmentStatuses() {
		expected, ok := want[status]
		require.True(t, ok, "status %s missing from expectations", status)
		assert.Equal(t, expected, ForAssessmentStatus(status), "status %s", status)
	}
	assert.Equal(t, enums.VisibilityStatusPending, ForAssessmentStatus("unknown"))
}

func TestEnsureListingVisible(t *testing.T) {
	cases := []struct {
		name    string
		listing *models.Listing
		wantErr bool
	}{
		{name: "nil listing", listing: nil, wantErr: true},
		{name: "pending", listing: &models.Listing{VisibilityStatus: enums.VisibilityStatusPending, IsActive: true}, wantErr: true},
		{name: "rejected", listing: &models.Listing{VisibilityStatus: enums.VisibilityStatusRejected, IsActive: true}, wantErr: true},
		{name: "approved inactive", listing: &models.Listing{VisibilityStatus: enums.VisibilityStatusApproved, IsActive: false}, wantErr: true},
		{name: "approved active", listing: &models.Listing{VisibilityStatus: enums.VisibilityStatusApproved, IsActive: true}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := EnsureListingVisible(tc.listing)
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
		})
	}
}
