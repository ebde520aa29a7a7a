package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssessmentStatusNext(t *testing.T) {
	cases := []struct {
		from   AssessmentStatus
		action AssessmentAction
		to     AssessmentStatus
	}{
		{AssessmentStatusPendingDigitalReview, AssessmentActionApproveDigital, AssessmentStatusWaitingForSample},
		{AssessmentStatusPendingDigitalReview, AssessmentActionRequestRevision, AssessmentStatusForRevision},
		{AssessmentStatusPendingDigitalReview, AssessmentActionReject, AssessmentStatusRejected},
		{AssessmentStatusWaitingForSample, AssessmentActionSubmitSample, AssessmentStatusPendingPhysicalReview},
		{AssessmentStatusPendingPhysicalReview, AssessmentActionApprovePhysical, AssessmentStatusVerified},
		{AssessmentStatusPendingPhysicalReview, AssessmentActionReject, AssessmentStatusRejected},
		{AssessmentStatusPendingPhysicalReview, AssessmentActionRequestRevision, AssessmentStatusForRevision},
		{AssessmentStatusForRevision, AssessmentActionResubmit, AssessmentStatusPendingDigitalReview},
	}

	for _, tc := range cases {
		to, ok := tc.from.Next(tc.action)
		require.True(t, ok, "%s --%s--> expected legal", tc.from, tc.action)
		assert.Equal(t, tc.to, to)
	}
}

func TestAssessmentStatusTerminalHasNoExits(t *testing.T) {
	for _, status := range []AssessmentStatus{AssessmentStatusRejected, AssessmentStatusVerified} {
		require.True(t, status.IsTerminal())
		for _, action := range validAssessmentActions {
			_, ok := status.Next(action)
			assert.False(t, ok, "%s should not accept %s", status, action)
		}
	}
}

func TestAssessmentStatusIllegalEdges(t *testing.T) {
	_, ok := AssessmentStatusWaitingForSample.Next(AssessmentActionApprovePhysical)
	assert.False(t, ok)
	_, ok = AssessmentStatusForRevision.Next(AssessmentActionApproveDigital)
	assert.False(t, ok)
	_, ok = AssessmentStatus("PENDING").Next(AssessmentActionApproveDigital)
	assert.False(t, ok)
}

func TestSourceStatuses(t *testing.T) {
	assert.Equal(t,
		[]AssessmentStatus{AssessmentStatusPendingDigitalReview, AssessmentStatusPendingPhysicalReview},
		SourceStatuses(AssessmentActionRequestRevision),
	)
	assert.Equal(t, []AssessmentStatus{AssessmentStatusWaitingForSample}, SourceStatuses(AssessmentActionSubmitSample))
}

func TestParseAssessmentStatusRejectsLegacyValues(t *testing.T) {
	_, err := ParseAssessmentStatus("PENDING_REVIEW")
	assert.Error(t, err)

	got, err := ParseAssessmentStatus("for_revision")
	require.NoError(t, err)
	assert.Equal(t, AssessmentStatusForRevision, got)
}

func TestActionActor(t *testing.T) {
	assert.Equal(t, ActorRoleSeller, AssessmentActionSubmitSample.Actor())
	assert.Equal(t, ActorRoleSeller, AssessmentActionResubmit.Actor())
	assert.Equal(t, ActorRoleAdmin, AssessmentActionReject.Actor())
}

func TestSellerTierSupportsBypass(t *testing.T) {
	assert.False(t, SellerTierStandard.SupportsBypass())
	assert.True(t, SellerTierPremiumOutlet.SupportsBypass())
	assert.True(t, SellerTierTrustedBrand.SupportsBypass())
}

func TestRejectionStageReviewStatus(t *testing.T) {
	assert.Equal(t, AssessmentStatusPendingDigitalReview, RejectionStageDigital.ReviewStatus())
	assert.Equal(t, AssessmentStatusPendingPhysicalReview, RejectionStagePhysical.ReviewStatus())
}
