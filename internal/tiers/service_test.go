package tiers

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/listing-qa-backend/pkg/db"
	"github.com/angelmondragon/listing-qa-backend/pkg/db/dbtest"
	"github.com/angelmondragon/listing-qa-backend/pkg/db/models"
	"github.com/angelmondragon/listing-qa-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/listing-qa-backend/pkg/errors"
	"github.com/angelmondragon/listing-qa-backend/pkg/outbox"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), db.NewFromConn(conn), outbox.NewService(outbox.NewRepository(conn), nil), nil)
	require.NoError(t, err)
	return svc, conn
}

func TestIsBypassEligible(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		level    enums.SellerTierLevel
		bypasses bool
		want     bool
	}{
		{name: "standard with flag", level: enums.SellerTierStandard, bypasses: true, want: false},
		{name: "premium outlet without flag", level: enums.SellerTierPremiumOutlet, bypasses: false, want: false},
		{name: "premium outlet with flag", level: enums.SellerTierPremiumOutlet, bypasses: true, want: true},
		{name: "trusted brand with flag", level: enums.SellerTierTrustedBrand, bypasses: true, want: true},
		{name: "trusted brand without flag", level: enums.SellerTierTrustedBrand, bypasses: false, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sellerID := uuid.New()
			_, err := svc.UpsertTier(ctx, UpsertTierInput{SellerID: sellerID, TierLevel: tc.level, BypassesAssessment: tc.bypasses})
			require.NoError(t, err)

			got, err := svc.IsBypassEligible(ctx, sellerID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIsBypassEligibleMissingTier(t *testing.T) {
	svc, _ := newTestService(t)

	got, err := svc.IsBypassEligible(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, got)
}

func TestUpsertTierOverwritesAndEmits(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	sellerID := uuid.New()

	_, err := svc.UpsertTier(ctx, UpsertTierInput{SellerID: sellerID, TierLevel: enums.SellerTierStandard})
	require.NoError(t, err)
	tier, err := svc.UpsertTier(ctx, UpsertTierInput{
		SellerID:           sellerID,
		TierLevel:          enums.SellerTierTrustedBrand,
		BypassesAssessment: true,
		ActorUserID:        uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, enums.SellerTierTrustedBrand, tier.TierLevel)
	assert.True(t, tier.BypassesAssessment)

	var count int64
	require.NoError(t, conn.Model(&models.SellerTier{}).Where("seller_id = ?", sellerID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var events []models.OutboxEvent
	require.NoError(t, conn.Where("aggregate_id = ?", sellerID).Find(&events).Error)
	require.Len(t, events, 2)
	for _, event := range events {
		assert.Equal(t, enums.EventSellerTierChanged, event.EventType)
	}
}

func TestUpsertTierValidation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.UpsertTier(context.Background(), UpsertTierInput{SellerID: uuid.New(), TierLevel: "gold"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.UpsertTier(context.Background(), UpsertTierInput{TierLevel: enums.SellerTierStandard})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestGetTierNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetTier(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

type failingRepo struct {
	Repository
}

func (failingRepo) FindBySellerID(context.Context, uuid.UUID) (*models.SellerTier, error) {
	return nil, errors.New("connection reset")
}

func TestIsBypassEligibleSurfacesStorageErrors(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(failingRepo{NewRepository(conn)}, db.NewFromConn(conn), outbox.NewService(outbox.NewRepository(conn), nil), nil)
	require.NoError(t, err)

	_, err = svc.IsBypassEligible(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}
