package tiers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/listing-qa-backend/pkg/db/models"
	"github.com/angelmondragon/listing-qa-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/listing-qa-backend/pkg/errors"
	"github.com/angelmondragon/listing-qa-backend/pkg/logger"
	"github.com/angelmondragon/listing-qa-backend/pkg/outbox"
	"github.com/angelmondragon/listing-qa-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service resolves and administers seller tiers.
type Service interface {
	IsBypassEligible(ctx context.Context, sellerID uuid.UUID) (bool, error)
	GetTier(ctx context.Context, sellerID uuid.UUID) (*models.SellerTier, error)
	UpsertTier(ctx context.Context, input UpsertTierInput) (*models.SellerTier, error)
}

// UpsertTierInput carries an admin's tier assignment.
type UpsertTierInput struct {
	SellerID           uuid.UUID
	TierLevel          enums.SellerTierLevel
	BypassesAssessment bool
	ActorUserID        uuid.UUID
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
	now    func() time.Time
}

// NewService builds the tier service.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("tier repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outbox,
		logg:   logg,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// IsBypassEligible is true only for a bypass-capable tier with the flag set.
// Sellers without a tier row are treated as standard.
func (s *service) IsBypassEligible(ctx context.Context, sellerID uuid.UUID) (bool, error) {
	if sellerID == uuid.Nil {
		return false, nil
	}
	tier, err := s.repo.FindBySellerID(ctx, sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller tier")
	}
	return tier.TierLevel.SupportsBypass() && tier.BypassesAssessment, nil
}

func (s *service) GetTier(ctx context.Context, sellerID uuid.UUID) (*models.SellerTier, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	tier, err := s.repo.FindBySellerID(ctx, sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller tier not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller tier")
	}
	return tier, nil
}

// UpsertTier replaces the seller's tier. Existing assessments are not revisited.
func (s *service) UpsertTier(ctx context.Context, input UpsertTierInput) (*models.SellerTier, error) {
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id required")
	}
	if !input.TierLevel.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid tier level")
	}

	now := s.now()
	tier := &models.SellerTier{
		SellerID:           input.SellerID,
		TierLevel:          input.TierLevel,
		BypassesAssessment: input.BypassesAssessment,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Upsert(ctx, tier); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert seller tier")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventSellerTierChanged,
			AggregateType: enums.AggregateSellerTier,
			AggregateID:   tier.SellerID,
			Version:       1,
			OccurredAt:    now,
			Data: payloads.SellerTierChangedEvent{
				SellerID:           tier.SellerID,
				TierLevel:          tier.TierLevel,
				BypassesAssessment: tier.BypassesAssessment,
			},
		}
		if input.ActorUserID != uuid.Nil {
			event.Actor = &outbox.ActorRef{UserID: input.ActorUserID, Role: enums.ActorRoleAdmin.String()}
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit tier event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		fields := map[string]any{
			"seller_id":           tier.SellerID.String(),
			"tier_level":          tier.TierLevel,
			"bypasses_assessment": tier.BypassesAssessment,
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "seller_tier.upserted")
	}

	return s.GetTier(ctx, input.SellerID)
}
