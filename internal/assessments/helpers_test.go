package assessments

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/listing-qa-backend/internal/listings"
	"github.com/angelmondragon/listing-qa-backend/internal/tiers"
	"github.com/angelmondragon/listing-qa-backend/pkg/db"
	"github.com/angelmondragon/listing-qa-backend/pkg/db/dbtest"
	"github.com/angelmondragon/listing-qa-backend/pkg/db/models"
	"github.com/angelmondragon/listing-qa-backend/pkg/enums"
	"github.com/angelmondragon/listing-qa-backend/pkg/metrics"
	"github.com/angelmondragon/listing-qa-backend/pkg/outbox"
	"github.com/angelmondragon/listing-qa-backend/pkg/visibility"
)

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type harness struct {
	conn     *gorm.DB
	svc      Service
	tiers    tiers.Service
	listings listings.Repository
	audit    AuditRepository
	clock    *stepClock
}

type harnessOption func(*ServiceParams)

func withOutbox(pub outboxPublisher) harnessOption {
	return func(p *ServiceParams) { p.Outbox = pub }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	conn := dbtest.Open(t)
	client := db.NewFromConn(conn)
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), nil)

	tierSvc, err := tiers.NewService(tiers.NewRepository(conn), client, outboxSvc, nil)
	require.NoError(t, err)

	clock := newStepClock()
	listingRepo := listings.NewRepository(conn)
	auditRepo := NewAuditRepository(conn)
	params := ServiceParams{
		Repo:     NewRepository(conn),
		Audit:    auditRepo,
		Listings: listingRepo,
		Tiers:    tierSvc,
		DB:       client,
		Outbox:   outboxSvc,
		Metrics:  metrics.NewAssessmentMetrics(prometheus.NewRegistry()),
		Now:      clock.Now,
	}
	for _, opt := range opts {
		opt(&params)
	}
	svc, err := NewService(params)
	require.NoError(t, err)

	return &harness{
		conn:     conn,
		svc:      svc,
		tiers:    tierSvc,
		listings: listingRepo,
		audit:    auditRepo,
		clock:    clock,
	}
}

// newHarnessOn builds a second service over the harness database with overrides applied.
func newHarnessOn(t *testing.T, h *harness, opts ...harnessOption) Service {
	t.Helper()
	client := db.NewFromConn(h.conn)
	params := ServiceParams{
		Repo:     NewRepository(h.conn),
		Audit:    h.audit,
		Listings: h.listings,
		Tiers:    h.tiers,
		DB:       client,
		Outbox:   outbox.NewService(outbox.NewRepository(h.conn), nil),
		Now:      h.clock.Now,
	}
	for _, opt := range opts {
		opt(&params)
	}
	svc, err := NewService(params)
	require.NoError(t, err)
	return svc
}

func (h *harness) seedListing(t *testing.T, sellerID uuid.UUID) models.Listing {
	t.Helper()
	now := h.clock.Now()
	listing := models.Listing{
		ID:               uuid.New(),
		SellerID:         sellerID,
		Title:            "Oak side table",
		VisibilityStatus: enums.VisibilityStatusPending,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, h.conn.Create(&listing).Error)
	return listing
}

func (h *harness) bypassSeller(t *testing.T, level enums.SellerTierLevel) uuid.UUID {
	t.Helper()
	sellerID := uuid.New()
	_, err := h.tiers.UpsertTier(context.Background(), tiers.UpsertTierInput{
		SellerID:           sellerID,
		TierLevel:          level,
		BypassesAssessment: true,
	})
	require.NoError(t, err)
	return sellerID
}

func (h *harness) visibilityOf(t *testing.T, listingID uuid.UUID) enums.VisibilityStatus {
	t.Helper()
	listing, err := h.listings.FindByID(context.Background(), listingID)
	require.NoError(t, err)
	return listing.VisibilityStatus
}

// requireSynced checks the listing carries exactly the visibility mapped from the assessment.
func (h *harness) requireSynced(t *testing.T, assessment *models.Assessment) {
	t.Helper()
	require.Equal(t, visibility.ForAssessmentStatus(assessment.Status), h.visibilityOf(t, assessment.ListingID))
}

func (h *harness) countAssessments(t *testing.T, listingID uuid.UUID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, h.conn.Model(&models.Assessment{}).Where("listing_id = ?", listingID).Count(&count).Error)
	return count
}

func statusPtr(s enums.AssessmentStatus) *enums.AssessmentStatus {
	return &s
}
