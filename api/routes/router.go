package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/listing-qa-backend/api/controllers"
	"github.com/angelmondragon/listing-qa-backend/api/middleware"
	"github.com/angelmondragon/listing-qa-backend/internal/assessments"
	"github.com/angelmondragon/listing-qa-backend/internal/listings"
	"github.com/angelmondragon/listing-qa-backend/internal/tiers"
	"github.com/angelmondragon/listing-qa-backend/pkg/config"
	"github.com/angelmondragon/listing-qa-backend/pkg/db"
	"github.com/angelmondragon/listing-qa-backend/pkg/enums"
	"github.com/angelmondragon/listing-qa-backend/pkg/logger"
	"github.com/angelmondragon/listing-qa-backend/pkg/redis"
)

// Reconcile runs are cheap to repeat, so their replay window is short.
const reconcileIdempotencyTTL = 15 * time.Minute

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	metricsHandler http.Handler,
	assessmentService assessments.Service,
	reconciler controllers.Reconciler,
	tierService tiers.Service,
	listingService listings.Service,
	deadLetters controllers.DeadLetters,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	var idempotencyStore redis.IdempotencyStore
	readiness := map[string]controllers.Pinger{"db": dbP}
	if redisClient != nil {
		idempotencyStore = redisClient
		readiness["redis"] = redisClient
	}
	idempotent := middleware.Idempotent(idempotencyStore, middleware.DefaultIdempotencyTTL, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/listings/{listingId}/visibility", controllers.ListingBuyerVisibility(listingService, logg))

		r.Route("/listings/{listingId}/assessment", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleSeller))
			r.With(idempotent).Post("/", controllers.SellerCreateAssessment(assessmentService, logg))
			r.Get("/", controllers.SellerGetAssessment(assessmentService, logg))
			r.Get("/audit", controllers.SellerAssessmentAudit(assessmentService, logg))
			r.Get("/decisions", controllers.SellerAssessmentDecisions(assessmentService, logg))
			r.With(idempotent).Post("/sample", controllers.SellerSubmitSample(assessmentService, logg))
			r.With(idempotent).Post("/resubmit", controllers.SellerResubmit(assessmentService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.ActorRoleAdmin))

		r.Route("/assessments", func(r chi.Router) {
			r.Get("/", controllers.AdminListAssessments(assessmentService, logg))
			r.Get("/orphans", controllers.AdminListOrphans(reconciler, logg))
			r.With(middleware.Idempotent(idempotencyStore, reconcileIdempotencyTTL, logg)).
				Post("/reconcile", controllers.AdminReconcile(reconciler, logg))
			r.Get("/{assessmentId}", controllers.AdminGetAssessment(assessmentService, logg))
			r.Get("/{assessmentId}/audit", controllers.AdminAssessmentAudit(assessmentService, logg))
		})

		r.Route("/listings/{listingId}/assessment", func(r chi.Router) {
			r.Post("/approve-digital", controllers.AdminApproveDigital(assessmentService, logg))
			r.Post("/verify", controllers.AdminVerify(assessmentService, logg))
			r.Post("/reject", controllers.AdminReject(assessmentService, logg))
			r.Post("/revision", controllers.AdminRequestRevision(assessmentService, logg))
		})

		r.Route("/outbox/dead-letters", func(r chi.Router) {
			r.Get("/", controllers.AdminListDeadLetters(deadLetters, logg))
			r.Post("/{eventId}/requeue", controllers.AdminRequeueDeadLetter(deadLetters, logg))
		})

		r.Route("/sellers/{sellerId}/tier", func(r chi.Router) {
			r.Get("/", controllers.AdminGetSellerTier(tierService, logg))
			r.With(idempotent).Put("/", controllers.AdminUpsertSellerTier(tierService, logg))
		})
	})

	return r
}
