package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/flatwise-bfa-go/internal/domain"
	"github.com/boddenberg/flatwise-bfa-go/internal/infra/observability"
	"github.com/boddenberg/flatwise-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// HealthCheck probes one dependency for /healthz.
type HealthCheck func(ctx context.Context) error

// Services bundles the controllers the router exposes.
type Services struct {
	Auth         *service.AuthService
	Charges      *service.ChargeService
	Flats        *service.FlatService
	Bills        *service.BillService
	Payments     *service.PaymentService
	Invitations  *service.InvitationService
	Registration *service.RegistrationService

	// Checks are run by /healthz, keyed by dependency name.
	Checks map[string]HealthCheck
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svcs Services, corsOrigins []string, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svcs.Checks))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/metrics/bfa", bfaMetricsHandler(metrics))

		// Auth
		r.Post("/auth/login", loginHandler(svcs.Auth, logger))
		r.Post("/auth/logout", logoutHandler(svcs.Auth))
		r.Post("/invitations/{token}/accept", acceptInvitationHandler(svcs.Auth, logger))

		// Registration and subscription
		r.Post("/societies", createSocietyHandler(svcs.Registration, logger))
		r.Post("/register", registerHandler(svcs.Registration, logger))
		r.Post("/pricing/calculate", calculatePriceHandler(svcs.Registration, logger))
		r.Post("/pricing/promo", applyPromoHandler(svcs.Registration, logger))
		r.Post("/subscriptions/initiate", initiateSubscriptionHandler(svcs.Payments, logger))

		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware(svcs.Auth, logger))

			// Service charges
			r.Get("/service-charges/catalog", catalogHandler(svcs.Charges, logger))
			r.Get("/service-charges", matrixHandler(svcs.Charges, logger))
			r.Post("/service-charges/preview", matrixPreviewHandler(svcs.Charges, logger))

			// Flats
			r.Get("/flats", listFlatsHandler(svcs.Flats, logger))
			r.Get("/flats/{id}", getFlatHandler(svcs.Flats, logger))
			r.Get("/flats/{id}/bill-preview", billPreviewHandler(svcs.Flats, logger))

			// Bills and payments
			r.Get("/bills", listBillsHandler(svcs.Bills, logger))
			r.Get("/bills/statement.pdf", statementHandler(svcs.Bills, logger))
			r.Post("/bills/{id}/pay", payBillHandler(svcs.Payments, logger))
			r.Get("/payments", paymentHistoryHandler(svcs.Payments, logger))
			r.Post("/payments/{id}/resume", resumePaymentHandler(svcs.Payments, logger))

			// Management only
			r.Group(func(r chi.Router) {
				r.Use(RequireManager)

				r.Put("/service-charges", saveMatrixHandler(svcs.Charges, logger))

				r.Post("/flats", createFlatHandler(svcs.Flats, logger))
				r.Post("/flats/bulk", bulkCreateFlatsHandler(svcs.Flats, logger))
				r.Patch("/flats/{id}", updateFlatHandler(svcs.Flats, logger))
				r.Put("/flats/{id}", replaceFlatHandler(svcs.Flats, logger))
				r.Delete("/flats/{id}", deleteFlatHandler(svcs.Flats, logger))
				r.Post("/flats/{id}/extra-charges", addExtraHandler(svcs.Charges, logger))
				r.Delete("/extra-charges/{id}", removeExtraHandler(svcs.Charges, logger))

				r.Post("/bills/{id}/transfer", transferBillHandler(svcs.Bills, logger))

				r.Get("/users", listUsersHandler(svcs.Invitations, logger))
				r.Post("/users/{id}/cancel", cancelUserHandler(svcs.Invitations, logger))
				r.Post("/invitations", submitInvitationsHandler(svcs.Invitations, logger))
				r.Get("/invitations", listBatchesHandler(svcs.Invitations, logger))
				r.Post("/invitations/{batchId}/retry", retryInvitationsHandler(svcs.Invitations, logger))
				r.Get("/invitations/wizard", wizardHandler(svcs.Invitations, logger))
				r.Post("/invitations/wizard/skip", skipStepHandler(svcs.Invitations, logger))
			})
		})
	})

	return r
}

// ============================================================
// Health & Metrics
// ============================================================

func healthzHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "bfa-api", Status: "healthy", LastChecked: now},
		}
		for name, check := range checks {
			start := time.Now()
			status := "healthy"
			if err := check(ctx); err != nil {
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: name, Status: status, LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status != "healthy" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func bfaMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}
