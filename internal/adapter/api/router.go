package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/user/campuscore/internal/adapter/api/handler"
	"github.com/user/campuscore/internal/adapter/api/middleware"
	"github.com/user/campuscore/internal/domain"
	"github.com/user/campuscore/internal/pkg/config"
	"github.com/user/campuscore/internal/usecase"
)

// NewRouter creates and configures the main HTTP router for the registry
// service. Provisioning is open (it is the signup flow) but rate limited;
// registry reads and lifecycle mutations require an authenticated back-office
// actor.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	provisionUC *usecase.ProvisionUseCase,
	schoolService *usecase.SchoolService,
	ledger *usecase.Ledger,
	plans domain.PlanRepository,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logging(logger))

	schoolHandler := handler.NewSchoolHandler(provisionUC, schoolService, logger)
	planHandler := handler.NewPlanHandler(plans, logger)
	invoiceHandler := handler.NewInvoiceHandler(ledger, logger)

	auth := middleware.Auth(cfg.JWTSecret, logger)
	provisionLimit := middleware.RateLimit(cfg.ProvisionRPS, cfg.ProvisionBurst, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/plans", planHandler.List)
		r.Get("/plans/{id}", planHandler.Get)

		r.With(provisionLimit).Post("/schools", schoolHandler.Provision)

		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Get("/schools", schoolHandler.List)
			r.Get("/schools/{id}", schoolHandler.Get)
			r.Patch("/schools/{id}/status", schoolHandler.UpdateStatus)
			r.With(provisionLimit).Post("/schools/{id}/reprovision", schoolHandler.Reprovision)
			r.Get("/schools/{id}/invoices", invoiceHandler.ListBySchool)
			r.Post("/invoices/{id}/pay", invoiceHandler.Pay)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}
