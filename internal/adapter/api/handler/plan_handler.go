package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/user/campuscore/internal/domain"
)

// PlanHandler serves the plan catalog. Reads go through the cache-backed
// repository, so the pricing page does not hit the registry on every request.
type PlanHandler struct {
	plans  domain.PlanRepository
	logger *slog.Logger
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(plans domain.PlanRepository, logger *slog.Logger) *PlanHandler {
	return &PlanHandler{plans: plans, logger: logger}
}

// List handles GET /api/v1/plans. Delisted plans are included only when
// include_inactive is set.
func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("include_inactive") == ""

	plans, err := h.plans.List(r.Context(), activeOnly)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"plans": plans})
}

// Get handles GET /api/v1/plans/{id}.
func (h *PlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid plan id"})
		return
	}

	plan, err := h.plans.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, plan)
}
