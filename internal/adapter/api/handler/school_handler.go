package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/user/campuscore/internal/adapter/api/middleware"
	"github.com/user/campuscore/internal/domain"
	"github.com/user/campuscore/internal/usecase"
)

// SchoolHandler serves the registry and provisioning endpoints.
type SchoolHandler struct {
	provision *usecase.ProvisionUseCase
	schools   *usecase.SchoolService
	logger    *slog.Logger
}

// NewSchoolHandler creates a new SchoolHandler.
func NewSchoolHandler(provision *usecase.ProvisionUseCase, schools *usecase.SchoolService, logger *slog.Logger) *SchoolHandler {
	return &SchoolHandler{
		provision: provision,
		schools:   schools,
		logger:    logger,
	}
}

// Provision handles POST /api/v1/schools: the onboarding request.
func (h *SchoolHandler) Provision(w http.ResponseWriter, r *http.Request) {
	var req usecase.ProvisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return
	}

	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		actor = domain.System
	}

	resp, err := h.provision.Provision(r.Context(), actor, req)
	if err != nil {
		// A failure response still carries the registry row id so operators
		// can find and retry the school.
		if resp != nil {
			h.logger.Error("provisioning failed", "school_id", resp.SchoolID, "error", err)
			respondJSON(w, http.StatusBadGateway, resp)
			return
		}
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, resp)
}

// Reprovision handles POST /api/v1/schools/{id}/reprovision: retries the
// tenant-database steps for a pending or provision_failed school.
func (h *SchoolHandler) Reprovision(w http.ResponseWriter, r *http.Request) {
	id, err := schoolID(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid school id"})
		return
	}

	var admin domain.AdminDraft
	if err := json.NewDecoder(r.Body).Decode(&admin); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return
	}

	actor, _ := middleware.ActorFrom(r.Context())

	resp, err := h.provision.Reprovision(r.Context(), actor, id, admin)
	if err != nil {
		if resp != nil {
			respondJSON(w, http.StatusBadGateway, resp)
			return
		}
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

type listResponse struct {
	Schools []domain.SchoolOverview `json:"schools"`
	Total   int                     `json:"total"`
	Page    int                     `json:"page"`
	Size    int                     `json:"size"`
}

// List handles GET /api/v1/schools: the filtered, paginated overview listing.
func (h *SchoolHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := domain.SchoolFilter{
		Status:             domain.SchoolStatus(q.Get("status")),
		SubscriptionStatus: domain.SubscriptionStatus(q.Get("subscription_status")),
		Search:             q.Get("search"),
	}
	if planID, err := strconv.ParseInt(q.Get("plan_id"), 10, 64); err == nil {
		filter.PlanID = planID
	}
	if filter.Status != "" && !domain.ValidStatus(filter.Status) {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "unknown status filter"})
		return
	}

	page := domain.Page{}
	if n, err := strconv.Atoi(q.Get("page")); err == nil {
		page.Number = n
	}
	if s, err := strconv.Atoi(q.Get("size")); err == nil {
		page.Size = s
	}

	overviews, total, err := h.schools.List(r.Context(), filter, page)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	if page.Number <= 0 {
		page.Number = 1
	}
	if page.Size <= 0 {
		page.Size = 20
	}
	respondJSON(w, http.StatusOK, listResponse{
		Schools: overviews,
		Total:   total,
		Page:    page.Number,
		Size:    page.Size,
	})
}

// Get handles GET /api/v1/schools/{id}.
func (h *SchoolHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := schoolID(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid school id"})
		return
	}

	school, err := h.schools.Get(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, school)
}

type statusRequest struct {
	Status domain.SchoolStatus `json:"status"`
}

// UpdateStatus handles PATCH /api/v1/schools/{id}/status: administrative
// lifecycle transitions.
func (h *SchoolHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := schoolID(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid school id"})
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "malformed request body"})
		return
	}

	actor, _ := middleware.ActorFrom(r.Context())

	if err := h.schools.UpdateStatus(r.Context(), actor, id, req.Status); err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"id": id, "status": req.Status})
}

func schoolID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
