package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/user/campuscore/internal/usecase"
)

// InvoiceHandler serves a school's billing history and payment confirmations.
type InvoiceHandler struct {
	ledger *usecase.Ledger
	logger *slog.Logger
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(ledger *usecase.Ledger, logger *slog.Logger) *InvoiceHandler {
	return &InvoiceHandler{ledger: ledger, logger: logger}
}

// ListBySchool handles GET /api/v1/schools/{id}/invoices.
func (h *InvoiceHandler) ListBySchool(w http.ResponseWriter, r *http.Request) {
	id, err := schoolID(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid school id"})
		return
	}

	invoices, err := h.ledger.Invoices(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"invoices": invoices})
}

// Pay handles POST /api/v1/invoices/{id}/pay: a payment confirmation from the
// billing side.
func (h *InvoiceHandler) Pay(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid invoice id"})
		return
	}

	if err := h.ledger.RecordPayment(r.Context(), id); err != nil {
		respondError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"id": id, "status": "paid"})
}
