package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/zatekoja/consultbook/internal/api/middleware"
	"github.com/zatekoja/consultbook/internal/domain/entities"
)

const defaultUnsettledAge = 30 * time.Minute

// PaymentService defines the interface for checkout initiation
type PaymentService interface {
	Initiate(ctx context.Context, appointmentID string, requester entities.Requester) (*entities.PaymentDescriptor, error)
	ListUnsettled(ctx context.Context, requester entities.Requester, maxAge time.Duration) ([]*entities.Appointment, error)
}

// PaymentHandler handles payment requests
type PaymentHandler struct {
	service PaymentService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(service PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

type initiateRequest struct {
	AppointmentID string `json:"appointment_id"`
}

// Initiate handles POST /api/payments/initiate
func (h *PaymentHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	requester, ok := middleware.RequesterFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.AppointmentID == "" {
		respondWithError(w, http.StatusBadRequest, "appointment ID is required")
		return
	}

	descriptor, err := h.service.Initiate(r.Context(), req.AppointmentID, requester)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, descriptor)
}

// ListUnsettled handles GET /api/payments/unsettled
func (h *PaymentHandler) ListUnsettled(w http.ResponseWriter, r *http.Request) {
	requester, ok := middleware.RequesterFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	maxAge := defaultUnsettledAge
	if raw := r.URL.Query().Get("older_than"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid older_than duration")
			return
		}
		maxAge = parsed
	}

	appointments, err := h.service.ListUnsettled(r.Context(), requester, maxAge)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"appointments": appointments})
}
