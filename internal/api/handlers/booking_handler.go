package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/zatekoja/consultbook/internal/api/middleware"
	"github.com/zatekoja/consultbook/internal/application/services"
	"github.com/zatekoja/consultbook/internal/domain/entities"
	"github.com/zatekoja/consultbook/internal/domain/repositories"
)

// BookingService defines the interface for appointment lifecycle operations
type BookingService interface {
	Book(ctx context.Context, userID, providerID, slotDate, slotTime string) (*entities.Appointment, error)
	Cancel(ctx context.Context, appointmentID string, requester entities.Requester) (services.CancelOutcome, error)
	Complete(ctx context.Context, appointmentID string, requester entities.Requester) error
	ListForUser(ctx context.Context, requester entities.Requester, filter repositories.AppointmentFilter) ([]*entities.Appointment, error)
	ListForProvider(ctx context.Context, requester entities.Requester, filter repositories.AppointmentFilter) ([]*entities.Appointment, error)
	Dashboard(ctx context.Context, requester entities.Requester) (*services.ProviderDashboard, error)
	SetAvailability(ctx context.Context, requester entities.Requester, providerID string, available bool) error
}

// SlotService exposes the booked-slot view used by availability listings
type SlotService interface {
	BookedSlots(ctx context.Context, providerID, slotDate string) ([]string, error)
}

// BookingHandler handles appointment requests
type BookingHandler struct {
	service BookingService
	slots   SlotService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(service BookingService, slots SlotService) *BookingHandler {
	return &BookingHandler{service: service, slots: slots}
}

type bookRequest struct {
	ProviderID string `json:"provider_id"`
	SlotDate   string `json:"slot_date"`
	SlotTime   string `json:"slot_time"`
}

// Book handles POST /api/appointments
func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	requester, ok := middleware.RequesterFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	appointment, err := h.service.Book(r.Context(), requester.ID, req.ProviderID, req.SlotDate, req.SlotTime)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"appointment_id": appointment.ID,
		"appointment":    appointment,
	})
}

// Cancel handles POST /api/appointments/{id}/cancel
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	requester, ok := middleware.RequesterFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	appointmentID := r.PathValue("id")
	if appointmentID == "" {
		respondWithError(w, http.StatusBadRequest, "appointment ID is required")
		return
	}

	outcome, err := h.service.Cancel(r.Context(), appointmentID, requester)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": string(outcome)})
}

// Complete handles POST /api/appointments/{id}/complete
func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	requester, ok := middleware.RequesterFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	appointmentID := r.PathValue("id")
	if appointmentID == "" {
		respondWithError(w, http.StatusBadRequest, "appointment ID is required")
		return
	}

	if err := h.service.Complete(r.Context(), appointmentID, requester); err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

// ListMine handles GET /api/appointments
func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	requester, ok := middleware.RequesterFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	appointments, err := h.service.ListForUser(r.Context(), requester, listFilter(r))
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"appointments": appointments})
}

// ListForProvider handles GET /api/provider/appointments
func (h *BookingHandler) ListForProvider(w http.ResponseWriter, r *http.Request) {
	requester, ok := middleware.RequesterFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	appointments, err := h.service.ListForProvider(r.Context(), requester, listFilter(r))
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"appointments": appointments})
}

// Dashboard handles GET /api/provider/dashboard
func (h *BookingHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	requester, ok := middleware.RequesterFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	dashboard, err := h.service.Dashboard(r.Context(), requester)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, dashboard)
}

type availabilityRequest struct {
	ProviderID string `json:"provider_id"`
	Available  bool   `json:"available"`
}

// SetAvailability handles POST /api/provider/availability
func (h *BookingHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	requester, ok := middleware.RequesterFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.ProviderID == "" {
		req.ProviderID = requester.ID
	}

	if err := h.service.SetAvailability(r.Context(), requester, req.ProviderID, req.Available); err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"provider_id": req.ProviderID,
		"available":   req.Available,
	})
}

// BookedSlots handles GET /api/providers/{id}/slots
func (h *BookingHandler) BookedSlots(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("id")
	if providerID == "" {
		respondWithError(w, http.StatusBadRequest, "provider ID is required")
		return
	}

	slotDate := r.URL.Query().Get("date")
	slots, err := h.slots.BookedSlots(r.Context(), providerID, slotDate)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"provider_id":  providerID,
		"slot_date":    slotDate,
		"booked_slots": slots,
	})
}

func listFilter(r *http.Request) repositories.AppointmentFilter {
	return repositories.AppointmentFilter{
		Status: entities.AppointmentStatus(r.URL.Query().Get("status")),
	}
}
