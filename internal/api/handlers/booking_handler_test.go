package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/consultbook/internal/api/handlers"
	"github.com/zatekoja/consultbook/internal/api/middleware"
	"github.com/zatekoja/consultbook/internal/application/services"
	"github.com/zatekoja/consultbook/internal/domain/entities"
	"github.com/zatekoja/consultbook/internal/domain/repositories"
	apperrors "github.com/zatekoja/consultbook/pkg/errors"
)

type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) Book(ctx context.Context, userID, providerID, slotDate, slotTime string) (*entities.Appointment, error) {
	args := m.Called(ctx, userID, providerID, slotDate, slotTime)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Appointment), args.Error(1)
}

func (m *MockBookingService) Cancel(ctx context.Context, appointmentID string, requester entities.Requester) (services.CancelOutcome, error) {
	args := m.Called(ctx, appointmentID, requester)
	return args.Get(0).(services.CancelOutcome), args.Error(1)
}

func (m *MockBookingService) Complete(ctx context.Context, appointmentID string, requester entities.Requester) error {
	args := m.Called(ctx, appointmentID, requester)
	return args.Error(0)
}

func (m *MockBookingService) ListForUser(ctx context.Context, requester entities.Requester, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	args := m.Called(ctx, requester, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Appointment), args.Error(1)
}

func (m *MockBookingService) ListForProvider(ctx context.Context, requester entities.Requester, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	args := m.Called(ctx, requester, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Appointment), args.Error(1)
}

func (m *MockBookingService) Dashboard(ctx context.Context, requester entities.Requester) (*services.ProviderDashboard, error) {
	args := m.Called(ctx, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ProviderDashboard), args.Error(1)
}

func (m *MockBookingService) SetAvailability(ctx context.Context, requester entities.Requester, providerID string, available bool) error {
	args := m.Called(ctx, requester, providerID, available)
	return args.Error(0)
}

type MockSlotService struct {
	mock.Mock
}

func (m *MockSlotService) BookedSlots(ctx context.Context, providerID, slotDate string) ([]string, error) {
	args := m.Called(ctx, providerID, slotDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// serve runs the request through the identity middleware the way the real
// router does, so handlers see the authenticated subject.
func serve(handlerFunc http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	middleware.IdentityMiddleware(handlerFunc).ServeHTTP(w, req)
	return w
}

func asUser(req *http.Request, id string) *http.Request {
	req.Header.Set("X-User-ID", id)
	req.Header.Set("X-User-Role", "user")
	return req
}

func TestBookingHandler_Book(t *testing.T) {
	t.Run("books an appointment for the authenticated user", func(t *testing.T) {
		mockService := new(MockBookingService)
		handler := handlers.NewBookingHandler(mockService, new(MockSlotService))

		payload := map[string]string{
			"provider_id": "prov-1",
			"slot_date":   "2026-09-10",
			"slot_time":   "10:00",
		}
		body, _ := json.Marshal(payload)
		req := asUser(httptest.NewRequest("POST", "/api/appointments", bytes.NewBuffer(body)), "user-1")

		mockService.On("Book", mock.Anything, "user-1", "prov-1", "2026-09-10", "10:00").
			Return(&entities.Appointment{ID: "appt-1", UserID: "user-1"}, nil)

		w := serve(handler.Book, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), "appt-1")
		mockService.AssertExpectations(t)
	})

	t.Run("requires authentication", func(t *testing.T) {
		handler := handlers.NewBookingHandler(new(MockBookingService), new(MockSlotService))

		req := httptest.NewRequest("POST", "/api/appointments", bytes.NewBufferString("{}"))
		w := serve(handler.Book, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("returns bad request for invalid payload", func(t *testing.T) {
		handler := handlers.NewBookingHandler(new(MockBookingService), new(MockSlotService))

		req := asUser(httptest.NewRequest("POST", "/api/appointments", bytes.NewBufferString("not-json")), "user-1")
		w := serve(handler.Book, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("maps slot conflicts to 409", func(t *testing.T) {
		mockService := new(MockBookingService)
		handler := handlers.NewBookingHandler(mockService, new(MockSlotService))

		body, _ := json.Marshal(map[string]string{
			"provider_id": "prov-1", "slot_date": "2026-09-10", "slot_time": "10:00",
		})
		req := asUser(httptest.NewRequest("POST", "/api/appointments", bytes.NewBuffer(body)), "user-1")

		mockService.On("Book", mock.Anything, "user-1", "prov-1", "2026-09-10", "10:00").
			Return(nil, apperrors.NewConflictError("slot not available"))

		w := serve(handler.Book, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestBookingHandler_Cancel(t *testing.T) {
	t.Run("reports the cancel outcome", func(t *testing.T) {
		mockService := new(MockBookingService)
		handler := handlers.NewBookingHandler(mockService, new(MockSlotService))

		req := asUser(httptest.NewRequest("POST", "/api/appointments/appt-1/cancel", nil), "user-1")
		req.SetPathValue("id", "appt-1")

		mockService.On("Cancel", mock.Anything, "appt-1",
			entities.Requester{ID: "user-1", Role: entities.RoleUser}).
			Return(services.CancelOutcomeAlreadyCancelled, nil)

		w := serve(handler.Cancel, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "already_cancelled")
	})

	t.Run("maps state errors to 409", func(t *testing.T) {
		mockService := new(MockBookingService)
		handler := handlers.NewBookingHandler(mockService, new(MockSlotService))

		req := asUser(httptest.NewRequest("POST", "/api/appointments/appt-1/cancel", nil), "user-1")
		req.SetPathValue("id", "appt-1")

		mockService.On("Cancel", mock.Anything, "appt-1", mock.Anything).
			Return(services.CancelOutcome(""), apperrors.NewStateError("cannot cancel a completed appointment"))

		w := serve(handler.Cancel, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("maps authorization failures to 403", func(t *testing.T) {
		mockService := new(MockBookingService)
		handler := handlers.NewBookingHandler(mockService, new(MockSlotService))

		req := asUser(httptest.NewRequest("POST", "/api/appointments/appt-1/cancel", nil), "user-2")
		req.SetPathValue("id", "appt-1")

		mockService.On("Cancel", mock.Anything, "appt-1", mock.Anything).
			Return(services.CancelOutcome(""), apperrors.NewUnauthorizedError("not allowed to cancel this appointment"))

		w := serve(handler.Cancel, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestBookingHandler_BookedSlots(t *testing.T) {
	mockSlots := new(MockSlotService)
	handler := handlers.NewBookingHandler(new(MockBookingService), mockSlots)

	req := httptest.NewRequest("GET", "/api/providers/prov-1/slots?date=2026-09-10", nil)
	req.SetPathValue("id", "prov-1")

	mockSlots.On("BookedSlots", mock.Anything, "prov-1", "2026-09-10").
		Return([]string{"10:00", "11:30"}, nil)

	w := httptest.NewRecorder()
	handler.BookedSlots(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "11:30")
	mockSlots.AssertExpectations(t)
}
