package services_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/zatekoja/consultbook/internal/application/services"
	"github.com/zatekoja/consultbook/internal/domain/entities"
	"github.com/zatekoja/consultbook/internal/infrastructure/payhere"
	"github.com/zatekoja/consultbook/pkg/config"
	apperrors "github.com/zatekoja/consultbook/pkg/errors"
)

func paymentFixture(cfg config.PayHereConfig, appointments ...*entities.Appointment) (*services.PaymentService, *memAppointmentRepo, *payhere.Signer) {
	appointmentRepo := newMemAppointmentRepo(appointments...)
	userRepo := newMemUserRepo(&entities.User{
		ID: "user-1", Name: "Nimal Perera", Email: "nimal@example.com",
		Phone: "+94771234567", AddressLine: "12 Galle Road", City: "Colombo", Country: "Sri Lanka",
	})
	providerRepo := newMemProviderRepo(&entities.Provider{ID: "prov-1", Name: "Dr. Fernando", Fee: 3500, Available: true})
	signer := payhere.NewSigner("M1234", "secret")
	service := services.NewPaymentService(appointmentRepo, userRepo, providerRepo, signer, cfg, nil)
	return service, appointmentRepo, signer
}

func pendingAppointment() *entities.Appointment {
	return &entities.Appointment{
		ID: "appt-1", UserID: "user-1", ProviderID: "prov-1",
		SlotDate: "2026-09-10", SlotTime: "10:00", Amount: 3500,
		Status: entities.AppointmentStatusPending, PaymentStatus: entities.PaymentStatusNotInitiated,
	}
}

func TestPaymentService_Initiate(t *testing.T) {
	ctx := context.Background()
	owner := entities.Requester{ID: "user-1", Role: entities.RoleUser}
	cfg := config.PayHereConfig{
		Currency:    "LKR",
		Sandbox:     true,
		CheckoutURL: "https://sandbox.payhere.lk/pay/checkout",
		NotifyURL:   "http://localhost:8080/api/payments/notify",
	}

	t.Run("produces a signed descriptor and marks the payment initiated", func(t *testing.T) {
		service, appointmentRepo, signer := paymentFixture(cfg, pendingAppointment())

		descriptor, err := service.Initiate(ctx, "appt-1", owner)
		assert.NoError(t, err)
		assert.True(t, strings.HasPrefix(descriptor.OrderID, "ORDER_appt-1_"))
		assert.Equal(t, "M1234", descriptor.MerchantID)
		assert.Equal(t, "3500.00", descriptor.Amount)
		assert.Equal(t, "LKR", descriptor.Currency)
		assert.Equal(t, signer.SignCheckout(descriptor.OrderID, "3500.00", "LKR"), descriptor.Hash)
		assert.Equal(t, "Nimal", descriptor.FirstName)
		assert.Equal(t, "Perera", descriptor.LastName)
		assert.True(t, descriptor.Sandbox)

		stored, err := appointmentRepo.GetByID(ctx, "appt-1")
		assert.NoError(t, err)
		assert.Equal(t, entities.PaymentStatusInitiated, stored.PaymentStatus)
		if assert.NotNil(t, stored.OrderID) {
			assert.Equal(t, descriptor.OrderID, *stored.OrderID)
		}
		assert.NotNil(t, stored.PaymentInitiatedAt)
	})

	t.Run("only the booking user may initiate", func(t *testing.T) {
		service, _, _ := paymentFixture(cfg, pendingAppointment())

		stranger := entities.Requester{ID: "user-2", Role: entities.RoleUser}
		_, err := service.Initiate(ctx, "appt-1", stranger)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
	})

	t.Run("settled payments cannot be initiated again", func(t *testing.T) {
		appointment := pendingAppointment()
		appointment.PaymentStatus = entities.PaymentStatusCompleted
		service, _, _ := paymentFixture(cfg, appointment)

		_, err := service.Initiate(ctx, "appt-1", owner)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	})

	t.Run("failed payments cannot be initiated again", func(t *testing.T) {
		appointment := pendingAppointment()
		appointment.PaymentStatus = entities.PaymentStatusFailed
		service, _, _ := paymentFixture(cfg, appointment)

		_, err := service.Initiate(ctx, "appt-1", owner)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeState))
	})

	t.Run("re-initiation inside the window is rejected", func(t *testing.T) {
		windowCfg := cfg
		windowCfg.ReinitiateAfter = time.Hour

		appointment := pendingAppointment()
		initiatedAt := time.Now().Add(-time.Minute)
		orderID := "ORDER_appt-1_1"
		appointment.PaymentStatus = entities.PaymentStatusInitiated
		appointment.PaymentInitiatedAt = &initiatedAt
		appointment.OrderID = &orderID

		service, _, _ := paymentFixture(windowCfg, appointment)
		_, err := service.Initiate(ctx, "appt-1", owner)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	})

	t.Run("settlement racing initiation is not overwritten", func(t *testing.T) {
		appointmentRepo := &settlingAppointmentRepo{memAppointmentRepo: newMemAppointmentRepo(pendingAppointment())}
		userRepo := newMemUserRepo()
		providerRepo := newMemProviderRepo()
		signer := payhere.NewSigner("M1234", "secret")
		service := services.NewPaymentService(appointmentRepo, userRepo, providerRepo, signer, cfg, nil)

		_, err := service.Initiate(ctx, "appt-1", owner)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))

		stored, err := appointmentRepo.GetByID(ctx, "appt-1")
		assert.NoError(t, err)
		assert.Equal(t, entities.PaymentStatusCompleted, stored.PaymentStatus)
	})

	t.Run("re-initiation after the window issues a fresh order id", func(t *testing.T) {
		windowCfg := cfg
		windowCfg.ReinitiateAfter = time.Hour

		appointment := pendingAppointment()
		initiatedAt := time.Now().Add(-2 * time.Hour)
		orderID := "ORDER_appt-1_1"
		appointment.PaymentStatus = entities.PaymentStatusInitiated
		appointment.PaymentInitiatedAt = &initiatedAt
		appointment.OrderID = &orderID

		service, appointmentRepo, _ := paymentFixture(windowCfg, appointment)
		descriptor, err := service.Initiate(ctx, "appt-1", owner)
		assert.NoError(t, err)
		assert.NotEqual(t, orderID, descriptor.OrderID)

		stored, err := appointmentRepo.GetByID(ctx, "appt-1")
		assert.NoError(t, err)
		assert.Equal(t, descriptor.OrderID, *stored.OrderID)
	})
}

// settlingAppointmentRepo completes the payment between Initiate's read
// and its conditional write, mimicking a gateway notification that lands
// while the checkout request is in flight.
type settlingAppointmentRepo struct {
	*memAppointmentRepo
}

func (r *settlingAppointmentRepo) SetPaymentInitiated(ctx context.Context, id, orderID string, at time.Time, expected entities.PaymentStatus) (bool, error) {
	if _, err := r.memAppointmentRepo.UpdatePaymentStatus(ctx, id, expected, entities.PaymentStatusCompleted); err != nil {
		return false, err
	}
	return r.memAppointmentRepo.SetPaymentInitiated(ctx, id, orderID, at, expected)
}

func TestPaymentService_ListUnsettled(t *testing.T) {
	ctx := context.Background()
	cfg := config.PayHereConfig{Currency: "LKR"}

	stale := pendingAppointment()
	staleAt := time.Now().Add(-2 * time.Hour)
	staleOrder := "ORDER_appt-1_1"
	stale.PaymentStatus = entities.PaymentStatusInitiated
	stale.PaymentInitiatedAt = &staleAt
	stale.OrderID = &staleOrder

	fresh := pendingAppointment()
	fresh.ID = "appt-2"
	freshAt := time.Now().Add(-time.Minute)
	freshOrder := "ORDER_appt-2_1"
	fresh.PaymentStatus = entities.PaymentStatusInitiated
	fresh.PaymentInitiatedAt = &freshAt
	fresh.OrderID = &freshOrder

	service, _, _ := paymentFixture(cfg, stale, fresh)

	t.Run("admin sees only stale initiated payments", func(t *testing.T) {
		admin := entities.Requester{ID: "admin-1", Role: entities.RoleAdmin}
		appointments, err := service.ListUnsettled(ctx, admin, time.Hour)
		assert.NoError(t, err)
		if assert.Len(t, appointments, 1) {
			assert.Equal(t, "appt-1", appointments[0].ID)
		}
	})

	t.Run("non-admins are rejected", func(t *testing.T) {
		user := entities.Requester{ID: "user-1", Role: entities.RoleUser}
		_, err := service.ListUnsettled(ctx, user, time.Hour)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
	})
}
