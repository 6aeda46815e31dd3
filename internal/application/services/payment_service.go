package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/consultbook/internal/domain/entities"
	domainproviders "github.com/zatekoja/consultbook/internal/domain/providers"
	"github.com/zatekoja/consultbook/internal/domain/repositories"
	"github.com/zatekoja/consultbook/internal/infrastructure/observability"
	"github.com/zatekoja/consultbook/internal/infrastructure/payhere"
	"github.com/zatekoja/consultbook/pkg/config"
	apperrors "github.com/zatekoja/consultbook/pkg/errors"
)

// PaymentService builds signed outbound payment descriptors. Initiation is
// only open to the appointment's owning user, and a settled payment can
// never be initiated again.
type PaymentService struct {
	appointments repositories.AppointmentRepository
	users        repositories.UserRepository
	providers    repositories.ProviderRepository
	signer       *payhere.Signer
	cfg          config.PayHereConfig
	bus          domainproviders.EventBus
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	appointments repositories.AppointmentRepository,
	users repositories.UserRepository,
	providers repositories.ProviderRepository,
	signer *payhere.Signer,
	cfg config.PayHereConfig,
	bus domainproviders.EventBus,
) *PaymentService {
	return &PaymentService{
		appointments: appointments,
		users:        users,
		providers:    providers,
		signer:       signer,
		cfg:          cfg,
		bus:          bus,
	}
}

// Initiate generates a fresh order ID, signs the checkout request and moves
// the payment status to initiated. Re-initiation overwrites the order ID
// once the configured window has elapsed; inside the window the prior
// initiation is still considered outstanding.
func (s *PaymentService) Initiate(ctx context.Context, appointmentID string, requester entities.Requester) (*entities.PaymentDescriptor, error) {
	appointment, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if requester.ID != appointment.UserID {
		return nil, apperrors.NewUnauthorizedError("only the booking user may initiate payment")
	}

	switch appointment.PaymentStatus {
	case entities.PaymentStatusCompleted:
		return nil, apperrors.NewConflictError("payment already settled")
	case entities.PaymentStatusCancelled, entities.PaymentStatusFailed:
		return nil, apperrors.NewStateError("payment already finalised as " + string(appointment.PaymentStatus))
	case entities.PaymentStatusInitiated:
		if s.cfg.ReinitiateAfter > 0 && appointment.PaymentInitiatedAt != nil &&
			time.Since(*appointment.PaymentInitiatedAt) < s.cfg.ReinitiateAfter {
			return nil, apperrors.NewConflictError("payment already initiated")
		}
	}

	now := time.Now()
	orderID := fmt.Sprintf("ORDER_%s_%d", appointment.ID, now.UnixMilli())

	// Conditional on the status read above, so a settlement landing in
	// between is never stomped back to initiated.
	updated, err := s.appointments.SetPaymentInitiated(ctx, appointment.ID, orderID, now, appointment.PaymentStatus)
	if err != nil {
		return nil, err
	}
	if !updated {
		current, err := s.appointments.GetByID(ctx, appointment.ID)
		if err != nil {
			return nil, err
		}
		if current.PaymentStatus == entities.PaymentStatusCompleted {
			return nil, apperrors.NewConflictError("payment already settled")
		}
		return nil, apperrors.NewStateError("payment status changed during initiation")
	}
	appointment.OrderID = &orderID
	appointment.PaymentStatus = entities.PaymentStatusInitiated
	appointment.PaymentInitiatedAt = &now

	user, err := s.users.GetByID(ctx, appointment.UserID)
	if err != nil {
		return nil, err
	}
	provider, err := s.providers.GetByID(ctx, appointment.ProviderID)
	if err != nil {
		return nil, err
	}

	amount := payhere.FormatAmount(appointment.Amount)
	firstName, lastName := splitName(user.Name)

	descriptor := &entities.PaymentDescriptor{
		CheckoutURL: s.cfg.CheckoutURL,
		MerchantID:  s.signer.MerchantID(),
		OrderID:     orderID,
		Items:       "Consultation with " + provider.Name,
		Amount:      amount,
		Currency:    s.cfg.Currency,
		Hash:        s.signer.SignCheckout(orderID, amount, s.cfg.Currency),
		FirstName:   firstName,
		LastName:    lastName,
		Email:       user.Email,
		Phone:       user.Phone,
		Address:     user.AddressLine,
		City:        user.City,
		Country:     user.Country,
		ReturnURL:   s.cfg.ReturnURL,
		CancelURL:   s.cfg.CancelURL,
		NotifyURL:   s.cfg.NotifyURL,
		Sandbox:     s.cfg.Sandbox,
	}

	s.publishPaymentEvent(ctx, entities.BookingEventPaymentInitiated, appointment)

	return descriptor, nil
}

// ListUnsettled returns appointments whose payment was initiated longer ago
// than maxAge and never settled. This is the reconciliation query for
// notifications that never arrived; no automatic expiry is applied.
func (s *PaymentService) ListUnsettled(ctx context.Context, requester entities.Requester, maxAge time.Duration) ([]*entities.Appointment, error) {
	if requester.Role != entities.RoleAdmin {
		return nil, apperrors.NewUnauthorizedError("admin role required")
	}
	return s.appointments.ListUnsettledPayments(ctx, time.Now().Add(-maxAge))
}

func (s *PaymentService) publishPaymentEvent(ctx context.Context, eventType entities.BookingEventType, appointment *entities.Appointment) {
	if s.bus == nil {
		return
	}

	event := &entities.BookingEvent{
		ID:            uuid.New().String(),
		Type:          eventType,
		AppointmentID: appointment.ID,
		ProviderID:    appointment.ProviderID,
		UserID:        appointment.UserID,
		Status:        appointment.Status,
		PaymentStatus: appointment.PaymentStatus,
		OccurredAt:    time.Now(),
	}

	if err := s.bus.Publish(ctx, domainproviders.EventChannelPayments, event); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).
			Str("appointment_id", appointment.ID).
			Str("event_type", string(eventType)).
			Msg("failed to publish payment event")
	}
}

func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
