package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/consultbook/internal/domain/entities"
	domainproviders "github.com/zatekoja/consultbook/internal/domain/providers"
	"github.com/zatekoja/consultbook/internal/domain/repositories"
	"github.com/zatekoja/consultbook/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/consultbook/pkg/errors"
)

// CancelOutcome reports how a cancel call concluded
type CancelOutcome string

const (
	// CancelOutcomeCancelled means this call performed the cancellation
	CancelOutcomeCancelled CancelOutcome = "cancelled"

	// CancelOutcomeAlreadyCancelled means the appointment was cancelled
	// before this call; nothing changed and no slot was released again
	CancelOutcomeAlreadyCancelled CancelOutcome = "already_cancelled"
)

// ProviderDashboard aggregates a provider's booking activity. Earnings count
// appointments that were completed or paid, following the billing rule of
// the consultation product.
type ProviderDashboard struct {
	Earnings     float64                 `json:"earnings"`
	Appointments int                     `json:"appointments"`
	Pending      int                     `json:"pending"`
	Cancelled    int                     `json:"cancelled"`
	Latest       []*entities.Appointment `json:"latest"`
}

// BookingService implements the appointment lifecycle: creation bound to an
// atomic slot reservation, and ownership-gated transitions to the two
// terminal states. Payment settlement is a separate axis handled by the
// payment and reconciliation services.
type BookingService struct {
	appointments repositories.AppointmentRepository
	providers    repositories.ProviderRepository
	users        repositories.UserRepository
	ledger       *SlotLedger
	bus          domainproviders.EventBus
	notifier     *NotificationService
	metrics      *observability.Metrics
}

// NewBookingService creates a new booking service. The event bus and
// notifier may be nil; booking works without them.
func NewBookingService(
	appointments repositories.AppointmentRepository,
	providers repositories.ProviderRepository,
	users repositories.UserRepository,
	ledger *SlotLedger,
	bus domainproviders.EventBus,
	notifier *NotificationService,
	metrics *observability.Metrics,
) *BookingService {
	return &BookingService{
		appointments: appointments,
		providers:    providers,
		users:        users,
		ledger:       ledger,
		bus:          bus,
		notifier:     notifier,
		metrics:      metrics,
	}
}

// Book reserves the slot and creates the appointment. The amount is captured
// from the provider's current fee and never changes afterwards.
func (s *BookingService) Book(ctx context.Context, userID, providerID, slotDate, slotTime string) (*entities.Appointment, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("user id is required")
	}

	key := entities.SlotKey{ProviderID: providerID, SlotDate: slotDate, SlotTime: slotTime}
	if err := s.ledger.Reserve(ctx, key); err != nil {
		return nil, err
	}

	provider, err := s.providers.GetByID(ctx, providerID)
	if err != nil {
		_ = s.ledger.Release(ctx, key)
		return nil, err
	}

	now := time.Now()
	appointment := &entities.Appointment{
		ID:            uuid.New().String(),
		UserID:        userID,
		ProviderID:    providerID,
		SlotDate:      slotDate,
		SlotTime:      slotTime,
		Amount:        provider.Fee,
		Status:        entities.AppointmentStatusPending,
		PaymentStatus: entities.PaymentStatusNotInitiated,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.appointments.Create(ctx, appointment); err != nil {
		// The reservation must not outlive a failed create.
		_ = s.ledger.Release(ctx, key)
		return nil, err
	}

	observability.CountBooking(ctx, s.metrics, providerID)
	s.publish(ctx, entities.BookingEventBooked, appointment)
	if s.notifier != nil {
		s.notifier.SendBookingConfirmation(ctx, appointment, provider)
	}

	return appointment, nil
}

// Complete marks a pending appointment completed. Only the owning provider
// or an admin may complete it.
func (s *BookingService) Complete(ctx context.Context, appointmentID string, requester entities.Requester) error {
	appointment, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return err
	}

	if !canManage(requester, appointment, false) {
		return apperrors.NewUnauthorizedError("not allowed to complete this appointment")
	}
	if appointment.Status.Terminal() {
		return apperrors.NewStateError("appointment is already " + string(appointment.Status))
	}

	updated, err := s.appointments.UpdateStatus(ctx, appointmentID,
		entities.AppointmentStatusPending, entities.AppointmentStatusCompleted)
	if err != nil {
		return err
	}
	if !updated {
		// Lost a race against another transition.
		return apperrors.NewStateError("appointment is no longer pending")
	}

	appointment.Status = entities.AppointmentStatusCompleted
	s.publish(ctx, entities.BookingEventCompleted, appointment)

	return nil
}

// Cancel cancels an appointment and releases its slot. A second cancel of
// the same appointment reports CancelOutcomeAlreadyCancelled without error
// and without releasing the slot again. Completed appointments cannot be
// cancelled.
func (s *BookingService) Cancel(ctx context.Context, appointmentID string, requester entities.Requester) (CancelOutcome, error) {
	appointment, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return "", err
	}

	if !canManage(requester, appointment, true) {
		return "", apperrors.NewUnauthorizedError("not allowed to cancel this appointment")
	}

	switch appointment.Status {
	case entities.AppointmentStatusCancelled:
		return CancelOutcomeAlreadyCancelled, nil
	case entities.AppointmentStatusCompleted:
		return "", apperrors.NewStateError("cannot cancel a completed appointment")
	}

	updated, err := s.appointments.UpdateStatus(ctx, appointmentID,
		entities.AppointmentStatusPending, entities.AppointmentStatusCancelled)
	if err != nil {
		return "", err
	}
	if !updated {
		// Someone else transitioned the appointment first. Re-read to
		// report the right outcome; the winner released the slot.
		current, err := s.appointments.GetByID(ctx, appointmentID)
		if err != nil {
			return "", err
		}
		if current.Status == entities.AppointmentStatusCancelled {
			return CancelOutcomeAlreadyCancelled, nil
		}
		return "", apperrors.NewStateError("cannot cancel a " + string(current.Status) + " appointment")
	}

	key := entities.SlotKey{
		ProviderID: appointment.ProviderID,
		SlotDate:   appointment.SlotDate,
		SlotTime:   appointment.SlotTime,
	}
	if err := s.ledger.Release(ctx, key); err != nil {
		return "", err
	}

	appointment.Status = entities.AppointmentStatusCancelled
	s.publish(ctx, entities.BookingEventCancelled, appointment)
	if s.notifier != nil {
		s.notifier.SendCancellationNotice(ctx, appointment)
	}

	return CancelOutcomeCancelled, nil
}

// ListForUser returns the requesting user's appointments
func (s *BookingService) ListForUser(ctx context.Context, requester entities.Requester, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	return s.appointments.ListByUser(ctx, requester.ID, filter)
}

// ListForProvider returns the requesting provider's appointments
func (s *BookingService) ListForProvider(ctx context.Context, requester entities.Requester, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	if requester.Role != entities.RoleProvider && requester.Role != entities.RoleAdmin {
		return nil, apperrors.NewUnauthorizedError("provider role required")
	}
	return s.appointments.ListByProvider(ctx, requester.ID, filter)
}

// Dashboard aggregates the requesting provider's booking activity
func (s *BookingService) Dashboard(ctx context.Context, requester entities.Requester) (*ProviderDashboard, error) {
	if requester.Role != entities.RoleProvider {
		return nil, apperrors.NewUnauthorizedError("provider role required")
	}

	appointments, err := s.appointments.ListByProvider(ctx, requester.ID, repositories.AppointmentFilter{})
	if err != nil {
		return nil, err
	}

	dashboard := &ProviderDashboard{Appointments: len(appointments)}
	for _, appointment := range appointments {
		switch appointment.Status {
		case entities.AppointmentStatusPending:
			dashboard.Pending++
		case entities.AppointmentStatusCancelled:
			dashboard.Cancelled++
		}
		if appointment.Status == entities.AppointmentStatusCompleted ||
			appointment.PaymentStatus == entities.PaymentStatusCompleted {
			dashboard.Earnings += appointment.Amount
		}
	}

	if len(appointments) > 5 {
		dashboard.Latest = appointments[:5]
	} else {
		dashboard.Latest = appointments
	}

	return dashboard, nil
}

// SetAvailability flips the availability flag of the requesting provider.
// Admins may flip any provider by passing its ID.
func (s *BookingService) SetAvailability(ctx context.Context, requester entities.Requester, providerID string, available bool) error {
	switch requester.Role {
	case entities.RoleAdmin:
	case entities.RoleProvider:
		if providerID != requester.ID {
			return apperrors.NewUnauthorizedError("providers may only change their own availability")
		}
	default:
		return apperrors.NewUnauthorizedError("provider role required")
	}
	return s.providers.SetAvailability(ctx, providerID, available)
}

// canManage reports whether the requester may act on the appointment.
// Owning users may cancel but never complete.
func canManage(requester entities.Requester, appointment *entities.Appointment, allowOwner bool) bool {
	switch requester.Role {
	case entities.RoleAdmin:
		return true
	case entities.RoleProvider:
		return requester.ID == appointment.ProviderID
	case entities.RoleUser:
		return allowOwner && requester.ID == appointment.UserID
	}
	return false
}

func (s *BookingService) publish(ctx context.Context, eventType entities.BookingEventType, appointment *entities.Appointment) {
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

	// Fan out to the shared channel and to the provider's own channel, so
	// provider dashboards can subscribe without filtering the firehose.
	channels := []string{
		domainproviders.EventChannelAppointments,
		domainproviders.GetProviderChannel(appointment.ProviderID),
	}
	for _, channel := range channels {
		if err := s.bus.Publish(ctx, channel, event); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).
				Str("appointment_id", appointment.ID).
				Str("event_type", string(eventType)).
				Str("channel", channel).
				Msg("failed to publish booking event")
		}
	}
}
