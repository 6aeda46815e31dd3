package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/consultbook/internal/domain/entities"
	domainproviders "github.com/zatekoja/consultbook/internal/domain/providers"
	"github.com/zatekoja/consultbook/internal/domain/repositories"
	"github.com/zatekoja/consultbook/internal/infrastructure/observability"
	"github.com/zatekoja/consultbook/internal/infrastructure/payhere"
	apperrors "github.com/zatekoja/consultbook/pkg/errors"
)

// ReconcileOutcome reports how a gateway notification was resolved
type ReconcileOutcome string

const (
	// ReconcileApplied means the payment status transition was performed
	ReconcileApplied ReconcileOutcome = "applied"

	// ReconcileDuplicate means the payment status already matched the
	// target; an at-least-once redelivery, nothing changed
	ReconcileDuplicate ReconcileOutcome = "duplicate"

	// ReconcileLateIgnored means the payment had already completed; a
	// completed payment status is immutable
	ReconcileLateIgnored ReconcileOutcome = "late_ignored"

	// ReconcileUnknownOrder means no appointment holds the order ID; the
	// notification is treated as a stale or replayed delivery
	ReconcileUnknownOrder ReconcileOutcome = "unknown_order"
)

// ReconciliationService verifies inbound gateway notifications and applies
// their payment outcome to the owning appointment. Application for a given
// order ID is serialized, so duplicate concurrent deliveries cannot both
// transition the payment status. Reconciliation never touches the
// appointment status or the slot: a payment completing after an independent
// cancellation is recorded for audit, but the slot stays free.
type ReconciliationService struct {
	appointments repositories.AppointmentRepository
	signer       *payhere.Signer
	orders       *keyedMutex
	bus          domainproviders.EventBus
	metrics      *observability.Metrics
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(
	appointments repositories.AppointmentRepository,
	signer *payhere.Signer,
	bus domainproviders.EventBus,
	metrics *observability.Metrics,
) *ReconciliationService {
	return &ReconciliationService{
		appointments: appointments,
		signer:       signer,
		orders:       newKeyedMutex(),
		bus:          bus,
		metrics:      metrics,
	}
}

// Process verifies the notification signature, maps the gateway status code
// and applies the resulting transition. Verification and mapping failures
// come back as integrity or validation errors; the webhook layer decides
// how to acknowledge them.
func (s *ReconciliationService) Process(ctx context.Context, notification *entities.PaymentNotification) (ReconcileOutcome, error) {
	if err := s.signer.VerifyNotification(notification); err != nil {
		observability.CountNotification(ctx, s.metrics, "signature_invalid")
		return "", err
	}

	target, err := payhere.TargetStatus(notification.StatusCode)
	if err != nil {
		observability.CountNotification(ctx, s.metrics, "unknown_status")
		return "", err
	}

	outcome, err := s.Apply(ctx, notification.OrderID, target)
	if err == nil {
		observability.CountNotification(ctx, s.metrics, string(outcome))
	}
	return outcome, err
}

// Apply looks up the appointment by order ID and moves its payment status to
// target. A missing order, an already-completed payment and a repeated
// delivery are all benign no-ops with distinct outcomes.
func (s *ReconciliationService) Apply(ctx context.Context, orderID string, target entities.PaymentStatus) (ReconcileOutcome, error) {
	unlock := s.orders.Lock(orderID)
	defer unlock()

	appointment, err := s.appointments.GetByOrderID(ctx, orderID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			observability.LoggerFromContext(ctx).Info().
				Str("order_id", orderID).
				Msg("notification for unknown order discarded")
			return ReconcileUnknownOrder, nil
		}
		return "", err
	}

	if appointment.PaymentStatus == entities.PaymentStatusCompleted {
		return ReconcileLateIgnored, nil
	}
	if appointment.PaymentStatus == target {
		return ReconcileDuplicate, nil
	}

	updated, err := s.appointments.UpdatePaymentStatus(ctx, appointment.ID, appointment.PaymentStatus, target)
	if err != nil {
		return "", err
	}
	if !updated {
		// The stored status moved underneath us, e.g. a re-initiation
		// raced this delivery. Re-read and classify.
		current, err := s.appointments.GetByID(ctx, appointment.ID)
		if err != nil {
			return "", err
		}
		if current.PaymentStatus == entities.PaymentStatusCompleted {
			return ReconcileLateIgnored, nil
		}
		if current.PaymentStatus == target {
			return ReconcileDuplicate, nil
		}
		return "", apperrors.NewStateError("payment status changed during reconciliation")
	}

	appointment.PaymentStatus = target
	observability.CountPaymentSettled(ctx, s.metrics, string(target))
	s.publishSettled(ctx, appointment)

	return ReconcileApplied, nil
}

func (s *ReconciliationService) publishSettled(ctx context.Context, appointment *entities.Appointment) {
	if s.bus == nil {
		return
	}

	event := &entities.BookingEvent{
		ID:            uuid.New().String(),
		Type:          entities.BookingEventPaymentSettled,
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
			Msg("failed to publish settlement event")
	}
}
