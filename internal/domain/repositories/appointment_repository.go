package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/consultbook/internal/domain/entities"
)

// AppointmentFilter narrows appointment listings
type AppointmentFilter struct {
	Status entities.AppointmentStatus
	Limit  int
	Offset int
}

// AppointmentRepository defines the interface for appointment data
// operations. Status and payment-status writes are conditional updates:
// they succeed only when the stored value still matches the expected
// precondition, which removes the read-then-write lost-update window.
type AppointmentRepository interface {
	// Create creates a new appointment
	Create(ctx context.Context, appointment *entities.Appointment) error

	// GetByID retrieves an appointment by ID
	GetByID(ctx context.Context, id string) (*entities.Appointment, error)

	// GetByOrderID retrieves the appointment holding the given order ID
	GetByOrderID(ctx context.Context, orderID string) (*entities.Appointment, error)

	// UpdateStatus moves status from expected to target. It reports false
	// without error when the stored status no longer matches expected.
	UpdateStatus(ctx context.Context, id string, expected, target entities.AppointmentStatus) (bool, error)

	// SetPaymentInitiated persists a fresh order ID and moves the payment
	// status to initiated, overwriting any prior order ID. The write only
	// lands while the stored payment status still matches expected; it
	// reports false without error otherwise.
	SetPaymentInitiated(ctx context.Context, id, orderID string, at time.Time, expected entities.PaymentStatus) (bool, error)

	// UpdatePaymentStatus moves paymentStatus from expected to target under
	// the same conditional-update contract as UpdateStatus.
	UpdatePaymentStatus(ctx context.Context, id string, expected, target entities.PaymentStatus) (bool, error)

	// ListByUser retrieves appointments for a user
	ListByUser(ctx context.Context, userID string, filter AppointmentFilter) ([]*entities.Appointment, error)

	// ListByProvider retrieves appointments for a provider
	ListByProvider(ctx context.Context, providerID string, filter AppointmentFilter) ([]*entities.Appointment, error)

	// ListUnsettledPayments returns appointments whose payment was initiated
	// before the cutoff and never reached a terminal payment status
	ListUnsettledPayments(ctx context.Context, olderThan time.Time) ([]*entities.Appointment, error)
}
