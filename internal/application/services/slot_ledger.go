package services

import (
	"context"

	"github.com/zatekoja/consultbook/internal/domain/entities"
	"github.com/zatekoja/consultbook/internal/domain/repositories"
	"github.com/zatekoja/consultbook/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/consultbook/pkg/errors"
)

// SlotLedger owns the booked-slot sets of all providers. Reservation
// check-and-mark runs inside one critical section per (provider, date)
// bucket, so concurrent attempts on the same slot observe exactly one
// winner; distinct buckets never block each other.
type SlotLedger struct {
	providers repositories.ProviderRepository
	buckets   *keyedMutex
	metrics   *observability.Metrics
}

// NewSlotLedger creates a new slot ledger
func NewSlotLedger(providers repositories.ProviderRepository, metrics *observability.Metrics) *SlotLedger {
	return &SlotLedger{
		providers: providers,
		buckets:   newKeyedMutex(),
		metrics:   metrics,
	}
}

// Reserve marks the slot booked if the provider is available and the slot is
// currently free. Both an already-booked slot and an unavailable provider
// fail with a conflict error.
func (l *SlotLedger) Reserve(ctx context.Context, key entities.SlotKey) error {
	if err := validateSlotKey(key); err != nil {
		return err
	}

	unlock := l.buckets.Lock(key.Bucket())
	defer unlock()

	provider, err := l.providers.GetByID(ctx, key.ProviderID)
	if err != nil {
		return err
	}
	if !provider.Available {
		return apperrors.NewConflictError("provider is not available for booking")
	}

	if err := l.providers.ReserveSlot(ctx, key); err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeConflict) {
			observability.CountReservationConflict(ctx, l.metrics, key.ProviderID)
		}
		return err
	}

	return nil
}

// Release frees the slot. Releasing a slot that is not booked is a silent
// no-op, which keeps double-cancel idempotent.
func (l *SlotLedger) Release(ctx context.Context, key entities.SlotKey) error {
	if err := validateSlotKey(key); err != nil {
		return err
	}

	unlock := l.buckets.Lock(key.Bucket())
	defer unlock()

	return l.providers.ReleaseSlot(ctx, key)
}

// BookedSlots returns the booked slot times for one provider day
func (l *SlotLedger) BookedSlots(ctx context.Context, providerID, slotDate string) ([]string, error) {
	if providerID == "" {
		return nil, apperrors.NewValidationError("provider id is required")
	}
	if !entities.ValidSlotDate(slotDate) {
		return nil, apperrors.NewValidationError("slot date must be formatted as YYYY-MM-DD")
	}
	return l.providers.ListBookedSlots(ctx, providerID, slotDate)
}

func validateSlotKey(key entities.SlotKey) error {
	if key.ProviderID == "" {
		return apperrors.NewValidationError("provider id is required")
	}
	if !entities.ValidSlotDate(key.SlotDate) {
		return apperrors.NewValidationError("slot date must be formatted as YYYY-MM-DD")
	}
	if !entities.ValidSlotTime(key.SlotTime) {
		return apperrors.NewValidationError("slot time must be formatted as HH:MM")
	}
	return nil
}
