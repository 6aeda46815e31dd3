package repositories

import (
	"context"

	"github.com/zatekoja/consultbook/internal/domain/entities"
)

// ProviderRepository defines the interface for provider data operations.
// Booked-slot rows are mutated only through the slot ledger.
type ProviderRepository interface {
	// GetByID retrieves a provider by ID
	GetByID(ctx context.Context, id string) (*entities.Provider, error)

	// SetAvailability flips the provider's availability flag
	SetAvailability(ctx context.Context, id string, available bool) error

	// ReserveSlot marks the slot booked. The check and the mark are one
	// atomic step; a key that is already booked yields a conflict error.
	ReserveSlot(ctx context.Context, key entities.SlotKey) error

	// ReleaseSlot removes the slot if present. Releasing an absent slot is
	// a silent no-op.
	ReleaseSlot(ctx context.Context, key entities.SlotKey) error

	// ListBookedSlots returns the booked slot times for one provider day
	ListBookedSlots(ctx context.Context, providerID, slotDate string) ([]string, error)
}
