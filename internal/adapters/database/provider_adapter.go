package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/zatekoja/consultbook/internal/domain/entities"
	"github.com/zatekoja/consultbook/internal/domain/repositories"
	"github.com/zatekoja/consultbook/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/consultbook/pkg/errors"
)

// ProviderAdapter implements the ProviderRepository interface
type ProviderAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewProviderAdapter creates a new provider adapter
func NewProviderAdapter(client *postgres.Client) repositories.ProviderRepository {
	return &ProviderAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByID retrieves a provider by ID
func (a *ProviderAdapter) GetByID(ctx context.Context, id string) (*entities.Provider, error) {
	query, args, err := a.db.Select(
		"id", "name", "speciality", "fee", "available", "created_at", "updated_at",
	).From("providers").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	provider := &entities.Provider{}
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&provider.ID,
		&provider.Name,
		&provider.Speciality,
		&provider.Fee,
		&provider.Available,
		&provider.CreatedAt,
		&provider.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("provider with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get provider", err)
	}

	return provider, nil
}

// SetAvailability flips the provider's availability flag
func (a *ProviderAdapter) SetAvailability(ctx context.Context, id string, available bool) error {
	query, args, err := a.db.Update("providers").
		Set(goqu.Record{
			"available":  available,
			"updated_at": time.Now(),
		}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update provider availability", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("provider with id %s not found", id))
	}

	return nil
}

// ReserveSlot marks the slot booked. The composite primary key on
// (provider_id, slot_date, slot_time) makes the check and the mark one
// atomic statement; a concurrent holder surfaces as zero affected rows.
func (a *ProviderAdapter) ReserveSlot(ctx context.Context, key entities.SlotKey) error {
	query, args, err := a.db.Insert("provider_slots").
		Rows(goqu.Record{
			"provider_id": key.ProviderID,
			"slot_date":   key.SlotDate,
			"slot_time":   key.SlotTime,
			"created_at":  time.Now(),
		}).
		OnConflict(goqu.DoNothing()).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build reserve query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to reserve slot", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewConflictError("slot not available")
	}

	return nil
}

// ReleaseSlot removes the slot if present; releasing an absent slot is a no-op
func (a *ProviderAdapter) ReleaseSlot(ctx context.Context, key entities.SlotKey) error {
	query, args, err := a.db.Delete("provider_slots").
		Where(goqu.Ex{
			"provider_id": key.ProviderID,
			"slot_date":   key.SlotDate,
			"slot_time":   key.SlotTime,
		}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build release query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to release slot", err)
	}

	return nil
}

// ListBookedSlots returns the booked slot times for one provider day
func (a *ProviderAdapter) ListBookedSlots(ctx context.Context, providerID, slotDate string) ([]string, error) {
	query, args, err := a.db.Select("slot_time").
		From("provider_slots").
		Where(goqu.Ex{"provider_id": providerID, "slot_date": slotDate}).
		Order(goqu.I("slot_time").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list booked slots", err)
	}
	defer rows.Close()

	var slots []string
	for rows.Next() {
		var slotTime string
		if err := rows.Scan(&slotTime); err != nil {
			return nil, apperrors.NewInternalError("failed to scan slot", err)
		}
		slots = append(slots, slotTime)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate slots", err)
	}

	return slots, nil
}
