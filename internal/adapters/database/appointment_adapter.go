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

var appointmentColumns = []any{
	"id", "user_id", "provider_id", "slot_date", "slot_time", "amount",
	"status", "payment_status", "order_id", "payment_initiated_at",
	"created_at", "updated_at",
}

// AppointmentAdapter implements the AppointmentRepository interface
type AppointmentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAppointmentAdapter creates a new appointment adapter
func NewAppointmentAdapter(client *postgres.Client) repositories.AppointmentRepository {
	return &AppointmentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new appointment
func (a *AppointmentAdapter) Create(ctx context.Context, appointment *entities.Appointment) error {
	record := goqu.Record{
		"id":                   appointment.ID,
		"user_id":              appointment.UserID,
		"provider_id":          appointment.ProviderID,
		"slot_date":            appointment.SlotDate,
		"slot_time":            appointment.SlotTime,
		"amount":               appointment.Amount,
		"status":               appointment.Status,
		"payment_status":       appointment.PaymentStatus,
		"order_id":             appointment.OrderID,
		"payment_initiated_at": appointment.PaymentInitiatedAt,
		"created_at":           appointment.CreatedAt,
		"updated_at":           appointment.UpdatedAt,
	}

	query, args, err := a.db.Insert("appointments").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	_, err = a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to create appointment", err)
	}

	return nil
}

// GetByID retrieves an appointment by ID
func (a *AppointmentAdapter) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	appointment, err := a.getOne(ctx, goqu.Ex{"id": id})
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
		}
		return nil, err
	}
	return appointment, nil
}

// GetByOrderID retrieves the appointment holding the given order ID
func (a *AppointmentAdapter) GetByOrderID(ctx context.Context, orderID string) (*entities.Appointment, error) {
	appointment, err := a.getOne(ctx, goqu.Ex{"order_id": orderID})
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("no appointment for order %s", orderID))
		}
		return nil, err
	}
	return appointment, nil
}

// UpdateStatus moves status from expected to target only if the stored value
// still matches expected
func (a *AppointmentAdapter) UpdateStatus(ctx context.Context, id string, expected, target entities.AppointmentStatus) (bool, error) {
	query, args, err := a.db.Update("appointments").
		Set(goqu.Record{
			"status":     target,
			"updated_at": time.Now(),
		}).
		Where(goqu.Ex{"id": id, "status": expected}).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build status update query", err)
	}

	return a.execConditional(ctx, query, args)
}

// SetPaymentInitiated persists a fresh order ID and marks the payment
// initiated only if the stored payment status still matches expected
func (a *AppointmentAdapter) SetPaymentInitiated(ctx context.Context, id, orderID string, at time.Time, expected entities.PaymentStatus) (bool, error) {
	query, args, err := a.db.Update("appointments").
		Set(goqu.Record{
			"order_id":             orderID,
			"payment_status":       entities.PaymentStatusInitiated,
			"payment_initiated_at": at,
			"updated_at":           at,
		}).
		Where(goqu.Ex{"id": id, "payment_status": expected}).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build initiation query", err)
	}

	return a.execConditional(ctx, query, args)
}

// UpdatePaymentStatus moves paymentStatus from expected to target only if the
// stored value still matches expected
func (a *AppointmentAdapter) UpdatePaymentStatus(ctx context.Context, id string, expected, target entities.PaymentStatus) (bool, error) {
	query, args, err := a.db.Update("appointments").
		Set(goqu.Record{
			"payment_status": target,
			"updated_at":     time.Now(),
		}).
		Where(goqu.Ex{"id": id, "payment_status": expected}).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build payment status query", err)
	}

	return a.execConditional(ctx, query, args)
}

// ListByUser retrieves appointments for a user
func (a *AppointmentAdapter) ListByUser(ctx context.Context, userID string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	return a.list(ctx, goqu.Ex{"user_id": userID}, filter)
}

// ListByProvider retrieves appointments for a provider
func (a *AppointmentAdapter) ListByProvider(ctx context.Context, providerID string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	return a.list(ctx, goqu.Ex{"provider_id": providerID}, filter)
}

// ListUnsettledPayments returns appointments whose payment was initiated
// before the cutoff and never reached a terminal payment status
func (a *AppointmentAdapter) ListUnsettledPayments(ctx context.Context, olderThan time.Time) ([]*entities.Appointment, error) {
	ds := a.db.Select(appointmentColumns...).
		From("appointments").
		Where(goqu.Ex{"payment_status": entities.PaymentStatusInitiated}).
		Where(goqu.C("payment_initiated_at").Lt(olderThan)).
		Order(goqu.I("payment_initiated_at").Asc())

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build unsettled query", err)
	}

	return a.queryMany(ctx, query, args)
}

func (a *AppointmentAdapter) getOne(ctx context.Context, where goqu.Ex) (*entities.Appointment, error) {
	query, args, err := a.db.Select(appointmentColumns...).
		From("appointments").
		Where(where).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	appointment, err := scanAppointment(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("appointment not found")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get appointment", err)
	}
	return appointment, nil
}

func (a *AppointmentAdapter) list(ctx context.Context, where goqu.Ex, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	ds := a.db.Select(appointmentColumns...).
		From("appointments").
		Where(where)

	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"status": filter.Status})
	}

	ds = ds.Order(goqu.I("created_at").Desc())

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	return a.queryMany(ctx, query, args)
}

func (a *AppointmentAdapter) queryMany(ctx context.Context, query string, args []any) ([]*entities.Appointment, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list appointments", err)
	}
	defer rows.Close()

	var appointments []*entities.Appointment
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan appointment", err)
		}
		appointments = append(appointments, appointment)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate appointments", err)
	}

	return appointments, nil
}

func (a *AppointmentAdapter) execConditional(ctx context.Context, query string, args []any) (bool, error) {
	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperrors.NewInternalError("failed to execute update", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewInternalError("failed to get rows affected", err)
	}

	return rowsAffected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*entities.Appointment, error) {
	appointment := &entities.Appointment{}
	var orderID sql.NullString
	var paymentInitiatedAt sql.NullTime

	err := row.Scan(
		&appointment.ID,
		&appointment.UserID,
		&appointment.ProviderID,
		&appointment.SlotDate,
		&appointment.SlotTime,
		&appointment.Amount,
		&appointment.Status,
		&appointment.PaymentStatus,
		&orderID,
		&paymentInitiatedAt,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if orderID.Valid {
		appointment.OrderID = &orderID.String
	}
	if paymentInitiatedAt.Valid {
		appointment.PaymentInitiatedAt = &paymentInitiatedAt.Time
	}

	return appointment, nil
}
