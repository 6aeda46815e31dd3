package services_test

import (
	"context"
	"sync"
	"time"

	"github.com/zatekoja/consultbook/internal/domain/entities"
	"github.com/zatekoja/consultbook/internal/domain/repositories"
	apperrors "github.com/zatekoja/consultbook/pkg/errors"
)

// In-memory repositories mirroring the conditional-update contract of the
// SQL adapters. All methods hand out copies so callers never share state
// with the store, the same way rows scanned from the database are detached.

type memProviderRepo struct {
	mu        sync.Mutex
	providers map[string]*entities.Provider
	slots     map[entities.SlotKey]bool
}

func newMemProviderRepo(providers ...*entities.Provider) *memProviderRepo {
	repo := &memProviderRepo{
		providers: make(map[string]*entities.Provider),
		slots:     make(map[entities.SlotKey]bool),
	}
	for _, p := range providers {
		repo.providers[p.ID] = p
	}
	return repo
}

func (r *memProviderRepo) GetByID(_ context.Context, id string) (*entities.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	provider, ok := r.providers[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("provider not found")
	}
	copied := *provider
	return &copied, nil
}

func (r *memProviderRepo) SetAvailability(_ context.Context, id string, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	provider, ok := r.providers[id]
	if !ok {
		return apperrors.NewNotFoundError("provider not found")
	}
	provider.Available = available
	return nil
}

func (r *memProviderRepo) ReserveSlot(_ context.Context, key entities.SlotKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slots[key] {
		return apperrors.NewConflictError("slot not available")
	}
	r.slots[key] = true
	return nil
}

func (r *memProviderRepo) ReleaseSlot(_ context.Context, key entities.SlotKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.slots, key)
	return nil
}

func (r *memProviderRepo) ListBookedSlots(_ context.Context, providerID, slotDate string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var times []string
	for key := range r.slots {
		if key.ProviderID == providerID && key.SlotDate == slotDate {
			times = append(times, key.SlotTime)
		}
	}
	return times, nil
}

func (r *memProviderRepo) booked(key entities.SlotKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slots[key]
}

type memAppointmentRepo struct {
	mu           sync.Mutex
	appointments map[string]*entities.Appointment
}

func newMemAppointmentRepo(appointments ...*entities.Appointment) *memAppointmentRepo {
	repo := &memAppointmentRepo{appointments: make(map[string]*entities.Appointment)}
	for _, a := range appointments {
		copied := *a
		repo.appointments[a.ID] = &copied
	}
	return repo
}

func (r *memAppointmentRepo) Create(_ context.Context, appointment *entities.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.appointments[appointment.ID]; exists {
		return apperrors.NewConflictError("appointment already exists")
	}
	copied := *appointment
	r.appointments[appointment.ID] = &copied
	return nil
}

func (r *memAppointmentRepo) GetByID(_ context.Context, id string) (*entities.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	appointment, ok := r.appointments[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("appointment not found")
	}
	copied := *appointment
	return &copied, nil
}

func (r *memAppointmentRepo) GetByOrderID(_ context.Context, orderID string) (*entities.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, appointment := range r.appointments {
		if appointment.OrderID != nil && *appointment.OrderID == orderID {
			copied := *appointment
			return &copied, nil
		}
	}
	return nil, apperrors.NewNotFoundError("appointment not found")
}

func (r *memAppointmentRepo) UpdateStatus(_ context.Context, id string, expected, target entities.AppointmentStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	appointment, ok := r.appointments[id]
	if !ok {
		return false, apperrors.NewNotFoundError("appointment not found")
	}
	if appointment.Status != expected {
		return false, nil
	}
	appointment.Status = target
	appointment.UpdatedAt = time.Now()
	return true, nil
}

func (r *memAppointmentRepo) SetPaymentInitiated(_ context.Context, id, orderID string, at time.Time, expected entities.PaymentStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	appointment, ok := r.appointments[id]
	if !ok {
		return false, apperrors.NewNotFoundError("appointment not found")
	}
	if appointment.PaymentStatus != expected {
		return false, nil
	}
	appointment.OrderID = &orderID
	appointment.PaymentStatus = entities.PaymentStatusInitiated
	appointment.PaymentInitiatedAt = &at
	appointment.UpdatedAt = at
	return true, nil
}

func (r *memAppointmentRepo) UpdatePaymentStatus(_ context.Context, id string, expected, target entities.PaymentStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	appointment, ok := r.appointments[id]
	if !ok {
		return false, apperrors.NewNotFoundError("appointment not found")
	}
	if appointment.PaymentStatus != expected {
		return false, nil
	}
	appointment.PaymentStatus = target
	appointment.UpdatedAt = time.Now()
	return true, nil
}

func (r *memAppointmentRepo) ListByUser(_ context.Context, userID string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*entities.Appointment
	for _, appointment := range r.appointments {
		if appointment.UserID != userID {
			continue
		}
		if filter.Status != "" && appointment.Status != filter.Status {
			continue
		}
		copied := *appointment
		result = append(result, &copied)
	}
	return result, nil
}

func (r *memAppointmentRepo) ListByProvider(_ context.Context, providerID string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*entities.Appointment
	for _, appointment := range r.appointments {
		if appointment.ProviderID != providerID {
			continue
		}
		if filter.Status != "" && appointment.Status != filter.Status {
			continue
		}
		copied := *appointment
		result = append(result, &copied)
	}
	return result, nil
}

func (r *memAppointmentRepo) ListUnsettledPayments(_ context.Context, olderThan time.Time) ([]*entities.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*entities.Appointment
	for _, appointment := range r.appointments {
		if appointment.PaymentStatus != entities.PaymentStatusInitiated {
			continue
		}
		if appointment.PaymentInitiatedAt == nil || !appointment.PaymentInitiatedAt.Before(olderThan) {
			continue
		}
		copied := *appointment
		result = append(result, &copied)
	}
	return result, nil
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*entities.User
}

func newMemUserRepo(users ...*entities.User) *memUserRepo {
	repo := &memUserRepo{users: make(map[string]*entities.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("user not found")
	}
	copied := *user
	return &copied, nil
}
