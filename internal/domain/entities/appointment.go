package entities

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Terminal reports whether no further status transition is allowed
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCancelled
}

// CanTransitionTo reports whether the status may move to target
func (s AppointmentStatus) CanTransitionTo(target AppointmentStatus) bool {
	if s.Terminal() {
		return false
	}
	return target == AppointmentStatusCompleted || target == AppointmentStatusCancelled
}

// PaymentStatus represents the settlement state of an appointment's payment.
// It is an independent axis from AppointmentStatus; neither blocks the other.
type PaymentStatus string

const (
	PaymentStatusNotInitiated PaymentStatus = "not_initiated"
	PaymentStatusInitiated    PaymentStatus = "initiated"
	PaymentStatusCompleted    PaymentStatus = "payment_completed"
	PaymentStatusCancelled    PaymentStatus = "payment_cancelled"
	PaymentStatusFailed       PaymentStatus = "payment_failed"
)

// Terminal reports whether the payment status is final
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusCompleted, PaymentStatusCancelled, PaymentStatusFailed:
		return true
	}
	return false
}

// Appointment represents a booking linking a user to a provider's slot.
// Amount is captured from the provider's fee at creation and never changes.
type Appointment struct {
	ID                 string            `json:"id" db:"id"`
	UserID             string            `json:"user_id" db:"user_id"`
	ProviderID         string            `json:"provider_id" db:"provider_id"`
	SlotDate           string            `json:"slot_date" db:"slot_date"`
	SlotTime           string            `json:"slot_time" db:"slot_time"`
	Amount             float64           `json:"amount" db:"amount"`
	Status             AppointmentStatus `json:"status" db:"status"`
	PaymentStatus      PaymentStatus     `json:"payment_status" db:"payment_status"`
	OrderID            *string           `json:"order_id,omitempty" db:"order_id"`
	PaymentInitiatedAt *time.Time        `json:"payment_initiated_at,omitempty" db:"payment_initiated_at"`
	CreatedAt          time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at" db:"updated_at"`
}

// SlotDateLayout and SlotTimeLayout define the wire format of slot keys
const (
	SlotDateLayout = "2006-01-02"
	SlotTimeLayout = "15:04"
)

// ValidSlotDate reports whether s is a calendar date in slot format
func ValidSlotDate(s string) bool {
	_, err := time.Parse(SlotDateLayout, s)
	return err == nil
}

// ValidSlotTime reports whether s is a time-of-day in slot format
func ValidSlotTime(s string) bool {
	_, err := time.Parse(SlotTimeLayout, s)
	return err == nil
}
