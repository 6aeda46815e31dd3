package entities

import (
	"time"
)

// BookingEventType identifies what happened to a booking
type BookingEventType string

const (
	BookingEventBooked           BookingEventType = "appointment.booked"
	BookingEventCancelled        BookingEventType = "appointment.cancelled"
	BookingEventCompleted        BookingEventType = "appointment.completed"
	BookingEventPaymentInitiated BookingEventType = "payment.initiated"
	BookingEventPaymentSettled   BookingEventType = "payment.settled"
)

// BookingEvent is published on the event bus whenever a booking or its
// payment changes state
type BookingEvent struct {
	ID            string            `json:"id"`
	Type          BookingEventType  `json:"type"`
	AppointmentID string            `json:"appointment_id"`
	ProviderID    string            `json:"provider_id"`
	UserID        string            `json:"user_id"`
	PaymentStatus PaymentStatus     `json:"payment_status,omitempty"`
	Status        AppointmentStatus `json:"status,omitempty"`
	OccurredAt    time.Time         `json:"occurred_at"`
}
