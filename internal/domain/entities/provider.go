package entities

import (
	"time"
)

// Provider represents a service professional offering consultation slots
type Provider struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Speciality string    `json:"speciality" db:"speciality"`
	Fee        float64   `json:"fee" db:"fee"`
	Available  bool      `json:"available" db:"available"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// SlotKey identifies one discrete bookable unit for a provider.
// At most one non-cancelled appointment may hold a given key.
type SlotKey struct {
	ProviderID string `json:"provider_id" db:"provider_id"`
	SlotDate   string `json:"slot_date" db:"slot_date"`
	SlotTime   string `json:"slot_time" db:"slot_time"`
}

// Bucket returns the contention scope of the key. Reservation check-and-mark
// is serialized per bucket; distinct providers or dates never contend.
func (k SlotKey) Bucket() string {
	return k.ProviderID + "|" + k.SlotDate
}
