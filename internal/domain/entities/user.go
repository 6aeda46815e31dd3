package entities

import (
	"time"
)

// User represents a user in the system. Profile management lives outside
// this service; users are read here only for booking ownership checks and
// payer details on payment descriptors.
type User struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Email       string    `json:"email" db:"email"`
	Phone       string    `json:"phone" db:"phone"`
	AddressLine string    `json:"address_line" db:"address_line"`
	City        string    `json:"city" db:"city"`
	Country     string    `json:"country" db:"country"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Role identifies the kind of authenticated subject making a request
type Role string

const (
	RoleUser     Role = "user"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

// Requester is the already-authenticated subject attached to a request by
// the gateway. Token issuance and verification happen upstream.
type Requester struct {
	ID   string
	Role Role
}
