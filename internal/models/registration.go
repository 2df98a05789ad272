package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RegistrationState is the attendance state of a registration.
type RegistrationState string

const (
	RegistrationDone       RegistrationState = "done"
	RegistrationWaitlisted RegistrationState = "waitlisted"
)

// ParseRegistrationState returns the state for s.
func ParseRegistrationState(s string) (RegistrationState, error) {
	switch RegistrationState(s) {
	case RegistrationDone, RegistrationWaitlisted:
		return RegistrationState(s), nil
	}
	return "", fmt.Errorf("unknown registration state %q", s)
}

// Registration is an attendee's ticket for an event.
type Registration struct {
	ID               uuid.UUID         `json:"id"`
	EventID          uuid.UUID         `json:"event_id"`
	UserID           uuid.UUID         `json:"user_id"`
	PersonaID        *uuid.UUID        `json:"persona_id,omitempty"`
	EventAffiliateID *uuid.UUID        `json:"event_affiliate_id,omitempty"`
	Price            float64           `json:"price"`
	ChargeID         string            `json:"charge_id,omitempty"`
	Status           RegistrationState `json:"status"`
	Refunded         bool              `json:"refunded"`
	Participated     bool              `json:"participated"`
	ExtraFields      json.RawMessage   `json:"extra_fields,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Confirmed reports whether the registration counts towards sales and attendee totals.
func (r *Registration) Confirmed() bool {
	return r.Status == RegistrationDone && !r.Refunded
}
