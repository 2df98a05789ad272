package models

import (
	"time"

	"github.com/google/uuid"
)

// Persona is a ticket type offered for an event.
type Persona struct {
	ID          uuid.UUID `json:"id"`
	EventID     uuid.UUID `json:"event_id"`
	Label       string    `json:"label"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Capacity    int       `json:"capacity"`
	Visible     bool      `json:"visible"`
	CreatedAt   time.Time `json:"created_at"`
}

// Discount is a percentage reduction applied to the event price while active.
type Discount struct {
	ID        uuid.UUID `json:"id"`
	EventID   uuid.UUID `json:"event_id"`
	Code      string    `json:"code"`
	Value     float64   `json:"value"` // percent
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Sponsor is a company promoted at an event.
type Sponsor struct {
	ID      uuid.UUID `json:"id"`
	EventID uuid.UUID `json:"event_id"`
	Name    string    `json:"name"`
	Email   string    `json:"email,omitempty"`
	About   string    `json:"about,omitempty"`
}
