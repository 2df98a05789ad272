package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventPartType is the kind of area an event part provides.
type EventPartType string

const (
	PartStage      EventPartType = "stage"
	PartNetworking EventPartType = "networking"
	PartSessions   EventPartType = "sessions"
	PartExpo       EventPartType = "expo"
)

// ParseEventPartType returns the part type for s.
func ParseEventPartType(s string) (EventPartType, error) {
	switch EventPartType(s) {
	case PartStage, PartNetworking, PartSessions, PartExpo:
		return EventPartType(s), nil
	}
	return "", fmt.Errorf("unknown event part type %q", s)
}

// EventPart is a structural segment of an event.
type EventPart struct {
	ID             uuid.UUID     `json:"id"`
	EventID        uuid.UUID     `json:"event_id"`
	Name           string        `json:"name"`
	PartType       EventPartType `json:"part_type"`
	TimerLength    int           `json:"timer_length"`
	StreamProvider string        `json:"stream_provider,omitempty"`
}

// Schedule is a time window for an event part.
type Schedule struct {
	ID          uuid.UUID `json:"id"`
	EventID     uuid.UUID `json:"event_id"`
	EventPartID uuid.UUID `json:"event_part_id"`
	Name        string    `json:"name"`
	TimeStart   time.Time `json:"time_start"`
	TimeEnd     time.Time `json:"time_end"`
}

// Backstage is the production area of a stage part. One per part is primary.
type Backstage struct {
	ID          uuid.UUID `json:"id"`
	EventID     uuid.UUID `json:"event_id"`
	EventPartID uuid.UUID `json:"event_part_id"`
	IsPrimary   bool      `json:"is_primary"`
}
