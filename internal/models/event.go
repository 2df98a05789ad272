package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventStatus is the publish state of an event.
type EventStatus string

const (
	StatusDraft EventStatus = "draft"
	StatusLive  EventStatus = "live"
)

// ParseEventStatus returns the status for s or an error when s is not a known status.
func ParseEventStatus(s string) (EventStatus, error) {
	switch EventStatus(s) {
	case StatusDraft, StatusLive:
		return EventStatus(s), nil
	}
	return "", fmt.Errorf("unknown event status %q", s)
}

// AttendeesVisibility controls which attendees are shown to other attendees.
type AttendeesVisibility string

const (
	VisibilityShowAll  AttendeesVisibility = "show_all"
	VisibilityShowList AttendeesVisibility = "show_list"
	VisibilityShowNone AttendeesVisibility = "show_none"
)

// ParseAttendeesVisibility returns the visibility for s.
func ParseAttendeesVisibility(s string) (AttendeesVisibility, error) {
	switch AttendeesVisibility(s) {
	case VisibilityShowAll, VisibilityShowList, VisibilityShowNone:
		return AttendeesVisibility(s), nil
	}
	return "", fmt.Errorf("unknown attendees visibility %q", s)
}

// LocationPreference is how attendees are matched in networking.
type LocationPreference string

const (
	LocationRandom  LocationPreference = "random"
	LocationNearest LocationPreference = "nearest"
)

// ParseLocationPreference returns the preference for s.
func ParseLocationPreference(s string) (LocationPreference, error) {
	switch LocationPreference(s) {
	case LocationRandom, LocationNearest:
		return LocationPreference(s), nil
	}
	return "", fmt.Errorf("unknown location preference %q", s)
}

// RegistrationPolicy is the event-wide registration mode.
type RegistrationPolicy string

const (
	RegistrationOpen        RegistrationPolicy = "open"
	RegistrationWaitlisting RegistrationPolicy = "waitlisting"
	RegistrationInviteOnly  RegistrationPolicy = "invite_only"
)

// ParseRegistrationPolicy returns the policy for s.
func ParseRegistrationPolicy(s string) (RegistrationPolicy, error) {
	switch RegistrationPolicy(s) {
	case RegistrationOpen, RegistrationWaitlisting, RegistrationInviteOnly:
		return RegistrationPolicy(s), nil
	}
	return "", fmt.Errorf("unknown registration status %q", s)
}

// RegistrationState returns the state a new registration gets under this policy.
// Invite-only events have no self-service registration, so ok is false.
func (p RegistrationPolicy) RegistrationState() (state RegistrationState, ok bool) {
	switch p {
	case RegistrationOpen:
		return RegistrationDone, true
	case RegistrationWaitlisting:
		return RegistrationWaitlisted, true
	case RegistrationInviteOnly:
		return "", false
	}
	return "", false
}

// EventType is the discoverability of an event.
type EventType string

const (
	EventTypePublic  EventType = "public_event"
	EventTypePrivate EventType = "private_event"
	EventTypeHidden  EventType = "hidden_event"
)

// ParseEventType returns the event type for s.
func ParseEventType(s string) (EventType, error) {
	switch EventType(s) {
	case EventTypePublic, EventTypePrivate, EventTypeHidden:
		return EventType(s), nil
	}
	return "", fmt.Errorf("unknown event type %q", s)
}

// Event is a schedulable occasion owned by an organization.
type Event struct {
	ID                    uuid.UUID           `json:"id"`
	Slug                  string              `json:"slug"`
	OrganizationID        uuid.UUID           `json:"organization_id"`
	Name                  string              `json:"name"`
	Location              string              `json:"location"`
	Description           string              `json:"description"`
	ShortDescription      string              `json:"short_description"`
	Message               string              `json:"message"`
	Theme                 string              `json:"theme,omitempty"`
	Color                 string              `json:"color,omitempty"`
	PasswordHash          string              `json:"-"`
	TimeStart             *time.Time          `json:"time_start"`
	TimeEnd               *time.Time          `json:"time_end"`
	Timezone              string              `json:"timezone"`
	Status                EventStatus         `json:"status"`
	AttendeesVisibility   AttendeesVisibility `json:"attendees_visibility"`
	LocationPreference    LocationPreference  `json:"location_preference"`
	RegistrationStatus    RegistrationPolicy  `json:"registration_status"`
	EventType             EventType           `json:"event_type"`
	Price                 float64             `json:"price"`
	Currency              string              `json:"currency"`
	PictureURL            string              `json:"picture_url,omitempty"`
	SuppressEmails        bool                `json:"suppress_emails"`
	EmbedTicketSuccessURL string              `json:"embed_ticket_success_url,omitempty"`
	EmbedTicketErrorURL   string              `json:"embed_ticket_error_url,omitempty"`
	CreatedAt             time.Time           `json:"created_at"`
	UpdatedAt             time.Time           `json:"updated_at"`

	// Schedules is populated only when the caller loads them.
	Schedules []Schedule `json:"schedules,omitempty"`
}

// IsDraft reports whether the event is unpublished.
func (e *Event) IsDraft() bool { return e.Status == StatusDraft }

// IsLive reports whether the event is published.
func (e *Event) IsLive() bool { return e.Status == StatusLive }

// IsPrivate reports whether the event requires a password.
func (e *Event) IsPrivate() bool { return e.EventType == EventTypePrivate }

// PasswordProtected reports whether the event is private and has a password set.
func (e *Event) PasswordProtected() bool {
	return e.IsPrivate() && e.PasswordHash != ""
}

// Free reports whether the event base price is zero.
func (e *Event) Free() bool { return e.Price == 0 }
