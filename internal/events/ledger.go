package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/aura-events/backend/internal/models"
)

// Scope selects which registrations a ledger query covers.
type Scope string

const (
	// ScopeConfirmed is done and not refunded.
	ScopeConfirmed Scope = "confirmed"
	// ScopeWaitlisted is waitlisted and not refunded.
	ScopeWaitlisted Scope = "waitlisted"
	ScopeAll        Scope = "all"
)

// SumField names a numeric registration column that can be summed.
type SumField string

const SumPrice SumField = "price"

// Filter narrows a scoped count. Zero values do not filter.
type Filter struct {
	PaidOnly     bool // price is non-zero
	PersonaID    *uuid.UUID
	UserID       *uuid.UUID
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Participated *bool
}

// RegisterParams describes a new registration.
type RegisterParams struct {
	EventID     uuid.UUID
	UserID      uuid.UUID
	Price       float64
	ChargeID    string
	PersonaID   *uuid.UUID
	Status      models.RegistrationState
	AffiliateID *uuid.UUID
	ExtraFields json.RawMessage
}

// RegistrationLedger is the store of an event's registrations.
// Each write is atomic: readers never see a half-applied registration.
type RegistrationLedger interface {
	Count(ctx context.Context, eventID uuid.UUID, scope Scope) (int, error)
	Sum(ctx context.Context, eventID uuid.UUID, scope Scope, field SumField) (float64, error)
	CountWhere(ctx context.Context, eventID uuid.UUID, scope Scope, f Filter) (int, error)
	RegisterUser(ctx context.Context, p RegisterParams) (*models.Registration, error)
	UnregisterUser(ctx context.Context, eventID, userID uuid.UUID) error
}

// UserAttending reports whether userID holds a confirmed registration.
func UserAttending(ctx context.Context, l RegistrationLedger, eventID, userID uuid.UUID) (bool, error) {
	n, err := l.CountWhere(ctx, eventID, ScopeConfirmed, Filter{UserID: &userID})
	return n > 0, err
}

// UserWaitlisted reports whether userID is on the waitlist.
func UserWaitlisted(ctx context.Context, l RegistrationLedger, eventID, userID uuid.UUID) (bool, error) {
	n, err := l.CountWhere(ctx, eventID, ScopeWaitlisted, Filter{UserID: &userID})
	return n > 0, err
}

// TicketsCount is the number of confirmed registrations for one persona.
func TicketsCount(ctx context.Context, l RegistrationLedger, eventID, personaID uuid.UUID) (int, error) {
	return l.CountWhere(ctx, eventID, ScopeConfirmed, Filter{PersonaID: &personaID})
}

// ValidForDeletion reports whether the event has no confirmed registrations.
func ValidForDeletion(ctx context.Context, l RegistrationLedger, eventID uuid.UUID) (bool, error) {
	n, err := l.Count(ctx, eventID, ScopeConfirmed)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// InScope reports whether r belongs to scope.
func InScope(r *models.Registration, scope Scope) bool {
	switch scope {
	case ScopeConfirmed:
		return r.Confirmed()
	case ScopeWaitlisted:
		return r.Status == models.RegistrationWaitlisted && !r.Refunded
	case ScopeAll:
		return true
	}
	return false
}

// Matches reports whether r passes every set field of f.
func (f Filter) Matches(r *models.Registration) bool {
	if f.PaidOnly && r.Price == 0 {
		return false
	}
	if f.PersonaID != nil && (r.PersonaID == nil || *r.PersonaID != *f.PersonaID) {
		return false
	}
	if f.UserID != nil && r.UserID != *f.UserID {
		return false
	}
	if f.CreatedFrom != nil && r.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && !r.CreatedAt.Before(*f.CreatedTo) {
		return false
	}
	if f.Participated != nil && r.Participated != *f.Participated {
		return false
	}
	return true
}
