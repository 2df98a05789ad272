package events

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/utils"
)

// Patch is a partial event update. Nil fields are left unchanged.
type Patch struct {
	Name                  *string    `json:"name"`
	Slug                  *string    `json:"slug"`
	Location              *string    `json:"location"`
	Description           *string    `json:"description"`
	ShortDescription      *string    `json:"short_description"`
	Message               *string    `json:"message"`
	Theme                 *string    `json:"theme"`
	Color                 *string    `json:"color"`
	Password              *string    `json:"password"`
	TimeStart             *time.Time `json:"time_start"`
	TimeEnd               *time.Time `json:"time_end"`
	Timezone              *string    `json:"timezone"`
	AttendeesVisibility   *string    `json:"attendees_visibility"`
	LocationPreference    *string    `json:"location_preference"`
	RegistrationStatus    *string    `json:"registration_status"`
	EventType             *string    `json:"event_type"`
	Price                 *float64   `json:"price"`
	Currency              *string    `json:"currency"`
	PictureURL            *string    `json:"picture_url"`
	SuppressEmails        *bool      `json:"suppress_emails"`
	EmbedTicketSuccessURL *string    `json:"embed_ticket_success_url"`
	EmbedTicketErrorURL   *string    `json:"embed_ticket_error_url"`
}

// apply copies the set fields onto ev. Unknown enum values come back as field errors.
func (p *Patch) apply(ev *models.Event) error {
	var errs Errors
	setString(&ev.Name, p.Name)
	setString(&ev.Location, p.Location)
	setString(&ev.Description, p.Description)
	setString(&ev.ShortDescription, p.ShortDescription)
	setString(&ev.Message, p.Message)
	setString(&ev.Theme, p.Theme)
	setString(&ev.Color, p.Color)
	setString(&ev.Timezone, p.Timezone)
	setString(&ev.PictureURL, p.PictureURL)
	setString(&ev.EmbedTicketSuccessURL, p.EmbedTicketSuccessURL)
	setString(&ev.EmbedTicketErrorURL, p.EmbedTicketErrorURL)
	if p.Currency != nil {
		ev.Currency = strings.ToUpper(strings.TrimSpace(*p.Currency))
	}
	if p.TimeStart != nil {
		t := p.TimeStart.UTC()
		ev.TimeStart = &t
	}
	if p.TimeEnd != nil {
		t := p.TimeEnd.UTC()
		ev.TimeEnd = &t
	}
	if p.Price != nil {
		if *p.Price < 0 {
			errs.add("price", "must be greater than or equal to 0")
		} else {
			ev.Price = *p.Price
		}
	}
	if p.SuppressEmails != nil {
		ev.SuppressEmails = *p.SuppressEmails
	}
	if p.AttendeesVisibility != nil {
		v, err := models.ParseAttendeesVisibility(*p.AttendeesVisibility)
		setEnum(&errs, "attendees_visibility", err, func() { ev.AttendeesVisibility = v })
	}
	if p.LocationPreference != nil {
		v, err := models.ParseLocationPreference(*p.LocationPreference)
		setEnum(&errs, "location_preference", err, func() { ev.LocationPreference = v })
	}
	if p.RegistrationStatus != nil {
		v, err := models.ParseRegistrationPolicy(*p.RegistrationStatus)
		setEnum(&errs, "registration_status", err, func() { ev.RegistrationStatus = v })
	}
	if p.EventType != nil {
		v, err := models.ParseEventType(*p.EventType)
		setEnum(&errs, "event_type", err, func() { ev.EventType = v })
	}
	if p.Password != nil && *p.Password != "" {
		hash, err := utils.HashPassword(*p.Password)
		switch {
		case errors.Is(err, utils.ErrPasswordTooLong):
			errs.add("password", "is too long (maximum is 72 bytes)")
		case err != nil:
			return fmt.Errorf("hash password: %w", err)
		default:
			ev.PasswordHash = hash
		}
	}
	if !ev.IsPrivate() {
		ev.PasswordHash = ""
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setEnum(errs *Errors, field string, err error, set func()) {
	if err != nil {
		errs.add(field, "is not included in the list")
		return
	}
	set()
}
