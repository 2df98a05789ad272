package events

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/currency"

	"github.com/aura-events/backend/internal/models"
)

const (
	minFormTextLength         = 30
	maxShortDescriptionLength = 120
)

var (
	colorPattern = regexp.MustCompile(`(?i)^#?(?:[A-F0-9]{3}){1,2}$`)
	urlPattern   = regexp.MustCompile(`https?://\S+`)
)

// FieldError is a user-correctable validation failure scoped to one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is the full set of failures from one validation run.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		parts = append(parts, fe.Field+" "+fe.Message)
	}
	return strings.Join(parts, ", ")
}

// On returns the messages reported against field.
func (e Errors) On(field string) []string {
	var out []string
	for _, fe := range e {
		if fe.Field == field {
			out = append(out, fe.Message)
		}
	}
	return out
}

func (e *Errors) add(field, message string) {
	*e = append(*e, FieldError{Field: field, Message: message})
}

// Profile selects the extra rules applied on top of the always-on validations.
type Profile string

const (
	ProfileDefault       Profile = ""
	ProfileRegistration  Profile = "registration"
	ProfileReceptionForm Profile = "reception_form"
	ProfilePublish       Profile = "publish"
)

// ParseProfile maps a request context name to a Profile. Empty and "edit" select the default profile.
func ParseProfile(s string) (Profile, error) {
	switch s {
	case "", "edit":
		return ProfileDefault, nil
	case string(ProfileRegistration), string(ProfileReceptionForm), string(ProfilePublish):
		return Profile(s), nil
	}
	return "", fmt.Errorf("unknown validation context %q", s)
}

// Validate checks ev against the structural invariants and the rules of profile.
// confirmed is the number of confirmed registrations and only matters for ProfilePublish.
// org supplies the plan limit on event length; a nil org skips that check.
func Validate(ev *models.Event, org *models.Organization, confirmed int, profile Profile) Errors {
	var errs Errors

	requirePresent(&errs, "name", ev.Name)
	requirePresent(&errs, "location", ev.Location)
	requirePresent(&errs, "location_preference", string(ev.LocationPreference))
	requirePresent(&errs, "currency", ev.Currency)
	requirePresent(&errs, "timezone", ev.Timezone)

	if _, err := models.ParseEventStatus(string(ev.Status)); err != nil {
		errs.add("status", "is not included in the list")
	}
	if ev.LocationPreference != "" {
		if _, err := models.ParseLocationPreference(string(ev.LocationPreference)); err != nil {
			errs.add("location_preference", "is not included in the list")
		}
	}
	if strings.TrimSpace(ev.Currency) != "" {
		if _, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(ev.Currency))); err != nil {
			errs.add("currency", "is not a valid ISO 4217 code")
		}
	}
	if strings.TrimSpace(ev.Timezone) != "" {
		if _, err := time.LoadLocation(ev.Timezone); err != nil {
			errs.add("timezone", "is not a valid time zone")
		}
	}
	if ev.IsPrivate() && ev.PasswordHash == "" {
		errs.add("password", "can't be blank")
	}
	if utf8.RuneCountInString(ev.ShortDescription) > maxShortDescriptionLength {
		errs.add("short_description", fmt.Sprintf("%d characters is the maximum allowed", maxShortDescriptionLength))
	}
	if ev.Color != "" && !colorPattern.MatchString(ev.Color) {
		errs.add("color", "is invalid")
	}
	if ev.EmbedTicketSuccessURL != "" && !urlPattern.MatchString(ev.EmbedTicketSuccessURL) {
		errs.add("embed_ticket_success_url", "format is invalid")
	}
	if ev.EmbedTicketErrorURL != "" && !urlPattern.MatchString(ev.EmbedTicketErrorURL) {
		errs.add("embed_ticket_error_url", "format is invalid")
	}

	validateTheme(&errs, ev.Theme)
	validateDateRange(&errs, ev)
	validateMaxEventLength(&errs, ev, org)
	validateSchedules(&errs, ev)

	switch profile {
	case ProfileRegistration:
		requireFormText(&errs, "description", ev.Description)
	case ProfileReceptionForm:
		requireFormText(&errs, "message", ev.Message)
	case ProfilePublish:
		if ev.IsDraft() && !CanTransition(ev.Status, confirmed) {
			errs.add("status", "Cannot unpublish event with registrations")
		}
	case ProfileDefault:
	}
	return errs
}

// CanTransition reports whether an event may end up in status to while it has confirmed registrations.
// Publishing is always allowed; an event with confirmed registrations cannot be a draft.
func CanTransition(to models.EventStatus, confirmed int) bool {
	switch to {
	case models.StatusLive:
		return true
	case models.StatusDraft:
		return confirmed == 0
	}
	return false
}

func requirePresent(errs *Errors, field, value string) {
	if strings.TrimSpace(value) == "" {
		errs.add(field, "can't be blank")
	}
}

// requireFormText enforces presence, and a minimum length only once the text is present.
func requireFormText(errs *Errors, field, value string) {
	if strings.TrimSpace(value) == "" {
		errs.add(field, "can't be blank")
		return
	}
	if utf8.RuneCountInString(value) < minFormTextLength {
		errs.add(field, fmt.Sprintf("is too short (minimum is %d characters)", minFormTextLength))
	}
}

func validateTheme(errs *Errors, theme string) {
	if strings.TrimSpace(theme) == "" {
		return
	}
	if !json.Valid([]byte(theme)) {
		errs.add("theme", "must be valid JSON")
	}
}

func validateDateRange(errs *Errors, ev *models.Event) {
	if ev.TimeStart == nil {
		errs.add("time_start", "must be selected")
	}
	if ev.TimeEnd == nil {
		errs.add("time_end", "must be selected")
	}
	if ev.TimeStart != nil && ev.TimeEnd != nil && !ev.TimeStart.Before(*ev.TimeEnd) {
		errs.add("time_end", "must be later than time start")
	}
}

func validateMaxEventLength(errs *Errors, ev *models.Event, org *models.Organization) {
	if org == nil {
		return
	}
	if TotalTime(ev) > time.Duration(org.MaxEventLengthHours)*time.Hour {
		errs.add("event", fmt.Sprintf("cannot be longer than %d hours", org.MaxEventLengthHours))
	}
}

// validateSchedules requires every loaded schedule to be a proper window inside the event.
func validateSchedules(errs *Errors, ev *models.Event) {
	for _, s := range ev.Schedules {
		if !s.TimeStart.Before(s.TimeEnd) {
			errs.add("schedules", fmt.Sprintf("%q must end after it starts", s.Name))
			continue
		}
		if ev.TimeStart == nil || ev.TimeEnd == nil {
			continue
		}
		if s.TimeStart.Before(*ev.TimeStart) || s.TimeEnd.After(*ev.TimeEnd) {
			errs.add("schedules", fmt.Sprintf("%q must be within the event time", s.Name))
		}
	}
}
