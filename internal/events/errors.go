package events

import "errors"

var (
	ErrEventNotFound      = errors.New("event not found")
	ErrStartTimeLocked    = errors.New("event already started, start time is locked")
	ErrDatesInPast        = errors.New("start or end date is in the past")
	ErrHasRegistrations   = errors.New("event has confirmed registrations")
	ErrNoRegistrations    = errors.New("event has no registrations")
	ErrUnknownReport      = errors.New("unknown report kind")
	ErrForbidden          = errors.New("not authorized for this organization")
	ErrAlreadyRegistered  = errors.New("already registered for this event")
	ErrRegistrationClosed = errors.New("registration is not open for this event")
	ErrWrongPassword      = errors.New("wrong event password")
	ErrNotRegistered      = errors.New("not registered for this event")
)
