package events

import (
	"time"
	_ "time/tzdata" // zone database for hosts without one

	"github.com/aura-events/backend/internal/models"
)

const (
	startingSoonWindow = 5 * time.Minute
	earlyBirdLead      = 10 * 24 * time.Hour
)

// TotalTime is the scheduled length of ev, or zero when either bound is missing.
func TotalTime(ev *models.Event) time.Duration {
	if ev.TimeStart == nil || ev.TimeEnd == nil {
		return 0
	}
	return ev.TimeEnd.Sub(*ev.TimeStart)
}

// Started reports whether a live event has passed its start time.
func Started(ev *models.Event, now time.Time) bool {
	return ev.IsLive() && ev.TimeStart != nil && now.After(*ev.TimeStart)
}

// Finished reports whether a live event has passed its end time.
func Finished(ev *models.Event, now time.Time) bool {
	return ev.IsLive() && HasEnded(ev, now)
}

// HasEnded reports whether the end time has been reached, regardless of status.
func HasEnded(ev *models.Event, now time.Time) bool {
	return ev.TimeEnd != nil && !now.Before(*ev.TimeEnd)
}

// StartingNow reports whether now falls between five minutes before the start and the end.
func StartingNow(ev *models.Event, now time.Time) bool {
	if ev.TimeStart == nil || ev.TimeEnd == nil {
		return false
	}
	return !now.Before(ev.TimeStart.Add(-startingSoonWindow)) && !now.After(*ev.TimeEnd)
}

// InListScope reports whether ev belongs to a listing scope at now. Every scope other than ListAll
// holds live events only: upcoming have not ended, finished ended strictly before now, ongoing have
// started strictly before now and end strictly after it.
func InListScope(ev *models.Event, scope ListScope, now time.Time) bool {
	if scope == ListAll {
		return true
	}
	if !ev.IsLive() || ev.TimeEnd == nil {
		return false
	}
	switch scope {
	case ListUpcoming:
		return ev.TimeEnd.After(now)
	case ListFinished:
		return ev.TimeEnd.Before(now)
	case ListOngoing:
		return ev.TimeStart != nil && ev.TimeStart.Before(now) && ev.TimeEnd.After(now)
	}
	return false
}

// EarlyBirdPeriod reports whether now is more than ten days before the start.
func EarlyBirdPeriod(ev *models.Event, now time.Time) bool {
	return ev.TimeStart != nil && now.Before(ev.TimeStart.Add(-earlyBirdLead))
}

// DatesInPast reports whether either bound lies before now.
func DatesInPast(ev *models.Event, now time.Time) bool {
	return (ev.TimeStart != nil && ev.TimeStart.Before(now)) || (ev.TimeEnd != nil && ev.TimeEnd.Before(now))
}

// Location returns the event's time zone, falling back to UTC when unset or unknown.
func Location(ev *models.Event) *time.Location {
	if ev.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(ev.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LocalStart returns the start time in the event's zone.
func LocalStart(ev *models.Event) *time.Time {
	if ev.TimeStart == nil {
		return nil
	}
	t := ev.TimeStart.In(Location(ev))
	return &t
}

// LocalEnd returns the end time in the event's zone.
func LocalEnd(ev *models.Event) *time.Time {
	if ev.TimeEnd == nil {
		return nil
	}
	t := ev.TimeEnd.In(Location(ev))
	return &t
}
