package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/queue"
	"github.com/aura-events/backend/pkg/utils"
)

// Analytics event names.
const (
	TrackPublishEvent   = "Publish Event"
	TrackTimeEndChanged = "Time End Changed"
)

// Realtime feed events sent to organiser dashboards.
const (
	FeedStatusChanged        = "event_status_changed"
	FeedRegistrationsChanged = "registrations_changed"
	FeedReportQueued         = "report_queued"
)

// ListScope narrows event listings by time.
type ListScope string

const (
	ListAll      ListScope = ""
	ListUpcoming ListScope = "upcoming"
	ListFinished ListScope = "finished"
	ListOngoing  ListScope = "ongoing"
)

// ParseListScope returns the scope for s.
func ParseListScope(s string) (ListScope, error) {
	switch ListScope(s) {
	case ListAll, ListUpcoming, ListFinished, ListOngoing:
		return ListScope(s), nil
	}
	return "", fmt.Errorf("unknown scope %q", s)
}

// ListParams filters event listings.
type ListParams struct {
	OrganizationID *uuid.UUID
	LiveOnly       bool
	PublicOnly     bool
	Scope          ListScope
	Query          string
	Now            time.Time
	Limit          int
	Offset         int
}

// Store persists events and reads their owned children.
type Store interface {
	Create(ctx context.Context, ev *models.Event) error
	Update(ctx context.Context, ev *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	GetBySlug(ctx context.Context, slug string) (*models.Event, error)
	SlugTaken(ctx context.Context, slug string, except uuid.UUID) (bool, error)
	// Delete removes the event and, in the same transaction, everything it owns.
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, p ListParams) ([]models.Event, error)
	Schedules(ctx context.Context, eventID uuid.UUID) ([]models.Schedule, error)
	Parts(ctx context.Context, eventID uuid.UUID) ([]models.EventPart, error)
	Personas(ctx context.Context, eventID uuid.UUID) ([]models.Persona, error)
	Discounts(ctx context.Context, eventID uuid.UUID) ([]models.Discount, error)
	AttendeeIDs(ctx context.Context, eventID uuid.UUID) ([]uuid.UUID, error)
	HasRegistrationFields(ctx context.Context, eventID uuid.UUID) (bool, error)
}

// Organizations supplies plan limits and membership.
type Organizations interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	UserHasOrgAccess(ctx context.Context, orgID, userID uuid.UUID) (bool, error)
}

// ReportStore records requested reports.
type ReportStore interface {
	Create(ctx context.Context, r *models.Report) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	CountByEvent(ctx context.Context, eventID uuid.UUID) (int, error)
}

// JobQueue hands work to background workers.
type JobQueue interface {
	EnqueueReport(ctx context.Context, payload queue.ReportPayload) error
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// Tracker records analytics events. It never blocks the caller on delivery.
type Tracker interface {
	Track(ctx context.Context, userID uuid.UUID, name string, ev *models.Event)
}

// Feed pushes updates to connected organiser dashboards.
type Feed interface {
	BroadcastToEventAndPublish(eventID uuid.UUID, event string, payload interface{})
}

// Deps are the collaborators of a Service.
type Deps struct {
	Store   Store
	Orgs    Organizations
	Ledger  RegistrationLedger
	Reports ReportStore
	Jobs    JobQueue
	Tracker Tracker
	Logger  *zap.Logger
}

// Service runs event operations: validation, lifecycle callbacks and derived metrics.
type Service struct {
	store   Store
	orgs    Organizations
	ledger  RegistrationLedger
	reports ReportStore
	jobs    JobQueue
	tracker Tracker
	feed    Feed
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates an event service.
func NewService(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   d.Store,
		orgs:    d.Orgs,
		ledger:  d.Ledger,
		reports: d.Reports,
		jobs:    d.Jobs,
		tracker: d.Tracker,
		logger:  logger,
		now:     time.Now,
	}
}

// SetFeed attaches the realtime feed. Without one, updates are not pushed.
func (s *Service) SetFeed(f Feed) {
	s.feed = f
}

// Get resolves idOrSlug as a UUID first, then as a slug.
func (s *Service) Get(ctx context.Context, idOrSlug string) (*models.Event, error) {
	if id, err := uuid.Parse(idOrSlug); err == nil {
		return s.store.GetByID(ctx, id)
	}
	return s.store.GetBySlug(ctx, Parameterize(idOrSlug))
}

// GetByID returns the event with id.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return s.store.GetByID(ctx, id)
}

// List returns events matching p.
func (s *Service) List(ctx context.Context, p ListParams) ([]models.Event, error) {
	if p.Now.IsZero() {
		p.Now = s.now()
	}
	if p.Limit <= 0 || p.Limit > 100 {
		p.Limit = 50
	}
	p.Query = strings.TrimSpace(p.Query)
	return s.store.List(ctx, p)
}

// CreateInput carries the fields accepted on create.
type CreateInput struct {
	Patch
	OrganizationID uuid.UUID
}

// Create validates and stores a new draft event. Its slug is derived from the name unless one is given.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Event, error) {
	ev := &models.Event{
		OrganizationID:      in.OrganizationID,
		Status:              models.StatusDraft,
		AttendeesVisibility: models.VisibilityShowAll,
		LocationPreference:  models.LocationRandom,
		RegistrationStatus:  models.RegistrationOpen,
		EventType:           models.EventTypePublic,
		Timezone:            "UTC",
	}
	if err := in.Patch.apply(ev); err != nil {
		return nil, err
	}

	var errs Errors
	if in.Slug != nil && strings.TrimSpace(*in.Slug) != "" {
		ev.Slug = Parameterize(*in.Slug)
		if err := s.checkSlugFree(ctx, &errs, ev); err != nil {
			return nil, err
		}
	} else {
		slug, err := UniqueSlug(ctx, ev.Name, func(ctx context.Context, slug string) (bool, error) {
			return s.store.SlugTaken(ctx, slug, uuid.Nil)
		})
		if err != nil {
			return nil, err
		}
		ev.Slug = slug
	}

	org, err := s.orgs.GetByID(ctx, ev.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("load organization: %w", err)
	}
	errs = append(errs, Validate(ev, org, 0, ProfileDefault)...)
	if len(errs) > 0 {
		return nil, errs
	}
	if err := s.store.Create(ctx, ev); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.logger.Info("event created", zap.String("event_id", ev.ID.String()), zap.String("slug", ev.Slug))
	return ev, nil
}

// Update applies patch under profile and runs the save callbacks.
// Moving the start of an event that has already started is refused with ErrStartTimeLocked.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch Patch, profile Profile) (*models.Event, error) {
	ev, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.TimeStart != nil && Started(ev, s.now()) && !sameTime(ev.TimeStart, patch.TimeStart) {
		return nil, ErrStartTimeLocked
	}
	before := *ev

	if err := patch.apply(ev); err != nil {
		return nil, err
	}
	var errs Errors
	if patch.Slug != nil && Parameterize(*patch.Slug) != before.Slug {
		ev.Slug = Parameterize(*patch.Slug)
		if ev.Slug == "" {
			errs.add("slug", "can't be blank")
		} else if err := s.checkSlugFree(ctx, &errs, ev); err != nil {
			return nil, err
		}
	}

	if ev.Schedules, err = s.store.Schedules(ctx, ev.ID); err != nil {
		return nil, fmt.Errorf("load schedules: %w", err)
	}
	org, err := s.orgs.GetByID(ctx, ev.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("load organization: %w", err)
	}
	confirmed := 0
	if profile == ProfilePublish {
		if confirmed, err = s.ledger.Count(ctx, ev.ID, ScopeConfirmed); err != nil {
			return nil, fmt.Errorf("count registrations: %w", err)
		}
	}
	errs = append(errs, Validate(ev, org, confirmed, profile)...)
	if len(errs) > 0 {
		return nil, errs
	}
	if err := s.store.Update(ctx, ev); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	s.afterSave(ctx, &before, ev)
	return ev, nil
}

// Publish toggles the event between draft and live.
// A draft whose dates are in the past cannot go live; a live event with confirmed registrations cannot go back to draft.
func (s *Service) Publish(ctx context.Context, actor, id uuid.UUID) (*models.Event, error) {
	ev, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	org, err := s.orgs.GetByID(ctx, ev.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("load organization: %w", err)
	}
	if ev.Schedules, err = s.store.Schedules(ctx, ev.ID); err != nil {
		return nil, fmt.Errorf("load schedules: %w", err)
	}

	publishing := ev.IsDraft()
	confirmed := 0
	if publishing {
		if DatesInPast(ev, s.now()) {
			return nil, ErrDatesInPast
		}
		ev.Status = models.StatusLive
	} else {
		if confirmed, err = s.ledger.Count(ctx, ev.ID, ScopeConfirmed); err != nil {
			return nil, fmt.Errorf("count registrations: %w", err)
		}
		ev.Status = models.StatusDraft
	}
	if errs := Validate(ev, org, confirmed, ProfilePublish); len(errs) > 0 {
		return nil, errs
	}
	if err := s.store.Update(ctx, ev); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if publishing && s.tracker != nil {
		s.tracker.Track(ctx, actor, TrackPublishEvent, ev)
	}
	s.broadcast(ev.ID, FeedStatusChanged, map[string]string{"status": string(ev.Status)})
	s.logger.Info("event status changed", zap.String("event_id", ev.ID.String()), zap.String("status", string(ev.Status)))
	return ev, nil
}

// Delete removes the event and its children. Events with confirmed registrations are kept.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return err
	}
	ok, err := ValidForDeletion(ctx, s.ledger, id)
	if err != nil {
		return fmt.Errorf("count registrations: %w", err)
	}
	if !ok {
		return ErrHasRegistrations
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	s.logger.Info("event deleted", zap.String("event_id", id.String()))
	return nil
}

// RegisterInput carries an attendee's registration request.
type RegisterInput struct {
	PersonaID   *uuid.UUID
	AffiliateID *uuid.UUID
	Password    string
	ExtraFields json.RawMessage
}

// RegisterUser adds userID to a live event under its registration policy.
// The price is the chosen persona's (or the event's) after active discounts. Payment capture happens elsewhere.
func (s *Service) RegisterUser(ctx context.Context, eventID, userID uuid.UUID, in RegisterInput) (*models.Registration, error) {
	ev, err := s.store.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !ev.IsLive() || HasEnded(ev, now) {
		return nil, ErrRegistrationClosed
	}
	state, ok := ev.RegistrationStatus.RegistrationState()
	if !ok {
		return nil, ErrRegistrationClosed
	}
	if ev.PasswordProtected() && !utils.CheckPassword(in.Password, ev.PasswordHash) {
		return nil, ErrWrongPassword
	}
	attending, err := UserAttending(ctx, s.ledger, ev.ID, userID)
	if err != nil {
		return nil, err
	}
	waitlisted, err := UserWaitlisted(ctx, s.ledger, ev.ID, userID)
	if err != nil {
		return nil, err
	}
	if attending || waitlisted {
		return nil, ErrAlreadyRegistered
	}

	base := ev.Price
	if in.PersonaID != nil {
		personas, err := s.store.Personas(ctx, ev.ID)
		if err != nil {
			return nil, fmt.Errorf("load personas: %w", err)
		}
		p := findPersona(personas, *in.PersonaID)
		if p == nil {
			return nil, Errors{{Field: "persona_id", Message: "is invalid"}}
		}
		base = p.Price
	}
	discounts, err := s.store.Discounts(ctx, ev.ID)
	if err != nil {
		return nil, fmt.Errorf("load discounts: %w", err)
	}

	reg, err := s.ledger.RegisterUser(ctx, RegisterParams{
		EventID:     ev.ID,
		UserID:      userID,
		Price:       DiscountedPrice(base, discounts),
		PersonaID:   in.PersonaID,
		Status:      state,
		AffiliateID: in.AffiliateID,
		ExtraFields: in.ExtraFields,
	})
	if err != nil {
		return nil, err
	}
	s.broadcastCounts(ctx, ev.ID)
	return reg, nil
}

// UnregisterUser removes userID's registration.
func (s *Service) UnregisterUser(ctx context.Context, eventID, userID uuid.UUID) error {
	if _, err := s.store.GetByID(ctx, eventID); err != nil {
		return err
	}
	if err := s.ledger.UnregisterUser(ctx, eventID, userID); err != nil {
		return err
	}
	s.broadcastCounts(ctx, eventID)
	return nil
}

// RequestReport records a report and queues its generation. It returns as soon as the job is queued.
func (s *Service) RequestReport(ctx context.Context, actor, eventID uuid.UUID, kind string, q url.Values) (*models.Report, error) {
	k, err := ParseReportKind(kind)
	if err != nil {
		return nil, err
	}
	ev, err := s.store.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	withFields := false
	if k == ReportParticipants {
		if withFields, err = s.store.HasRegistrationFields(ctx, ev.ID); err != nil {
			return nil, fmt.Errorf("load registration fields: %w", err)
		}
	}
	params, err := json.Marshal(BuildReportParams(k, ev.ID, withFields, q))
	if err != nil {
		return nil, fmt.Errorf("marshal report params: %w", err)
	}

	report := &models.Report{
		EventID:     ev.ID,
		Kind:        string(k),
		Status:      models.ReportStatusQueued,
		Params:      params,
		RequestedBy: actor,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	err = s.jobs.EnqueueReport(ctx, queue.ReportPayload{
		ReportID:    report.ID,
		EventID:     ev.ID,
		Kind:        report.Kind,
		RequestedBy: actor,
		Params:      params,
	})
	if err != nil {
		if mErr := s.reports.MarkFailed(ctx, report.ID, "could not be queued"); mErr != nil {
			s.logger.Error("mark report failed", zap.Error(mErr), zap.String("report_id", report.ID.String()))
		}
		return nil, fmt.Errorf("enqueue report: %w", err)
	}
	s.broadcast(ev.ID, FeedReportQueued, report)
	return report, nil
}

// Overview is the derived state shown on the organiser dashboard.
type Overview struct {
	Event                *models.Event     `json:"event"`
	Shape                Shape             `json:"shape"`
	Checklist            []Check           `json:"checklist"`
	CompletionPercentage float64           `json:"completion_percentage"`
	IsNotComplete        bool              `json:"is_not_complete"`
	Sales                Sales             `json:"sales"`
	Confirmed            int               `json:"confirmed_registrations"`
	Waitlisted           int               `json:"waitlisted_registrations"`
	PriceLabel           string            `json:"price_label"`
	StagePart            *models.EventPart `json:"stage_part,omitempty"`
	Started              bool              `json:"started"`
	Finished             bool              `json:"finished"`
	StartingNow          bool              `json:"starting_now"`
	EarlyBird            bool              `json:"early_bird_period"`
	LocalTimeStart       *time.Time        `json:"time_start_local,omitempty"`
	LocalTimeEnd         *time.Time        `json:"time_end_local,omitempty"`
}

// Overview loads an event with its children and computes completion and sales.
func (s *Service) Overview(ctx context.Context, eventID uuid.UUID) (*Overview, error) {
	ev, err := s.store.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	org, err := s.orgs.GetByID(ctx, ev.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("load organization: %w", err)
	}
	parts, err := s.store.Parts(ctx, ev.ID)
	if err != nil {
		return nil, fmt.Errorf("load parts: %w", err)
	}
	personas, err := s.store.Personas(ctx, ev.ID)
	if err != nil {
		return nil, fmt.Errorf("load personas: %w", err)
	}
	totals, err := LoadTotals(ctx, s.ledger, ev.ID)
	if err != nil {
		return nil, fmt.Errorf("load totals: %w", err)
	}
	confirmed, err := s.ledger.Count(ctx, ev.ID, ScopeConfirmed)
	if err != nil {
		return nil, err
	}
	waitlisted, err := s.ledger.Count(ctx, ev.ID, ScopeWaitlisted)
	if err != nil {
		return nil, err
	}

	f := FeaturesOf(ev, parts, personas)
	shape := Classify(f)
	now := s.now()
	o := &Overview{
		Event:                ev,
		Shape:                shape,
		Checklist:            Checklist(shape, f),
		CompletionPercentage: CompletionPercentage(f),
		IsNotComplete:        IsNotComplete(f),
		Sales:                ComputeSales(totals, org.Commission),
		Confirmed:            confirmed,
		Waitlisted:           waitlisted,
		PriceLabel:           PriceLabel(ev, personas),
		Started:              Started(ev, now),
		Finished:             Finished(ev, now),
		StartingNow:          StartingNow(ev, now),
		EarlyBird:            EarlyBirdPeriod(ev, now),
		LocalTimeStart:       LocalStart(ev),
		LocalTimeEnd:         LocalEnd(ev),
	}
	for i := range parts {
		if parts[i].PartType == models.PartStage {
			o.StagePart = &parts[i]
			break
		}
	}
	return o, nil
}

// Authorize reports ErrForbidden unless userID belongs to the event's organization.
func (s *Service) Authorize(ctx context.Context, ev *models.Event, userID uuid.UUID) error {
	return s.AuthorizeOrg(ctx, ev.OrganizationID, userID)
}

// AuthorizeOrg reports ErrForbidden unless userID is an owner, event manager or moderator of orgID.
func (s *Service) AuthorizeOrg(ctx context.Context, orgID, userID uuid.UUID) error {
	ok, err := s.orgs.UserHasOrgAccess(ctx, orgID, userID)
	if err != nil {
		return fmt.Errorf("check organization access: %w", err)
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// afterSave runs the callbacks for changed fields. Failures are logged; the save itself already succeeded.
func (s *Service) afterSave(ctx context.Context, before, after *models.Event) {
	if !sameTime(before.TimeEnd, after.TimeEnd) && s.tracker != nil {
		attendees, err := s.store.AttendeeIDs(ctx, after.ID)
		if err != nil {
			s.logger.Error("load attendees", zap.Error(err), zap.String("event_id", after.ID.String()))
		}
		for _, uid := range attendees {
			s.tracker.Track(ctx, uid, TrackTimeEndChanged, after)
		}
	}
	if !sameTime(before.TimeStart, after.TimeStart) && !after.SuppressEmails {
		s.enqueueEmail(ctx, queue.EmailTimeStartChanged, after.ID)
	}
	if before.SuppressEmails && !after.SuppressEmails && !HasEnded(after, s.now()) {
		s.enqueueEmail(ctx, queue.EmailReschedule, after.ID)
	}
}

func (s *Service) enqueueEmail(ctx context.Context, emailType string, eventID uuid.UUID) {
	err := s.jobs.EnqueueEmail(ctx, queue.EmailPayload{EmailType: emailType, EventID: eventID})
	if err != nil {
		s.logger.Error("enqueue email", zap.Error(err), zap.String("email_type", emailType), zap.String("event_id", eventID.String()))
	}
}

// checkSlugFree adds a slug failure to errs when another event uses ev.Slug.
func (s *Service) checkSlugFree(ctx context.Context, errs *Errors, ev *models.Event) error {
	taken, err := s.store.SlugTaken(ctx, ev.Slug, ev.ID)
	if err != nil {
		return fmt.Errorf("check slug: %w", err)
	}
	if taken {
		errs.add("slug", "has already been taken")
	}
	return nil
}

func (s *Service) broadcastCounts(ctx context.Context, eventID uuid.UUID) {
	if s.feed == nil {
		return
	}
	confirmed, err := s.ledger.Count(ctx, eventID, ScopeConfirmed)
	if err != nil {
		return
	}
	waitlisted, err := s.ledger.Count(ctx, eventID, ScopeWaitlisted)
	if err != nil {
		return
	}
	s.feed.BroadcastToEventAndPublish(eventID, FeedRegistrationsChanged, map[string]int{
		"confirmed":  confirmed,
		"waitlisted": waitlisted,
	})
}

func (s *Service) broadcast(eventID uuid.UUID, name string, payload interface{}) {
	if s.feed != nil {
		s.feed.BroadcastToEventAndPublish(eventID, name, payload)
	}
}

// IsValidation reports whether err carries field errors.
func IsValidation(err error) (Errors, bool) {
	var errs Errors
	if errors.As(err, &errs) {
		return errs, true
	}
	return nil, false
}

func findPersona(personas []models.Persona, id uuid.UUID) *models.Persona {
	for i := range personas {
		if personas[i].ID == id && personas[i].Visible {
			return &personas[i]
		}
	}
	return nil
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
