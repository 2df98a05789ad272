package events

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/queue"
)

type memStore struct {
	mu        sync.Mutex
	events    map[uuid.UUID]*models.Event
	schedules map[uuid.UUID][]models.Schedule
	parts     map[uuid.UUID][]models.EventPart
	personas  map[uuid.UUID][]models.Persona
	discounts map[uuid.UUID][]models.Discount
	fields    map[uuid.UUID]bool
	ledger    *memLedger
	deleted   []uuid.UUID
	slugErr   error
}

func newMemStore(l *memLedger) *memStore {
	return &memStore{
		events:    map[uuid.UUID]*models.Event{},
		schedules: map[uuid.UUID][]models.Schedule{},
		parts:     map[uuid.UUID][]models.EventPart{},
		personas:  map[uuid.UUID][]models.Persona{},
		discounts: map[uuid.UUID][]models.Discount{},
		fields:    map[uuid.UUID]bool{},
		ledger:    l,
	}
}

func (m *memStore) put(ev *models.Event) *models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	cp := *ev
	m.events[ev.ID] = &cp
	return ev
}

func (m *memStore) Create(_ context.Context, ev *models.Event) error {
	ev.ID = uuid.New()
	ev.CreatedAt = time.Now()
	ev.UpdatedAt = ev.CreatedAt
	m.put(ev)
	return nil
}

func (m *memStore) Update(_ context.Context, ev *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[ev.ID]; !ok {
		return ErrEventNotFound
	}
	cp := *ev
	cp.Schedules = nil
	m.events[ev.ID] = &cp
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return nil, ErrEventNotFound
	}
	cp := *ev
	return &cp, nil
}

func (m *memStore) GetBySlug(_ context.Context, slug string) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range m.events {
		if ev.Slug == slug {
			cp := *ev
			return &cp, nil
		}
	}
	return nil, ErrEventNotFound
}

func (m *memStore) SlugTaken(_ context.Context, slug string, except uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slugErr != nil {
		return false, m.slugErr
	}
	for id, ev := range m.events {
		if ev.Slug == slug && id != except {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.events, id)
	delete(m.schedules, id)
	delete(m.parts, id)
	delete(m.personas, id)
	delete(m.discounts, id)
	m.deleted = append(m.deleted, id)
	if m.ledger != nil {
		m.ledger.dropEvent(id)
	}
	return nil
}

func (m *memStore) List(_ context.Context, p ListParams) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Event
	for _, ev := range m.events {
		if p.OrganizationID != nil && ev.OrganizationID != *p.OrganizationID {
			continue
		}
		if p.LiveOnly && !ev.IsLive() {
			continue
		}
		if p.PublicOnly && ev.EventType != models.EventTypePublic {
			continue
		}
		if p.Query != "" && !strings.Contains(strings.ToLower(ev.Name+" "+ev.Location), strings.ToLower(p.Query)) {
			continue
		}
		if !InListScope(ev, p.Scope, p.Now) {
			continue
		}
		out = append(out, *ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) Schedules(_ context.Context, id uuid.UUID) ([]models.Schedule, error) {
	return m.schedules[id], nil
}

func (m *memStore) Parts(_ context.Context, id uuid.UUID) ([]models.EventPart, error) {
	return m.parts[id], nil
}

func (m *memStore) Personas(_ context.Context, id uuid.UUID) ([]models.Persona, error) {
	return m.personas[id], nil
}

func (m *memStore) Discounts(_ context.Context, id uuid.UUID) ([]models.Discount, error) {
	return m.discounts[id], nil
}

func (m *memStore) AttendeeIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, r := range m.ledger.all(id) {
		if r.Confirmed() {
			out = append(out, r.UserID)
		}
	}
	return out, nil
}

func (m *memStore) HasRegistrationFields(_ context.Context, id uuid.UUID) (bool, error) {
	return m.fields[id], nil
}

type memLedger struct {
	mu   sync.Mutex
	regs []models.Registration
}

func (l *memLedger) add(r models.Registration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	l.regs = append(l.regs, r)
}

func (l *memLedger) all(eventID uuid.UUID) []models.Registration {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Registration
	for _, r := range l.regs {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	return out
}

func (l *memLedger) dropEvent(eventID uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.regs[:0]
	for _, r := range l.regs {
		if r.EventID != eventID {
			kept = append(kept, r)
		}
	}
	l.regs = kept
}

func (l *memLedger) Count(ctx context.Context, eventID uuid.UUID, scope Scope) (int, error) {
	return l.CountWhere(ctx, eventID, scope, Filter{})
}

func (l *memLedger) Sum(_ context.Context, eventID uuid.UUID, scope Scope, _ SumField) (float64, error) {
	var sum float64
	for _, r := range l.all(eventID) {
		if InScope(&r, scope) {
			sum += r.Price
		}
	}
	return sum, nil
}

func (l *memLedger) CountWhere(_ context.Context, eventID uuid.UUID, scope Scope, f Filter) (int, error) {
	n := 0
	for _, r := range l.all(eventID) {
		if InScope(&r, scope) && f.Matches(&r) {
			n++
		}
	}
	return n, nil
}

func (l *memLedger) RegisterUser(_ context.Context, p RegisterParams) (*models.Registration, error) {
	for _, r := range l.all(p.EventID) {
		if r.UserID == p.UserID {
			return nil, ErrAlreadyRegistered
		}
	}
	r := models.Registration{
		ID:               uuid.New(),
		EventID:          p.EventID,
		UserID:           p.UserID,
		PersonaID:        p.PersonaID,
		EventAffiliateID: p.AffiliateID,
		Price:            p.Price,
		ChargeID:         p.ChargeID,
		Status:           p.Status,
		ExtraFields:      p.ExtraFields,
		CreatedAt:        time.Now(),
	}
	l.add(r)
	return &r, nil
}

func (l *memLedger) UnregisterUser(_ context.Context, eventID, userID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, r := range l.regs {
		if r.EventID == eventID && r.UserID == userID {
			l.regs = append(l.regs[:i], l.regs[i+1:]...)
			return nil
		}
	}
	return ErrNotRegistered
}

type memOrgs struct {
	org    *models.Organization
	member map[uuid.UUID]bool
}

func (o *memOrgs) GetByID(_ context.Context, id uuid.UUID) (*models.Organization, error) {
	cp := *o.org
	cp.ID = id
	return &cp, nil
}

func (o *memOrgs) UserHasOrgAccess(_ context.Context, _, userID uuid.UUID) (bool, error) {
	return o.member[userID], nil
}

type memReports struct {
	mu      sync.Mutex
	reports []models.Report
	failed  map[uuid.UUID]string
}

func (r *memReports) Create(_ context.Context, rep *models.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep.ID = uuid.New()
	rep.CreatedAt = time.Now()
	r.reports = append(r.reports, *rep)
	return nil
}

func (r *memReports) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failed == nil {
		r.failed = map[uuid.UUID]string{}
	}
	r.failed[id] = reason
	return nil
}

func (r *memReports) CountByEvent(_ context.Context, eventID uuid.UUID) (int, error) {
	n := 0
	for _, rep := range r.reports {
		if rep.EventID == eventID {
			n++
		}
	}
	return n, nil
}

type memJobs struct {
	mu      sync.Mutex
	reports []queue.ReportPayload
	emails  []queue.EmailPayload
	err     error
}

func (j *memJobs) EnqueueReport(_ context.Context, p queue.ReportPayload) error {
	if j.err != nil {
		return j.err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.reports = append(j.reports, p)
	return nil
}

func (j *memJobs) EnqueueEmail(_ context.Context, p queue.EmailPayload) error {
	if j.err != nil {
		return j.err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.emails = append(j.emails, p)
	return nil
}

type tracked struct {
	UserID uuid.UUID
	Name   string
}

type memTracker struct {
	mu     sync.Mutex
	events []tracked
}

func (t *memTracker) Track(_ context.Context, userID uuid.UUID, name string, _ *models.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, tracked{UserID: userID, Name: name})
}

func (t *memTracker) named(name string) []tracked {
	var out []tracked
	for _, e := range t.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

type memFeed struct {
	mu   sync.Mutex
	sent []string
}

func (f *memFeed) BroadcastToEventAndPublish(_ uuid.UUID, event string, _ interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, event)
}

type fixture struct {
	svc     *Service
	store   *memStore
	ledger  *memLedger
	orgs    *memOrgs
	reports *memReports
	jobs    *memJobs
	tracker *memTracker
	feed    *memFeed
	now     time.Time
}

func newFixture() *fixture {
	l := &memLedger{}
	f := &fixture{
		store:   newMemStore(l),
		ledger:  l,
		orgs:    &memOrgs{org: &models.Organization{Commission: 0.95, MaxEventLengthHours: 72}, member: map[uuid.UUID]bool{}},
		reports: &memReports{},
		jobs:    &memJobs{},
		tracker: &memTracker{},
		feed:    &memFeed{},
		now:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(Deps{
		Store:   f.store,
		Orgs:    f.orgs,
		Ledger:  f.ledger,
		Reports: f.reports,
		Jobs:    f.jobs,
		Tracker: f.tracker,
	})
	f.svc.now = func() time.Time { return f.now }
	f.svc.SetFeed(f.feed)
	return f
}

func at(t time.Time) *time.Time { return &t }

func strp(s string) *string { return &s }

// validEvent is a draft that passes the default profile.
func validEvent(now time.Time) *models.Event {
	return &models.Event{
		ID:                  uuid.New(),
		OrganizationID:      uuid.New(),
		Slug:                "spring-summit",
		Name:                "Spring Summit",
		Location:            "Online",
		Status:              models.StatusDraft,
		AttendeesVisibility: models.VisibilityShowAll,
		LocationPreference:  models.LocationRandom,
		RegistrationStatus:  models.RegistrationOpen,
		EventType:           models.EventTypePublic,
		Currency:            "USD",
		Timezone:            "Europe/London",
		TimeStart:           at(now.Add(48 * time.Hour)),
		TimeEnd:             at(now.Add(50 * time.Hour)),
	}
}
