package events

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-events/backend/internal/models"
)

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

const eventColumns = `id, slug, organization_id, name, location, description, short_description, message,
	theme, color, password_hash, time_start, time_end, timezone, status, attendees_visibility,
	location_preference, registration_status, event_type, price, currency, picture_url, suppress_emails,
	embed_ticket_success_url, embed_ticket_error_url, created_at, updated_at`

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.Slug, &e.OrganizationID, &e.Name, &e.Location, &e.Description, &e.ShortDescription, &e.Message,
		&e.Theme, &e.Color, &e.PasswordHash, &e.TimeStart, &e.TimeEnd, &e.Timezone, &e.Status, &e.AttendeesVisibility,
		&e.LocationPreference, &e.RegistrationStatus, &e.EventType, &e.Price, &e.Currency, &e.PictureURL, &e.SuppressEmails,
		&e.EmbedTicketSuccessURL, &e.EmbedTicketErrorURL, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts a new event.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (id, slug, organization_id, name, location, description, short_description, message,
		theme, color, password_hash, time_start, time_end, timezone, status, attendees_visibility,
		location_preference, registration_status, event_type, price, currency, picture_url, suppress_emails,
		embed_ticket_success_url, embed_ticket_error_url)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, e.Slug, e.OrganizationID, e.Name, e.Location, e.Description, e.ShortDescription, e.Message,
		e.Theme, e.Color, e.PasswordHash, e.TimeStart, e.TimeEnd, e.Timezone, e.Status, e.AttendeesVisibility,
		e.LocationPreference, e.RegistrationStatus, e.EventType, e.Price, e.Currency, e.PictureURL, e.SuppressEmails,
		e.EmbedTicketSuccessURL, e.EmbedTicketErrorURL).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// Update writes every mutable column of e.
func (r *Repository) Update(ctx context.Context, e *models.Event) error {
	const q = `UPDATE events SET slug = $1, name = $2, location = $3, description = $4, short_description = $5, message = $6,
		theme = $7, color = $8, password_hash = $9, time_start = $10, time_end = $11, timezone = $12, status = $13,
		attendees_visibility = $14, location_preference = $15, registration_status = $16, event_type = $17, price = $18,
		currency = $19, picture_url = $20, suppress_emails = $21, embed_ticket_success_url = $22, embed_ticket_error_url = $23,
		updated_at = NOW()
		WHERE id = $24
		RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, e.Slug, e.Name, e.Location, e.Description, e.ShortDescription, e.Message,
		e.Theme, e.Color, e.PasswordHash, e.TimeStart, e.TimeEnd, e.Timezone, e.Status,
		e.AttendeesVisibility, e.LocationPreference, e.RegistrationStatus, e.EventType, e.Price,
		e.Currency, e.PictureURL, e.SuppressEmails, e.EmbedTicketSuccessURL, e.EmbedTicketErrorURL, e.ID).
		Scan(&e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrEventNotFound
	}
	return err
}

// GetByID returns an event by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

// GetBySlug returns an event by slug.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*models.Event, error) {
	return scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE slug = $1`, slug))
}

// SlugTaken reports whether another event than except already uses slug.
func (r *Repository) SlugTaken(ctx context.Context, slug string, except uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM events WHERE slug = $1 AND id <> $2)`
	var taken bool
	err := r.pool.QueryRow(ctx, q, slug, except).Scan(&taken)
	return taken, err
}

// cascadeTables are the event-owned tables, children first.
var cascadeTables = []string{
	"tracked_events",
	"reports",
	"registrations",
	"registration_fields",
	"sponsors",
	"discounts",
	"personas",
	"backstages",
	"schedules",
	"event_parts",
}

// Delete removes an event and everything it owns in one transaction.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, table := range cascadeTables {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE event_id = $1`, id); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	tag, err := tx.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return tx.Commit(ctx)
}

// List returns events matching p ordered by start time.
func (r *Repository) List(ctx context.Context, p ListParams) ([]models.Event, error) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if p.OrganizationID != nil {
		conds = append(conds, "organization_id = "+arg(*p.OrganizationID))
	}
	if p.LiveOnly {
		conds = append(conds, "status = "+arg(models.StatusLive))
	}
	if p.PublicOnly {
		conds = append(conds, "event_type = "+arg(models.EventTypePublic))
	}
	if p.Scope != ListAll {
		conds = append(conds, scopeCondition(p.Scope, arg(p.Now)))
	}
	if p.Query != "" {
		like := arg("%" + p.Query + "%")
		conds = append(conds, "(name ILIKE "+like+" OR location ILIKE "+like+")")
	}

	q := `SELECT ` + eventColumns + ` FROM events`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY time_start ASC NULLS LAST, created_at DESC LIMIT " + arg(p.Limit) + " OFFSET " + arg(p.Offset)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

// scopeCondition is the SQL form of InListScope. now is the placeholder bound to the listing time.
func scopeCondition(scope ListScope, now string) string {
	live := "status = '" + string(models.StatusLive) + "'"
	switch scope {
	case ListUpcoming:
		return live + " AND time_end > " + now
	case ListFinished:
		return live + " AND time_end < " + now
	case ListOngoing:
		return live + " AND time_start < " + now + " AND time_end > " + now
	}
	return "FALSE"
}

// Schedules returns the schedules of an event.
func (r *Repository) Schedules(ctx context.Context, eventID uuid.UUID) ([]models.Schedule, error) {
	const q = `SELECT id, event_id, COALESCE(event_part_id, '00000000-0000-0000-0000-000000000000'), name, time_start, time_end
		FROM schedules WHERE event_id = $1 ORDER BY time_start`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Schedule
	for rows.Next() {
		var s models.Schedule
		if err := rows.Scan(&s.ID, &s.EventID, &s.EventPartID, &s.Name, &s.TimeStart, &s.TimeEnd); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// Parts returns the parts of an event.
func (r *Repository) Parts(ctx context.Context, eventID uuid.UUID) ([]models.EventPart, error) {
	const q = `SELECT id, event_id, name, part_type, timer_length, stream_provider FROM event_parts WHERE event_id = $1 ORDER BY name`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.EventPart
	for rows.Next() {
		var p models.EventPart
		if err := rows.Scan(&p.ID, &p.EventID, &p.Name, &p.PartType, &p.TimerLength, &p.StreamProvider); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Personas returns the ticket types of an event.
func (r *Repository) Personas(ctx context.Context, eventID uuid.UUID) ([]models.Persona, error) {
	const q = `SELECT id, event_id, label, description, price, capacity, visible, created_at
		FROM personas WHERE event_id = $1 ORDER BY price, label`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Persona
	for rows.Next() {
		var p models.Persona
		if err := rows.Scan(&p.ID, &p.EventID, &p.Label, &p.Description, &p.Price, &p.Capacity, &p.Visible, &p.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Discounts returns the discounts of an event.
func (r *Repository) Discounts(ctx context.Context, eventID uuid.UUID) ([]models.Discount, error) {
	const q = `SELECT id, event_id, code, value, active, created_at FROM discounts WHERE event_id = $1`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Discount
	for rows.Next() {
		var d models.Discount
		if err := rows.Scan(&d.ID, &d.EventID, &d.Code, &d.Value, &d.Active, &d.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

// AttendeeIDs returns the users holding a confirmed registration.
func (r *Repository) AttendeeIDs(ctx context.Context, eventID uuid.UUID) ([]uuid.UUID, error) {
	const q = `SELECT user_id FROM registrations WHERE event_id = $1 AND status = 'done' AND NOT refunded`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// HasRegistrationFields reports whether the event collects custom registration fields.
func (r *Repository) HasRegistrationFields(ctx context.Context, eventID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM registration_fields WHERE event_id = $1)`
	var ok bool
	err := r.pool.QueryRow(ctx, q, eventID).Scan(&ok)
	return ok, err
}
