package registrations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-events/backend/internal/events"
	"github.com/aura-events/backend/internal/models"
)

// Repository handles registration persistence. It is the events.RegistrationLedger backed by Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ events.RegistrationLedger = (*Repository)(nil)

// Attendee is a registration joined with the registered user, as listed in exports.
type Attendee struct {
	models.Registration
	Email        string `json:"email"`
	FullName     string `json:"full_name"`
	Country      string `json:"country,omitempty"`
	PersonaLabel string `json:"persona_label,omitempty"`
}

// whereClause builds the condition for scope and f over the registrations table aliased r.
// eventID is always $1.
func whereClause(eventID uuid.UUID, scope events.Scope, f events.Filter) (string, []interface{}, error) {
	conds := []string{"r.event_id = $1"}
	args := []interface{}{eventID}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch scope {
	case events.ScopeConfirmed:
		conds = append(conds, "r.status = "+arg(models.RegistrationDone), "NOT r.refunded")
	case events.ScopeWaitlisted:
		conds = append(conds, "r.status = "+arg(models.RegistrationWaitlisted), "NOT r.refunded")
	case events.ScopeAll:
	default:
		return "", nil, fmt.Errorf("unknown scope %q", scope)
	}

	if f.PaidOnly {
		conds = append(conds, "r.price <> 0")
	}
	if f.PersonaID != nil {
		conds = append(conds, "r.persona_id = "+arg(*f.PersonaID))
	}
	if f.UserID != nil {
		conds = append(conds, "r.user_id = "+arg(*f.UserID))
	}
	if f.CreatedFrom != nil {
		conds = append(conds, "r.created_at >= "+arg(*f.CreatedFrom))
	}
	if f.CreatedTo != nil {
		conds = append(conds, "r.created_at < "+arg(*f.CreatedTo))
	}
	if f.Participated != nil {
		conds = append(conds, "r.participated = "+arg(*f.Participated))
	}
	return strings.Join(conds, " AND "), args, nil
}

// Count returns the number of registrations in scope.
func (r *Repository) Count(ctx context.Context, eventID uuid.UUID, scope events.Scope) (int, error) {
	return r.CountWhere(ctx, eventID, scope, events.Filter{})
}

// CountWhere returns the number of registrations in scope that pass f.
func (r *Repository) CountWhere(ctx context.Context, eventID uuid.UUID, scope events.Scope, f events.Filter) (int, error) {
	where, args, err := whereClause(eventID, scope, f)
	if err != nil {
		return 0, err
	}
	var n int
	err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM registrations r WHERE `+where, args...).Scan(&n)
	return n, err
}

// Sum adds up field over the registrations in scope.
func (r *Repository) Sum(ctx context.Context, eventID uuid.UUID, scope events.Scope, field events.SumField) (float64, error) {
	if field != events.SumPrice {
		return 0, fmt.Errorf("unknown sum field %q", field)
	}
	where, args, err := whereClause(eventID, scope, events.Filter{})
	if err != nil {
		return 0, err
	}
	var sum float64
	err = r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(r.price), 0)::float8 FROM registrations r WHERE `+where, args...).Scan(&sum)
	return sum, err
}

// RegisterUser inserts a registration. A second registration of the same user returns events.ErrAlreadyRegistered.
func (r *Repository) RegisterUser(ctx context.Context, p events.RegisterParams) (*models.Registration, error) {
	const q = `INSERT INTO registrations (id, event_id, user_id, persona_id, event_affiliate_id, price, charge_id, status, extra_fields)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, refunded, participated, created_at, updated_at`
	reg := &models.Registration{
		EventID:          p.EventID,
		UserID:           p.UserID,
		PersonaID:        p.PersonaID,
		EventAffiliateID: p.AffiliateID,
		Price:            p.Price,
		ChargeID:         p.ChargeID,
		Status:           p.Status,
		ExtraFields:      p.ExtraFields,
	}
	var extra interface{}
	if len(p.ExtraFields) > 0 {
		extra = []byte(p.ExtraFields)
	}
	err := r.pool.QueryRow(ctx, q, p.EventID, p.UserID, p.PersonaID, p.AffiliateID, p.Price, p.ChargeID, p.Status, extra).
		Scan(&reg.ID, &reg.Refunded, &reg.Participated, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, events.ErrAlreadyRegistered
		}
		return nil, err
	}
	return reg, nil
}

// UnregisterUser deletes the user's registration or returns events.ErrNotRegistered.
func (r *Repository) UnregisterUser(ctx context.Context, eventID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM registrations WHERE event_id = $1 AND user_id = $2`, eventID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotRegistered
	}
	return nil
}

// MarkParticipated records that the user attended the event.
func (r *Repository) MarkParticipated(ctx context.Context, eventID, userID uuid.UUID) error {
	const q = `UPDATE registrations SET participated = TRUE, updated_at = NOW()
		WHERE event_id = $1 AND user_id = $2 AND NOT participated`
	tag, err := r.pool.Exec(ctx, q, eventID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM registrations WHERE event_id = $1 AND user_id = $2)`, eventID, userID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return events.ErrNotRegistered
		}
	}
	return nil
}

// ListByEvent returns the registrations in scope with their users, oldest first.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID, scope events.Scope) ([]Attendee, error) {
	where, args, err := whereClause(eventID, scope, events.Filter{})
	if err != nil {
		return nil, err
	}
	q := `SELECT r.id, r.event_id, r.user_id, r.persona_id, r.event_affiliate_id, r.price::float8, r.charge_id, r.status,
		r.refunded, r.participated, r.extra_fields, r.created_at, r.updated_at,
		u.email, u.full_name, COALESCE(u.country, ''), COALESCE(p.label, '')
		FROM registrations r
		INNER JOIN users u ON u.id = r.user_id
		LEFT JOIN personas p ON p.id = r.persona_id
		WHERE ` + where + ` ORDER BY r.created_at ASC`
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Attendee
	for rows.Next() {
		var a Attendee
		var extra []byte
		if err := rows.Scan(&a.ID, &a.EventID, &a.UserID, &a.PersonaID, &a.EventAffiliateID, &a.Price, &a.ChargeID, &a.Status,
			&a.Refunded, &a.Participated, &extra, &a.CreatedAt, &a.UpdatedAt,
			&a.Email, &a.FullName, &a.Country, &a.PersonaLabel); err != nil {
			return nil, err
		}
		a.ExtraFields = extra
		list = append(list, a)
	}
	return list, rows.Err()
}
