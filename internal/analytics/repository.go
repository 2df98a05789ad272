package analytics

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-events/backend/pkg/queue"
)

// Repository runs the aggregate queries behind dashboards and stores tracked events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an analytics repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// confirmed restricts the registrations table, aliased r, to confirmed rows: done and not refunded.
const confirmed = `r.event_id = $1 AND r.status = 'done' AND NOT r.refunded`

const (
	ticketsSoldQuery = `SELECT p.label, COUNT(*) FROM registrations r
		INNER JOIN personas p ON p.id = r.persona_id
		WHERE ` + confirmed + ` GROUP BY p.label`
	byCountryQuery = `SELECT COALESCE(u.country, ''), COUNT(*) FROM registrations r
		INNER JOIN users u ON u.id = r.user_id
		WHERE ` + confirmed + ` GROUP BY 1`
	salesBetweenQuery = `SELECT COALESCE(SUM(r.price), 0)::float8 FROM registrations r
		WHERE ` + confirmed + ` AND ($2::timestamptz IS NULL OR r.created_at >= $2) AND ($3::timestamptz IS NULL OR r.created_at < $3)`
	perWeekQuery = `SELECT date_trunc('week', r.created_at) AS period, COUNT(*)::float8 FROM registrations r
		WHERE ` + confirmed + ` GROUP BY period ORDER BY period`
	perDayQuery = `SELECT date_trunc('day', r.created_at) AS period, COALESCE(SUM(r.price), 0)::float8 FROM registrations r
		WHERE ` + confirmed + ` GROUP BY period ORDER BY period`
)

// TicketsSold counts confirmed registrations per persona label.
func (r *Repository) TicketsSold(ctx context.Context, eventID uuid.UUID) (map[string]int, error) {
	return r.countBy(ctx, ticketsSoldQuery, eventID)
}

// RegistrationsByCountry counts confirmed attendees per country code. Users without a country are grouped under "".
func (r *Repository) RegistrationsByCountry(ctx context.Context, eventID uuid.UUID) (map[string]int, error) {
	return r.countBy(ctx, byCountryQuery, eventID)
}

// SalesBetween sums confirmed registration prices created within w.
func (r *Repository) SalesBetween(ctx context.Context, eventID uuid.UUID, w Window) (float64, error) {
	var sum float64
	err := r.pool.QueryRow(ctx, salesBetweenQuery, eventID, w.From, w.To).Scan(&sum)
	return sum, err
}

// RegistrationsPerWeek counts confirmed registrations per calendar week.
func (r *Repository) RegistrationsPerWeek(ctx context.Context, eventID uuid.UUID) ([]Point, error) {
	return r.series(ctx, perWeekQuery, eventID)
}

// SalesPerDay sums confirmed registration prices per day.
func (r *Repository) SalesPerDay(ctx context.Context, eventID uuid.UUID) ([]Point, error) {
	return r.series(ctx, perDayQuery, eventID)
}

// RecordTracked stores one analytics event.
func (r *Repository) RecordTracked(ctx context.Context, p queue.TrackPayload) error {
	var props []byte
	if len(p.Properties) > 0 {
		var err error
		if props, err = json.Marshal(p.Properties); err != nil {
			return err
		}
	}
	var eventID *uuid.UUID
	if p.EventID != uuid.Nil {
		eventID = &p.EventID
	}
	const q = `INSERT INTO tracked_events (user_id, event_id, name, properties, occurred_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, q, p.UserID, eventID, p.Name, props, p.OccurredAt)
	return err
}

func (r *Repository) countBy(ctx context.Context, q string, eventID uuid.UUID) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		out[key] = n
	}
	return out, rows.Err()
}

func (r *Repository) series(ctx context.Context, q string, eventID uuid.UUID) ([]Point, error) {
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Point
	for rows.Next() {
		var p Point
		if err := rows.Scan(&p.Period, &p.Value); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
