package reports

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-events/backend/internal/events"
	"github.com/aura-events/backend/internal/models"
)

// ErrNotFound is returned when a report does not exist.
var ErrNotFound = errors.New("report not found")

const reportColumns = `id, event_id, kind, status, params, s3_key, error, requested_by, created_at, completed_at`

// Repository handles report persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a reports repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ events.ReportStore = (*Repository)(nil)

func scanReport(row pgx.Row) (*models.Report, error) {
	var r models.Report
	var params []byte
	err := row.Scan(&r.ID, &r.EventID, &r.Kind, &r.Status, &params, &r.S3Key, &r.Error, &r.RequestedBy, &r.CreatedAt, &r.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.Params = params
	return &r, nil
}

// Create inserts a queued report and fills its id and created_at.
func (r *Repository) Create(ctx context.Context, rep *models.Report) error {
	const q = `INSERT INTO reports (id, event_id, kind, status, params, requested_by)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5) RETURNING id, created_at`
	var params interface{}
	if len(rep.Params) > 0 {
		params = []byte(rep.Params)
	}
	return r.pool.QueryRow(ctx, q, rep.EventID, rep.Kind, rep.Status, params, rep.RequestedBy).Scan(&rep.ID, &rep.CreatedAt)
}

// GetByID returns a report or ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	return scanReport(r.pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id))
}

// ListByEvent returns an event's reports, newest first.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Report, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+reportColumns+` FROM reports WHERE event_id = $1 ORDER BY created_at DESC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *rep)
	}
	return list, rows.Err()
}

// CountByEvent returns how many reports were requested for an event.
func (r *Repository) CountByEvent(ctx context.Context, eventID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reports WHERE event_id = $1`, eventID).Scan(&n)
	return n, err
}

// MarkCompleted stores the uploaded object key.
func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID, s3Key string) error {
	const q = `UPDATE reports SET status = $2, s3_key = $3, error = '', completed_at = NOW() WHERE id = $1`
	return r.exec(ctx, q, id, models.ReportStatusCompleted, s3Key)
}

// MarkFailed records why a report could not be produced.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	const q = `UPDATE reports SET status = $2, error = $3, completed_at = NOW() WHERE id = $1`
	return r.exec(ctx, q, id, models.ReportStatusFailed, reason)
}

func (r *Repository) exec(ctx context.Context, q string, args ...interface{}) error {
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
