package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/queue"
)

// Enqueuer pushes track jobs onto the analytics queue.
type Enqueuer interface {
	EnqueueTrack(ctx context.Context, payload queue.TrackPayload) error
}

// Tracker records analytics events by queueing them. Delivery failures are logged and dropped.
type Tracker struct {
	q      Enqueuer
	logger *zap.Logger
	now    func() time.Time
}

// NewTracker creates a tracker.
func NewTracker(q Enqueuer, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{q: q, logger: logger, now: time.Now}
}

// Track queues name for userID about ev.
func (t *Tracker) Track(ctx context.Context, userID uuid.UUID, name string, ev *models.Event) {
	p := queue.TrackPayload{
		UserID:     userID,
		Name:       name,
		OccurredAt: t.now().UTC(),
	}
	if ev != nil {
		p.EventID = ev.ID
		p.Properties = map[string]string{
			"event_name":   ev.Name,
			"event_slug":   ev.Slug,
			"event_status": string(ev.Status),
		}
		if ev.TimeEnd != nil {
			p.Properties["time_end"] = ev.TimeEnd.UTC().Format(time.RFC3339)
		}
	}
	if err := t.q.EnqueueTrack(ctx, p); err != nil {
		t.logger.Warn("track event dropped", zap.Error(err), zap.String("name", name), zap.String("user_id", userID.String()))
	}
}
