package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueReports is the Redis list key for report generation jobs.
	QueueReports = "worker:reports"
	// QueueEmails is the Redis list key for email jobs, consumed by the mailer.
	QueueEmails = "worker:emails"
	// QueueAnalytics is the Redis list key for analytics track jobs.
	QueueAnalytics = "worker:analytics"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeReport JobType = "report"
	JobTypeEmail  JobType = "email"
	JobTypeTrack  JobType = "track"
)

// Email types understood by the mailer.
const (
	EmailTimeStartChanged = "time_start_changed"
	EmailReschedule       = "reschedule_emails"
	EmailReportReady      = "report_ready"
)

// ReportPayload is the payload for report generation jobs.
type ReportPayload struct {
	ReportID    uuid.UUID       `json:"report_id"`
	EventID     uuid.UUID       `json:"event_id"`
	Kind        string          `json:"kind"`
	RequestedBy uuid.UUID       `json:"requested_by"`
	Params      json.RawMessage `json:"params"`
}

// EmailPayload is the payload for email jobs.
type EmailPayload struct {
	EmailType string     `json:"email_type"`
	EventID   uuid.UUID  `json:"event_id"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	ReportID  *uuid.UUID `json:"report_id,omitempty"`
}

// TrackPayload is one analytics event.
type TrackPayload struct {
	UserID     uuid.UUID         `json:"user_id"`
	Name       string            `json:"name"`
	EventID    uuid.UUID         `json:"event_id"`
	Properties map[string]string `json:"properties,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewJob wraps payload in an envelope.
func NewJob(jobType JobType, payload interface{}) (*Job, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Payload:   body,
		CreatedAt: time.Now(),
	}, nil
}

// KeyFor returns the list a job type is pushed to.
func KeyFor(t JobType) string {
	switch t {
	case JobTypeReport:
		return QueueReports
	case JobTypeEmail:
		return QueueEmails
	case JobTypeTrack:
		return QueueAnalytics
	}
	return QueueDLQ
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// EnqueueReport enqueues a report generation job.
func (q *Queue) EnqueueReport(ctx context.Context, payload ReportPayload) error {
	job, err := q.push(ctx, JobTypeReport, payload)
	if err != nil {
		return err
	}
	q.logger.Debug("enqueued report job", zap.String("job_id", job.ID), zap.String("kind", payload.Kind), zap.String("report_id", payload.ReportID.String()))
	return nil
}

// EnqueueEmail enqueues an email job.
func (q *Queue) EnqueueEmail(ctx context.Context, payload EmailPayload) error {
	job, err := q.push(ctx, JobTypeEmail, payload)
	if err != nil {
		return err
	}
	q.logger.Debug("enqueued email job", zap.String("job_id", job.ID), zap.String("email_type", payload.EmailType))
	return nil
}

// EnqueueTrack enqueues an analytics track job.
func (q *Queue) EnqueueTrack(ctx context.Context, payload TrackPayload) error {
	job, err := q.push(ctx, JobTypeTrack, payload)
	if err != nil {
		return err
	}
	q.logger.Debug("enqueued track job", zap.String("job_id", job.ID), zap.String("name", payload.Name))
	return nil
}

func (q *Queue) push(ctx context.Context, jobType JobType, payload interface{}) (*Job, error) {
	job, err := NewJob(jobType, payload)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, KeyFor(jobType), raw).Err(); err != nil {
		return nil, fmt.Errorf("rpush: %w", err)
	}
	return job, nil
}

// Dequeue blocks until a job is available on one of keys or ctx is done. Returns job and key (queue name).
func (q *Queue) Dequeue(ctx context.Context, keys ...string) (*Job, string, error) {
	result, err := q.client.BLPop(ctx, 0, keys...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, "", nil
		}
		return nil, "", err
	}
	if len(result) < 2 {
		return nil, "", nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, "", nil
	}
	return &job, result[0], nil
}

// Retry re-enqueues a job on key with incremented attempt. If attempt >= MaxRetries, pushes to DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job, key string) error {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if job.Attempt >= MaxRetries {
		if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	if err := q.client.RPush(ctx, key, raw).Err(); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.String("queue", key), zap.Int("attempt", job.Attempt))
	return nil
}
