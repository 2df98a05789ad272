package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/events"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/internal/registrations"
	"github.com/aura-events/backend/pkg/queue"
	"github.com/aura-events/backend/pkg/storage"
)

// UnsupportedKindReason is stored on reports whose kind has no data source in this service.
const UnsupportedKindReason = "unsupported report kind"

// permanentError marks a job failure that retrying cannot fix.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func permanent(err error) error { return permanentError{err: err} }

// IsPermanent reports whether err should skip the retry queue.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// ReportStore reads and finalises reports.
type ReportStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, s3Key string) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// AttendeeSource lists an event's registrations with their users.
type AttendeeSource interface {
	ListByEvent(ctx context.Context, eventID uuid.UUID, scope events.Scope) ([]registrations.Attendee, error)
}

// Uploader stores generated files.
type Uploader interface {
	Upload(ctx context.Context, bucket, key, contentType string, body io.Reader, contentLength int64, publicRead bool) (string, error)
	ReportsBucket() string
}

// Mailer queues notification emails.
type Mailer interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// ReportProcessor builds organiser reports as CSV and uploads them to the reports bucket.
type ReportProcessor struct {
	reports   ReportStore
	attendees AttendeeSource
	ledger    events.RegistrationLedger
	s3        Uploader
	mail      Mailer
	logger    *zap.Logger
}

// NewReportProcessor creates a report processor.
func NewReportProcessor(reports ReportStore, attendees AttendeeSource, ledger events.RegistrationLedger, s3 Uploader, mail Mailer, logger *zap.Logger) *ReportProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportProcessor{reports: reports, attendees: attendees, ledger: ledger, s3: s3, mail: mail, logger: logger}
}

// Process executes one report job.
func (p *ReportProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeReport {
		return permanent(fmt.Errorf("unknown job type: %s", job.Type))
	}
	var payload queue.ReportPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return permanent(fmt.Errorf("unmarshal payload: %w", err))
	}

	rep, err := p.reports.GetByID(ctx, payload.ReportID)
	if err != nil {
		return fmt.Errorf("load report %s: %w", payload.ReportID, err)
	}
	if rep.Status != models.ReportStatusQueued {
		p.logger.Info("report already finished", zap.String("report_id", rep.ID.String()), zap.String("status", rep.Status))
		return nil
	}

	var params events.ReportParams
	if len(payload.Params) > 0 {
		if err := json.Unmarshal(payload.Params, &params); err != nil {
			p.fail(ctx, rep.ID, "invalid report parameters")
			return permanent(fmt.Errorf("unmarshal params: %w", err))
		}
	}

	body, err := p.build(ctx, events.ReportKind(rep.Kind), rep.EventID, params)
	if errors.Is(err, errUnsupported) {
		p.logger.Warn("report kind has no data source", zap.String("report_id", rep.ID.String()), zap.String("kind", rep.Kind))
		p.fail(ctx, rep.ID, UnsupportedKindReason)
		return nil
	}
	if err != nil {
		return p.failOnLastAttempt(ctx, job, rep.ID, fmt.Errorf("build %s report: %w", rep.Kind, err))
	}

	key := storage.ReportKey(rep.EventID.String(), rep.Kind, rep.ID.String())
	if _, err := p.s3.Upload(ctx, p.s3.ReportsBucket(), key, "text/csv", bytes.NewReader(body), int64(len(body)), false); err != nil {
		return p.failOnLastAttempt(ctx, job, rep.ID, fmt.Errorf("s3 upload: %w", err))
	}
	if err := p.reports.MarkCompleted(ctx, rep.ID, key); err != nil {
		return p.failOnLastAttempt(ctx, job, rep.ID, fmt.Errorf("mark completed: %w", err))
	}

	requester, reportID := rep.RequestedBy, rep.ID
	if err := p.mail.EnqueueEmail(ctx, queue.EmailPayload{
		EmailType: queue.EmailReportReady,
		EventID:   rep.EventID,
		UserID:    &requester,
		ReportID:  &reportID,
	}); err != nil {
		p.logger.Warn("report ready email not queued", zap.Error(err), zap.String("report_id", rep.ID.String()))
	}
	p.logger.Info("report completed", zap.String("report_id", rep.ID.String()), zap.String("kind", rep.Kind), zap.String("s3_key", key))
	return nil
}

var errUnsupported = errors.New(UnsupportedKindReason)

func (p *ReportProcessor) build(ctx context.Context, kind events.ReportKind, eventID uuid.UUID, params events.ReportParams) ([]byte, error) {
	switch kind {
	case events.ReportParticipants:
		list, err := p.attendees.ListByEvent(ctx, eventID, events.ScopeAll)
		if err != nil {
			return nil, err
		}
		return participantsCSV(list, params)
	case events.ReportAttendeeList:
		list, err := p.attendees.ListByEvent(ctx, eventID, events.ScopeConfirmed)
		if err != nil {
			return nil, err
		}
		return attendeeListCSV(list)
	case events.ReportCounters:
		c, err := p.counters(ctx, eventID)
		if err != nil {
			return nil, err
		}
		return countersCSV(c)
	}
	return nil, errUnsupported
}

func (p *ReportProcessor) counters(ctx context.Context, eventID uuid.UUID) (Counters, error) {
	var c Counters
	var err error
	if c.Registrations, err = p.ledger.Count(ctx, eventID, events.ScopeAll); err != nil {
		return c, err
	}
	if c.Confirmed, err = p.ledger.Count(ctx, eventID, events.ScopeConfirmed); err != nil {
		return c, err
	}
	if c.Waitlisted, err = p.ledger.Count(ctx, eventID, events.ScopeWaitlisted); err != nil {
		return c, err
	}
	participated := true
	if c.Participated, err = p.ledger.CountWhere(ctx, eventID, events.ScopeAll, events.Filter{Participated: &participated}); err != nil {
		return c, err
	}
	if c.Paid, err = p.ledger.CountWhere(ctx, eventID, events.ScopeConfirmed, events.Filter{PaidOnly: true}); err != nil {
		return c, err
	}
	if c.TicketSales, err = p.ledger.Sum(ctx, eventID, events.ScopeConfirmed, events.SumPrice); err != nil {
		return c, err
	}
	return c, nil
}

// failOnLastAttempt marks the report failed when the queue will not retry job again, then returns err.
func (p *ReportProcessor) failOnLastAttempt(ctx context.Context, job *queue.Job, id uuid.UUID, err error) error {
	if job.Attempt+1 >= queue.MaxRetries {
		p.fail(ctx, id, "report generation failed")
	}
	return err
}

func (p *ReportProcessor) fail(ctx context.Context, id uuid.UUID, reason string) {
	if err := p.reports.MarkFailed(ctx, id, reason); err != nil {
		p.logger.Error("mark report failed", zap.Error(err), zap.String("report_id", id.String()))
	}
}

// TrackStore persists analytics events.
type TrackStore interface {
	RecordTracked(ctx context.Context, p queue.TrackPayload) error
}

// TrackProcessor drains the analytics queue into the tracked_events table.
type TrackProcessor struct {
	store  TrackStore
	logger *zap.Logger
}

// NewTrackProcessor creates a track processor.
func NewTrackProcessor(store TrackStore, logger *zap.Logger) *TrackProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackProcessor{store: store, logger: logger}
}

// Process records one track job.
func (p *TrackProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeTrack {
		return permanent(fmt.Errorf("unknown job type: %s", job.Type))
	}
	var payload queue.TrackPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return permanent(fmt.Errorf("unmarshal payload: %w", err))
	}
	if err := p.store.RecordTracked(ctx, payload); err != nil {
		return fmt.Errorf("record track: %w", err)
	}
	p.logger.Debug("track event recorded", zap.String("name", payload.Name), zap.String("user_id", payload.UserID.String()))
	return nil
}

// Processor handles jobs from one queue.
type Processor interface {
	Process(ctx context.Context, job *queue.Job) error
}

// Dequeuer is the job source. *queue.Queue implements it.
type Dequeuer interface {
	Dequeue(ctx context.Context, keys ...string) (*queue.Job, string, error)
	Retry(ctx context.Context, job *queue.Job, key string) error
}

// Runner pulls jobs from several queues and dispatches them by queue key.
type Runner struct {
	q          Dequeuer
	processors map[string]Processor
	keys       []string
	backoff    time.Duration
	logger     *zap.Logger
}

// NewRunner creates a runner. Register processors with Handle before Run.
func NewRunner(q Dequeuer, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{q: q, processors: map[string]Processor{}, backoff: queue.RetryBackoff, logger: logger}
}

// Handle routes jobs popped from key to p.
func (r *Runner) Handle(key string, p Processor) {
	if _, ok := r.processors[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.processors[key] = p
}

// Run loops until ctx is done: dequeue, process, retry on error.
func (r *Runner) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("worker stopping")
			return
		default:
		}

		job, key, err := r.q.Dequeue(ctx, r.keys...)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			r.logger.Warn("dequeue error", zap.Error(err))
			r.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}
		p, ok := r.processors[key]
		if !ok {
			r.logger.Warn("no processor for queue", zap.String("queue", key), zap.String("job_id", job.ID))
			continue
		}

		r.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			if IsPermanent(err) {
				r.logger.Error("job dropped", zap.String("job_id", job.ID), zap.Error(err))
				continue
			}
			r.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := r.q.Retry(ctx, job, key); reErr != nil {
				r.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			r.sleep(ctx)
		}
	}
}

func (r *Runner) sleep(ctx context.Context) {
	if r.backoff <= 0 {
		return
	}
	t := time.NewTimer(r.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
