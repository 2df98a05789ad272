package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Report statuses.
const (
	ReportStatusQueued    = "queued"
	ReportStatusCompleted = "completed"
	ReportStatusFailed    = "failed"
)

// Report is an organiser-requested export generated by the worker.
type Report struct {
	ID          uuid.UUID       `json:"id"`
	EventID     uuid.UUID       `json:"event_id"`
	Kind        string          `json:"kind"`
	Status      string          `json:"status"`
	Params      json.RawMessage `json:"params,omitempty"`
	S3Key       string          `json:"s3_key,omitempty"`
	Error       string          `json:"error,omitempty"`
	RequestedBy uuid.UUID       `json:"requested_by"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}
