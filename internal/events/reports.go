package events

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ReportKind is an organiser-requested export.
type ReportKind string

const (
	ReportConnectionSummary ReportKind = "connection_summary"
	ReportEventChat         ReportKind = "event_chat"
	ReportParticipants      ReportKind = "participants"
	ReportAttendeeList      ReportKind = "attendee_list"
	ReportMovementLogs      ReportKind = "movement_logs"
	ReportCounters          ReportKind = "counters"
	ReportPolls             ReportKind = "polls"
)

// ReportQueuedMessage is shown to the organiser once a report job is accepted.
const ReportQueuedMessage = "Your report is in the queue, you will receive an email once it is ready."

const segmentAll = "All"

// ParseReportKind returns the kind for s, wrapping ErrUnknownReport otherwise.
func ParseReportKind(s string) (ReportKind, error) {
	switch ReportKind(s) {
	case ReportConnectionSummary, ReportEventChat, ReportParticipants, ReportAttendeeList,
		ReportMovementLogs, ReportCounters, ReportPolls:
		return ReportKind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownReport, s)
}

// ReportParams is the parameter bundle handed to the report worker.
type ReportParams struct {
	EventID         uuid.UUID `json:"event_id"`
	RoundtableID    int64     `json:"roundtable_id,omitempty"`
	BackstageID     int64     `json:"backstage_id,omitempty"`
	StageID         int64     `json:"stage_id,omitempty"`
	WithExtraFields bool      `json:"with_extra_fields,omitempty"`
	Segment         string    `json:"segment,omitempty"`
	ResourceID      *int64    `json:"resource_id,omitempty"`
	WithMinutes     bool      `json:"with_minutes,omitempty"`
}

// BuildReportParams assembles the bundle for kind from request query values.
// hasRegistrationFields decides whether participant exports include custom form answers.
func BuildReportParams(kind ReportKind, eventID uuid.UUID, hasRegistrationFields bool, q url.Values) ReportParams {
	p := ReportParams{EventID: eventID}
	switch kind {
	case ReportEventChat:
		// only positive ids narrow the chat export
		p.RoundtableID = positiveID(q.Get("roundtable_id"))
		p.BackstageID = positiveID(q.Get("backstage_id"))
		p.StageID = positiveID(q.Get("stage_id"))
	case ReportParticipants:
		p.WithExtraFields = hasRegistrationFields
		p.Segment, p.ResourceID = parseArea(q.Get("area"))
		p.WithMinutes = true
	case ReportAttendeeList:
		p.Segment = segmentAll
	case ReportConnectionSummary, ReportMovementLogs, ReportCounters, ReportPolls:
	}
	return p
}

// parseArea splits "segment [resource_id]". The id is only read when both parts are present.
func parseArea(area string) (string, *int64) {
	parts := strings.Fields(area)
	if len(parts) == 0 {
		return "", nil
	}
	if len(parts) != 2 {
		return parts[0], nil
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		id = 0
	}
	return parts[0], &id
}

func positiveID(s string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}
