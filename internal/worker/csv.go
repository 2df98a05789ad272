package worker

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aura-events/backend/internal/events"
	"github.com/aura-events/backend/internal/registrations"
)

// Counters are the headline numbers of the counters report.
type Counters struct {
	Registrations int
	Confirmed     int
	Waitlisted    int
	Participated  int
	Paid          int
	TicketSales   float64
}

// participantsCSV lists every registration. With extra fields, each custom form answer gets its own column.
func participantsCSV(list []registrations.Attendee, p events.ReportParams) ([]byte, error) {
	header := []string{"email", "full_name", "country", "ticket", "status", "participated", "registered_at"}
	var extraKeys []string
	extras := make([]map[string]interface{}, len(list))
	if p.WithExtraFields {
		seen := map[string]bool{}
		for i, a := range list {
			if len(a.ExtraFields) == 0 {
				continue
			}
			if err := json.Unmarshal(a.ExtraFields, &extras[i]); err != nil {
				return nil, fmt.Errorf("registration %s extra fields: %w", a.ID, err)
			}
			for k := range extras[i] {
				if !seen[k] {
					seen[k] = true
					extraKeys = append(extraKeys, k)
				}
			}
		}
		sort.Strings(extraKeys)
		header = append(header, extraKeys...)
	}

	rows := make([][]string, 0, len(list))
	for i, a := range list {
		row := []string{
			a.Email,
			a.FullName,
			a.Country,
			a.PersonaLabel,
			string(a.Status),
			strconv.FormatBool(a.Participated),
			a.CreatedAt.UTC().Format(time.RFC3339),
		}
		for _, k := range extraKeys {
			row = append(row, cell(extras[i][k]))
		}
		rows = append(rows, row)
	}
	return writeCSV(header, rows)
}

// attendeeListCSV lists confirmed attendees with what they paid.
func attendeeListCSV(list []registrations.Attendee) ([]byte, error) {
	header := []string{"email", "full_name", "country", "ticket", "price", "registered_at"}
	rows := make([][]string, 0, len(list))
	for _, a := range list {
		rows = append(rows, []string{
			a.Email,
			a.FullName,
			a.Country,
			a.PersonaLabel,
			strconv.FormatFloat(a.Price, 'f', 2, 64),
			a.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return writeCSV(header, rows)
}

func countersCSV(c Counters) ([]byte, error) {
	return writeCSV([]string{"metric", "value"}, [][]string{
		{"registrations", strconv.Itoa(c.Registrations)},
		{"confirmed", strconv.Itoa(c.Confirmed)},
		{"waitlisted", strconv.Itoa(c.Waitlisted)},
		{"participated", strconv.Itoa(c.Participated)},
		{"paid", strconv.Itoa(c.Paid)},
		{"ticket_sales", strconv.FormatFloat(c.TicketSales, 'f', 2, 64)},
	})
}

func writeCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func cell(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	b, _ := json.Marshal(v)
	return string(b)
}
