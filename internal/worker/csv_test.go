package worker

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-events/backend/internal/events"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/internal/registrations"
)

func attendee(email string, price float64, extra string) registrations.Attendee {
	a := registrations.Attendee{
		Email:        email,
		FullName:     "Ada, Lovelace",
		Country:      "GB",
		PersonaLabel: "VIP",
	}
	a.Price = price
	a.Status = models.RegistrationDone
	a.CreatedAt = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if extra != "" {
		a.ExtraFields = json.RawMessage(extra)
	}
	return a
}

func TestParticipantsCSV(t *testing.T) {
	list := []registrations.Attendee{
		attendee("a@example.com", 10, `{"company":"Acme","seats":2}`),
		attendee("b@example.com", 0, `{"diet":"vegan"}`),
	}

	out, err := participantsCSV(list, events.ReportParams{})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "email,full_name,country,ticket,status,participated,registered_at", lines[0])
	assert.Equal(t, `a@example.com,"Ada, Lovelace",GB,VIP,done,false,2024-01-02T03:04:05Z`, lines[1])

	out, err = participantsCSV(list, events.ReportParams{WithExtraFields: true})
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(string(out)), "\n")
	assert.Equal(t, "email,full_name,country,ticket,status,participated,registered_at,company,diet,seats", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], ",Acme,,2"), lines[1])
	assert.True(t, strings.HasSuffix(lines[2], ",,vegan,"), lines[2])
}

func TestParticipantsCSV_BadExtraFields(t *testing.T) {
	_, err := participantsCSV([]registrations.Attendee{attendee("a@example.com", 0, `[1,2]`)}, events.ReportParams{WithExtraFields: true})
	assert.Error(t, err)
}

func TestAttendeeListAndCounters(t *testing.T) {
	out, err := attendeeListCSV([]registrations.Attendee{attendee("a@example.com", 12.5, "")})
	require.NoError(t, err)
	assert.Equal(t, "email,full_name,country,ticket,price,registered_at\na@example.com,\"Ada, Lovelace\",GB,VIP,12.50,2024-01-02T03:04:05Z\n", string(out))

	out, err = countersCSV(Counters{Registrations: 5, Confirmed: 4, Waitlisted: 1, Participated: 3, Paid: 2, TicketSales: 40})
	require.NoError(t, err)
	assert.Equal(t, "metric,value\nregistrations,5\nconfirmed,4\nwaitlisted,1\nparticipated,3\npaid,2\nticket_sales,40.00\n", string(out))
}
