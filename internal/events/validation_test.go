package events

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-events/backend/internal/models"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testOrg() *models.Organization {
	return &models.Organization{Commission: 0.95, MaxEventLengthHours: 72}
}

func TestValidate_ValidEventHasNoErrors(t *testing.T) {
	errs := Validate(validEvent(testNow), testOrg(), 0, ProfileDefault)
	assert.Empty(t, errs)
}

func TestValidate_DateRange(t *testing.T) {
	t.Run("missing start only", func(t *testing.T) {
		ev := validEvent(testNow)
		ev.TimeStart = nil
		errs := Validate(ev, testOrg(), 0, ProfileDefault)
		assert.Equal(t, []string{"must be selected"}, errs.On("time_start"))
		assert.Empty(t, errs.On("time_end"))
	})
	t.Run("both missing report independently", func(t *testing.T) {
		ev := validEvent(testNow)
		ev.TimeStart, ev.TimeEnd = nil, nil
		errs := Validate(ev, testOrg(), 0, ProfileDefault)
		assert.Equal(t, []string{"must be selected"}, errs.On("time_start"))
		assert.Equal(t, []string{"must be selected"}, errs.On("time_end"))
	})
	t.Run("end equal to start", func(t *testing.T) {
		ev := validEvent(testNow)
		ev.TimeEnd = at(*ev.TimeStart)
		errs := Validate(ev, testOrg(), 0, ProfileDefault)
		assert.Equal(t, []string{"must be later than time start"}, errs.On("time_end"))
		assert.Empty(t, errs.On("time_start"))
	})
	t.Run("end before start", func(t *testing.T) {
		ev := validEvent(testNow)
		ev.TimeEnd = at(ev.TimeStart.Add(-time.Hour))
		errs := Validate(ev, testOrg(), 0, ProfileDefault)
		assert.Equal(t, []string{"must be later than time start"}, errs.On("time_end"))
	})
}

func TestValidate_MaxEventLength(t *testing.T) {
	ev := validEvent(testNow)
	ev.TimeEnd = at(ev.TimeStart.Add(72 * time.Hour))
	assert.Empty(t, Validate(ev, testOrg(), 0, ProfileDefault).On("event"))

	ev.TimeEnd = at(ev.TimeStart.Add(72*time.Hour + time.Second))
	errs := Validate(ev, testOrg(), 0, ProfileDefault)
	require.Len(t, errs.On("event"), 1)
	assert.Contains(t, errs.On("event")[0], "72")

	assert.Empty(t, Validate(ev, nil, 0, ProfileDefault).On("event"))
}

func TestValidate_Presence(t *testing.T) {
	ev := validEvent(testNow)
	ev.Name = "  "
	ev.Location = ""
	ev.LocationPreference = ""
	ev.Currency = ""
	ev.Timezone = ""
	errs := Validate(ev, testOrg(), 0, ProfileDefault)
	for _, field := range []string{"name", "location", "location_preference", "currency", "timezone"} {
		assert.Equal(t, []string{"can't be blank"}, errs.On(field), field)
	}
}

func TestValidate_CollectsAllFailures(t *testing.T) {
	ev := validEvent(testNow)
	ev.Name = ""
	ev.Location = ""
	ev.Theme = "{not json"
	ev.TimeStart = nil
	errs := Validate(ev, testOrg(), 0, ProfileDefault)
	assert.GreaterOrEqual(t, len(errs), 4)
	assert.NotEmpty(t, errs.On("name"))
	assert.NotEmpty(t, errs.On("location"))
	assert.NotEmpty(t, errs.On("theme"))
	assert.NotEmpty(t, errs.On("time_start"))
	assert.Contains(t, errs.Error(), "name can't be blank")
}

func TestValidate_PasswordRequiredForPrivateEvents(t *testing.T) {
	ev := validEvent(testNow)
	ev.EventType = models.EventTypePrivate
	assert.Equal(t, []string{"can't be blank"}, Validate(ev, testOrg(), 0, ProfileDefault).On("password"))

	ev.PasswordHash = "$2a$10$hash"
	assert.Empty(t, Validate(ev, testOrg(), 0, ProfileDefault).On("password"))

	ev.EventType = models.EventTypeHidden
	ev.PasswordHash = ""
	assert.Empty(t, Validate(ev, testOrg(), 0, ProfileDefault).On("password"))
}

func TestValidate_Theme(t *testing.T) {
	cases := []struct {
		theme string
		fails bool
	}{
		{"", false},
		{"   ", false},
		{`{"primary":"#fff"}`, false},
		{`[1,2]`, false},
		{`{"primary":`, true},
		{`not json`, true},
	}
	for _, tc := range cases {
		ev := validEvent(testNow)
		ev.Theme = tc.theme
		got := Validate(ev, testOrg(), 0, ProfileDefault).On("theme")
		if tc.fails {
			assert.Equal(t, []string{"must be valid JSON"}, got, tc.theme)
		} else {
			assert.Empty(t, got, tc.theme)
		}
	}
}

func TestValidate_RegistrationProfile(t *testing.T) {
	ev := validEvent(testNow)
	ev.Description = ""
	errs := Validate(ev, testOrg(), 0, ProfileRegistration)
	assert.Equal(t, []string{"can't be blank"}, errs.On("description"))

	ev.Description = strings.Repeat("a", 29)
	errs = Validate(ev, testOrg(), 0, ProfileRegistration)
	assert.Equal(t, []string{"is too short (minimum is 30 characters)"}, errs.On("description"))

	ev.Description = strings.Repeat("a", 30)
	assert.Empty(t, Validate(ev, testOrg(), 0, ProfileRegistration))

	ev.Description = ""
	assert.Empty(t, Validate(ev, testOrg(), 0, ProfileDefault).On("description"))
	assert.Empty(t, Validate(ev, testOrg(), 0, ProfileReceptionForm).On("description"))
}

func TestValidate_ReceptionFormProfile(t *testing.T) {
	ev := validEvent(testNow)
	errs := Validate(ev, testOrg(), 0, ProfileReceptionForm)
	assert.Equal(t, []string{"can't be blank"}, errs.On("message"))

	ev.Message = "Welcome!"
	errs = Validate(ev, testOrg(), 0, ProfileReceptionForm)
	assert.Equal(t, []string{"is too short (minimum is 30 characters)"}, errs.On("message"))

	ev.Message = "Welcome to the reception, grab a coffee and say hi."
	assert.Empty(t, Validate(ev, testOrg(), 0, ProfileReceptionForm))
	assert.Empty(t, Validate(ev, testOrg(), 0, ProfileRegistration).On("message"))
}

func TestValidate_PublishProfile(t *testing.T) {
	ev := validEvent(testNow)
	ev.Status = models.StatusDraft

	errs := Validate(ev, testOrg(), 1, ProfilePublish)
	assert.Equal(t, []string{"Cannot unpublish event with registrations"}, errs.On("status"))

	assert.Empty(t, Validate(ev, testOrg(), 0, ProfilePublish))
	assert.Empty(t, Validate(ev, testOrg(), 3, ProfileDefault))

	ev.Status = models.StatusLive
	assert.Empty(t, Validate(ev, testOrg(), 5, ProfilePublish))
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(models.StatusLive, 0))
	assert.True(t, CanTransition(models.StatusLive, 10))
	assert.True(t, CanTransition(models.StatusDraft, 0))
	assert.False(t, CanTransition(models.StatusDraft, 1))
	assert.False(t, CanTransition(models.EventStatus("archived"), 0))
}

func TestValidate_FieldFormats(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*models.Event)
		field  string
		want   string
	}{
		{"unknown status", func(e *models.Event) { e.Status = "archived" }, "status", "is not included in the list"},
		{"unknown location preference", func(e *models.Event) { e.LocationPreference = "farthest" }, "location_preference", "is not included in the list"},
		{"malformed currency", func(e *models.Event) { e.Currency = "DOLLAR" }, "currency", "is not a valid ISO 4217 code"},
		{"unknown time zone", func(e *models.Event) { e.Timezone = "Mars/Olympus_Mons" }, "timezone", "is not a valid time zone"},
		{"long short description", func(e *models.Event) { e.ShortDescription = strings.Repeat("x", 121) }, "short_description", "120 characters is the maximum allowed"},
		{"bad color", func(e *models.Event) { e.Color = "#12345G" }, "color", "is invalid"},
		{"bad success url", func(e *models.Event) { e.EmbedTicketSuccessURL = "example.com/ok" }, "embed_ticket_success_url", "format is invalid"},
		{"bad error url", func(e *models.Event) { e.EmbedTicketErrorURL = "ftp://example.com" }, "embed_ticket_error_url", "format is invalid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := validEvent(testNow)
			tc.mutate(ev)
			assert.Equal(t, []string{tc.want}, Validate(ev, testOrg(), 0, ProfileDefault).On(tc.field))
		})
	}
}

func TestValidate_AcceptedFormats(t *testing.T) {
	ev := validEvent(testNow)
	ev.Currency = "eur"
	ev.Color = "FFF"
	ev.ShortDescription = strings.Repeat("x", 120)
	ev.EmbedTicketSuccessURL = "https://example.com/thanks"
	ev.EmbedTicketErrorURL = "http://example.com/oops"
	assert.Empty(t, Validate(ev, testOrg(), 0, ProfileDefault))
}

func TestValidate_Schedules(t *testing.T) {
	ev := validEvent(testNow)
	ev.Schedules = []models.Schedule{
		{Name: "Keynote", TimeStart: ev.TimeStart.Add(30 * time.Minute), TimeEnd: ev.TimeStart.Add(time.Hour)},
	}
	assert.Empty(t, Validate(ev, testOrg(), 0, ProfileDefault))

	ev.Schedules = append(ev.Schedules,
		models.Schedule{Name: "Afterparty", TimeStart: ev.TimeEnd.Add(-time.Minute), TimeEnd: ev.TimeEnd.Add(time.Hour)},
		models.Schedule{Name: "Backwards", TimeStart: ev.TimeStart.Add(time.Hour), TimeEnd: ev.TimeStart.Add(time.Minute)},
	)
	errs := Validate(ev, testOrg(), 0, ProfileDefault).On("schedules")
	assert.Equal(t, []string{
		`"Afterparty" must be within the event time`,
		`"Backwards" must end after it starts`,
	}, errs)
}

func TestParseProfile(t *testing.T) {
	for in, want := range map[string]Profile{
		"":               ProfileDefault,
		"edit":           ProfileDefault,
		"registration":   ProfileRegistration,
		"reception_form": ProfileReceptionForm,
		"publish":        ProfilePublish,
	} {
		got, err := ParseProfile(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseProfile("checkout")
	assert.Error(t, err)
}
