package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aura-events/backend/internal/models"
)

func TestTimeWindows(t *testing.T) {
	ev := validEvent(testNow)
	ev.Status = models.StatusLive
	start, end := *ev.TimeStart, *ev.TimeEnd

	assert.Equal(t, 2*time.Hour, TotalTime(ev))
	assert.False(t, Started(ev, start))
	assert.True(t, Started(ev, start.Add(time.Second)))

	assert.False(t, StartingNow(ev, start.Add(-6*time.Minute)))
	assert.True(t, StartingNow(ev, start.Add(-5*time.Minute)))
	assert.True(t, StartingNow(ev, end))
	assert.False(t, StartingNow(ev, end.Add(time.Second)))

	assert.False(t, HasEnded(ev, end.Add(-time.Second)))
	assert.True(t, HasEnded(ev, end))
	assert.True(t, Finished(ev, end.Add(time.Minute)))

	ev.Status = models.StatusDraft
	assert.False(t, Started(ev, end))
	assert.False(t, Finished(ev, end.Add(time.Minute)))
	assert.True(t, HasEnded(ev, end.Add(time.Minute)))
}

func TestEarlyBirdPeriod(t *testing.T) {
	ev := validEvent(testNow)
	start := *ev.TimeStart
	assert.True(t, EarlyBirdPeriod(ev, start.Add(-11*24*time.Hour)))
	assert.False(t, EarlyBirdPeriod(ev, start.Add(-9*24*time.Hour)))
}

func TestTotalTime_MissingBound(t *testing.T) {
	ev := validEvent(testNow)
	ev.TimeEnd = nil
	assert.Zero(t, TotalTime(ev))
	assert.False(t, StartingNow(ev, testNow))
	assert.Nil(t, LocalEnd(ev))
}

func TestLocalTimes(t *testing.T) {
	ev := validEvent(testNow)
	ev.Timezone = "America/New_York"
	local := LocalStart(ev)
	if assert.NotNil(t, local) {
		assert.Equal(t, "America/New_York", local.Location().String())
		assert.True(t, local.Equal(*ev.TimeStart))
	}
	ev.Timezone = "Nowhere/Special"
	assert.Equal(t, time.UTC, LocalEnd(ev).Location())
}

func TestDatesInPast(t *testing.T) {
	ev := validEvent(testNow)
	assert.False(t, DatesInPast(ev, testNow))
	ev.TimeStart = at(testNow.Add(-time.Hour))
	assert.True(t, DatesInPast(ev, testNow))
}

func TestInListScope(t *testing.T) {
	now := testNow
	event := func(status models.EventStatus, start, end time.Duration) *models.Event {
		return &models.Event{Status: status, TimeStart: at(now.Add(start)), TimeEnd: at(now.Add(end))}
	}
	cases := []struct {
		name                             string
		ev                               *models.Event
		upcoming, finished, ongoing, all bool
	}{
		{"live future", event(models.StatusLive, time.Hour, 2*time.Hour), true, false, false, true},
		{"live running", event(models.StatusLive, -time.Hour, time.Hour), true, false, true, true},
		{"live about to start", event(models.StatusLive, 2*time.Minute, time.Hour), true, false, false, true},
		{"live ended", event(models.StatusLive, -2*time.Hour, -time.Hour), false, true, false, true},
		{"live ending now", event(models.StatusLive, -time.Hour, 0), false, false, false, true},
		{"draft future", event(models.StatusDraft, time.Hour, 2*time.Hour), false, false, false, true},
		{"draft ended", event(models.StatusDraft, -2*time.Hour, -time.Hour), false, false, false, true},
		{"live without dates", &models.Event{Status: models.StatusLive}, false, false, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.upcoming, InListScope(tc.ev, ListUpcoming, now), "upcoming")
			assert.Equal(t, tc.finished, InListScope(tc.ev, ListFinished, now), "finished")
			assert.Equal(t, tc.ongoing, InListScope(tc.ev, ListOngoing, now), "ongoing")
			assert.Equal(t, tc.all, InListScope(tc.ev, ListAll, now), "all")
		})
	}
}

func TestScopeCondition(t *testing.T) {
	assert.Equal(t, "status = 'live' AND time_end > $3", scopeCondition(ListUpcoming, "$3"))
	assert.Equal(t, "status = 'live' AND time_end < $3", scopeCondition(ListFinished, "$3"))
	assert.Equal(t, "status = 'live' AND time_start < $3 AND time_end > $3", scopeCondition(ListOngoing, "$3"))
	assert.Equal(t, "FALSE", scopeCondition(ListScope("sometime"), "$3"))
}
