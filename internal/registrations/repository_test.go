package registrations

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-events/backend/internal/events"
	"github.com/aura-events/backend/internal/models"
)

func TestWhereClause_Scopes(t *testing.T) {
	eventID := uuid.New()
	cases := []struct {
		scope events.Scope
		where string
		args  []interface{}
	}{
		{events.ScopeConfirmed, "r.event_id = $1 AND r.status = $2 AND NOT r.refunded", []interface{}{eventID, models.RegistrationDone}},
		{events.ScopeWaitlisted, "r.event_id = $1 AND r.status = $2 AND NOT r.refunded", []interface{}{eventID, models.RegistrationWaitlisted}},
		{events.ScopeAll, "r.event_id = $1", []interface{}{eventID}},
	}
	for _, tc := range cases {
		t.Run(string(tc.scope), func(t *testing.T) {
			where, args, err := whereClause(eventID, tc.scope, events.Filter{})
			require.NoError(t, err)
			assert.Equal(t, tc.where, where)
			assert.Equal(t, tc.args, args)
		})
	}

	_, _, err := whereClause(eventID, events.Scope("refunded"), events.Filter{})
	assert.Error(t, err)
}

func TestWhereClause_Filter(t *testing.T) {
	eventID, personaID, userID := uuid.New(), uuid.New(), uuid.New()
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)
	yes := true

	where, args, err := whereClause(eventID, events.ScopeAll, events.Filter{
		PaidOnly:     true,
		PersonaID:    &personaID,
		UserID:       &userID,
		CreatedFrom:  &from,
		CreatedTo:    &to,
		Participated: &yes,
	})
	require.NoError(t, err)
	assert.Equal(t, "r.event_id = $1 AND r.price <> 0 AND r.persona_id = $2 AND r.user_id = $3"+
		" AND r.created_at >= $4 AND r.created_at < $5 AND r.participated = $6", where)
	assert.Equal(t, []interface{}{eventID, personaID, userID, from, to, true}, args)
}
