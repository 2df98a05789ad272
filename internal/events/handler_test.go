package events

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/internal/models"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Errors  []FieldError    `json:"errors"`
}

func newTestRouter(f *fixture, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(f.svc, nil)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Next()
	})
	r.GET("/events", h.PublicList)
	r.GET("/events/:id", h.PublicGet)
	r.POST("/events/:id/register", h.Register)
	r.DELETE("/events/:id/registration", h.Unregister)

	r.POST("/organisers/events", h.Create)
	r.GET("/organisers/events", h.List)
	org := r.Group("/organisers/events/:id", RequireEventOrgAccess(f.svc))
	org.GET("", h.Get)
	org.GET("/overview", h.Overview)
	org.PATCH("", h.Update)
	org.POST("/publish", h.Publish)
	org.DELETE("", h.Delete)
	org.POST("/reports/:kind", h.RequestReport)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestHandler_OrganiserRoutesRequireMembership(t *testing.T) {
	f := newFixture()
	ev := f.store.put(validEvent(f.now))
	r := newTestRouter(f, uuid.New())

	w, env := do(t, r, http.MethodGet, "/organisers/events/"+ev.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, env.Success)

	w, _ = do(t, r, http.MethodGet, "/organisers/events/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, r, http.MethodGet, "/organisers/events/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_CreateAndValidationErrors(t *testing.T) {
	f := newFixture()
	user := uuid.New()
	f.orgs.member[user] = true
	r := newTestRouter(f, user)
	orgID := uuid.NewString()

	w, env := do(t, r, http.MethodPost, "/organisers/events", map[string]interface{}{
		"organization_id": orgID,
		"name":            "Go Meetup",
		"location":        "Berlin",
		"currency":        "eur",
		"time_start":      f.now.Add(24 * time.Hour),
		"time_end":        f.now.Add(26 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var ev models.Event
	require.NoError(t, json.Unmarshal(env.Data, &ev))
	assert.Equal(t, "go-meetup", ev.Slug)
	assert.Equal(t, "EUR", ev.Currency)

	w, env = do(t, r, http.MethodPost, "/organisers/events", map[string]interface{}{
		"organization_id": orgID,
		"name":            "",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	fields := map[string]bool{}
	for _, fe := range env.Errors {
		fields[fe.Field] = true
	}
	assert.True(t, fields["name"])
	assert.True(t, fields["time_start"])

	w, _ = do(t, r, http.MethodPost, "/organisers/events", map[string]interface{}{"name": "No org"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_CreateForbiddenForOutsiders(t *testing.T) {
	f := newFixture()
	r := newTestRouter(f, uuid.New())
	w, _ := do(t, r, http.MethodPost, "/organisers/events", map[string]interface{}{
		"organization_id": uuid.NewString(),
		"name":            "Go Meetup",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandler_UpdateStartTimeLocked(t *testing.T) {
	f := newFixture()
	user := uuid.New()
	f.orgs.member[user] = true
	ev := validEvent(f.now)
	ev.Status = models.StatusLive
	ev.TimeStart = at(f.now.Add(-time.Hour))
	ev.TimeEnd = at(f.now.Add(time.Hour))
	f.store.put(ev)
	r := newTestRouter(f, user)

	w, env := do(t, r, http.MethodPatch, "/organisers/events/"+ev.ID.String(), map[string]interface{}{
		"time_start": f.now.Add(-30 * time.Minute),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, MsgStartTimeLocked, env.Error)
}

func TestHandler_UpdateWithContext(t *testing.T) {
	f := newFixture()
	user := uuid.New()
	f.orgs.member[user] = true
	ev := f.store.put(validEvent(f.now))
	r := newTestRouter(f, user)
	path := "/organisers/events/" + ev.ID.String()

	w, env := do(t, r, http.MethodPatch, path+"?context=registration", map[string]interface{}{"description": "too short"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "description", env.Errors[0].Field)

	w, _ = do(t, r, http.MethodPatch, path+"?context=checkout", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodPatch, path, map[string]interface{}{"description": "too short"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_PublishPastDates(t *testing.T) {
	f := newFixture()
	user := uuid.New()
	f.orgs.member[user] = true
	ev := validEvent(f.now)
	ev.TimeStart = at(f.now.Add(-2 * time.Hour))
	f.store.put(ev)
	r := newTestRouter(f, user)

	w, env := do(t, r, http.MethodPost, "/organisers/events/"+ev.ID.String()+"/publish", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, MsgDatesInPast, env.Error)
}

func TestHandler_DeleteWithRegistrations(t *testing.T) {
	f := newFixture()
	user := uuid.New()
	f.orgs.member[user] = true
	ev := f.store.put(validEvent(f.now))
	r := newTestRouter(f, user)
	path := "/organisers/events/" + ev.ID.String()

	f.ledger.add(models.Registration{EventID: ev.ID, UserID: uuid.New(), Status: models.RegistrationDone})
	w, env := do(t, r, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, MsgHasRegistrations, env.Error)

	f.ledger.dropEvent(ev.ID)
	w, _ = do(t, r, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHandler_RequestReport(t *testing.T) {
	f := newFixture()
	user := uuid.New()
	f.orgs.member[user] = true
	ev := f.store.put(validEvent(f.now))
	r := newTestRouter(f, user)

	w, env := do(t, r, http.MethodPost, "/organisers/events/"+ev.ID.String()+"/reports/participants?area=stage%2012", nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var data struct {
		Message string        `json:"message"`
		Report  models.Report `json:"report"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, ReportQueuedMessage, data.Message)
	assert.Equal(t, string(ReportParticipants), data.Report.Kind)
	require.Len(t, f.jobs.reports, 1)

	w, _ = do(t, r, http.MethodPost, "/organisers/events/"+ev.ID.String()+"/reports/invoices", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_PublicGetHidesDrafts(t *testing.T) {
	f := newFixture()
	draft := f.store.put(validEvent(f.now))
	live := validEvent(f.now)
	live.Slug = "autumn-summit"
	live.Status = models.StatusLive
	f.store.put(live)
	r := newTestRouter(f, uuid.New())

	w, _ := do(t, r, http.MethodGet, "/events/"+draft.Slug, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env := do(t, r, http.MethodGet, "/events/Autumn%20Summit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Event
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, live.ID, got.ID)

	w, _ = do(t, r, http.MethodGet, "/events?scope=sometime", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	member := uuid.New()
	f.orgs.member[member] = true
	w, env = do(t, newTestRouter(f, member), http.MethodGet, "/events/"+draft.Slug, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, draft.ID, got.ID)
}

func TestHandler_RegisterAndUnregister(t *testing.T) {
	f := newFixture()
	ev := validEvent(f.now)
	ev.Status = models.StatusLive
	f.store.put(ev)
	user := uuid.New()
	r := newTestRouter(f, user)
	path := "/events/" + ev.ID.String()

	w, _ := do(t, r, http.MethodPost, path+"/register", map[string]interface{}{"extra_fields": map[string]string{"company": "Acme"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, _ = do(t, r, http.MethodPost, path+"/register", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = do(t, r, http.MethodDelete, path+"/registration", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, _ = do(t, r, http.MethodDelete, path+"/registration", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
