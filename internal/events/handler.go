package events

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/response"
)

// User-facing messages for lifecycle refusals.
const (
	MsgStartTimeLocked  = "Event is already started, can not change start time."
	MsgDatesInPast      = "Start date or End date can not be in past"
	MsgHasRegistrations = "Event has registrations and can not be deleted."
)

// CreateRequest is the body for POST /organisers/events.
type CreateRequest struct {
	Patch
	OrganizationID string `json:"organization_id" binding:"required,uuid"`
}

// RegisterRequest is the body for POST /events/:id/register.
type RegisterRequest struct {
	PersonaID   *uuid.UUID      `json:"persona_id"`
	AffiliateID *uuid.UUID      `json:"event_affiliate_id"`
	Password    string          `json:"password"`
	ExtraFields json.RawMessage `json:"extra_fields"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an event handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Create handles POST /organisers/events.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	orgID := uuid.MustParse(req.OrganizationID)
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if err := h.svc.AuthorizeOrg(c.Request.Context(), orgID, userID); err != nil {
		h.writeError(c, err, "failed to create event")
		return
	}
	ev, err := h.svc.Create(c.Request.Context(), CreateInput{Patch: req.Patch, OrganizationID: orgID})
	if err != nil {
		h.writeError(c, err, "failed to create event")
		return
	}
	response.Created(c, ev)
}

// List handles GET /organisers/events?organization_id=&scope=&q=.
func (h *Handler) List(c *gin.Context) {
	orgID, err := uuid.Parse(c.Query("organization_id"))
	if err != nil {
		response.BadRequest(c, "organization_id is required")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if err := h.svc.AuthorizeOrg(c.Request.Context(), orgID, userID); err != nil {
		h.writeError(c, err, "failed to list events")
		return
	}
	p, ok := listParams(c)
	if !ok {
		return
	}
	p.OrganizationID = &orgID
	list, err := h.svc.List(c.Request.Context(), p)
	if err != nil {
		h.writeError(c, err, "failed to list events")
		return
	}
	response.OK(c, list)
}

// PublicList handles GET /events?q=&scope=. Only live public events are listed.
func (h *Handler) PublicList(c *gin.Context) {
	p, ok := listParams(c)
	if !ok {
		return
	}
	p.LiveOnly = true
	p.PublicOnly = true
	list, err := h.svc.List(c.Request.Context(), p)
	if err != nil {
		h.writeError(c, err, "failed to list events")
		return
	}
	response.OK(c, list)
}

// PublicGet handles GET /events/:id where :id is an event id or slug. Drafts are visible only to
// signed-in members of the event's organization, as a preview.
func (h *Handler) PublicGet(c *gin.Context) {
	ev, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "failed to load event")
		return
	}
	if !ev.IsLive() && !h.canPreview(c, ev) {
		response.NotFound(c, "event not found")
		return
	}
	response.OK(c, ev)
}

func (h *Handler) canPreview(c *gin.Context, ev *models.Event) bool {
	userID, ok := middleware.UserID(c)
	if !ok {
		return false
	}
	return h.svc.Authorize(c.Request.Context(), ev, userID) == nil
}

// Get handles GET /organisers/events/:id.
func (h *Handler) Get(c *gin.Context) {
	response.OK(c, EventFromContext(c))
}

// Overview handles GET /organisers/events/:id/overview.
func (h *Handler) Overview(c *gin.Context) {
	o, err := h.svc.Overview(c.Request.Context(), EventFromContext(c).ID)
	if err != nil {
		h.writeError(c, err, "failed to load overview")
		return
	}
	response.OK(c, o)
}

// Update handles PATCH /organisers/events/:id?context=registration|reception_form.
func (h *Handler) Update(c *gin.Context) {
	profile, err := ParseProfile(c.Query("context"))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	var patch Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ev, err := h.svc.Update(c.Request.Context(), EventFromContext(c).ID, patch, profile)
	if err != nil {
		h.writeError(c, err, "failed to update event")
		return
	}
	response.OK(c, ev)
}

// Publish handles POST /organisers/events/:id/publish. It toggles draft and live.
func (h *Handler) Publish(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	ev, err := h.svc.Publish(c.Request.Context(), userID, EventFromContext(c).ID)
	if err != nil {
		h.writeError(c, err, "failed to publish event")
		return
	}
	response.OK(c, ev)
}

// Delete handles DELETE /organisers/events/:id.
func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), EventFromContext(c).ID); err != nil {
		h.writeError(c, err, "failed to delete event")
		return
	}
	response.NoContent(c)
}

// RequestReport handles POST /organisers/events/:id/reports/:kind.
func (h *Handler) RequestReport(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	report, err := h.svc.RequestReport(c.Request.Context(), userID, EventFromContext(c).ID, c.Param("kind"), c.Request.URL.Query())
	if err != nil {
		h.writeError(c, err, "failed to queue report")
		return
	}
	response.Accepted(c, gin.H{"message": ReportQueuedMessage, "report": report})
}

// Register handles POST /events/:id/register for the current user.
func (h *Handler) Register(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req RegisterRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request: "+err.Error())
			return
		}
	}
	in := RegisterInput{
		PersonaID:   req.PersonaID,
		AffiliateID: req.AffiliateID,
		Password:    req.Password,
		ExtraFields: req.ExtraFields,
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	reg, err := h.svc.RegisterUser(c.Request.Context(), eventID, userID, in)
	if err != nil {
		h.writeError(c, err, "failed to register")
		return
	}
	response.Created(c, reg)
}

// Unregister handles DELETE /events/:id/registration for the current user.
func (h *Handler) Unregister(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if err := h.svc.UnregisterUser(c.Request.Context(), eventID, userID); err != nil {
		h.writeError(c, err, "failed to unregister")
		return
	}
	response.NoContent(c)
}

func listParams(c *gin.Context) (ListParams, bool) {
	scope, err := ParseListScope(c.Query("scope"))
	if err != nil {
		response.BadRequest(c, err.Error())
		return ListParams{}, false
	}
	p := ListParams{Scope: scope, Query: c.Query("q")}
	if v := c.Query("limit"); v != "" {
		if p.Limit, err = strconv.Atoi(v); err != nil {
			response.BadRequest(c, "invalid limit")
			return ListParams{}, false
		}
	}
	if v := c.Query("offset"); v != "" {
		if p.Offset, err = strconv.Atoi(v); err != nil || p.Offset < 0 {
			response.BadRequest(c, "invalid offset")
			return ListParams{}, false
		}
	}
	return p, true
}

// writeError maps service errors onto the response envelope. fallback is sent for unexpected errors.
func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	if errs, ok := IsValidation(err); ok {
		response.UnprocessableEntity(c, errs.Error(), errs)
		return
	}
	switch {
	case errors.Is(err, ErrEventNotFound):
		response.NotFound(c, "event not found")
	case errors.Is(err, ErrForbidden):
		response.Forbidden(c, "not authorized for this organization")
	case errors.Is(err, ErrStartTimeLocked):
		response.UnprocessableEntity(c, MsgStartTimeLocked, nil)
	case errors.Is(err, ErrDatesInPast):
		response.UnprocessableEntity(c, MsgDatesInPast, nil)
	case errors.Is(err, ErrHasRegistrations):
		response.Conflict(c, MsgHasRegistrations)
	case errors.Is(err, ErrUnknownReport):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrAlreadyRegistered):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrNotRegistered):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrRegistrationClosed):
		response.UnprocessableEntity(c, err.Error(), nil)
	case errors.Is(err, ErrWrongPassword):
		response.Forbidden(c, err.Error())
	default:
		h.logger.Error(fallback, zap.Error(err), zap.String("path", c.FullPath()))
		response.Internal(c, fallback)
	}
}
