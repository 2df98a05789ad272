package registrations

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/events"
	"github.com/aura-events/backend/pkg/response"
)

// Handler handles organiser registration endpoints. Routes are mounted behind events.RequireEventOrgAccess.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a registrations handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /organisers/events/:id/registrations?scope=confirmed|waitlisted|all.
func (h *Handler) List(c *gin.Context) {
	ev := events.EventFromContext(c)
	scope := events.Scope(c.DefaultQuery("scope", string(events.ScopeConfirmed)))
	switch scope {
	case events.ScopeConfirmed, events.ScopeWaitlisted, events.ScopeAll:
	default:
		response.BadRequest(c, "invalid scope")
		return
	}
	list, err := h.repo.ListByEvent(c.Request.Context(), ev.ID, scope)
	if err != nil {
		h.logger.Error("list registrations failed", zap.Error(err), zap.String("event_id", ev.ID.String()))
		response.Internal(c, "failed to list registrations")
		return
	}
	response.OK(c, list)
}

// CheckIn handles POST /organisers/events/:id/registrations/:user_id/check-in. It marks the attendee as participated.
func (h *Handler) CheckIn(c *gin.Context) {
	ev := events.EventFromContext(c)
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	if err := h.repo.MarkParticipated(c.Request.Context(), ev.ID, userID); err != nil {
		if errors.Is(err, events.ErrNotRegistered) {
			response.NotFound(c, err.Error())
			return
		}
		h.logger.Error("check-in failed", zap.Error(err), zap.String("event_id", ev.ID.String()))
		response.Internal(c, "failed to check in")
		return
	}
	response.OK(c, gin.H{"event_id": ev.ID, "user_id": userID, "participated": true})
}
