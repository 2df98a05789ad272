package events

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/response"
)

// Context keys set by RequireEventOrgAccess.
const (
	ContextOrganizationID = "organization_id"
	ContextEvent          = "event"
)

// RequireEventOrgAccess loads the event named by :id and requires the user to be a member of its organization.
// Call after JWT.
func RequireEventOrgAccess(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.BadRequest(c, "invalid event id")
			c.Abort()
			return
		}
		ev, err := svc.GetByID(c.Request.Context(), eventID)
		if err != nil {
			if errors.Is(err, ErrEventNotFound) {
				response.NotFound(c, "event not found")
			} else {
				response.Internal(c, "failed to load event")
			}
			c.Abort()
			return
		}
		userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
		if err := svc.Authorize(c.Request.Context(), ev, userID); err != nil {
			if errors.Is(err, ErrForbidden) {
				response.Forbidden(c, "not authorized for this organization")
			} else {
				response.Internal(c, "failed to check organization access")
			}
			c.Abort()
			return
		}
		c.Set(ContextOrganizationID, ev.OrganizationID)
		c.Set(ContextEvent, ev)
		c.Next()
	}
}

// EventFromContext returns the event loaded by RequireEventOrgAccess.
func EventFromContext(c *gin.Context) *models.Event {
	return c.MustGet(ContextEvent).(*models.Event)
}
