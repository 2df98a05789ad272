package organizations

import (
	"errors"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/response"
)

// Slug must be lowercase alphanumeric and hyphens only, 2–64 chars.
var slugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,63}$`)

// Defaults are the plan limits given to new organizations.
type Defaults struct {
	Commission          float64
	MaxEventLengthHours int
}

// Handler handles organization HTTP endpoints.
type Handler struct {
	repo     *Repository
	defaults Defaults
	logger   *zap.Logger
}

// NewHandler creates an organizations handler.
func NewHandler(repo *Repository, defaults Defaults, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, defaults: defaults, logger: logger}
}

// CreateOrganizationRequest is the body for POST /organizations.
type CreateOrganizationRequest struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug" binding:"required"`
}

// JoinOrganizationRequest is the body for POST /organizations/join.
type JoinOrganizationRequest struct {
	Slug string `json:"slug" binding:"required"`
}

// UpdatePlanRequest is the body for PATCH /organizations/:id/plan.
type UpdatePlanRequest struct {
	Commission          *float64 `json:"commission" binding:"omitempty,gte=0,lte=1"`
	MaxEventLengthHours *int     `json:"max_event_length_hours" binding:"omitempty,gte=1"`
	Analytics           *bool    `json:"analytics"`
	CustomBranding      *bool    `json:"custom_branding"`
	CustomText          *bool    `json:"custom_text"`
}

// CreateOrganization handles POST /organizations. Creates org and adds current user as owner.
func (h *Handler) CreateOrganization(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var body CreateOrganizationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name and slug required")
		return
	}
	body.Slug = strings.ToLower(strings.TrimSpace(body.Slug))
	if !slugRegex.MatchString(body.Slug) {
		response.BadRequest(c, "slug must be 2–64 chars, lowercase letters, numbers, hyphens only")
		return
	}
	body.Name = strings.TrimSpace(body.Name)
	if len(body.Name) < 1 || len(body.Name) > 255 {
		response.BadRequest(c, "name must be 1–255 characters")
		return
	}
	org := &models.Organization{
		Name:                body.Name,
		Slug:                body.Slug,
		Commission:          h.defaults.Commission,
		MaxEventLengthHours: h.defaults.MaxEventLengthHours,
	}
	if err := h.repo.Create(c.Request.Context(), org); err != nil {
		if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "unique") {
			response.Conflict(c, "An organization with this slug already exists")
			return
		}
		h.logger.Error("create organization failed", zap.Error(err))
		response.Internal(c, "failed to create organization")
		return
	}
	if err := h.repo.AddUser(c.Request.Context(), org.ID, userID, models.OrgRoleOwner); err != nil {
		response.Internal(c, "failed to add you as owner")
		return
	}
	response.Created(c, org)
}

// JoinOrganization handles POST /organizations/join. Adds current user to org by slug (as moderator).
func (h *Handler) JoinOrganization(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var body JoinOrganizationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "slug required")
		return
	}
	slug := strings.ToLower(strings.TrimSpace(body.Slug))
	if slug == "" {
		response.BadRequest(c, "slug required")
		return
	}
	org, err := h.repo.GetBySlug(c.Request.Context(), slug)
	if err != nil {
		response.NotFound(c, "Organization not found")
		return
	}
	if err := h.repo.AddUser(c.Request.Context(), org.ID, userID, models.OrgRoleModerator); err != nil {
		response.Internal(c, "failed to join organization")
		return
	}
	response.OK(c, org)
}

// ListMyOrganizations handles GET /organizations. Returns orgs the current user is a member of.
func (h *Handler) ListMyOrganizations(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	orgs, err := h.repo.ListOrganizationsForUser(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to load organizations")
		return
	}
	response.OK(c, orgs)
}

// ListMembers handles GET /organizations/:id/members. Requires org access (owner/event_manager/moderator).
func (h *Handler) ListMembers(c *gin.Context) {
	orgID, ok := h.requireAccess(c)
	if !ok {
		return
	}
	members, err := h.repo.ListMembers(c.Request.Context(), orgID)
	if err != nil {
		response.Internal(c, "failed to load members")
		return
	}
	response.OK(c, members)
}

// UpdatePlan handles PATCH /organizations/:id/plan (platform admin only).
func (h *Handler) UpdatePlan(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return
	}
	var body UpdatePlanRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	org, err := h.repo.GetByID(c.Request.Context(), orgID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "Organization not found")
			return
		}
		response.Internal(c, "failed to load organization")
		return
	}
	if body.Commission != nil {
		org.Commission = *body.Commission
	}
	if body.MaxEventLengthHours != nil {
		org.MaxEventLengthHours = *body.MaxEventLengthHours
	}
	if body.Analytics != nil {
		org.Analytics = *body.Analytics
	}
	if body.CustomBranding != nil {
		org.CustomBranding = *body.CustomBranding
	}
	if body.CustomText != nil {
		org.CustomText = *body.CustomText
	}
	if err := h.repo.UpdatePlan(c.Request.Context(), org); err != nil {
		h.logger.Error("update plan failed", zap.Error(err), zap.String("organization_id", orgID.String()))
		response.Internal(c, "failed to update plan")
		return
	}
	response.OK(c, org)
}

func (h *Handler) requireAccess(c *gin.Context) (uuid.UUID, bool) {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return uuid.Nil, false
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	ok, err := h.repo.UserHasOrgAccess(c.Request.Context(), orgID, userID)
	if err != nil || !ok {
		response.Forbidden(c, "not authorized for this organization")
		return uuid.Nil, false
	}
	return orgID, true
}
