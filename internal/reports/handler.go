package reports

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/events"
	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/response"
)

// Store reads reports.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Report, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Report, error)
}

// EventAccess loads events and checks organization membership.
type EventAccess interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	Authorize(ctx context.Context, ev *models.Event, userID uuid.UUID) error
}

// Presigner signs report downloads.
type Presigner interface {
	PresignDownload(ctx context.Context, bucket, key string) (string, error)
	PresignExpire() time.Duration
	ReportsBucket() string
}

// DownloadURLResponse is returned by GET /reports/:id/download-url.
type DownloadURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Handler serves organiser report endpoints.
type Handler struct {
	store  Store
	access EventAccess
	s3     Presigner
	logger *zap.Logger
}

// NewHandler creates a reports handler.
func NewHandler(store Store, access EventAccess, s3 Presigner, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, access: access, s3: s3, logger: logger}
}

// List handles GET /organisers/events/:id/reports. Mounted behind events.RequireEventOrgAccess.
func (h *Handler) List(c *gin.Context) {
	ev := events.EventFromContext(c)
	list, err := h.store.ListByEvent(c.Request.Context(), ev.ID)
	if err != nil {
		h.logger.Error("list reports failed", zap.Error(err), zap.String("event_id", ev.ID.String()))
		response.Internal(c, "failed to list reports")
		return
	}
	if list == nil {
		list = []models.Report{}
	}
	response.OK(c, list)
}

// DownloadURL handles GET /reports/:id/download-url for completed reports.
func (h *Handler) DownloadURL(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid report id")
		return
	}
	ctx := c.Request.Context()
	rep, err := h.store.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("get report failed", zap.Error(err), zap.String("report_id", id.String()))
		response.Internal(c, "failed to load report")
		return
	}

	ev, err := h.access.GetByID(ctx, rep.EventID)
	if err != nil {
		h.logger.Error("get report event failed", zap.Error(err), zap.String("report_id", id.String()))
		response.Internal(c, "failed to load report")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if err := h.access.Authorize(ctx, ev, userID); err != nil {
		if errors.Is(err, events.ErrForbidden) {
			response.Forbidden(c, "not authorized for this organization")
			return
		}
		response.Internal(c, "failed to check organization access")
		return
	}

	if rep.Status != models.ReportStatusCompleted || rep.S3Key == "" {
		response.Conflict(c, "report is not ready")
		return
	}
	url, err := h.s3.PresignDownload(ctx, h.s3.ReportsBucket(), rep.S3Key)
	if err != nil {
		h.logger.Error("presign report failed", zap.Error(err), zap.String("report_id", id.String()))
		response.Internal(c, "failed to sign download url")
		return
	}
	response.OK(c, DownloadURLResponse{URL: url, ExpiresAt: time.Now().Add(h.s3.PresignExpire()).UTC()})
}
