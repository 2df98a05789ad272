package pictures

import (
	"context"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/events"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/response"
	"github.com/aura-events/backend/pkg/storage"
)

// Storage is the subset of storage.S3 used for event pictures.
type Storage interface {
	PresignUpload(ctx context.Context, bucket, key, contentType string) (string, error)
	PresignExpire() time.Duration
	Upload(ctx context.Context, bucket, key, contentType string, body io.Reader, contentLength int64, publicRead bool) (string, error)
	PublicObjectURL(bucket, key string) string
	PicturesBucket() string
}

// EventUpdater saves the picture URL on the event.
type EventUpdater interface {
	Update(ctx context.Context, id uuid.UUID, patch events.Patch, profile events.Profile) (*models.Event, error)
}

// UploadURLRequest is the body for POST /organisers/events/:id/picture/upload-url.
type UploadURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type"`
	FileSize    int64  `json:"file_size"`
}

// Handler serves event picture uploads. Routes are mounted behind events.RequireEventOrgAccess.
type Handler struct {
	s3     Storage
	events EventUpdater
	logger *zap.Logger
}

// NewHandler creates a pictures handler.
func NewHandler(s3 Storage, ev EventUpdater, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{s3: s3, events: ev, logger: logger}
}

// UploadURL handles POST /organisers/events/:id/picture/upload-url. The client PUTs the file to upload_url and then
// sets picture_url on the event.
func (h *Handler) UploadURL(c *gin.Context) {
	ev := events.EventFromContext(c)
	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	contentType, ok := checkPicture(c, req.ContentType, req.Filename, req.FileSize)
	if !ok {
		return
	}

	bucket := h.s3.PicturesBucket()
	key := storage.PictureKey(ev.ID.String(), req.Filename)
	url, err := h.s3.PresignUpload(c.Request.Context(), bucket, key, contentType)
	if err != nil {
		h.logger.Error("presign picture upload failed", zap.Error(err), zap.String("event_id", ev.ID.String()), zap.String("bucket", bucket))
		response.Internal(c, "picture upload unavailable")
		return
	}
	response.OK(c, gin.H{
		"upload_url":   url,
		"s3_key":       key,
		"picture_url":  h.s3.PublicObjectURL(bucket, key),
		"content_type": contentType,
		"expires_in":   int(h.s3.PresignExpire().Seconds()),
	})
}

// Upload handles POST /organisers/events/:id/picture (multipart, field "file"). The file is stored publicly and
// becomes the event picture.
func (h *Handler) Upload(c *gin.Context) {
	ev := events.EventFromContext(c)
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file (form field: file)")
		return
	}
	contentType, ok := checkPicture(c, file.Header.Get("Content-Type"), file.Filename, file.Size)
	if !ok {
		return
	}

	rc, err := file.Open()
	if err != nil {
		h.logger.Error("open uploaded picture failed", zap.Error(err))
		response.Internal(c, "failed to read file")
		return
	}
	defer rc.Close()

	key := storage.PictureKey(ev.ID.String(), file.Filename)
	url, err := h.s3.Upload(c.Request.Context(), h.s3.PicturesBucket(), key, contentType, rc, file.Size, true)
	if err != nil {
		h.logger.Error("picture upload failed", zap.Error(err), zap.String("event_id", ev.ID.String()), zap.String("key", key))
		response.Internal(c, "failed to upload file to storage")
		return
	}

	updated, err := h.events.Update(c.Request.Context(), ev.ID, events.Patch{PictureURL: &url}, events.ProfileDefault)
	if err != nil {
		if errs, ok := events.IsValidation(err); ok {
			response.UnprocessableEntity(c, errs.Error(), errs)
			return
		}
		h.logger.Error("save picture url failed", zap.Error(err), zap.String("event_id", ev.ID.String()))
		response.Internal(c, "failed to save picture")
		return
	}
	response.OK(c, updated)
}

// checkPicture validates size and type and returns the content type to store the object with.
func checkPicture(c *gin.Context, contentType, filename string, size int64) (string, bool) {
	if size > storage.MaxPictureSize {
		response.BadRequest(c, "file size exceeds 10MB limit")
		return "", false
	}
	if !storage.ValidatePictureType(contentType, filename) {
		response.BadRequest(c, "invalid file type: only jpg, png, webp and gif images allowed")
		return "", false
	}
	if _, ok := storage.AllowedPictureTypes[contentType]; ok {
		return contentType, true
	}
	return storage.ContentTypeForFilename(filename), true
}
