package management

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"camgate-go/internal/frame"
	"camgate-go/internal/logging"
	"camgate-go/internal/models"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// cameraRequest is a camera config plus its secret. Secret is tri-state on
// update: absent or null keeps the stored value, "" deletes it.
type cameraRequest struct {
	models.CameraConfig
	Secret *string `json:"secret"`
}

type cameraListResponse struct {
	Cameras   []models.CameraConfig `json:"cameras"`
	Count     int                   `json:"count"`
	LastError string                `json:"last_error,omitempty"`
}

// ListCameras GET /cameras
func (h *Handler) ListCameras(c *gin.Context) {
	cams := h.cameras.Cameras()
	resp := cameraListResponse{Cameras: cams, Count: len(cams)}
	if err := h.cameras.LastError(); err != nil {
		resp.LastError = err.Error()
	}
	setNoCacheHeaders(c)
	c.JSON(http.StatusOK, resp)
}

// GetCamera GET /cameras/:id
func (h *Handler) GetCamera(c *gin.Context) {
	cam, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, cam)
}

// CreateCamera POST /cameras
func (h *Handler) CreateCamera(c *gin.Context) {
	var req cameraRequest
	if !bindJSON(c, &req) {
		return
	}
	cfg := req.CameraConfig
	cfg.Kind = models.ProviderKind(strings.TrimSpace(string(cfg.Kind)))
	if strings.TrimSpace(cfg.Name) == "" {
		respondError(c, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	saved, err := h.cameras.AddCamera(c.Request.Context(), cfg, req.Secret)
	if err != nil {
		respondCameraError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

// UpdateCamera PUT /cameras/:id merges the body over the stored config.
func (h *Handler) UpdateCamera(c *gin.Context) {
	existing, ok := h.lookup(c)
	if !ok {
		return
	}
	req := cameraRequest{CameraConfig: existing}
	if !bindJSON(c, &req) {
		return
	}
	cfg := req.CameraConfig
	cfg.ID = existing.ID
	cfg.CreatedAt = existing.CreatedAt

	saved, err := h.cameras.UpdateCamera(c.Request.Context(), cfg, req.Secret)
	if err != nil {
		respondCameraError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// DeleteCamera DELETE /cameras/:id
func (h *Handler) DeleteCamera(c *gin.Context) {
	cam, ok := h.lookup(c)
	if !ok {
		return
	}
	if err := h.cameras.DeleteCamera(c.Request.Context(), cam); err != nil {
		respondCameraError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Snapshot GET /cameras/:id/snapshot?format=jpeg|png
func (h *Handler) Snapshot(c *gin.Context) {
	cam, ok := h.lookup(c)
	if !ok {
		return
	}
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "jpeg")))
	if format != "jpeg" && format != "jpg" && format != "png" {
		respondError(c, http.StatusBadRequest, "invalid_request", "format must be jpeg or png")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.opts.SnapshotTimeout)
	defer cancel()
	f, err := h.cameras.CaptureFrame(ctx, cam)
	if err != nil {
		logging.WithCamera("api", cam).WithField("error_kind", logging.ErrorKind(err)).Warn("snapshot failed")
		respondCameraError(c, err)
		return
	}
	data, err := frame.Encode(f, format)
	if err != nil {
		log.WithFields(log.Fields{"component": "api", "camera_id": cam.ID, "error": err}).Error("snapshot encode failed")
		respondError(c, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	setNoCacheHeaders(c)
	c.Header("X-Frame-Captured-At", f.CapturedAt.Format("2006-01-02T15:04:05.000Z07:00"))
	c.Data(http.StatusOK, frame.ContentType(format), data)
}

// StreamURL GET /cameras/:id/stream
// StreamURL returns the playable URL. RTSP URLs carry the stored password;
// ?redact=1 masks it for display.
func (h *Handler) StreamURL(c *gin.Context) {
	cam, ok := h.lookup(c)
	if !ok {
		return
	}
	streamURL, available := h.cameras.StreamURL(c.Request.Context(), cam)
	if redact, _ := strconv.ParseBool(c.Query("redact")); redact && available {
		if u, err := url.Parse(streamURL); err == nil {
			streamURL = u.Redacted()
		}
	}
	setNoCacheHeaders(c)
	c.JSON(http.StatusOK, gin.H{"camera_id": cam.ID, "available": available, "stream_url": streamURL})
}

func (h *Handler) lookup(c *gin.Context) (models.CameraConfig, bool) {
	id := strings.TrimSpace(c.Param("id"))
	cam, ok := h.cameras.Camera(id)
	if !ok {
		respondError(c, http.StatusNotFound, "not_found", "camera not found: "+id)
	}
	return cam, ok
}
