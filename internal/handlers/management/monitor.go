package management

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type monitorStartRequest struct {
	IntervalSec float64 `json:"interval_sec"`
}

// MonitorStatus GET /monitor
func (h *Handler) MonitorStatus(c *gin.Context) {
	setNoCacheHeaders(c)
	c.JSON(http.StatusOK, h.monitor.Status())
}

// StartMonitor POST /monitor/start replaces any running loop. An empty body
// uses the configured interval.
func (h *Handler) StartMonitor(c *gin.Context) {
	var req monitorStartRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondValidationError(c, err)
		return
	}
	interval := h.opts.MonitorInterval
	if req.IntervalSec != 0 {
		interval = time.Duration(req.IntervalSec * float64(time.Second))
	}
	if interval <= 0 {
		respondError(c, http.StatusBadRequest, "invalid_request", "interval_sec must be positive")
		return
	}
	h.monitor.Start(interval, h.cameras, h.onFrame)
	c.JSON(http.StatusOK, h.monitor.Status())
}

// StopMonitor POST /monitor/stop
func (h *Handler) StopMonitor(c *gin.Context) {
	h.monitor.Stop()
	c.JSON(http.StatusOK, gin.H{"running": false})
}
