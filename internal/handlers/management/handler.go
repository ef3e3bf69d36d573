package management

import (
	"time"

	"camgate-go/internal/camera"
	"camgate-go/internal/discovery"
	"camgate-go/internal/monitor"
	"github.com/gin-gonic/gin"
)

// Options tunes the management handlers.
type Options struct {
	// MonitorInterval is used by /monitor/start when the body names none.
	MonitorInterval time.Duration
	// SnapshotTimeout bounds one on-demand capture.
	SnapshotTimeout time.Duration
}

// Handler serves the camera, discovery and monitor management API.
type Handler struct {
	cameras   *camera.Manager
	monitor   *monitor.Monitor
	discovery *discovery.Hub
	onFrame   monitor.FrameHandler
	opts      Options
}

// NewHandler wires the API to its services. onFrame receives monitor frames
// and may be nil.
func NewHandler(cameras *camera.Manager, mon *monitor.Monitor, disc *discovery.Hub, onFrame monitor.FrameHandler, opts Options) *Handler {
	if opts.MonitorInterval <= 0 {
		opts.MonitorInterval = 30 * time.Second
	}
	if opts.SnapshotTimeout <= 0 {
		opts.SnapshotTimeout = 30 * time.Second
	}
	return &Handler{cameras: cameras, monitor: mon, discovery: disc, onFrame: onFrame, opts: opts}
}

// RegisterRoutes mounts the API under group, normally /api.
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/cameras", h.ListCameras)
	group.POST("/cameras", h.CreateCamera)
	group.GET("/cameras/:id", h.GetCamera)
	group.PUT("/cameras/:id", h.UpdateCamera)
	group.DELETE("/cameras/:id", h.DeleteCamera)
	group.GET("/cameras/:id/snapshot", h.Snapshot)
	group.GET("/cameras/:id/stream", h.StreamURL)

	group.GET("/discovery", h.DiscoveryResults)
	group.POST("/discovery/start", h.StartDiscovery)
	group.POST("/discovery/stop", h.StopDiscovery)
	group.POST("/discovery/accept", h.AcceptDiscovery)

	group.GET("/monitor", h.MonitorStatus)
	group.POST("/monitor/start", h.StartMonitor)
	group.POST("/monitor/stop", h.StopMonitor)
}
