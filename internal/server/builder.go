package server

import (
	"context"
	"net/http"
	"time"

	"camgate-go/internal/camera"
	"camgate-go/internal/config"
	"camgate-go/internal/constants"
	"camgate-go/internal/discovery"
	"camgate-go/internal/handlers/management"
	mw "camgate-go/internal/middleware"
	"camgate-go/internal/monitor"
	"camgate-go/internal/runtime"
	"camgate-go/internal/storage"
	"camgate-go/internal/streaming"
	"github.com/gin-gonic/gin"
)

// Dependencies encapsulates runtime services required to build the engine.
type Dependencies struct {
	// Config returns the live configuration; security settings are read
	// through it on every request.
	Config    func() *config.FileConfig
	Storage   storage.Backend
	Cameras   *camera.Manager
	Monitor   *monitor.Monitor
	Discovery *discovery.Hub
	Frames    *streaming.FrameHub
	// Tasks is optional; when set /healthz lists background tasks.
	Tasks *runtime.TaskManager
}

// BuildEngine assembles the management API, the frame websocket, health
// and metrics endpoints.
func BuildEngine(deps Dependencies) *gin.Engine {
	cfg := deps.Config()
	engine := gin.New()
	applyStandardEngineSettings(engine, cfg)

	if cfg.Security.Debug {
		registerPprof(engine)
	}

	security := func() config.SecurityConfig { return deps.Config().Security }
	guarded := []gin.HandlerFunc{managementRemoteGuard(security), mw.ManagementAuth(security)}

	api := engine.Group("/api", guarded...)
	handler := management.NewHandler(deps.Cameras, deps.Monitor, deps.Discovery, deps.Frames.Publish, management.Options{
		MonitorInterval: cfg.MonitorInterval(),
		SnapshotTimeout: 2 * cfg.HTTPTimeout(),
	})
	handler.RegisterRoutes(api)

	engine.GET("/ws/frames", append(guarded, func(c *gin.Context) {
		deps.Frames.ServeWS(c.Writer, c.Request)
	})...)

	engine.GET("/healthz", healthHandler(deps))
	engine.GET("/metrics", mw.MetricsHandler)
	return engine
}

func healthHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{
			"status":      "ok",
			"version":     constants.Version,
			"cameras":     len(deps.Cameras.Cameras()),
			"monitoring":  deps.Monitor.IsMonitoring(),
			"discovering": deps.Discovery.IsScanning(),
			"subscribers": deps.Frames.ConnectionCount(),
		}
		if deps.Tasks != nil {
			body["tasks"] = gin.H{
				"stats": deps.Tasks.GetStats(),
				"items": deps.Tasks.ListTasks(),
			}
		}
		if deps.Storage != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Storage.Health(ctx); err != nil {
				body["status"] = "degraded"
				body["storage_error"] = err.Error()
				c.JSON(http.StatusServiceUnavailable, body)
				return
			}
		}
		c.JSON(http.StatusOK, body)
	}
}
