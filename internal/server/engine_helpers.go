package server

import (
	"camgate-go/internal/config"
	mw "camgate-go/internal/middleware"
	"github.com/gin-gonic/gin"
)

// applyStandardEngineSettings installs the middleware chain shared by every
// route: recovery, request ids, metrics, CORS, access log and rate limit.
func applyStandardEngineSettings(engine *gin.Engine, cfg *config.FileConfig) {
	if !cfg.Security.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	_ = engine.SetTrustedProxies(nil)

	engine.Use(mw.Recovery(), mw.RequestID(), mw.Metrics())
	engine.Use(mw.CORS(cfg.Server.CORSOrigins))
	engine.Use(mw.RequestLogger())
	if cfg.RateLimit.Enabled {
		engine.Use(mw.RateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}
}
