package middleware

import (
	"time"

	"camgate-go/internal/logging"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// RequestLogger logs one line per request. Failed requests carry the error
// kind set by the handler under "error_kind".
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := log.Fields{
			"status":     status,
			"latency_ms": logging.DurationMS(time.Since(start)),
			"user_agent": c.Request.UserAgent(),
		}
		if id := c.Param("id"); id != "" {
			fields["camera_id"] = id
		}
		if kind, ok := c.Get("error_kind"); ok {
			fields["error_kind"] = kind
		}
		entry := logging.WithReq(c, fields)
		switch {
		case status >= 500:
			entry.Warn("http_request")
		case c.Request.URL.Path == "/healthz" || c.Request.URL.Path == "/metrics":
			entry.Debug("http_request")
		default:
			entry.Info("http_request")
		}
	}
}
