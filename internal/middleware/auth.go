package middleware

import (
	"net/http"
	"strings"

	"camgate-go/internal/config"
	"camgate-go/internal/monitoring"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// ManagementKeyHeader carries the management key on API calls.
const ManagementKeyHeader = "X-Management-Key"

// SecuritySource returns the current security settings. It is read per
// request so a hot-reloaded key takes effect immediately.
type SecuritySource func() config.SecurityConfig

// ManagementAuth rejects requests without a valid management key once a key
// or key hash is configured. With neither set the API is open.
func ManagementAuth(security SecuritySource) gin.HandlerFunc {
	return func(c *gin.Context) {
		sec := security()
		if !sec.ManagementEnabled() {
			monitoring.ManagementAccessTotal.WithLabelValues("open").Inc()
			c.Next()
			return
		}

		provided := extractManagementKey(c)
		if provided == "" {
			monitoring.ManagementAccessTotal.WithLabelValues("missing").Inc()
			respondUnauthorized(c, "management key not provided")
			return
		}
		if !config.CheckManagementKey(sec, provided) {
			monitoring.ManagementAccessTotal.WithLabelValues("denied").Inc()
			log.WithFields(log.Fields{
				"path":      c.Request.URL.Path,
				"method":    c.Request.Method,
				"client_ip": c.ClientIP(),
			}).Warn("management key rejected")
			respondUnauthorized(c, "invalid management key")
			return
		}

		monitoring.ManagementAccessTotal.WithLabelValues("allowed").Inc()
		c.Next()
	}
}

// Browsers cannot set headers on a websocket handshake, so the key may also
// arrive as a bearer token or the "key" query parameter.
func extractManagementKey(c *gin.Context) string {
	if v := strings.TrimSpace(c.GetHeader(ManagementKeyHeader)); v != "" {
		return v
	}
	if auth := strings.TrimSpace(c.GetHeader("Authorization")); len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return strings.TrimSpace(c.Query("key"))
}

func respondUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"message": message, "kind": "management_unauthorized"},
	})
}
