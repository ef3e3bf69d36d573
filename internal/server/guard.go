package server

import (
	"net"
	"net/http"
	"strings"

	"camgate-go/internal/config"
	"camgate-go/internal/monitoring"
	"camgate-go/internal/netutil"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// managementRemoteGuard lets loopback clients through and gates everyone
// else on security.allow_remote and the optional IP/CIDR allow list.
// Settings are read per request so hot reloads apply.
func managementRemoteGuard(security func() config.SecurityConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := net.ParseIP(strings.TrimSpace(c.ClientIP()))
		src := netutil.ClassifyClientSource(ip)
		if src == "loopback" {
			c.Next()
			return
		}
		sec := security()
		if !sec.AllowRemote {
			denyRemote(c, src, "remote management disabled")
			return
		}
		if len(sec.RemoteAllowIPs) > 0 && !netutil.ContainsIP(netutil.ParseIPNets(sec.RemoteAllowIPs), ip) {
			denyRemote(c, src, "ip not allowed for management")
			return
		}
		c.Next()
	}
}

func denyRemote(c *gin.Context, src, msg string) {
	monitoring.ManagementAccessTotal.WithLabelValues("remote_denied").Inc()
	log.WithFields(log.Fields{"client_ip": c.ClientIP(), "source": src, "path": c.Request.URL.Path}).Warn(msg)
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": gin.H{"message": msg, "kind": "forbidden"}})
}
