package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var promHandler = promhttp.Handler()

// MetricsHandler exposes the default Prometheus registry.
func MetricsHandler(c *gin.Context) {
	promHandler.ServeHTTP(c.Writer, c.Request)
}
