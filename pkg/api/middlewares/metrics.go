package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tokamak-network/trh-pipeline/pkg/metrics"
)

// Metrics records the count and latency of every request by route template.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestObserved(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
