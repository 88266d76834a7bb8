package middleware

import (
	"strconv"
	"time"

	"github.com/ak/oms/internal/pkg/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics records request count and latency per route template, so
// /orders/:id is one series however many orders exist.
func Metrics(m *metrics.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
