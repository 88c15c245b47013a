package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orbitsec/spacerisk/internal/infrastructure/monitoring/prometheus"
)

// ErrorCodeKey is the gin context key under which handlers expose the
// application error code of a failed request.
const ErrorCodeKey = "error_code"

// Metrics records request counts, durations, and in-flight gauges.  The
// route template (c.FullPath) labels the metric so path parameters do not
// explode cardinality; unmatched routes are labeled "unmatched".
func Metrics(m *prometheus.AppMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		m.HTTPActiveRequests.WithLabelValues(method).Inc()
		start := time.Now()

		c.Next()

		m.HTTPActiveRequests.WithLabelValues(method).Dec()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		prometheus.RecordHTTPRequest(m, method, path, c.Writer.Status(), time.Since(start))
		if code, ok := c.Get(ErrorCodeKey); ok {
			if s, isString := code.(string); isString {
				prometheus.RecordError(m, "http", s)
			}
		}
	}
}
