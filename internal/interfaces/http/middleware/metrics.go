package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
)

// RequestRecorder tracks in-flight requests and records their outcome
type RequestRecorder interface {
	Begin(ctx context.Context, method string) func(route string, status int)
}

// Metrics records request count, latency and in-flight requests. Unmatched
// routes are reported as "unmatched" to keep label cardinality bounded.
func Metrics(rec RequestRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		done := rec.Begin(c.Request.Context(), c.Request.Method)
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		done(route, c.Writer.Status())
	}
}
