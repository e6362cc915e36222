package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracing starts a server span per request. Spans are named after the
// route pattern, e.g. "GET /api/v1/students/:id".
func Tracing(service string) gin.HandlerFunc {
	return otelgin.Middleware(service)
}

// SpanAttributes tags the request span with the request ID and, on
// authenticated routes, the tenant and user. Mount it after JWTAuth.
func SpanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if id := RequestID(c); id != "" {
				span.SetAttributes(attribute.String("request_id", id))
			}
			if claims := Claims(c); claims != nil {
				span.SetAttributes(
					attribute.String("tenant_id", claims.TenantID),
					attribute.String("user_id", claims.UserID),
				)
			}
		}
		c.Next()
	}
}

// SpanErrorMarker marks the span as failed for 4xx and 5xx responses
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		status := c.Writer.Status()
		if !span.IsRecording() || status < http.StatusBadRequest {
			return
		}
		span.SetStatus(codes.Error, http.StatusText(status))
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
}
