// Package middleware holds the gin middleware of the API: authentication,
// capability checks, organization scoping, validation and observability.
package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/madrasa/backend/internal/infrastructure/logger"
	"github.com/madrasa/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// RequestIDKey is the gin context key of the request ID
const RequestIDKey = "request_id"

// RequestID returns the ID assigned to the request, if any
func RequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return logger.GetRequestID(c.Request.Context())
}

// Abort ends the request with an error envelope
func Abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.Fail(code, message, RequestID(c)))
}

// AbortWithError maps err to a response. Domain errors keep their code and
// field details; anything else is logged and reported as a 500.
func AbortWithError(c *gin.Context, err error) {
	var de *shared.DomainError
	if errors.As(err, &de) {
		c.AbortWithStatusJSON(dto.StatusOf(de.Code), dto.Fail(de.Code, de.Message, RequestID(c), dto.DetailsOf(de.Fields)...))
		return
	}
	_ = c.Error(err)
	logger.FromContext(c.Request.Context()).Error("Unhandled error", zap.Error(err))
	Abort(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
}
