// Package handler holds the gin handlers of the /api/v1 surface. Handlers
// bind and validate requests, call one application service and map the
// result to a response view; they carry no business rules.
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/identity"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/madrasa/backend/internal/interfaces/http/dto"
	"github.com/madrasa/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides the response helpers shared by every handler
type BaseHandler struct{}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.OK(data))
}

// Created sends a 201 response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.OK(data))
}

// Error sends the response matching err
func (h *BaseHandler) Error(c *gin.Context, err error) {
	middleware.AbortWithError(c, err)
}

// BindJSON binds and validates the body, answering 400 on failure
func (h *BaseHandler) BindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.BindError(c, err)
		return false
	}
	return true
}

// BindQuery binds and validates the query string, answering 400 on failure
func (h *BaseHandler) BindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		middleware.BindError(c, err)
		return false
	}
	return true
}

// Actor returns the authenticated caller. Routes using it sit behind
// JWTAuth, so a missing actor is answered with 401.
func (h *BaseHandler) Actor(c *gin.Context) (identity.Actor, bool) {
	actor, ok := middleware.Actor(c)
	if !ok {
		middleware.Abort(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
	}
	return actor, ok
}

// Param parses a UUID path parameter, answering 400 when malformed
func (h *BaseHandler) Param(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.Error(c, shared.NewValidationError(name, "Must be a valid UUID"))
		return uuid.Nil, false
	}
	return id, true
}

// optionalID parses s when non-empty. Inputs are validated by binding
// tags first, so a parse failure here is unexpected.
func optionalID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

func mustID(s string) uuid.UUID {
	id, _ := uuid.Parse(s)
	return id
}

// day parses a calendar date already validated with datetime=2006-01-02
func day(s string) time.Time {
	t, _ := time.Parse(dateLayout, s)
	return t
}

// dayOr parses s, falling back to def when s is empty
func dayOr(s string, def time.Time) time.Time {
	if s == "" {
		return def
	}
	return day(s)
}

// Clock reads the current time in the organization time zone. Dates
// defaulted to "today" are taken from it.
type Clock func() time.Time

// ClockIn returns a Clock reading the wall clock in loc
func ClockIn(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return func() time.Time { return time.Now().In(loc) }
}

func (c Clock) today() time.Time {
	return shared.DateOf(c())
}
