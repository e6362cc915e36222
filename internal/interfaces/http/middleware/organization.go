package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/application/academic"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/madrasa/backend/internal/infrastructure/logger"
	"github.com/madrasa/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// OrganizationHeader names the organization a request targets
const OrganizationHeader = "X-Organization-Code"

const scopeKey = "org_scope"

// ScopeResolver resolves an organization code for a user
type ScopeResolver interface {
	ResolveScope(ctx context.Context, orgCode string, userID uuid.UUID) (*academic.Scope, error)
}

// OrganizationScope resolves an optional X-Organization-Code header for the
// caller. A foreign or unknown organization answers 404 so that codes of
// other tenants cannot be discovered.
func OrganizationScope(scopes ScopeResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := OrganizationCode(c)
		if code == "" {
			c.Next()
			return
		}
		claims := Claims(c)
		if claims == nil {
			c.Next()
			return
		}
		scope, err := scopes.ResolveScope(c.Request.Context(), code, claims.UserUUID())
		if err != nil && !shared.IsNotFound(err) {
			AbortWithError(c, err)
			return
		}
		if err != nil || scope.TenantID() != claims.TenantUUID() {
			logger.FromContext(c.Request.Context()).Warn("Organization header does not match caller",
				zap.String("org_code", code))
			Abort(c, http.StatusNotFound, dto.ErrCodeNotFound, "Organization not found")
			return
		}
		c.Set(scopeKey, scope)
		c.Next()
	}
}

// Scope returns the organization scope resolved for the request, if any
func Scope(c *gin.Context) *academic.Scope {
	if v, ok := c.Get(scopeKey); ok {
		if s, ok := v.(*academic.Scope); ok {
			return s
		}
	}
	return nil
}

// OrganizationCode returns the normalized organization code header
func OrganizationCode(c *gin.Context) string {
	return strings.ToUpper(strings.TrimSpace(c.GetHeader(OrganizationHeader)))
}
