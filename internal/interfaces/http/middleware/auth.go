package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/madrasa/backend/internal/domain/identity"
	"github.com/madrasa/backend/internal/infrastructure/auth"
	"github.com/madrasa/backend/internal/infrastructure/logger"
	"github.com/madrasa/backend/internal/interfaces/http/dto"
)

const (
	claimsKey    = "auth_claims"
	bearerPrefix = "Bearer "
)

// Authenticator validates an access token and rejects revoked ones
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error)
}

// JWTAuth requires a valid bearer token and stores its claims on the
// request. Tenant and user are added to the request logger.
func JWTAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			Abort(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
		if token == "" {
			Abort(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}

		claims, err := a.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(claimsKey, claims)
		ctx := logger.WithScope(c.Request.Context(), logger.Scope{
			TenantID: claims.TenantID,
			UserID:   claims.UserID,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Claims returns the authenticated claims, or nil on public routes
func Claims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

// Actor returns the authenticated actor
func Actor(c *gin.Context) (identity.Actor, bool) {
	claims := Claims(c)
	if claims == nil {
		return identity.Actor{}, false
	}
	return claims.Actor(), true
}

// RequireCapability lets the request through when the caller's role grants
// any of caps. The role is checked rather than the token's capability list
// so that permission changes apply to tokens already issued.
func RequireCapability(caps ...identity.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := Actor(c)
		if !ok {
			Abort(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}
		for _, want := range caps {
			if actor.Can(want) {
				c.Next()
				return
			}
		}
		logger.FromContext(c.Request.Context()).Debug("Capability denied")
		Abort(c, http.StatusForbidden, dto.ErrCodeForbidden, "You do not have permission to perform this action")
	}
}
