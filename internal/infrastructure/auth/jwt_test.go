package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/identity"
	"github.com/madrasa/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-key-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "madrasa-test",
	})
}

func newTestUser(t *testing.T, role identity.Role) *identity.User {
	t.Helper()
	u, err := identity.NewUser(uuid.New(), "head@kic.org", "secret123", role)
	require.NoError(t, err)
	branch := uuid.New()
	u.AssignBranch(&branch)
	return u
}

func TestNewJWTService_UsesSecretForRefreshIfNotProvided(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{Secret: "test-secret"})
	assert.Equal(t, svc.accessSecret, svc.refreshSecret)
}

func TestGenerateTokenPair(t *testing.T) {
	svc := newTestJWTService()
	user := newTestUser(t, identity.RoleHeadTeacher)

	pair, err := svc.GenerateTokenPair(user)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), pair.AccessTokenExpiresAt, 5*time.Second)

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.TenantID, claims.TenantUUID())
	assert.Equal(t, user.ID, claims.UserUUID())
	assert.Equal(t, "HEAD_TEACHER", claims.Role)
	assert.Equal(t, user.Capabilities().Codes(), claims.Capabilities)
	assert.True(t, claims.HasCapability(identity.CapRegistrationsApprove))
	assert.False(t, claims.HasCapability(identity.CapFeesRunBatch))

	actor := claims.Actor()
	assert.Equal(t, identity.RoleHeadTeacher, actor.Role)
	require.NotNil(t, actor.BranchID)
	assert.Equal(t, *user.BranchID, *actor.BranchID)

	refresh, err := svc.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Empty(t, refresh.Capabilities)
	assert.NotEqual(t, claims.ID, refresh.ID)
}

func TestGenerateResetToken(t *testing.T) {
	svc := newTestJWTService()
	user := newTestUser(t, identity.RoleTeacher)

	token, expires, err := svc.GenerateResetToken(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := svc.ValidateResetToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserUUID())
	assert.Empty(t, claims.Capabilities)

	_, err = svc.ValidateRefreshToken(token)
	assert.ErrorIs(t, err, ErrInvalidTokenType)
	_, err = svc.ValidateAccessToken(token)
	assert.Error(t, err)

	pair, err := svc.GenerateTokenPair(user)
	require.NoError(t, err)
	_, err = svc.ValidateResetToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidTokenType)
}

func TestValidateToken_Rejections(t *testing.T) {
	svc := newTestJWTService()
	user := newTestUser(t, identity.RoleAdmin)
	pair, err := svc.GenerateTokenPair(user)
	require.NoError(t, err)

	t.Run("wrong token type", func(t *testing.T) {
		_, err := svc.ValidateAccessToken(pair.RefreshToken)
		assert.Error(t, err)
		_, err = svc.ValidateRefreshToken(pair.AccessToken)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateAccessToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		past := newTestJWTService()
		past.now = func() time.Time { return time.Now().Add(-time.Hour) }
		old, err := past.GenerateTokenPair(user)
		require.NoError(t, err)
		_, err = svc.ValidateAccessToken(old.AccessToken)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("other issuer", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{
			Secret:                "test-secret-key-at-least-32-chars",
			AccessTokenExpiration: time.Minute,
			Issuer:                "someone-else",
		})
		foreign, err := other.GenerateTokenPair(user)
		require.NoError(t, err)
		_, err = svc.ValidateAccessToken(foreign.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		claims := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{Issuer: "madrasa-test"},
			TenantID:         uuid.NewString(),
			UserID:           uuid.NewString(),
			TokenType:        TokenTypeAccess,
		}
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.ValidateAccessToken(unsigned)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestClaims_RemainingTTL(t *testing.T) {
	c := &Claims{}
	assert.Zero(t, c.RemainingTTL())

	c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	assert.Zero(t, c.RemainingTTL())

	c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(10 * time.Minute))
	assert.InDelta(t, float64(10*time.Minute), float64(c.RemainingTTL()), float64(5*time.Second))
}
