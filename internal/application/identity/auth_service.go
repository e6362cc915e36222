// Package identity implements login, token refresh, logout and password
// recovery.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/application/txn"
	"github.com/madrasa/backend/internal/domain/identity"
	"github.com/madrasa/backend/internal/domain/notification"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/madrasa/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

var (
	errTokenExpired = shared.NewDomainError("TOKEN_EXPIRED", "Token has expired")
	errTokenInvalid = shared.NewDomainError("TOKEN_INVALID", "Invalid token")
	errTokenRevoked = shared.NewDomainError("TOKEN_REVOKED", "Token has been revoked")
	errAccountOff   = shared.NewDomainError("ACCOUNT_INACTIVE", "Account is not active")
)

// AuthService handles authentication operations
type AuthService struct {
	repos     txn.Repositories
	jwt       *auth.JWTService
	blacklist auth.TokenBlacklist
	logger    *zap.Logger
	now       func() time.Time
	resetURL  string
}

// NewAuthService creates a new authentication service
func NewAuthService(
	repos txn.Repositories,
	jwt *auth.JWTService,
	blacklist auth.TokenBlacklist,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		repos:     repos,
		jwt:       jwt,
		blacklist: blacklist,
		logger:    logger,
		now:       time.Now,
	}
}

// Login authenticates a user by email and password and returns tokens.
// Unknown emails and wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := identity.NormalizeEmail(input.Email)

	user, err := s.repos.Users().FindByEmail(ctx, email)
	if err != nil {
		if shared.IsNotFound(err) {
			s.logger.Warn("Login for unknown email", zap.String("email", email), zap.String("ip", input.IP))
			return nil, identity.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.VerifyPassword(input.Password) {
		s.logger.Warn("Invalid password attempt", zap.String("user_id", user.ID.String()), zap.String("ip", input.IP))
		return nil, identity.ErrInvalidCredentials
	}
	if !user.CanLogin() {
		return nil, errAccountOff
	}
	if err := s.ensureOrganizationActive(ctx, user.TenantID); err != nil {
		return nil, err
	}

	pair, err := s.jwt.GenerateTokenPair(user)
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, err
	}

	user.RecordLogin(s.now())
	if err := s.repos.Users().Save(ctx, user); err != nil {
		// the tokens are already valid, a stale last_login_at is harmless
		s.logger.Error("Failed to record login", zap.String("user_id", user.ID.String()), zap.Error(err))
	}

	profile, err := s.optionalProfile(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("tenant_id", user.TenantID.String()),
		zap.String("role", user.Role.String()),
	)

	return &LoginResult{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
		User:                  toUserInfo(user, profile),
	}, nil
}

// Refresh exchanges a refresh token for a new pair. The old refresh token
// is revoked so each one can be used once. Role and branch changes made
// since the last login take effect here.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, tokenError(err)
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}

	user, err := s.repos.Users().FindByID(ctx, claims.UserUUID())
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, errTokenInvalid
		}
		return nil, err
	}
	if !user.CanLogin() {
		return nil, errAccountOff
	}
	if err := s.ensureOrganizationActive(ctx, user.TenantID); err != nil {
		return nil, err
	}

	if err := s.blacklist.Revoke(ctx, claims.ID, claims.RemainingTTL()); err != nil {
		return nil, err
	}

	pair, err := s.jwt.GenerateTokenPair(user)
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, err
	}
	s.logger.Debug("Tokens refreshed", zap.String("user_id", user.ID.String()))
	return pair, nil
}

// Logout revokes the current access token and, when given, the refresh token
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	if input.AccessJTI != "" {
		if err := s.blacklist.Revoke(ctx, input.AccessJTI, input.AccessTTL); err != nil {
			return err
		}
	}
	if input.RefreshToken == "" {
		return nil
	}
	claims, err := s.jwt.ValidateRefreshToken(input.RefreshToken)
	if err != nil {
		// an unusable refresh token needs no revocation
		return nil
	}
	return s.blacklist.Revoke(ctx, claims.ID, claims.RemainingTTL())
}

// Authenticate validates an access token and rejects revoked ones
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error) {
	claims, err := s.jwt.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, tokenError(err)
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Me returns the account of the authenticated actor
func (s *AuthService) Me(ctx context.Context, actor identity.Actor) (*UserInfo, error) {
	user, err := s.repos.Users().FindByIDForTenant(ctx, actor.TenantID, actor.UserID)
	if err != nil {
		return nil, err
	}
	profile, err := s.optionalProfile(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	info := toUserInfo(user, profile)
	return &info, nil
}

// ChangePassword replaces the actor's password after checking the current
// one, then revokes every token issued so far
func (s *AuthService) ChangePassword(ctx context.Context, actor identity.Actor, input ChangePasswordInput) error {
	user, err := s.repos.Users().FindByIDForTenant(ctx, actor.TenantID, actor.UserID)
	if err != nil {
		return err
	}
	if !user.VerifyPassword(input.CurrentPassword) {
		return identity.ErrInvalidCredentials
	}
	if err := user.SetPassword(input.NewPassword); err != nil {
		return err
	}
	if err := s.repos.Users().Save(ctx, user); err != nil {
		return err
	}
	if err := s.blacklist.RevokeUser(ctx, user.ID.String(), s.jwt.RefreshTokenExpiration()); err != nil {
		s.logger.Error("Failed to revoke tokens after password change", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	s.logger.Info("Password changed", zap.String("user_id", user.ID.String()))
	return nil
}

// WithResetURL sets the page password reset emails link to. Without it the
// email carries the bare token.
func (s *AuthService) WithResetURL(resetURL string) *AuthService {
	s.resetURL = resetURL
	return s
}

// ForgotPassword queues a reset email for the account behind email. Unknown
// and inactive accounts are ignored silently so the endpoint does not
// reveal which addresses exist.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = identity.NormalizeEmail(email)
	user, err := s.repos.Users().FindByEmail(ctx, email)
	if err != nil {
		if shared.IsNotFound(err) {
			s.logger.Info("Password reset for unknown email", zap.String("email", email))
			return nil
		}
		return err
	}
	if !user.CanLogin() {
		s.logger.Info("Password reset for inactive account", zap.String("user_id", user.ID.String()))
		return nil
	}
	org, err := s.repos.Organizations().FindByID(ctx, user.TenantID)
	if err != nil {
		return err
	}
	if !org.IsActive {
		return nil
	}

	token, expiresAt, err := s.jwt.GenerateResetToken(user)
	if err != nil {
		return err
	}
	data := map[string]string{
		"organization": org.Name,
		"expires_at":   expiresAt.UTC().Format("2006-01-02 15:04 MST"),
	}
	if link := s.resetLink(token); link != "" {
		data["reset_link"] = link
	} else {
		data["token"] = token
	}
	profile, err := s.optionalProfile(ctx, user.ID)
	if err != nil {
		return err
	}
	if profile != nil {
		data["name"] = profile.FullName
	}

	notice, err := notification.NewEmailNotification(user.TenantID, user.Email, "Reset your password", notification.TemplatePasswordReset, data)
	if err != nil {
		return err
	}
	if err := s.repos.Emails().Create(ctx, notice); err != nil {
		return fmt.Errorf("failed to queue password reset email: %w", err)
	}
	s.logger.Info("Password reset email queued", zap.String("user_id", user.ID.String()))
	return nil
}

// ResetPassword sets a new password from a reset token. The token works
// once and every token issued before the reset is revoked.
func (s *AuthService) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	claims, err := s.jwt.ValidateResetToken(input.Token)
	if err != nil {
		return tokenError(err)
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return err
	}
	user, err := s.repos.Users().FindByIDForTenant(ctx, claims.TenantUUID(), claims.UserUUID())
	if err != nil {
		if shared.IsNotFound(err) {
			return errTokenInvalid
		}
		return err
	}
	if !user.CanLogin() {
		return errAccountOff
	}
	if err := user.SetPassword(input.NewPassword); err != nil {
		return err
	}
	if err := s.repos.Users().Save(ctx, user); err != nil {
		return err
	}
	if err := s.blacklist.Revoke(ctx, claims.ID, claims.RemainingTTL()); err != nil {
		return err
	}
	if err := s.blacklist.RevokeUser(ctx, user.ID.String(), s.jwt.RefreshTokenExpiration()); err != nil {
		s.logger.Error("Failed to revoke tokens after password reset", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	s.logger.Info("Password reset", zap.String("user_id", user.ID.String()))
	return nil
}

func (s *AuthService) resetLink(token string) string {
	if s.resetURL == "" {
		return ""
	}
	u, err := url.Parse(s.resetURL)
	if err != nil {
		s.logger.Warn("Invalid password reset URL", zap.String("url", s.resetURL), zap.Error(err))
		return ""
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

func (s *AuthService) checkRevoked(ctx context.Context, claims *auth.Claims) error {
	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return err
	}
	if revoked {
		return errTokenRevoked
	}
	if claims.IssuedAt != nil {
		revoked, err = s.blacklist.IsUserRevoked(ctx, claims.UserID, claims.IssuedAt.Time)
		if err != nil {
			return err
		}
		if revoked {
			return errTokenRevoked
		}
	}
	return nil
}

func (s *AuthService) ensureOrganizationActive(ctx context.Context, tenantID uuid.UUID) error {
	org, err := s.repos.Organizations().FindByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if !org.IsActive {
		return shared.NewDomainError("ORGANIZATION_INACTIVE", "Organization is not active")
	}
	return nil
}

func (s *AuthService) optionalProfile(ctx context.Context, userID uuid.UUID) (*identity.UserProfile, error) {
	profile, err := s.repos.Profiles().FindByUserID(ctx, userID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return profile, nil
}

func tokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return errTokenExpired
	case errors.Is(err, auth.ErrTokenRevoked):
		return errTokenRevoked
	default:
		return errTokenInvalid.Wrap(err)
	}
}
