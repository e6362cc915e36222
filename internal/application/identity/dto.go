package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/identity"
)

// LoginInput contains the input for user login
type LoginInput struct {
	Email    string
	Password string
	IP       string
}

// LoginResult contains the tokens and the user that logged in
type LoginResult struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	TokenType             string
	User                  UserInfo
}

// UserInfo is the public view of a user account
type UserInfo struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Email        string
	Role         identity.Role
	BranchID     *uuid.UUID
	FullName     string
	Capabilities []string
	LastLoginAt  *time.Time
}

// LogoutInput identifies the tokens to revoke. RefreshToken is optional.
type LogoutInput struct {
	AccessJTI    string
	AccessTTL    time.Duration
	RefreshToken string
}

// ChangePasswordInput contains the input for a password change
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
}

// ResetPasswordInput carries a reset token and the password it sets
type ResetPasswordInput struct {
	Token       string
	NewPassword string
}

func toUserInfo(user *identity.User, profile *identity.UserProfile) UserInfo {
	info := UserInfo{
		ID:           user.ID,
		TenantID:     user.TenantID,
		Email:        user.Email,
		Role:         user.Role,
		BranchID:     user.BranchID,
		Capabilities: user.Capabilities().Codes(),
		LastLoginAt:  user.LastLoginAt,
	}
	if profile != nil {
		info.FullName = profile.FullName
	}
	return info
}
