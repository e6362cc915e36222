package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appidentity "github.com/madrasa/backend/internal/application/identity"
	"github.com/madrasa/backend/internal/domain/identity"
	"github.com/madrasa/backend/internal/infrastructure/auth"
	"github.com/madrasa/backend/internal/interfaces/http/middleware"
)

// AuthService is the part of the identity service the auth routes use
type AuthService interface {
	Login(ctx context.Context, input appidentity.LoginInput) (*appidentity.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	Logout(ctx context.Context, input appidentity.LogoutInput) error
	Me(ctx context.Context, actor identity.Actor) (*appidentity.UserInfo, error)
	ChangePassword(ctx context.Context, actor identity.Actor, input appidentity.ChangePasswordInput) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, input appidentity.ResetPasswordInput) error
}

// AuthHandler serves login, token refresh, logout and the current user
type AuthHandler struct {
	BaseHandler
	auth AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{auth: svc}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=128"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=128"`
}

type UserView struct {
	ID           uuid.UUID     `json:"id"`
	TenantID     uuid.UUID     `json:"tenant_id"`
	Email        string        `json:"email"`
	Role         identity.Role `json:"role"`
	BranchID     *uuid.UUID    `json:"branch_id,omitempty"`
	FullName     string        `json:"full_name,omitempty"`
	Capabilities []string      `json:"capabilities"`
	LastLoginAt  *time.Time    `json:"last_login_at,omitempty"`
}

func userView(u *appidentity.UserInfo) UserView {
	return UserView{
		ID: u.ID, TenantID: u.TenantID, Email: u.Email, Role: u.Role, BranchID: u.BranchID,
		FullName: u.FullName, Capabilities: u.Capabilities, LastLoginAt: u.LastLoginAt,
	}
}

type LoginResponse struct {
	Token auth.TokenPair `json:"token"`
	User  UserView       `json:"user"`
}

// Login exchanges credentials for a token pair
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.auth.Login(c.Request.Context(), appidentity.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		IP:       c.ClientIP(),
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, LoginResponse{
		Token: auth.TokenPair{
			AccessToken:           result.AccessToken,
			RefreshToken:          result.RefreshToken,
			AccessTokenExpiresAt:  result.AccessTokenExpiresAt,
			RefreshTokenExpiresAt: result.RefreshTokenExpiresAt,
			TokenType:             result.TokenType,
		},
		User: userView(&result.User),
	})
}

// Refresh rotates a refresh token into a new pair
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if !h.BindJSON(c, &req) {
		return
	}
	pair, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, pair)
}

// Logout revokes the access token and, when given, the refresh token
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	if c.Request.ContentLength > 0 && !h.BindJSON(c, &req) {
		return
	}
	claims := middleware.Claims(c)
	if claims == nil {
		h.Actor(c)
		return
	}
	err := h.auth.Logout(c.Request.Context(), appidentity.LogoutInput{
		AccessJTI:    claims.ID,
		AccessTTL:    claims.RemainingTTL(),
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, gin.H{"message": "Logged out"})
}

// Me returns the calling user
func (h *AuthHandler) Me(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	info, err := h.auth.Me(c.Request.Context(), actor)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, userView(info))
}

// ChangePassword replaces the caller's password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req ChangePasswordRequest
	if !h.BindJSON(c, &req) {
		return
	}
	err := h.auth.ChangePassword(c.Request.Context(), actor, appidentity.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, gin.H{"message": "Password changed"})
}

// ForgotPassword queues a reset email. The answer is the same whether or
// not the address belongs to an account.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if err := h.auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, gin.H{"message": "If the address belongs to an account, a reset link has been sent"})
}

// ResetPassword sets a new password from a reset token
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !h.BindJSON(c, &req) {
		return
	}
	err := h.auth.ResetPassword(c.Request.Context(), appidentity.ResetPasswordInput{
		Token:       req.Token,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, gin.H{"message": "Password reset"})
}
