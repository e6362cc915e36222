package identity

import (
	"crypto/rand"
	"encoding/base64"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ErrInvalidCredentials is returned for a wrong email or password
var ErrInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")

// User is a login account. Email is unique across all organizations.
type User struct {
	shared.TenantAggregateRoot
	Email        string     `gorm:"type:varchar(200);not null;uniqueIndex"`
	PasswordHash string     `gorm:"type:varchar(100);not null"`
	Role         Role       `gorm:"type:varchar(30);not null;index"`
	BranchID     *uuid.UUID `gorm:"type:uuid;index"`
	IsActive     bool       `gorm:"not null;default:true"`
	LastLoginAt  *time.Time
}

// TableName returns the table name for GORM
func (User) TableName() string {
	return "users"
}

// NewUser creates an active user with a hashed password
func NewUser(tenantID uuid.UUID, email, password string, role Role) (*User, error) {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, shared.NewValidationError("role", "Unknown role")
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password").Wrap(err)
	}

	return &User{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Email:               email,
		PasswordHash:        string(hash),
		Role:                role,
		IsActive:            true,
	}, nil
}

// NewUserWithRandomPassword creates a user whose password must be reset
// before first login. Used when accounts are created on someone's behalf.
func NewUserWithRandomPassword(tenantID uuid.UUID, email string, role Role) (*User, error) {
	return NewUser(tenantID, email, RandomPassword(), role)
}

// AssignBranch sets the user's home branch
func (u *User) AssignBranch(branchID *uuid.UUID) {
	u.BranchID = branchID
	u.IncrementVersion()
}

// VerifyPassword reports whether password matches the stored hash
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// SetPassword replaces the password
func (u *User) SetPassword(password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password").Wrap(err)
	}
	u.PasswordHash = string(hash)
	u.IncrementVersion()
	return nil
}

// CanLogin reports whether the account may authenticate
func (u *User) CanLogin() bool {
	return u.IsActive
}

// RecordLogin stamps the last successful login
func (u *User) RecordLogin(at time.Time) {
	u.LastLoginAt = &at
	u.Touch()
}

// Deactivate blocks further logins
func (u *User) Deactivate() {
	u.IsActive = false
	u.IncrementVersion()
}

// Activate lets the user log in again
func (u *User) Activate() {
	u.IsActive = true
	u.IncrementVersion()
}

// Capabilities returns the capability set granted by the user's role
func (u *User) Capabilities() CapabilitySet {
	return RoleCapabilities(u.Role)
}

// NormalizeEmail lower-cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks basic email syntax
func ValidateEmail(email string) error {
	if email == "" {
		return shared.NewValidationError("email", "Email is required")
	}
	if len(email) > 200 {
		return shared.NewValidationError("email", "Email cannot exceed 200 characters")
	}
	if !emailPattern.MatchString(email) {
		return shared.NewValidationError("email", "Invalid email format")
	}
	return nil
}

// RandomPassword returns a random password satisfying the password rules
func RandomPassword() string {
	buf := make([]byte, 18)
	_, _ = rand.Read(buf)
	return base64.RawURLEncoding.EncodeToString(buf) + "a1"
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return shared.NewValidationError("password", "Password must be at least 8 characters")
	}
	if len(password) > 72 {
		return shared.NewValidationError("password", "Password cannot exceed 72 characters")
	}
	hasLetter := strings.IndexFunc(password, func(r rune) bool {
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
	}) >= 0
	hasDigit := strings.IndexFunc(password, func(r rune) bool { return r >= '0' && r <= '9' }) >= 0
	if !hasLetter || !hasDigit {
		return shared.NewValidationError("password", "Password must contain at least one letter and one number")
	}
	return nil
}
