package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository persists users
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Save(ctx context.Context, user *User) error
}

// UserProfileRepository persists user profiles
type UserProfileRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*UserProfile, error)
	FindByUserIDs(ctx context.Context, userIDs []uuid.UUID) ([]UserProfile, error)
	Save(ctx context.Context, profile *UserProfile) error
}
