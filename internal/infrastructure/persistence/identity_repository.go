package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/identity"
	"gorm.io/gorm"
)

// GormUserRepository implements UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// FindByID finds a user by ID across tenants, used by token refresh
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	var user identity.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// FindByIDForTenant finds a user by ID within a tenant
func (r *GormUserRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*identity.User, error) {
	var user identity.User
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// FindByEmail finds a user by login email
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	var user identity.User
	if err := r.db.WithContext(ctx).
		Where("email = ?", identity.NormalizeEmail(email)).
		First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// ExistsByEmail checks if an email is already registered
func (r *GormUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&identity.User{}).
		Where("email = ?", identity.NormalizeEmail(email)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a user
func (r *GormUserRepository) Save(ctx context.Context, user *identity.User) error {
	return translateError(r.db.WithContext(ctx).Save(user).Error)
}

// GormUserProfileRepository implements UserProfileRepository using GORM
type GormUserProfileRepository struct {
	db *gorm.DB
}

// NewGormUserProfileRepository creates a new GormUserProfileRepository
func NewGormUserProfileRepository(db *gorm.DB) *GormUserProfileRepository {
	return &GormUserProfileRepository{db: db}
}

// FindByUserID finds the profile of a user
func (r *GormUserProfileRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*identity.UserProfile, error) {
	var profile identity.UserProfile
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&profile).Error; err != nil {
		return nil, translateError(err)
	}
	return &profile, nil
}

// FindByUserIDs finds the profiles of several users
func (r *GormUserProfileRepository) FindByUserIDs(ctx context.Context, userIDs []uuid.UUID) ([]identity.UserProfile, error) {
	if len(userIDs) == 0 {
		return []identity.UserProfile{}, nil
	}
	var profiles []identity.UserProfile
	if err := r.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// Save creates or updates a profile
func (r *GormUserProfileRepository) Save(ctx context.Context, profile *identity.UserProfile) error {
	return translateError(r.db.WithContext(ctx).Save(profile).Error)
}

var (
	_ identity.UserRepository        = (*GormUserRepository)(nil)
	_ identity.UserProfileRepository = (*GormUserProfileRepository)(nil)
)
