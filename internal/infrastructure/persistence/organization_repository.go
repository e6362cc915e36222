package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/organization"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrganizationRepository implements OrganizationRepository using GORM
type GormOrganizationRepository struct {
	db *gorm.DB
}

// NewGormOrganizationRepository creates a new GormOrganizationRepository
func NewGormOrganizationRepository(db *gorm.DB) *GormOrganizationRepository {
	return &GormOrganizationRepository{db: db}
}

// FindByID finds an organization by its ID
func (r *GormOrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*organization.Organization, error) {
	var org organization.Organization
	if err := r.db.WithContext(ctx).First(&org, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &org, nil
}

// FindByCode finds an organization by its code
func (r *GormOrganizationRepository) FindByCode(ctx context.Context, code string) (*organization.Organization, error) {
	var org organization.Organization
	if err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&org).Error; err != nil {
		return nil, translateError(err)
	}
	return &org, nil
}

// FindAllActive lists the organizations the background jobs iterate over
func (r *GormOrganizationRepository) FindAllActive(ctx context.Context) ([]organization.Organization, error) {
	var orgs []organization.Organization
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("code ASC").
		Find(&orgs).Error; err != nil {
		return nil, err
	}
	return orgs, nil
}

// Save creates or updates an organization
func (r *GormOrganizationRepository) Save(ctx context.Context, org *organization.Organization) error {
	return translateError(r.db.WithContext(ctx).Save(org).Error)
}

// GormBranchRepository implements BranchRepository using GORM
type GormBranchRepository struct {
	db *gorm.DB
}

// NewGormBranchRepository creates a new GormBranchRepository
func NewGormBranchRepository(db *gorm.DB) *GormBranchRepository {
	return &GormBranchRepository{db: db}
}

// FindByIDForTenant finds a branch by ID within a tenant
func (r *GormBranchRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*organization.Branch, error) {
	var branch organization.Branch
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&branch).Error; err != nil {
		return nil, translateError(err)
	}
	return &branch, nil
}

// FindAllForTenant lists the branches of a tenant ordered by code
func (r *GormBranchRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]organization.Branch, error) {
	var branches []organization.Branch
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Order("code ASC").Find(&branches).Error; err != nil {
		return nil, err
	}
	return branches, nil
}

// ExistsByCode checks if a branch code is taken within a tenant
func (r *GormBranchRepository) ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&organization.Branch{}).
		Where("tenant_id = ? AND code = ?", tenantID, strings.ToUpper(strings.TrimSpace(code))).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a branch
func (r *GormBranchRepository) Save(ctx context.Context, branch *organization.Branch) error {
	return translateError(r.db.WithContext(ctx).Save(branch).Error)
}

// GormAcademicYearRepository implements AcademicYearRepository using GORM
type GormAcademicYearRepository struct {
	db *gorm.DB
}

// NewGormAcademicYearRepository creates a new GormAcademicYearRepository
func NewGormAcademicYearRepository(db *gorm.DB) *GormAcademicYearRepository {
	return &GormAcademicYearRepository{db: db}
}

// FindByIDForTenant finds an academic year by ID within a tenant
func (r *GormAcademicYearRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*organization.AcademicYear, error) {
	var year organization.AcademicYear
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&year).Error; err != nil {
		return nil, translateError(err)
	}
	return &year, nil
}

// FindActive returns the tenant's active year
func (r *GormAcademicYearRepository) FindActive(ctx context.Context, tenantID uuid.UUID) (*organization.AcademicYear, error) {
	var year organization.AcademicYear
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("start_date DESC").
		First(&year).Error; err != nil {
		return nil, translateError(err)
	}
	return &year, nil
}

// FindAllForTenant lists the tenant's years, newest first
func (r *GormAcademicYearRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]organization.AcademicYear, error) {
	var years []organization.AcademicYear
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("start_date DESC").
		Find(&years).Error; err != nil {
		return nil, err
	}
	return years, nil
}

// ExistsByName checks if a year name is taken within a tenant
func (r *GormAcademicYearRepository) ExistsByName(ctx context.Context, tenantID uuid.UUID, name string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&organization.AcademicYear{}).
		Where("tenant_id = ? AND name = ?", tenantID, strings.TrimSpace(name)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates an academic year
func (r *GormAcademicYearRepository) Save(ctx context.Context, year *organization.AcademicYear) error {
	return translateError(r.db.WithContext(ctx).Save(year).Error)
}

// LockAllForTenant loads every year of the tenant with FOR UPDATE
func (r *GormAcademicYearRepository) LockAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]organization.AcademicYear, error) {
	var years []organization.AcademicYear
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ?", tenantID).
		Order("id ASC").
		Find(&years).Error; err != nil {
		return nil, err
	}
	return years, nil
}

// DeactivateAllExcept clears the active flag on every other year of the tenant
func (r *GormAcademicYearRepository) DeactivateAllExcept(ctx context.Context, tenantID, keepID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&organization.AcademicYear{}).
		Where("tenant_id = ? AND id <> ? AND is_active = ?", tenantID, keepID, true).
		Updates(map[string]any{
			"is_active":  false,
			"version":    gorm.Expr("version + 1"),
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	return result.RowsAffected, result.Error
}

// GormClassLevelRepository implements ClassLevelRepository using GORM
type GormClassLevelRepository struct {
	db *gorm.DB
}

// NewGormClassLevelRepository creates a new GormClassLevelRepository
func NewGormClassLevelRepository(db *gorm.DB) *GormClassLevelRepository {
	return &GormClassLevelRepository{db: db}
}

// FindByIDForTenant finds a class level by ID within a tenant
func (r *GormClassLevelRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*organization.ClassLevel, error) {
	var class organization.ClassLevel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&class).Error; err != nil {
		return nil, translateError(err)
	}
	return &class, nil
}

// FindAllForTenant lists class levels in level order
func (r *GormClassLevelRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]organization.ClassLevel, error) {
	var classes []organization.ClassLevel
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Order("level ASC").Order("name ASC").Find(&classes).Error; err != nil {
		return nil, err
	}
	return classes, nil
}

// Save creates or updates a class level
func (r *GormClassLevelRepository) Save(ctx context.Context, class *organization.ClassLevel) error {
	return translateError(r.db.WithContext(ctx).Save(class).Error)
}

// GormDivisionRepository implements DivisionRepository using GORM
type GormDivisionRepository struct {
	db *gorm.DB
}

// NewGormDivisionRepository creates a new GormDivisionRepository
func NewGormDivisionRepository(db *gorm.DB) *GormDivisionRepository {
	return &GormDivisionRepository{db: db}
}

// FindByIDForTenant finds a division by ID within a tenant
func (r *GormDivisionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*organization.Division, error) {
	var division organization.Division
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&division).Error; err != nil {
		return nil, translateError(err)
	}
	return &division, nil
}

// FindAllForTenant lists divisions by name
func (r *GormDivisionRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]organization.Division, error) {
	var divisions []organization.Division
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Order("name ASC").Find(&divisions).Error; err != nil {
		return nil, err
	}
	return divisions, nil
}

// Save creates or updates a division
func (r *GormDivisionRepository) Save(ctx context.Context, division *organization.Division) error {
	return translateError(r.db.WithContext(ctx).Save(division).Error)
}

var (
	_ organization.OrganizationRepository = (*GormOrganizationRepository)(nil)
	_ organization.BranchRepository       = (*GormBranchRepository)(nil)
	_ organization.AcademicYearRepository = (*GormAcademicYearRepository)(nil)
	_ organization.ClassLevelRepository   = (*GormClassLevelRepository)(nil)
	_ organization.DivisionRepository     = (*GormDivisionRepository)(nil)
)
