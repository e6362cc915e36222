package organization

import (
	"context"

	"github.com/google/uuid"
)

// OrganizationRepository persists organizations
type OrganizationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	FindByCode(ctx context.Context, code string) (*Organization, error)
	FindAllActive(ctx context.Context) ([]Organization, error)
	Save(ctx context.Context, org *Organization) error
}

// BranchRepository persists branches
type BranchRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Branch, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]Branch, error)
	ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error)
	Save(ctx context.Context, branch *Branch) error
}

// AcademicYearRepository persists academic years
type AcademicYearRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*AcademicYear, error)
	FindActive(ctx context.Context, tenantID uuid.UUID) (*AcademicYear, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]AcademicYear, error)
	ExistsByName(ctx context.Context, tenantID uuid.UUID, name string) (bool, error)
	Save(ctx context.Context, year *AcademicYear) error
	// LockAllForTenant loads every year of the tenant with a row lock.
	// Must be called inside a transaction.
	LockAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]AcademicYear, error)
	// DeactivateAllExcept clears is_active on every year of the tenant other than keepID.
	DeactivateAllExcept(ctx context.Context, tenantID, keepID uuid.UUID) (int64, error)
}

// ClassLevelRepository persists class levels
type ClassLevelRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ClassLevel, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]ClassLevel, error)
	Save(ctx context.Context, class *ClassLevel) error
}

// DivisionRepository persists divisions
type DivisionRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Division, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]Division, error)
	Save(ctx context.Context, division *Division) error
}
