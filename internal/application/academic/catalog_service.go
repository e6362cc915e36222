package academic

import (
	"context"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/application/txn"
	"github.com/madrasa/backend/internal/domain/organization"
	"github.com/madrasa/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// CreateBranchInput contains the fields of a new branch
type CreateBranchInput struct {
	Code    string
	Name    string
	Phone   string
	Email   string
	Address string
}

// UpdateBranchInput changes a branch. Nil fields are left alone; the code
// cannot change.
type UpdateBranchInput struct {
	Name     *string
	Phone    *string
	Email    *string
	Address  *string
	IsActive *bool
}

// UpdateClassLevelInput changes a class level. Nil fields are left alone.
type UpdateClassLevelInput struct {
	Name     *string
	Level    *int
	IsActive *bool
}

// UpdateDivisionInput changes a division. Nil fields are left alone.
type UpdateDivisionInput struct {
	Name     *string
	IsActive *bool
}

// CatalogService manages branches, class levels and divisions
type CatalogService struct {
	repos  txn.Repositories
	logger *zap.Logger
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(repos txn.Repositories, logger *zap.Logger) *CatalogService {
	return &CatalogService{repos: repos, logger: logger}
}

// CreateBranch adds a branch. Codes are unique per organization.
func (s *CatalogService) CreateBranch(ctx context.Context, tenantID uuid.UUID, input CreateBranchInput) (*organization.Branch, error) {
	branch, err := organization.NewBranch(tenantID, input.Code, input.Name)
	if err != nil {
		return nil, err
	}
	exists, err := s.repos.Branches().ExistsByCode(ctx, tenantID, branch.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.ErrAlreadyExists.WithField("code", "a branch with this code already exists")
	}
	branch.Phone = input.Phone
	branch.Email = input.Email
	branch.Address = input.Address
	if err := s.repos.Branches().Save(ctx, branch); err != nil {
		return nil, err
	}
	s.logger.Info("Branch created", zap.String("tenant_id", tenantID.String()), zap.String("code", branch.Code))
	return branch, nil
}

// ListBranches returns the organization's branches
func (s *CatalogService) ListBranches(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]organization.Branch, error) {
	return s.repos.Branches().FindAllForTenant(ctx, tenantID, activeOnly)
}

// UpdateBranch applies input to a branch of the organization
func (s *CatalogService) UpdateBranch(ctx context.Context, tenantID, id uuid.UUID, input UpdateBranchInput) (*organization.Branch, error) {
	branch, err := s.repos.Branches().FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		if err := branch.Rename(*input.Name); err != nil {
			return nil, err
		}
	}
	if input.Phone != nil {
		branch.Phone = *input.Phone
	}
	if input.Email != nil {
		branch.Email = *input.Email
	}
	if input.Address != nil {
		branch.Address = *input.Address
	}
	if input.IsActive != nil {
		branch.SetActive(*input.IsActive)
	}
	if err := s.repos.Branches().Save(ctx, branch); err != nil {
		return nil, err
	}
	s.logger.Info("Branch updated", zap.String("tenant_id", tenantID.String()), zap.String("code", branch.Code))
	return branch, nil
}

// CreateClassLevel adds a class level
func (s *CatalogService) CreateClassLevel(ctx context.Context, tenantID uuid.UUID, name string, level int) (*organization.ClassLevel, error) {
	class, err := organization.NewClassLevel(tenantID, name, level)
	if err != nil {
		return nil, err
	}
	if err := s.repos.ClassLevels().Save(ctx, class); err != nil {
		return nil, err
	}
	return class, nil
}

// ListClassLevels returns the organization's class levels ordered by level
func (s *CatalogService) ListClassLevels(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]organization.ClassLevel, error) {
	return s.repos.ClassLevels().FindAllForTenant(ctx, tenantID, activeOnly)
}

// UpdateClassLevel applies input to a class level of the organization
func (s *CatalogService) UpdateClassLevel(ctx context.Context, tenantID, id uuid.UUID, input UpdateClassLevelInput) (*organization.ClassLevel, error) {
	class, err := s.repos.ClassLevels().FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil || input.Level != nil {
		name, level := class.Name, class.Level
		if input.Name != nil {
			name = *input.Name
		}
		if input.Level != nil {
			level = *input.Level
		}
		if err := class.Change(name, level); err != nil {
			return nil, err
		}
	}
	if input.IsActive != nil {
		class.SetActive(*input.IsActive)
	}
	if err := s.repos.ClassLevels().Save(ctx, class); err != nil {
		return nil, err
	}
	return class, nil
}

// CreateDivision adds a division
func (s *CatalogService) CreateDivision(ctx context.Context, tenantID uuid.UUID, name string) (*organization.Division, error) {
	division, err := organization.NewDivision(tenantID, name)
	if err != nil {
		return nil, err
	}
	if err := s.repos.Divisions().Save(ctx, division); err != nil {
		return nil, err
	}
	return division, nil
}

// ListDivisions returns the organization's divisions
func (s *CatalogService) ListDivisions(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]organization.Division, error) {
	return s.repos.Divisions().FindAllForTenant(ctx, tenantID, activeOnly)
}

// UpdateDivision applies input to a division of the organization
func (s *CatalogService) UpdateDivision(ctx context.Context, tenantID, id uuid.UUID, input UpdateDivisionInput) (*organization.Division, error) {
	division, err := s.repos.Divisions().FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		if err := division.Rename(*input.Name); err != nil {
			return nil, err
		}
	}
	if input.IsActive != nil {
		division.SetActive(*input.IsActive)
	}
	if err := s.repos.Divisions().Save(ctx, division); err != nil {
		return nil, err
	}
	return division, nil
}
