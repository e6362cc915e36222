package academic

import (
	"context"

	"github.com/madrasa/backend/internal/application/txn"
	"github.com/madrasa/backend/internal/domain/identity"
	"github.com/madrasa/backend/internal/domain/organization"
	"github.com/madrasa/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// OnboardInput contains what is needed to open a new organization
type OnboardInput struct {
	Code          string
	Name          string
	Email         string
	Phone         string
	AdminEmail    string
	AdminPassword string
}

// OrganizationService opens organizations
type OrganizationService struct {
	repos   txn.Repositories
	txScope txn.TransactionScope
	logger  *zap.Logger
}

// NewOrganizationService creates a new OrganizationService
func NewOrganizationService(repos txn.Repositories, txScope txn.TransactionScope, logger *zap.Logger) *OrganizationService {
	return &OrganizationService{repos: repos, txScope: txScope, logger: logger}
}

// Onboard creates an organization together with its first ADMIN user
func (s *OrganizationService) Onboard(ctx context.Context, input OnboardInput) (*organization.Organization, *identity.User, error) {
	org, err := organization.NewOrganization(input.Code, input.Name)
	if err != nil {
		return nil, nil, err
	}
	org.SetContact(input.Email, input.Phone, "")

	admin, err := identity.NewUser(org.ID, input.AdminEmail, input.AdminPassword, identity.RoleAdmin)
	if err != nil {
		return nil, nil, err
	}

	err = s.txScope.Execute(ctx, func(repos txn.Repositories) error {
		if _, err := repos.Organizations().FindByCode(ctx, org.Code); err == nil {
			return shared.ErrAlreadyExists.WithField("code", "organization code is taken")
		} else if !shared.IsNotFound(err) {
			return err
		}
		exists, err := repos.Users().ExistsByEmail(ctx, admin.Email)
		if err != nil {
			return err
		}
		if exists {
			return shared.ErrAlreadyExists.WithField("admin_email", "email is already registered")
		}
		if err := repos.Organizations().Save(ctx, org); err != nil {
			return err
		}
		return repos.Users().Save(ctx, admin)
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("Organization onboarded",
		zap.String("tenant_id", org.ID.String()),
		zap.String("code", org.Code),
	)
	return org, admin, nil
}
