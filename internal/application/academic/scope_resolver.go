// Package academic resolves the tenant scope of a request and manages
// academic years and the class catalog.
package academic

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/application/txn"
	"github.com/madrasa/backend/internal/domain/identity"
	"github.com/madrasa/backend/internal/domain/organization"
	"github.com/madrasa/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Scope is the tenant a request runs in
type Scope struct {
	Organization *organization.Organization
	User         *identity.User
	// ActiveYear is nil when the organization has no active year
	ActiveYear *organization.AcademicYear
}

// TenantID returns the organization ID
func (s *Scope) TenantID() uuid.UUID {
	return s.Organization.ID
}

// RequireActiveYear returns the active year or NO_ACTIVE_ACADEMIC_YEAR
func (s *Scope) RequireActiveYear() (*organization.AcademicYear, error) {
	if s.ActiveYear == nil {
		return nil, organization.ErrNoActiveAcademicYear
	}
	return s.ActiveYear, nil
}

// ScopeResolver resolves organizations and their active year
type ScopeResolver struct {
	repos  txn.Repositories
	logger *zap.Logger
}

// NewScopeResolver creates a new ScopeResolver
func NewScopeResolver(repos txn.Repositories, logger *zap.Logger) *ScopeResolver {
	return &ScopeResolver{repos: repos, logger: logger}
}

// ResolveScope looks up the organization by code and checks that the user
// belongs to it. Unknown, inactive or foreign organizations all surface as
// NOT_FOUND.
func (r *ScopeResolver) ResolveScope(ctx context.Context, orgCode string, userID uuid.UUID) (*Scope, error) {
	org, err := r.repos.Organizations().FindByCode(ctx, strings.ToUpper(strings.TrimSpace(orgCode)))
	if err != nil {
		return nil, err
	}
	if !org.IsActive {
		return nil, shared.ErrNotFound
	}

	user, err := r.repos.Users().FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.BelongsTo(org.ID) {
		r.logger.Warn("cross-tenant scope request",
			zap.String("org_code", org.Code),
			zap.String("user_id", userID.String()),
		)
		return nil, shared.ErrNotFound
	}

	year, err := r.activeYear(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	return &Scope{Organization: org, User: user, ActiveYear: year}, nil
}

// ResolveTenant resolves the scope of a tenant without a user, for batch jobs
func (r *ScopeResolver) ResolveTenant(ctx context.Context, tenantID uuid.UUID) (*Scope, error) {
	org, err := r.repos.Organizations().FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	year, err := r.activeYear(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	return &Scope{Organization: org, ActiveYear: year}, nil
}

func (r *ScopeResolver) activeYear(ctx context.Context, tenantID uuid.UUID) (*organization.AcademicYear, error) {
	year, err := r.repos.AcademicYears().FindActive(ctx, tenantID)
	if shared.IsNotFound(err) {
		return nil, nil
	}
	return year, err
}
