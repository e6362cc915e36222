package academic

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/application/txn"
	"github.com/madrasa/backend/internal/domain/organization"
	"github.com/madrasa/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// CreateYearInput contains the fields of a new academic year
type CreateYearInput struct {
	Name      string
	StartDate time.Time
	EndDate   time.Time
	CreatedBy *uuid.UUID
}

// YearService manages academic years
type YearService struct {
	repos     txn.Repositories
	txScope   txn.TransactionScope
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewYearService creates a new YearService
func NewYearService(repos txn.Repositories, txScope txn.TransactionScope, publisher shared.EventPublisher, logger *zap.Logger) *YearService {
	return &YearService{repos: repos, txScope: txScope, publisher: publisher, logger: logger}
}

// Create adds an inactive year. Names are unique per organization.
func (s *YearService) Create(ctx context.Context, tenantID uuid.UUID, input CreateYearInput) (*organization.AcademicYear, error) {
	year, err := organization.NewAcademicYear(tenantID, input.Name, input.StartDate, input.EndDate)
	if err != nil {
		return nil, err
	}
	exists, err := s.repos.AcademicYears().ExistsByName(ctx, tenantID, year.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.ErrAlreadyExists.WithField("name", "an academic year with this name already exists")
	}
	if input.CreatedBy != nil {
		year.SetCreatedBy(*input.CreatedBy)
	}
	if err := s.repos.AcademicYears().Save(ctx, year); err != nil {
		return nil, err
	}
	s.logger.Info("Academic year created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("name", year.Name),
	)
	return year, nil
}

// Activate makes yearID the only active year of the organization. The
// year rows are locked, every sibling is switched off and the target is
// switched on in one transaction. Activating the active year is a no-op.
func (s *YearService) Activate(ctx context.Context, tenantID, yearID uuid.UUID) (*organization.AcademicYear, error) {
	var target *organization.AcademicYear
	err := s.txScope.Execute(ctx, func(repos txn.Repositories) error {
		years, err := repos.AcademicYears().LockAllForTenant(ctx, tenantID)
		if err != nil {
			return err
		}
		for i := range years {
			if years[i].ID == yearID {
				target = &years[i]
				break
			}
		}
		if target == nil {
			return shared.ErrNotFound
		}

		deactivated, err := repos.AcademicYears().DeactivateAllExcept(ctx, tenantID, yearID)
		if err != nil {
			return err
		}
		if target.IsActive {
			if deactivated > 0 {
				s.logger.Warn("Cleared extra active academic years",
					zap.String("tenant_id", tenantID.String()),
					zap.Int64("count", deactivated),
				)
			}
			return nil
		}
		target.MarkActivated()
		return repos.AcademicYears().Save(ctx, target)
	})
	if err != nil {
		return nil, err
	}

	if events := shared.CollectEvents(target); len(events) > 0 {
		if err := s.publisher.Publish(ctx, events...); err != nil {
			s.logger.Error("Failed to publish academic year events", zap.Error(err))
		}
		s.logger.Info("Academic year activated",
			zap.String("tenant_id", tenantID.String()),
			zap.String("academic_year", target.Name),
		)
	}
	return target, nil
}

// List returns every year of the organization
func (s *YearService) List(ctx context.Context, tenantID uuid.UUID) ([]organization.AcademicYear, error) {
	return s.repos.AcademicYears().FindAllForTenant(ctx, tenantID)
}

// Get returns one year of the organization
func (s *YearService) Get(ctx context.Context, tenantID, yearID uuid.UUID) (*organization.AcademicYear, error) {
	return s.repos.AcademicYears().FindByIDForTenant(ctx, tenantID, yearID)
}
