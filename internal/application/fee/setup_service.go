package fee

import (
	"context"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/application/txn"
	"github.com/madrasa/backend/internal/domain/fee"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateFeeTypeInput contains the fields of a new fee type
type CreateFeeTypeInput struct {
	Name          string
	Description   string
	Category      fee.Category
	ChargeTrigger fee.Trigger
	ChargeMonth   *int
	IsRecurring   bool
}

// ConfigurationInput sets a student's amount for one fee type
type ConfigurationInput struct {
	StudentID      uuid.UUID
	AcademicYearID uuid.UUID
	FeeTypeID      uuid.UUID
	Amount         decimal.Decimal
	Reason         string
	UpdatedBy      uuid.UUID
}

// SetupService manages fee types, structures and student overrides
type SetupService struct {
	repos  txn.Repositories
	logger *zap.Logger
}

// NewSetupService creates a new SetupService
func NewSetupService(repos txn.Repositories, logger *zap.Logger) *SetupService {
	return &SetupService{repos: repos, logger: logger}
}

// CreateFeeType adds a fee type. Names are unique per organization.
func (s *SetupService) CreateFeeType(ctx context.Context, tenantID uuid.UUID, input CreateFeeTypeInput) (*fee.FeeType, error) {
	ft, err := fee.NewFeeType(tenantID, input.Name, input.Category, input.ChargeTrigger, input.ChargeMonth, input.IsRecurring)
	if err != nil {
		return nil, err
	}
	ft.Description = input.Description
	exists, err := s.repos.FeeTypes().ExistsByName(ctx, tenantID, ft.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.ErrAlreadyExists.WithField("name", "a fee type with this name already exists")
	}
	if err := s.repos.FeeTypes().Save(ctx, ft); err != nil {
		return nil, err
	}
	s.logger.Info("Fee type created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("name", ft.Name),
		zap.String("trigger", string(ft.ChargeTrigger)),
	)
	return ft, nil
}

// ListFeeTypes returns the organization's fee types
func (s *SetupService) ListFeeTypes(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]fee.FeeType, error) {
	return s.repos.FeeTypes().FindAllForTenant(ctx, tenantID, activeOnly)
}

// CreateStructure adds a fee structure after checking that every
// referenced row belongs to the organization
func (s *SetupService) CreateStructure(ctx context.Context, tenantID uuid.UUID, input fee.StructureInput) (*fee.FeeStructure, error) {
	structure, err := fee.NewFeeStructure(tenantID, input)
	if err != nil {
		return nil, err
	}
	if _, err := s.repos.AcademicYears().FindByIDForTenant(ctx, tenantID, input.AcademicYearID); err != nil {
		return nil, referenceError("academic_year_id", err)
	}
	if _, err := s.repos.FeeTypes().FindByIDForTenant(ctx, tenantID, input.FeeTypeID); err != nil {
		return nil, referenceError("fee_type_id", err)
	}
	if input.BranchID != nil {
		if _, err := s.repos.Branches().FindByIDForTenant(ctx, tenantID, *input.BranchID); err != nil {
			return nil, referenceError("branch_id", err)
		}
	}
	if input.ClassID != nil {
		if _, err := s.repos.ClassLevels().FindByIDForTenant(ctx, tenantID, *input.ClassID); err != nil {
			return nil, referenceError("class_id", err)
		}
	}
	if err := s.repos.FeeStructures().Save(ctx, structure); err != nil {
		return nil, err
	}
	s.logger.Info("Fee structure created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("fee_type_id", input.FeeTypeID.String()),
		zap.String("amount", structure.Amount.String()),
	)
	return structure, nil
}

// ListStructures returns the structures of one academic year
func (s *SetupService) ListStructures(ctx context.Context, tenantID, yearID uuid.UUID) ([]fee.FeeStructure, error) {
	return s.repos.FeeStructures().ListForYear(ctx, tenantID, yearID)
}

// SetConfiguration creates or replaces a student's override amount
func (s *SetupService) SetConfiguration(ctx context.Context, tenantID uuid.UUID, input ConfigurationInput) (*fee.StudentFeeConfiguration, error) {
	if _, err := s.repos.Students().FindByIDForTenant(ctx, tenantID, input.StudentID); err != nil {
		return nil, referenceError("student_id", err)
	}
	if _, err := s.repos.AcademicYears().FindByIDForTenant(ctx, tenantID, input.AcademicYearID); err != nil {
		return nil, referenceError("academic_year_id", err)
	}
	if _, err := s.repos.FeeTypes().FindByIDForTenant(ctx, tenantID, input.FeeTypeID); err != nil {
		return nil, referenceError("fee_type_id", err)
	}

	cfg, err := s.repos.FeeConfigurations().Find(ctx, tenantID, input.StudentID, input.AcademicYearID, input.FeeTypeID)
	switch {
	case err == nil:
		by := input.UpdatedBy
		if err := cfg.Change(input.Amount, input.Reason, &by); err != nil {
			return nil, err
		}
	case shared.IsNotFound(err):
		cfg, err = fee.NewStudentFeeConfiguration(tenantID, input.StudentID, input.AcademicYearID, input.FeeTypeID, input.Amount, input.Reason)
		if err != nil {
			return nil, err
		}
		cfg.SetCreatedBy(input.UpdatedBy)
	default:
		return nil, err
	}

	if err := s.repos.FeeConfigurations().Save(ctx, cfg); err != nil {
		return nil, err
	}
	s.logger.Info("Student fee configuration saved",
		zap.String("student_id", input.StudentID.String()),
		zap.String("fee_type_id", input.FeeTypeID.String()),
		zap.String("amount", cfg.Amount.String()),
	)
	return cfg, nil
}

// referenceError turns a missing referenced row into a field error
func referenceError(field string, err error) error {
	if shared.IsNotFound(err) {
		return shared.NewValidationError(field, "Referenced record does not exist")
	}
	return err
}
