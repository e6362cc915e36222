// Package staff manages staff members and their class assignments.
package staff

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/application/txn"
	"github.com/madrasa/backend/internal/domain/identity"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/madrasa/backend/internal/domain/staff"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateStaffInput contains the account, personal and employment details
// of a new staff member. An empty password creates an account that must
// be reset before first login.
type CreateStaffInput struct {
	Email    string
	Password string
	Role     identity.Role

	FullName     string
	Gender       identity.Gender
	DOB          time.Time
	IDCardType   identity.IDCardType
	IDCardNumber string
	Mobile       string
	WhatsApp     string

	Category                 staff.Category
	Status                   staff.Status
	BranchID                 *uuid.UUID
	MonthlySalary            decimal.Decimal
	ReligiousAcademicDetails string
	AcademicDetails          string
	PreviousMadrasa          string
	MSRNumber                string
	AadharNumber             string
	Notes                    string
}

// UpdateStaffInput lists the fields to change. Nil fields are kept.
type UpdateStaffInput struct {
	FullName *string
	Mobile   *string
	WhatsApp *string

	Category                 *staff.Category
	Status                   *staff.Status
	BranchID                 *uuid.UUID
	MonthlySalary            *decimal.Decimal
	ReligiousAcademicDetails *string
	AcademicDetails          *string
	PreviousMadrasa          *string
	MSRNumber                *string
	AadharNumber             *string
	Notes                    *string
}

// AssignInput opens a teacher assignment on a class slot
type AssignInput struct {
	TeacherID      uuid.UUID
	BranchID       uuid.UUID
	AcademicYearID uuid.UUID
	ClassID        uuid.UUID
	DivisionID     uuid.UUID
	StartDate      time.Time
	AssignmentType staff.AssignmentType
	ChangeReason   staff.ChangeReason
	Remarks        string
}

// AssignResult is the new assignment and the rows it closed
type AssignResult struct {
	Assignment *staff.TeacherAssignment
	Closed     []staff.TeacherAssignment
}

// Service handles staff records and teacher assignments
type Service struct {
	repos   txn.Repositories
	txScope txn.TransactionScope
	logger  *zap.Logger
}

// NewService creates a new staff Service
func NewService(repos txn.Repositories, txScope txn.TransactionScope, logger *zap.Logger) *Service {
	return &Service{repos: repos, txScope: txScope, logger: logger}
}

// CreateStaff creates the user, profile and staff record of a new staff
// member and allocates the staff number, all in one transaction
func (s *Service) CreateStaff(ctx context.Context, actor identity.Actor, input CreateStaffInput) (*staff.StaffProfile, error) {
	if !input.Role.IsStaff() {
		return nil, shared.NewValidationError("role", "Role must be a staff role")
	}
	if input.Status == "" {
		input.Status = staff.StatusActive
	}
	if input.BranchID != nil && !actor.CanAccessBranch(*input.BranchID) {
		return nil, shared.ErrForbidden.WithField("branch_id", "branch is outside your scope")
	}
	if input.BranchID == nil && !actor.Role.SeesAllBranches() {
		input.BranchID = actor.BranchID
	}

	var member *staff.StaffProfile
	err := s.txScope.Execute(ctx, func(repos txn.Repositories) error {
		org, err := repos.Organizations().FindByID(ctx, actor.TenantID)
		if err != nil {
			return err
		}
		if input.BranchID != nil {
			if _, err := repos.Branches().FindByIDForTenant(ctx, actor.TenantID, *input.BranchID); err != nil {
				return referenceError("branch_id", err)
			}
		}
		taken, err := repos.Users().ExistsByEmail(ctx, input.Email)
		if err != nil {
			return err
		}
		if taken {
			return shared.ErrAlreadyExists.WithField("email", "a user with this email already exists")
		}

		var user *identity.User
		if input.Password == "" {
			user, err = identity.NewUserWithRandomPassword(actor.TenantID, input.Email, input.Role)
		} else {
			user, err = identity.NewUser(actor.TenantID, input.Email, input.Password, input.Role)
		}
		if err != nil {
			return err
		}
		user.AssignBranch(input.BranchID)
		user.SetCreatedBy(actor.UserID)
		if err := repos.Users().Save(ctx, user); err != nil {
			return err
		}
		profile, err := identity.NewUserProfile(user.ID, identity.ProfileInput{
			FullName:     input.FullName,
			Gender:       input.Gender,
			DOB:          input.DOB,
			IDCardType:   input.IDCardType,
			IDCardNumber: input.IDCardNumber,
			Mobile:       input.Mobile,
			WhatsApp:     input.WhatsApp,
		})
		if err != nil {
			return err
		}
		if err := repos.Profiles().Save(ctx, profile); err != nil {
			return err
		}

		member, err = staff.NewStaffProfile(actor.TenantID, user.ID, input.Category, input.MonthlySalary)
		if err != nil {
			return err
		}
		member.AssignBranch(input.BranchID)
		if err := member.SetStatus(input.Status); err != nil {
			return err
		}
		member.ReligiousAcademicDetails = input.ReligiousAcademicDetails
		member.AcademicDetails = input.AcademicDetails
		member.PreviousMadrasa = input.PreviousMadrasa
		member.MSRNumber = input.MSRNumber
		member.AadharNumber = input.AadharNumber
		member.Notes = input.Notes
		member.SetCreatedBy(actor.UserID)

		number, err := txn.NextStaffNumber(ctx, repos, actor.TenantID, org.Code)
		if err != nil {
			return err
		}
		if err := member.AssignStaffNumber(number); err != nil {
			return err
		}
		return repos.Staff().Save(ctx, member)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Staff member created",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("staff_number", member.StaffNumber),
		zap.String("role", input.Role.String()),
	)
	return member, nil
}

// Get returns one staff member
func (s *Service) Get(ctx context.Context, tenantID, staffID uuid.UUID) (*staff.StaffProfile, error) {
	return s.repos.Staff().FindByIDForTenant(ctx, tenantID, staffID)
}

// List pages staff members. Branch-bound actors only see their own branch.
func (s *Service) List(ctx context.Context, actor identity.Actor, filter staff.StaffFilter, page shared.Filter) (*shared.Paginated[staff.StaffProfile], error) {
	branch, err := actor.BranchFilter(filter.BranchID)
	if err != nil {
		return nil, err
	}
	filter.BranchID = branch
	return s.repos.Staff().List(ctx, actor.TenantID, filter, page)
}

// Update changes a staff member's employment and contact details. The
// login account follows the staff status and branch.
func (s *Service) Update(ctx context.Context, actor identity.Actor, staffID uuid.UUID, input UpdateStaffInput) (*staff.StaffProfile, error) {
	if input.BranchID != nil && !actor.CanAccessBranch(*input.BranchID) {
		return nil, shared.ErrForbidden.WithField("branch_id", "branch is outside your scope")
	}

	var member *staff.StaffProfile
	err := s.txScope.Execute(ctx, func(repos txn.Repositories) error {
		var err error
		member, err = repos.Staff().FindByIDForTenant(ctx, actor.TenantID, staffID)
		if err != nil {
			return err
		}
		if member.BranchID != nil && !actor.CanAccessBranch(*member.BranchID) {
			return shared.ErrNotFound
		}
		user, err := repos.Users().FindByIDForTenant(ctx, actor.TenantID, member.UserID)
		if err != nil {
			return err
		}

		if input.Category != nil {
			if err := member.SetCategory(*input.Category); err != nil {
				return err
			}
		}
		if input.MonthlySalary != nil {
			if err := member.SetSalary(*input.MonthlySalary); err != nil {
				return err
			}
		}
		if input.BranchID != nil {
			if _, err := repos.Branches().FindByIDForTenant(ctx, actor.TenantID, *input.BranchID); err != nil {
				return referenceError("branch_id", err)
			}
			member.AssignBranch(input.BranchID)
			user.AssignBranch(input.BranchID)
		}
		if input.Status != nil {
			if err := member.SetStatus(*input.Status); err != nil {
				return err
			}
			if member.IsActive() {
				user.Activate()
			} else {
				user.Deactivate()
			}
		}
		setText(&member.ReligiousAcademicDetails, input.ReligiousAcademicDetails)
		setText(&member.AcademicDetails, input.AcademicDetails)
		setText(&member.PreviousMadrasa, input.PreviousMadrasa)
		setText(&member.MSRNumber, input.MSRNumber)
		setText(&member.AadharNumber, input.AadharNumber)
		setText(&member.Notes, input.Notes)
		member.Touch()

		if input.FullName != nil || input.Mobile != nil || input.WhatsApp != nil {
			profile, err := repos.Profiles().FindByUserID(ctx, member.UserID)
			if err != nil {
				return err
			}
			if err := profile.Apply(identity.ProfileChanges{
				FullName: input.FullName,
				Mobile:   input.Mobile,
				WhatsApp: input.WhatsApp,
			}); err != nil {
				return err
			}
			if err := repos.Profiles().Save(ctx, profile); err != nil {
				return err
			}
		}
		if err := repos.Users().Save(ctx, user); err != nil {
			return err
		}
		return repos.Staff().Save(ctx, member)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Staff member updated",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("staff_number", member.StaffNumber),
		zap.String("status", string(member.Status)),
	)
	return member, nil
}

func setText(field *string, value *string) {
	if value != nil {
		*field = strings.TrimSpace(*value)
	}
}

// Assign opens a new assignment on a class slot. The open rows of the
// slot are locked, closed on the new start date and linked to the new
// row, in one transaction.
func (s *Service) Assign(ctx context.Context, actor identity.Actor, input AssignInput) (*AssignResult, error) {
	if !actor.CanAccessBranch(input.BranchID) {
		return nil, shared.ErrForbidden.WithField("branch_id", "branch is outside your scope")
	}
	start := input.StartDate
	if start.IsZero() {
		start = shared.Today()
	}
	slot := staff.SlotKey{
		BranchID:       input.BranchID,
		AcademicYearID: input.AcademicYearID,
		ClassID:        input.ClassID,
		DivisionID:     input.DivisionID,
	}

	result := &AssignResult{}
	err := s.txScope.Execute(ctx, func(repos txn.Repositories) error {
		if err := s.checkSlot(ctx, repos, actor.TenantID, slot); err != nil {
			return err
		}
		teacher, err := repos.Staff().FindByIDForTenant(ctx, actor.TenantID, input.TeacherID)
		if err != nil {
			return referenceError("teacher_id", err)
		}
		if !teacher.IsActive() {
			return shared.NewValidationError("teacher_id", "Teacher is not active")
		}

		assignment, err := staff.NewTeacherAssignment(actor.TenantID, teacher.ID, slot, start, input.AssignmentType, input.ChangeReason)
		if err != nil {
			return err
		}
		assignment.Remarks = input.Remarks
		assignment.SetCreatedBy(actor.UserID)

		open, err := repos.Assignments().LockOpenForSlot(ctx, actor.TenantID, slot)
		if err != nil {
			return err
		}
		// Close first so the open-primary index is free, store the new row,
		// then point the closed rows at it.
		for i := range open {
			if open[i].StartDate.After(assignment.StartDate) {
				return shared.NewValidationError("start_date", "Start date is before the current assignment started")
			}
			open[i].EndOn(assignment.StartDate)
			if err := repos.Assignments().Save(ctx, &open[i]); err != nil {
				return err
			}
		}
		if err := repos.Assignments().Save(ctx, assignment); err != nil {
			return err
		}
		for i := range open {
			open[i].LinkSuccessor(assignment.ID)
			if err := repos.Assignments().Save(ctx, &open[i]); err != nil {
				return err
			}
		}
		*result = AssignResult{Assignment: assignment, Closed: open}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Teacher assigned",
		zap.String("teacher_id", input.TeacherID.String()),
		zap.String("class_id", input.ClassID.String()),
		zap.String("division_id", input.DivisionID.String()),
		zap.Int("closed", len(result.Closed)),
	)
	return result, nil
}

// ListAssignments returns assignments matching the filter. Branch-bound
// actors only see their own branch.
func (s *Service) ListAssignments(ctx context.Context, actor identity.Actor, filter staff.AssignmentFilter) ([]staff.TeacherAssignment, error) {
	branch, err := actor.BranchFilter(filter.BranchID)
	if err != nil {
		return nil, err
	}
	filter.BranchID = branch
	return s.repos.Assignments().List(ctx, actor.TenantID, filter)
}

func (s *Service) checkSlot(ctx context.Context, repos txn.Repositories, tenantID uuid.UUID, slot staff.SlotKey) error {
	if _, err := repos.Branches().FindByIDForTenant(ctx, tenantID, slot.BranchID); err != nil {
		return referenceError("branch_id", err)
	}
	year, err := repos.AcademicYears().FindByIDForTenant(ctx, tenantID, slot.AcademicYearID)
	if err != nil {
		return referenceError("academic_year_id", err)
	}
	if err := year.EnsureOpen(); err != nil {
		return err
	}
	if _, err := repos.ClassLevels().FindByIDForTenant(ctx, tenantID, slot.ClassID); err != nil {
		return referenceError("class_id", err)
	}
	if _, err := repos.Divisions().FindByIDForTenant(ctx, tenantID, slot.DivisionID); err != nil {
		return referenceError("division_id", err)
	}
	return nil
}

func referenceError(field string, err error) error {
	if shared.IsNotFound(err) {
		return shared.NewValidationError(field, "Referenced record does not exist")
	}
	return err
}
