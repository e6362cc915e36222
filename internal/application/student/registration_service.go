// Package student implements registration review and the enrollment
// lifecycle of students.
package student

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	appfee "github.com/madrasa/backend/internal/application/fee"
	"github.com/madrasa/backend/internal/application/txn"
	"github.com/madrasa/backend/internal/domain/identity"
	"github.com/madrasa/backend/internal/domain/organization"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/madrasa/backend/internal/domain/student"
	"go.uber.org/zap"
)

// DueTrigger creates the dues triggered by admission and enrollment.
// Both calls run on the caller's transaction.
type DueTrigger interface {
	OnAdmission(ctx context.Context, repos txn.Repositories, s *student.StudentProfile, e *student.StudentEnrollment, on time.Time) (appfee.BatchResult, error)
	OnEnrollment(ctx context.Context, repos txn.Repositories, s *student.StudentProfile, e *student.StudentEnrollment, on time.Time) (appfee.BatchResult, error)
}

// ApproveInput carries the placement chosen by the reviewer
type ApproveInput struct {
	BranchID    uuid.UUID
	ClassID     uuid.UUID
	DivisionID  uuid.UUID
	Category    student.Category
	HasSiblings bool
	Notes       string
}

// ApprovalResult describes the student created from a registration
type ApprovalResult struct {
	Registration    *student.StudentRegistration
	StudentID       uuid.UUID
	UserID          uuid.UUID
	EnrollmentID    uuid.UUID
	AdmissionNumber string
	Status          student.Status
	DuesCreated     int
}

// RegistrationService handles online registrations and their review
type RegistrationService struct {
	repos     txn.Repositories
	txScope   txn.TransactionScope
	dues      DueTrigger
	publisher shared.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewRegistrationService creates a new RegistrationService
func NewRegistrationService(repos txn.Repositories, txScope txn.TransactionScope, dues DueTrigger, publisher shared.EventPublisher, logger *zap.Logger) *RegistrationService {
	if publisher == nil {
		publisher = shared.NoopEventPublisher{}
	}
	return &RegistrationService{
		repos:     repos,
		txScope:   txScope,
		dues:      dues,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit stores a registration sent from the public form of orgCode
func (s *RegistrationService) Submit(ctx context.Context, orgCode string, input student.RegistrationInput) (*student.StudentRegistration, error) {
	org, err := s.repos.Organizations().FindByCode(ctx, strings.ToUpper(strings.TrimSpace(orgCode)))
	if err != nil {
		return nil, err
	}
	if !org.IsActive {
		return nil, shared.ErrNotFound
	}
	if input.InterestedBranchID != nil {
		if _, err := s.repos.Branches().FindByIDForTenant(ctx, org.ID, *input.InterestedBranchID); err != nil {
			return nil, referenceError("interested_branch_id", err)
		}
	}
	if input.ClassToAdmitID != nil {
		if _, err := s.repos.ClassLevels().FindByIDForTenant(ctx, org.ID, *input.ClassToAdmitID); err != nil {
			return nil, referenceError("class_to_admit_id", err)
		}
	}

	reg, err := student.NewStudentRegistration(org.ID, input, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.repos.Registrations().Save(ctx, reg); err != nil {
		return nil, err
	}
	s.logger.Info("Registration submitted",
		zap.String("tenant_id", org.ID.String()),
		zap.String("registration_id", reg.ID.String()),
	)
	return reg, nil
}

// List returns registrations visible to the actor, newest first by default
func (s *RegistrationService) List(ctx context.Context, actor identity.Actor, status student.RegistrationStatus, branchID *uuid.UUID, page shared.Filter) (*shared.Paginated[student.StudentRegistration], error) {
	if status != "" && !status.IsValid() {
		return nil, shared.NewValidationError("status", "Unknown registration status")
	}
	branch, err := actor.BranchFilter(branchID)
	if err != nil {
		return nil, err
	}
	return s.repos.Registrations().List(ctx, actor.TenantID, status, branch, page)
}

// Get returns one registration. Registrations outside the actor's branch are NOT_FOUND.
func (s *RegistrationService) Get(ctx context.Context, actor identity.Actor, id uuid.UUID) (*student.StudentRegistration, error) {
	reg, err := s.repos.Registrations().FindByIDForTenant(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	if !canSeeRegistration(actor, reg) {
		return nil, shared.ErrNotFound
	}
	return reg, nil
}

// Approve turns a PENDING registration into an active, enrolled student.
// Everything it creates commits together; a second approval fails on the
// status guard and a reused email fails with ALREADY_EXISTS.
func (s *RegistrationService) Approve(ctx context.Context, actor identity.Actor, id uuid.UUID, input ApproveInput) (*ApprovalResult, error) {
	if !actor.CanAccessBranch(input.BranchID) {
		return nil, shared.ErrForbidden.WithField("branch_id", "branch is outside your scope")
	}
	now := s.now().UTC()
	result := &ApprovalResult{}

	err := s.txScope.Execute(ctx, func(repos txn.Repositories) error {
		reg, err := repos.Registrations().FindByIDForUpdate(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if !canSeeRegistration(actor, reg) {
			return shared.ErrNotFound
		}
		if !reg.IsPending() {
			return shared.ErrInvalidState.WithField("status", "only PENDING registrations can be approved")
		}
		taken, err := repos.Users().ExistsByEmail(ctx, reg.Email)
		if err != nil {
			return err
		}
		if taken {
			return shared.ErrAlreadyExists.WithField("email", "a user with this email already exists")
		}

		year, err := repos.AcademicYears().FindActive(ctx, actor.TenantID)
		if shared.IsNotFound(err) {
			return organization.ErrNoActiveAcademicYear
		}
		if err != nil {
			return err
		}
		branch, err := repos.Branches().FindByIDForTenant(ctx, actor.TenantID, input.BranchID)
		if err != nil {
			return referenceError("branch_id", err)
		}
		if err := checkPlacement(ctx, repos, actor.TenantID, input.ClassID, input.DivisionID); err != nil {
			return err
		}
		category := input.Category
		if category == "" {
			category = reg.StudyType
		}

		user, err := identity.NewUserWithRandomPassword(actor.TenantID, reg.Email, identity.RoleStudent)
		if err != nil {
			return err
		}
		user.AssignBranch(&branch.ID)
		user.SetCreatedBy(actor.UserID)
		if err := repos.Users().Save(ctx, user); err != nil {
			return err
		}
		profile, err := identity.NewUserProfile(user.ID, identity.ProfileInput{
			FullName:     reg.StudentName,
			Gender:       reg.Gender,
			DOB:          reg.DOB,
			IDCardType:   reg.IDCardType,
			IDCardNumber: reg.IDCardNumber,
			Mobile:       reg.ParentMobile,
			WhatsApp:     reg.FatherWhatsApp,
			PhotoKey:     reg.PhotoKey,
		})
		if err != nil {
			return err
		}
		if err := repos.Profiles().Save(ctx, profile); err != nil {
			return err
		}

		st, err := student.NewStudentProfile(actor.TenantID, user.ID, branch.ID, category)
		if err != nil {
			return err
		}
		regID := reg.ID
		st.RegistrationID = &regID
		st.HasSiblings = input.HasSiblings || strings.TrimSpace(reg.SiblingsDetails) != ""
		st.Notes = input.Notes
		st.SetCreatedBy(actor.UserID)
		number, err := txn.NextAdmissionNumber(ctx, repos, actor.TenantID, branch.Code)
		if err != nil {
			return err
		}
		if err := st.AssignAdmissionNumber(number); err != nil {
			return err
		}
		st.Activate(actor.UserID, now)
		if err := repos.Students().Save(ctx, st); err != nil {
			return err
		}

		enrollment, err := student.NewStudentEnrollment(actor.TenantID, st.ID, year.ID, input.ClassID, input.DivisionID, now)
		if err != nil {
			return err
		}
		enrollment.SetCreatedBy(actor.UserID)
		if err := repos.Enrollments().Save(ctx, enrollment); err != nil {
			return err
		}

		if err := saveDetails(ctx, repos, user.ID, st.ID, reg); err != nil {
			return err
		}

		admission, err := s.dues.OnAdmission(ctx, repos, st, enrollment, now)
		if err != nil {
			return err
		}
		enrolled, err := s.dues.OnEnrollment(ctx, repos, st, enrollment, now)
		if err != nil {
			return err
		}

		if err := reg.Approve(actor.UserID, st.ID, number, now); err != nil {
			return err
		}
		if err := repos.Registrations().Save(ctx, reg); err != nil {
			return err
		}

		*result = ApprovalResult{
			Registration:    reg,
			StudentID:       st.ID,
			UserID:          user.ID,
			EnrollmentID:    enrollment.ID,
			AdmissionNumber: number,
			Status:          st.Status,
			DuesCreated:     admission.Created + enrolled.Created,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, result.Registration)
	s.logger.Info("Registration approved",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("registration_id", id.String()),
		zap.String("admission_number", result.AdmissionNumber),
		zap.Int("dues_created", result.DuesCreated),
	)
	return result, nil
}

// Reject closes a PENDING registration with a reason
func (s *RegistrationService) Reject(ctx context.Context, actor identity.Actor, id uuid.UUID, reason string) (*student.StudentRegistration, error) {
	return s.review(ctx, actor, id, func(reg *student.StudentRegistration, at time.Time) error {
		return reg.Reject(actor.UserID, reason, at)
	})
}

// RequestInfo asks the family for more information
func (s *RegistrationService) RequestInfo(ctx context.Context, actor identity.Actor, id uuid.UUID, message string) (*student.StudentRegistration, error) {
	return s.review(ctx, actor, id, func(reg *student.StudentRegistration, at time.Time) error {
		return reg.RequestInfo(actor.UserID, message, at)
	})
}

func (s *RegistrationService) review(ctx context.Context, actor identity.Actor, id uuid.UUID, decide func(*student.StudentRegistration, time.Time) error) (*student.StudentRegistration, error) {
	var reg *student.StudentRegistration
	err := s.txScope.Execute(ctx, func(repos txn.Repositories) error {
		var err error
		reg, err = repos.Registrations().FindByIDForUpdate(ctx, actor.TenantID, id)
		if err != nil {
			return err
		}
		if !canSeeRegistration(actor, reg) {
			return shared.ErrNotFound
		}
		if err := decide(reg, s.now().UTC()); err != nil {
			return err
		}
		return repos.Registrations().Save(ctx, reg)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, reg)
	s.logger.Info("Registration reviewed",
		zap.String("registration_id", reg.ID.String()),
		zap.String("status", string(reg.Status)),
	)
	return reg, nil
}

func (s *RegistrationService) publish(ctx context.Context, reg *student.StudentRegistration) {
	events := shared.CollectEvents(reg)
	if len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish registration events",
			zap.String("registration_id", reg.ID.String()),
			zap.Error(err),
		)
	}
}

// canSeeRegistration applies branch scope. Branch-bound staff only see
// registrations that name their branch.
func canSeeRegistration(actor identity.Actor, reg *student.StudentRegistration) bool {
	if actor.Role.SeesAllBranches() {
		return true
	}
	return reg.InterestedBranchID != nil && actor.CanAccessBranch(*reg.InterestedBranchID)
}

func saveDetails(ctx context.Context, repos txn.Repositories, userID, studentID uuid.UUID, reg *student.StudentRegistration) error {
	details := repos.StudentDetails()
	if err := details.SaveFamily(ctx, student.NewFamilyFromRegistration(studentID, reg)); err != nil {
		return err
	}
	for _, addr := range []*student.UserAddress{
		student.NewUserAddress(userID, student.AddressQatar, reg.QatarAddress),
		student.NewUserAddress(userID, student.AddressIndia, reg.IndiaAddress),
	} {
		if addr == nil {
			continue
		}
		if err := details.SaveAddress(ctx, addr); err != nil {
			return err
		}
	}
	if history := student.NewAcademicHistoryFromRegistration(studentID, reg); history != nil {
		return details.SaveAcademicHistory(ctx, history)
	}
	return nil
}

func checkPlacement(ctx context.Context, repos txn.Repositories, tenantID, classID, divisionID uuid.UUID) error {
	if _, err := repos.ClassLevels().FindByIDForTenant(ctx, tenantID, classID); err != nil {
		return referenceError("class_id", err)
	}
	if _, err := repos.Divisions().FindByIDForTenant(ctx, tenantID, divisionID); err != nil {
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
