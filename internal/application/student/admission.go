package student

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/application/txn"
	"github.com/madrasa/backend/internal/domain/identity"
	"github.com/madrasa/backend/internal/domain/organization"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/madrasa/backend/internal/domain/student"
	"go.uber.org/zap"
)

// AdmitInput is a walk-in admission entered by the office. An empty
// password creates an account that must be reset before first login.
type AdmitInput struct {
	Email    string
	Password string

	FullName     string
	Gender       identity.Gender
	DOB          time.Time
	IDCardType   identity.IDCardType
	IDCardNumber string
	Mobile       string
	WhatsApp     string

	BranchID    uuid.UUID
	ClassID     uuid.UUID
	DivisionID  uuid.UUID
	Category    student.Category
	HasSiblings bool
	Notes       string
	Family      *student.FamilyDetails
}

// AdmissionResult is the admitted student and the dues raised for them
type AdmissionResult struct {
	Detail      *StudentDetail
	DuesCreated int
}

// UpdateStudentInput lists the fields to change. Nil fields are kept.
type UpdateStudentInput struct {
	FullName    *string
	Mobile      *string
	WhatsApp    *string
	Category    *student.Category
	HasSiblings *bool
	Notes       *string
}

// Admit creates the account, profile and student record of a new student,
// allocates the admission number and enrolls them in the active year, in
// one transaction. ON_ADMISSION and ON_ENROLLMENT dues are raised as for
// an approved registration.
func (s *EnrollmentService) Admit(ctx context.Context, actor identity.Actor, input AdmitInput) (*AdmissionResult, error) {
	if !actor.CanAccessBranch(input.BranchID) {
		return nil, shared.ErrForbidden.WithField("branch_id", "branch is outside your scope")
	}
	if input.Category == "" {
		input.Category = student.CategoryPermanent
	}
	now := s.now().UTC()
	result := &AdmissionResult{Detail: &StudentDetail{}}

	err := s.txScope.Execute(ctx, func(repos txn.Repositories) error {
		taken, err := repos.Users().ExistsByEmail(ctx, input.Email)
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
		if err := year.EnsureOpen(); err != nil {
			return err
		}
		branch, err := repos.Branches().FindByIDForTenant(ctx, actor.TenantID, input.BranchID)
		if err != nil {
			return referenceError("branch_id", err)
		}
		if err := checkPlacement(ctx, repos, actor.TenantID, input.ClassID, input.DivisionID); err != nil {
			return err
		}

		var user *identity.User
		if input.Password == "" {
			user, err = identity.NewUserWithRandomPassword(actor.TenantID, input.Email, identity.RoleStudent)
		} else {
			user, err = identity.NewUser(actor.TenantID, input.Email, input.Password, identity.RoleStudent)
		}
		if err != nil {
			return err
		}
		user.AssignBranch(&branch.ID)
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

		st, err := student.NewStudentProfile(actor.TenantID, user.ID, branch.ID, input.Category)
		if err != nil {
			return err
		}
		st.Notes = strings.TrimSpace(input.Notes)
		st.SetCreatedBy(actor.UserID)
		number, err := txn.NextAdmissionNumber(ctx, repos, actor.TenantID, branch.Code)
		if err != nil {
			return err
		}
		if err := st.AssignAdmissionNumber(number); err != nil {
			return err
		}
		st.Activate(actor.UserID, now)

		var family *student.StudentFamily
		if input.Family != nil {
			if family, err = student.NewStudentFamily(st.ID, *input.Family); err != nil {
				return err
			}
		}
		st.HasSiblings = input.HasSiblings || (family != nil && family.SiblingsDetails != "")
		if err := repos.Students().Save(ctx, st); err != nil {
			return err
		}
		if family != nil {
			if err := repos.StudentDetails().SaveFamily(ctx, family); err != nil {
				return err
			}
		}

		enrollment, err := student.NewStudentEnrollment(actor.TenantID, st.ID, year.ID, input.ClassID, input.DivisionID, now)
		if err != nil {
			return err
		}
		enrollment.SetCreatedBy(actor.UserID)
		if err := repos.Enrollments().Save(ctx, enrollment); err != nil {
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

		*result.Detail = StudentDetail{
			Student:     st,
			Profile:     profile,
			Family:      family,
			Enrollments: []student.StudentEnrollment{*enrollment},
		}
		result.DuesCreated = admission.Created + enrolled.Created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Student admitted",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("admission_number", result.Detail.Student.AdmissionNumber),
		zap.Int("dues_created", result.DuesCreated),
	)
	return result, nil
}

// UpdateStudent changes a student's category, notes and contact details
func (s *EnrollmentService) UpdateStudent(ctx context.Context, actor identity.Actor, studentID uuid.UUID, input UpdateStudentInput) (*StudentDetail, error) {
	err := s.txScope.Execute(ctx, func(repos txn.Repositories) error {
		st, err := s.loadStudent(ctx, repos, actor, studentID)
		if err != nil {
			return err
		}
		if input.Category != nil {
			if err := st.SetCategory(*input.Category); err != nil {
				return err
			}
		}
		if input.HasSiblings != nil {
			st.HasSiblings = *input.HasSiblings
		}
		if input.Notes != nil {
			st.Notes = strings.TrimSpace(*input.Notes)
		}
		st.Touch()
		if err := repos.Students().Save(ctx, st); err != nil {
			return err
		}

		if input.FullName == nil && input.Mobile == nil && input.WhatsApp == nil {
			return nil
		}
		profile, err := repos.Profiles().FindByUserID(ctx, st.UserID)
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
		return repos.Profiles().Save(ctx, profile)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Student updated", zap.String("student_id", studentID.String()))
	return s.GetStudent(ctx, actor, studentID)
}

// DeactivateStudent soft-deletes a student: an ACTIVE student becomes
// INACTIVE and the login account is disabled. Enrollments, dues and
// payments are kept.
func (s *EnrollmentService) DeactivateStudent(ctx context.Context, actor identity.Actor, studentID uuid.UUID) error {
	err := s.txScope.Execute(ctx, func(repos txn.Repositories) error {
		st, err := s.loadStudent(ctx, repos, actor, studentID)
		if err != nil {
			return err
		}
		if st.IsActive() {
			if err := st.ChangeStatus(student.StatusInactive); err != nil {
				return err
			}
			if err := repos.Students().Save(ctx, st); err != nil {
				return err
			}
		}
		user, err := repos.Users().FindByIDForTenant(ctx, actor.TenantID, st.UserID)
		if err != nil {
			return err
		}
		if !user.CanLogin() {
			return nil
		}
		user.Deactivate()
		return repos.Users().Save(ctx, user)
	})
	if err != nil {
		return err
	}
	s.logger.Info("Student deactivated",
		zap.String("tenant_id", actor.TenantID.String()),
		zap.String("student_id", studentID.String()),
	)
	return nil
}
