package student

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/application/txn"
	"github.com/madrasa/backend/internal/domain/identity"
	"github.com/madrasa/backend/internal/domain/organization"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/madrasa/backend/internal/domain/student"
	"go.uber.org/zap"
)

// EnrollInput places a student in a class for a year
type EnrollInput struct {
	StudentID      uuid.UUID
	AcademicYearID uuid.UUID
	ClassID        uuid.UUID
	DivisionID     uuid.UUID
	EnrollmentDate time.Time
}

// PromoteInput is the placement of a promoted student in the next year
type PromoteInput struct {
	NextYearID uuid.UUID
	ClassID    uuid.UUID
	DivisionID uuid.UUID
	Remarks    string
}

// DetainInput keeps a student in the same class for the next year.
// DivisionID defaults to the current division.
type DetainInput struct {
	NextYearID uuid.UUID
	DivisionID *uuid.UUID
	Remarks    string
}

// TransitionInput closes an enrollment without a next-year row
type TransitionInput struct {
	Status  student.EnrollmentStatus
	Remarks string
}

// TransitionResult is the closed row and, for promotion and detention,
// the row created for the next year
type TransitionResult struct {
	Closed      *student.StudentEnrollment
	Next        *student.StudentEnrollment
	DuesCreated int
}

// StudentListFilter narrows the student listing. A nil year means the active year.
type StudentListFilter struct {
	AcademicYearID *uuid.UUID
	BranchID       *uuid.UUID
	ClassID        *uuid.UUID
	DivisionID     *uuid.UUID
	Status         student.EnrollmentStatus
}

// StudentDetail is the full record of one student
type StudentDetail struct {
	Student     *student.StudentProfile
	Profile     *identity.UserProfile
	Family      *student.StudentFamily
	Addresses   []student.UserAddress
	History     []student.StudentAcademicHistory
	Enrollments []student.StudentEnrollment
}

// studentStatusAfter maps a closing enrollment status to the student
// status it implies. Promotion and detention keep the student active.
var studentStatusAfter = map[student.EnrollmentStatus]student.Status{
	student.EnrollmentTransferred: student.StatusTransferred,
	student.EnrollmentDropped:     student.StatusDropped,
	student.EnrollmentCompleted:   student.StatusGraduated,
}

// EnrollmentService moves students through academic years
type EnrollmentService struct {
	repos   txn.Repositories
	txScope txn.TransactionScope
	dues    DueTrigger
	logger  *zap.Logger
	now     func() time.Time
}

// NewEnrollmentService creates a new EnrollmentService
func NewEnrollmentService(repos txn.Repositories, txScope txn.TransactionScope, dues DueTrigger, logger *zap.Logger) *EnrollmentService {
	return &EnrollmentService{
		repos:   repos,
		txScope: txScope,
		dues:    dues,
		logger:  logger,
		now:     time.Now,
	}
}

// Enroll creates the enrollment of a student for a year and raises its
// ON_ENROLLMENT dues. A second enrollment in the same year is ALREADY_EXISTS.
func (s *EnrollmentService) Enroll(ctx context.Context, actor identity.Actor, input EnrollInput) (*TransitionResult, error) {
	on := input.EnrollmentDate
	if on.IsZero() {
		on = s.now().UTC()
	}
	result := &TransitionResult{}
	err := s.txScope.Execute(ctx, func(repos txn.Repositories) error {
		st, err := s.loadStudent(ctx, repos, actor, input.StudentID)
		if err != nil {
			return err
		}
		year, err := repos.AcademicYears().FindByIDForTenant(ctx, actor.TenantID, input.AcademicYearID)
		if err != nil {
			return referenceError("academic_year_id", err)
		}
		if err := year.EnsureOpen(); err != nil {
			return err
		}
		if err := checkPlacement(ctx, repos, actor.TenantID, input.ClassID, input.DivisionID); err != nil {
			return err
		}
		next, created, err := s.openEnrollment(ctx, repos, actor, st, input.AcademicYearID, input.ClassID, input.DivisionID, on)
		if err != nil {
			return err
		}
		result.Next = next
		result.DuesCreated = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Student enrolled",
		zap.String("student_id", input.StudentID.String()),
		zap.String("academic_year_id", input.AcademicYearID.String()),
	)
	return result, nil
}

// Promote closes the enrollment as PROMOTED and enrolls the student in
// the next year's class
func (s *EnrollmentService) Promote(ctx context.Context, actor identity.Actor, studentID, enrollmentID uuid.UUID, input PromoteInput) (*TransitionResult, error) {
	return s.advance(ctx, actor, studentID, enrollmentID, student.EnrollmentPromoted, input.NextYearID, input.Remarks,
		func(*student.StudentEnrollment) (uuid.UUID, uuid.UUID) {
			return input.ClassID, input.DivisionID
		})
}

// Detain closes the enrollment as DETAINED and enrolls the student in the
// same class for the next year
func (s *EnrollmentService) Detain(ctx context.Context, actor identity.Actor, studentID, enrollmentID uuid.UUID, input DetainInput) (*TransitionResult, error) {
	return s.advance(ctx, actor, studentID, enrollmentID, student.EnrollmentDetained, input.NextYearID, input.Remarks,
		func(current *student.StudentEnrollment) (uuid.UUID, uuid.UUID) {
			division := current.DivisionID
			if input.DivisionID != nil {
				division = *input.DivisionID
			}
			return current.ClassID, division
		})
}

func (s *EnrollmentService) advance(
	ctx context.Context,
	actor identity.Actor,
	studentID, enrollmentID uuid.UUID,
	to student.EnrollmentStatus,
	nextYearID uuid.UUID,
	remarks string,
	placement func(*student.StudentEnrollment) (uuid.UUID, uuid.UUID),
) (*TransitionResult, error) {
	now := s.now().UTC()
	result := &TransitionResult{}
	err := s.txScope.Execute(ctx, func(repos txn.Repositories) error {
		st, current, year, err := s.loadOpen(ctx, repos, actor, studentID, enrollmentID)
		if err != nil {
			return err
		}
		nextYear, err := repos.AcademicYears().FindByIDForTenant(ctx, actor.TenantID, nextYearID)
		if err != nil {
			return referenceError("next_year_id", err)
		}
		if nextYear.ID == year.ID || !nextYear.StartDate.After(year.StartDate) {
			return shared.NewValidationError("next_year_id", "Next year must start after the current year")
		}
		classID, divisionID := placement(current)
		if err := checkPlacement(ctx, repos, actor.TenantID, classID, divisionID); err != nil {
			return err
		}

		if err := current.Transition(to, now); err != nil {
			return err
		}
		if remarks != "" {
			current.Remarks = remarks
		}
		next, created, err := s.openEnrollment(ctx, repos, actor, st, nextYear.ID, classID, divisionID, nextYear.StartDate)
		if err != nil {
			return err
		}
		current.LinkNext(next.ID)
		if err := repos.Enrollments().Save(ctx, current); err != nil {
			return err
		}
		*result = TransitionResult{Closed: current, Next: next, DuesCreated: created}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Enrollment advanced",
		zap.String("student_id", studentID.String()),
		zap.String("status", string(to)),
		zap.String("next_enrollment_id", result.Next.ID.String()),
	)
	return result, nil
}

// Transition closes an enrollment as TRANSFERRED, DROPPED or COMPLETED and
// updates the student status to match. Promotion and detention go through
// Promote and Detain because they need a next-year row.
func (s *EnrollmentService) Transition(ctx context.Context, actor identity.Actor, studentID, enrollmentID uuid.UUID, input TransitionInput) (*TransitionResult, error) {
	if !input.Status.IsTerminal() {
		return nil, shared.NewValidationError("status", "Target status must be TRANSFERRED, DROPPED or COMPLETED")
	}
	if input.Status == student.EnrollmentPromoted || input.Status == student.EnrollmentDetained {
		return nil, shared.NewValidationError("status", "Use promote or detain to move a student to the next year")
	}
	result := &TransitionResult{}
	err := s.txScope.Execute(ctx, func(repos txn.Repositories) error {
		st, current, _, err := s.loadOpen(ctx, repos, actor, studentID, enrollmentID)
		if err != nil {
			return err
		}
		if err := current.Transition(input.Status, s.now().UTC()); err != nil {
			return err
		}
		if input.Remarks != "" {
			current.Remarks = input.Remarks
		}
		if err := repos.Enrollments().Save(ctx, current); err != nil {
			return err
		}
		if status, ok := studentStatusAfter[input.Status]; ok {
			if err := st.ChangeStatus(status); err != nil {
				return err
			}
			if err := repos.Students().Save(ctx, st); err != nil {
				return err
			}
		}
		result.Closed = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Enrollment closed",
		zap.String("student_id", studentID.String()),
		zap.String("status", string(input.Status)),
	)
	return result, nil
}

// ListStudents pages through the enrollments of a year, limited to the
// branches the actor may see
func (s *EnrollmentService) ListStudents(ctx context.Context, actor identity.Actor, filter StudentListFilter, page shared.Filter) (*shared.Paginated[student.EnrollmentListItem], error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, shared.NewValidationError("status", "Unknown enrollment status")
	}
	branch, err := actor.BranchFilter(filter.BranchID)
	if err != nil {
		return nil, err
	}
	var yearID uuid.UUID
	if filter.AcademicYearID != nil {
		yearID = *filter.AcademicYearID
	} else {
		year, err := s.repos.AcademicYears().FindActive(ctx, actor.TenantID)
		if shared.IsNotFound(err) {
			return nil, organization.ErrNoActiveAcademicYear
		}
		if err != nil {
			return nil, err
		}
		yearID = year.ID
	}
	return s.repos.Enrollments().List(ctx, actor.TenantID, student.EnrollmentFilter{
		AcademicYearID: yearID,
		BranchID:       branch,
		ClassID:        filter.ClassID,
		DivisionID:     filter.DivisionID,
		Status:         filter.Status,
	}, page)
}

// GetStudent returns a student with profile, family, addresses, history
// and enrollments
func (s *EnrollmentService) GetStudent(ctx context.Context, actor identity.Actor, studentID uuid.UUID) (*StudentDetail, error) {
	st, err := s.loadStudent(ctx, s.repos, actor, studentID)
	if err != nil {
		return nil, err
	}
	detail := &StudentDetail{Student: st}
	if detail.Profile, err = s.repos.Profiles().FindByUserID(ctx, st.UserID); err != nil && !shared.IsNotFound(err) {
		return nil, err
	}
	if detail.Family, err = s.repos.StudentDetails().FindFamily(ctx, st.ID); err != nil && !shared.IsNotFound(err) {
		return nil, err
	}
	if detail.Addresses, err = s.repos.StudentDetails().FindAddresses(ctx, st.UserID); err != nil {
		return nil, err
	}
	if detail.History, err = s.repos.StudentDetails().FindAcademicHistory(ctx, st.ID); err != nil {
		return nil, err
	}
	if detail.Enrollments, err = s.repos.Enrollments().FindByStudent(ctx, actor.TenantID, st.ID); err != nil {
		return nil, err
	}
	return detail, nil
}

// loadStudent hides students of other branches as NOT_FOUND
func (s *EnrollmentService) loadStudent(ctx context.Context, repos txn.Repositories, actor identity.Actor, studentID uuid.UUID) (*student.StudentProfile, error) {
	st, err := repos.Students().FindByIDForTenant(ctx, actor.TenantID, studentID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessBranch(st.BranchID) {
		return nil, shared.ErrNotFound
	}
	return st, nil
}

// loadOpen loads an enrollment of the student whose year is still open
func (s *EnrollmentService) loadOpen(ctx context.Context, repos txn.Repositories, actor identity.Actor, studentID, enrollmentID uuid.UUID) (*student.StudentProfile, *student.StudentEnrollment, *organization.AcademicYear, error) {
	st, err := s.loadStudent(ctx, repos, actor, studentID)
	if err != nil {
		return nil, nil, nil, err
	}
	current, err := repos.Enrollments().FindByIDForTenant(ctx, actor.TenantID, enrollmentID)
	if err != nil {
		return nil, nil, nil, err
	}
	if current.StudentID != st.ID {
		return nil, nil, nil, shared.ErrNotFound
	}
	year, err := repos.AcademicYears().FindByIDForTenant(ctx, actor.TenantID, current.AcademicYearID)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := year.EnsureOpen(); err != nil {
		return nil, nil, nil, err
	}
	return st, current, year, nil
}

func (s *EnrollmentService) openEnrollment(ctx context.Context, repos txn.Repositories, actor identity.Actor, st *student.StudentProfile, yearID, classID, divisionID uuid.UUID, on time.Time) (*student.StudentEnrollment, int, error) {
	exists, err := repos.Enrollments().ExistsForStudentAndYear(ctx, actor.TenantID, st.ID, yearID)
	if err != nil {
		return nil, 0, err
	}
	if exists {
		return nil, 0, shared.ErrAlreadyExists.WithField("academic_year_id", "student is already enrolled in this year")
	}
	next, err := student.NewStudentEnrollment(actor.TenantID, st.ID, yearID, classID, divisionID, on)
	if err != nil {
		return nil, 0, err
	}
	next.SetCreatedBy(actor.UserID)
	if err := repos.Enrollments().Save(ctx, next); err != nil {
		return nil, 0, err
	}
	dues, err := s.dues.OnEnrollment(ctx, repos, st, next, on)
	if err != nil {
		return nil, 0, err
	}
	return next, dues.Created, nil
}
