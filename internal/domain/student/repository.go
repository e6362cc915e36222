package student

import (
	"context"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/shared"
)

// StudentRepository persists student profiles
type StudentRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*StudentProfile, error)
	FindByIDsForTenant(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]StudentProfile, error)
	FindByUserID(ctx context.Context, tenantID, userID uuid.UUID) (*StudentProfile, error)
	// AdmissionNumbersWithPrefix lists the tenant's admission numbers starting with prefix
	AdmissionNumbersWithPrefix(ctx context.Context, tenantID uuid.UUID, prefix string) ([]string, error)
	Save(ctx context.Context, s *StudentProfile) error
}

// EnrollmentFilter narrows the enrollment listing
type EnrollmentFilter struct {
	AcademicYearID uuid.UUID
	BranchID       *uuid.UUID
	ClassID        *uuid.UUID
	DivisionID     *uuid.UUID
	Status         EnrollmentStatus
}

// EnrollmentListItem is one row of the student listing
type EnrollmentListItem struct {
	EnrollmentID    uuid.UUID        `json:"enrollment_id"`
	StudentID       uuid.UUID        `json:"student_id"`
	AdmissionNumber string           `json:"admission_number"`
	FullName        string           `json:"full_name"`
	BranchID        uuid.UUID        `json:"branch_id"`
	ClassID         uuid.UUID        `json:"class_id"`
	DivisionID      uuid.UUID        `json:"division_id"`
	Category        Category         `json:"category"`
	StudentStatus   Status           `json:"student_status"`
	Status          EnrollmentStatus `json:"enrollment_status"`
}

// EnrollmentRepository persists enrollments
type EnrollmentRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*StudentEnrollment, error)
	FindByStudentAndYear(ctx context.Context, tenantID, studentID, yearID uuid.UUID) (*StudentEnrollment, error)
	FindByStudent(ctx context.Context, tenantID, studentID uuid.UUID) ([]StudentEnrollment, error)
	ExistsForStudentAndYear(ctx context.Context, tenantID, studentID, yearID uuid.UUID) (bool, error)
	// FindEnrolledForYear returns every ENROLLED row of the year
	FindEnrolledForYear(ctx context.Context, tenantID, yearID uuid.UUID) ([]StudentEnrollment, error)
	List(ctx context.Context, tenantID uuid.UUID, f EnrollmentFilter, page shared.Filter) (*shared.Paginated[EnrollmentListItem], error)
	Save(ctx context.Context, e *StudentEnrollment) error
}

// RegistrationRepository persists registrations
type RegistrationRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*StudentRegistration, error)
	// FindByIDForUpdate loads the row with a lock. Must be called inside a transaction.
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*StudentRegistration, error)
	List(ctx context.Context, tenantID uuid.UUID, status RegistrationStatus, branchID *uuid.UUID, page shared.Filter) (*shared.Paginated[StudentRegistration], error)
	Save(ctx context.Context, r *StudentRegistration) error
}

// DetailsRepository persists the family, address and history rows around a student
type DetailsRepository interface {
	SaveFamily(ctx context.Context, f *StudentFamily) error
	FindFamily(ctx context.Context, studentID uuid.UUID) (*StudentFamily, error)
	FindFamilies(ctx context.Context, studentIDs []uuid.UUID) ([]StudentFamily, error)
	SaveAddress(ctx context.Context, a *UserAddress) error
	FindAddresses(ctx context.Context, userID uuid.UUID) ([]UserAddress, error)
	SaveAcademicHistory(ctx context.Context, h *StudentAcademicHistory) error
	FindAcademicHistory(ctx context.Context, studentID uuid.UUID) ([]StudentAcademicHistory, error)
}
