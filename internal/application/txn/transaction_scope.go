// Package txn defines the unit of work shared by the application services.
package txn

import (
	"context"

	"github.com/madrasa/backend/internal/domain/fee"
	"github.com/madrasa/backend/internal/domain/identity"
	"github.com/madrasa/backend/internal/domain/notification"
	"github.com/madrasa/backend/internal/domain/numbering"
	"github.com/madrasa/backend/internal/domain/organization"
	"github.com/madrasa/backend/internal/domain/staff"
	"github.com/madrasa/backend/internal/domain/student"
)

// TransactionScope manages a unit of work that spans several repositories.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error the transaction is rolled back, otherwise it is committed.
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories gives access to every repository. Inside Execute all of
// them share the same transaction; outside they run on the root connection.
// Code inside Execute must only use the repositories it was handed.
type Repositories interface {
	Organizations() organization.OrganizationRepository
	Branches() organization.BranchRepository
	AcademicYears() organization.AcademicYearRepository
	ClassLevels() organization.ClassLevelRepository
	Divisions() organization.DivisionRepository

	Users() identity.UserRepository
	Profiles() identity.UserProfileRepository

	Students() student.StudentRepository
	Enrollments() student.EnrollmentRepository
	Registrations() student.RegistrationRepository
	StudentDetails() student.DetailsRepository

	Staff() staff.StaffRepository
	Assignments() staff.AssignmentRepository

	FeeTypes() fee.FeeTypeRepository
	FeeStructures() fee.FeeStructureRepository
	FeeConfigurations() fee.StudentFeeConfigurationRepository
	Dues() fee.DueRepository
	Collections() fee.CollectionRepository

	Emails() notification.EmailRepository
	Documents() notification.DocumentRepository

	Sequences() numbering.SequenceRepository
}
