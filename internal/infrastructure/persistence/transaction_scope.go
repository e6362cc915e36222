package persistence

import (
	"context"

	"github.com/madrasa/backend/internal/application/txn"
	"github.com/madrasa/backend/internal/domain/fee"
	"github.com/madrasa/backend/internal/domain/identity"
	"github.com/madrasa/backend/internal/domain/notification"
	"github.com/madrasa/backend/internal/domain/numbering"
	"github.com/madrasa/backend/internal/domain/organization"
	"github.com/madrasa/backend/internal/domain/staff"
	"github.com/madrasa/backend/internal/domain/student"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction.
// If fn returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos txn.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// gormRepositories hands out repositories bound to one connection or transaction
type gormRepositories struct {
	db *gorm.DB
}

// NewRepositories returns repositories running on db. Passing the root
// connection gives the non-transactional set used for reads.
func NewRepositories(db *gorm.DB) txn.Repositories {
	return &gormRepositories{db: db}
}

func (r *gormRepositories) Organizations() organization.OrganizationRepository {
	return NewGormOrganizationRepository(r.db)
}

func (r *gormRepositories) Branches() organization.BranchRepository {
	return NewGormBranchRepository(r.db)
}

func (r *gormRepositories) AcademicYears() organization.AcademicYearRepository {
	return NewGormAcademicYearRepository(r.db)
}

func (r *gormRepositories) ClassLevels() organization.ClassLevelRepository {
	return NewGormClassLevelRepository(r.db)
}

func (r *gormRepositories) Divisions() organization.DivisionRepository {
	return NewGormDivisionRepository(r.db)
}

func (r *gormRepositories) Users() identity.UserRepository {
	return NewGormUserRepository(r.db)
}

func (r *gormRepositories) Profiles() identity.UserProfileRepository {
	return NewGormUserProfileRepository(r.db)
}

func (r *gormRepositories) Students() student.StudentRepository {
	return NewGormStudentRepository(r.db)
}

func (r *gormRepositories) Enrollments() student.EnrollmentRepository {
	return NewGormEnrollmentRepository(r.db)
}

func (r *gormRepositories) Registrations() student.RegistrationRepository {
	return NewGormRegistrationRepository(r.db)
}

func (r *gormRepositories) StudentDetails() student.DetailsRepository {
	return NewGormStudentDetailsRepository(r.db)
}

func (r *gormRepositories) Staff() staff.StaffRepository {
	return NewGormStaffRepository(r.db)
}

func (r *gormRepositories) Assignments() staff.AssignmentRepository {
	return NewGormAssignmentRepository(r.db)
}

func (r *gormRepositories) FeeTypes() fee.FeeTypeRepository {
	return NewGormFeeTypeRepository(r.db)
}

func (r *gormRepositories) FeeStructures() fee.FeeStructureRepository {
	return NewGormFeeStructureRepository(r.db)
}

func (r *gormRepositories) FeeConfigurations() fee.StudentFeeConfigurationRepository {
	return NewGormStudentFeeConfigurationRepository(r.db)
}

func (r *gormRepositories) Dues() fee.DueRepository {
	return NewGormDueRepository(r.db)
}

func (r *gormRepositories) Collections() fee.CollectionRepository {
	return NewGormCollectionRepository(r.db)
}

func (r *gormRepositories) Emails() notification.EmailRepository {
	return NewGormEmailRepository(r.db)
}

func (r *gormRepositories) Documents() notification.DocumentRepository {
	return NewGormDocumentRepository(r.db)
}

func (r *gormRepositories) Sequences() numbering.SequenceRepository {
	return NewGormSequenceRepository(r.db)
}

var (
	_ txn.TransactionScope = (*GormTransactionScope)(nil)
	_ txn.Repositories     = (*gormRepositories)(nil)
)
