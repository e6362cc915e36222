package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/madrasa/backend/internal/domain/student"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStudentRepository implements StudentRepository using GORM
type GormStudentRepository struct {
	db *gorm.DB
}

// NewGormStudentRepository creates a new GormStudentRepository
func NewGormStudentRepository(db *gorm.DB) *GormStudentRepository {
	return &GormStudentRepository{db: db}
}

// FindByIDForTenant finds a student by ID within a tenant
func (r *GormStudentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*student.StudentProfile, error) {
	var s student.StudentProfile
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&s).Error; err != nil {
		return nil, translateError(err)
	}
	return &s, nil
}

// FindByIDsForTenant finds several students of a tenant
func (r *GormStudentRepository) FindByIDsForTenant(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]student.StudentProfile, error) {
	if len(ids) == 0 {
		return []student.StudentProfile{}, nil
	}
	var students []student.StudentProfile
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&students).Error; err != nil {
		return nil, err
	}
	return students, nil
}

// FindByUserID finds the student record of a login account
func (r *GormStudentRepository) FindByUserID(ctx context.Context, tenantID, userID uuid.UUID) (*student.StudentProfile, error) {
	var s student.StudentProfile
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND user_id = ?", tenantID, userID).
		First(&s).Error; err != nil {
		return nil, translateError(err)
	}
	return &s, nil
}

// AdmissionNumbersWithPrefix lists admission numbers under a branch prefix
func (r *GormStudentRepository) AdmissionNumbersWithPrefix(ctx context.Context, tenantID uuid.UUID, prefix string) ([]string, error) {
	var numbers []string
	if err := r.db.WithContext(ctx).Model(&student.StudentProfile{}).
		Where("tenant_id = ? AND admission_number LIKE ? ESCAPE '\\'", tenantID, likePrefix(prefix)).
		Pluck("admission_number", &numbers).Error; err != nil {
		return nil, err
	}
	return numbers, nil
}

// Save creates or updates a student
func (r *GormStudentRepository) Save(ctx context.Context, s *student.StudentProfile) error {
	return translateError(r.db.WithContext(ctx).Save(s).Error)
}

// GormEnrollmentRepository implements EnrollmentRepository using GORM
type GormEnrollmentRepository struct {
	db *gorm.DB
}

// NewGormEnrollmentRepository creates a new GormEnrollmentRepository
func NewGormEnrollmentRepository(db *gorm.DB) *GormEnrollmentRepository {
	return &GormEnrollmentRepository{db: db}
}

// FindByIDForTenant finds an enrollment by ID within a tenant
func (r *GormEnrollmentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*student.StudentEnrollment, error) {
	var e student.StudentEnrollment
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&e).Error; err != nil {
		return nil, translateError(err)
	}
	return &e, nil
}

// FindByStudentAndYear finds the enrollment of a student in one year
func (r *GormEnrollmentRepository) FindByStudentAndYear(ctx context.Context, tenantID, studentID, yearID uuid.UUID) (*student.StudentEnrollment, error) {
	var e student.StudentEnrollment
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND student_id = ? AND academic_year_id = ?", tenantID, studentID, yearID).
		First(&e).Error; err != nil {
		return nil, translateError(err)
	}
	return &e, nil
}

// FindByStudent returns the enrollment history of a student, oldest first
func (r *GormEnrollmentRepository) FindByStudent(ctx context.Context, tenantID, studentID uuid.UUID) ([]student.StudentEnrollment, error) {
	var enrollments []student.StudentEnrollment
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND student_id = ?", tenantID, studentID).
		Order("enrollment_date ASC").
		Find(&enrollments).Error; err != nil {
		return nil, err
	}
	return enrollments, nil
}

// ExistsForStudentAndYear checks if a student already has a row for the year
func (r *GormEnrollmentRepository) ExistsForStudentAndYear(ctx context.Context, tenantID, studentID, yearID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&student.StudentEnrollment{}).
		Where("tenant_id = ? AND student_id = ? AND academic_year_id = ?", tenantID, studentID, yearID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindEnrolledForYear returns the ENROLLED rows of a year
func (r *GormEnrollmentRepository) FindEnrolledForYear(ctx context.Context, tenantID, yearID uuid.UUID) ([]student.StudentEnrollment, error) {
	var enrollments []student.StudentEnrollment
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND academic_year_id = ? AND enrollment_status = ?", tenantID, yearID, student.EnrollmentEnrolled).
		Order("student_id ASC").
		Find(&enrollments).Error; err != nil {
		return nil, err
	}
	return enrollments, nil
}

var enrollmentListSortColumns = map[string]string{
	"full_name":        "up.full_name",
	"admission_number": "sp.admission_number",
	"created_at":       "se.created_at",
	"enrollment_date":  "se.enrollment_date",
}

// List pages the enrollments of a year joined with the student's name.
// Search matches the name or the admission number.
func (r *GormEnrollmentRepository) List(ctx context.Context, tenantID uuid.UUID, f student.EnrollmentFilter, page shared.Filter) (*shared.Paginated[student.EnrollmentListItem], error) {
	page = page.Normalized()

	query := r.db.WithContext(ctx).
		Table("student_enrollments AS se").
		Joins("JOIN student_profiles sp ON sp.id = se.student_id").
		Joins("LEFT JOIN user_profiles up ON up.user_id = sp.user_id").
		Where("se.tenant_id = ? AND se.academic_year_id = ?", tenantID, f.AcademicYearID)

	if f.BranchID != nil {
		query = query.Where("sp.branch_id = ?", *f.BranchID)
	}
	if f.ClassID != nil {
		query = query.Where("se.class_assigned_id = ?", *f.ClassID)
	}
	if f.DivisionID != nil {
		query = query.Where("se.division_assigned_id = ?", *f.DivisionID)
	}
	if f.Status != "" {
		query = query.Where("se.enrollment_status = ?", f.Status)
	}
	if search := strings.TrimSpace(page.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(up.full_name) LIKE ? OR LOWER(sp.admission_number) LIKE ?", like, like)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	column, ok := enrollmentListSortColumns[page.OrderBy]
	if !ok {
		column = "sp.admission_number"
	}

	items := make([]student.EnrollmentListItem, 0, page.PageSize)
	if err := query.
		Select(`se.id AS enrollment_id, sp.id AS student_id, sp.admission_number,
			COALESCE(up.full_name, '') AS full_name, sp.branch_id,
			se.class_assigned_id AS class_id, se.division_assigned_id AS division_id,
			sp.category, sp.status AS student_status, se.enrollment_status AS status`).
		Order(column + " " + ValidateSortOrder(page.OrderDir)).
		Order("se.id ASC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Scan(&items).Error; err != nil {
		return nil, err
	}

	result := shared.NewPaginated(items, total, page.Page, page.PageSize)
	return &result, nil
}

// Save creates or updates an enrollment
func (r *GormEnrollmentRepository) Save(ctx context.Context, e *student.StudentEnrollment) error {
	return translateError(r.db.WithContext(ctx).Save(e).Error)
}

// GormRegistrationRepository implements RegistrationRepository using GORM
type GormRegistrationRepository struct {
	db *gorm.DB
}

// NewGormRegistrationRepository creates a new GormRegistrationRepository
func NewGormRegistrationRepository(db *gorm.DB) *GormRegistrationRepository {
	return &GormRegistrationRepository{db: db}
}

// FindByIDForTenant finds a registration by ID within a tenant
func (r *GormRegistrationRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*student.StudentRegistration, error) {
	var reg student.StudentRegistration
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&reg).Error; err != nil {
		return nil, translateError(err)
	}
	return &reg, nil
}

// FindByIDForUpdate loads a registration with FOR UPDATE so two reviewers
// cannot approve it concurrently
func (r *GormRegistrationRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*student.StudentRegistration, error) {
	var reg student.StudentRegistration
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&reg).Error; err != nil {
		return nil, translateError(err)
	}
	return &reg, nil
}

// List pages registrations, newest submission first unless page says otherwise
func (r *GormRegistrationRepository) List(ctx context.Context, tenantID uuid.UUID, status student.RegistrationStatus, branchID *uuid.UUID, page shared.Filter) (*shared.Paginated[student.StudentRegistration], error) {
	page = page.Normalized()

	query := r.db.WithContext(ctx).Model(&student.StudentRegistration{}).Where("tenant_id = ?", tenantID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if branchID != nil {
		query = query.Where("interested_branch_id = ?", *branchID)
	}
	if search := strings.TrimSpace(page.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(student_name) LIKE ? OR LOWER(father_name) LIKE ?", like, like)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	var regs []student.StudentRegistration
	if err := query.
		Order(ValidateSortField(page.OrderBy, RegistrationSortFields, "submitted_at") + " " + ValidateSortOrder(page.OrderDir)).
		Order("id ASC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&regs).Error; err != nil {
		return nil, err
	}

	result := shared.NewPaginated(regs, total, page.Page, page.PageSize)
	return &result, nil
}

// Save creates or updates a registration
func (r *GormRegistrationRepository) Save(ctx context.Context, reg *student.StudentRegistration) error {
	return translateError(r.db.WithContext(ctx).Save(reg).Error)
}

// GormStudentDetailsRepository implements DetailsRepository using GORM
type GormStudentDetailsRepository struct {
	db *gorm.DB
}

// NewGormStudentDetailsRepository creates a new GormStudentDetailsRepository
func NewGormStudentDetailsRepository(db *gorm.DB) *GormStudentDetailsRepository {
	return &GormStudentDetailsRepository{db: db}
}

// SaveFamily creates or updates the family row of a student
func (r *GormStudentDetailsRepository) SaveFamily(ctx context.Context, f *student.StudentFamily) error {
	return translateError(r.db.WithContext(ctx).Save(f).Error)
}

// FindFamily finds the family row of a student
func (r *GormStudentDetailsRepository) FindFamily(ctx context.Context, studentID uuid.UUID) (*student.StudentFamily, error) {
	var f student.StudentFamily
	if err := r.db.WithContext(ctx).Where("student_id = ?", studentID).First(&f).Error; err != nil {
		return nil, translateError(err)
	}
	return &f, nil
}

// FindFamilies finds the family rows of several students
func (r *GormStudentDetailsRepository) FindFamilies(ctx context.Context, studentIDs []uuid.UUID) ([]student.StudentFamily, error) {
	if len(studentIDs) == 0 {
		return []student.StudentFamily{}, nil
	}
	var families []student.StudentFamily
	if err := r.db.WithContext(ctx).Where("student_id IN ?", studentIDs).Find(&families).Error; err != nil {
		return nil, err
	}
	return families, nil
}

// SaveAddress creates or updates an address
func (r *GormStudentDetailsRepository) SaveAddress(ctx context.Context, a *student.UserAddress) error {
	return translateError(r.db.WithContext(ctx).Save(a).Error)
}

// FindAddresses lists the addresses of a user
func (r *GormStudentDetailsRepository) FindAddresses(ctx context.Context, userID uuid.UUID) ([]student.UserAddress, error) {
	var addresses []student.UserAddress
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("address_type ASC").
		Find(&addresses).Error; err != nil {
		return nil, err
	}
	return addresses, nil
}

// SaveAcademicHistory creates or updates a prior-study record
func (r *GormStudentDetailsRepository) SaveAcademicHistory(ctx context.Context, h *student.StudentAcademicHistory) error {
	return translateError(r.db.WithContext(ctx).Save(h).Error)
}

// FindAcademicHistory lists the prior-study records of a student
func (r *GormStudentDetailsRepository) FindAcademicHistory(ctx context.Context, studentID uuid.UUID) ([]student.StudentAcademicHistory, error) {
	var history []student.StudentAcademicHistory
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at ASC").
		Find(&history).Error; err != nil {
		return nil, err
	}
	return history, nil
}

// likePrefix escapes LIKE wildcards so a prefix only matches literally
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

var (
	_ student.StudentRepository      = (*GormStudentRepository)(nil)
	_ student.EnrollmentRepository   = (*GormEnrollmentRepository)(nil)
	_ student.RegistrationRepository = (*GormRegistrationRepository)(nil)
	_ student.DetailsRepository      = (*GormStudentDetailsRepository)(nil)
)
