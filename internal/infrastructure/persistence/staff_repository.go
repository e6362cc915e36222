package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/identity"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/madrasa/backend/internal/domain/staff"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStaffRepository implements StaffRepository using GORM
type GormStaffRepository struct {
	db *gorm.DB
}

// NewGormStaffRepository creates a new GormStaffRepository
func NewGormStaffRepository(db *gorm.DB) *GormStaffRepository {
	return &GormStaffRepository{db: db}
}

// FindByIDForTenant finds a staff member by ID within a tenant
func (r *GormStaffRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*staff.StaffProfile, error) {
	var s staff.StaffProfile
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&s).Error; err != nil {
		return nil, translateError(err)
	}
	return &s, nil
}

// FindByUserID finds the staff record of a login account
func (r *GormStaffRepository) FindByUserID(ctx context.Context, tenantID, userID uuid.UUID) (*staff.StaffProfile, error) {
	var s staff.StaffProfile
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND user_id = ?", tenantID, userID).
		First(&s).Error; err != nil {
		return nil, translateError(err)
	}
	return &s, nil
}

// StaffNumbersWithPrefix lists staff numbers under an organization prefix
func (r *GormStaffRepository) StaffNumbersWithPrefix(ctx context.Context, tenantID uuid.UUID, prefix string) ([]string, error) {
	var numbers []string
	if err := r.db.WithContext(ctx).Model(&staff.StaffProfile{}).
		Where("tenant_id = ? AND staff_number LIKE ? ESCAPE '\\'", tenantID, likePrefix(prefix)).
		Pluck("staff_number", &numbers).Error; err != nil {
		return nil, err
	}
	return numbers, nil
}

// List pages staff members, newest first unless page says otherwise.
// Search matches the staff number and the member's full name.
func (r *GormStaffRepository) List(ctx context.Context, tenantID uuid.UUID, f staff.StaffFilter, page shared.Filter) (*shared.Paginated[staff.StaffProfile], error) {
	page = page.Normalized()

	query := r.db.WithContext(ctx).Model(&staff.StaffProfile{}).Where("tenant_id = ?", tenantID)
	if f.BranchID != nil {
		query = query.Where("branch_id = ?", *f.BranchID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}
	if search := strings.TrimSpace(page.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(staff_number) LIKE ? OR user_id IN (?)", like,
			r.db.Model(&identity.UserProfile{}).Select("user_id").Where("LOWER(full_name) LIKE ?", like))
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	var members []staff.StaffProfile
	if err := query.
		Order(ValidateSortField(page.OrderBy, StaffSortFields, "created_at") + " " + ValidateSortOrder(page.OrderDir)).
		Order("id ASC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&members).Error; err != nil {
		return nil, err
	}

	result := shared.NewPaginated(members, total, page.Page, page.PageSize)
	return &result, nil
}

// Save creates or updates a staff member
func (r *GormStaffRepository) Save(ctx context.Context, s *staff.StaffProfile) error {
	return translateError(r.db.WithContext(ctx).Save(s).Error)
}

// GormAssignmentRepository implements AssignmentRepository using GORM
type GormAssignmentRepository struct {
	db *gorm.DB
}

// NewGormAssignmentRepository creates a new GormAssignmentRepository
func NewGormAssignmentRepository(db *gorm.DB) *GormAssignmentRepository {
	return &GormAssignmentRepository{db: db}
}

// FindByIDForTenant finds an assignment by ID within a tenant
func (r *GormAssignmentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*staff.TeacherAssignment, error) {
	var a staff.TeacherAssignment
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&a).Error; err != nil {
		return nil, translateError(err)
	}
	return &a, nil
}

// LockOpenForSlot loads the active assignments of a class slot FOR UPDATE
func (r *GormAssignmentRepository) LockOpenForSlot(ctx context.Context, tenantID uuid.UUID, slot staff.SlotKey) ([]staff.TeacherAssignment, error) {
	var assignments []staff.TeacherAssignment
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND branch_id = ? AND academic_year_id = ? AND class_assigned_id = ? AND division_assigned_id = ? AND is_active = ? AND end_date IS NULL",
			tenantID, slot.BranchID, slot.AcademicYearID, slot.ClassID, slot.DivisionID, true).
		Order("start_date ASC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

// List returns assignments matching the filter, newest start first
func (r *GormAssignmentRepository) List(ctx context.Context, tenantID uuid.UUID, f staff.AssignmentFilter) ([]staff.TeacherAssignment, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if f.TeacherID != nil {
		query = query.Where("teacher_id = ?", *f.TeacherID)
	}
	if f.BranchID != nil {
		query = query.Where("branch_id = ?", *f.BranchID)
	}
	if f.AcademicYearID != nil {
		query = query.Where("academic_year_id = ?", *f.AcademicYearID)
	}
	if f.ClassID != nil {
		query = query.Where("class_assigned_id = ?", *f.ClassID)
	}
	if f.DivisionID != nil {
		query = query.Where("division_assigned_id = ?", *f.DivisionID)
	}
	if f.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	var assignments []staff.TeacherAssignment
	if err := query.Order("start_date DESC").Order("id ASC").Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

// Save creates or updates an assignment
func (r *GormAssignmentRepository) Save(ctx context.Context, a *staff.TeacherAssignment) error {
	return translateError(r.db.WithContext(ctx).Save(a).Error)
}

var (
	_ staff.StaffRepository      = (*GormStaffRepository)(nil)
	_ staff.AssignmentRepository = (*GormAssignmentRepository)(nil)
)
