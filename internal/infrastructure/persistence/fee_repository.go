package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/fee"
	"github.com/madrasa/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormFeeTypeRepository implements FeeTypeRepository using GORM
type GormFeeTypeRepository struct {
	db *gorm.DB
}

// NewGormFeeTypeRepository creates a new GormFeeTypeRepository
func NewGormFeeTypeRepository(db *gorm.DB) *GormFeeTypeRepository {
	return &GormFeeTypeRepository{db: db}
}

// FindByIDForTenant finds a fee type by ID within a tenant
func (r *GormFeeTypeRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*fee.FeeType, error) {
	var ft fee.FeeType
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&ft).Error; err != nil {
		return nil, translateError(err)
	}
	return &ft, nil
}

// FindAllForTenant lists fee types by name
func (r *GormFeeTypeRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]fee.FeeType, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var types []fee.FeeType
	if err := query.Order("name ASC").Find(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}

// FindActiveByTrigger lists the active fee types charged on a trigger
func (r *GormFeeTypeRepository) FindActiveByTrigger(ctx context.Context, tenantID uuid.UUID, trigger fee.Trigger) ([]fee.FeeType, error) {
	var types []fee.FeeType
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND charge_trigger = ? AND is_active = ?", tenantID, trigger, true).
		Order("name ASC").
		Find(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}

// ExistsByName checks for a fee type with the same name, ignoring case
func (r *GormFeeTypeRepository) ExistsByName(ctx context.Context, tenantID uuid.UUID, name string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&fee.FeeType{}).
		Where("tenant_id = ? AND LOWER(name) = ?", tenantID, strings.ToLower(strings.TrimSpace(name))).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a fee type
func (r *GormFeeTypeRepository) Save(ctx context.Context, ft *fee.FeeType) error {
	return translateError(r.db.WithContext(ctx).Save(ft).Error)
}

// GormFeeStructureRepository implements FeeStructureRepository using GORM
type GormFeeStructureRepository struct {
	db *gorm.DB
}

// NewGormFeeStructureRepository creates a new GormFeeStructureRepository
func NewGormFeeStructureRepository(db *gorm.DB) *GormFeeStructureRepository {
	return &GormFeeStructureRepository{db: db}
}

// FindByIDForTenant finds a structure by ID within a tenant
func (r *GormFeeStructureRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*fee.FeeStructure, error) {
	var s fee.FeeStructure
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&s).Error; err != nil {
		return nil, translateError(err)
	}
	return &s, nil
}

// FindForScope returns the active structures of exactly one lookup level
func (r *GormFeeStructureRepository) FindForScope(ctx context.Context, tenantID, yearID, feeTypeID uuid.UUID, scope fee.StructureScope) ([]fee.FeeStructure, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND academic_year_id = ? AND fee_type_id = ? AND is_active = ?", tenantID, yearID, feeTypeID, true)
	query = nullableEquals(query, "branch_id", scope.BranchID)
	query = nullableEquals(query, "class_level_id", scope.ClassID)

	var structures []fee.FeeStructure
	if err := query.Order("effective_from DESC").Find(&structures).Error; err != nil {
		return nil, err
	}
	return structures, nil
}

// ListForYear lists every structure of a year
func (r *GormFeeStructureRepository) ListForYear(ctx context.Context, tenantID, yearID uuid.UUID) ([]fee.FeeStructure, error) {
	var structures []fee.FeeStructure
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND academic_year_id = ?", tenantID, yearID).
		Order("fee_type_id ASC").Order("effective_from DESC").
		Find(&structures).Error; err != nil {
		return nil, err
	}
	return structures, nil
}

// Save creates or updates a structure
func (r *GormFeeStructureRepository) Save(ctx context.Context, s *fee.FeeStructure) error {
	return translateError(r.db.WithContext(ctx).Save(s).Error)
}

func nullableEquals(query *gorm.DB, column string, id *uuid.UUID) *gorm.DB {
	if id == nil {
		return query.Where(column + " IS NULL")
	}
	return query.Where(column+" = ?", *id)
}

// GormStudentFeeConfigurationRepository implements StudentFeeConfigurationRepository using GORM
type GormStudentFeeConfigurationRepository struct {
	db *gorm.DB
}

// NewGormStudentFeeConfigurationRepository creates a new GormStudentFeeConfigurationRepository
func NewGormStudentFeeConfigurationRepository(db *gorm.DB) *GormStudentFeeConfigurationRepository {
	return &GormStudentFeeConfigurationRepository{db: db}
}

// Find returns the override of one student, year and fee type
func (r *GormStudentFeeConfigurationRepository) Find(ctx context.Context, tenantID, studentID, yearID, feeTypeID uuid.UUID) (*fee.StudentFeeConfiguration, error) {
	var c fee.StudentFeeConfiguration
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND student_id = ? AND academic_year_id = ? AND fee_type_id = ?", tenantID, studentID, yearID, feeTypeID).
		First(&c).Error; err != nil {
		return nil, translateError(err)
	}
	return &c, nil
}

// Save creates or updates an override
func (r *GormStudentFeeConfigurationRepository) Save(ctx context.Context, c *fee.StudentFeeConfiguration) error {
	return translateError(r.db.WithContext(ctx).Save(c).Error)
}

// GormDueRepository implements DueRepository using GORM
type GormDueRepository struct {
	db *gorm.DB
}

// NewGormDueRepository creates a new GormDueRepository
func NewGormDueRepository(db *gorm.DB) *GormDueRepository {
	return &GormDueRepository{db: db}
}

// FindByIDForTenant finds a due by ID within a tenant
func (r *GormDueRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*fee.StudentFeeDue, error) {
	var d fee.StudentFeeDue
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&d).Error; err != nil {
		return nil, translateError(err)
	}
	return &d, nil
}

// Exists checks whether a due with the key is already recorded
func (r *GormDueRepository) Exists(ctx context.Context, key fee.DueKey) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&fee.StudentFeeDue{}).
		Where("tenant_id = ? AND student_id = ? AND academic_year_id = ? AND fee_type_id = ? AND month = ? AND origin = ?",
			key.TenantID, key.StudentID, key.AcademicYearID, key.FeeTypeID, key.Month, key.Origin).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a due
func (r *GormDueRepository) Create(ctx context.Context, d *fee.StudentFeeDue) error {
	return translateError(r.db.WithContext(ctx).Create(d).Error)
}

// CreateIfAbsent inserts the due with ON CONFLICT DO NOTHING. A conflict
// leaves the transaction usable, unlike a failed plain insert on postgres.
func (r *GormDueRepository) CreateIfAbsent(ctx context.Context, d *fee.StudentFeeDue) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(d)
	if result.Error != nil {
		return false, translateError(result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Save updates a due
func (r *GormDueRepository) Save(ctx context.Context, d *fee.StudentFeeDue) error {
	return translateError(r.db.WithContext(ctx).Save(d).Error)
}

// FindForPaymentForUpdate locks the outstanding dues a payment may settle
func (r *GormDueRepository) FindForPaymentForUpdate(ctx context.Context, tenantID, studentID, yearID, feeTypeID uuid.UUID, month int) ([]fee.StudentFeeDue, error) {
	query := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND student_id = ? AND academic_year_id = ? AND fee_type_id = ? AND due_amount > 0",
			tenantID, studentID, yearID, feeTypeID)
	if month != fee.NoMonth {
		query = query.Where("month = ?", month)
	}

	var dues []fee.StudentFeeDue
	if err := query.Order("due_date ASC").Order("month ASC").Order("created_at ASC").Find(&dues).Error; err != nil {
		return nil, err
	}
	return dues, nil
}

// FindByIDsForUpdate locks the given dues in ID order
func (r *GormDueRepository) FindByIDsForUpdate(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]fee.StudentFeeDue, error) {
	if len(ids) == 0 {
		return []fee.StudentFeeDue{}, nil
	}
	var dues []fee.StudentFeeDue
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Order("id ASC").
		Find(&dues).Error; err != nil {
		return nil, err
	}
	return dues, nil
}

// ListForStudent lists a student's dues, optionally limited to one year
func (r *GormDueRepository) ListForStudent(ctx context.Context, tenantID, studentID uuid.UUID, yearID *uuid.UUID) ([]fee.StudentFeeDue, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ? AND student_id = ?", tenantID, studentID)
	if yearID != nil {
		query = query.Where("academic_year_id = ?", *yearID)
	}
	var dues []fee.StudentFeeDue
	if err := query.Order("due_date ASC").Order("month ASC").Find(&dues).Error; err != nil {
		return nil, err
	}
	return dues, nil
}

// FindOverdue lists unpaid dues whose due date has passed
func (r *GormDueRepository) FindOverdue(ctx context.Context, tenantID uuid.UUID, today time.Time) ([]fee.StudentFeeDue, error) {
	var dues []fee.StudentFeeDue
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND due_amount > 0 AND due_date < ?", tenantID, shared.DateOf(today)).
		Order("student_id ASC").Order("due_date ASC").
		Find(&dues).Error; err != nil {
		return nil, err
	}
	return dues, nil
}

// GormCollectionRepository implements CollectionRepository using GORM
type GormCollectionRepository struct {
	db *gorm.DB
}

// NewGormCollectionRepository creates a new GormCollectionRepository
func NewGormCollectionRepository(db *gorm.DB) *GormCollectionRepository {
	return &GormCollectionRepository{db: db}
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}

// FindByIDForTenant loads a collection with its items
func (r *GormCollectionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*fee.FeeCollection, error) {
	var c fee.FeeCollection
	if err := r.db.WithContext(ctx).
		Preload("Items", preloadItems).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&c).Error; err != nil {
		return nil, translateError(err)
	}
	return &c, nil
}

// FindByIDForUpdate locks the collection row and loads its items
func (r *GormCollectionRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*fee.FeeCollection, error) {
	var c fee.FeeCollection
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items", preloadItems).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&c).Error; err != nil {
		return nil, translateError(err)
	}
	return &c, nil
}

// ReceiptNumbersWithPrefix lists receipt numbers of one month prefix
func (r *GormCollectionRepository) ReceiptNumbersWithPrefix(ctx context.Context, tenantID uuid.UUID, prefix string) ([]string, error) {
	var numbers []string
	if err := r.db.WithContext(ctx).Model(&fee.FeeCollection{}).
		Where("tenant_id = ? AND receipt_number LIKE ? ESCAPE '\\'", tenantID, likePrefix(prefix)).
		Pluck("receipt_number", &numbers).Error; err != nil {
		return nil, err
	}
	return numbers, nil
}

// Create inserts the collection together with its items
func (r *GormCollectionRepository) Create(ctx context.Context, c *fee.FeeCollection) error {
	return translateError(r.db.WithContext(ctx).Create(c).Error)
}

// Save updates the collection row; items are immutable once created
func (r *GormCollectionRepository) Save(ctx context.Context, c *fee.FeeCollection) error {
	return translateError(r.db.WithContext(ctx).Omit(clause.Associations).Save(c).Error)
}

var (
	_ fee.FeeTypeRepository                 = (*GormFeeTypeRepository)(nil)
	_ fee.FeeStructureRepository            = (*GormFeeStructureRepository)(nil)
	_ fee.StudentFeeConfigurationRepository = (*GormStudentFeeConfigurationRepository)(nil)
	_ fee.DueRepository                     = (*GormDueRepository)(nil)
	_ fee.CollectionRepository              = (*GormCollectionRepository)(nil)
)
