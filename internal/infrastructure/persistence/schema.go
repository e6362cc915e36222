package persistence

import (
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/fee"
	"github.com/madrasa/backend/internal/domain/identity"
	"github.com/madrasa/backend/internal/domain/notification"
	"github.com/madrasa/backend/internal/domain/organization"
	"github.com/madrasa/backend/internal/domain/staff"
	"github.com/madrasa/backend/internal/domain/student"
	"gorm.io/gorm"
)

// identifierSequence is the counter row behind admission, staff and
// receipt numbers
type identifierSequence struct {
	TenantID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	ScopeKey  string    `gorm:"type:varchar(60);primaryKey"`
	LastValue int64     `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (identifierSequence) TableName() string {
	return "identifier_sequences"
}

// Models lists every persisted type. The SQL migrations are the source of
// truth in deployed databases; AutoMigrate over this list builds the
// schema for tests.
func Models() []any {
	return []any{
		&organization.Organization{},
		&organization.Branch{},
		&organization.AcademicYear{},
		&organization.ClassLevel{},
		&organization.Division{},
		&identity.User{},
		&identity.UserProfile{},
		&student.StudentProfile{},
		&student.StudentEnrollment{},
		&student.StudentRegistration{},
		&student.StudentFamily{},
		&student.UserAddress{},
		&student.StudentAcademicHistory{},
		&staff.StaffProfile{},
		&staff.TeacherAssignment{},
		&fee.FeeType{},
		&fee.FeeStructure{},
		&fee.StudentFeeConfiguration{},
		&fee.StudentFeeDue{},
		&fee.FeeCollection{},
		&fee.FeeCollectionItem{},
		&notification.EmailNotification{},
		&notification.DocumentUpload{},
		&identifierSequence{},
	}
}

// partialIndexes are the filtered unique indexes struct tags cannot express.
// The statements are valid on postgres and sqlite.
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_teacher_assignments_open_primary
		ON teacher_assignments (tenant_id, branch_id, academic_year_id, class_assigned_id, division_assigned_id)
		WHERE is_active AND is_primary`,
}

// AutoMigrate creates or updates the tables of every model
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return err
	}
	for _, stmt := range partialIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
