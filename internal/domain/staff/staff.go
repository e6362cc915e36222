package staff

import (
	"strings"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/numbering"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Category is the employment category of a staff member
type Category string

const (
	CategoryPermanent Category = "PERMANENT"
	CategoryTemporary Category = "TEMPORARY"
)

// Status is the employment status of a staff member
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// StaffProfile holds employment details of a staff user
type StaffProfile struct {
	shared.TenantAggregateRoot
	UserID                   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	StaffNumber              string          `gorm:"type:varchar(20);index"`
	Category                 Category        `gorm:"type:varchar(20);not null"`
	Status                   Status          `gorm:"type:varchar(20);not null;default:'INACTIVE';index"`
	BranchID                 *uuid.UUID      `gorm:"type:uuid;index"`
	AssignedHeadTeacherID    *uuid.UUID      `gorm:"type:uuid"`
	MonthlySalary            decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	ReligiousAcademicDetails string          `gorm:"type:text"`
	AcademicDetails          string          `gorm:"type:text"`
	PreviousMadrasa          string          `gorm:"type:varchar(200)"`
	MSRNumber                string          `gorm:"column:msr_number;type:varchar(50)"`
	AadharNumber             string          `gorm:"type:varchar(12)"`
	Notes                    string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (StaffProfile) TableName() string {
	return "staff_profiles"
}

// NewStaffProfile creates an INACTIVE staff profile without a staff number
func NewStaffProfile(tenantID, userID uuid.UUID, category Category, salary decimal.Decimal) (*StaffProfile, error) {
	if userID == uuid.Nil {
		return nil, shared.NewValidationError("user_id", "User is required")
	}
	if category != CategoryPermanent && category != CategoryTemporary {
		return nil, shared.NewValidationError("category", "Category must be PERMANENT or TEMPORARY")
	}
	if salary.IsNegative() {
		return nil, shared.NewValidationError("monthly_salary", "Salary cannot be negative")
	}
	return &StaffProfile{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		UserID:              userID,
		Category:            category,
		Status:              StatusInactive,
		MonthlySalary:       salary.Round(2),
	}, nil
}

// AssignStaffNumber sets the staff number once
func (s *StaffProfile) AssignStaffNumber(number string) error {
	if s.StaffNumber != "" {
		return numbering.ErrIdentifierAlreadyAssigned
	}
	number = strings.TrimSpace(number)
	if number == "" {
		return shared.NewValidationError("staff_number", "Staff number is required")
	}
	s.StaffNumber = number
	s.IncrementVersion()
	return nil
}

// AssignBranch places the staff member in a branch
func (s *StaffProfile) AssignBranch(branchID *uuid.UUID) {
	s.BranchID = branchID
	s.IncrementVersion()
}

// SetStatus activates or deactivates the staff member
func (s *StaffProfile) SetStatus(status Status) error {
	if status != StatusActive && status != StatusInactive {
		return shared.NewValidationError("status", "Status must be ACTIVE or INACTIVE")
	}
	s.Status = status
	s.IncrementVersion()
	return nil
}

// SetCategory changes the employment category
func (s *StaffProfile) SetCategory(category Category) error {
	if category != CategoryPermanent && category != CategoryTemporary {
		return shared.NewValidationError("category", "Category must be PERMANENT or TEMPORARY")
	}
	s.Category = category
	s.IncrementVersion()
	return nil
}

// SetSalary changes the monthly salary
func (s *StaffProfile) SetSalary(salary decimal.Decimal) error {
	if salary.IsNegative() {
		return shared.NewValidationError("monthly_salary", "Salary cannot be negative")
	}
	s.MonthlySalary = salary.Round(2)
	s.IncrementVersion()
	return nil
}

// IsActive reports whether the staff member is ACTIVE
func (s *StaffProfile) IsActive() bool {
	return s.Status == StatusActive
}
