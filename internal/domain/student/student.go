package student

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/numbering"
	"github.com/madrasa/backend/internal/domain/shared"
)

// Category is the study type of a student. Fee structures filter on it.
type Category string

const (
	CategoryPermanent Category = "PERMANENT"
	CategoryTemporary Category = "TEMPORARY"
)

// IsValid checks if the category is known
func (c Category) IsValid() bool {
	return c == CategoryPermanent || c == CategoryTemporary
}

// Status is the overall lifecycle status of a student
type Status string

const (
	StatusActive      Status = "ACTIVE"
	StatusInactive    Status = "INACTIVE"
	StatusGraduated   Status = "GRADUATED"
	StatusTransferred Status = "TRANSFERRED"
	StatusDropped     Status = "DROPPED"
)

// IsValid checks if the status is known
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusGraduated, StatusTransferred, StatusDropped:
		return true
	}
	return false
}

// StudentProfile is the master record of a student. Year-specific data
// lives in StudentEnrollment.
type StudentProfile struct {
	shared.TenantAggregateRoot
	UserID          uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex"`
	RegistrationID  *uuid.UUID `gorm:"type:uuid"`
	AdmissionNumber string     `gorm:"type:varchar(20);index"`
	Category        Category   `gorm:"type:varchar(20);not null"`
	Status          Status     `gorm:"type:varchar(20);not null;default:'INACTIVE';index"`
	BranchID        uuid.UUID  `gorm:"type:uuid;not null;index"`
	HasSiblings     bool       `gorm:"not null;default:false"`
	Notes           string     `gorm:"type:text"`
	ActivatedAt     *time.Time
	ActivatedBy     *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (StudentProfile) TableName() string {
	return "student_profiles"
}

// NewStudentProfile creates an inactive student without an admission number
func NewStudentProfile(tenantID, userID, branchID uuid.UUID, category Category) (*StudentProfile, error) {
	if userID == uuid.Nil {
		return nil, shared.NewValidationError("user_id", "User is required")
	}
	if branchID == uuid.Nil {
		return nil, shared.NewValidationError("branch_id", "Branch is required")
	}
	if !category.IsValid() {
		return nil, shared.NewValidationError("category", "Category must be PERMANENT or TEMPORARY")
	}
	return &StudentProfile{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		UserID:              userID,
		Category:            category,
		Status:              StatusInactive,
		BranchID:            branchID,
	}, nil
}

// HasAdmissionNumber reports whether the number has been assigned
func (s *StudentProfile) HasAdmissionNumber() bool {
	return s.AdmissionNumber != ""
}

// AssignAdmissionNumber sets the admission number once
func (s *StudentProfile) AssignAdmissionNumber(number string) error {
	if s.HasAdmissionNumber() {
		return numbering.ErrIdentifierAlreadyAssigned
	}
	number = strings.TrimSpace(number)
	if number == "" {
		return shared.NewValidationError("admission_number", "Admission number is required")
	}
	s.AdmissionNumber = number
	s.IncrementVersion()
	return nil
}

// Activate marks the student ACTIVE and records who did it
func (s *StudentProfile) Activate(by uuid.UUID, at time.Time) {
	s.Status = StatusActive
	s.ActivatedAt = &at
	s.ActivatedBy = &by
	s.IncrementVersion()
}

// ChangeStatus moves the student to another lifecycle status
func (s *StudentProfile) ChangeStatus(status Status) error {
	if !status.IsValid() {
		return shared.NewValidationError("status", "Unknown student status")
	}
	if s.Status == status {
		return nil
	}
	s.Status = status
	s.IncrementVersion()
	return nil
}

// SetCategory changes between permanent and temporary study
func (s *StudentProfile) SetCategory(category Category) error {
	if !category.IsValid() {
		return shared.NewValidationError("category", "Category must be PERMANENT or TEMPORARY")
	}
	s.Category = category
	s.IncrementVersion()
	return nil
}

// IsActive reports whether the student is ACTIVE
func (s *StudentProfile) IsActive() bool {
	return s.Status == StatusActive
}
