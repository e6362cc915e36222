package staff

import (
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/shared"
)

// AssignmentType is the role a teacher plays in a class
type AssignmentType string

const (
	AssignmentPrimary    AssignmentType = "PRIMARY"
	AssignmentSubstitute AssignmentType = "SUBSTITUTE"
	AssignmentAssistant  AssignmentType = "ASSISTANT"
	AssignmentTemporary  AssignmentType = "TEMPORARY"
)

// IsValid checks if the assignment type is known
func (t AssignmentType) IsValid() bool {
	switch t {
	case AssignmentPrimary, AssignmentSubstitute, AssignmentAssistant, AssignmentTemporary:
		return true
	}
	return false
}

// ChangeReason explains why a class changed teacher
type ChangeReason string

const (
	ReasonNewYear     ChangeReason = "NEW_YEAR"
	ReasonLeave       ChangeReason = "LEAVE"
	ReasonTransfer    ChangeReason = "TRANSFER"
	ReasonReplacement ChangeReason = "REPLACEMENT"
	ReasonResignation ChangeReason = "RESIGNATION"
	ReasonPromotion   ChangeReason = "PROMOTION"
	ReasonOther       ChangeReason = "OTHER"
)

// IsValid checks if the reason is known. Empty is allowed.
func (r ChangeReason) IsValid() bool {
	switch r {
	case "", ReasonNewYear, ReasonLeave, ReasonTransfer, ReasonReplacement, ReasonResignation, ReasonPromotion, ReasonOther:
		return true
	}
	return false
}

// SlotKey identifies a teaching slot. At most one assignment per slot is
// open (active with no end date).
type SlotKey struct {
	BranchID       uuid.UUID
	AcademicYearID uuid.UUID
	ClassID        uuid.UUID
	DivisionID     uuid.UUID
}

// TeacherAssignment records who teaches a class division over a date range
type TeacherAssignment struct {
	shared.TenantAggregateRoot
	TeacherID      uuid.UUID          `gorm:"type:uuid;not null;index"`
	BranchID       uuid.UUID          `gorm:"type:uuid;not null;index:idx_teacher_assignments_slot"`
	AcademicYearID uuid.UUID          `gorm:"type:uuid;not null;index:idx_teacher_assignments_slot"`
	ClassID        uuid.UUID          `gorm:"column:class_assigned_id;type:uuid;not null;index:idx_teacher_assignments_slot"`
	DivisionID     uuid.UUID          `gorm:"column:division_assigned_id;type:uuid;not null;index:idx_teacher_assignments_slot"`
	StartDate      time.Time          `gorm:"type:date;not null"`
	EndDate        *time.Time         `gorm:"type:date"`
	AssignmentType AssignmentType     `gorm:"type:varchar(20);not null;default:'PRIMARY'"`
	ChangeReason   ChangeReason       `gorm:"type:varchar(20)"`
	ReplacedByID   *uuid.UUID         `gorm:"column:replaced_by_id;type:uuid"`
	ReplacedBy     *TeacherAssignment `gorm:"foreignKey:ReplacedByID" json:"-"`
	IsPrimary      bool               `gorm:"not null"`
	IsActive       bool               `gorm:"not null;default:true;index"`
	Remarks        string             `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (TeacherAssignment) TableName() string {
	return "teacher_assignments"
}

// NewTeacherAssignment creates an open assignment starting on start
func NewTeacherAssignment(tenantID, teacherID uuid.UUID, slot SlotKey, start time.Time, kind AssignmentType, reason ChangeReason) (*TeacherAssignment, error) {
	if teacherID == uuid.Nil {
		return nil, shared.NewValidationError("teacher_id", "Teacher is required")
	}
	if slot.BranchID == uuid.Nil || slot.AcademicYearID == uuid.Nil || slot.ClassID == uuid.Nil || slot.DivisionID == uuid.Nil {
		return nil, shared.NewValidationError("class_id", "Branch, academic year, class and division are required")
	}
	if start.IsZero() {
		return nil, shared.NewValidationError("start_date", "Start date is required")
	}
	if kind == "" {
		kind = AssignmentPrimary
	}
	if !kind.IsValid() {
		return nil, shared.NewValidationError("assignment_type", "Unknown assignment type")
	}
	if !reason.IsValid() {
		return nil, shared.NewValidationError("change_reason", "Unknown change reason")
	}
	return &TeacherAssignment{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		TeacherID:           teacherID,
		BranchID:            slot.BranchID,
		AcademicYearID:      slot.AcademicYearID,
		ClassID:             slot.ClassID,
		DivisionID:          slot.DivisionID,
		StartDate:           shared.DateOf(start),
		AssignmentType:      kind,
		ChangeReason:        reason,
		IsPrimary:           kind == AssignmentPrimary,
		IsActive:            true,
	}, nil
}

// Slot returns the slot key of the assignment
func (a *TeacherAssignment) Slot() SlotKey {
	return SlotKey{
		BranchID:       a.BranchID,
		AcademicYearID: a.AcademicYearID,
		ClassID:        a.ClassID,
		DivisionID:     a.DivisionID,
	}
}

// IsOpen reports whether the assignment is active with no end date
func (a *TeacherAssignment) IsOpen() bool {
	return a.IsActive && a.EndDate == nil
}

// EndOn closes the assignment on day
func (a *TeacherAssignment) EndOn(day time.Time) {
	end := shared.DateOf(day)
	a.EndDate = &end
	a.IsActive = false
	a.IncrementVersion()
}

// LinkSuccessor records the assignment that took over the slot. The
// successor row must already be stored.
func (a *TeacherAssignment) LinkSuccessor(id uuid.UUID) {
	a.ReplacedByID = &id
}

// CloseFor ends the assignment on the successor's start date and links the successor
func (a *TeacherAssignment) CloseFor(successor *TeacherAssignment) {
	a.EndOn(successor.StartDate)
	a.LinkSuccessor(successor.ID)
}
