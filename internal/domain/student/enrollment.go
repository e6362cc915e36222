package student

import (
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// EnrollmentStatus is the status of one year's enrollment
type EnrollmentStatus string

const (
	EnrollmentEnrolled    EnrollmentStatus = "ENROLLED"
	EnrollmentPromoted    EnrollmentStatus = "PROMOTED"
	EnrollmentDetained    EnrollmentStatus = "DETAINED"
	EnrollmentTransferred EnrollmentStatus = "TRANSFERRED"
	EnrollmentDropped     EnrollmentStatus = "DROPPED"
	EnrollmentCompleted   EnrollmentStatus = "COMPLETED"
)

// IsValid checks if the status is known
func (s EnrollmentStatus) IsValid() bool {
	return s == EnrollmentEnrolled || s.IsTerminal()
}

// IsTerminal reports whether no further transition is possible
func (s EnrollmentStatus) IsTerminal() bool {
	switch s {
	case EnrollmentPromoted, EnrollmentDetained, EnrollmentTransferred, EnrollmentDropped, EnrollmentCompleted:
		return true
	}
	return false
}

// StudentEnrollment is a student's class and division for one academic
// year. (student, year) is unique; a new year always gets a new row.
type StudentEnrollment struct {
	shared.TenantAggregateRoot
	StudentID            uuid.UUID        `gorm:"type:uuid;not null;index"`
	AcademicYearID       uuid.UUID        `gorm:"type:uuid;not null;index"`
	ClassID              uuid.UUID        `gorm:"column:class_assigned_id;type:uuid;not null;index"`
	DivisionID           uuid.UUID        `gorm:"column:division_assigned_id;type:uuid;not null"`
	Status               EnrollmentStatus `gorm:"column:enrollment_status;type:varchar(20);not null;default:'ENROLLED';index"`
	EnrollmentDate       time.Time        `gorm:"type:date;not null"`
	CompletionDate       *time.Time       `gorm:"type:date"`
	PromotedToID         *uuid.UUID       `gorm:"column:promoted_to_id;type:uuid"`
	AttendancePercentage *decimal.Decimal `gorm:"type:decimal(5,2)"`
	FinalResult          string           `gorm:"type:varchar(20)"`
	Remarks              string           `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (StudentEnrollment) TableName() string {
	return "student_enrollments"
}

// NewStudentEnrollment creates an ENROLLED row
func NewStudentEnrollment(tenantID, studentID, yearID, classID, divisionID uuid.UUID, on time.Time) (*StudentEnrollment, error) {
	if studentID == uuid.Nil {
		return nil, shared.NewValidationError("student_id", "Student is required")
	}
	if yearID == uuid.Nil {
		return nil, shared.NewValidationError("academic_year_id", "Academic year is required")
	}
	if classID == uuid.Nil || divisionID == uuid.Nil {
		return nil, shared.NewValidationError("class_id", "Class and division are required")
	}
	return &StudentEnrollment{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		StudentID:           studentID,
		AcademicYearID:      yearID,
		ClassID:             classID,
		DivisionID:          divisionID,
		Status:              EnrollmentEnrolled,
		EnrollmentDate:      shared.DateOf(on),
	}, nil
}

// IsEnrolled reports whether the enrollment is still open
func (e *StudentEnrollment) IsEnrolled() bool {
	return e.Status == EnrollmentEnrolled
}

// Transition closes the enrollment with a terminal status. Only ENROLLED
// rows may move.
func (e *StudentEnrollment) Transition(to EnrollmentStatus, on time.Time) error {
	if !to.IsTerminal() {
		return shared.NewValidationError("status", "Target status must be PROMOTED, DETAINED, TRANSFERRED, DROPPED or COMPLETED")
	}
	if !e.IsEnrolled() {
		return shared.ErrInvalidState.WithField("status", "enrollment is already "+string(e.Status))
	}
	day := shared.DateOf(on)
	e.Status = to
	e.CompletionDate = &day
	e.IncrementVersion()
	return nil
}

// LinkNext records the next year's enrollment this one led to
func (e *StudentEnrollment) LinkNext(nextID uuid.UUID) {
	e.PromotedToID = &nextID
	e.IncrementVersion()
}

// RecordResult stores the year-end result
func (e *StudentEnrollment) RecordResult(result string, attendance *decimal.Decimal) error {
	if attendance != nil && (attendance.IsNegative() || attendance.GreaterThan(decimal.NewFromInt(100))) {
		return shared.NewValidationError("attendance_percentage", "Attendance must be between 0 and 100")
	}
	if len(result) > 20 {
		return shared.NewValidationError("final_result", "Final result cannot exceed 20 characters")
	}
	e.FinalResult = result
	e.AttendancePercentage = attendance
	e.IncrementVersion()
	return nil
}
