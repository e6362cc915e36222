package fee

import (
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CreationSource records which trigger produced a due
type CreationSource string

const (
	SourceAutoAdmission  CreationSource = "AUTO_ADMISSION"
	SourceAutoEnrollment CreationSource = "AUTO_ENROLLMENT"
	SourceAutoMonthly    CreationSource = "AUTO_MONTHLY"
	SourceAutoAnnual     CreationSource = "AUTO_ANNUAL"
	SourceManual         CreationSource = "MANUAL"
	SourceAdminOverride  CreationSource = "ADMIN_OVERRIDE"
)

// IsAutomatic reports whether the source is one of the AUTO_* triggers
func (s CreationSource) IsAutomatic() bool {
	switch s {
	case SourceAutoAdmission, SourceAutoEnrollment, SourceAutoMonthly, SourceAutoAnnual:
		return true
	}
	return false
}

// Origin splits dues into two uniqueness namespaces. Automatic dues and
// admin-created dues never collide with each other.
type Origin string

const (
	OriginAuto   Origin = "AUTO"
	OriginManual Origin = "MANUAL"
)

// NoMonth is the month value of dues that are not tied to a month
const NoMonth = 0

// ErrPaymentExceedsDue is returned when a payment is larger than the outstanding amount
var ErrPaymentExceedsDue = shared.NewDomainError("PAYMENT_EXCEEDS_DUE", "Payment exceeds the outstanding due amount")

// DueKey identifies a due inside its origin namespace
type DueKey struct {
	TenantID       uuid.UUID
	StudentID      uuid.UUID
	AcademicYearID uuid.UUID
	FeeTypeID      uuid.UUID
	Month          int
	Origin         Origin
}

// StudentFeeDue is a materialized obligation. DueAmount is always
// TotalAmount - PaidAmount; it is recomputed on every mutation and on save.
type StudentFeeDue struct {
	shared.TenantAggregateRoot
	StudentID               uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_student_fee_dues,priority:1"`
	AcademicYearID          uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_student_fee_dues,priority:2"`
	FeeTypeID               uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_student_fee_dues,priority:3"`
	Month                   int             `gorm:"not null;default:0;uniqueIndex:uq_student_fee_dues,priority:4"`
	Origin                  Origin          `gorm:"type:varchar(10);not null;default:'AUTO';uniqueIndex:uq_student_fee_dues,priority:5"`
	TriggeredByEnrollmentID *uuid.UUID      `gorm:"type:uuid"`
	TotalAmount             decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	PaidAmount              decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	DueAmount               decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0;index"`
	DueDate                 time.Time       `gorm:"type:date;not null;index"`
	CreationSource          CreationSource  `gorm:"type:varchar(20);not null;default:'MANUAL';index"`
	LastPaymentDate         *time.Time      `gorm:"type:date"`
}

// TableName returns the table name for GORM
func (StudentFeeDue) TableName() string {
	return "student_fee_dues"
}

// DueInput carries the fields of a new due
type DueInput struct {
	StudentID             uuid.UUID
	AcademicYearID        uuid.UUID
	FeeTypeID             uuid.UUID
	Month                 int
	Total                 decimal.Decimal
	DueDate               time.Time
	Source                CreationSource
	TriggeredByEnrollment *uuid.UUID
}

// NewStudentFeeDue creates a due with nothing paid
func NewStudentFeeDue(tenantID uuid.UUID, in DueInput) (*StudentFeeDue, error) {
	if in.StudentID == uuid.Nil || in.AcademicYearID == uuid.Nil || in.FeeTypeID == uuid.Nil {
		return nil, shared.NewValidationError("student_id", "Student, academic year and fee type are required")
	}
	if in.Month < NoMonth || in.Month > 12 {
		return nil, shared.NewValidationError("month", "Month must be between 1 and 12")
	}
	if !in.Total.IsPositive() {
		return nil, shared.NewValidationError("total_amount", "Total amount must be positive")
	}
	if in.DueDate.IsZero() {
		return nil, shared.NewValidationError("due_date", "Due date is required")
	}
	origin := OriginManual
	if in.Source.IsAutomatic() {
		origin = OriginAuto
	} else if in.Source != SourceManual && in.Source != SourceAdminOverride {
		return nil, shared.NewValidationError("creation_source", "Unknown creation source")
	}

	d := &StudentFeeDue{
		TenantAggregateRoot:     shared.NewTenantAggregateRoot(tenantID),
		StudentID:               in.StudentID,
		AcademicYearID:          in.AcademicYearID,
		FeeTypeID:               in.FeeTypeID,
		Month:                   in.Month,
		Origin:                  origin,
		TriggeredByEnrollmentID: in.TriggeredByEnrollment,
		TotalAmount:             in.Total.Round(2),
		PaidAmount:              decimal.Zero,
		DueDate:                 shared.DateOf(in.DueDate),
		CreationSource:          in.Source,
	}
	d.Recalculate()
	return d, nil
}

// Key returns the uniqueness key of the due
func (d *StudentFeeDue) Key() DueKey {
	return DueKey{
		TenantID:       d.TenantID,
		StudentID:      d.StudentID,
		AcademicYearID: d.AcademicYearID,
		FeeTypeID:      d.FeeTypeID,
		Month:          d.Month,
		Origin:         d.Origin,
	}
}

// Recalculate derives DueAmount from the total and the paid amount
func (d *StudentFeeDue) Recalculate() {
	d.DueAmount = d.TotalAmount.Sub(d.PaidAmount)
}

// Outstanding returns the amount still to be paid
func (d *StudentFeeDue) Outstanding() decimal.Decimal {
	return d.TotalAmount.Sub(d.PaidAmount)
}

// IsSettled reports whether nothing remains to be paid
func (d *StudentFeeDue) IsSettled() bool {
	return !d.Outstanding().IsPositive()
}

// IsOverdue reports whether the due is unpaid past its due date
func (d *StudentFeeDue) IsOverdue(today time.Time) bool {
	return !d.IsSettled() && d.DueDate.Before(shared.DateOf(today))
}

// ApplyPayment records a payment. Only PaidAmount changes.
func (d *StudentFeeDue) ApplyPayment(amount decimal.Decimal, on time.Time) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("amount", "Payment amount must be positive")
	}
	if amount.GreaterThan(d.Outstanding()) {
		return ErrPaymentExceedsDue
	}
	day := shared.DateOf(on)
	d.PaidAmount = d.PaidAmount.Add(amount)
	d.LastPaymentDate = &day
	d.Recalculate()
	d.IncrementVersion()
	return nil
}

// ReversePayment takes back a previously applied payment
func (d *StudentFeeDue) ReversePayment(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("amount", "Reversal amount must be positive")
	}
	if amount.GreaterThan(d.PaidAmount) {
		return shared.ErrInvalidState.WithField("amount", "reversal exceeds the paid amount")
	}
	d.PaidAmount = d.PaidAmount.Sub(amount)
	d.Recalculate()
	d.IncrementVersion()
	return nil
}

// AdjustTotal changes the total of an existing due. It is an admin action
// and marks the due as ADMIN_OVERRIDE.
func (d *StudentFeeDue) AdjustTotal(total decimal.Decimal) error {
	if total.IsNegative() {
		return shared.NewValidationError("total_amount", "Total amount cannot be negative")
	}
	if total.LessThan(d.PaidAmount) {
		return shared.NewValidationError("total_amount", "Total amount cannot be less than the paid amount")
	}
	d.TotalAmount = total.Round(2)
	d.CreationSource = SourceAdminOverride
	d.Recalculate()
	d.IncrementVersion()
	return nil
}
