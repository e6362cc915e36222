package fee

import (
	"strings"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// StudentFeeConfiguration overrides the structure amount of one fee type
// for one student in one year
type StudentFeeConfiguration struct {
	shared.TenantAggregateRoot
	StudentID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_student_fee_configurations"`
	AcademicYearID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_student_fee_configurations"`
	FeeTypeID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_student_fee_configurations"`
	Amount         decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	OverrideReason string          `gorm:"type:text"`
	UpdatedBy      *uuid.UUID      `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (StudentFeeConfiguration) TableName() string {
	return "student_fee_configurations"
}

// NewStudentFeeConfiguration creates an override
func NewStudentFeeConfiguration(tenantID, studentID, yearID, feeTypeID uuid.UUID, amount decimal.Decimal, reason string) (*StudentFeeConfiguration, error) {
	if studentID == uuid.Nil || yearID == uuid.Nil || feeTypeID == uuid.Nil {
		return nil, shared.NewValidationError("student_id", "Student, academic year and fee type are required")
	}
	if amount.IsNegative() {
		return nil, shared.NewValidationError("amount", "Amount cannot be negative")
	}
	return &StudentFeeConfiguration{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		StudentID:           studentID,
		AcademicYearID:      yearID,
		FeeTypeID:           feeTypeID,
		Amount:              amount.Round(2),
		OverrideReason:      strings.TrimSpace(reason),
	}, nil
}

// Change updates the override amount
func (c *StudentFeeConfiguration) Change(amount decimal.Decimal, reason string, by *uuid.UUID) error {
	if amount.IsNegative() {
		return shared.NewValidationError("amount", "Amount cannot be negative")
	}
	c.Amount = amount.Round(2)
	c.OverrideReason = strings.TrimSpace(reason)
	c.UpdatedBy = by
	c.IncrementVersion()
	return nil
}
