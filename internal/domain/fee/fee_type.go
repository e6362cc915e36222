// Package fee holds fee catalog, per-student overrides, materialized dues
// and fee collections.
package fee

import (
	"strings"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/shared"
)

// Category groups fee types for reporting
type Category string

const (
	CategoryMonthly   Category = "MONTHLY"
	CategoryAdmission Category = "ADMISSION"
	CategoryExam      Category = "EXAM"
	CategoryFestival  Category = "FESTIVAL"
	CategorySports    Category = "SPORTS"
	CategoryBooks     Category = "BOOKS"
	CategoryUniform   Category = "UNIFORM"
	CategoryTransport Category = "TRANSPORT"
	CategoryOther     Category = "OTHER"
)

// IsValid checks if the category is known
func (c Category) IsValid() bool {
	switch c {
	case CategoryMonthly, CategoryAdmission, CategoryExam, CategoryFestival, CategorySports,
		CategoryBooks, CategoryUniform, CategoryTransport, CategoryOther:
		return true
	}
	return false
}

// Trigger is the event that charges a fee type
type Trigger string

const (
	TriggerOnAdmission  Trigger = "ON_ADMISSION"
	TriggerOnEnrollment Trigger = "ON_ENROLLMENT"
	TriggerMonthly      Trigger = "MONTHLY"
	TriggerAnnual       Trigger = "ANNUAL"
	TriggerManual       Trigger = "MANUAL"
)

// IsValid checks if the trigger is known
func (t Trigger) IsValid() bool {
	switch t {
	case TriggerOnAdmission, TriggerOnEnrollment, TriggerMonthly, TriggerAnnual, TriggerManual:
		return true
	}
	return false
}

// FeeType is a chargeable fee of an organization
type FeeType struct {
	shared.TenantAggregateRoot
	Name          string   `gorm:"type:varchar(100);not null"`
	Description   string   `gorm:"type:text"`
	Category      Category `gorm:"type:varchar(20);not null"`
	ChargeTrigger Trigger  `gorm:"type:varchar(20);not null;default:'MANUAL';index"`
	ChargeMonth   *int
	IsRecurring   bool `gorm:"not null;default:false"`
	IsActive      bool `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (FeeType) TableName() string {
	return "fee_types"
}

// NewFeeType creates an active fee type. ANNUAL fees need the month they
// are charged in.
func NewFeeType(tenantID uuid.UUID, name string, category Category, trigger Trigger, chargeMonth *int, recurring bool) (*FeeType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("name", "Fee type name is required")
	}
	if len(name) > 100 {
		return nil, shared.NewValidationError("name", "Fee type name cannot exceed 100 characters")
	}
	if !category.IsValid() {
		return nil, shared.NewValidationError("category", "Unknown fee category")
	}
	if trigger == "" {
		trigger = TriggerManual
	}
	if !trigger.IsValid() {
		return nil, shared.NewValidationError("charge_trigger", "Unknown charge trigger")
	}
	if chargeMonth != nil && (*chargeMonth < 1 || *chargeMonth > 12) {
		return nil, shared.NewValidationError("charge_month", "Charge month must be between 1 and 12")
	}
	if trigger == TriggerAnnual && chargeMonth == nil {
		return nil, shared.NewValidationError("charge_month", "Annual fees need a charge month")
	}

	return &FeeType{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Category:            category,
		ChargeTrigger:       trigger,
		ChargeMonth:         chargeMonth,
		IsRecurring:         recurring,
		IsActive:            true,
	}, nil
}

// ChargedIn reports whether an annual fee falls due in month
func (f *FeeType) ChargedIn(month int) bool {
	return f.ChargeMonth != nil && *f.ChargeMonth == month
}

// IsMonthlyRecurring reports whether the monthly batch picks up this fee
func (f *FeeType) IsMonthlyRecurring() bool {
	return f.IsActive && f.IsRecurring && f.ChargeTrigger == TriggerMonthly
}

// Deactivate stops the fee from being charged
func (f *FeeType) Deactivate() {
	f.IsActive = false
	f.IncrementVersion()
}
