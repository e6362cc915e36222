package fee

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/madrasa/backend/internal/domain/student"
	"github.com/shopspring/decimal"
)

// ApplicableTo filters a structure by student category
type ApplicableTo string

const (
	ApplicableAll       ApplicableTo = "ALL"
	ApplicablePermanent ApplicableTo = "PERMANENT"
	ApplicableTemporary ApplicableTo = "TEMPORARY"
)

// IsValid checks if the value is known
func (a ApplicableTo) IsValid() bool {
	return a == ApplicableAll || a == ApplicablePermanent || a == ApplicableTemporary
}

// Matches reports whether a student of the given category is covered
func (a ApplicableTo) Matches(c student.Category) bool {
	return a == ApplicableAll || string(a) == string(c)
}

// FeeStructure is the default amount of a fee type for one academic year,
// optionally narrowed to a branch and/or a class.
type FeeStructure struct {
	shared.TenantAggregateRoot
	AcademicYearID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_fee_structures_lookup"`
	FeeTypeID           uuid.UUID       `gorm:"type:uuid;not null;index:idx_fee_structures_lookup"`
	BranchID            *uuid.UUID      `gorm:"type:uuid"`
	ClassID             *uuid.UUID      `gorm:"column:class_level_id;type:uuid"`
	Amount              decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	ApplicableTo        ApplicableTo    `gorm:"type:varchar(20);not null;default:'ALL'"`
	EffectiveFrom       time.Time       `gorm:"type:date;not null"`
	EffectiveTo         time.Time       `gorm:"type:date;not null"`
	AutoCreateDue       bool            `gorm:"not null"`
	DueDaysAfterTrigger int             `gorm:"not null;default:0"`
	IsActive            bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (FeeStructure) TableName() string {
	return "fee_structures"
}

// StructureInput carries the fields of a new structure
type StructureInput struct {
	AcademicYearID      uuid.UUID
	FeeTypeID           uuid.UUID
	BranchID            *uuid.UUID
	ClassID             *uuid.UUID
	Amount              decimal.Decimal
	ApplicableTo        ApplicableTo
	EffectiveFrom       time.Time
	EffectiveTo         time.Time
	AutoCreateDue       bool
	DueDaysAfterTrigger int
}

// NewFeeStructure validates and creates an active structure
func NewFeeStructure(tenantID uuid.UUID, in StructureInput) (*FeeStructure, error) {
	if in.AcademicYearID == uuid.Nil {
		return nil, shared.NewValidationError("academic_year_id", "Academic year is required")
	}
	if in.FeeTypeID == uuid.Nil {
		return nil, shared.NewValidationError("fee_type_id", "Fee type is required")
	}
	if in.Amount.IsNegative() {
		return nil, shared.NewValidationError("amount", "Amount cannot be negative")
	}
	if in.ApplicableTo == "" {
		in.ApplicableTo = ApplicableAll
	}
	if !in.ApplicableTo.IsValid() {
		return nil, shared.NewValidationError("applicable_to", "Applicable to must be ALL, PERMANENT or TEMPORARY")
	}
	from, to := shared.DateOf(in.EffectiveFrom), shared.DateOf(in.EffectiveTo)
	if in.EffectiveFrom.IsZero() || in.EffectiveTo.IsZero() || to.Before(from) {
		return nil, shared.NewValidationError("effective_to", "Validity window is invalid")
	}
	if in.DueDaysAfterTrigger < 0 {
		return nil, shared.NewValidationError("due_days_after_trigger", "Due days cannot be negative")
	}
	return &FeeStructure{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		AcademicYearID:      in.AcademicYearID,
		FeeTypeID:           in.FeeTypeID,
		BranchID:            in.BranchID,
		ClassID:             in.ClassID,
		Amount:              in.Amount.Round(2),
		ApplicableTo:        in.ApplicableTo,
		EffectiveFrom:       from,
		EffectiveTo:         to,
		AutoCreateDue:       in.AutoCreateDue,
		DueDaysAfterTrigger: in.DueDaysAfterTrigger,
		IsActive:            true,
	}, nil
}

// Applies reports whether the structure is usable for a student of the
// given category on day
func (s *FeeStructure) Applies(c student.Category, day time.Time) bool {
	return s.IsActive && s.ApplicableTo.Matches(c) && shared.WithinDates(day, s.EffectiveFrom, s.EffectiveTo)
}

// DueDate returns the date a due triggered on day falls due
func (s *FeeStructure) DueDate(day time.Time) time.Time {
	return shared.DateOf(day).AddDate(0, 0, s.DueDaysAfterTrigger)
}

// Deactivate stops the structure from being resolved
func (s *FeeStructure) Deactivate() {
	s.IsActive = false
	s.IncrementVersion()
}

// StructureScope is one level of the structure lookup. A nil ID matches
// structures where the column is unset.
type StructureScope struct {
	BranchID *uuid.UUID
	ClassID  *uuid.UUID
}

// LookupOrder returns the four lookup levels, most specific first:
// branch and class, branch only, class only, organization-wide.
func LookupOrder(branchID, classID uuid.UUID) []StructureScope {
	return []StructureScope{
		{BranchID: &branchID, ClassID: &classID},
		{BranchID: &branchID},
		{ClassID: &classID},
		{},
	}
}

// PickApplicable returns the structure that applies among candidates of
// a single lookup level, or nil. Later effective_from wins, then later
// creation.
func PickApplicable(candidates []FeeStructure, c student.Category, day time.Time) *FeeStructure {
	var matching []FeeStructure
	for _, s := range candidates {
		if s.Applies(c, day) {
			matching = append(matching, s)
		}
	}
	if len(matching) == 0 {
		return nil
	}
	sort.SliceStable(matching, func(i, j int) bool {
		if !matching[i].EffectiveFrom.Equal(matching[j].EffectiveFrom) {
			return matching[i].EffectiveFrom.After(matching[j].EffectiveFrom)
		}
		return matching[i].CreatedAt.After(matching[j].CreatedAt)
	})
	return &matching[0]
}
