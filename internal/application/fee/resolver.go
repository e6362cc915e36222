// Package fee resolves applicable fee amounts and materializes, collects
// and reminds about student fee dues.
package fee

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/application/txn"
	"github.com/madrasa/backend/internal/domain/fee"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/madrasa/backend/internal/domain/student"
	"github.com/shopspring/decimal"
)

// Subject is the student a fee is resolved for. ClassID is the class
// assigned by the student's enrollment for the year.
type Subject struct {
	TenantID       uuid.UUID
	StudentID      uuid.UUID
	BranchID       uuid.UUID
	ClassID        uuid.UUID
	AcademicYearID uuid.UUID
	Category       student.Category
}

// SubjectOf builds the subject of an enrollment
func SubjectOf(s *student.StudentProfile, e *student.StudentEnrollment) Subject {
	return Subject{
		TenantID:       s.TenantID,
		StudentID:      s.ID,
		BranchID:       s.BranchID,
		ClassID:        e.ClassID,
		AcademicYearID: e.AcademicYearID,
		Category:       s.Category,
	}
}

// Charge is a resolved fee: the applicable structure, the student
// override if any, and the amount that results.
type Charge struct {
	Structure *fee.FeeStructure
	Override  *fee.StudentFeeConfiguration
	Amount    decimal.Decimal
}

// Resolver finds the fee structure and amount that apply to a student.
// It reads through the repositories it is handed so it can run inside a
// caller's transaction.
type Resolver struct{}

// NewResolver creates a new Resolver
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve returns the most specific applicable structure, or nil when no
// fee applies. Levels are tried in LookupOrder and the first level with
// an applicable structure wins.
func (r *Resolver) Resolve(ctx context.Context, repos txn.Repositories, subject Subject, feeTypeID uuid.UUID, on time.Time) (*fee.FeeStructure, error) {
	for _, scope := range fee.LookupOrder(subject.BranchID, subject.ClassID) {
		candidates, err := repos.FeeStructures().FindForScope(ctx, subject.TenantID, subject.AcademicYearID, feeTypeID, scope)
		if err != nil {
			return nil, err
		}
		if s := fee.PickApplicable(candidates, subject.Category, on); s != nil {
			return s, nil
		}
	}
	return nil, nil
}

// Override returns the student's override for the fee type, or nil
func (r *Resolver) Override(ctx context.Context, repos txn.Repositories, subject Subject, feeTypeID uuid.UUID) (*fee.StudentFeeConfiguration, error) {
	cfg, err := repos.FeeConfigurations().Find(ctx, subject.TenantID, subject.StudentID, subject.AcademicYearID, feeTypeID)
	if shared.IsNotFound(err) {
		return nil, nil
	}
	return cfg, err
}

// Amount returns the student's amount for the fee type: the override when
// present, else the resolved structure's amount, else zero. The override
// is taken without consulting structures.
func (r *Resolver) Amount(ctx context.Context, repos txn.Repositories, subject Subject, feeTypeID uuid.UUID, on time.Time) (decimal.Decimal, error) {
	override, err := r.Override(ctx, repos, subject, feeTypeID)
	if err != nil {
		return decimal.Zero, err
	}
	if override != nil {
		return override.Amount, nil
	}
	structure, err := r.Resolve(ctx, repos, subject, feeTypeID, on)
	if err != nil || structure == nil {
		return decimal.Zero, err
	}
	return structure.Amount, nil
}

// Charge resolves both the structure and the amount. Due creation needs
// the structure for its auto-create flag and due date even when an
// override sets the amount.
func (r *Resolver) Charge(ctx context.Context, repos txn.Repositories, subject Subject, feeTypeID uuid.UUID, on time.Time) (Charge, error) {
	structure, err := r.Resolve(ctx, repos, subject, feeTypeID, on)
	if err != nil {
		return Charge{}, err
	}
	override, err := r.Override(ctx, repos, subject, feeTypeID)
	if err != nil {
		return Charge{}, err
	}

	charge := Charge{Structure: structure, Override: override, Amount: decimal.Zero}
	switch {
	case override != nil:
		charge.Amount = override.Amount
	case structure != nil:
		charge.Amount = structure.Amount
	}
	return charge, nil
}

// feeTypeNames maps the tenant's fee type IDs to their names
func feeTypeNames(ctx context.Context, repos txn.Repositories, tenantID uuid.UUID) (map[uuid.UUID]string, error) {
	types, err := repos.FeeTypes().FindAllForTenant(ctx, tenantID, false)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(types))
	for _, ft := range types {
		names[ft.ID] = ft.Name
	}
	return names, nil
}
