package staff

import (
	"context"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/shared"
)

// StaffRepository persists staff profiles
type StaffRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*StaffProfile, error)
	FindByUserID(ctx context.Context, tenantID, userID uuid.UUID) (*StaffProfile, error)
	// StaffNumbersWithPrefix lists the tenant's staff numbers starting with prefix
	StaffNumbersWithPrefix(ctx context.Context, tenantID uuid.UUID, prefix string) ([]string, error)
	List(ctx context.Context, tenantID uuid.UUID, f StaffFilter, page shared.Filter) (*shared.Paginated[StaffProfile], error)
	Save(ctx context.Context, s *StaffProfile) error
}

// StaffFilter narrows staff listings. Zero fields match everything.
type StaffFilter struct {
	BranchID *uuid.UUID
	Status   Status
	Category Category
}

// AssignmentFilter narrows assignment listings. Zero fields match everything.
type AssignmentFilter struct {
	TeacherID      *uuid.UUID
	BranchID       *uuid.UUID
	AcademicYearID *uuid.UUID
	ClassID        *uuid.UUID
	DivisionID     *uuid.UUID
	ActiveOnly     bool
}

// AssignmentRepository persists teacher assignments
type AssignmentRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*TeacherAssignment, error)
	// LockOpenForSlot loads the open assignments of a slot with a row lock.
	// Must be called inside a transaction.
	LockOpenForSlot(ctx context.Context, tenantID uuid.UUID, slot SlotKey) ([]TeacherAssignment, error)
	List(ctx context.Context, tenantID uuid.UUID, f AssignmentFilter) ([]TeacherAssignment, error)
	Save(ctx context.Context, a *TeacherAssignment) error
}
