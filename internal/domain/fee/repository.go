package fee

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// FeeTypeRepository persists fee types
type FeeTypeRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*FeeType, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]FeeType, error)
	// FindActiveByTrigger returns the tenant's active fee types with the given trigger
	FindActiveByTrigger(ctx context.Context, tenantID uuid.UUID, trigger Trigger) ([]FeeType, error)
	ExistsByName(ctx context.Context, tenantID uuid.UUID, name string) (bool, error)
	Save(ctx context.Context, ft *FeeType) error
}

// FeeStructureRepository persists fee structures
type FeeStructureRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*FeeStructure, error)
	// FindForScope returns active structures of one lookup level. A nil ID
	// in scope matches rows where that column IS NULL.
	FindForScope(ctx context.Context, tenantID, yearID, feeTypeID uuid.UUID, scope StructureScope) ([]FeeStructure, error)
	ListForYear(ctx context.Context, tenantID, yearID uuid.UUID) ([]FeeStructure, error)
	Save(ctx context.Context, s *FeeStructure) error
}

// StudentFeeConfigurationRepository persists per-student overrides
type StudentFeeConfigurationRepository interface {
	Find(ctx context.Context, tenantID, studentID, yearID, feeTypeID uuid.UUID) (*StudentFeeConfiguration, error)
	Save(ctx context.Context, c *StudentFeeConfiguration) error
}

// DueRepository persists student fee dues
type DueRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*StudentFeeDue, error)
	Exists(ctx context.Context, key DueKey) (bool, error)
	// Create inserts a new due. A unique key violation returns ErrAlreadyExists.
	Create(ctx context.Context, d *StudentFeeDue) error
	// CreateIfAbsent inserts the due unless its key is taken and reports
	// whether a row was written. It never aborts an enclosing transaction.
	CreateIfAbsent(ctx context.Context, d *StudentFeeDue) (bool, error)
	Save(ctx context.Context, d *StudentFeeDue) error
	// FindForPaymentForUpdate locks and returns the outstanding dues of a
	// student and fee type, oldest due date first. A month other than
	// NoMonth restricts the result to that month. Must run in a transaction.
	FindForPaymentForUpdate(ctx context.Context, tenantID, studentID, yearID, feeTypeID uuid.UUID, month int) ([]StudentFeeDue, error)
	// FindByIDsForUpdate locks the given dues. Must run in a transaction.
	FindByIDsForUpdate(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]StudentFeeDue, error)
	ListForStudent(ctx context.Context, tenantID, studentID uuid.UUID, yearID *uuid.UUID) ([]StudentFeeDue, error)
	// FindOverdue returns dues with an outstanding amount whose due date is before today
	FindOverdue(ctx context.Context, tenantID uuid.UUID, today time.Time) ([]StudentFeeDue, error)
}

// CollectionRepository persists fee collections with their items
type CollectionRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*FeeCollection, error)
	// FindByIDForUpdate locks the collection row. Must run in a transaction.
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*FeeCollection, error)
	ReceiptNumbersWithPrefix(ctx context.Context, tenantID uuid.UUID, prefix string) ([]string, error)
	// Create inserts the collection and its items
	Create(ctx context.Context, c *FeeCollection) error
	// Save updates the collection row only
	Save(ctx context.Context, c *FeeCollection) error
}
