package identity

import (
	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/shared"
)

// Actor is the authenticated user an operation runs for
type Actor struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	Role     Role
	BranchID *uuid.UUID
}

// Can reports whether the actor's role grants c
func (a Actor) Can(c Capability) bool {
	return Can(a.Role, c)
}

// CanAccessBranch reports whether the actor may work on records of branchID
func (a Actor) CanAccessBranch(branchID uuid.UUID) bool {
	if a.Role.SeesAllBranches() {
		return true
	}
	return a.BranchID != nil && *a.BranchID == branchID
}

// BranchFilter narrows a listing to the branches the actor may see.
// Organization-wide roles get requested back unchanged; branch-bound
// roles get their own branch and are refused any other.
func (a Actor) BranchFilter(requested *uuid.UUID) (*uuid.UUID, error) {
	if a.Role.SeesAllBranches() {
		return requested, nil
	}
	if a.BranchID == nil {
		return nil, shared.ErrForbidden.WithField("branch_id", "user has no branch")
	}
	if requested != nil && *requested != *a.BranchID {
		return nil, shared.ErrForbidden.WithField("branch_id", "branch is outside your scope")
	}
	own := *a.BranchID
	return &own, nil
}
