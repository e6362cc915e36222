package numbering

import (
	"context"

	"github.com/google/uuid"
)

// SeedFunc returns the highest sequence value already in use for a scope.
// It is consulted only when the scope's counter row does not exist yet,
// so identifiers imported before the counter existed are never reissued.
type SeedFunc func(ctx context.Context) (int64, error)

// SequenceRepository allocates sequence values from per-scope counter rows.
// Next increments and returns the counter atomically; two concurrent callers
// never receive the same value for a scope.
type SequenceRepository interface {
	Next(ctx context.Context, tenantID uuid.UUID, scope Scope, seed SeedFunc) (int64, error)
	Current(ctx context.Context, tenantID uuid.UUID, scope Scope) (int64, error)
}
