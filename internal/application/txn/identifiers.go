package txn

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/numbering"
)

// NextAdmissionNumber allocates the next admission number of a branch.
// Must run inside Execute so the counter update commits with the entity.
func NextAdmissionNumber(ctx context.Context, repos Repositories, tenantID uuid.UUID, branchCode string) (string, error) {
	scope := numbering.AdmissionScope(branchCode)
	return next(ctx, repos, tenantID, scope, func(ctx context.Context) ([]string, error) {
		return repos.Students().AdmissionNumbersWithPrefix(ctx, tenantID, scope.Prefix)
	})
}

// NextStaffNumber allocates the next staff number of an organization
func NextStaffNumber(ctx context.Context, repos Repositories, tenantID uuid.UUID, orgCode string) (string, error) {
	scope := numbering.StaffScope(orgCode)
	return next(ctx, repos, tenantID, scope, func(ctx context.Context) ([]string, error) {
		return repos.Staff().StaffNumbersWithPrefix(ctx, tenantID, scope.Prefix)
	})
}

// NextReceiptNumber allocates the next receipt number for the month of on
func NextReceiptNumber(ctx context.Context, repos Repositories, tenantID uuid.UUID, orgCode string, on time.Time) (string, error) {
	scope := numbering.ReceiptScope(orgCode, on)
	return next(ctx, repos, tenantID, scope, func(ctx context.Context) ([]string, error) {
		return repos.Collections().ReceiptNumbersWithPrefix(ctx, tenantID, scope.Prefix)
	})
}

func next(ctx context.Context, repos Repositories, tenantID uuid.UUID, scope numbering.Scope, existing func(context.Context) ([]string, error)) (string, error) {
	seed := func(ctx context.Context) (int64, error) {
		ids, err := existing(ctx)
		if err != nil {
			return 0, err
		}
		return scope.HighestIn(ids), nil
	}
	n, err := repos.Sequences().Next(ctx, tenantID, scope, seed)
	if err != nil {
		return "", fmt.Errorf("failed to allocate %s number: %w", scope.Kind, err)
	}
	return scope.Format(n), nil
}
