package notification

import (
	"context"

	"github.com/google/uuid"
)

// EmailRepository persists queued emails
type EmailRepository interface {
	Create(ctx context.Context, n *EmailNotification) error
	Save(ctx context.Context, n *EmailNotification) error
	// ClaimPending returns up to limit PENDING emails, oldest first, locking
	// them against concurrent dispatchers. Must run in a transaction.
	ClaimPending(ctx context.Context, limit int) ([]EmailNotification, error)
	CountByStatus(ctx context.Context, tenantID uuid.UUID, status EmailStatus) (int64, error)
}

// DocumentRepository persists document metadata
type DocumentRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*DocumentUpload, error)
	FindByOwner(ctx context.Context, tenantID uuid.UUID, ownerType string, ownerID uuid.UUID) ([]DocumentUpload, error)
	Save(ctx context.Context, d *DocumentUpload) error
}
