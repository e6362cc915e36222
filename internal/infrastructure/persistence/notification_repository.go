package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/notification"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormEmailRepository implements EmailRepository using GORM
type GormEmailRepository struct {
	db *gorm.DB
}

// NewGormEmailRepository creates a new GormEmailRepository
func NewGormEmailRepository(db *gorm.DB) *GormEmailRepository {
	return &GormEmailRepository{db: db}
}

// Create queues an email
func (r *GormEmailRepository) Create(ctx context.Context, n *notification.EmailNotification) error {
	return translateError(r.db.WithContext(ctx).Create(n).Error)
}

// Save updates an email after a delivery attempt
func (r *GormEmailRepository) Save(ctx context.Context, n *notification.EmailNotification) error {
	return translateError(r.db.WithContext(ctx).Save(n).Error)
}

// ClaimPending takes the oldest pending emails with FOR UPDATE SKIP LOCKED
// so parallel dispatchers never pick the same row
func (r *GormEmailRepository) ClaimPending(ctx context.Context, limit int) ([]notification.EmailNotification, error) {
	if limit <= 0 {
		return []notification.EmailNotification{}, nil
	}
	var emails []notification.EmailNotification
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", notification.EmailPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&emails).Error; err != nil {
		return nil, err
	}
	return emails, nil
}

// CountByStatus counts a tenant's emails in one status
func (r *GormEmailRepository) CountByStatus(ctx context.Context, tenantID uuid.UUID, status notification.EmailStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&notification.EmailNotification{}).
		Where("tenant_id = ? AND status = ?", tenantID, status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GormDocumentRepository implements DocumentRepository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// FindByIDForTenant finds document metadata by ID within a tenant
func (r *GormDocumentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*notification.DocumentUpload, error) {
	var d notification.DocumentUpload
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&d).Error; err != nil {
		return nil, translateError(err)
	}
	return &d, nil
}

// FindByOwner lists the documents attached to one record, newest first
func (r *GormDocumentRepository) FindByOwner(ctx context.Context, tenantID uuid.UUID, ownerType string, ownerID uuid.UUID) ([]notification.DocumentUpload, error) {
	var docs []notification.DocumentUpload
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND owner_type = ? AND owner_id = ?", tenantID, ownerType, ownerID).
		Order("created_at DESC").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// Save creates or updates document metadata
func (r *GormDocumentRepository) Save(ctx context.Context, d *notification.DocumentUpload) error {
	return translateError(r.db.WithContext(ctx).Save(d).Error)
}

var (
	_ notification.EmailRepository    = (*GormEmailRepository)(nil)
	_ notification.DocumentRepository = (*GormDocumentRepository)(nil)
)
