package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/application/txn"
	"github.com/madrasa/backend/internal/domain/notification"
	"github.com/madrasa/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Owner types a document can be attached to
const (
	OwnerRegistration = "registration"
	OwnerStudent      = "student"
	OwnerCollection   = "collection"
)

// ObjectStore keeps file contents outside the database
type ObjectStore interface {
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
}

// UploadInput describes one uploaded file
type UploadInput struct {
	OwnerType   string
	OwnerID     uuid.UUID
	Kind        notification.DocumentKind
	FileName    string
	ContentType string
	Data        []byte
	UploadedBy  *uuid.UUID
}

// DownloadLink is a time-limited URL for a stored document
type DownloadLink struct {
	Document  *notification.DocumentUpload
	URL       string
	ExpiresAt time.Time
}

// DocumentService stores registration and student attachments
type DocumentService struct {
	repos   txn.Repositories
	store   ObjectStore
	linkTTL time.Duration
	logger  *zap.Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(repos txn.Repositories, store ObjectStore, linkTTL time.Duration, logger *zap.Logger) *DocumentService {
	if linkTTL <= 0 {
		linkTTL = 15 * time.Minute
	}
	return &DocumentService{repos: repos, store: store, linkTTL: linkTTL, logger: logger}
}

// Upload stores the file and records its metadata. The object is written
// first; a failed metadata insert leaves an unreferenced object behind.
func (s *DocumentService) Upload(ctx context.Context, tenantID uuid.UUID, input UploadInput) (*notification.DocumentUpload, error) {
	if err := s.checkOwner(ctx, tenantID, input.OwnerType, input.OwnerID); err != nil {
		return nil, err
	}
	doc, err := notification.NewDocumentUpload(tenantID, input.OwnerType, input.OwnerID, input.Kind,
		input.FileName, input.ContentType, int64(len(input.Data)))
	if err != nil {
		return nil, err
	}
	if input.UploadedBy != nil {
		doc.SetCreatedBy(*input.UploadedBy)
	}
	if err := s.store.Upload(ctx, doc.StorageKey, input.Data, doc.ContentType); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}
	if err := s.repos.Documents().Save(ctx, doc); err != nil {
		return nil, err
	}
	s.logger.Info("Document uploaded",
		zap.String("document_id", doc.ID.String()),
		zap.String("owner_type", doc.OwnerType),
		zap.String("kind", string(doc.Kind)),
		zap.Int64("size", doc.Size),
	)
	return doc, nil
}

// List returns the documents of one owner, newest first
func (s *DocumentService) List(ctx context.Context, tenantID uuid.UUID, ownerType string, ownerID uuid.UUID) ([]notification.DocumentUpload, error) {
	return s.repos.Documents().FindByOwner(ctx, tenantID, ownerType, ownerID)
}

// Download returns a presigned URL for a document
func (s *DocumentService) Download(ctx context.Context, tenantID, documentID uuid.UUID) (*DownloadLink, error) {
	doc, err := s.repos.Documents().FindByIDForTenant(ctx, tenantID, documentID)
	if err != nil {
		return nil, err
	}
	url, expires, err := s.store.GenerateDownloadURL(ctx, doc.StorageKey, s.linkTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign document url: %w", err)
	}
	return &DownloadLink{Document: doc, URL: url, ExpiresAt: expires}, nil
}

func (s *DocumentService) checkOwner(ctx context.Context, tenantID uuid.UUID, ownerType string, ownerID uuid.UUID) error {
	var err error
	switch ownerType {
	case OwnerRegistration:
		_, err = s.repos.Registrations().FindByIDForTenant(ctx, tenantID, ownerID)
	case OwnerStudent:
		_, err = s.repos.Students().FindByIDForTenant(ctx, tenantID, ownerID)
	case OwnerCollection:
		_, err = s.repos.Collections().FindByIDForTenant(ctx, tenantID, ownerID)
	default:
		return shared.NewValidationError("owner_type", "Owner type must be registration, student or collection")
	}
	if shared.IsNotFound(err) {
		return shared.NewValidationError("owner_id", "Referenced record does not exist")
	}
	return err
}
