package notification

import (
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/shared"
)

// DocumentKind is what an uploaded file represents
type DocumentKind string

const (
	DocumentPhoto               DocumentKind = "PHOTO"
	DocumentTransferCertificate DocumentKind = "TRANSFER_CERTIFICATE"
	DocumentIDCard              DocumentKind = "ID_CARD"
	DocumentReceipt             DocumentKind = "RECEIPT"
	DocumentOther               DocumentKind = "OTHER"
)

// IsValid checks if the kind is known
func (k DocumentKind) IsValid() bool {
	switch k {
	case DocumentPhoto, DocumentTransferCertificate, DocumentIDCard, DocumentReceipt, DocumentOther:
		return true
	}
	return false
}

// MaxDocumentSize caps uploads at 10 MiB
const MaxDocumentSize = 10 << 20

var allowedContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// DocumentUpload is the metadata of a file kept in object storage.
// OwnerType/OwnerID point at the registration, student or collection it
// belongs to.
type DocumentUpload struct {
	shared.TenantAggregateRoot
	OwnerType   string       `gorm:"type:varchar(50);not null;index:idx_document_uploads_owner"`
	OwnerID     uuid.UUID    `gorm:"type:uuid;not null;index:idx_document_uploads_owner"`
	Kind        DocumentKind `gorm:"type:varchar(30);not null"`
	FileName    string       `gorm:"type:varchar(255);not null"`
	ContentType string       `gorm:"type:varchar(100);not null"`
	Size        int64        `gorm:"not null"`
	StorageKey  string       `gorm:"type:varchar(500);not null;uniqueIndex"`
}

// TableName returns the table name for GORM
func (DocumentUpload) TableName() string {
	return "document_uploads"
}

// NewDocumentUpload validates file metadata and derives the storage key
// {tenant}/{ownerType}/{ownerID}/{kind}/{id}{ext}
func NewDocumentUpload(tenantID uuid.UUID, ownerType string, ownerID uuid.UUID, kind DocumentKind, fileName, contentType string, size int64) (*DocumentUpload, error) {
	ownerType = strings.ToLower(strings.TrimSpace(ownerType))
	if ownerType == "" || ownerID == uuid.Nil {
		return nil, shared.NewValidationError("owner_id", "Owner is required")
	}
	if !kind.IsValid() {
		return nil, shared.NewValidationError("kind", "Unknown document kind")
	}
	fileName = path.Base(strings.TrimSpace(fileName))
	if fileName == "" || fileName == "." || fileName == "/" {
		return nil, shared.NewValidationError("file_name", "File name is required")
	}
	if !allowedContentTypes[contentType] {
		return nil, shared.NewValidationError("content_type", "Only JPEG, PNG, WEBP and PDF files are accepted")
	}
	if size <= 0 || size > MaxDocumentSize {
		return nil, shared.NewValidationError("size", "File must be between 1 byte and 10 MiB")
	}

	doc := &DocumentUpload{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		OwnerType:           ownerType,
		OwnerID:             ownerID,
		Kind:                kind,
		FileName:            fileName,
		ContentType:         contentType,
		Size:                size,
	}
	doc.StorageKey = path.Join(tenantID.String(), ownerType, ownerID.String(),
		strings.ToLower(string(kind)), doc.ID.String()+strings.ToLower(path.Ext(fileName)))
	return doc, nil
}
