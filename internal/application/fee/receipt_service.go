package fee

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/application/txn"
	"github.com/madrasa/backend/internal/domain/fee"
	"github.com/madrasa/backend/internal/domain/notification"
	"go.uber.org/zap"
)

// ReceiptOwnerType is the document owner type of receipt PDFs
const ReceiptOwnerType = "fee_collection"

// ReceiptLine is one paid fee on a receipt
type ReceiptLine struct {
	FeeType string
	Month   string
	Year    int
	Amount  string
}

// ReceiptDocument is the data printed on a receipt
type ReceiptDocument struct {
	OrganizationName string
	OrganizationCode string
	ReceiptNumber    string
	CollectionDate   time.Time
	StudentName      string
	AdmissionNumber  string
	PaymentMethod    string
	ReferenceNumber  string
	Status           string
	Lines            []ReceiptLine
	Total            string
}

// ReceiptRenderer turns a receipt into a PDF
type ReceiptRenderer interface {
	RenderReceipt(ctx context.Context, doc *ReceiptDocument) ([]byte, error)
}

// ReceiptStore keeps rendered receipts and hands out download links
type ReceiptStore interface {
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
}

// ReceiptLink is a time-limited download link to a receipt PDF
type ReceiptLink struct {
	URL        string    `json:"url"`
	ExpiresAt  time.Time `json:"expires_at"`
	StorageKey string    `json:"storage_key"`
}

// ReceiptService renders and stores fee receipts
type ReceiptService struct {
	repos    txn.Repositories
	renderer ReceiptRenderer
	store    ReceiptStore
	linkTTL  time.Duration
	logger   *zap.Logger
}

// NewReceiptService creates a new ReceiptService
func NewReceiptService(repos txn.Repositories, renderer ReceiptRenderer, store ReceiptStore, linkTTL time.Duration, logger *zap.Logger) *ReceiptService {
	if linkTTL <= 0 {
		linkTTL = 15 * time.Minute
	}
	return &ReceiptService{repos: repos, renderer: renderer, store: store, linkTTL: linkTTL, logger: logger}
}

// RenderReceipt returns a download link for the collection's receipt,
// rendering and storing the PDF on first use
func (s *ReceiptService) RenderReceipt(ctx context.Context, tenantID, collectionID uuid.UUID) (*ReceiptLink, error) {
	collection, err := s.repos.Collections().FindByIDForTenant(ctx, tenantID, collectionID)
	if err != nil {
		return nil, err
	}

	docs, err := s.repos.Documents().FindByOwner(ctx, tenantID, ReceiptOwnerType, collection.ID)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if d.Kind == notification.DocumentReceipt {
			return s.link(ctx, d.StorageKey)
		}
	}

	doc, err := s.buildDocument(ctx, collection)
	if err != nil {
		return nil, err
	}
	pdf, err := s.renderer.RenderReceipt(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to render receipt: %w", err)
	}

	upload, err := notification.NewDocumentUpload(tenantID, ReceiptOwnerType, collection.ID,
		notification.DocumentReceipt, collection.ReceiptNumber+".pdf", "application/pdf", int64(len(pdf)))
	if err != nil {
		return nil, err
	}
	if err := s.store.Upload(ctx, upload.StorageKey, pdf, upload.ContentType); err != nil {
		return nil, fmt.Errorf("failed to store receipt: %w", err)
	}
	if err := s.repos.Documents().Save(ctx, upload); err != nil {
		return nil, err
	}

	s.logger.Info("Receipt rendered",
		zap.String("receipt_number", collection.ReceiptNumber),
		zap.String("storage_key", upload.StorageKey),
		zap.Int("bytes", len(pdf)),
	)
	return s.link(ctx, upload.StorageKey)
}

func (s *ReceiptService) link(ctx context.Context, key string) (*ReceiptLink, error) {
	url, expiresAt, err := s.store.GenerateDownloadURL(ctx, key, s.linkTTL)
	if err != nil {
		return nil, err
	}
	return &ReceiptLink{URL: url, ExpiresAt: expiresAt, StorageKey: key}, nil
}

func (s *ReceiptService) buildDocument(ctx context.Context, c *fee.FeeCollection) (*ReceiptDocument, error) {
	org, err := s.repos.Organizations().FindByID(ctx, c.TenantID)
	if err != nil {
		return nil, err
	}
	st, err := s.repos.Students().FindByIDForTenant(ctx, c.TenantID, c.StudentID)
	if err != nil {
		return nil, err
	}
	var name string
	if profile, err := s.repos.Profiles().FindByUserID(ctx, st.UserID); err == nil {
		name = profile.FullName
	}
	feeNames, err := feeTypeNames(ctx, s.repos, c.TenantID)
	if err != nil {
		return nil, err
	}

	doc := &ReceiptDocument{
		OrganizationName: org.Name,
		OrganizationCode: org.Code,
		ReceiptNumber:    c.ReceiptNumber,
		CollectionDate:   c.CollectionDate,
		StudentName:      name,
		AdmissionNumber:  st.AdmissionNumber,
		PaymentMethod:    string(c.PaymentMethod),
		ReferenceNumber:  c.ReferenceNumber,
		Status:           string(c.Status),
		Total:            c.TotalAmount.StringFixed(2),
	}
	for _, item := range c.Items {
		line := ReceiptLine{FeeType: feeNames[item.FeeTypeID], Amount: item.Amount.StringFixed(2)}
		if item.Month != nil {
			line.Month = time.Month(*item.Month).String()
		}
		if item.Year != nil {
			line.Year = *item.Year
		}
		doc.Lines = append(doc.Lines, line)
	}
	return doc, nil
}
