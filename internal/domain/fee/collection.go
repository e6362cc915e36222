package fee

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/numbering"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how a collection was paid
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "CASH"
	PaymentCard         PaymentMethod = "CARD"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentCheque       PaymentMethod = "CHEQUE"
	PaymentOther        PaymentMethod = "OTHER"
)

// IsValid checks if the payment method is known
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentBankTransfer, PaymentCheque, PaymentOther:
		return true
	}
	return false
}

// CollectionStatus is the approval status of a collection
type CollectionStatus string

const (
	CollectionPending   CollectionStatus = "PENDING"
	CollectionApproved  CollectionStatus = "APPROVED"
	CollectionCancelled CollectionStatus = "CANCELLED"
)

// FeeCollection is one payment transaction with its receipt
type FeeCollection struct {
	shared.TenantAggregateRoot
	ReceiptNumber   string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	StudentID       uuid.UUID           `gorm:"type:uuid;not null;index"`
	AcademicYearID  uuid.UUID           `gorm:"type:uuid;not null;index"`
	EnrollmentID    *uuid.UUID          `gorm:"type:uuid"`
	CollectionDate  time.Time           `gorm:"type:date;not null;index"`
	CollectedByID   uuid.UUID           `gorm:"type:uuid;not null"`
	PaymentMethod   PaymentMethod       `gorm:"type:varchar(20);not null"`
	TotalAmount     decimal.Decimal     `gorm:"type:decimal(10,2);not null;default:0"`
	ReferenceNumber string              `gorm:"type:varchar(100)"`
	Remarks         string              `gorm:"type:text"`
	Status          CollectionStatus    `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	Items           []FeeCollectionItem `gorm:"foreignKey:FeeCollectionID"`
	ApprovedByID    *uuid.UUID          `gorm:"type:uuid"`
	ApprovedAt      *time.Time
}

// TableName returns the table name for GORM
func (FeeCollection) TableName() string {
	return "fee_collections"
}

// FeeCollectionItem is one fee paid within a collection
type FeeCollectionItem struct {
	shared.BaseEntity
	FeeCollectionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	FeeTypeID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount          decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Month           *int
	Year            *int
	DueID           *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (FeeCollectionItem) TableName() string {
	return "fee_collection_items"
}

// MonthOrNone returns the item month, or NoMonth
func (i *FeeCollectionItem) MonthOrNone() int {
	if i.Month == nil {
		return NoMonth
	}
	return *i.Month
}

// NewFeeCollection creates a PENDING collection without items
func NewFeeCollection(tenantID, studentID, yearID, collectedBy uuid.UUID, on time.Time, method PaymentMethod) (*FeeCollection, error) {
	if studentID == uuid.Nil {
		return nil, shared.NewValidationError("student_id", "Student is required")
	}
	if yearID == uuid.Nil {
		return nil, shared.NewValidationError("academic_year_id", "Academic year is required")
	}
	if !method.IsValid() {
		return nil, shared.NewValidationError("payment_method", "Unknown payment method")
	}
	return &FeeCollection{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		StudentID:           studentID,
		AcademicYearID:      yearID,
		CollectionDate:      shared.DateOf(on),
		CollectedByID:       collectedBy,
		PaymentMethod:       method,
		TotalAmount:         decimal.Zero,
		Status:              CollectionPending,
	}, nil
}

// AddItem appends a line and recomputes the total
func (c *FeeCollection) AddItem(feeTypeID uuid.UUID, amount decimal.Decimal, month, year *int) (*FeeCollectionItem, error) {
	if feeTypeID == uuid.Nil {
		return nil, shared.NewValidationError("fee_type_id", "Fee type is required")
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("amount", "Amount must be positive")
	}
	if month != nil && (*month < 1 || *month > 12) {
		return nil, shared.NewValidationError("month", "Month must be between 1 and 12")
	}
	if year != nil && (*year < 2000 || *year > 2100) {
		return nil, shared.NewValidationError("year", "Year is out of range")
	}
	c.Items = append(c.Items, FeeCollectionItem{
		BaseEntity:      shared.NewBaseEntity(),
		FeeCollectionID: c.ID,
		FeeTypeID:       feeTypeID,
		Amount:          amount.Round(2),
		Month:           month,
		Year:            year,
	})
	c.RecalculateTotal()
	return &c.Items[len(c.Items)-1], nil
}

// RecalculateTotal sums the item amounts
func (c *FeeCollection) RecalculateTotal() {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Amount)
	}
	c.TotalAmount = total
}

// AssignReceiptNumber sets the receipt number once
func (c *FeeCollection) AssignReceiptNumber(number string) error {
	if c.ReceiptNumber != "" {
		return numbering.ErrIdentifierAlreadyAssigned
	}
	number = strings.TrimSpace(number)
	if number == "" {
		return shared.NewValidationError("receipt_number", "Receipt number is required")
	}
	c.ReceiptNumber = number
	return nil
}

// Approve confirms a PENDING collection
func (c *FeeCollection) Approve(by uuid.UUID, at time.Time) error {
	if c.Status != CollectionPending {
		return shared.ErrInvalidState.WithField("status", "only PENDING collections can be approved")
	}
	c.Status = CollectionApproved
	c.ApprovedByID = &by
	c.ApprovedAt = &at
	c.IncrementVersion()
	return nil
}

// Cancel voids the collection. Callers reverse the item payments.
func (c *FeeCollection) Cancel(remarks string) error {
	if c.Status == CollectionCancelled {
		return shared.ErrInvalidState.WithField("status", "collection is already cancelled")
	}
	c.Status = CollectionCancelled
	if remarks = strings.TrimSpace(remarks); remarks != "" {
		c.Remarks = remarks
	}
	c.IncrementVersion()
	return nil
}
