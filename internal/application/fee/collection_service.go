package fee

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/application/txn"
	"github.com/madrasa/backend/internal/domain/fee"
	"github.com/madrasa/backend/internal/domain/organization"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CollectItemInput is one fee paid in a collection
type CollectItemInput struct {
	FeeTypeID uuid.UUID
	Amount    decimal.Decimal
	Month     *int
	Year      *int
}

// CollectInput contains the fields of a fee collection
type CollectInput struct {
	StudentID       uuid.UUID
	CollectedBy     uuid.UUID
	CollectionDate  time.Time
	PaymentMethod   fee.PaymentMethod
	ReferenceNumber string
	Remarks         string
	Items           []CollectItemInput
}

// CollectionService records fee payments against dues
type CollectionService struct {
	repos   txn.Repositories
	txScope txn.TransactionScope
	logger  *zap.Logger
}

// NewCollectionService creates a new CollectionService
func NewCollectionService(repos txn.Repositories, txScope txn.TransactionScope, logger *zap.Logger) *CollectionService {
	return &CollectionService{repos: repos, txScope: txScope, logger: logger}
}

// Collect records a payment in one transaction: the receipt number is
// allocated, every item is applied to its due and the collection is
// stored with its items. Items whose fee has no outstanding due are kept
// unallocated.
func (s *CollectionService) Collect(ctx context.Context, tenantID uuid.UUID, input CollectInput) (*fee.FeeCollection, error) {
	if len(input.Items) == 0 {
		return nil, shared.NewValidationError("items", "At least one item is required")
	}
	on := input.CollectionDate
	if on.IsZero() {
		on = shared.Today()
	}

	var collection *fee.FeeCollection
	err := s.txScope.Execute(ctx, func(repos txn.Repositories) error {
		org, err := repos.Organizations().FindByID(ctx, tenantID)
		if err != nil {
			return err
		}
		year, err := repos.AcademicYears().FindActive(ctx, tenantID)
		if shared.IsNotFound(err) {
			return organization.ErrNoActiveAcademicYear
		}
		if err != nil {
			return err
		}
		st, err := repos.Students().FindByIDForTenant(ctx, tenantID, input.StudentID)
		if err != nil {
			return err
		}

		collection, err = fee.NewFeeCollection(tenantID, st.ID, year.ID, input.CollectedBy, on, input.PaymentMethod)
		if err != nil {
			return err
		}
		collection.ReferenceNumber = input.ReferenceNumber
		collection.Remarks = input.Remarks
		collection.SetCreatedBy(input.CollectedBy)
		if enrollment, err := repos.Enrollments().FindByStudentAndYear(ctx, tenantID, st.ID, year.ID); err == nil {
			collection.EnrollmentID = &enrollment.ID
		} else if !shared.IsNotFound(err) {
			return err
		}

		for i, item := range input.Items {
			if _, err := repos.FeeTypes().FindByIDForTenant(ctx, tenantID, item.FeeTypeID); err != nil {
				if shared.IsNotFound(err) {
					return shared.NewValidationError("items", "Unknown fee type").WithField("item", itemLabel(i))
				}
				return err
			}
			if _, err := collection.AddItem(item.FeeTypeID, item.Amount, item.Month, item.Year); err != nil {
				return err
			}
		}

		for i := range collection.Items {
			if err := s.applyToDue(ctx, repos, collection, &collection.Items[i]); err != nil {
				return err
			}
		}

		receipt, err := txn.NextReceiptNumber(ctx, repos, tenantID, org.Code, collection.CollectionDate)
		if err != nil {
			return err
		}
		if err := collection.AssignReceiptNumber(receipt); err != nil {
			return err
		}
		return repos.Collections().Create(ctx, collection)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Fee collected",
		zap.String("tenant_id", tenantID.String()),
		zap.String("receipt_number", collection.ReceiptNumber),
		zap.String("total", collection.TotalAmount.String()),
		zap.Int("items", len(collection.Items)),
	)
	return collection, nil
}

// applyToDue pays the item against the due of the same fee: the month's
// due for monthly items, otherwise the oldest outstanding one.
func (s *CollectionService) applyToDue(ctx context.Context, repos txn.Repositories, c *fee.FeeCollection, item *fee.FeeCollectionItem) error {
	dues, err := repos.Dues().FindForPaymentForUpdate(ctx, c.TenantID, c.StudentID, c.AcademicYearID, item.FeeTypeID, item.MonthOrNone())
	if err != nil {
		return err
	}
	if len(dues) == 0 {
		s.logger.Debug("No outstanding due for collection item",
			zap.String("fee_type_id", item.FeeTypeID.String()),
			zap.Int("month", item.MonthOrNone()),
		)
		return nil
	}
	due := &dues[0]
	if err := due.ApplyPayment(item.Amount, c.CollectionDate); err != nil {
		return err
	}
	if err := repos.Dues().Save(ctx, due); err != nil {
		return err
	}
	item.DueID = &due.ID
	return nil
}

// Approve confirms a PENDING collection
func (s *CollectionService) Approve(ctx context.Context, tenantID, collectionID, approver uuid.UUID) (*fee.FeeCollection, error) {
	var collection *fee.FeeCollection
	err := s.txScope.Execute(ctx, func(repos txn.Repositories) error {
		var err error
		collection, err = repos.Collections().FindByIDForUpdate(ctx, tenantID, collectionID)
		if err != nil {
			return err
		}
		if err := collection.Approve(approver, time.Now()); err != nil {
			return err
		}
		return repos.Collections().Save(ctx, collection)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Fee collection approved",
		zap.String("receipt_number", collection.ReceiptNumber),
		zap.String("approved_by", approver.String()),
	)
	return collection, nil
}

// Cancel voids a collection and takes its payments back off the dues
func (s *CollectionService) Cancel(ctx context.Context, tenantID, collectionID uuid.UUID, remarks string) (*fee.FeeCollection, error) {
	var collection *fee.FeeCollection
	err := s.txScope.Execute(ctx, func(repos txn.Repositories) error {
		var err error
		collection, err = repos.Collections().FindByIDForUpdate(ctx, tenantID, collectionID)
		if err != nil {
			return err
		}
		if err := collection.Cancel(remarks); err != nil {
			return err
		}

		paid := make(map[uuid.UUID]decimal.Decimal)
		var dueIDs []uuid.UUID
		for _, item := range collection.Items {
			if item.DueID == nil {
				continue
			}
			if _, seen := paid[*item.DueID]; !seen {
				dueIDs = append(dueIDs, *item.DueID)
			}
			paid[*item.DueID] = paid[*item.DueID].Add(item.Amount)
		}
		if len(dueIDs) > 0 {
			dues, err := repos.Dues().FindByIDsForUpdate(ctx, tenantID, dueIDs)
			if err != nil {
				return err
			}
			for i := range dues {
				if err := dues[i].ReversePayment(paid[dues[i].ID]); err != nil {
					return err
				}
				if err := repos.Dues().Save(ctx, &dues[i]); err != nil {
					return err
				}
			}
		}
		return repos.Collections().Save(ctx, collection)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Fee collection cancelled", zap.String("receipt_number", collection.ReceiptNumber))
	return collection, nil
}

// Get returns a collection with its items
func (s *CollectionService) Get(ctx context.Context, tenantID, collectionID uuid.UUID) (*fee.FeeCollection, error) {
	return s.repos.Collections().FindByIDForTenant(ctx, tenantID, collectionID)
}

func itemLabel(i int) string {
	return fmt.Sprintf("items[%d]", i)
}
