package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appfee "github.com/madrasa/backend/internal/application/fee"
	"github.com/madrasa/backend/internal/domain/fee"
	"github.com/shopspring/decimal"
)

// CollectionService records fee payments
type CollectionService interface {
	Collect(ctx context.Context, tenantID uuid.UUID, input appfee.CollectInput) (*fee.FeeCollection, error)
	Approve(ctx context.Context, tenantID, collectionID, approver uuid.UUID) (*fee.FeeCollection, error)
	Cancel(ctx context.Context, tenantID, collectionID uuid.UUID, remarks string) (*fee.FeeCollection, error)
	Get(ctx context.Context, tenantID, collectionID uuid.UUID) (*fee.FeeCollection, error)
}

// ReceiptService renders receipt PDFs
type ReceiptService interface {
	RenderReceipt(ctx context.Context, tenantID, collectionID uuid.UUID) (*appfee.ReceiptLink, error)
}

// CollectionHandler serves fee collections and their receipts
type CollectionHandler struct {
	BaseHandler
	collections CollectionService
	receipts    ReceiptService
	clock       Clock
}

// NewCollectionHandler creates a new collection handler
func NewCollectionHandler(collections CollectionService, receipts ReceiptService, clock Clock) *CollectionHandler {
	return &CollectionHandler{collections: collections, receipts: receipts, clock: clock}
}

type CollectItemRequest struct {
	FeeTypeID string          `json:"fee_type_id" binding:"required,uuid"`
	Amount    decimal.Decimal `json:"amount" binding:"amount"`
	Month     *int            `json:"month" binding:"omitempty,min=1,max=12"`
	Year      *int            `json:"year" binding:"omitempty,min=2000,max=2100"`
}

type CollectRequest struct {
	StudentID       string               `json:"student_id" binding:"required,uuid"`
	CollectionDate  string               `json:"collection_date" binding:"omitempty,datetime=2006-01-02"`
	PaymentMethod   string               `json:"payment_method" binding:"required,oneof=CASH CARD BANK_TRANSFER CHEQUE OTHER"`
	ReferenceNumber string               `json:"reference_number" binding:"max=100"`
	Remarks         string               `json:"remarks"`
	Items           []CollectItemRequest `json:"items" binding:"required,min=1,dive"`
}

type CancelCollectionRequest struct {
	Remarks string `json:"remarks" binding:"required"`
}

// Collect records a payment against the student's open dues
func (h *CollectionHandler) Collect(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req CollectRequest
	if !h.BindJSON(c, &req) {
		return
	}
	items := make([]appfee.CollectItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, appfee.CollectItemInput{
			FeeTypeID: mustID(it.FeeTypeID),
			Amount:    it.Amount,
			Month:     it.Month,
			Year:      it.Year,
		})
	}
	col, err := h.collections.Collect(c.Request.Context(), actor.TenantID, appfee.CollectInput{
		StudentID:       mustID(req.StudentID),
		CollectedBy:     actor.UserID,
		CollectionDate:  dayOr(req.CollectionDate, h.clock.today()),
		PaymentMethod:   fee.PaymentMethod(req.PaymentMethod),
		ReferenceNumber: req.ReferenceNumber,
		Remarks:         req.Remarks,
		Items:           items,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, collectionView(col))
}

func (h *CollectionHandler) Get(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.Param(c, "id")
	if !ok {
		return
	}
	col, err := h.collections.Get(c.Request.Context(), actor.TenantID, id)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, collectionView(col))
}

func (h *CollectionHandler) Approve(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.Param(c, "id")
	if !ok {
		return
	}
	col, err := h.collections.Approve(c.Request.Context(), actor.TenantID, id, actor.UserID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, collectionView(col))
}

// Cancel voids a collection and gives its amounts back to the dues
func (h *CollectionHandler) Cancel(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.Param(c, "id")
	if !ok {
		return
	}
	var req CancelCollectionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	col, err := h.collections.Cancel(c.Request.Context(), actor.TenantID, id, req.Remarks)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, collectionView(col))
}

// Receipt renders the receipt PDF and returns a time-limited link to it
func (h *CollectionHandler) Receipt(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.Param(c, "id")
	if !ok {
		return
	}
	link, err := h.receipts.RenderReceipt(c.Request.Context(), actor.TenantID, id)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, LinkView{URL: link.URL, ExpiresAt: link.ExpiresAt})
}
