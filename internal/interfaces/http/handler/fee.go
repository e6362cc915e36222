package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appfee "github.com/madrasa/backend/internal/application/fee"
	"github.com/madrasa/backend/internal/domain/fee"
	"github.com/madrasa/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// FeeSetupService manages fee types, structures and per-student overrides
type FeeSetupService interface {
	CreateFeeType(ctx context.Context, tenantID uuid.UUID, input appfee.CreateFeeTypeInput) (*fee.FeeType, error)
	ListFeeTypes(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]fee.FeeType, error)
	CreateStructure(ctx context.Context, tenantID uuid.UUID, input fee.StructureInput) (*fee.FeeStructure, error)
	ListStructures(ctx context.Context, tenantID, yearID uuid.UUID) ([]fee.FeeStructure, error)
	SetConfiguration(ctx context.Context, tenantID uuid.UUID, input appfee.ConfigurationInput) (*fee.StudentFeeConfiguration, error)
}

// DueService creates and lists student fee dues
type DueService interface {
	RunMonthly(ctx context.Context, tenantID uuid.UUID, today time.Time) (appfee.BatchResult, error)
	RunAnnual(ctx context.Context, tenantID uuid.UUID, today time.Time) (appfee.BatchResult, error)
	CreateManual(ctx context.Context, tenantID uuid.UUID, input appfee.ManualDueInput) (*fee.StudentFeeDue, error)
	AdjustDue(ctx context.Context, tenantID, dueID uuid.UUID, total decimal.Decimal) (*fee.StudentFeeDue, error)
	ListForStudent(ctx context.Context, tenantID, studentID uuid.UUID, yearID *uuid.UUID) ([]fee.StudentFeeDue, error)
}

// ReminderService queues fee reminder emails
type ReminderService interface {
	SendFeeReminders(ctx context.Context, tenantID uuid.UUID, today time.Time) (int, error)
}

// FeeHandler serves fee setup, dues and the batch triggers
type FeeHandler struct {
	BaseHandler
	setup     FeeSetupService
	dues      DueService
	reminders ReminderService
	clock     Clock
}

// NewFeeHandler creates a new fee handler
func NewFeeHandler(setup FeeSetupService, dues DueService, reminders ReminderService, clock Clock) *FeeHandler {
	return &FeeHandler{setup: setup, dues: dues, reminders: reminders, clock: clock}
}

type CreateFeeTypeRequest struct {
	Name          string `json:"name" binding:"required,max=100"`
	Description   string `json:"description"`
	Category      string `json:"category" binding:"required,oneof=MONTHLY ADMISSION EXAM FESTIVAL SPORTS BOOKS UNIFORM TRANSPORT OTHER"`
	ChargeTrigger string `json:"charge_trigger" binding:"required,oneof=ON_ADMISSION ON_ENROLLMENT MONTHLY ANNUAL MANUAL"`
	ChargeMonth   *int   `json:"charge_month" binding:"omitempty,min=1,max=12"`
	IsRecurring   bool   `json:"is_recurring"`
}

type CreateStructureRequest struct {
	AcademicYearID      string          `json:"academic_year_id" binding:"required,uuid"`
	FeeTypeID           string          `json:"fee_type_id" binding:"required,uuid"`
	BranchID            string          `json:"branch_id" binding:"omitempty,uuid"`
	ClassID             string          `json:"class_id" binding:"omitempty,uuid"`
	Amount              decimal.Decimal `json:"amount" binding:"amount0"`
	ApplicableTo        string          `json:"applicable_to" binding:"omitempty,oneof=ALL PERMANENT TEMPORARY"`
	EffectiveFrom       string          `json:"effective_from" binding:"required,datetime=2006-01-02"`
	EffectiveTo         string          `json:"effective_to" binding:"required,datetime=2006-01-02"`
	AutoCreateDue       bool            `json:"auto_create_due"`
	DueDaysAfterTrigger int             `json:"due_days_after_trigger" binding:"min=0,max=365"`
}

type SetConfigurationRequest struct {
	StudentID      string          `json:"student_id" binding:"required,uuid"`
	AcademicYearID string          `json:"academic_year_id" binding:"required,uuid"`
	FeeTypeID      string          `json:"fee_type_id" binding:"required,uuid"`
	Amount         decimal.Decimal `json:"amount" binding:"amount0"`
	Reason         string          `json:"reason" binding:"required"`
}

type CreateDueRequest struct {
	StudentID      string          `json:"student_id" binding:"required,uuid"`
	AcademicYearID string          `json:"academic_year_id" binding:"required,uuid"`
	FeeTypeID      string          `json:"fee_type_id" binding:"required,uuid"`
	Month          int             `json:"month" binding:"min=0,max=12"`
	Amount         decimal.Decimal `json:"amount" binding:"amount0"`
	DueDate        string          `json:"due_date" binding:"omitempty,datetime=2006-01-02"`
	Override       bool            `json:"override"`
}

type AdjustDueRequest struct {
	TotalAmount decimal.Decimal `json:"total_amount" binding:"amount0"`
}

type dueQuery struct {
	StudentID      string `form:"student_id" binding:"required,uuid"`
	AcademicYearID string `form:"academic_year_id" binding:"omitempty,uuid"`
}

type structureQuery struct {
	AcademicYearID string `form:"academic_year_id" binding:"required,uuid"`
}

type batchQuery struct {
	Date string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

func (h *FeeHandler) ListFeeTypes(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var q catalogQuery
	if !h.BindQuery(c, &q) {
		return
	}
	types, err := h.setup.ListFeeTypes(c.Request.Context(), actor.TenantID, q.ActiveOnly)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, mapSlice(types, feeTypeView))
}

func (h *FeeHandler) CreateFeeType(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req CreateFeeTypeRequest
	if !h.BindJSON(c, &req) {
		return
	}
	t, err := h.setup.CreateFeeType(c.Request.Context(), actor.TenantID, appfee.CreateFeeTypeInput{
		Name:          req.Name,
		Description:   req.Description,
		Category:      fee.Category(req.Category),
		ChargeTrigger: fee.Trigger(req.ChargeTrigger),
		ChargeMonth:   req.ChargeMonth,
		IsRecurring:   req.IsRecurring,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, feeTypeView(t))
}

// ListStructures returns the fee structures of one academic year
func (h *FeeHandler) ListStructures(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var q structureQuery
	if !h.BindQuery(c, &q) {
		return
	}
	structures, err := h.setup.ListStructures(c.Request.Context(), actor.TenantID, mustID(q.AcademicYearID))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, mapSlice(structures, feeStructureView))
}

func (h *FeeHandler) CreateStructure(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req CreateStructureRequest
	if !h.BindJSON(c, &req) {
		return
	}
	applicable := fee.ApplicableTo(req.ApplicableTo)
	if applicable == "" {
		applicable = fee.ApplicableAll
	}
	s, err := h.setup.CreateStructure(c.Request.Context(), actor.TenantID, fee.StructureInput{
		AcademicYearID:      mustID(req.AcademicYearID),
		FeeTypeID:           mustID(req.FeeTypeID),
		BranchID:            optionalID(req.BranchID),
		ClassID:             optionalID(req.ClassID),
		Amount:              req.Amount,
		ApplicableTo:        applicable,
		EffectiveFrom:       day(req.EffectiveFrom),
		EffectiveTo:         day(req.EffectiveTo),
		AutoCreateDue:       req.AutoCreateDue,
		DueDaysAfterTrigger: req.DueDaysAfterTrigger,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, feeStructureView(s))
}

// SetConfiguration sets a per-student amount that wins over structures
func (h *FeeHandler) SetConfiguration(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req SetConfigurationRequest
	if !h.BindJSON(c, &req) {
		return
	}
	cfg, err := h.setup.SetConfiguration(c.Request.Context(), actor.TenantID, appfee.ConfigurationInput{
		StudentID:      mustID(req.StudentID),
		AcademicYearID: mustID(req.AcademicYearID),
		FeeTypeID:      mustID(req.FeeTypeID),
		Amount:         req.Amount,
		Reason:         req.Reason,
		UpdatedBy:      actor.UserID,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, FeeConfigurationView{
		ID: cfg.ID, StudentID: cfg.StudentID, AcademicYearID: cfg.AcademicYearID, FeeTypeID: cfg.FeeTypeID,
		Amount: cfg.Amount, OverrideReason: cfg.OverrideReason, UpdatedBy: cfg.UpdatedBy,
	})
}

// ListDues returns the dues of one student
func (h *FeeHandler) ListDues(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var q dueQuery
	if !h.BindQuery(c, &q) {
		return
	}
	dues, err := h.dues.ListForStudent(c.Request.Context(), actor.TenantID, mustID(q.StudentID), optionalID(q.AcademicYearID))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, mapSlice(dues, feeDueView))
}

// CreateDue records a manual due. A zero amount is resolved from the
// student's override or the matching fee structure.
func (h *FeeHandler) CreateDue(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req CreateDueRequest
	if !h.BindJSON(c, &req) {
		return
	}
	due, err := h.dues.CreateManual(c.Request.Context(), actor.TenantID, appfee.ManualDueInput{
		StudentID:      mustID(req.StudentID),
		AcademicYearID: mustID(req.AcademicYearID),
		FeeTypeID:      mustID(req.FeeTypeID),
		Month:          req.Month,
		Amount:         req.Amount,
		DueDate:        dayOr(req.DueDate, h.clock.today()),
		Override:       req.Override,
		CreatedBy:      &actor.UserID,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, feeDueView(due))
}

// AdjustDue changes the total of a due, keeping what was already paid
func (h *FeeHandler) AdjustDue(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.Param(c, "id")
	if !ok {
		return
	}
	var req AdjustDueRequest
	if !h.BindJSON(c, &req) {
		return
	}
	due, err := h.dues.AdjustDue(c.Request.Context(), actor.TenantID, id, req.TotalAmount)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, feeDueView(due))
}

// RunMonthly runs the monthly due batch for the caller's organization
func (h *FeeHandler) RunMonthly(c *gin.Context) {
	h.runBatch(c, appfee.JobMonthly, h.dues.RunMonthly)
}

// RunAnnual runs the annual due batch for the caller's organization
func (h *FeeHandler) RunAnnual(c *gin.Context) {
	h.runBatch(c, appfee.JobAnnual, h.dues.RunAnnual)
}

func (h *FeeHandler) runBatch(c *gin.Context, job string, run func(context.Context, uuid.UUID, time.Time) (appfee.BatchResult, error)) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var q batchQuery
	if !h.BindQuery(c, &q) {
		return
	}
	asOf := dayOr(q.Date, h.clock.today())
	result, err := run(c.Request.Context(), actor.TenantID, asOf)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, BatchView{Job: job, AsOf: dateOf(asOf), Stats: result})
}

// SendReminders queues reminder emails for students with overdue fees
func (h *FeeHandler) SendReminders(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var q batchQuery
	if !h.BindQuery(c, &q) {
		return
	}
	asOf := dayOr(q.Date, h.clock.today())
	queued, err := h.reminders.SendFeeReminders(c.Request.Context(), actor.TenantID, asOf)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusAccepted, dto.OK(gin.H{"queued": queued, "as_of": dateOf(asOf)}))
}
