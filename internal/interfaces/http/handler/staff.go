package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appstaff "github.com/madrasa/backend/internal/application/staff"
	"github.com/madrasa/backend/internal/domain/identity"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/madrasa/backend/internal/domain/staff"
	"github.com/madrasa/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// StaffService manages staff members and teacher assignments
type StaffService interface {
	CreateStaff(ctx context.Context, actor identity.Actor, input appstaff.CreateStaffInput) (*staff.StaffProfile, error)
	Get(ctx context.Context, tenantID, staffID uuid.UUID) (*staff.StaffProfile, error)
	List(ctx context.Context, actor identity.Actor, filter staff.StaffFilter, page shared.Filter) (*shared.Paginated[staff.StaffProfile], error)
	Update(ctx context.Context, actor identity.Actor, staffID uuid.UUID, input appstaff.UpdateStaffInput) (*staff.StaffProfile, error)
	Assign(ctx context.Context, actor identity.Actor, input appstaff.AssignInput) (*appstaff.AssignResult, error)
	ListAssignments(ctx context.Context, actor identity.Actor, filter staff.AssignmentFilter) ([]staff.TeacherAssignment, error)
}

// StaffHandler serves staff records and teacher assignments
type StaffHandler struct {
	BaseHandler
	staff StaffService
	clock Clock
}

// NewStaffHandler creates a new staff handler
func NewStaffHandler(svc StaffService, clock Clock) *StaffHandler {
	return &StaffHandler{staff: svc, clock: clock}
}

type CreateStaffRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"omitempty,min=8,max=128"`
	Role     string `json:"role" binding:"required,oneof=ADMIN CHIEF_HEAD_TEACHER HEAD_TEACHER TEACHER ACCOUNTANT OFFICE_STAFF"`

	FullName     string `json:"full_name" binding:"required,max=200"`
	Gender       string `json:"gender" binding:"required,oneof=MALE FEMALE"`
	DOB          string `json:"dob" binding:"required,datetime=2006-01-02"`
	IDCardType   string `json:"id_card_type" binding:"required,oneof=QID PASSPORT"`
	IDCardNumber string `json:"id_card_number" binding:"required,max=50"`
	Mobile       string `json:"mobile" binding:"max=20"`
	WhatsApp     string `json:"whatsapp" binding:"max=20"`

	Category                 string          `json:"category" binding:"required,oneof=PERMANENT TEMPORARY"`
	Status                   string          `json:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
	BranchID                 string          `json:"branch_id" binding:"omitempty,uuid"`
	MonthlySalary            decimal.Decimal `json:"monthly_salary" binding:"amount0"`
	ReligiousAcademicDetails string          `json:"religious_academic_details"`
	AcademicDetails          string          `json:"academic_details"`
	PreviousMadrasa          string          `json:"previous_madrasa" binding:"max=200"`
	MSRNumber                string          `json:"msr_number" binding:"max=50"`
	AadharNumber             string          `json:"aadhar_number" binding:"omitempty,numeric,len=12"`
	Notes                    string          `json:"notes"`
}

type UpdateStaffRequest struct {
	FullName *string `json:"full_name" binding:"omitempty,max=200"`
	Mobile   *string `json:"mobile" binding:"omitempty,max=20"`
	WhatsApp *string `json:"whatsapp" binding:"omitempty,max=20"`

	Category                 *string          `json:"category" binding:"omitempty,oneof=PERMANENT TEMPORARY"`
	Status                   *string          `json:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
	BranchID                 *string          `json:"branch_id" binding:"omitempty,uuid"`
	MonthlySalary            *decimal.Decimal `json:"monthly_salary" binding:"omitempty,amount0"`
	ReligiousAcademicDetails *string          `json:"religious_academic_details"`
	AcademicDetails          *string          `json:"academic_details"`
	PreviousMadrasa          *string          `json:"previous_madrasa" binding:"omitempty,max=200"`
	MSRNumber                *string          `json:"msr_number" binding:"omitempty,max=50"`
	AadharNumber             *string          `json:"aadhar_number" binding:"omitempty,numeric,len=12"`
	Notes                    *string          `json:"notes"`
}

type StaffListQuery struct {
	dto.ListQuery
	BranchID string `form:"branch_id" binding:"omitempty,uuid"`
	Status   string `form:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
	Category string `form:"category" binding:"omitempty,oneof=PERMANENT TEMPORARY"`
}

type AssignTeacherRequest struct {
	TeacherID      string `json:"teacher_id" binding:"required,uuid"`
	BranchID       string `json:"branch_id" binding:"required,uuid"`
	AcademicYearID string `json:"academic_year_id" binding:"required,uuid"`
	ClassID        string `json:"class_id" binding:"required,uuid"`
	DivisionID     string `json:"division_id" binding:"required,uuid"`
	StartDate      string `json:"start_date" binding:"omitempty,datetime=2006-01-02"`
	AssignmentType string `json:"assignment_type" binding:"omitempty,oneof=PRIMARY SUBSTITUTE ASSISTANT TEMPORARY"`
	ChangeReason   string `json:"change_reason" binding:"omitempty,oneof=NEW_YEAR LEAVE TRANSFER REPLACEMENT RESIGNATION PROMOTION OTHER"`
	Remarks        string `json:"remarks"`
}

type AssignmentQuery struct {
	TeacherID      string `form:"teacher_id" binding:"omitempty,uuid"`
	BranchID       string `form:"branch_id" binding:"omitempty,uuid"`
	AcademicYearID string `form:"academic_year_id" binding:"omitempty,uuid"`
	ClassID        string `form:"class_id" binding:"omitempty,uuid"`
	DivisionID     string `form:"division_id" binding:"omitempty,uuid"`
	ActiveOnly     bool   `form:"active_only"`
}

type AssignResultView struct {
	Assignment AssignmentView   `json:"assignment"`
	Closed     []AssignmentView `json:"closed"`
}

// Create adds a staff member with a login account. Without a password a
// random one is set and must be reset before first login.
func (h *StaffHandler) Create(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req CreateStaffRequest
	if !h.BindJSON(c, &req) {
		return
	}
	member, err := h.staff.CreateStaff(c.Request.Context(), actor, appstaff.CreateStaffInput{
		Email:                    req.Email,
		Password:                 req.Password,
		Role:                     identity.Role(req.Role),
		FullName:                 req.FullName,
		Gender:                   identity.Gender(req.Gender),
		DOB:                      day(req.DOB),
		IDCardType:               identity.IDCardType(req.IDCardType),
		IDCardNumber:             req.IDCardNumber,
		Mobile:                   req.Mobile,
		WhatsApp:                 req.WhatsApp,
		Category:                 staff.Category(req.Category),
		Status:                   staff.Status(req.Status),
		BranchID:                 optionalID(req.BranchID),
		MonthlySalary:            req.MonthlySalary,
		ReligiousAcademicDetails: req.ReligiousAcademicDetails,
		AcademicDetails:          req.AcademicDetails,
		PreviousMadrasa:          req.PreviousMadrasa,
		MSRNumber:                req.MSRNumber,
		AadharNumber:             req.AadharNumber,
		Notes:                    req.Notes,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, staffView(member))
}

func (h *StaffHandler) Get(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.Param(c, "id")
	if !ok {
		return
	}
	member, err := h.staff.Get(c.Request.Context(), actor.TenantID, id)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, staffView(member))
}

func (h *StaffHandler) List(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var q StaffListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	page, err := h.staff.List(c.Request.Context(), actor, staff.StaffFilter{
		BranchID: optionalID(q.BranchID),
		Status:   staff.Status(q.Status),
		Category: staff.Category(q.Category),
	}, q.Filter())
	if err != nil {
		h.Error(c, err)
		return
	}
	views := shared.NewPaginated(mapSlice(page.Items, staffView), page.Total, page.Page, page.PageSize)
	c.JSON(http.StatusOK, dto.Page(&views))
}

// Update changes employment and contact details. Setting status INACTIVE
// also blocks the member's login.
func (h *StaffHandler) Update(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.Param(c, "id")
	if !ok {
		return
	}
	var req UpdateStaffRequest
	if !h.BindJSON(c, &req) {
		return
	}
	input := appstaff.UpdateStaffInput{
		FullName:                 req.FullName,
		Mobile:                   req.Mobile,
		WhatsApp:                 req.WhatsApp,
		MonthlySalary:            req.MonthlySalary,
		ReligiousAcademicDetails: req.ReligiousAcademicDetails,
		AcademicDetails:          req.AcademicDetails,
		PreviousMadrasa:          req.PreviousMadrasa,
		MSRNumber:                req.MSRNumber,
		AadharNumber:             req.AadharNumber,
		Notes:                    req.Notes,
	}
	if req.Category != nil {
		category := staff.Category(*req.Category)
		input.Category = &category
	}
	if req.Status != nil {
		status := staff.Status(*req.Status)
		input.Status = &status
	}
	if req.BranchID != nil {
		input.BranchID = optionalID(*req.BranchID)
	}
	member, err := h.staff.Update(c.Request.Context(), actor, id, input)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, staffView(member))
}

// Assign puts a teacher on a class slot. A new primary assignment closes
// the slot's current primary.
func (h *StaffHandler) Assign(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req AssignTeacherRequest
	if !h.BindJSON(c, &req) {
		return
	}
	kind := staff.AssignmentType(req.AssignmentType)
	if kind == "" {
		kind = staff.AssignmentPrimary
	}
	result, err := h.staff.Assign(c.Request.Context(), actor, appstaff.AssignInput{
		TeacherID:      mustID(req.TeacherID),
		BranchID:       mustID(req.BranchID),
		AcademicYearID: mustID(req.AcademicYearID),
		ClassID:        mustID(req.ClassID),
		DivisionID:     mustID(req.DivisionID),
		StartDate:      dayOr(req.StartDate, h.clock.today()),
		AssignmentType: kind,
		ChangeReason:   staff.ChangeReason(req.ChangeReason),
		Remarks:        req.Remarks,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, AssignResultView{
		Assignment: assignmentView(result.Assignment),
		Closed:     mapSlice(result.Closed, assignmentView),
	})
}

func (h *StaffHandler) ListAssignments(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var q AssignmentQuery
	if !h.BindQuery(c, &q) {
		return
	}
	list, err := h.staff.ListAssignments(c.Request.Context(), actor, staff.AssignmentFilter{
		TeacherID:      optionalID(q.TeacherID),
		BranchID:       optionalID(q.BranchID),
		AcademicYearID: optionalID(q.AcademicYearID),
		ClassID:        optionalID(q.ClassID),
		DivisionID:     optionalID(q.DivisionID),
		ActiveOnly:     q.ActiveOnly,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, mapSlice(list, assignmentView))
}
