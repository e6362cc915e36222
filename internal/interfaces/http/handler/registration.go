package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appstudent "github.com/madrasa/backend/internal/application/student"
	"github.com/madrasa/backend/internal/domain/identity"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/madrasa/backend/internal/domain/student"
	"github.com/madrasa/backend/internal/interfaces/http/dto"
	"github.com/madrasa/backend/internal/interfaces/http/middleware"
)

// RegistrationService handles public admission forms and their review
type RegistrationService interface {
	Submit(ctx context.Context, orgCode string, input student.RegistrationInput) (*student.StudentRegistration, error)
	List(ctx context.Context, actor identity.Actor, status student.RegistrationStatus, branchID *uuid.UUID, page shared.Filter) (*shared.Paginated[student.StudentRegistration], error)
	Get(ctx context.Context, actor identity.Actor, id uuid.UUID) (*student.StudentRegistration, error)
	Approve(ctx context.Context, actor identity.Actor, id uuid.UUID, input appstudent.ApproveInput) (*appstudent.ApprovalResult, error)
	Reject(ctx context.Context, actor identity.Actor, id uuid.UUID, reason string) (*student.StudentRegistration, error)
	RequestInfo(ctx context.Context, actor identity.Actor, id uuid.UUID, message string) (*student.StudentRegistration, error)
}

// RegistrationHandler serves admission registrations
type RegistrationHandler struct {
	BaseHandler
	registrations RegistrationService
}

// NewRegistrationHandler creates a new registration handler
func NewRegistrationHandler(registrations RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations}
}

type SubmitRegistrationRequest struct {
	AdmissionType      string                 `json:"admission_type" binding:"omitempty,oneof=NEW EXISTING_UPDATE"`
	StudentName        string                 `json:"student_name" binding:"required,max=200"`
	Gender             string                 `json:"gender" binding:"required,oneof=MALE FEMALE"`
	DOB                string                 `json:"dob" binding:"required,datetime=2006-01-02"`
	StudyType          string                 `json:"study_type" binding:"required,oneof=PERMANENT TEMPORARY"`
	IDCardType         string                 `json:"id_card_type" binding:"required,oneof=QID PASSPORT"`
	IDCardNumber       string                 `json:"id_card_number" binding:"required,max=50"`
	PhotoKey           string                 `json:"photo_key" binding:"max=500"`
	FatherName         string                 `json:"father_name" binding:"required,max=200"`
	ParentMobile       string                 `json:"parent_mobile" binding:"required,max=20"`
	FatherWhatsApp     string                 `json:"father_whatsapp" binding:"max=20"`
	Email              string                 `json:"email" binding:"required,email"`
	MotherName         string                 `json:"mother_name" binding:"required,max=200"`
	SiblingsDetails    string                 `json:"siblings_details"`
	QatarAddress       student.AddressDetails `json:"qatar_address"`
	IndiaAddress       student.AddressDetails `json:"india_address"`
	ClassToAdmitID     string                 `json:"class_to_admit_id" binding:"omitempty,uuid"`
	InterestedBranchID string                 `json:"interested_branch_id" binding:"omitempty,uuid"`
	CompletedClasses   string                 `json:"completed_classes" binding:"max=100"`
	PreviousMadrasa    string                 `json:"previous_madrasa" binding:"max=200"`
	TCNumber           string                 `json:"tc_number" binding:"max=50"`
	AadharNumber       string                 `json:"aadhar_number" binding:"omitempty,numeric,len=12"`
}

type RegistrationListQuery struct {
	dto.ListQuery
	Status   string `form:"status" binding:"omitempty,oneof=PENDING APPROVED REJECTED INFO_REQUESTED"`
	BranchID string `form:"branch_id" binding:"omitempty,uuid"`
}

type ApproveRegistrationRequest struct {
	BranchID    string `json:"branch_id" binding:"required,uuid"`
	ClassID     string `json:"class_id" binding:"required,uuid"`
	DivisionID  string `json:"division_id" binding:"required,uuid"`
	Category    string `json:"category" binding:"omitempty,oneof=PERMANENT TEMPORARY"`
	HasSiblings bool   `json:"has_siblings"`
	Notes       string `json:"notes"`
}

type RejectRegistrationRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type RequestInfoRequest struct {
	Message string `json:"message" binding:"required"`
}

// Submit accepts a public admission form for the organization named in
// the X-Organization-Code header
func (h *RegistrationHandler) Submit(c *gin.Context) {
	code := middleware.OrganizationCode(c)
	if code == "" {
		h.Error(c, shared.NewValidationError("organization_code", "X-Organization-Code header is required"))
		return
	}
	var req SubmitRegistrationRequest
	if !h.BindJSON(c, &req) {
		return
	}
	admission := student.AdmissionType(req.AdmissionType)
	if admission == "" {
		admission = student.AdmissionNew
	}
	reg, err := h.registrations.Submit(c.Request.Context(), code, student.RegistrationInput{
		AdmissionType:      admission,
		StudentName:        req.StudentName,
		Gender:             identity.Gender(req.Gender),
		DOB:                day(req.DOB),
		StudyType:          student.Category(req.StudyType),
		IDCardType:         identity.IDCardType(req.IDCardType),
		IDCardNumber:       req.IDCardNumber,
		PhotoKey:           req.PhotoKey,
		FatherName:         req.FatherName,
		ParentMobile:       req.ParentMobile,
		FatherWhatsApp:     req.FatherWhatsApp,
		Email:              req.Email,
		MotherName:         req.MotherName,
		SiblingsDetails:    req.SiblingsDetails,
		QatarAddress:       req.QatarAddress,
		IndiaAddress:       req.IndiaAddress,
		ClassToAdmitID:     optionalID(req.ClassToAdmitID),
		InterestedBranchID: optionalID(req.InterestedBranchID),
		CompletedClasses:   req.CompletedClasses,
		PreviousMadrasa:    req.PreviousMadrasa,
		TCNumber:           req.TCNumber,
		AadharNumber:       req.AadharNumber,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, gin.H{"id": reg.ID, "status": reg.Status, "submitted_at": reg.SubmittedAt})
}

func (h *RegistrationHandler) List(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var q RegistrationListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	page, err := h.registrations.List(c.Request.Context(), actor,
		student.RegistrationStatus(q.Status), optionalID(q.BranchID), q.Filter())
	if err != nil {
		h.Error(c, err)
		return
	}
	views := shared.NewPaginated(mapSlice(page.Items, registrationView), page.Total, page.Page, page.PageSize)
	c.JSON(http.StatusOK, dto.Page(&views))
}

func (h *RegistrationHandler) Get(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.Param(c, "id")
	if !ok {
		return
	}
	reg, err := h.registrations.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, registrationView(reg))
}

// Approve admits the applicant: it creates the student account, profile
// and first enrollment and charges the admission dues
func (h *RegistrationHandler) Approve(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.Param(c, "id")
	if !ok {
		return
	}
	var req ApproveRegistrationRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.registrations.Approve(c.Request.Context(), actor, id, appstudent.ApproveInput{
		BranchID:    mustID(req.BranchID),
		ClassID:     mustID(req.ClassID),
		DivisionID:  mustID(req.DivisionID),
		Category:    student.Category(req.Category),
		HasSiblings: req.HasSiblings,
		Notes:       req.Notes,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, ApprovalView{
		Registration:    registrationView(result.Registration),
		StudentID:       result.StudentID,
		UserID:          result.UserID,
		EnrollmentID:    result.EnrollmentID,
		AdmissionNumber: result.AdmissionNumber,
		Status:          result.Status,
		DuesCreated:     result.DuesCreated,
	})
}

func (h *RegistrationHandler) Reject(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.Param(c, "id")
	if !ok {
		return
	}
	var req RejectRegistrationRequest
	if !h.BindJSON(c, &req) {
		return
	}
	reg, err := h.registrations.Reject(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, registrationView(reg))
}

func (h *RegistrationHandler) RequestInfo(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.Param(c, "id")
	if !ok {
		return
	}
	var req RequestInfoRequest
	if !h.BindJSON(c, &req) {
		return
	}
	reg, err := h.registrations.RequestInfo(c.Request.Context(), actor, id, req.Message)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, registrationView(reg))
}
