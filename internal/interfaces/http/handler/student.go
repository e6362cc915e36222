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
)

// EnrollmentService lists students and moves them between enrollments
type EnrollmentService interface {
	Enroll(ctx context.Context, actor identity.Actor, input appstudent.EnrollInput) (*appstudent.TransitionResult, error)
	Promote(ctx context.Context, actor identity.Actor, studentID, enrollmentID uuid.UUID, input appstudent.PromoteInput) (*appstudent.TransitionResult, error)
	Detain(ctx context.Context, actor identity.Actor, studentID, enrollmentID uuid.UUID, input appstudent.DetainInput) (*appstudent.TransitionResult, error)
	Transition(ctx context.Context, actor identity.Actor, studentID, enrollmentID uuid.UUID, input appstudent.TransitionInput) (*appstudent.TransitionResult, error)
	ListStudents(ctx context.Context, actor identity.Actor, filter appstudent.StudentListFilter, page shared.Filter) (*shared.Paginated[student.EnrollmentListItem], error)
	GetStudent(ctx context.Context, actor identity.Actor, studentID uuid.UUID) (*appstudent.StudentDetail, error)
	Admit(ctx context.Context, actor identity.Actor, input appstudent.AdmitInput) (*appstudent.AdmissionResult, error)
	UpdateStudent(ctx context.Context, actor identity.Actor, studentID uuid.UUID, input appstudent.UpdateStudentInput) (*appstudent.StudentDetail, error)
	DeactivateStudent(ctx context.Context, actor identity.Actor, studentID uuid.UUID) error
}

// StudentHandler serves the student directory and enrollment lifecycle
type StudentHandler struct {
	BaseHandler
	enrollments EnrollmentService
	clock       Clock
}

// NewStudentHandler creates a new student handler
func NewStudentHandler(enrollments EnrollmentService, clock Clock) *StudentHandler {
	return &StudentHandler{enrollments: enrollments, clock: clock}
}

type StudentListQuery struct {
	dto.ListQuery
	AcademicYearID string `form:"academic_year_id" binding:"omitempty,uuid"`
	BranchID       string `form:"branch_id" binding:"omitempty,uuid"`
	ClassID        string `form:"class_id" binding:"omitempty,uuid"`
	DivisionID     string `form:"division_id" binding:"omitempty,uuid"`
	Status         string `form:"status" binding:"omitempty,oneof=ENROLLED PROMOTED DETAINED TRANSFERRED DROPPED COMPLETED"`
}

type FamilyRequest struct {
	FatherName      string `json:"father_name" binding:"required,max=200"`
	MotherName      string `json:"mother_name" binding:"required,max=200"`
	ParentMobile    string `json:"parent_mobile" binding:"required,max=20"`
	FatherWhatsApp  string `json:"father_whatsapp" binding:"max=20"`
	Email           string `json:"email" binding:"omitempty,email"`
	SiblingsDetails string `json:"siblings_details"`
}

type AdmitStudentRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"omitempty,min=8,max=128"`

	FullName     string `json:"full_name" binding:"required,max=200"`
	Gender       string `json:"gender" binding:"required,oneof=MALE FEMALE"`
	DOB          string `json:"dob" binding:"required,datetime=2006-01-02"`
	IDCardType   string `json:"id_card_type" binding:"required,oneof=QID PASSPORT"`
	IDCardNumber string `json:"id_card_number" binding:"required,max=50"`
	Mobile       string `json:"mobile" binding:"max=20"`
	WhatsApp     string `json:"whatsapp" binding:"max=20"`

	BranchID    string         `json:"branch_id" binding:"required,uuid"`
	ClassID     string         `json:"class_id" binding:"required,uuid"`
	DivisionID  string         `json:"division_id" binding:"required,uuid"`
	Category    string         `json:"category" binding:"omitempty,oneof=PERMANENT TEMPORARY"`
	HasSiblings bool           `json:"has_siblings"`
	Notes       string         `json:"notes"`
	Family      *FamilyRequest `json:"family"`
}

type UpdateStudentRequest struct {
	FullName    *string `json:"full_name" binding:"omitempty,max=200"`
	Mobile      *string `json:"mobile" binding:"omitempty,max=20"`
	WhatsApp    *string `json:"whatsapp" binding:"omitempty,max=20"`
	Category    *string `json:"category" binding:"omitempty,oneof=PERMANENT TEMPORARY"`
	HasSiblings *bool   `json:"has_siblings"`
	Notes       *string `json:"notes"`
}

type EnrollRequest struct {
	AcademicYearID string `json:"academic_year_id" binding:"required,uuid"`
	ClassID        string `json:"class_id" binding:"required,uuid"`
	DivisionID     string `json:"division_id" binding:"required,uuid"`
	EnrollmentDate string `json:"enrollment_date" binding:"omitempty,datetime=2006-01-02"`
}

type PromoteRequest struct {
	NextYearID string `json:"next_year_id" binding:"required,uuid"`
	ClassID    string `json:"class_id" binding:"required,uuid"`
	DivisionID string `json:"division_id" binding:"required,uuid"`
	Remarks    string `json:"remarks"`
}

type DetainRequest struct {
	NextYearID string `json:"next_year_id" binding:"required,uuid"`
	DivisionID string `json:"division_id" binding:"omitempty,uuid"`
	Remarks    string `json:"remarks"`
}

type TransitionRequest struct {
	Status  string `json:"status" binding:"required,oneof=TRANSFERRED DROPPED COMPLETED"`
	Remarks string `json:"remarks"`
}

// List returns one page of the student directory, narrowed to the
// caller's branch for branch-bound roles
func (h *StudentHandler) List(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var q StudentListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	page, err := h.enrollments.ListStudents(c.Request.Context(), actor, appstudent.StudentListFilter{
		AcademicYearID: optionalID(q.AcademicYearID),
		BranchID:       optionalID(q.BranchID),
		ClassID:        optionalID(q.ClassID),
		DivisionID:     optionalID(q.DivisionID),
		Status:         student.EnrollmentStatus(q.Status),
	}, q.Filter())
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Page(page))
}

func (h *StudentHandler) Get(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.Param(c, "id")
	if !ok {
		return
	}
	detail, err := h.enrollments.GetStudent(c.Request.Context(), actor, id)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, studentView(detail))
}

// Admit creates a student directly, without an online registration, and
// enrolls them in the active year
func (h *StudentHandler) Admit(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req AdmitStudentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	input := appstudent.AdmitInput{
		Email:        req.Email,
		Password:     req.Password,
		FullName:     req.FullName,
		Gender:       identity.Gender(req.Gender),
		DOB:          day(req.DOB),
		IDCardType:   identity.IDCardType(req.IDCardType),
		IDCardNumber: req.IDCardNumber,
		Mobile:       req.Mobile,
		WhatsApp:     req.WhatsApp,
		BranchID:     mustID(req.BranchID),
		ClassID:      mustID(req.ClassID),
		DivisionID:   mustID(req.DivisionID),
		Category:     student.Category(req.Category),
		HasSiblings:  req.HasSiblings,
		Notes:        req.Notes,
	}
	if f := req.Family; f != nil {
		input.Family = &student.FamilyDetails{
			FatherName:      f.FatherName,
			MotherName:      f.MotherName,
			ParentMobile:    f.ParentMobile,
			FatherWhatsApp:  f.FatherWhatsApp,
			Email:           f.Email,
			SiblingsDetails: f.SiblingsDetails,
		}
	}
	result, err := h.enrollments.Admit(c.Request.Context(), actor, input)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, AdmissionView{Student: studentView(result.Detail), DuesCreated: result.DuesCreated})
}

func (h *StudentHandler) Update(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.Param(c, "id")
	if !ok {
		return
	}
	var req UpdateStudentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	input := appstudent.UpdateStudentInput{
		FullName:    req.FullName,
		Mobile:      req.Mobile,
		WhatsApp:    req.WhatsApp,
		HasSiblings: req.HasSiblings,
		Notes:       req.Notes,
	}
	if req.Category != nil {
		category := student.Category(*req.Category)
		input.Category = &category
	}
	detail, err := h.enrollments.UpdateStudent(c.Request.Context(), actor, id, input)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, studentView(detail))
}

// Delete deactivates the student and their login. Nothing is removed.
func (h *StudentHandler) Delete(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.Param(c, "id")
	if !ok {
		return
	}
	if err := h.enrollments.DeactivateStudent(c.Request.Context(), actor, id); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, gin.H{"message": "Student deactivated"})
}

// Enroll opens an enrollment for a student in a new year
func (h *StudentHandler) Enroll(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.Param(c, "id")
	if !ok {
		return
	}
	var req EnrollRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.enrollments.Enroll(c.Request.Context(), actor, appstudent.EnrollInput{
		StudentID:      id,
		AcademicYearID: mustID(req.AcademicYearID),
		ClassID:        mustID(req.ClassID),
		DivisionID:     mustID(req.DivisionID),
		EnrollmentDate: dayOr(req.EnrollmentDate, h.clock.today()),
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, transitionView(result))
}

func (h *StudentHandler) Promote(c *gin.Context) {
	actor, studentID, enrollmentID, ok := h.enrollmentParams(c)
	if !ok {
		return
	}
	var req PromoteRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.enrollments.Promote(c.Request.Context(), actor, studentID, enrollmentID, appstudent.PromoteInput{
		NextYearID: mustID(req.NextYearID),
		ClassID:    mustID(req.ClassID),
		DivisionID: mustID(req.DivisionID),
		Remarks:    req.Remarks,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, transitionView(result))
}

// Detain keeps the student in the same class for the next year
func (h *StudentHandler) Detain(c *gin.Context) {
	actor, studentID, enrollmentID, ok := h.enrollmentParams(c)
	if !ok {
		return
	}
	var req DetainRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.enrollments.Detain(c.Request.Context(), actor, studentID, enrollmentID, appstudent.DetainInput{
		NextYearID: mustID(req.NextYearID),
		DivisionID: optionalID(req.DivisionID),
		Remarks:    req.Remarks,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, transitionView(result))
}

// Transition closes an enrollment as transferred, dropped or completed
func (h *StudentHandler) Transition(c *gin.Context) {
	actor, studentID, enrollmentID, ok := h.enrollmentParams(c)
	if !ok {
		return
	}
	var req TransitionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.enrollments.Transition(c.Request.Context(), actor, studentID, enrollmentID, appstudent.TransitionInput{
		Status:  student.EnrollmentStatus(req.Status),
		Remarks: req.Remarks,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, transitionView(result))
}

func (h *StudentHandler) enrollmentParams(c *gin.Context) (identity.Actor, uuid.UUID, uuid.UUID, bool) {
	actor, ok := h.Actor(c)
	if !ok {
		return actor, uuid.Nil, uuid.Nil, false
	}
	studentID, ok := h.Param(c, "id")
	if !ok {
		return actor, uuid.Nil, uuid.Nil, false
	}
	enrollmentID, ok := h.Param(c, "enrollmentId")
	if !ok {
		return actor, uuid.Nil, uuid.Nil, false
	}
	return actor, studentID, enrollmentID, true
}
