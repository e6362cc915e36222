package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/application/academic"
	"github.com/madrasa/backend/internal/domain/organization"
)

// YearService manages academic years
type YearService interface {
	Create(ctx context.Context, tenantID uuid.UUID, input academic.CreateYearInput) (*organization.AcademicYear, error)
	Activate(ctx context.Context, tenantID, yearID uuid.UUID) (*organization.AcademicYear, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]organization.AcademicYear, error)
	Get(ctx context.Context, tenantID, yearID uuid.UUID) (*organization.AcademicYear, error)
}

// CatalogService manages branches, class levels and divisions
type CatalogService interface {
	CreateBranch(ctx context.Context, tenantID uuid.UUID, input academic.CreateBranchInput) (*organization.Branch, error)
	UpdateBranch(ctx context.Context, tenantID, id uuid.UUID, input academic.UpdateBranchInput) (*organization.Branch, error)
	ListBranches(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]organization.Branch, error)
	CreateClassLevel(ctx context.Context, tenantID uuid.UUID, name string, level int) (*organization.ClassLevel, error)
	UpdateClassLevel(ctx context.Context, tenantID, id uuid.UUID, input academic.UpdateClassLevelInput) (*organization.ClassLevel, error)
	ListClassLevels(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]organization.ClassLevel, error)
	CreateDivision(ctx context.Context, tenantID uuid.UUID, name string) (*organization.Division, error)
	UpdateDivision(ctx context.Context, tenantID, id uuid.UUID, input academic.UpdateDivisionInput) (*organization.Division, error)
	ListDivisions(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]organization.Division, error)
}

// AcademicHandler serves academic years and the organization catalog
type AcademicHandler struct {
	BaseHandler
	years   YearService
	catalog CatalogService
}

// NewAcademicHandler creates a new academic handler
func NewAcademicHandler(years YearService, catalog CatalogService) *AcademicHandler {
	return &AcademicHandler{years: years, catalog: catalog}
}

type CreateYearRequest struct {
	Name      string `json:"name" binding:"required,max=50"`
	StartDate string `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" binding:"required,datetime=2006-01-02"`
}

type CreateBranchRequest struct {
	Code    string `json:"code" binding:"required,max=10"`
	Name    string `json:"name" binding:"required,max=200"`
	Phone   string `json:"phone" binding:"omitempty,max=20"`
	Email   string `json:"email" binding:"omitempty,email"`
	Address string `json:"address"`
}

type CreateClassRequest struct {
	Name  string `json:"name" binding:"required,max=50"`
	Level int    `json:"level" binding:"required,min=1,max=20"`
}

type CreateDivisionRequest struct {
	Name string `json:"name" binding:"required,max=20"`
}

type UpdateBranchRequest struct {
	Name     *string `json:"name" binding:"omitempty,max=200"`
	Phone    *string `json:"phone" binding:"omitempty,max=20"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Address  *string `json:"address"`
	IsActive *bool   `json:"is_active"`
}

type UpdateClassRequest struct {
	Name     *string `json:"name" binding:"omitempty,max=50"`
	Level    *int    `json:"level" binding:"omitempty,min=1,max=20"`
	IsActive *bool   `json:"is_active"`
}

type UpdateDivisionRequest struct {
	Name     *string `json:"name" binding:"omitempty,max=20"`
	IsActive *bool   `json:"is_active"`
}

type catalogQuery struct {
	ActiveOnly bool `form:"active_only"`
}

// ListYears returns every academic year of the organization
func (h *AcademicHandler) ListYears(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	years, err := h.years.List(c.Request.Context(), actor.TenantID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, mapSlice(years, academicYearView))
}

// GetYear returns one academic year
func (h *AcademicHandler) GetYear(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.Param(c, "id")
	if !ok {
		return
	}
	year, err := h.years.Get(c.Request.Context(), actor.TenantID, id)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, academicYearView(year))
}

// CreateYear adds an inactive academic year
func (h *AcademicHandler) CreateYear(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req CreateYearRequest
	if !h.BindJSON(c, &req) {
		return
	}
	year, err := h.years.Create(c.Request.Context(), actor.TenantID, academic.CreateYearInput{
		Name:      req.Name,
		StartDate: day(req.StartDate),
		EndDate:   day(req.EndDate),
		CreatedBy: &actor.UserID,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, academicYearView(year))
}

// ActivateYear makes a year the single active one of the organization
func (h *AcademicHandler) ActivateYear(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.Param(c, "id")
	if !ok {
		return
	}
	year, err := h.years.Activate(c.Request.Context(), actor.TenantID, id)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, academicYearView(year))
}

func (h *AcademicHandler) ListBranches(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var q catalogQuery
	if !h.BindQuery(c, &q) {
		return
	}
	branches, err := h.catalog.ListBranches(c.Request.Context(), actor.TenantID, q.ActiveOnly)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, mapSlice(branches, branchView))
}

func (h *AcademicHandler) CreateBranch(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req CreateBranchRequest
	if !h.BindJSON(c, &req) {
		return
	}
	branch, err := h.catalog.CreateBranch(c.Request.Context(), actor.TenantID, academic.CreateBranchInput{
		Code:    req.Code,
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, branchView(branch))
}

// UpdateBranch changes the name, contact details or active flag of a branch
func (h *AcademicHandler) UpdateBranch(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.Param(c, "id")
	if !ok {
		return
	}
	var req UpdateBranchRequest
	if !h.BindJSON(c, &req) {
		return
	}
	branch, err := h.catalog.UpdateBranch(c.Request.Context(), actor.TenantID, id, academic.UpdateBranchInput{
		Name:     req.Name,
		Phone:    req.Phone,
		Email:    req.Email,
		Address:  req.Address,
		IsActive: req.IsActive,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, branchView(branch))
}

func (h *AcademicHandler) ListClasses(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var q catalogQuery
	if !h.BindQuery(c, &q) {
		return
	}
	levels, err := h.catalog.ListClassLevels(c.Request.Context(), actor.TenantID, q.ActiveOnly)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, mapSlice(levels, func(l *organization.ClassLevel) ClassLevelView {
		return ClassLevelView{ID: l.ID, Name: l.Name, Level: l.Level, IsActive: l.IsActive}
	}))
}

func (h *AcademicHandler) CreateClass(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req CreateClassRequest
	if !h.BindJSON(c, &req) {
		return
	}
	l, err := h.catalog.CreateClassLevel(c.Request.Context(), actor.TenantID, req.Name, req.Level)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, ClassLevelView{ID: l.ID, Name: l.Name, Level: l.Level, IsActive: l.IsActive})
}

func (h *AcademicHandler) UpdateClass(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.Param(c, "id")
	if !ok {
		return
	}
	var req UpdateClassRequest
	if !h.BindJSON(c, &req) {
		return
	}
	l, err := h.catalog.UpdateClassLevel(c.Request.Context(), actor.TenantID, id, academic.UpdateClassLevelInput{
		Name:     req.Name,
		Level:    req.Level,
		IsActive: req.IsActive,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, ClassLevelView{ID: l.ID, Name: l.Name, Level: l.Level, IsActive: l.IsActive})
}

func (h *AcademicHandler) ListDivisions(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var q catalogQuery
	if !h.BindQuery(c, &q) {
		return
	}
	divisions, err := h.catalog.ListDivisions(c.Request.Context(), actor.TenantID, q.ActiveOnly)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, mapSlice(divisions, func(d *organization.Division) DivisionView {
		return DivisionView{ID: d.ID, Name: d.Name, IsActive: d.IsActive}
	}))
}

func (h *AcademicHandler) CreateDivision(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req CreateDivisionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	d, err := h.catalog.CreateDivision(c.Request.Context(), actor.TenantID, req.Name)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, DivisionView{ID: d.ID, Name: d.Name, IsActive: d.IsActive})
}

func (h *AcademicHandler) UpdateDivision(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, ok := h.Param(c, "id")
	if !ok {
		return
	}
	var req UpdateDivisionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	d, err := h.catalog.UpdateDivision(c.Request.Context(), actor.TenantID, id, academic.UpdateDivisionInput{
		Name:     req.Name,
		IsActive: req.IsActive,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, DivisionView{ID: d.ID, Name: d.Name, IsActive: d.IsActive})
}
