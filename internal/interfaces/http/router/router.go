// Package router assembles the gin engine: global middleware, the public
// routes and the authenticated /api/v1 surface with its capability checks.
package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/madrasa/backend/internal/domain/identity"
	"github.com/madrasa/backend/internal/infrastructure/config"
	"github.com/madrasa/backend/internal/infrastructure/logger"
	"github.com/madrasa/backend/internal/interfaces/http/handler"
	"github.com/madrasa/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Handlers groups the HTTP handlers of every area
type Handlers struct {
	Auth         *handler.AuthHandler
	Academic     *handler.AcademicHandler
	Fee          *handler.FeeHandler
	Collection   *handler.CollectionHandler
	Student      *handler.StudentHandler
	Registration *handler.RegistrationHandler
	Staff        *handler.StaffHandler
	Document     *handler.DocumentHandler
	System       *handler.SystemHandler
}

// Options carries what the middleware chain needs
type Options struct {
	HTTP          config.HTTPConfig
	ServiceName   string
	Logger        *zap.Logger
	Authenticator middleware.Authenticator
	Scopes        middleware.ScopeResolver
	// Metrics is optional
	Metrics       middleware.RequestRecorder
	// LoginLimiter throttles the public auth routes and registration; nil
	// disables throttling
	LoginLimiter  *middleware.RateLimiter
}

// New builds the engine with every route registered
func New(h Handlers, opts Options) *gin.Engine {
	middleware.SetupValidator()

	engine := gin.New()
	_ = engine.SetTrustedProxies(opts.HTTP.TrustedProxies)
	engine.HandleMethodNotAllowed = true

	engine.Use(
		middleware.Tracing(opts.ServiceName),
		logger.GinMiddleware(opts.Logger),
		logger.Recovery(opts.Logger),
		middleware.SpanErrorMarker(),
	)
	if opts.Metrics != nil {
		engine.Use(middleware.Metrics(opts.Metrics))
	}
	engine.Use(
		middleware.SecureHeaders(),
		middleware.CORS(opts.HTTP),
		middleware.BodyLimit(opts.HTTP.MaxBodySize),
	)

	engine.GET("/health", h.System.Health)

	api := engine.Group("/api/v1")
	api.GET("/health", h.System.Health)

	throttle := func(c *gin.Context) { c.Next() }
	if opts.LoginLimiter != nil {
		throttle = middleware.RateLimit(opts.LoginLimiter)
	}

	public := api.Group("", middleware.SpanAttributes())
	public.POST("/auth/login", throttle, h.Auth.Login)
	public.POST("/auth/refresh", throttle, h.Auth.Refresh)
	public.POST("/auth/forgot-password", throttle, h.Auth.ForgotPassword)
	public.POST("/auth/reset-password", throttle, h.Auth.ResetPassword)
	public.POST("/registrations", throttle, h.Registration.Submit)

	secured := api.Group("",
		middleware.JWTAuth(opts.Authenticator),
		middleware.OrganizationScope(opts.Scopes),
		middleware.SpanAttributes(),
	)
	registerAuth(secured, h.Auth)
	registerAcademic(secured, h.Academic)
	registerFees(secured, h.Fee, h.Collection)
	registerStudents(secured, h.Student, h.Registration)
	registerStaff(secured, h.Staff)
	registerDocuments(secured, h.Document)

	return engine
}

var can = middleware.RequireCapability

func registerAuth(rg *gin.RouterGroup, h *handler.AuthHandler) {
	rg.POST("/auth/logout", h.Logout)
	rg.GET("/auth/me", h.Me)
	rg.POST("/auth/change-password", h.ChangePassword)
}

func registerAcademic(rg *gin.RouterGroup, h *handler.AcademicHandler) {
	years := rg.Group("/academic-years")
	years.GET("", h.ListYears)
	years.GET("/:id", h.GetYear)
	years.POST("", can(identity.CapAcademicYearsManage), h.CreateYear)
	years.POST("/:id/activate", can(identity.CapAcademicYearsManage), h.ActivateYear)

	rg.GET("/branches", h.ListBranches)
	rg.POST("/branches", can(identity.CapSettingsManage), h.CreateBranch)
	rg.PUT("/branches/:id", can(identity.CapSettingsManage), h.UpdateBranch)
	rg.GET("/classes", h.ListClasses)
	rg.POST("/classes", can(identity.CapSettingsManage), h.CreateClass)
	rg.PUT("/classes/:id", can(identity.CapSettingsManage), h.UpdateClass)
	rg.GET("/divisions", h.ListDivisions)
	rg.POST("/divisions", can(identity.CapSettingsManage), h.CreateDivision)
	rg.PUT("/divisions/:id", can(identity.CapSettingsManage), h.UpdateDivision)
}

func registerFees(rg *gin.RouterGroup, fees *handler.FeeHandler, collections *handler.CollectionHandler) {
	manage := can(identity.CapFeesManage)
	rg.GET("/fee-types", manage, fees.ListFeeTypes)
	rg.POST("/fee-types", manage, fees.CreateFeeType)
	rg.GET("/fee-structures", manage, fees.ListStructures)
	rg.POST("/fee-structures", manage, fees.CreateStructure)
	rg.POST("/fee-configurations", manage, fees.SetConfiguration)

	dues := rg.Group("/fee-dues")
	dues.GET("", can(identity.CapFeesView), fees.ListDues)
	dues.POST("", manage, fees.CreateDue)
	dues.PUT("/:id", manage, fees.AdjustDue)
	dues.POST("/run/monthly", can(identity.CapFeesRunBatch), fees.RunMonthly)
	dues.POST("/run/annual", can(identity.CapFeesRunBatch), fees.RunAnnual)
	dues.POST("/reminders", can(identity.CapFeesRunBatch), fees.SendReminders)

	col := rg.Group("/fee-collections")
	col.POST("", can(identity.CapFeesCollect), collections.Collect)
	col.GET("/:id", can(identity.CapFeesView), collections.Get)
	col.POST("/:id/approve", manage, collections.Approve)
	col.POST("/:id/cancel", manage, collections.Cancel)
	col.GET("/:id/receipt", can(identity.CapFeesView), collections.Receipt)
}

func registerStudents(rg *gin.RouterGroup, students *handler.StudentHandler, registrations *handler.RegistrationHandler) {
	view := can(identity.CapStudentsView)
	manage := can(identity.CapStudentsManage)

	s := rg.Group("/students")
	s.GET("", view, students.List)
	s.POST("", manage, students.Admit)
	s.GET("/:id", view, students.Get)
	s.PUT("/:id", manage, students.Update)
	s.DELETE("/:id", manage, students.Delete)
	s.POST("/:id/enrollments", manage, students.Enroll)
	s.POST("/:id/enrollments/:enrollmentId/promote", manage, students.Promote)
	s.POST("/:id/enrollments/:enrollmentId/detain", manage, students.Detain)
	s.POST("/:id/enrollments/:enrollmentId/transition", manage, students.Transition)

	approve := can(identity.CapRegistrationsApprove)
	r := rg.Group("/registrations")
	r.GET("", approve, registrations.List)
	r.GET("/:id", approve, registrations.Get)
	r.POST("/:id/approve", approve, registrations.Approve)
	r.POST("/:id/reject", approve, registrations.Reject)
	r.POST("/:id/request-info", approve, registrations.RequestInfo)
}

func registerStaff(rg *gin.RouterGroup, h *handler.StaffHandler) {
	rg.GET("/staff", can(identity.CapStaffManage), h.List)
	rg.POST("/staff", can(identity.CapStaffManage), h.Create)
	rg.GET("/staff/:id", can(identity.CapStaffManage), h.Get)
	rg.PUT("/staff/:id", can(identity.CapStaffManage), h.Update)
	rg.POST("/teacher-assignments", can(identity.CapAssignmentsManage), h.Assign)
	rg.GET("/teacher-assignments", can(identity.CapAssignmentsManage, identity.CapStudentsView), h.ListAssignments)
}

func registerDocuments(rg *gin.RouterGroup, h *handler.DocumentHandler) {
	d := rg.Group("/documents")
	d.POST("", can(identity.CapStudentsManage, identity.CapRegistrationsApprove, identity.CapFeesCollect), h.Upload)
	d.GET("", can(identity.CapStudentsView, identity.CapRegistrationsApprove, identity.CapFeesView), h.List)
	d.GET("/:id", can(identity.CapStudentsView, identity.CapRegistrationsApprove, identity.CapFeesView), h.Download)
}

// Default throttle of the unauthenticated endpoints, per client IP
const (
	LoginRequests = 10
	LoginWindow   = time.Minute
)
