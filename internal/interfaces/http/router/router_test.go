package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/madrasa/backend/internal/domain/identity"
	"github.com/madrasa/backend/internal/domain/shared"
	"github.com/madrasa/backend/internal/infrastructure/auth"
	"github.com/madrasa/backend/internal/infrastructure/config"
	"github.com/madrasa/backend/internal/interfaces/http/handler"
	"github.com/madrasa/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// roleTokens authenticates a bearer token named after a role
type roleTokens struct{}

func (roleTokens) Authenticate(_ context.Context, token string) (*auth.Claims, error) {
	role := identity.Role(strings.ToUpper(token))
	if !role.IsValid() {
		return nil, shared.ErrUnauthorized
	}
	return &auth.Claims{TenantID: uuid.NewString(), UserID: uuid.NewString(), Role: string(role)}, nil
}

func testEngine(limiter *middleware.RateLimiter) *gin.Engine {
	clock := handler.ClockIn(time.UTC)
	return New(Handlers{
		Auth:         handler.NewAuthHandler(nil),
		Academic:     handler.NewAcademicHandler(nil, nil),
		Fee:          handler.NewFeeHandler(nil, nil, nil, clock),
		Collection:   handler.NewCollectionHandler(nil, nil, clock),
		Student:      handler.NewStudentHandler(nil, clock),
		Registration: handler.NewRegistrationHandler(nil),
		Staff:        handler.NewStaffHandler(nil, clock),
		Document:     handler.NewDocumentHandler(nil),
		System:       handler.NewSystemHandler("test", nil),
	}, Options{
		HTTP:          config.HTTPConfig{MaxBodySize: 1 << 20, CORSAllowOrigins: []string{"*"}},
		ServiceName:   "madrasa-test",
		Logger:        zap.NewNop(),
		Authenticator: roleTokens{},
		LoginLimiter:  limiter,
	})
}

func call(r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_Health(t *testing.T) {
	r := testEngine(nil)
	for _, path := range []string{"/health", "/api/v1/health"} {
		w := call(r, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	}
}

func TestRouter_CapabilityGates(t *testing.T) {
	r := testEngine(nil)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"no token", http.MethodGet, "/api/v1/students", "", http.StatusUnauthorized},
		{"unknown token", http.MethodGet, "/api/v1/students", "janitor", http.StatusUnauthorized},
		{"teacher runs monthly batch", http.MethodPost, "/api/v1/fee-dues/run/monthly", "teacher", http.StatusForbidden},
		{"teacher manages fee types", http.MethodPost, "/api/v1/fee-types", "teacher", http.StatusForbidden},
		{"accountant approves registration", http.MethodPost, "/api/v1/registrations/" + uuid.NewString() + "/approve", "accountant", http.StatusForbidden},
		{"teacher creates staff", http.MethodPost, "/api/v1/staff", "teacher", http.StatusForbidden},
		{"student lists students", http.MethodGet, "/api/v1/students", "student", http.StatusForbidden},
		{"teacher admits student", http.MethodPost, "/api/v1/students", "teacher", http.StatusForbidden},
		{"teacher deactivates student", http.MethodDelete, "/api/v1/students/" + uuid.NewString(), "teacher", http.StatusForbidden},
		{"accountant lists staff", http.MethodGet, "/api/v1/staff", "accountant", http.StatusForbidden},
		{"teacher renames branch", http.MethodPut, "/api/v1/branches/" + uuid.NewString(), "teacher", http.StatusForbidden},
		{"office staff activates year", http.MethodPost, "/api/v1/academic-years/" + uuid.NewString() + "/activate", "office_staff", http.StatusForbidden},
		// passes the gate and fails binding before any service is touched
		{"accountant collects without body", http.MethodPost, "/api/v1/fee-collections", "accountant", http.StatusBadRequest},
		{"head teacher transition bad id", http.MethodPost, "/api/v1/students/x/enrollments/y/transition", "head_teacher", http.StatusBadRequest},
		{"admin updates staff without body", http.MethodPut, "/api/v1/staff/" + uuid.NewString(), "admin", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := call(r, tt.method, tt.path, tt.token, "")
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestRouter_PublicRegistrationNeedsOrganization(t *testing.T) {
	r := testEngine(nil)
	w := call(r, http.MethodPost, "/api/v1/registrations", "", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "organization_code")
}

func TestRouter_PasswordResetIsPublic(t *testing.T) {
	r := testEngine(nil)
	w := call(r, http.MethodPost, "/api/v1/auth/forgot-password", "", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	w = call(r, http.MethodPost, "/api/v1/auth/reset-password", "", `{"token":"t"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	r := testEngine(nil)
	w := call(r, http.MethodDelete, "/api/v1/fee-dues/run/monthly", "admin", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRouter_LoginThrottle(t *testing.T) {
	r := testEngine(middleware.NewRateLimiter(1, time.Minute, 1))

	w := call(r, http.MethodPost, "/api/v1/auth/login", "", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(r, http.MethodPost, "/api/v1/auth/login", "", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
