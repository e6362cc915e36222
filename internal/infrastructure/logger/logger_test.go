package logger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/madrasa/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestNew(t *testing.T) {
	t.Run("builds json and console loggers", func(t *testing.T) {
		for _, format := range []string{"json", "console"} {
			l, err := New(config.LogConfig{Level: "debug", Format: format, Output: "stdout"})
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
		}
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		_, err := New(config.LogConfig{Level: "loud"})
		assert.Error(t, err)
	})

	t.Run("writes to a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		l, err := New(config.LogConfig{Level: "info", Format: "json", Output: path})
		require.NoError(t, err)
		l.Info("hello")
		require.NoError(t, l.Sync())
		assert.FileExists(t, path)
	})

	t.Run("tees to extra cores", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)
		l, err := New(config.LogConfig{Level: "info", Format: "json"}, core)
		require.NoError(t, err)
		l.Info("dues created", zap.Int("created", 3))
		require.Equal(t, 1, recorded.Len())
		assert.Equal(t, int64(3), recorded.All()[0].ContextMap()["created"])
	})
}

func TestContextScope(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	ctx := WithContext(context.Background(), zap.New(core))
	ctx = WithScope(ctx, Scope{RequestID: "req-1"})
	ctx = WithScope(ctx, Scope{TenantID: "tenant-1", UserID: "user-1"})

	FromContext(ctx).Info("scoped")

	require.Equal(t, 1, recorded.Len())
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "tenant-1", fields["tenant_id"])
	assert.Equal(t, "user-1", fields["user_id"])
	assert.Equal(t, Scope{RequestID: "req-1", TenantID: "tenant-1", UserID: "user-1"}, ScopeFrom(ctx))
	assert.Equal(t, "req-1", GetRequestID(ctx))
}

func TestFromContext_NoLogger(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		status    int
		requestID string
		wantLevel zapcore.Level
	}{
		{name: "ok request logs info", status: http.StatusOK, wantLevel: zapcore.InfoLevel},
		{name: "client error logs warn", status: http.StatusNotFound, requestID: "given-id", wantLevel: zapcore.WarnLevel},
		{name: "server error logs error", status: http.StatusInternalServerError, wantLevel: zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.InfoLevel)
			router := gin.New()
			router.Use(GinMiddleware(zap.New(core)))
			router.GET("/students", func(c *gin.Context) {
				c.Request = c.Request.WithContext(WithScope(c.Request.Context(), Scope{TenantID: "t-1"}))
				c.Status(tt.status)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/students", nil)
			if tt.requestID != "" {
				req.Header.Set(RequestIDHeader, tt.requestID)
			}
			router.ServeHTTP(w, req)

			require.Equal(t, 1, recorded.Len())
			entry := recorded.All()[0]
			assert.Equal(t, tt.wantLevel, entry.Level)
			assert.Equal(t, "t-1", entry.ContextMap()["tenant_id"])
			assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
			if tt.requestID != "" {
				assert.Equal(t, tt.requestID, w.Header().Get(RequestIDHeader))
				assert.Equal(t, tt.requestID, entry.ContextMap()["request_id"])
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.ErrorLevel)

	router := gin.New()
	router.Use(Recovery(zap.New(core)))
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, "Panic recovered", recorded.All()[0].Message)
}

func TestGormLogger_Trace(t *testing.T) {
	query := func() (string, int64) { return "SELECT 1", 1 }

	t.Run("logs errors except record not found", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Warn, 0)

		l.Trace(context.Background(), time.Now(), query, errors.New("connection reset"))
		l.Trace(context.Background(), time.Now(), query, gormlogger.ErrRecordNotFound)

		require.Equal(t, 1, recorded.Len())
		assert.Equal(t, "SQL error", recorded.All()[0].Message)
	})

	t.Run("warns on slow queries", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Warn, time.Millisecond)

		l.Trace(context.Background(), time.Now().Add(-time.Second), query, nil)

		require.Equal(t, 1, recorded.Len())
		assert.Equal(t, "Slow SQL", recorded.All()[0].Message)
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Warn, 0).LogMode(gormlogger.Silent)

		l.Trace(context.Background(), time.Now(), query, errors.New("x"))
		assert.Zero(t, recorded.Len())
	})

	t.Run("carries request scope", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Info, 0)
		ctx := WithScope(context.Background(), Scope{RequestID: "req-9", TenantID: "t-9"})

		l.Trace(ctx, time.Now(), query, nil)

		require.Equal(t, 1, recorded.Len())
		assert.Equal(t, "req-9", recorded.All()[0].ContextMap()["request_id"])
	})
}

func TestGormLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Info, GormLevel("debug"))
	assert.Equal(t, gormlogger.Error, GormLevel("error"))
	assert.Equal(t, gormlogger.Warn, GormLevel("info"))
}
