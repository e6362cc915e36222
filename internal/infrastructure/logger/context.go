package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey struct{}

// Scope identifies the request a log line belongs to
type Scope struct {
	RequestID string
	TenantID  string
	UserID    string
}

type scoped struct {
	logger *zap.Logger
	scope  Scope
}

// WithContext stores logger in ctx
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	s := scopeOf(ctx)
	s.logger = logger
	return context.WithValue(ctx, ctxKey{}, s)
}

// WithScope adds the non-empty scope values to the context's logger
func WithScope(ctx context.Context, scope Scope) context.Context {
	s := scopeOf(ctx)
	l := s.logger
	if l == nil {
		l = zap.NewNop()
	}
	if scope.RequestID != "" {
		s.scope.RequestID = scope.RequestID
		l = l.With(zap.String("request_id", scope.RequestID))
	}
	if scope.TenantID != "" {
		s.scope.TenantID = scope.TenantID
		l = l.With(zap.String("tenant_id", scope.TenantID))
	}
	if scope.UserID != "" {
		s.scope.UserID = scope.UserID
		l = l.With(zap.String("user_id", scope.UserID))
	}
	s.logger = l
	return context.WithValue(ctx, ctxKey{}, s)
}

// ScopeFrom returns the scope values stored in ctx
func ScopeFrom(ctx context.Context) Scope {
	return scopeOf(ctx).scope
}

// FromContext returns the context's logger with the active trace ID, or a
// no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	l := scopeOf(ctx).logger
	if l == nil {
		return zap.NewNop()
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		l = l.With(zap.String("trace_id", sc.TraceID().String()))
	}
	return l
}

// GetRequestID returns the request ID stored in ctx
func GetRequestID(ctx context.Context) string {
	return scopeOf(ctx).scope.RequestID
}

func scopeOf(ctx context.Context) scoped {
	if ctx == nil {
		return scoped{}
	}
	s, _ := ctx.Value(ctxKey{}).(scoped)
	return s
}
