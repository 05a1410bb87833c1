package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey struct{ name string }

var (
	loggerKey = contextKey{"logger"}
	scopeKey  = contextKey{"scope"}
)

// Scope identifies who a request acts for. It is attached to every log line.
type Scope struct {
	RequestID string
	TenantID  string
	UserID    string
}

// WithContext returns a new context carrying logger
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the raw logger from ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithScope returns a context whose log lines carry s. Empty fields keep the values already in ctx.
func WithScope(ctx context.Context, s Scope) context.Context {
	current := ScopeFrom(ctx)
	if s.RequestID == "" {
		s.RequestID = current.RequestID
	}
	if s.TenantID == "" {
		s.TenantID = current.TenantID
	}
	if s.UserID == "" {
		s.UserID = current.UserID
	}
	return context.WithValue(ctx, scopeKey, s)
}

// ScopeFrom returns the scope stored in ctx
func ScopeFrom(ctx context.Context) Scope {
	s, _ := ctx.Value(scopeKey).(Scope)
	return s
}

// L returns the context logger enriched with request scope and trace ids.
// Usage: logger.L(ctx).Info("order completed", zap.String("order_id", id))
func L(ctx context.Context) *zap.Logger {
	return Enrich(ctx, FromContext(ctx))
}

// Enrich adds the request scope and trace ids found in ctx to l
func Enrich(ctx context.Context, l *zap.Logger) *zap.Logger {
	fields := make([]zap.Field, 0, 5)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	s := ScopeFrom(ctx)
	if s.RequestID != "" {
		fields = append(fields, zap.String("request_id", s.RequestID))
	}
	if s.TenantID != "" {
		fields = append(fields, zap.String("tenant_id", s.TenantID))
	}
	if s.UserID != "" {
		fields = append(fields, zap.String("user_id", s.UserID))
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}
