package middleware

import (
	"net/http"

	"github.com/erp/rentledger/internal/infrastructure/logger"
	"github.com/erp/rentledger/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// SkipPaths are not traced
	SkipPaths []string
}

// Tracing wraps otelgin. Spans are named "METHOD route" by otelgin and are
// annotated by SpanEnricher once the caller is known.
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}
	return otelgin.Middleware(cfg.ServiceName,
		otelgin.WithFilter(func(r *http.Request) bool {
			return !skip[r.URL.Path]
		}),
	)
}

// SpanEnricher adds request, tenant and user ids to the active span and marks
// 4xx/5xx responses as errors. Place it after Authenticate.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}

		if id := c.GetString(logger.RequestIDKey); id != "" {
			span.SetAttributes(attribute.String(telemetry.SpanAttrRequestID, id))
		}
		if p, ok := GetPrincipal(c); ok {
			span.SetAttributes(
				attribute.String(telemetry.SpanAttrTenantID, p.TenantID.String()),
				attribute.String(telemetry.SpanAttrUserID, p.UserID.String()),
				attribute.String(telemetry.SpanAttrRole, p.Role.String()),
			)
		}

		c.Next()

		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			return
		}
		span.SetAttributes(attribute.Int("http.status_code", status))
		if len(c.Errors) > 0 {
			span.SetStatus(codes.Error, c.Errors.Last().Error())
			return
		}
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}
