package middleware

import (
	"context"

	"github.com/erp/rentledger/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// ProfilingConfig holds configuration for the profiling label middleware.
type ProfilingConfig struct {
	Enabled   bool
	SkipPaths []string
}

// Profiling tags the handler goroutine with route, method and tenant labels so
// CPU profiles can be sliced per endpoint. Place it after Authenticate to get
// the tenant label.
func Profiling(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}
	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}
		var tenantID string
		if p, ok := GetPrincipal(c); ok {
			tenantID = p.TenantID.String()
		}
		labels := telemetry.HTTPRequestLabels(c.FullPath(), c.Request.Method, tenantID)
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
