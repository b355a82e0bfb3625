package middleware

import (
	"net/http"
	"strings"

	"github.com/erp/rentledger/internal/domain/identity"
	"github.com/erp/rentledger/internal/infrastructure/logger"
	"github.com/erp/rentledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequireCapability allows the request when the principal's role holds any of caps.
// It must run after Authenticate.
func RequireCapability(table identity.CapabilityTable, caps ...identity.Capability) gin.HandlerFunc {
	required := make([]string, len(caps))
	for i, c := range caps {
		required[i] = string(c)
	}
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}
		if !table.AllowsAny(principal.Role, caps...) {
			logger.L(c.Request.Context()).Warn("Capability denied",
				zap.String("role", principal.Role.String()),
				zap.Strings("required", required),
				zap.String("route", c.FullPath()))
			abortWithError(c, http.StatusForbidden, dto.ErrCodeForbidden,
				"Role "+principal.Role.String()+" lacks "+strings.Join(required, " or "))
			return
		}
		c.Next()
	}
}
