package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/erp/rentledger/internal/infrastructure/auth"
	"github.com/erp/rentledger/internal/infrastructure/logger"
	"github.com/erp/rentledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Auth context keys
const (
	PrincipalKey  = "auth_principal"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// TokenVerifier validates a bearer token and returns who sent it
type TokenVerifier interface {
	Validate(token string) (auth.Principal, error)
}

// Authenticate requires a valid bearer token. The principal is stored on the
// gin context and its tenant and user ids on the request logger context.
func Authenticate(verifier TokenVerifier, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		header := c.GetHeader(AuthHeaderKey)
		if header == "" {
			abortWithError(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Missing authorization header")
			return
		}
		token, ok := strings.CutPrefix(header, BearerPrefix)
		if !ok || token == "" {
			abortWithError(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Invalid authorization header format")
			return
		}

		principal, err := verifier.Validate(token)
		if err != nil {
			log.Debug("Token rejected",
				zap.String("request_id", c.GetString(logger.RequestIDKey)),
				zap.Error(err))
			if errors.Is(err, auth.ErrExpiredToken) {
				abortWithError(c, http.StatusUnauthorized, dto.ErrCodeTokenExpired, "Token has expired")
				return
			}
			abortWithError(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Invalid token")
			return
		}

		c.Set(PrincipalKey, principal)
		ctx := logger.WithTenantID(c.Request.Context(), principal.TenantID.String())
		ctx = logger.WithUserID(ctx, principal.UserID.String())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetPrincipal returns the authenticated principal, if any
func GetPrincipal(c *gin.Context) (auth.Principal, bool) {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}
