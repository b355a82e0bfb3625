package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/erp/rentledger/internal/domain/identity"
	"github.com/erp/rentledger/internal/infrastructure/auth"
	"github.com/erp/rentledger/internal/infrastructure/config"
	"github.com/erp/rentledger/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "middleware-test-secret-0123456789abcdef"

func init() {
	gin.SetMode(gin.TestMode)
}

func issue(t *testing.T, role identity.Role, ttl time.Duration) (string, auth.Principal) {
	t.Helper()
	p := auth.Principal{TenantID: uuid.New(), UserID: uuid.New(), Username: "clerk", Role: role}
	token, err := auth.NewJWTService(config.JWTConfig{Secret: testSecret}).Issue(p, ttl)
	require.NoError(t, err)
	return token, p
}

func authRouter(caps ...identity.Capability) *gin.Engine {
	verifier := auth.NewJWTService(config.JWTConfig{Secret: testSecret})
	r := gin.New()
	r.Use(RequestID())
	r.GET("/secure", Authenticate(verifier, zap.NewNop()), RequireCapability(identity.DefaultCapabilityTable(), caps...), func(c *gin.Context) {
		p, _ := GetPrincipal(c)
		c.JSON(http.StatusOK, gin.H{
			"tenant": p.TenantID.String(),
			"ctx":    logger.GetTenantID(c.Request.Context()),
		})
	})
	return r
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(logger.RequestIDKey)) })

	t.Run("keeps a valid client id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, "abc-123", w.Body.String())
		assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	})

	t.Run("replaces oversized or odd ids", func(t *testing.T) {
		for _, bad := range []string{strings.Repeat("x", MaxRequestIDLength+1), "has space", "<script>"} {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(RequestIDHeader, bad)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			_, err := uuid.Parse(w.Body.String())
			assert.NoError(t, err, bad)
		}
	})
}

func TestAuthenticate(t *testing.T) {
	r := authRouter(identity.CapBillingRead)

	t.Run("missing header", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/secure", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), `"code":"UNAUTHORIZED"`)
		assert.Contains(t, w.Body.String(), `"request_id"`)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/secure", nil)
		req.Header.Set(AuthHeaderKey, "Basic Zm9vOmJhcg==")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		token, _ := issue(t, identity.RoleStaff, -time.Minute)
		req := httptest.NewRequest(http.MethodGet, "/secure", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), `"code":"TOKEN_EXPIRED"`)
	})

	t.Run("valid token populates principal and logger context", func(t *testing.T) {
		token, p := issue(t, identity.RoleStaff, time.Hour)
		req := httptest.NewRequest(http.MethodGet, "/secure", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"tenant":"`+p.TenantID.String()+`","ctx":"`+p.TenantID.String()+`"}`, w.Body.String())
	})
}

func TestRequireCapability(t *testing.T) {
	r := authRouter(identity.CapPaymentRevert)

	tests := []struct {
		role identity.Role
		want int
	}{
		{identity.RolePropertyAccountant, http.StatusOK},
		{identity.RolePropertyAdmin, http.StatusOK},
		{identity.RolePropertyFrontdesk, http.StatusForbidden},
		{identity.RoleStaff, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.role.String(), func(t *testing.T) {
			token, _ := issue(t, tt.role, time.Hour)
			req := httptest.NewRequest(http.MethodGet, "/secure", nil)
			req.Header.Set(AuthHeaderKey, BearerPrefix+token)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusForbidden {
				assert.Contains(t, w.Body.String(), "payment:revert")
			}
		})
	}
}

func TestRequireCapability_WithoutAuthenticate(t *testing.T) {
	r := gin.New()
	r.GET("/", RequireCapability(identity.DefaultCapabilityTable(), identity.CapBillingRead), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
