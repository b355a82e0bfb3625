package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/rentledger/internal/domain/identity"
	"github.com/erp/rentledger/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// headerGuard admits requests whose X-Caps header names one of the required capabilities
func headerGuard(caps ...identity.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		have := identity.Capability(c.GetHeader("X-Caps"))
		for _, want := range caps {
			if want == have {
				c.Next()
				return
			}
		}
		c.AbortWithStatus(http.StatusForbidden)
	}
}

func serve(engine *gin.Engine, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
	assert.Equal(t, "v2", NewRouter(gin.New(), WithAPIVersion("v2")).apiVersion)
}

func TestRouterSetup_AppliesMiddlewareAndVersion(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Use(func(c *gin.Context) {
		c.Header("X-Seen", "yes")
		c.Next()
	})

	group := NewDomainGroup("test", "/test")
	group.Handle(http.MethodGet, "/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	r.Register(group).Setup()

	w := serve(engine, http.MethodGet, "/api/v1/test/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.Equal(t, "yes", w.Header().Get("X-Seen"))

	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/api/v2/test/ping", nil).Code)
}

func TestDomainGroup_GuardedRoutes(t *testing.T) {
	engine := gin.New()
	g := NewDomainGroup("billings", "/billings").WithGuard(headerGuard)
	g.GET("/:id/penalty", identity.CapBillingRead, func(c *gin.Context) {
		c.String(http.StatusOK, c.Param("id"))
	})
	g.DELETE("/:id", identity.CapBillingDelete, func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	g.RegisterRoutes(engine.Group("/api/v1"))

	t.Run("allows holder of the capability", func(t *testing.T) {
		w := serve(engine, http.MethodGet, "/api/v1/billings/abc/penalty", map[string]string{"X-Caps": "billing:read"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "abc", w.Body.String())
	})

	t.Run("rejects other capabilities", func(t *testing.T) {
		w := serve(engine, http.MethodDelete, "/api/v1/billings/abc", map[string]string{"X-Caps": "billing:read"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("rejects missing capability", func(t *testing.T) {
		w := serve(engine, http.MethodGet, "/api/v1/billings/abc/penalty", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestDomainGroup_GuardedRouteWithoutGuardPanics(t *testing.T) {
	g := NewDomainGroup("payments", "/payments")
	g.POST("", identity.CapPaymentApply, func(c *gin.Context) {})

	assert.Panics(t, func() {
		g.RegisterRoutes(gin.New().Group("/api/v1"))
	})
}

func TestDomainGroup_Routes(t *testing.T) {
	g := NewDomainGroup("readings", "/readings")
	g.POST("/:id/confirm", identity.CapReadingConfirm, func(c *gin.Context) {})

	assert.Equal(t, "readings", g.Name())
	assert.Equal(t, "/readings", g.Prefix())
	assert.Equal(t, []Route{{
		Method:       http.MethodPost,
		Path:         "/readings/:id/confirm",
		Capabilities: []identity.Capability{identity.CapReadingConfirm},
	}}, g.Routes())
}

func TestLedgerGroups_RouteTable(t *testing.T) {
	groups := LedgerGroups(LedgerHandlers{
		Leases:         handler.NewLeaseHandler(nil, nil),
		Billings:       handler.NewBillingHandler(nil),
		Payments:       handler.NewPaymentHandler(nil, 1<<20, 0),
		Metering:       handler.NewMeteringHandler(nil, nil),
		Reports:        handler.NewReportHandler(nil),
		PenaltyConfigs: handler.NewPenaltyConfigHandler(nil),
	}, headerGuard)

	got := map[string]identity.Capability{}
	for _, reg := range groups {
		for _, route := range reg.(*DomainGroup).Routes() {
			require.Len(t, route.Capabilities, 1, route.Path)
			got[route.Method+" "+route.Path] = route.Capabilities[0]
		}
	}

	want := map[string]identity.Capability{
		"POST /leases/:id/schedule":         identity.CapLeaseSchedule,
		"GET /leases/:id/billings":          identity.CapBillingRead,
		"GET /leases/:id/balance-status":    identity.CapBillingRead,
		"GET /billings/:id/penalty":         identity.CapBillingRead,
		"PUT /billings/:id/penalty":         identity.CapBillingPenalty,
		"DELETE /billings/:id":              identity.CapBillingDelete,
		"POST /billings/statuses/refresh":   identity.CapBillingPenalty,
		"POST /payments":                    identity.CapPaymentApply,
		"GET /payments/:id":                 identity.CapBillingRead,
		"POST /payments/:id/revert":         identity.CapPaymentRevert,
		"POST /payments/:id/receipt":        identity.CapPaymentApply,
		"GET /payments/:id/receipt":         identity.CapBillingRead,
		"POST /meters/:id/readings":         identity.CapReadingSubmit,
		"POST /meters/:id/utility-billings": identity.CapUtilityBill,
		"POST /readings/:id/confirm":        identity.CapReadingConfirm,
		"GET /reports/rent":                 identity.CapReportRead,
		"GET /reports/rent.csv":             identity.CapReportRead,
		"GET /penalty-configs":              identity.CapBillingRead,
		"PUT /penalty-configs/:type":        identity.CapBillingPenalty,
	}
	assert.Equal(t, want, got)

	// every group registers against a real engine without route conflicts
	engine := gin.New()
	r := NewRouter(engine)
	assert.NotPanics(t, func() {
		r.Register(groups...).Setup()
	})
	assert.Equal(t, http.StatusForbidden, serve(engine, http.MethodGet, "/api/v1/reports/rent.csv", nil).Code)
}
