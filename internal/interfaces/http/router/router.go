package router

import (
	"net/http"

	"github.com/erp/rentledger/internal/domain/identity"
	"github.com/gin-gonic/gin"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Guard builds the handler that admits a request holding any of caps
type Guard func(caps ...identity.Capability) gin.HandlerFunc

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	middleware []gin.HandlerFunc
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
		registrars: make([]RouteRegistrar, 0),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Use adds middleware applied to every versioned API route
func (r *Router) Use(middleware ...gin.HandlerFunc) *Router {
	r.middleware = append(r.middleware, middleware...)
	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrars ...RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrars...)
	return r
}

// Setup registers all routes with the engine under /api/<version>
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	if len(r.middleware) > 0 {
		api.Use(r.middleware...)
	}

	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// Route describes one registered endpoint
type Route struct {
	Method       string
	Path         string
	Capabilities []identity.Capability
}

// DomainGroup creates a route group for a specific domain. Routes added with
// capabilities are wrapped by the group's guard.
type DomainGroup struct {
	name       string
	prefix     string
	guard      Guard
	routes     []routeDefinition
	middleware []gin.HandlerFunc
}

type routeDefinition struct {
	method   string
	path     string
	caps     []identity.Capability
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates a new domain-specific route group
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{
		name:   name,
		prefix: prefix,
	}
}

// WithGuard sets the capability guard for routes declared with Require
func (dg *DomainGroup) WithGuard(guard Guard) *DomainGroup {
	dg.guard = guard
	return dg
}

// Use adds middleware to this group
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

// Handle registers an unguarded route
func (dg *DomainGroup) Handle(method, path string, handlers ...gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{method: method, path: path, handlers: handlers})
	return dg
}

// Require registers a route that needs any of caps
func (dg *DomainGroup) Require(method, path string, caps []identity.Capability, handlers ...gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, routeDefinition{method: method, path: path, caps: caps, handlers: handlers})
	return dg
}

// GET registers a GET route guarded by cap
func (dg *DomainGroup) GET(path string, cap identity.Capability, h gin.HandlerFunc) *DomainGroup {
	return dg.Require(http.MethodGet, path, []identity.Capability{cap}, h)
}

// POST registers a POST route guarded by cap
func (dg *DomainGroup) POST(path string, cap identity.Capability, h gin.HandlerFunc) *DomainGroup {
	return dg.Require(http.MethodPost, path, []identity.Capability{cap}, h)
}

// PUT registers a PUT route guarded by cap
func (dg *DomainGroup) PUT(path string, cap identity.Capability, h gin.HandlerFunc) *DomainGroup {
	return dg.Require(http.MethodPut, path, []identity.Capability{cap}, h)
}

// DELETE registers a DELETE route guarded by cap
func (dg *DomainGroup) DELETE(path string, cap identity.Capability, h gin.HandlerFunc) *DomainGroup {
	return dg.Require(http.MethodDelete, path, []identity.Capability{cap}, h)
}

// RegisterRoutes implements RouteRegistrar. It panics when a guarded route
// has no guard configured, so a missing permission check cannot ship silently.
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix)
	if len(dg.middleware) > 0 {
		group.Use(dg.middleware...)
	}

	for _, route := range dg.routes {
		handlers := route.handlers
		if len(route.caps) > 0 {
			if dg.guard == nil {
				panic("router: group " + dg.name + " has guarded route " + route.path + " but no guard")
			}
			handlers = append([]gin.HandlerFunc{dg.guard(route.caps...)}, handlers...)
		}
		group.Handle(route.method, route.path, handlers...)
	}
}

// Routes lists the group's endpoints with their full paths relative to the API root
func (dg *DomainGroup) Routes() []Route {
	out := make([]Route, len(dg.routes))
	for i, r := range dg.routes {
		out[i] = Route{Method: r.method, Path: dg.prefix + r.path, Capabilities: r.caps}
	}
	return out
}

// Name returns the group name
func (dg *DomainGroup) Name() string {
	return dg.name
}

// Prefix returns the group prefix
func (dg *DomainGroup) Prefix() string {
	return dg.prefix
}
