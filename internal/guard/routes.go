package guard

import (
	"fmt"
	"strings"
)

// Route is static metadata for a navigable path.
type Route struct {
	Name          string
	Path          string
	RequiresAuth  bool
	RequiresAdmin bool
}

// Route names used by the CLI views.
const (
	RouteLogin         = "Login"
	RouteRootWordList  = "RootWordList"
	RouteRootWordApply = "RootWordApply"
	RouteDDLCheck      = "DDLCheck"
	RouteRootWordAudit = "RootWordAudit"
	RouteUserManage    = "UserManage"
)

// DefaultRoutes returns the route table of the review workflow.
func DefaultRoutes() []Route {
	return []Route{
		{Name: RouteLogin, Path: LoginPath},
		{Name: RouteRootWordList, Path: "/root-word/list", RequiresAuth: true},
		{Name: RouteRootWordApply, Path: "/root-word/apply", RequiresAuth: true},
		{Name: RouteDDLCheck, Path: "/root-word/ddl-check", RequiresAuth: true},
		{Name: RouteRootWordAudit, Path: "/root-word/audit", RequiresAuth: true, RequiresAdmin: true},
		{Name: RouteUserManage, Path: "/user/manage", RequiresAuth: true, RequiresAdmin: true},
	}
}

// Router holds an immutable route table and the guard applied to it.
type Router struct {
	guard  *Guard
	byPath map[string]Route
	byName map[string]Route
}

// NewRouter validates routes and builds a router. Every admin-only route must
// also require authentication, and paths and names must be unique.
func NewRouter(g *Guard, routes []Route) (*Router, error) {
	r := &Router{
		guard:  g,
		byPath: make(map[string]Route, len(routes)),
		byName: make(map[string]Route, len(routes)),
	}

	for _, route := range routes {
		if route.RequiresAdmin && !route.RequiresAuth {
			return nil, fmt.Errorf("route %s (%s): requiresAdmin without requiresAuth", route.Name, route.Path)
		}
		if _, dup := r.byPath[route.Path]; dup {
			return nil, fmt.Errorf("duplicate route path %s", route.Path)
		}
		if _, dup := r.byName[route.Name]; dup {
			return nil, fmt.Errorf("duplicate route name %s", route.Name)
		}
		r.byPath[route.Path] = route
		r.byName[route.Name] = route
	}

	if _, ok := r.byPath[g.loginPath]; !ok {
		return nil, fmt.Errorf("login route %s is not registered", g.loginPath)
	}
	if _, ok := r.byPath[g.landingPath]; !ok {
		return nil, fmt.Errorf("landing route %s is not registered", g.landingPath)
	}

	return r, nil
}

// Lookup returns the route registered at path.
func (r *Router) Lookup(path string) (Route, bool) {
	route, ok := r.byPath[normalizePath(path)]
	return route, ok
}

// ByName returns the route registered under name.
func (r *Router) ByName(name string) (Route, bool) {
	route, ok := r.byName[name]
	return route, ok
}

// Guard returns the guard used by the router.
func (r *Router) Guard() *Guard {
	return r.guard
}

// Navigate resolves a navigation to path. Unknown paths, including the root
// path, redirect to the login view.
func (r *Router) Navigate(path string, session Session) (Route, Outcome) {
	route, ok := r.Lookup(path)
	if !ok {
		login := r.byPath[r.guard.loginPath]
		return login, Outcome{Decision: RedirectLogin, Target: r.guard.loginPath}
	}
	return route, r.guard.Resolve(route, session)
}

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}
