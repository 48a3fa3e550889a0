package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefaultRouter(t *testing.T) *Router {
	t.Helper()
	r, err := NewRouter(New(), DefaultRoutes())
	require.NoError(t, err)
	return r
}

func TestDefaultRoutes_AdminImpliesAuth(t *testing.T) {
	for _, route := range DefaultRoutes() {
		if route.RequiresAdmin {
			assert.True(t, route.RequiresAuth, "route %s", route.Name)
		}
	}
}

func TestNewRouter_Validation(t *testing.T) {
	t.Run("admin without auth", func(t *testing.T) {
		routes := append(DefaultRoutes(), Route{Name: "Broken", Path: "/broken", RequiresAdmin: true})
		_, err := NewRouter(New(), routes)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "requiresAdmin without requiresAuth")
	})

	t.Run("duplicate path", func(t *testing.T) {
		routes := append(DefaultRoutes(), Route{Name: "Other", Path: "/root-word/list", RequiresAuth: true})
		_, err := NewRouter(New(), routes)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate route path")
	})

	t.Run("duplicate name", func(t *testing.T) {
		routes := append(DefaultRoutes(), Route{Name: RouteDDLCheck, Path: "/other", RequiresAuth: true})
		_, err := NewRouter(New(), routes)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate route name")
	})

	t.Run("landing path not registered", func(t *testing.T) {
		_, err := NewRouter(New(WithLandingPath("/nowhere")), DefaultRoutes())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "landing route")
	})

	t.Run("login path not registered", func(t *testing.T) {
		_, err := NewRouter(New(), DefaultRoutes()[1:])
		require.Error(t, err)
		assert.Contains(t, err.Error(), "login route")
	})
}

func TestRouter_Navigate(t *testing.T) {
	r := newDefaultRouter(t)

	tests := []struct {
		name      string
		path      string
		session   Session
		wantRoute string
		want      Outcome
	}{
		{
			name:      "admin reaches audit",
			path:      "/root-word/audit",
			session:   Session{Token: "abc123", User: &User{Role: RoleAdmin}},
			wantRoute: RouteRootWordAudit,
			want:      Outcome{Decision: Proceed},
		},
		{
			name:      "anonymous list",
			path:      "/root-word/list",
			session:   Session{},
			wantRoute: RouteRootWordList,
			want:      Outcome{Decision: RedirectLogin, Target: LoginPath},
		},
		{
			name:      "corrupt user record on audit",
			path:      "/root-word/audit",
			session:   Session{Token: "abc123", User: nil},
			wantRoute: RouteRootWordAudit,
			want:      Outcome{Decision: RedirectLogin, Target: LoginPath},
		},
		{
			name:      "member on user management",
			path:      "/user/manage",
			session:   Session{Token: "abc123", User: &User{Role: RoleMember}},
			wantRoute: RouteUserManage,
			want:      Outcome{Decision: RedirectRestricted, Target: DefaultLandingPath},
		},
		{
			name:      "root path",
			path:      "/",
			session:   Session{Token: "abc123", User: &User{Role: RoleAdmin}},
			wantRoute: RouteLogin,
			want:      Outcome{Decision: RedirectLogin, Target: LoginPath},
		},
		{
			name:      "unknown path",
			path:      "/does/not/exist",
			session:   Session{},
			wantRoute: RouteLogin,
			want:      Outcome{Decision: RedirectLogin, Target: LoginPath},
		},
		{
			name:      "trailing slash and missing leading slash",
			path:      "root-word/apply/",
			session:   Session{Token: "abc123"},
			wantRoute: RouteRootWordApply,
			want:      Outcome{Decision: Proceed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route, out := r.Navigate(tt.path, tt.session)
			assert.Equal(t, tt.wantRoute, route.Name)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestRouter_ByName(t *testing.T) {
	r := newDefaultRouter(t)

	route, ok := r.ByName(RouteDDLCheck)
	require.True(t, ok)
	assert.Equal(t, "/root-word/ddl-check", route.Path)

	_, ok = r.ByName("Missing")
	assert.False(t, ok)
}
