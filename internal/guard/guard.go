// Package guard decides whether a navigation to a route may proceed for a
// given session. It performs no I/O: callers read the persisted session once
// and pass it in.
package guard

const (
	// LoginPath is where unauthenticated navigations are sent.
	LoginPath = "/login"

	// DefaultLandingPath is where authenticated users without sufficient
	// privilege are sent.
	DefaultLandingPath = "/root-word/list"
)

// Decision is the terminal state of a guard evaluation.
type Decision int

const (
	// Proceed lets the navigation continue to the requested route.
	Proceed Decision = iota
	// RedirectLogin sends the navigation to the login route.
	RedirectLogin
	// RedirectRestricted sends an authenticated non-admin to the landing route.
	RedirectRestricted
)

func (d Decision) String() string {
	switch d {
	case Proceed:
		return "proceed"
	case RedirectLogin:
		return "redirect_login"
	case RedirectRestricted:
		return "redirect_restricted"
	default:
		return "unknown"
	}
}

// Outcome is a decision plus the path the host should continue to.
// Target is empty for Proceed.
type Outcome struct {
	Decision Decision
	Target   string
}

// Session is the authenticated state read from the session store.
// User is nil when no user record is stored or the record could not be decoded.
type Session struct {
	Token string
	User  *User
}

// User is the part of the persisted user record the guard needs.
type User struct {
	ID       string
	Username string
	Role     Role
}

// Authenticated reports whether a token is present.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// Guard resolves navigation intents against route metadata.
type Guard struct {
	loginPath   string
	landingPath string
}

// Option configures a Guard.
type Option func(*Guard)

// WithLandingPath overrides the redirect target for restricted routes.
func WithLandingPath(path string) Option {
	return func(g *Guard) {
		g.landingPath = path
	}
}

// New creates a guard with the default login and landing paths.
func New(opts ...Option) *Guard {
	g := &Guard{
		loginPath:   LoginPath,
		landingPath: DefaultLandingPath,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// LandingPath returns the path restricted navigations are redirected to.
func (g *Guard) LandingPath() string {
	return g.landingPath
}

// Resolve evaluates a navigation to route for session. Each step either
// terminates or falls through to the next one.
func (g *Guard) Resolve(route Route, session Session) Outcome {
	if !route.RequiresAuth {
		return Outcome{Decision: Proceed}
	}

	if !session.Authenticated() {
		return Outcome{Decision: RedirectLogin, Target: g.loginPath}
	}

	if !route.RequiresAdmin {
		return Outcome{Decision: Proceed}
	}

	// A token alone does not prove the role.
	if session.User == nil {
		return Outcome{Decision: RedirectLogin, Target: g.loginPath}
	}

	switch session.User.Role {
	case RoleAdmin:
		return Outcome{Decision: Proceed}
	default:
		return Outcome{Decision: RedirectRestricted, Target: g.landingPath}
	}
}
