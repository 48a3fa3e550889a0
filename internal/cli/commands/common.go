package commands

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/rs/zerolog"

	"github.com/rootword-dev/rootword/internal/cli/client"
	"github.com/rootword-dev/rootword/internal/cli/config"
	"github.com/rootword-dev/rootword/internal/cli/serverselect"
	"github.com/rootword-dev/rootword/internal/cli/session"
	"github.com/rootword-dev/rootword/internal/cli/userconfig"
	"github.com/rootword-dev/rootword/internal/guard"
)

// ErrNotLoggedIn is returned when a command needs a session that is missing
// or no longer proves the caller's role
var ErrNotLoggedIn = errors.New("not logged in, run 'rootword login'")

// Runtime holds the collaborators shared by every command
type Runtime struct {
	Out    io.Writer
	Logger zerolog.Logger

	// ServerAlias is the value of the --server flag
	ServerAlias string

	LoadConfig    func() (*config.Config, error)
	ResolveServer func(cfg *config.Config, alias string) (*config.Server, error)
	OpenStore     func(server *config.Server) session.Store
	HTTPClient    *http.Client
}

// NewRuntime returns a runtime backed by rootword.json, the user config and
// the OS keyring
func NewRuntime(logger zerolog.Logger) *Runtime {
	return &Runtime{
		Out:           os.Stdout,
		Logger:        logger,
		LoadConfig:    config.LoadFromCurrentDir,
		ResolveServer: serverselect.ResolveServer,
		OpenStore: func(server *config.Server) session.Store {
			return session.NewKeyringStore(client.BaseURL(server.Address))
		},
	}
}

// target is the selected server with its session, read once per command
type target struct {
	cfg     *config.Config
	server  *config.Server
	prefs   userconfig.Preferences
	store   session.Store
	session guard.Session
	router  *guard.Router
}

func (rt *Runtime) resolve() (*target, error) {
	cfg, err := rt.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w\nRun 'rootword init' to create a configuration file", err)
	}

	server, err := rt.ResolveServer(cfg, rt.ServerAlias)
	if err != nil {
		return nil, err
	}
	if server.Address == "" {
		return nil, fmt.Errorf("server address is empty. Please edit %s and add a valid address", config.ConfigFileName)
	}

	prefs, err := userconfig.PreferencesFor(server.Address)
	if err != nil {
		rt.Logger.Debug().Err(err).Msg("Ignoring unreadable user preferences")
	}

	router, err := newRouter(firstNonEmpty(prefs.Landing, cfg.Landing))
	if err != nil {
		return nil, err
	}

	store := rt.OpenStore(server)
	return &target{
		cfg:     cfg,
		server:  server,
		prefs:   prefs,
		store:   store,
		session: session.Load(store, rt.Logger),
		router:  router,
	}, nil
}

// newRouter builds the route table with landing as the restricted fallback,
// or the default landing view when landing is empty
func newRouter(landing string) (*guard.Router, error) {
	var opts []guard.Option
	if landing != "" {
		opts = append(opts, guard.WithLandingPath(landing))
	}
	router, err := guard.NewRouter(guard.New(opts...), guard.DefaultRoutes())
	if err != nil {
		return nil, fmt.Errorf("invalid route table: %w", err)
	}
	return router, nil
}

func (rt *Runtime) client(t *target) *client.Client {
	c := client.New(t.server.Address, t.session.Token)
	if rt.HTTPClient != nil {
		c.SetHTTPClient(rt.HTTPClient)
	}
	return c
}

func (rt *Runtime) printf(format string, args ...interface{}) {
	fmt.Fprintf(rt.Out, format, args...)
}

// guarded runs fn when the session may enter the view registered at path.
// Regular users reaching an admin-only view get the landing view instead.
func (rt *Runtime) guarded(path string, fn func(t *target, c *client.Client) error) error {
	t, err := rt.resolve()
	if err != nil {
		return err
	}

	route, outcome := t.router.Navigate(path, t.session)
	rt.Logger.Debug().
		Str("path", path).
		Str("route", route.Name).
		Stringer("decision", outcome.Decision).
		Msg("Navigation resolved")

	switch outcome.Decision {
	case guard.Proceed:
		return fn(t, rt.client(t))
	case guard.RedirectRestricted:
		rt.printf("%s requires administrator access, showing %s instead\n\n", route.Path, outcome.Target)
		return rt.render(t, outcome.Target)
	default:
		// Unknown paths land on the login view like any other redirect
		if _, known := t.router.Lookup(path); !known {
			rt.printf("No view at %s\n", path)
			return rt.render(t, outcome.Target)
		}
		return ErrNotLoggedIn
	}
}
