package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rootword-dev/rootword/internal/cli/userconfig"
	"github.com/rootword-dev/rootword/internal/guard"
)

// NewLandingCmd creates the landing command
func NewLandingCmd(rt *Runtime) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "landing [path]",
		Short: "Show or set the view shown instead of admin-only views",
		Long: `Show or set the view shown instead of admin-only views.

The setting is personal and kept per server. Without it, the project's
"landing" from rootword.json applies, then /root-word/list.

Examples:
  $ rootword landing                      # Show the current landing view
  $ rootword landing /root-word/apply     # Land on your own words
  $ rootword landing --reset              # Back to the project default`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) > 0 {
				path = args[0]
			}
			return rt.runLanding(path, reset)
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "Clear your landing view for this server")
	return cmd
}

func (rt *Runtime) runLanding(path string, reset bool) error {
	t, err := rt.resolve()
	if err != nil {
		return err
	}

	switch {
	case reset:
		if err := userconfig.SetLanding(t.server.Address, ""); err != nil {
			return fmt.Errorf("failed to save landing view: %w", err)
		}
		router, err := newRouter(t.cfg.Landing)
		if err != nil {
			return err
		}
		rt.printf("Landing view for %s reset to %s\n", t.server.Alias, router.Guard().LandingPath())
		return nil

	case path == "":
		source := "default"
		switch {
		case t.prefs.Landing != "":
			source = "personal"
		case t.cfg.Landing != "":
			source = "project"
		}
		rt.printf("%s (%s)\n", t.router.Guard().LandingPath(), source)
		return nil
	}

	router, err := newRouter(path)
	if err != nil {
		return fmt.Errorf("no view at %s", path)
	}
	landing, _ := router.Lookup(router.Guard().LandingPath())
	if landing.RequiresAdmin {
		return fmt.Errorf("%s requires administrator access and cannot be a landing view", landing.Path)
	}
	if landing.Path == guard.LoginPath {
		return fmt.Errorf("the login view cannot be a landing view")
	}

	if err := userconfig.SetLanding(t.server.Address, landing.Path); err != nil {
		return fmt.Errorf("failed to save landing view: %w", err)
	}
	rt.printf("Landing view for %s set to %s\n", t.server.Alias, landing.Path)
	return nil
}
