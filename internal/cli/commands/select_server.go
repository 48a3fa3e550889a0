package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rootword-dev/rootword/internal/cli/config"
	"github.com/rootword-dev/rootword/internal/cli/serverselect"
	"github.com/rootword-dev/rootword/internal/cli/userconfig"
)

// NewSelectServerCmd creates the select-server command
func NewSelectServerCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "select-server [address-or-alias]",
		Short: "Select the server to use for commands",
		Long: `Select the server to use for commands.

If no param is provided, an interactive prompt will be shown.

Examples:
  $ rootword select-server                        # Interactive selection
  $ rootword select-server http://10.0.0.5:8000   # Select by address
  $ rootword select-server production             # Select by alias`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var addressOrAlias string
			if len(args) > 0 {
				addressOrAlias = args[0]
			}
			return rt.runSelectServer(addressOrAlias)
		},
	}
}

func (rt *Runtime) runSelectServer(addressOrAlias string) error {
	cfg, err := rt.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w\nRun 'rootword init' to create a configuration file", err)
	}

	var server *config.Server
	if addressOrAlias != "" {
		server, err = serverselect.GetServerByAddressOrAlias(cfg, addressOrAlias)
	} else {
		server, err = serverselect.PromptServerSelection(cfg)
	}
	if err != nil {
		return err
	}

	if err := userconfig.SelectServer(server.Address); err != nil {
		return fmt.Errorf("failed to save selected server: %w", err)
	}

	rt.printf("Selected server: %s (%s)\n", server.Alias, server.Address)
	return nil
}
