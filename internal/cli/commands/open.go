package commands

import (
	"github.com/spf13/cobra"

	"github.com/rootword-dev/rootword/internal/cli/client"
)

// NewOpenCmd creates the open command
func NewOpenCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "open <path>",
		Short: "Render the view at a path, e.g. /root-word/audit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			return rt.guarded(path, func(t *target, _ *client.Client) error {
				return rt.render(t, path)
			})
		},
	}
}
