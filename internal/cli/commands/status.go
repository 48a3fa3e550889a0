package commands

import (
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/rootword-dev/rootword/internal/cli/client"
)

// NewStatusCmd creates the status command
func NewStatusCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server, dictionary and import queue status (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.guarded(userManagePath, func(t *target, c *client.Client) error {
				info, err := c.SystemInfo()
				if err != nil {
					return err
				}

				rt.printf("Server:      %s (%s)\n", t.server.Alias, t.server.Address)
				rt.printf("Version:     %s\n", info.Version)
				rt.printf("Uptime:      %s\n", (time.Duration(info.Runtime.UptimeSeconds) * time.Second).String())
				rt.printf("Dictionary:  %d effective words", info.Dictionary.Words)
				if info.Dictionary.LoadedAt != nil {
					rt.printf(", loaded %s", info.Dictionary.LoadedAt.Local().Format(time.DateTime))
				}
				rt.printf("\n")
				if info.Dictionary.NextRefresh != nil {
					rt.printf("Next reload: %s (%s)\n", info.Dictionary.NextRefresh.Local().Format(time.DateTime), info.Dictionary.Schedule)
				}

				statuses := make([]string, 0, len(info.RootWords))
				for status := range info.RootWords {
					statuses = append(statuses, status)
				}
				sort.Strings(statuses)
				rt.printf("Root words:\n")
				for _, status := range statuses {
					rt.printf("  %-14s %d\n", status, info.RootWords[status])
				}
				rt.printf("Users:       %d\n", info.Users)

				if info.Imports != nil {
					if info.Imports.Error != "" {
						rt.printf("Imports:     unavailable (%s)\n", info.Imports.Error)
					} else {
						rt.printf("Imports:     %d pending, %d active, %d retrying\n", info.Imports.Pending, info.Imports.Active, info.Imports.Retry)
					}
				}
				return nil
			})
		},
	}
}
