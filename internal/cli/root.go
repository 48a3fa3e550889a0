package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rootword-dev/rootword/internal/cli/commands"
	"github.com/rootword-dev/rootword/internal/logger"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the command tree around rt
func NewRootCmd(rt *commands.Runtime) *cobra.Command {
	var debug bool

	rootCmd := &cobra.Command{
		Use:   "rootword",
		Short: "Rootword - root word dictionary for table design",
		Long: `Rootword CLI - apply for, audit and use standard column names.

Root words map a column name to its standard type in MySQL, Doris and
ClickHouse. Use the CLI to manage the dictionary and to check CREATE TABLE
statements and live PostgreSQL schemas against it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				rt.Logger = logger.NewCLI(true)
			}
			rt.Out = cmd.OutOrStdout()
		},
	}

	rootCmd.PersistentFlags().StringVar(&rt.ServerAlias, "server", "", "Server alias (uses the selected server if not specified)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log debug output to stderr")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rootword version %s\n", version)
		},
	})

	rootCmd.AddCommand(
		commands.NewInitCmd(rt),
		commands.NewSelectServerCmd(rt),
		commands.NewLoginCmd(rt),
		commands.NewLogoutCmd(rt),
		commands.NewWhoamiCmd(rt),
		commands.NewOpenCmd(rt),
		commands.NewListCmd(rt),
		commands.NewApplyCmd(rt),
		commands.NewDeleteCmd(rt),
		commands.NewLogsCmd(rt),
		commands.NewDDLCmd(rt),
		commands.NewScanCmd(rt),
		commands.NewAuditCmd(rt),
		commands.NewDiscardCmd(rt),
		commands.NewRecoverCmd(rt),
		commands.NewEditCmd(rt),
		commands.NewForceDeleteCmd(rt),
		commands.NewImportCmd(rt),
		commands.NewUsersCmd(rt),
		commands.NewStatusCmd(rt),
		commands.NewLandingCmd(rt),
	)

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	rt := commands.NewRuntime(logger.NewCLI(false))
	if err := NewRootCmd(rt).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
