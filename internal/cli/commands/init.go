package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rootword-dev/rootword/internal/cli/config"
)

// NewInitCmd creates the init command
func NewInitCmd(rt *Runtime) *cobra.Command {
	var alias string

	cmd := &cobra.Command{
		Use:   "init <address>",
		Short: "Add a Rootword server to ./rootword.json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			currentDir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get current directory: %w", err)
			}
			return rt.runInit(filepath.Join(currentDir, config.ConfigFileName), args[0], alias)
		},
	}

	cmd.Flags().StringVar(&alias, "alias", "", "Server alias (defaults to default, server-2, ...)")
	return cmd
}

func (rt *Runtime) runInit(configPath, address, alias string) error {
	cfg := &config.Config{Servers: []config.Server{}}
	isNewConfig := true

	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		isNewConfig = false
	}

	if _, err := cfg.GetServerByAddress(address); err == nil {
		rt.printf("Server %s already exists in %s\n", address, config.ConfigFileName)
		return nil
	}

	if alias == "" {
		alias = "default"
		if len(cfg.Servers) > 0 {
			alias = fmt.Sprintf("server-%d", len(cfg.Servers)+1)
		}
	}
	if _, err := cfg.GetServerByAlias(alias); err == nil {
		return fmt.Errorf("alias '%s' is already used in %s", alias, config.ConfigFileName)
	}

	cfg.Servers = append(cfg.Servers, config.Server{Address: address, Alias: alias})
	if err := config.Save(configPath, cfg); err != nil {
		return err
	}

	if isNewConfig {
		rt.printf("✓ Created ./%s with server %s (%s)\n", config.ConfigFileName, address, alias)
	} else {
		rt.printf("✓ Added server %s (%s) to ./%s\n", address, alias, config.ConfigFileName)
	}
	rt.printf("\nNext: run 'rootword login' to authenticate\n")
	return nil
}
