package commands

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rootword-dev/rootword/internal/cli/client"
	"github.com/rootword-dev/rootword/internal/cli/session"
	"github.com/rootword-dev/rootword/internal/cli/userconfig"
	"github.com/rootword-dev/rootword/internal/guard"
)

// NewLoginCmd creates the login command
func NewLoginCmd(rt *Runtime) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with a Rootword server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.runLogin(username, password)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username (or set ROOTWORD_USERNAME)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set ROOTWORD_PASSWORD, will prompt if not provided)")

	return cmd
}

func (rt *Runtime) runLogin(username, password string) error {
	if username == "" {
		username = os.Getenv("ROOTWORD_USERNAME")
	}
	if password == "" {
		password = os.Getenv("ROOTWORD_PASSWORD")
	}

	return rt.guarded(guard.LoginPath, func(t *target, c *client.Client) error {
		if username == "" {
			username = t.prefs.LastUsername
		}
		if username == "" {
			return fmt.Errorf("username is required (use --username flag or ROOTWORD_USERNAME env var)")
		}

		if password == "" {
			if !term.IsTerminal(int(syscall.Stdin)) {
				return fmt.Errorf("password is required in non-interactive mode (use --password flag or ROOTWORD_PASSWORD env var)")
			}
			fmt.Print("Password: ")
			bytePassword, err := term.ReadPassword(int(syscall.Stdin))
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password = string(bytePassword)
			fmt.Println()
		}

		rt.printf("Logging in to %s (%s)...\n", t.server.Alias, t.server.Address)

		resp, err := c.Login(username, password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		record := session.UserRecord{
			ID:       resp.User.ID,
			Username: resp.User.Username,
			Role:     resp.User.Role,
		}
		if err := session.Save(t.store, resp.AccessToken, record); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}

		if err := userconfig.RememberUsername(t.server.Address, resp.User.Username); err != nil {
			rt.Logger.Warn().Err(err).Msg("Failed to remember username")
		}

		rt.printf("✓ Login successful!\n")
		rt.printf("  User: %s\n", resp.User.Username)
		if resp.User.Role == "admin" {
			rt.printf("  Role: Admin\n")
		}
		return nil
	})
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the current token and forget the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.runLogout()
		},
	}
}

func (rt *Runtime) runLogout() error {
	t, err := rt.resolve()
	if err != nil {
		return err
	}

	if t.session.Authenticated() {
		// An expired or already revoked token still clears the local session
		err := rt.client(t).Logout()
		var apiErr *client.APIError
		if err != nil && !(errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized) {
			rt.Logger.Warn().Err(err).Msg("Failed to revoke token on the server")
		}
	}

	if err := session.Clear(t.store); err != nil {
		return err
	}

	rt.printf("Logged out of %s\n", t.server.Alias)
	return nil
}

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.guarded("/root-word/list", func(t *target, c *client.Client) error {
				user, err := c.Me()
				if err != nil {
					return err
				}
				rt.printf("%s (%s) on %s\n", user.Username, user.Role, t.server.Alias)
				return nil
			})
		},
	}
}
