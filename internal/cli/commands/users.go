package commands

import (
	"github.com/spf13/cobra"

	"github.com/rootword-dev/rootword/internal/cli/client"
)

const userManagePath = "/user/manage"

// NewUsersCmd creates the users command group
func NewUsersCmd(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts (admin)",
	}

	cmd.AddCommand(
		newUsersListCmd(rt),
		newUsersCreateCmd(rt),
		newUsersDeleteCmd(rt),
		newUsersResetPasswordCmd(rt),
	)
	return cmd
}

func newUsersListCmd(rt *Runtime) *cobra.Command {
	var page, size int
	var username string

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.guarded(userManagePath, func(_ *target, c *client.Client) error {
				return rt.listUsers(c, page, size, username)
			})
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&size, "size", 10, "Page size")
	cmd.Flags().StringVar(&username, "username", "", "Filter by username (substring)")
	return cmd
}

func newUsersCreateCmd(rt *Runtime) *cobra.Command {
	var password, role string

	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.guarded(userManagePath, func(_ *target, c *client.Client) error {
				user, err := c.CreateUser(client.CreateUserRequest{
					Username: args[0],
					Password: password,
					Role:     role,
				})
				if err != nil {
					return err
				}
				rt.printf("✓ Created %s (%s), id %s\n", user.Username, user.Role, user.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "Initial password (6 to 32 characters)")
	cmd.Flags().StringVar(&role, "role", "user", "Role: user or admin")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newUsersDeleteCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.guarded(userManagePath, func(_ *target, c *client.Client) error {
				if err := c.DeleteUser(args[0]); err != nil {
					return err
				}
				rt.printf("✓ Deleted user %s\n", args[0])
				return nil
			})
		},
	}
}

func newUsersResetPasswordCmd(rt *Runtime) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "reset-password <id>",
		Short: "Set a new password for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.guarded(userManagePath, func(_ *target, c *client.Client) error {
				if err := c.ResetPassword(args[0], password); err != nil {
					return err
				}
				rt.printf("✓ Password reset for %s\n", args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "New password (6 to 32 characters)")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
