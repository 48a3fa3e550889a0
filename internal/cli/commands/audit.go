package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rootword-dev/rootword/internal/cli/client"
	"github.com/rootword-dev/rootword/internal/seed"
)

const auditPath = "/root-word/audit"

// NewAuditCmd creates the audit command
func NewAuditCmd(rt *Runtime) *cobra.Command {
	var approve, reject bool
	var remark string

	cmd := &cobra.Command{
		Use:   "audit <id>",
		Short: "Approve or reject a pending root word",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if approve == reject {
				return fmt.Errorf("exactly one of --approve or --reject is required")
			}

			req := client.AuditRequest{WordID: args[0], AuditResult: 1}
			if reject {
				req.AuditResult = 2
			}
			if cmd.Flags().Changed("remark") {
				req.AuditRemark = &remark
			}

			return rt.guarded(auditPath, func(_ *target, c *client.Client) error {
				word, err := c.AuditRootWord(req)
				if err != nil {
					return err
				}
				if approve {
					rt.printf("✓ Approved %s, now %s\n", word.WordName, word.Status)
				} else {
					rt.printf("✓ Rejected %s\n", word.WordName)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&approve, "approve", false, "Approve the root word")
	cmd.Flags().BoolVar(&reject, "reject", false, "Reject the root word")
	cmd.Flags().StringVar(&remark, "remark", "", "Audit remark")

	return cmd
}

// newAdminIDCmd builds the single-argument admin commands
func newAdminIDCmd(rt *Runtime, use, short, done string, call func(c *client.Client, id string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.guarded(auditPath, func(_ *target, c *client.Client) error {
				if err := call(c, args[0]); err != nil {
					return err
				}
				rt.printf("✓ %s %s\n", done, args[0])
				return nil
			})
		},
	}
}

// NewDiscardCmd creates the discard command
func NewDiscardCmd(rt *Runtime) *cobra.Command {
	return newAdminIDCmd(rt, "discard", "Discard an effective root word", "Discarded",
		(*client.Client).DiscardRootWord)
}

// NewRecoverCmd creates the recover command
func NewRecoverCmd(rt *Runtime) *cobra.Command {
	return newAdminIDCmd(rt, "recover", "Make a discarded root word effective again", "Recovered",
		(*client.Client).RecoverRootWord)
}

// NewForceDeleteCmd creates the force-delete command
func NewForceDeleteCmd(rt *Runtime) *cobra.Command {
	return newAdminIDCmd(rt, "force-delete", "Delete a root word in any status", "Deleted",
		(*client.Client).ForceDeleteRootWord)
}

// NewEditCmd creates the edit command
func NewEditCmd(rt *Runtime) *cobra.Command {
	var name, mysqlType, dorisType, clickhouseType, remark string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a root word",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := client.UpdateRootWordRequest{ID: args[0]}
			changed := 0
			set := func(flag string, value *string, field **string) {
				if cmd.Flags().Changed(flag) {
					*field = value
					changed++
				}
			}
			set("name", &name, &req.WordName)
			set("mysql", &mysqlType, &req.MySQLType)
			set("doris", &dorisType, &req.DorisType)
			set("clickhouse", &clickhouseType, &req.ClickHouseType)
			set("remark", &remark, &req.Remark)

			if changed == 0 {
				return fmt.Errorf("nothing to change, pass at least one of --name, --mysql, --doris, --clickhouse or --remark")
			}

			return rt.guarded(auditPath, func(_ *target, c *client.Client) error {
				word, err := c.UpdateRootWord(req)
				if err != nil {
					return err
				}
				rt.printf("✓ Updated %s\n", word.WordName)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New word name")
	cmd.Flags().StringVar(&mysqlType, "mysql", "", "MySQL type")
	cmd.Flags().StringVar(&dorisType, "doris", "", "Doris type")
	cmd.Flags().StringVar(&clickhouseType, "clickhouse", "", "ClickHouse type")
	cmd.Flags().StringVar(&remark, "remark", "", "Remark")

	return cmd
}

// NewImportCmd creates the import command
func NewImportCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a YAML or JSON seed document of effective root words",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read seed file: %w", err)
			}

			// Fail before uploading when the document is unusable
			words, err := seed.Parse(data)
			if err != nil {
				return err
			}

			contentType := "application/json"
			switch strings.ToLower(filepath.Ext(args[0])) {
			case ".yaml", ".yml":
				contentType = "application/x-yaml"
			}

			return rt.guarded(auditPath, func(_ *target, c *client.Client) error {
				resp, err := c.ImportRootWords(data, contentType)
				if err != nil {
					return err
				}
				rt.printf("✓ Queued import of %d root words (task %s)\n", len(words), resp.TaskID)
				return nil
			})
		},
	}
}
