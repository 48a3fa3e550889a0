package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rootword-dev/rootword/internal/cli/client"
	"github.com/rootword-dev/rootword/internal/seed"
)

// NewListCmd creates the ls command
func NewListCmd(rt *Runtime) *cobra.Command {
	var req client.ListRootWordsRequest

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List root words",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.guarded("/root-word/list", func(_ *target, c *client.Client) error {
				return rt.listRootWords(c, req)
			})
		},
	}

	cmd.Flags().IntVar(&req.PageNum, "page", 1, "Page number")
	cmd.Flags().IntVar(&req.PageSize, "size", 10, "Page size (max 100)")
	cmd.Flags().StringVar(&req.WordName, "name", "", "Filter by word name (substring)")
	cmd.Flags().StringVar(&req.Status, "status", "", "Filter by status: pending_audit, effective or discarded")
	cmd.Flags().StringVar(&req.ApplyUser, "user", "", "Filter by applicant")

	return cmd
}

// NewApplyCmd creates the apply command
func NewApplyCmd(rt *Runtime) *cobra.Command {
	var mysqlType, dorisType, clickhouseType, remark string

	cmd := &cobra.Command{
		Use:   "apply <word-name>",
		Short: "Submit a root word for audit",
		Long: `Submit a root word for audit.

Types that are not given are inferred from the word name, e.g. *_id becomes
bigint and *_time becomes datetime.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wordName := args[0]

			inferredMySQL, inferredDoris, inferredClickHouse := seed.InferTypes(wordName)
			req := client.ApplyRootWordRequest{
				WordName:       wordName,
				MySQLType:      firstNonEmpty(mysqlType, inferredMySQL),
				DorisType:      firstNonEmpty(dorisType, inferredDoris),
				ClickHouseType: firstNonEmpty(clickhouseType, inferredClickHouse),
			}
			if cmd.Flags().Changed("remark") {
				req.Remark = &remark
			}

			return rt.guarded("/root-word/apply", func(_ *target, c *client.Client) error {
				word, err := c.ApplyRootWord(req)
				if err != nil {
					return err
				}
				rt.printf("✓ Submitted %s for audit (id %s)\n", word.WordName, word.ID)
				rt.printf("  mysql: %s  doris: %s  clickhouse: %s\n", word.MySQLType, word.DorisType, word.ClickHouseType)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&mysqlType, "mysql", "", "MySQL type")
	cmd.Flags().StringVar(&dorisType, "doris", "", "Doris type")
	cmd.Flags().StringVar(&clickhouseType, "clickhouse", "", "ClickHouse type")
	cmd.Flags().StringVar(&remark, "remark", "", "Remark")

	return cmd
}

// NewDeleteCmd creates the delete command
func NewDeleteCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one of your root words that is still pending audit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.guarded("/root-word/apply", func(_ *target, c *client.Client) error {
				if err := c.DeletePendingRootWord(args[0]); err != nil {
					return err
				}
				rt.printf("✓ Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

// NewLogsCmd creates the logs command
func NewLogsCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logs <id>",
		Short: "Show the operation log of a root word",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.guarded("/root-word/list", func(_ *target, c *client.Client) error {
				logs, err := c.RootWordLogs(args[0])
				if err != nil {
					return err
				}
				if len(logs) == 0 {
					rt.printf("No operations recorded.\n")
					return nil
				}

				w := tabwriter.NewWriter(rt.Out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "TIME\tTYPE\tUSER\tCONTENT")
				fmt.Fprintln(w, "────\t────\t────\t───────")
				for _, entry := range logs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
						entry.CreatedAt.Format("2006-01-02 15:04:05"),
						entry.OperationType,
						entry.OperationUser,
						entry.OperationContent,
					)
				}
				return w.Flush()
			})
		},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
