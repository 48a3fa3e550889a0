package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rootword-dev/rootword/internal/cli/client"
	"github.com/rootword-dev/rootword/internal/ddl"
	"github.com/rootword-dev/rootword/internal/pgclient"
)

const ddlCheckPath = "/root-word/ddl-check"

// NewDDLCmd creates the ddl command group
func NewDDLCmd(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ddl",
		Short: "Check or rewrite CREATE TABLE statements against the dictionary",
	}
	cmd.AddCommand(newDDLCheckCmd(rt), newDDLReplaceCmd(rt))
	return cmd
}

func newDDLCheckCmd(rt *Runtime) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Report columns that do not follow the root word dictionary",
		Long:  "Reads the statement from file, or from stdin when file is omitted or '-'.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			statement, err := readStatement(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			return rt.guarded(ddlCheckPath, func(_ *target, c *client.Client) error {
				result, err := c.CheckDDL(statement)
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(rt.Out)
					enc.SetIndent("", "  ")
					return enc.Encode(result)
				}
				rt.printCheckResult(result)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw report as JSON")
	return cmd
}

func newDDLReplaceCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "replace [file]",
		Short: "Rewrite column types to their standard types",
		Long:  "Reads the statement from file, or from stdin when file is omitted or '-'.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			statement, err := readStatement(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			return rt.guarded(ddlCheckPath, func(_ *target, c *client.Client) error {
				result, err := c.ReplaceDDL(statement)
				if err != nil {
					return err
				}
				rt.printf("%s\n", strings.TrimRight(result.DDL, "\n"))
				return nil
			})
		},
	}
}

func readStatement(stdin io.Reader, args []string) (string, error) {
	var data []byte
	var err error
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("failed to read DDL: %w", err)
	}

	statement := strings.TrimSpace(string(data))
	if statement == "" {
		return "", fmt.Errorf("DDL is empty")
	}
	return statement, nil
}

func (rt *Runtime) printCheckResult(result *ddl.CheckResult) {
	rt.printf("Engine: %s, %d columns\n\n", result.Engine, len(result.Parsed))

	if len(result.NonCompliant) == 0 && len(result.Missing) == 0 {
		rt.printf("✓ All columns follow the dictionary\n")
		return
	}

	if len(result.NonCompliant) > 0 {
		rt.printf("Non-compliant columns:\n")
		w := tabwriter.NewWriter(rt.Out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "COLUMN\tTYPE\tSTANDARD\tREASON")
		for _, f := range result.NonCompliant {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.FieldName, f.FieldType, f.StandardType, f.Reason)
		}
		w.Flush()
		rt.printf("\n")
	}

	if len(result.Missing) > 0 {
		rt.printf("Missing root words (apply with 'rootword apply <name>'):\n")
		w := tabwriter.NewWriter(rt.Out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSUGGESTED TYPE\tCOMMENT")
		for _, m := range result.Missing {
			fmt.Fprintf(w, "%s\t%s\t%s\n", m.WordName, m.SuggestedType, m.FieldComment)
		}
		w.Flush()
	}
}

// NewScanCmd creates the scan command
func NewScanCmd(rt *Runtime) *cobra.Command {
	var dsn, schema string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Check every table of a live PostgreSQL schema against the dictionary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.guarded(ddlCheckPath, func(t *target, c *client.Client) error {
				if t.cfg.Scan != nil {
					if dsn == "" {
						dsn = t.cfg.Scan.DSN
					}
					if !cmd.Flags().Changed("schema") && t.cfg.Scan.Schema != "" {
						schema = t.cfg.Scan.Schema
					}
				}
				if dsn == "" {
					dsn = os.Getenv("ROOTWORD_SCAN_DSN")
				}
				if dsn == "" {
					return fmt.Errorf("a connection string is required (use --dsn, ROOTWORD_SCAN_DSN or scan.dsn in rootword.json)")
				}

				return rt.runScan(cmd.Context(), c, dsn, schema, timeout)
			})
		},
	}

	cmd.Flags().StringVar(&dsn, "dsn", "", "PostgreSQL connection string")
	cmd.Flags().StringVar(&schema, "schema", "public", "Schema to scan")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Timeout for reading the schema")

	return cmd
}

func (rt *Runtime) runScan(parent context.Context, c *client.Client, dsn, schema string, timeout time.Duration) error {
	if parent == nil {
		parent = context.Background()
	}

	db, err := pgclient.NewClient(dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := pgclient.WithTimeout(parent, timeout)
	defer cancel()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if version, err := db.GetVersion(ctx); err == nil {
		rt.Logger.Debug().Str("version", version).Msg("Connected to PostgreSQL")
	}

	tables, err := db.GetSchema(ctx, schema)
	if err != nil {
		return err
	}
	if len(tables) == 0 {
		rt.printf("No tables found in schema %s\n", schema)
		return nil
	}

	var compliant, nonCompliant, missing int
	w := tabwriter.NewWriter(rt.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tCOLUMN\tTYPE\tRESULT")
	for _, table := range tables {
		result, err := c.CheckDDL(table.DDL())
		if err != nil {
			return fmt.Errorf("failed to check table %s: %w", table.Table, err)
		}

		for _, f := range result.NonCompliant {
			if f.Reason == ddl.ReasonTypeMismatch {
				nonCompliant++
				fmt.Fprintf(w, "%s\t%s\t%s\t%s (standard %s)\n", table.Table, f.FieldName, f.FieldType, f.Reason, f.StandardType)
				continue
			}
			missing++
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", table.Table, f.FieldName, f.FieldType, f.Reason)
		}
		compliant += len(result.Compliant)
	}
	w.Flush()

	rt.printf("\n%d tables: %d compliant, %d non-compliant, %d without a root word\n",
		len(tables), compliant, nonCompliant, missing)
	return nil
}
