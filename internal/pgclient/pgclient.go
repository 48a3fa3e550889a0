package pgclient

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Client wraps a PostgreSQL connection
type Client struct {
	db *sql.DB
}

// NewClient creates a new PostgreSQL client
func NewClient(connectionString string) (*Client, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	return &Client{db: db}, nil
}

// Close closes the database connection
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Ping tests the database connection
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// GetVersion retrieves the PostgreSQL version string
func (c *Client) GetVersion(ctx context.Context) (string, error) {
	var version string
	if err := c.db.QueryRowContext(ctx, "SHOW server_version").Scan(&version); err != nil {
		return "", fmt.Errorf("failed to query PostgreSQL version: %w", err)
	}
	return version, nil
}

// Column is a column of a scanned table
type Column struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Comment string `json:"comment,omitempty"`
}

// TableSchema represents a table and its columns
type TableSchema struct {
	Table   string   `json:"table"`
	Columns []Column `json:"columns"`
}

// GetSchema retrieves table and column information from schema. Tables are
// sorted by name and columns keep their ordinal order.
func (c *Client) GetSchema(ctx context.Context, schema string) ([]TableSchema, error) {
	if schema == "" {
		schema = "public"
	}

	query := `
		SELECT
			c.table_name,
			c.column_name,
			c.udt_name,
			c.character_maximum_length,
			c.numeric_precision,
			c.numeric_scale,
			COALESCE(col_description((quote_ident(c.table_schema) || '.' || quote_ident(c.table_name))::regclass, c.ordinal_position::int), '')
		FROM information_schema.columns c
		WHERE c.table_schema = $1
		ORDER BY c.table_name, c.ordinal_position
	`

	rows, err := c.db.QueryContext(ctx, query, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query database schema: %w", err)
	}
	defer rows.Close()

	schemaMap := make(map[string][]Column)
	for rows.Next() {
		var (
			tableName, columnName, udtName, comment string
			charLen, precision, scale               sql.NullInt64
		)
		if err := rows.Scan(&tableName, &columnName, &udtName, &charLen, &precision, &scale, &comment); err != nil {
			return nil, fmt.Errorf("failed to scan schema row: %w", err)
		}
		schemaMap[tableName] = append(schemaMap[tableName], Column{
			Name:    columnName,
			Type:    columnType(udtName, charLen, precision, scale),
			Comment: comment,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schema rows: %w", err)
	}

	tables := make([]TableSchema, 0, len(schemaMap))
	for tableName, columns := range schemaMap {
		tables = append(tables, TableSchema{Table: tableName, Columns: columns})
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Table < tables[j].Table })

	return tables, nil
}

func columnType(udtName string, charLen, precision, scale sql.NullInt64) string {
	switch {
	case charLen.Valid && charLen.Int64 > 0:
		return fmt.Sprintf("%s(%d)", udtName, charLen.Int64)
	case udtName == "numeric" && precision.Valid:
		return fmt.Sprintf("numeric(%d,%d)", precision.Int64, scale.Int64)
	default:
		return udtName
	}
}

// DDL renders the table as a CREATE TABLE statement the checker understands
func (t TableSchema) DDL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", t.Table)
	for i, col := range t.Columns {
		fmt.Fprintf(&b, "  %s %s", col.Name, col.Type)
		if col.Comment != "" {
			fmt.Fprintf(&b, " COMMENT '%s'", strings.ReplaceAll(col.Comment, "'", ""))
		}
		if i < len(t.Columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")
	return b.String()
}

// WithTimeout wraps a context with a timeout for database operations
func WithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, timeout)
}
