// Package ddl extracts column definitions from CREATE TABLE statements and
// checks them against the root word dictionary.
package ddl

import (
	"fmt"
	"regexp"
	"strings"
)

// Engine is the database dialect a DDL statement targets
type Engine string

const (
	EngineMySQL      Engine = "mysql"
	EngineDoris      Engine = "doris"
	EngineClickHouse Engine = "clickhouse"
)

// Field is a column parsed from a DDL statement
type Field struct {
	Name    string `json:"field_name"`
	Type    string `json:"field_type"`
	Comment string `json:"field_comment"`
}

var (
	lineCommentRe   = regexp.MustCompile(`(?m)--.*$`)
	blockCommentRe  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	tableBodyRe     = regexp.MustCompile("(?is)create\\s+table\\s+(?:`?[^`(]+`?\\s*)\\((.*)")
	looseBodyRe     = regexp.MustCompile(`(?is)create\s+table\s+.*\((.*)`)
	columnCommentRe = regexp.MustCompile("(?i)\\s+COMMENT\\s+(?:'([^']*)'|\"([^\"]*)\"|`([^`]*)`)")
	fieldRe         = regexp.MustCompile("(?i)^`?([a-zA-Z_][a-zA-Z0-9_]*)`?\\s+(Nullable\\()?([a-zA-Z][a-zA-Z0-9_]*(?:\\([^)]*\\))?)(\\))?")
	constraintRe    = regexp.MustCompile("(?i)^(primary\\s+key|unique|foreign\\s+key|key|index|constraint)(\\s|\\(|`|$)")

	tableEndRes = func() []*regexp.Regexp {
		keywords := []string{`ENGINE`, `PARTITION\s+BY`, `ORDER\s+BY`, `SETTINGS`, `DISTRIBUTED\s+BY`}
		res := make([]*regexp.Regexp, len(keywords))
		for i, kw := range keywords {
			res[i] = regexp.MustCompile(`(?i)\s*\)\s*` + kw)
		}
		return res
	}()
)

// DetectEngine guesses the target engine from engine-specific keywords.
// MySQL is the fallback.
func DetectEngine(ddl string) Engine {
	lower := strings.ToLower(ddl)

	switch {
	case strings.Contains(lower, "replacingmergetree"),
		strings.Contains(lower, "mergetree("),
		strings.Contains(lower, "summingmergetree"):
		return EngineClickHouse
	case strings.Contains(lower, "doris"),
		strings.Contains(lower, "duplicate key"),
		strings.Contains(lower, "engine = olap"),
		strings.Contains(lower, "distributed by"):
		return EngineDoris
	default:
		return EngineMySQL
	}
}

// ExtractFields returns the column definitions of the first CREATE TABLE
// statement in ddl, along with a trace of the extraction steps.
func ExtractFields(ddl string) ([]Field, []string) {
	var (
		fields []Field
		trace  []string
	)

	clean := lineCommentRe.ReplaceAllString(ddl, "")
	clean = blockCommentRe.ReplaceAllString(clean, "")
	clean = strings.TrimSpace(clean)
	trace = append(trace, fmt.Sprintf("cleaned ddl length: %d", len(clean)))

	m := tableBodyRe.FindStringSubmatch(clean)
	if m == nil {
		trace = append(trace, "no CREATE TABLE statement matched, trying loose match")
		m = looseBodyRe.FindStringSubmatch(clean)
	}
	if m == nil {
		trace = append(trace, "could not extract table body")
		return nil, trace
	}

	body := m[1]
	trace = append(trace, fmt.Sprintf("table body length: %d", len(body)))

	end := len(body)
	for _, re := range tableEndRes {
		if loc := re.FindStringIndex(body); loc != nil && loc[0] < end {
			end = loc[0]
		}
	}
	if end < len(body) {
		body = body[:end]
		trace = append(trace, fmt.Sprintf("truncated before table options, length: %d", len(body)))
	}

	defs := splitTopLevel(body)
	trace = append(trace, fmt.Sprintf("split into %d definitions", len(defs)))

	for i, def := range defs {
		preview := def
		if len(preview) > 50 {
			preview = preview[:50] + "..."
		}
		trace = append(trace, fmt.Sprintf("definition %d: %s", i+1, preview))

		if constraintRe.MatchString(def) {
			trace = append(trace, "  skipped constraint")
			continue
		}

		field, ok := parseField(def)
		if !ok {
			trace = append(trace, "  no column name and type matched")
			continue
		}
		fields = append(fields, field)
		trace = append(trace, fmt.Sprintf("  matched %s %s", field.Name, field.Type))
	}

	return fields, trace
}

// splitTopLevel splits a column list on commas outside parentheses
func splitTopLevel(body string) []string {
	var (
		defs    []string
		current strings.Builder
		depth   int
	)

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			defs = append(defs, s)
		}
		current.Reset()
	}

	for _, r := range body {
		switch {
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case r == ',' && depth == 0:
			flush()
			continue
		}
		current.WriteRune(r)
	}
	flush()

	return defs
}

func parseField(def string) (Field, bool) {
	var comment string
	if m := columnCommentRe.FindStringSubmatch(def); m != nil {
		comment = m[1] + m[2] + m[3]
	}
	withoutComment := columnCommentRe.ReplaceAllString(def, "")

	m := fieldRe.FindStringSubmatch(withoutComment)
	if m == nil {
		return Field{}, false
	}

	fieldType := m[3]
	if m[2] != "" {
		fieldType = m[2] + m[3] + m[4]
	}

	return Field{Name: m[1], Type: fieldType, Comment: comment}, true
}
