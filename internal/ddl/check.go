package ddl

import (
	"strings"
)

// Standard is the dictionary entry a column is checked against
type Standard struct {
	WordName       string
	MySQLType      string
	DorisType      string
	ClickHouseType string
	Remark         *string
}

// TypeFor returns the standard type for engine
func (s Standard) TypeFor(engine Engine) string {
	switch engine {
	case EngineDoris:
		return s.DorisType
	case EngineClickHouse:
		return s.ClickHouseType
	default:
		return s.MySQLType
	}
}

// Dictionary looks up effective root words by exact name
type Dictionary interface {
	Lookup(name string) (Standard, bool)
}

// Mismatch reasons
const (
	ReasonTypeMismatch = "type mismatch"
	ReasonNotFound     = "root word not found"
)

// FieldResult is the outcome of checking one column
type FieldResult struct {
	FieldName    string  `json:"field_name"`
	FieldType    string  `json:"field_type"`
	FieldComment string  `json:"field_comment"`
	RootWord     string  `json:"root_word,omitempty"`
	StandardType string  `json:"standard_type,omitempty"`
	Remark       *string `json:"remark,omitempty"`
	Reason       string  `json:"reason,omitempty"`
}

// MissingRootWord is a column name with no dictionary entry
type MissingRootWord struct {
	WordName      string `json:"word_name"`
	SuggestedType string `json:"suggested_type"`
	FieldComment  string `json:"field_comment"`
}

// CheckResult is the full report for one DDL statement
type CheckResult struct {
	Compliant    []FieldResult     `json:"compliant_fields"`
	NonCompliant []FieldResult     `json:"non_compliant_fields"`
	Missing      []MissingRootWord `json:"missing_root_words"`
	Engine       Engine            `json:"database_engine"`
	Parsed       []Field           `json:"parsed_fields"`
	Trace        []string          `json:"debug_info"`
}

// Check validates every column of ddl against dict. A column is compliant
// when a root word with the same name exists and its standard type for the
// detected engine matches case-insensitively.
func Check(ddl string, dict Dictionary) CheckResult {
	engine := DetectEngine(ddl)
	fields, trace := ExtractFields(ddl)

	result := CheckResult{
		Compliant:    []FieldResult{},
		NonCompliant: []FieldResult{},
		Missing:      []MissingRootWord{},
		Engine:       engine,
		Parsed:       fields,
		Trace:        trace,
	}
	if result.Parsed == nil {
		result.Parsed = []Field{}
	}

	seenMissing := make(map[string]bool)
	for _, f := range fields {
		std, ok := dict.Lookup(f.Name)
		if !ok {
			if !seenMissing[f.Name] {
				seenMissing[f.Name] = true
				result.Missing = append(result.Missing, MissingRootWord{
					WordName:      f.Name,
					SuggestedType: f.Type,
					FieldComment:  f.Comment,
				})
			}
			result.NonCompliant = append(result.NonCompliant, FieldResult{
				FieldName:    f.Name,
				FieldType:    f.Type,
				FieldComment: f.Comment,
				Reason:       ReasonNotFound,
			})
			continue
		}

		fr := FieldResult{
			FieldName:    f.Name,
			FieldType:    f.Type,
			FieldComment: f.Comment,
			RootWord:     std.WordName,
			StandardType: std.TypeFor(engine),
			Remark:       std.Remark,
		}
		if strings.EqualFold(f.Type, fr.StandardType) {
			result.Compliant = append(result.Compliant, fr)
		} else {
			fr.Reason = ReasonTypeMismatch
			result.NonCompliant = append(result.NonCompliant, fr)
		}
	}

	return result
}

// ReplaceResult is the rewritten DDL
type ReplaceResult struct {
	DDL    string `json:"replaced_ddl"`
	Engine Engine `json:"database_engine"`
}

// Replace rewrites column types to their standard type. Each column name is
// split on underscores and the first part found in dict supplies the type.
func Replace(ddl string, dict Dictionary) ReplaceResult {
	engine := DetectEngine(ddl)
	fields, _ := ExtractFields(ddl)

	out := ddl
	for _, f := range fields {
		for _, part := range strings.Split(f.Name, "_") {
			if part == "" {
				continue
			}
			std, ok := dict.Lookup(part)
			if !ok {
				continue
			}
			newType := std.TypeFor(engine)
			out = strings.ReplaceAll(out, f.Name+" "+f.Type, f.Name+" "+newType)
			out = strings.ReplaceAll(out, "`"+f.Name+"` "+f.Type, "`"+f.Name+"` "+newType)
			break
		}
	}

	return ReplaceResult{DDL: out, Engine: engine}
}
