// Package seed reads root word seed documents and fills in missing types.
package seed

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrEmpty is returned for documents without any root words
var ErrEmpty = errors.New("seed document contains no root words")

var wordNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Word is one seed entry
type Word struct {
	WordName       string  `yaml:"word_name" json:"word_name"`
	MySQLType      string  `yaml:"mysql_type,omitempty" json:"mysql_type,omitempty"`
	DorisType      string  `yaml:"doris_type,omitempty" json:"doris_type,omitempty"`
	ClickHouseType string  `yaml:"clickhouse_type,omitempty" json:"clickhouse_type,omitempty"`
	Remark         *string `yaml:"remark,omitempty" json:"remark,omitempty"`
}

// Document is a seed file
type Document struct {
	RootWords []Word `yaml:"root_words" json:"root_words"`
}

// Parse decodes a YAML or JSON seed document, validates names and infers
// any missing types. Duplicate names keep their first occurrence.
func Parse(data []byte) ([]Word, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse seed document: %w", err)
	}
	if len(doc.RootWords) == 0 {
		return nil, ErrEmpty
	}

	seen := make(map[string]bool, len(doc.RootWords))
	words := make([]Word, 0, len(doc.RootWords))
	for i, w := range doc.RootWords {
		w.WordName = strings.TrimSpace(w.WordName)
		if !wordNameRe.MatchString(w.WordName) || len(w.WordName) > 64 {
			return nil, fmt.Errorf("root word %d: invalid word_name %q", i+1, w.WordName)
		}
		if seen[w.WordName] {
			continue
		}
		seen[w.WordName] = true

		mysql, doris, clickhouse := InferTypes(w.WordName)
		if w.MySQLType == "" {
			w.MySQLType = mysql
		}
		if w.DorisType == "" {
			w.DorisType = doris
		}
		if w.ClickHouseType == "" {
			w.ClickHouseType = clickhouse
		}
		words = append(words, w)
	}

	return words, nil
}

type typeRule struct {
	keywords                     []string
	mysql, doris, clickhouseType string
}

var typeRules = []typeRule{
	{[]string{"id", "code"}, "bigint", "bigint", "UInt64"},
	{[]string{"name", "content", "province", "type"}, "varchar(255)", "varchar(255)", "String"},
	{[]string{"time", "date"}, "datetime", "datetime", "DateTime"},
	{[]string{"amount", "volume", "price", "quantity", "seconds", "level", "index", "rate", "cvr"}, "bigint", "bigint", "UInt64"},
}

// InferTypes guesses the standard types of a word from keywords in its name
func InferTypes(wordName string) (mysql, doris, clickhouse string) {
	lower := strings.ToLower(wordName)
	for _, rule := range typeRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.mysql, rule.doris, rule.clickhouseType
			}
		}
	}
	return "varchar(255)", "varchar(255)", "String"
}
