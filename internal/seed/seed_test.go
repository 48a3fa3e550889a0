package seed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferTypes(t *testing.T) {
	tests := []struct {
		word                     string
		mysql, doris, clickhouse string
	}{
		{"user_id", "bigint", "bigint", "UInt64"},
		{"region_code", "bigint", "bigint", "UInt64"},
		{"nick_name", "varchar(255)", "varchar(255)", "String"},
		{"province", "varchar(255)", "varchar(255)", "String"},
		{"create_time", "datetime", "datetime", "DateTime"},
		{"order_amount", "bigint", "bigint", "UInt64"},
		{"click_rate", "bigint", "bigint", "UInt64"},
		{"remark", "varchar(255)", "varchar(255)", "String"},
	}

	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			mysql, doris, clickhouse := InferTypes(tt.word)
			assert.Equal(t, tt.mysql, mysql)
			assert.Equal(t, tt.doris, doris)
			assert.Equal(t, tt.clickhouse, clickhouse)
		})
	}
}

func TestParse_YAML(t *testing.T) {
	doc := `
root_words:
  - word_name: user_id
  - word_name: amount
    clickhouse_type: Decimal(18,2)
    remark: money in cents
  - word_name: user_id
`
	words, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, words, 2)

	assert.Equal(t, Word{WordName: "user_id", MySQLType: "bigint", DorisType: "bigint", ClickHouseType: "UInt64"}, words[0])
	assert.Equal(t, "Decimal(18,2)", words[1].ClickHouseType)
	assert.Equal(t, "bigint", words[1].MySQLType)
	require.NotNil(t, words[1].Remark)
	assert.Equal(t, "money in cents", *words[1].Remark)
}

func TestParse_JSON(t *testing.T) {
	words, err := Parse([]byte(`{"root_words": [{"word_name": "create_time", "mysql_type": "timestamp"}]}`))
	require.NoError(t, err)
	require.Len(t, words, 1)
	assert.Equal(t, "timestamp", words[0].MySQLType)
	assert.Equal(t, "DateTime", words[0].ClickHouseType)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("root_words: []"))
	require.ErrorIs(t, err, ErrEmpty)

	_, err = Parse([]byte("root_words:\n  - word_name: \"bad name\"\n"))
	require.Error(t, err)

	_, err = Parse([]byte("root_words: [\n"))
	require.Error(t, err)
}
