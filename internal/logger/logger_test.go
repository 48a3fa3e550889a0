package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLogLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, parseLogLevel("warning"))
	assert.Equal(t, zerolog.ErrorLevel, parseLogLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, parseLogLevel("nonsense"))
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "json")

	l.Warn().Str("component", "dictionary").Msg("refreshed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "dictionary", entry["component"])
	assert.Equal(t, "refreshed", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestNewCLI_Level(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, NewCLI(false).GetLevel())
	assert.Equal(t, zerolog.DebugLevel, NewCLI(true).GetLevel())
}
