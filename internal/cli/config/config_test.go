package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	cfg := &Config{
		Servers: []Server{{Address: "http://10.0.0.1:8000", Alias: "staging"}},
		Landing: "/root-word/apply",
		Scan:    &ScanConfig{DSN: "postgres://localhost/app", Schema: "public"},
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("{"), 0644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestFindConfigFileFrom_WalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, Save(filepath.Join(root, ConfigFileName), DefaultConfig()))

	found, err := FindConfigFileFrom(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ConfigFileName), found)
}

func TestFindConfigFileFrom_NotFound(t *testing.T) {
	_, err := FindConfigFileFrom(t.TempDir())
	assert.ErrorContains(t, err, "rootword.json not found")
}

func TestServerLookup(t *testing.T) {
	cfg := &Config{Servers: []Server{
		{Address: "http://a:8000", Alias: "a"},
		{Address: "http://b:8000", Alias: "b"},
	}}

	s, err := cfg.GetServerByAlias("b")
	require.NoError(t, err)
	assert.Equal(t, "http://b:8000", s.Address)

	s, err = cfg.GetServerByAddress("http://a:8000")
	require.NoError(t, err)
	assert.Equal(t, "a", s.Alias)

	_, err = cfg.GetServerByAlias("c")
	assert.Error(t, err)

	s, err = cfg.GetDefaultServer()
	require.NoError(t, err)
	assert.Equal(t, "a", s.Alias)

	_, err = (&Config{}).GetDefaultServer()
	assert.Error(t, err)
}
