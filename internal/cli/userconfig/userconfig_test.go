package userconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	return dir
}

func TestSelectedServer(t *testing.T) {
	dir := useTempDir(t)

	path, err := Path()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.json"), path)

	selected, err := SelectedServer()
	require.NoError(t, err)
	assert.Empty(t, selected)

	require.NoError(t, SelectServer("http://10.0.0.1:8000"))

	selected, err = SelectedServer()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.1:8000", selected)

	require.NoError(t, SelectServer(""))
	selected, err = SelectedServer()
	require.NoError(t, err)
	assert.Empty(t, selected)
}

func TestPreferencesArePerServer(t *testing.T) {
	useTempDir(t)

	require.NoError(t, RememberUsername("http://a:8000", "alice"))
	require.NoError(t, SetLanding("http://a:8000", "/root-word/apply"))
	require.NoError(t, RememberUsername("http://b:8000", "bob"))

	a, err := PreferencesFor("http://a:8000")
	require.NoError(t, err)
	assert.Equal(t, Preferences{LastUsername: "alice", Landing: "/root-word/apply"}, a)

	b, err := PreferencesFor("http://b:8000")
	require.NoError(t, err)
	assert.Equal(t, Preferences{LastUsername: "bob"}, b)

	none, err := PreferencesFor("http://c:8000")
	require.NoError(t, err)
	assert.Equal(t, Preferences{}, none)
}

func TestClearingPreferencesDropsTheServer(t *testing.T) {
	useTempDir(t)

	require.NoError(t, SetLanding("http://a:8000", "/root-word/apply"))
	require.NoError(t, SetLanding("http://a:8000", ""))

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotContains(t, cfg.Servers, "http://a:8000")
}

func TestSelectionKeepsPreferences(t *testing.T) {
	useTempDir(t)

	require.NoError(t, RememberUsername("http://a:8000", "alice"))
	require.NoError(t, SelectServer("http://a:8000"))

	p, err := PreferencesFor("http://a:8000")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.LastUsername)
}

func TestLoad_Malformed(t *testing.T) {
	dir := useTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{nope"), 0o600))

	_, err := Load()
	require.ErrorContains(t, err, "failed to parse user config file")

	_, err = PreferencesFor("http://a:8000")
	require.Error(t, err)
}

func TestSave_NoTempFileLeft(t *testing.T) {
	dir := useTempDir(t)
	require.NoError(t, SelectServer("http://a:8000"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "config.json", entries[0].Name())
}
