// Package userconfig keeps per-user CLI state outside the project: which
// server is selected and what the user prefers on each server.
package userconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	configDirName  = "rootword"
	configFileName = "config.json"

	// EnvConfigDir overrides the directory holding config.json
	EnvConfigDir = "ROOTWORD_CONFIG_DIR"
)

// Preferences are remembered per server address
type Preferences struct {
	// LastUsername is offered when login runs without --username
	LastUsername string `json:"last_username,omitempty"`
	// Landing replaces the project's landing view for this user
	Landing string `json:"landing,omitempty"`
}

func (p Preferences) empty() bool {
	return p == Preferences{}
}

// UserConfig is ~/.config/rootword/config.json
type UserConfig struct {
	SelectedServer string                 `json:"selected_server,omitempty"`
	Servers        map[string]Preferences `json:"servers,omitempty"`
}

// For returns the preferences stored for address
func (c *UserConfig) For(address string) Preferences {
	return c.Servers[address]
}

func (c *UserConfig) set(address string, p Preferences) {
	if p.empty() {
		delete(c.Servers, address)
		return
	}
	if c.Servers == nil {
		c.Servers = make(map[string]Preferences)
	}
	c.Servers[address] = p
}

// Path returns the location of the user config file
func Path() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return filepath.Join(dir, configFileName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", configDirName, configFileName), nil
}

// Load reads the user config. A missing file is an empty config.
func Load() (*UserConfig, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &UserConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user config file: %w", err)
	}

	var cfg UserConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config file %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes cfg through a temporary file so a crash never leaves it half written
func Save(cfg *UserConfig) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace user config file: %w", err)
	}
	return nil
}

func update(fn func(cfg *UserConfig)) error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	fn(cfg)
	return Save(cfg)
}

// SelectServer stores address as the selected server. An empty address clears it.
func SelectServer(address string) error {
	return update(func(cfg *UserConfig) { cfg.SelectedServer = address })
}

// SelectedServer returns the selected server address, or "" if none is selected
func SelectedServer() (string, error) {
	cfg, err := Load()
	if err != nil {
		return "", err
	}
	return cfg.SelectedServer, nil
}

// PreferencesFor returns what the user stored for the server at address
func PreferencesFor(address string) (Preferences, error) {
	cfg, err := Load()
	if err != nil {
		return Preferences{}, err
	}
	return cfg.For(address), nil
}

// RememberUsername records the last user who logged in to address
func RememberUsername(address, username string) error {
	return update(func(cfg *UserConfig) {
		p := cfg.For(address)
		p.LastUsername = username
		cfg.set(address, p)
	})
}

// SetLanding stores the landing view for address. An empty path clears it.
func SetLanding(address, path string) error {
	return update(func(cfg *UserConfig) {
		p := cfg.For(address)
		p.Landing = path
		cfg.set(address, p)
	})
}
