// Package session persists the CLI login state per server in the OS keyring
// and turns it into a guard.Session.
package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/zalando/go-keyring"

	"github.com/rootword-dev/rootword/internal/guard"
)

const (
	serviceName = "rootword-cli"

	KeyToken = "token"
	KeyUser  = "user"
)

// Store is a string key/value store that survives process restarts
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
}

// KeyringStore keeps entries for a single server in the OS keyring
type KeyringStore struct {
	server string
}

// NewKeyringStore returns a store scoped to server
func NewKeyringStore(server string) *KeyringStore {
	return &KeyringStore{server: server}
}

func (k *KeyringStore) account(key string) string {
	return k.server + ":" + key
}

// Get returns the value stored under key. Missing entries and keyring
// failures both report false.
func (k *KeyringStore) Get(key string) (string, bool) {
	value, err := keyring.Get(serviceName, k.account(key))
	if err != nil {
		return "", false
	}
	return value, true
}

// Set stores value under key
func (k *KeyringStore) Set(key, value string) error {
	if err := keyring.Set(serviceName, k.account(key), value); err != nil {
		return fmt.Errorf("failed to save %s to keyring: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing entry is not an error.
func (k *KeyringStore) Delete(key string) error {
	if err := keyring.Delete(serviceName, k.account(key)); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete %s from keyring: %w", key, err)
	}
	return nil
}

// UserRecord is the JSON form of the logged in user
type UserRecord struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Load reads the session once. A user record that is missing or cannot be
// decoded yields a nil User. A decoded record whose role is not exactly
// "admin" is kept as a member.
func Load(store Store, logger zerolog.Logger) guard.Session {
	var s guard.Session

	s.Token, _ = store.Get(KeyToken)

	raw, ok := store.Get(KeyUser)
	if !ok || raw == "" {
		return s
	}

	var rec *UserRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		logger.Debug().Err(err).Msg("Discarding malformed user record")
		return s
	}
	if rec == nil {
		logger.Debug().Msg("Discarding null user record")
		return s
	}

	role, err := guard.ParseRole(rec.Role)
	if err != nil {
		logger.Debug().Err(err).Msg("Treating user record as non-admin")
	}

	s.User = &guard.User{ID: rec.ID, Username: rec.Username, Role: role}
	return s
}

// Save writes the token and the user record after a successful login
func Save(store Store, token string, user UserRecord) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user record: %w", err)
	}
	if err := store.Set(KeyToken, token); err != nil {
		return err
	}
	return store.Set(KeyUser, string(data))
}

// Clear removes both entries
func Clear(store Store) error {
	if err := store.Delete(KeyToken); err != nil {
		return err
	}
	return store.Delete(KeyUser)
}
