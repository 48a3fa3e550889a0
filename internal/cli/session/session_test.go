package session

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/rootword-dev/rootword/internal/guard"
)

func newStore(t *testing.T) *KeyringStore {
	t.Helper()
	keyring.MockInit()
	return NewKeyringStore("http://localhost:8000")
}

func TestLoad_Empty(t *testing.T) {
	s := Load(newStore(t), zerolog.Nop())

	assert.False(t, s.Authenticated())
	assert.Nil(t, s.User)
}

func TestSaveAndLoad(t *testing.T) {
	store := newStore(t)

	require.NoError(t, Save(store, "tok", UserRecord{ID: "1", Username: "alice", Role: "admin"}))

	s := Load(store, zerolog.Nop())
	assert.Equal(t, "tok", s.Token)
	require.NotNil(t, s.User)
	assert.Equal(t, "alice", s.User.Username)
	assert.Equal(t, guard.RoleAdmin, s.User.Role)
}

func TestLoad_MemberRole(t *testing.T) {
	store := newStore(t)
	require.NoError(t, Save(store, "tok", UserRecord{ID: "2", Username: "bob", Role: "user"}))

	s := Load(store, zerolog.Nop())
	require.NotNil(t, s.User)
	assert.Equal(t, guard.RoleMember, s.User.Role)
}

func TestLoad_MalformedUser(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Set(KeyToken, "tok"))
	require.NoError(t, store.Set(KeyUser, "{not json"))

	s := Load(store, zerolog.Nop())
	assert.True(t, s.Authenticated())
	assert.Nil(t, s.User)
}

func TestLoad_NullUser(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Set(KeyToken, "tok"))
	require.NoError(t, store.Set(KeyUser, "null"))

	s := Load(store, zerolog.Nop())
	assert.True(t, s.Authenticated())
	assert.Nil(t, s.User)
}

func TestLoad_NonAdminRolesAreRestricted(t *testing.T) {
	router, err := guard.NewRouter(guard.New(), guard.DefaultRoutes())
	require.NoError(t, err)

	records := []string{
		`{"id":"3","username":"eve","role":"editor"}`,
		`{"username":"x"}`,
		`{"id":"4","username":"mallory","role":"ADMIN"}`,
		`{"id":"5","username":"trent","role":" admin"}`,
		`{"id":"6","username":"peggy","role":"Admin"}`,
	}
	for _, rec := range records {
		t.Run(rec, func(t *testing.T) {
			store := newStore(t)
			require.NoError(t, store.Set(KeyToken, "abc123"))
			require.NoError(t, store.Set(KeyUser, rec))

			s := Load(store, zerolog.Nop())
			require.NotNil(t, s.User)
			assert.Equal(t, guard.RoleMember, s.User.Role)

			_, out := router.Navigate("/root-word/audit", s)
			assert.Equal(t, guard.RedirectRestricted, out.Decision)
			assert.Equal(t, guard.DefaultLandingPath, out.Target)
		})
	}
}

func TestLoad_UserWithoutToken(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Set(KeyUser, `{"id":"1","username":"alice","role":"admin"}`))

	s := Load(store, zerolog.Nop())
	assert.False(t, s.Authenticated())

	// The guard never looks at the user without a token.
	router, err := guard.NewRouter(guard.New(), guard.DefaultRoutes())
	require.NoError(t, err)
	_, out := router.Navigate("/root-word/audit", s)
	assert.Equal(t, guard.RedirectLogin, out.Decision)
}

func TestClear(t *testing.T) {
	store := newStore(t)
	require.NoError(t, Save(store, "tok", UserRecord{ID: "1", Username: "alice", Role: "admin"}))

	require.NoError(t, Clear(store))
	require.NoError(t, Clear(store))

	s := Load(store, zerolog.Nop())
	assert.False(t, s.Authenticated())
	assert.Nil(t, s.User)
}

func TestStoresAreScopedPerServer(t *testing.T) {
	keyring.MockInit()
	a := NewKeyringStore("http://a:8000")
	b := NewKeyringStore("http://b:8000")

	require.NoError(t, a.Set(KeyToken, "token-a"))

	_, ok := b.Get(KeyToken)
	assert.False(t, ok)
	v, ok := a.Get(KeyToken)
	assert.True(t, ok)
	assert.Equal(t, "token-a", v)
}
