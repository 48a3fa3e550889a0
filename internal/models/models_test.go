package models

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRootWordStatusValid(t *testing.T) {
	assert.True(t, StatusPendingAudit.Valid())
	assert.True(t, StatusEffective.Valid())
	assert.True(t, StatusDiscarded.Valid())
	assert.False(t, RootWordStatus("archived").Valid())
}

func TestBeforeCreateAssignsULID(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, AutoMigrate(db))

	u := &User{Username: "alice", PasswordHash: "x", Role: RoleUser}
	require.NoError(t, db.Create(u).Error)
	assert.Len(t, u.ID, 26)

	var found User
	require.NoError(t, FindByID(db, u.ID, &found))
	assert.Equal(t, "alice", found.Username)
	assert.False(t, found.IsAdmin())
}
