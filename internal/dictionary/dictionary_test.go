package dictionary

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rootword-dev/rootword/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	return db
}

func seedWord(t *testing.T, db *gorm.DB, name string, status models.RootWordStatus, deleted bool) {
	t.Helper()
	require.NoError(t, db.Create(&models.RootWord{
		WordName:       name,
		MySQLType:      "bigint",
		DorisType:      "bigint",
		ClickHouseType: "UInt64",
		Status:         status,
		ApplyUser:      "admin",
		ApplyTime:      time.Now(),
		Deleted:        deleted,
	}).Error)
}

func TestCache_OnlyEffectiveLiveWords(t *testing.T) {
	db := newTestDB(t)
	seedWord(t, db, "id", models.StatusEffective, false)
	seedWord(t, db, "code", models.StatusPendingAudit, false)
	seedWord(t, db, "amount", models.StatusDiscarded, false)
	seedWord(t, db, "price", models.StatusEffective, true)

	c := New(db, zerolog.Nop())
	dict, err := c.Snapshot(context.Background())
	require.NoError(t, err)

	std, ok := dict.Lookup("id")
	require.True(t, ok)
	assert.Equal(t, "UInt64", std.ClickHouseType)

	for _, name := range []string{"code", "amount", "price", "missing"} {
		_, ok := dict.Lookup(name)
		assert.False(t, ok, name)
	}

	n, loadedAt := c.Size()
	assert.Equal(t, 1, n)
	assert.False(t, loadedAt.IsZero())
}

func TestCache_InvalidateReloads(t *testing.T) {
	db := newTestDB(t)
	c := New(db, zerolog.Nop())
	ctx := context.Background()

	dict, err := c.Snapshot(ctx)
	require.NoError(t, err)
	_, ok := dict.Lookup("id")
	assert.False(t, ok)

	seedWord(t, db, "id", models.StatusEffective, false)

	// Stale until invalidated
	dict, err = c.Snapshot(ctx)
	require.NoError(t, err)
	_, ok = dict.Lookup("id")
	assert.False(t, ok)

	c.Invalidate()
	dict, err = c.Snapshot(ctx)
	require.NoError(t, err)
	_, ok = dict.Lookup("id")
	assert.True(t, ok)
}

func TestCache_InvalidateDuringRefresh(t *testing.T) {
	db := newTestDB(t)
	seedWord(t, db, "id", models.StatusEffective, false)

	c := New(db, zerolog.Nop())
	ctx := context.Background()

	// A mutation lands after the query has read its rows
	c.loadedHook = func() {
		c.loadedHook = nil
		seedWord(t, db, "amount", models.StatusEffective, false)
		c.Invalidate()
	}

	dict, err := c.Snapshot(ctx)
	require.NoError(t, err)

	// The caller still gets the words it loaded, never an empty view
	_, ok := dict.Lookup("id")
	assert.True(t, ok)

	// The pre-invalidation result was not kept
	n, loadedAt := c.Size()
	assert.Equal(t, 0, n)
	assert.True(t, loadedAt.IsZero())

	dict, err = c.Snapshot(ctx)
	require.NoError(t, err)
	_, ok = dict.Lookup("amount")
	assert.True(t, ok)
	n, _ = c.Size()
	assert.Equal(t, 2, n)
}

func TestCache_StartRejectsBadSchedule(t *testing.T) {
	c := New(newTestDB(t), zerolog.Nop())
	err := c.Start(context.Background(), "every now and then")
	require.Error(t, err)
}

func TestCache_StartAcceptsDescriptor(t *testing.T) {
	c := New(newTestDB(t), zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, c.Start(ctx, "@every 1h"))
	require.NoError(t, c.Start(ctx, "*/5 * * * *"))
}

func TestCache_SubscribeInvalidates(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	db := newTestDB(t)
	seedWord(t, db, "id", models.StatusEffective, false)

	c := New(db, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Subscribe(ctx, client))

	_, err = c.Snapshot(ctx)
	require.NoError(t, err)
	n, _ := c.Size()
	require.Equal(t, 1, n)

	NewPublisher(client, zerolog.Nop()).Invalidate()

	require.Eventually(t, func() bool {
		n, _ := c.Size()
		return n == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNextRefresh(t *testing.T) {
	from := time.Date(2024, 5, 1, 10, 2, 0, 0, time.UTC)

	next := NextRefresh("@every 5m", from)
	require.NotNil(t, next)
	assert.Equal(t, from.Add(5*time.Minute), *next)

	next = NextRefresh("0 * * * *", from)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC), *next)

	assert.Nil(t, NextRefresh("", from))
	assert.Nil(t, NextRefresh("not a schedule", from))
}
