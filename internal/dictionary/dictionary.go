// Package dictionary keeps an in-memory view of the effective root words.
package dictionary

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/rootword-dev/rootword/internal/ddl"
	"github.com/rootword-dev/rootword/internal/models"
)

// Cache serves root word lookups for the DDL checker. It loads lazily on
// first use and after every Invalidate.
type Cache struct {
	db     *gorm.DB
	logger zerolog.Logger

	mu         sync.RWMutex
	words      map[string]ddl.Standard
	loaded     bool
	loadedAt   time.Time
	generation uint64 // bumped by Invalidate

	// loadedHook runs between the query and the store; tests only
	loadedHook func()
}

// New creates an empty cache backed by db
func New(db *gorm.DB, logger zerolog.Logger) *Cache {
	return &Cache{
		db:     db,
		logger: logger.With().Str("component", "dictionary").Logger(),
	}
}

// Refresh reloads all effective, live root words
func (c *Cache) Refresh(ctx context.Context) error {
	_, err := c.refresh(ctx)
	return err
}

// refresh queries the words and returns them. The result is stored only if
// no Invalidate happened while the query ran, since it may predate the
// mutation that invalidated.
func (c *Cache) refresh(ctx context.Context) (map[string]ddl.Standard, error) {
	c.mu.RLock()
	generation := c.generation
	c.mu.RUnlock()

	var rows []models.RootWord
	err := c.db.WithContext(ctx).
		Where("status = ? AND deleted = ?", models.StatusEffective, false).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load effective root words: %w", err)
	}

	words := make(map[string]ddl.Standard, len(rows))
	for _, w := range rows {
		words[w.WordName] = ddl.Standard{
			WordName:       w.WordName,
			MySQLType:      w.MySQLType,
			DorisType:      w.DorisType,
			ClickHouseType: w.ClickHouseType,
			Remark:         w.Remark,
		}
	}

	if c.loadedHook != nil {
		c.loadedHook()
	}

	c.mu.Lock()
	stored := c.generation == generation
	if stored {
		c.words = words
		c.loaded = true
		c.loadedAt = time.Now()
	}
	c.mu.Unlock()

	if stored {
		c.logger.Debug().Int("words", len(words)).Msg("Dictionary refreshed")
	} else {
		c.logger.Debug().Msg("Dictionary invalidated during refresh, not storing")
	}
	return words, nil
}

// Invalidate drops the cached words so the next lookup reloads them
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.generation++
	c.loaded = false
	c.words = nil
	c.mu.Unlock()
}

// Snapshot returns a ddl.Dictionary over the current words, loading them if needed
func (c *Cache) Snapshot(ctx context.Context) (ddl.Dictionary, error) {
	c.mu.RLock()
	words, loaded := c.words, c.loaded
	c.mu.RUnlock()

	if !loaded {
		var err error
		if words, err = c.refresh(ctx); err != nil {
			return nil, err
		}
	}

	return snapshot(words), nil
}

// Size returns the number of cached words and when they were loaded
func (c *Cache) Size() (int, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.words), c.loadedAt
}

type snapshot map[string]ddl.Standard

func (s snapshot) Lookup(name string) (ddl.Standard, bool) {
	std, ok := s[name]
	return std, ok
}

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// NextRefresh returns when schedule next fires after from, or nil if the
// schedule does not parse
func NextRefresh(schedule string, from time.Time) *time.Time {
	if schedule == "" {
		return nil
	}

	parsed, err := scheduleParser.Parse(schedule)
	if err != nil {
		return nil
	}

	next := parsed.Next(from)
	return &next
}

// Start refreshes the cache on schedule until ctx is done. schedule accepts
// standard 5-field cron expressions and descriptors like "@every 5m".
func (c *Cache) Start(ctx context.Context, schedule string) error {
	if _, err := scheduleParser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid dictionary refresh schedule %q: %w", schedule, err)
	}

	scheduler := cron.New(cron.WithParser(scheduleParser))
	if _, err := scheduler.AddFunc(schedule, func() {
		if err := c.Refresh(ctx); err != nil {
			c.logger.Error().Err(err).Msg("Scheduled dictionary refresh failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule dictionary refresh: %w", err)
	}

	scheduler.Start()
	c.logger.Info().Str("schedule", schedule).Msg("Dictionary refresh scheduled")

	go func() {
		<-ctx.Done()
		<-scheduler.Stop().Done()
	}()

	return nil
}
