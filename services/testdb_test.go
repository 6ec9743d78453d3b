package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/studytutor/config"
	"github.com/cppla/studytutor/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenDatabase(config.AppConfig{
		DBDriver:    "sqlite",
		DatabaseURI: filepath.Join(t.TempDir(), "test.db"),
		LogLevel:    "silent",
	}, &models.User{}, &models.StudySession{}, &models.ProgressRecord{}, &models.ConversationTurn{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = config.CloseDatabase(db) })
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	u := models.User{Email: email, Name: "tester"}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := db.Create(models.NewProgressRecord(u.ID)).Error; err != nil {
		t.Fatalf("create progress: %v", err)
	}
	return &u
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// memoryCache implements Cache in memory and counts fills.
type memoryCache struct {
	mu       sync.Mutex
	entries  map[string]any
	versions map[string]int64
	fills    int
	bumps    []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]any{}, versions: map[string]int64{}}
}

func (c *memoryCache) Fetch(ctx context.Context, key string, ttl time.Duration, out any, fill func(context.Context) (any, error)) error {
	c.mu.Lock()
	v, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		var err error
		v, err = fill(ctx)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.entries[key] = v
		c.fills++
		c.mu.Unlock()
	}
	stats, ok := v.(*Stats)
	if !ok {
		return fmt.Errorf("unexpected cached type %T", v)
	}
	*(out.(*Stats)) = *stats
	return nil
}

func (c *memoryCache) Version(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[key], nil
}

func (c *memoryCache) Bump(_ context.Context, key string) {
	c.mu.Lock()
	c.versions[key]++
	c.bumps = append(c.bumps, key)
	c.mu.Unlock()
}

// put stores v under key as a late cache write would.
func (c *memoryCache) put(key string, v *Stats) {
	c.mu.Lock()
	c.entries[key] = v
	c.mu.Unlock()
}
