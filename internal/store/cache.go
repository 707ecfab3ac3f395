package store

import (
	"context"
	"sync"
	"time"

	"github.com/roach88/lunchdesk/internal/menu"
)

// MenuReader is the read side of the store the cache wraps.
type MenuReader interface {
	ActiveMenu(ctx context.Context) (menu.DailyMenu, error)
}

// MenuCache serves ActiveMenu from memory for up to ttl.
//
// Conversations read the menu through the cache at flow entry. The commit
// path never does: the allocator reloads from the Store directly so edits
// made after a flow started are always seen.
//
// Thread-safety: MenuCache is safe for concurrent use.
type MenuCache struct {
	src MenuReader
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	cached   menu.DailyMenu
	loadedAt time.Time
	valid    bool
}

// NewMenuCache creates a cache in front of src. A non-positive ttl disables
// caching. now defaults to time.Now.
func NewMenuCache(src MenuReader, ttl time.Duration, now func() time.Time) *MenuCache {
	if now == nil {
		now = time.Now
	}
	return &MenuCache{src: src, ttl: ttl, now: now}
}

// ActiveMenu returns the cached menu if fresh, otherwise reloads it.
// Errors are not cached.
func (c *MenuCache) ActiveMenu(ctx context.Context) (menu.DailyMenu, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.valid && c.ttl > 0 && now.Sub(c.loadedAt) < c.ttl {
		return c.cached, nil
	}

	m, err := c.src.ActiveMenu(ctx)
	if err != nil {
		c.valid = false
		return menu.DailyMenu{}, err
	}

	c.cached = m
	c.loadedAt = now
	c.valid = true
	return m, nil
}

// Invalidate drops the cached menu. Called after a menu is saved.
func (c *MenuCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
}
