package services

import (
	"sync"
	"time"

	"github.com/dmitrijs2005/filedash/internal/client/models"
)

// listCache holds listing pages keyed by query. Entries expire after ttl;
// Invalidate drops everything.
type listCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cachedPage
}

type cachedPage struct {
	list    models.FileList
	expires time.Time
}

func newListCache(ttl time.Duration) *listCache {
	return &listCache{ttl: ttl, now: time.Now, entries: make(map[string]cachedPage)}
}

func (c *listCache) get(key string) (*models.FileList, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(p.expires) {
		delete(c.entries, key)
		return nil, false
	}
	list := p.list
	list.Files = append([]models.FileMetadata(nil), p.list.Files...)
	return &list, true
}

func (c *listCache) put(key string, list *models.FileList) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *list
	cp.Files = append([]models.FileMetadata(nil), list.Files...)
	c.entries[key] = cachedPage{list: cp, expires: c.now().Add(c.ttl)}
}

func (c *listCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

func (c *listCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
