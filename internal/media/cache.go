package media

import (
	"sync"
	"time"
)

// listCacheTTL is how long a remote listing is served from memory before
// a fresh fetch is required.
const listCacheTTL = 30 * time.Second

// listCache memoizes the remote store listing for a short window so
// rapid consecutive queries do not hammer the server. Invalidated
// explicitly whenever the client learns the remote store changed.
type listCache struct {
	mu        sync.Mutex
	items     []RemoteItem
	fetchedAt time.Time

	// now overrides time.Now in tests.
	now func() time.Time
}

func newListCache() *listCache {
	return &listCache{now: time.Now}
}

// get returns the cached listing if it is still fresh.
func (c *listCache) get() ([]RemoteItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fetchedAt.IsZero() || c.now().Sub(c.fetchedAt) > listCacheTTL {
		return nil, false
	}

	return c.items, true
}

// set replaces the cached listing.
func (c *listCache) set(items []RemoteItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = items
	c.fetchedAt = c.now()
}

// invalidate drops the cached listing.
func (c *listCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = nil
	c.fetchedAt = time.Time{}
}
