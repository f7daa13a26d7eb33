package registry

import (
	"sync"
	"time"
)

// cacheTTL bounds how stale a List() result may be (§5: "Registry cache
// reads may lag real state by up to one second").
const cacheTTL = 1 * time.Second

type cacheKey struct {
	selfName    string
	scopeToCwd  bool
	cwd         string
}

// cache memoizes List() results for burst traffic (e.g. repeated UI
// redraws) without letting the memoization itself become a source of
// inconsistency: any mutation invalidates the whole cache at once
// (design note: "do not attempt partial cache updates").
type cache struct {
	mu      sync.Mutex
	key     cacheKey
	records []*Record
	expires time.Time
	valid   bool
}

func (c *cache) get(key cacheKey) ([]*Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid || c.key != key || time.Now().After(c.expires) {
		return nil, false
	}
	out := make([]*Record, len(c.records))
	copy(out, c.records)
	return out, true
}

func (c *cache) set(key cacheKey, records []*Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.key = key
	c.records = records
	c.expires = time.Now().Add(cacheTTL)
	c.valid = true
}

// invalidate drops the cached result entirely. Called after any join,
// rename, or leave so readers never see a cached list alongside a
// conflicting filtered derivative.
func (c *cache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
}
