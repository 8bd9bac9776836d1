package usecase

import (
	"sync"

	"studyhub/internal/domain/entity"
)

// PresenceCache mirrors the presence store. Every update replaces the whole
// set, so users removed from the store disappear here too.
type PresenceCache struct {
	mu      sync.RWMutex
	records map[string]entity.PresenceRecord
}

func NewPresenceCache() *PresenceCache {
	return &PresenceCache{records: make(map[string]entity.PresenceRecord)}
}

func (c *PresenceCache) Replace(records map[string]entity.PresenceRecord) {
	next := make(map[string]entity.PresenceRecord, len(records))
	for uid, r := range records {
		next[uid] = r
	}
	c.mu.Lock()
	c.records = next
	c.mu.Unlock()
}

func (c *PresenceCache) Lookup(uid string) (entity.PresenceRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.records[uid]
	return r, ok
}

func (c *PresenceCache) IsOnline(uid string) bool {
	r, ok := c.Lookup(uid)
	return ok && r.IsOnline
}

func (c *PresenceCache) Snapshot() map[string]entity.PresenceRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]entity.PresenceRecord, len(c.records))
	for uid, r := range c.records {
		out[uid] = r
	}
	return out
}

func (c *PresenceCache) Reset() {
	c.Replace(nil)
}
