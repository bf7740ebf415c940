package delta

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Key identifies a delta by session and revision span.
type Key struct {
	Session string
	Base    uint64
	Target  uint64
}

// Cache memoizes created deltas so repeated catch-up requests against
// the same revision span do not re-diff the snapshots.
type Cache struct {
	lru *lru.Cache[Key, Delta]
}

func NewCache(size int) (*Cache, error) {
	l, err := lru.New[Key, Delta](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l}, nil
}

func (c *Cache) Get(k Key) (Delta, bool) {
	return c.lru.Get(k)
}

func (c *Cache) Put(k Key, d Delta) {
	c.lru.Add(k, d)
}

func (c *Cache) Len() int {
	return c.lru.Len()
}

// Purge drops every entry, e.g. after a session reset.
func (c *Cache) Purge() {
	c.lru.Purge()
}
