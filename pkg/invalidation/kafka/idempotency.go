package kafka

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// versionDedupe remembers the highest version applied per event target.
// Targets that fall out of the LRU are applied again, which is harmless for
// deletes and flushes.
type versionDedupe struct {
	mu  sync.Mutex
	lru *lru.Cache[string, uint64]
}

func newVersionDedupe(size int) *versionDedupe {
	if size <= 0 {
		size = 8192
	}
	c, _ := lru.New[string, uint64](size)
	return &versionDedupe{lru: c}
}

// shouldApply records v for key and reports whether it is newer than any
// version seen so far.
func (d *versionDedupe) shouldApply(key string, v uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.lru.Get(key); ok && v <= last {
		return false
	}
	d.lru.Add(key, v)
	return true
}
