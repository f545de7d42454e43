// Package partition implements a bounded, TTL-expiring in-memory key/value store.
package partition

import (
	"container/list"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type entry struct {
	key        string
	value      any
	insertedAt time.Time
	ttl        time.Duration
	elem       *list.Element
}

func (e *entry) expired(now time.Time) bool {
	return e.ttl > 0 && !now.Before(e.insertedAt.Add(e.ttl))
}

// Partition is safe for concurrent use. Expiry is checked lazily on every read,
// so an expired key is never returned even if the janitor has not run yet.
// Eviction order is insertion order: overwriting a key keeps its position.
type Partition struct {
	name       string
	defaultTTL time.Duration
	maxKeys    int
	clock      clockwork.Clock

	mu      sync.Mutex
	entries map[string]*entry
	order   *list.List // front = oldest insertion

	onEvict func(key string)
}

type Option func(*Partition)

func WithClock(c clockwork.Clock) Option {
	return func(p *Partition) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithEvictHook is called (outside the lock) for every capacity eviction.
func WithEvictHook(fn func(key string)) Option {
	return func(p *Partition) { p.onEvict = fn }
}

func New(name string, defaultTTL time.Duration, maxKeys int, opts ...Option) *Partition {
	p := &Partition{
		name:       name,
		defaultTTL: defaultTTL,
		maxKeys:    maxKeys,
		clock:      clockwork.NewRealClock(),
		entries:    make(map[string]*entry),
		order:      list.New(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Partition) Name() string              { return p.name }
func (p *Partition) DefaultTTL() time.Duration { return p.defaultTTL }
func (p *Partition) MaxKeys() int              { return p.maxKeys }

// Set inserts or overwrites key. A ttl <= 0 uses the partition default.
// Inserting a new key into a full partition evicts the oldest entry first.
func (p *Partition) Set(key string, value any, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = p.defaultTTL
	}
	now := p.clock.Now()

	var evicted string
	p.mu.Lock()
	if e, ok := p.entries[key]; ok {
		if !e.expired(now) {
			e.value = value
			e.insertedAt = now
			e.ttl = ttl
			p.mu.Unlock()
			return true
		}
		// an expired key is gone already; writing it again is a new insertion
		p.removeLocked(e)
	}

	if p.maxKeys > 0 && len(p.entries) >= p.maxKeys {
		p.purgeExpiredLocked(now)
	}
	if p.maxKeys > 0 && len(p.entries) >= p.maxKeys {
		if front := p.order.Front(); front != nil {
			old := front.Value.(*entry)
			p.removeLocked(old)
			evicted = old.key
		}
	}

	e := &entry{key: key, value: value, insertedAt: now, ttl: ttl}
	e.elem = p.order.PushBack(e)
	p.entries[key] = e
	p.mu.Unlock()

	if evicted != "" && p.onEvict != nil {
		p.onEvict(evicted)
	}
	return true
}

// Get does not refresh the entry's TTL.
func (p *Partition) Get(key string) (any, bool) {
	now := p.clock.Now()
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(now) {
		p.removeLocked(e)
		return nil, false
	}
	return e.value, true
}

// Delete reports whether a live entry was removed.
func (p *Partition) Delete(key string) bool {
	now := p.clock.Now()
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[key]
	if !ok {
		return false
	}
	p.removeLocked(e)
	return !e.expired(now)
}

// Keys returns a snapshot of live keys in insertion order.
func (p *Partition) Keys() []string {
	now := p.clock.Now()
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, 0, len(p.entries))
	for el := p.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry)
		if e.expired(now) {
			continue
		}
		out = append(out, e.key)
	}
	return out
}

// Entries returns a snapshot of live key/value pairs.
func (p *Partition) Entries() map[string]any {
	now := p.clock.Now()
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]any, len(p.entries))
	for k, e := range p.entries {
		if e.expired(now) {
			continue
		}
		out[k] = e.value
	}
	return out
}

func (p *Partition) Len() int {
	now := p.clock.Now()
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, e := range p.entries {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

func (p *Partition) Clear() {
	p.mu.Lock()
	p.entries = make(map[string]*entry)
	p.order.Init()
	p.mu.Unlock()
}

// Sweep drops expired entries and returns how many were removed.
func (p *Partition) Sweep() int {
	now := p.clock.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.purgeExpiredLocked(now)
}

// StartJanitor sweeps every interval until stop is closed.
func (p *Partition) StartJanitor(interval time.Duration, stop <-chan struct{}) {
	if interval <= 0 {
		return
	}
	go func() {
		t := p.clock.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.Chan():
				p.Sweep()
			case <-stop:
				return
			}
		}
	}()
}

func (p *Partition) purgeExpiredLocked(now time.Time) int {
	n := 0
	for el := p.order.Front(); el != nil; {
		next := el.Next()
		e := el.Value.(*entry)
		if e.expired(now) {
			p.removeLocked(e)
			n++
		}
		el = next
	}
	return n
}

func (p *Partition) removeLocked(e *entry) {
	delete(p.entries, e.key)
	if e.elem != nil {
		p.order.Remove(e.elem)
		e.elem = nil
	}
}
