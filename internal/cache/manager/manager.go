// Package manager owns the named cache partitions and the process-wide
// cache statistics.
package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mohammed-shakir/climate-risk-cache/internal/cache/partition"
	"github.com/mohammed-shakir/climate-risk-cache/internal/core/observability"
)

const (
	Main         = "main"
	NASA         = "nasa"
	Risk         = "risk"
	Intervention = "intervention"
	Analysis     = "analysis"
)

// ErrCacheUnavailable is returned for an unknown partition name.
var ErrCacheUnavailable = errors.New("cache partition unavailable")

type PartitionConfig struct {
	TTL     time.Duration
	MaxKeys int
}

func DefaultPartitions() map[string]PartitionConfig {
	return map[string]PartitionConfig{
		Main:         {TTL: 10 * time.Minute, MaxKeys: 1000},
		NASA:         {TTL: time.Hour, MaxKeys: 500},
		Risk:         {TTL: 30 * time.Minute, MaxKeys: 1000},
		Intervention: {TTL: 2 * time.Hour, MaxKeys: 200},
		Analysis:     {TTL: 15 * time.Minute, MaxKeys: 500},
	}
}

type Manager struct {
	parts map[string]*partition.Partition
	log   *slog.Logger

	hits    atomic.Uint64
	misses  atomic.Uint64
	sets    atomic.Uint64
	deletes atomic.Uint64
	flushes atomic.Uint64
}

type Option func(*options)

type options struct {
	clock clockwork.Clock
	log   *slog.Logger
}

func WithClock(c clockwork.Clock) Option { return func(o *options) { o.clock = c } }
func WithLogger(l *slog.Logger) Option   { return func(o *options) { o.log = l } }

// New builds one partition per entry of cfg. A nil cfg uses DefaultPartitions.
func New(cfg map[string]PartitionConfig, opts ...Option) *Manager {
	o := options{clock: clockwork.NewRealClock(), log: slog.Default()}
	for _, fn := range opts {
		fn(&o)
	}
	if cfg == nil {
		cfg = DefaultPartitions()
	}

	m := &Manager{parts: make(map[string]*partition.Partition, len(cfg)), log: o.log}
	for name, pc := range cfg {
		m.parts[name] = partition.New(name, pc.TTL, pc.MaxKeys,
			partition.WithClock(o.clock),
			partition.WithEvictHook(func(string) { observability.IncCacheEviction(name) }),
		)
	}
	return m
}

// Partition resolves name or returns ErrCacheUnavailable.
func (m *Manager) Partition(name string) (*partition.Partition, error) {
	p, ok := m.parts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCacheUnavailable, name)
	}
	return p, nil
}

func (m *Manager) PartitionNames() []string {
	out := make([]string, 0, len(m.parts))
	for n := range m.parts {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Get counts a hit or miss. An unknown partition is a miss.
func (m *Manager) Get(part, key string) (any, bool) {
	p, err := m.Partition(part)
	if err != nil {
		m.log.Debug("cache get on unknown partition", "partition", part, "err", err)
		m.misses.Add(1)
		return nil, false
	}
	v, ok := p.Get(key)
	if ok {
		m.hits.Add(1)
		observability.IncCacheHit(part)
	} else {
		m.misses.Add(1)
		observability.IncCacheMiss(part)
	}
	return v, ok
}

// Set stores value; ttl <= 0 uses the partition default.
func (m *Manager) Set(part, key string, value any, ttl time.Duration) bool {
	p, err := m.Partition(part)
	if err != nil {
		m.log.Debug("cache set on unknown partition", "partition", part, "err", err)
		return false
	}
	ok := p.Set(key, value, ttl)
	if ok {
		m.sets.Add(1)
	}
	return ok
}

func (m *Manager) Delete(part, key string) bool {
	p, err := m.Partition(part)
	if err != nil {
		return false
	}
	ok := p.Delete(key)
	if ok {
		m.deletes.Add(1)
	}
	return ok
}

// DeleteMatching removes every key of part accepted by match and returns how
// many were removed.
func (m *Manager) DeleteMatching(part string, match func(key string) bool) int {
	p, err := m.Partition(part)
	if err != nil || match == nil {
		return 0
	}
	n := 0
	for _, k := range p.Keys() {
		if match(k) && p.Delete(k) {
			n++
		}
	}
	m.deletes.Add(uint64(n))
	return n
}

func (m *Manager) Keys(part string) []string {
	p, err := m.Partition(part)
	if err != nil {
		return nil
	}
	return p.Keys()
}

func (m *Manager) Flush(part string) bool {
	p, err := m.Partition(part)
	if err != nil {
		return false
	}
	p.Clear()
	m.flushes.Add(1)
	return true
}

func (m *Manager) FlushAll() {
	for _, p := range m.parts {
		p.Clear()
	}
	m.flushes.Add(1)
}

// StartJanitors runs one expiry sweeper per partition until ctx is done.
func (m *Manager) StartJanitors(ctx context.Context, interval time.Duration) {
	for _, p := range m.parts {
		p.StartJanitor(interval, ctx.Done())
	}
}

type PartitionStats struct {
	Keys       int     `json:"keys"`
	MaxKeys    int     `json:"maxKeys"`
	TTLSeconds float64 `json:"ttlSeconds"`
}

type Stats struct {
	Hits       uint64                    `json:"hits"`
	Misses     uint64                    `json:"misses"`
	Sets       uint64                    `json:"sets"`
	Deletes    uint64                    `json:"deletes"`
	Flushes    uint64                    `json:"flushes"`
	HitRate    float64                   `json:"hitRate"`
	Partitions map[string]PartitionStats `json:"partitions"`
}

func (m *Manager) Stats() Stats {
	s := Stats{
		Hits:       m.hits.Load(),
		Misses:     m.misses.Load(),
		Sets:       m.sets.Load(),
		Deletes:    m.deletes.Load(),
		Flushes:    m.flushes.Load(),
		Partitions: make(map[string]PartitionStats, len(m.parts)),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	for name, p := range m.parts {
		s.Partitions[name] = PartitionStats{
			Keys:       p.Len(),
			MaxKeys:    p.MaxKeys(),
			TTLSeconds: p.DefaultTTL().Seconds(),
		}
	}
	return s
}

// Snapshot maps partition name to key to value. TTL state is not part of it.
type Snapshot map[string]map[string]any

func (m *Manager) Export() Snapshot {
	out := make(Snapshot, len(m.parts))
	for name, p := range m.parts {
		out[name] = p.Entries()
	}
	return out
}

// Import loads snap with each partition's default TTL. Unknown partitions
// are skipped. It returns the number of entries stored.
func (m *Manager) Import(snap Snapshot) int {
	n := 0
	for name, entries := range snap {
		p, err := m.Partition(name)
		if err != nil {
			m.log.Warn("skipping snapshot partition", "partition", name, "err", err)
			continue
		}
		for k, v := range entries {
			if p.Set(k, v, 0) {
				n++
			}
		}
	}
	return n
}
