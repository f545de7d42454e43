// Package snapshot copies the in-memory cache to Redis and back. It is best
// effort: the cache stays authoritative and a failed dump loses nothing.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/climate-risk-cache/internal/cache/manager"
)

const DefaultPrefix = "climate-risk-cache:snapshot"

// Store is the subset of redisstore.Client used here.
type Store interface {
	ReplaceHash(ctx context.Context, key string, fields map[string][]byte, ttl time.Duration) error
	HGetAll(ctx context.Context, key string) (map[string][]byte, error)
}

type Snapshotter struct {
	store  Store
	prefix string
	ttl    time.Duration
	log    *slog.Logger
}

type Option func(*Snapshotter)

func WithPrefix(p string) Option       { return func(s *Snapshotter) { s.prefix = p } }
func WithTTL(d time.Duration) Option   { return func(s *Snapshotter) { s.ttl = d } }
func WithLogger(l *slog.Logger) Option { return func(s *Snapshotter) { s.log = l } }

func New(store Store, opts ...Option) *Snapshotter {
	s := &Snapshotter{store: store, prefix: DefaultPrefix, ttl: 24 * time.Hour, log: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Snapshotter) key(part string) string { return s.prefix + ":" + part }

// Dump writes one hash per partition, replacing any earlier snapshot. Values
// that do not encode as JSON are skipped. It returns the entries written.
func (s *Snapshotter) Dump(ctx context.Context, m *manager.Manager) (int, error) {
	snap := m.Export()
	written := 0
	for _, part := range m.PartitionNames() {
		entries := snap[part]
		fields := make(map[string][]byte, len(entries))
		for k, v := range entries {
			b, err := json.Marshal(v)
			if err != nil {
				s.log.WarnContext(ctx, "snapshot skip entry", "partition", part, "key", k, "err", err)
				continue
			}
			fields[k] = b
		}
		if err := s.store.ReplaceHash(ctx, s.key(part), fields, s.ttl); err != nil {
			return written, fmt.Errorf("dump partition %s: %w", part, err)
		}
		written += len(fields)
	}
	s.log.InfoContext(ctx, "cache snapshot dumped", "entries", written)
	return written, nil
}

// Restore loads every partition's hash into m with the partition default TTL.
func (s *Snapshotter) Restore(ctx context.Context, m *manager.Manager) (int, error) {
	snap := make(manager.Snapshot)
	for _, part := range m.PartitionNames() {
		fields, err := s.store.HGetAll(ctx, s.key(part))
		if err != nil {
			return 0, fmt.Errorf("restore partition %s: %w", part, err)
		}
		if len(fields) == 0 {
			continue
		}
		entries := make(map[string]any, len(fields))
		for k, b := range fields {
			entries[k] = json.RawMessage(b)
		}
		snap[part] = entries
	}
	n := m.Import(snap)
	s.log.InfoContext(ctx, "cache snapshot restored", "entries", n)
	return n, nil
}
