// Package invalidation defines cache invalidation events and applies them to
// the in-memory cache.
package invalidation

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/climate-risk-cache/internal/cache/keys"
	"github.com/mohammed-shakir/climate-risk-cache/internal/core/model"
)

const (
	OpInvalidate = "invalidate"
	OpFlush      = "flush"
)

var ErrUnknownPartition = errors.New("unknown cache partition")

// Event targets one key, every key of one location, or whole partitions.
type Event struct {
	Version   uint64    `json:"version"`
	ID        string    `json:"id,omitempty"`
	Op        string    `json:"op"`
	Partition string    `json:"partition,omitempty"`
	Key       string    `json:"key,omitempty"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	TS        time.Time `json:"ts"`
	Source    string    `json:"source,omitempty"`
}

func (e Event) hasLocation() bool { return e.Latitude != nil || e.Longitude != nil }

// Location returns the targeted location when both coordinates are set.
func (e Event) Location() (model.Location, bool) {
	if e.Latitude == nil || e.Longitude == nil {
		return model.Location{}, false
	}
	return model.Location{Latitude: *e.Latitude, Longitude: *e.Longitude}, true
}

func (e Event) Validate() error {
	if e.Version < 1 {
		return fmt.Errorf("version must be >= 1")
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	switch e.Op {
	case OpFlush:
		if e.Key != "" || e.hasLocation() {
			return fmt.Errorf("flush takes only an optional partition")
		}
		return nil
	case OpInvalidate:
	default:
		return fmt.Errorf("op must be invalidate|flush")
	}

	hasKey := strings.TrimSpace(e.Key) != ""
	if hasKey == e.hasLocation() {
		return fmt.Errorf("exactly one of key or latitude/longitude is required")
	}
	if hasKey {
		if strings.TrimSpace(e.Partition) == "" {
			return fmt.Errorf("partition is required with key")
		}
		return nil
	}
	loc, ok := e.Location()
	if !ok {
		return fmt.Errorf("latitude and longitude must both be set")
	}
	return loc.Validate()
}

// DedupeKey identifies what the event acts on. Events carrying an id are
// keyed by it; others by their target.
func (e Event) DedupeKey() string {
	if e.ID != "" {
		return "id:" + e.ID
	}
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteByte('|')
	b.WriteString(e.Partition)
	b.WriteByte('|')
	b.WriteString(e.Key)
	if loc, ok := e.Location(); ok {
		b.WriteByte('|')
		b.WriteString(strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
		b.WriteByte('|')
		b.WriteString(strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	}
	return keys.Fingerprint([]byte(b.String()))
}

// Cache is the part of manager.Manager that invalidation needs.
type Cache interface {
	PartitionNames() []string
	Keys(part string) []string
	Delete(part, key string) bool
	DeleteMatching(part string, match func(key string) bool) int
	Flush(part string) bool
	FlushAll()
}

// Apply executes a validated event and returns how many entries it removed.
func Apply(c Cache, e Event) (int, error) {
	parts := c.PartitionNames()
	if e.Partition != "" && !slices.Contains(parts, e.Partition) {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPartition, e.Partition)
	}

	switch e.Op {
	case OpFlush:
		if e.Partition != "" {
			n := len(c.Keys(e.Partition))
			c.Flush(e.Partition)
			return n, nil
		}
		n := 0
		for _, p := range parts {
			n += len(c.Keys(p))
		}
		c.FlushAll()
		return n, nil

	case OpInvalidate:
		if e.Key != "" {
			if c.Delete(e.Partition, e.Key) {
				return 1, nil
			}
			return 0, nil
		}
		loc, _ := e.Location()
		match := keys.ForLocation(loc.Latitude, loc.Longitude)
		if e.Partition != "" {
			parts = []string{e.Partition}
		}
		n := 0
		for _, p := range parts {
			n += c.DeleteMatching(p, match)
		}
		return n, nil
	}
	return 0, fmt.Errorf("unsupported op %q", e.Op)
}
