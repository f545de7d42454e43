package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *clockwork.FakeClock) {
	t.Helper()
	clk := clockwork.NewFakeClock()
	return New(nil, WithClock(clk)), clk
}

func TestNew_DefaultPartitions(t *testing.T) {
	m, _ := newTestManager(t)
	assert.Equal(t, []string{Analysis, Intervention, Main, NASA, Risk}, m.PartitionNames())

	s := m.Stats()
	assert.Equal(t, 1800.0, s.Partitions[Risk].TTLSeconds)
	assert.Equal(t, 200, s.Partitions[Intervention].MaxKeys)
}

func TestUnknownPartition_DegradesToMiss(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Partition("nope")
	require.ErrorIs(t, err, ErrCacheUnavailable)

	assert.False(t, m.Set("nope", "k", 1, 0))
	_, ok := m.Get("nope", "k")
	assert.False(t, ok)
	assert.False(t, m.Delete("nope", "k"))
	assert.False(t, m.Flush("nope"))
	assert.Nil(t, m.Keys("nope"))

	s := m.Stats()
	assert.Equal(t, uint64(1), s.Misses)
	assert.Equal(t, uint64(0), s.Sets)
}

func TestStats_CountersAndHitRate(t *testing.T) {
	m, _ := newTestManager(t)
	assert.Equal(t, 0.0, m.Stats().HitRate, "no lookups yet")

	m.Set(Risk, "a", 1, 0)
	m.Set(Risk, "b", 2, 0)
	_, _ = m.Get(Risk, "a")
	_, _ = m.Get(Risk, "a")
	_, _ = m.Get(Risk, "a")
	_, _ = m.Get(Risk, "missing")
	m.Delete(Risk, "b")
	m.Flush(NASA)

	s := m.Stats()
	assert.Equal(t, uint64(3), s.Hits)
	assert.Equal(t, uint64(1), s.Misses)
	assert.Equal(t, uint64(2), s.Sets)
	assert.Equal(t, uint64(1), s.Deletes)
	assert.Equal(t, uint64(1), s.Flushes)
	assert.InDelta(t, 0.75, s.HitRate, 1e-12)
	assert.Equal(t, 1, s.Partitions[Risk].Keys)
}

func TestTTL_PartitionDefaults(t *testing.T) {
	m, clk := newTestManager(t)
	m.Set(Risk, "r", 1, 0)
	m.Set(NASA, "n", 1, 0)

	clk.Advance(31 * time.Minute)
	_, ok := m.Get(Risk, "r")
	assert.False(t, ok, "risk entries live 30 minutes")
	_, ok = m.Get(NASA, "n")
	assert.True(t, ok, "nasa entries live an hour")
}

func TestEviction_CapacityFromConfig(t *testing.T) {
	m := New(map[string]PartitionConfig{Main: {TTL: time.Hour, MaxKeys: 3}})
	for i := 0; i < 4; i++ {
		m.Set(Main, fmt.Sprintf("k%d", i), i, 0)
	}
	assert.Len(t, m.Keys(Main), 3)
	_, ok := m.Get(Main, "k0")
	assert.False(t, ok, "first inserted key must be evicted")
}

func TestDeleteMatching(t *testing.T) {
	m, _ := newTestManager(t)
	m.Set(NASA, "temperature_23.8_90.4", 1, 0)
	m.Set(NASA, "precipitation_23.8_90.4_2024-01-01_2024-01-31", 1, 0)
	m.Set(NASA, "temperature_23.8_90.45", 1, 0)
	m.Set(NASA, "temperature_1_2", 1, 0)

	n := m.DeleteMatching(NASA, func(k string) bool { return strings.Contains(k, "_23.8_90.4_") })
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, m.DeleteMatching(NASA, nil))
	assert.ElementsMatch(t, []string{"temperature_23.8_90.4", "temperature_23.8_90.45", "temperature_1_2"}, m.Keys(NASA))
}

func TestFlushAll(t *testing.T) {
	m, _ := newTestManager(t)
	for _, p := range m.PartitionNames() {
		m.Set(p, "k", 1, 0)
	}
	m.FlushAll()
	for _, p := range m.PartitionNames() {
		assert.Empty(t, m.Keys(p), p)
	}
}

func TestExportImport_RoundTripThroughJSON(t *testing.T) {
	src, _ := newTestManager(t)
	src.Set(Risk, "risk_1_2", map[string]any{"overallRisk": "low"}, 0)
	src.Set(NASA, "temperature_1_2", 21.5, 0)

	b, err := json.Marshal(src.Export())
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(b, &snap))
	snap["unknown"] = map[string]any{"x": 1}

	dst, clk := newTestManager(t)
	assert.Equal(t, 2, dst.Import(snap))

	v, ok := dst.Get(NASA, "temperature_1_2")
	require.True(t, ok)
	assert.Equal(t, 21.5, v)

	// imported entries receive the partition default TTL
	clk.Advance(31 * time.Minute)
	_, ok = dst.Get(Risk, "risk_1_2")
	assert.False(t, ok)
}

type sample struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func TestGetAs(t *testing.T) {
	m, _ := newTestManager(t)

	m.Set(Main, "direct", sample{Name: "a", Score: 0.5}, 0)
	got, ok := GetAs[sample](m, Main, "direct")
	require.True(t, ok)
	assert.Equal(t, sample{Name: "a", Score: 0.5}, got)

	m.Set(Main, "ptr", &sample{Name: "p"}, 0)
	got, ok = GetAs[sample](m, Main, "ptr")
	require.True(t, ok)
	assert.Equal(t, "p", got.Name)

	m.Set(Main, "raw", json.RawMessage(`{"name":"r","score":0.9}`), 0)
	got, ok = GetAs[sample](m, Main, "raw")
	require.True(t, ok)
	assert.Equal(t, sample{Name: "r", Score: 0.9}, got)

	m.Set(Main, "decoded", map[string]any{"name": "d", "score": 0.1}, 0)
	got, ok = GetAs[sample](m, Main, "decoded")
	require.True(t, ok)
	assert.Equal(t, sample{Name: "d", Score: 0.1}, got)

	m.Set(Main, "bad", "not an object", 0)
	_, ok = GetAs[sample](m, Main, "bad")
	assert.False(t, ok)
}

func TestStartJanitors_StopsWithContext(t *testing.T) {
	m, _ := newTestManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	m.StartJanitors(ctx, time.Minute)
	cancel()
}
