package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-shakir/climate-risk-cache/internal/cache/manager"
	"github.com/mohammed-shakir/climate-risk-cache/internal/cache/redisstore"
	"github.com/mohammed-shakir/climate-risk-cache/internal/core/model"
)

func newStore(t *testing.T) (*redisstore.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc, err := redisstore.New(context.Background(), mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

func TestDumpRestore_RoundTrip(t *testing.T) {
	rc, mr := newStore(t)
	ctx := context.Background()

	src := manager.New(nil)
	src.Set(manager.Risk, "risk_23.8_90.4", model.RiskAssessment{OverallRisk: model.LevelHigh, Confidence: 0.75}, 0)
	src.Set(manager.NASA, "elevation_1_2", model.Dataset{Category: model.DataElevation, Summary: map[string]float64{"elevation": 12}}, 0)

	s := New(rc, WithPrefix("test"), WithTTL(time.Hour))
	n, err := s.Dump(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, mr.Exists("test:risk"))
	assert.Equal(t, time.Hour, mr.TTL("test:risk"))
	assert.False(t, mr.Exists("test:intervention"), "empty partitions leave no hash")

	dst := manager.New(nil)
	n, err = s.Restore(ctx, dst)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	a, ok := manager.GetAs[model.RiskAssessment](dst, manager.Risk, "risk_23.8_90.4")
	require.True(t, ok)
	assert.Equal(t, model.LevelHigh, a.OverallRisk)
	ds, ok := manager.GetAs[model.Dataset](dst, manager.NASA, "elevation_1_2")
	require.True(t, ok)
	assert.Equal(t, 12.0, ds.Summary["elevation"])
}

func TestDump_ReplacesPreviousSnapshot(t *testing.T) {
	rc, mr := newStore(t)
	ctx := context.Background()
	s := New(rc)

	m := manager.New(nil)
	m.Set(manager.Main, "a", 1, 0)
	_, err := s.Dump(ctx, m)
	require.NoError(t, err)

	m.Delete(manager.Main, "a")
	m.Set(manager.Main, "b", 2, 0)
	_, err = s.Dump(ctx, m)
	require.NoError(t, err)

	fields, err := mr.HKeys(DefaultPrefix + ":main")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, fields)
}

type failingStore struct{}

func (failingStore) ReplaceHash(context.Context, string, map[string][]byte, time.Duration) error {
	return errors.New("down")
}

func (failingStore) HGetAll(context.Context, string) (map[string][]byte, error) {
	return nil, errors.New("down")
}

func TestSnapshot_StoreErrorsSurface(t *testing.T) {
	m := manager.New(nil)
	m.Set(manager.Main, "a", 1, 0)
	s := New(failingStore{})

	_, err := s.Dump(context.Background(), m)
	assert.Error(t, err)
	_, err = s.Restore(context.Background(), m)
	assert.Error(t, err)
	assert.Equal(t, []string{"a"}, m.Keys(manager.Main), "a failed restore leaves the cache untouched")
}
