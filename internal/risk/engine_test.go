package risk

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-shakir/climate-risk-cache/internal/cache/manager"
	"github.com/mohammed-shakir/climate-risk-cache/internal/core/model"
	"github.com/mohammed-shakir/climate-risk-cache/internal/estimate"
)

type constRand float64

func (c constRand) Float64() float64 { return float64(c) }

var dhaka = model.Location{Latitude: 23.8103, Longitude: 90.4125}

func newTestEngine(r estimate.Rand, now time.Time) *Engine {
	return NewEngine(estimate.New(r), WithClock(clockwork.NewFakeClockAt(now)))
}

func monthPtr(m int) *int { return &m }

func TestAssess_InvalidLocation(t *testing.T) {
	e := newTestEngine(constRand(0.5), time.Now())
	for _, loc := range []model.Location{
		{Latitude: 90.1, Longitude: 0},
		{Latitude: 0, Longitude: -180.5},
		{Latitude: math.NaN(), Longitude: 0},
	} {
		_, err := e.Assess(loc, Params{})
		assert.ErrorIs(t, err, model.ErrInvalidLocation, "%+v", loc)
	}
}

func TestAssess_InvalidParams(t *testing.T) {
	e := newTestEngine(constRand(0.5), time.Now())
	_, err := e.Assess(dhaka, Params{Month: monthPtr(12)})
	assert.Error(t, err)
	_, err = e.Assess(dhaka, Params{ClimateZone: "desert"})
	assert.Error(t, err)
}

func TestAssess_MonthFromClock(t *testing.T) {
	e := newTestEngine(constRand(0.5), time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC))
	a, err := e.Assess(dhaka, Params{})
	require.NoError(t, err)

	assert.Equal(t, 2, a.Metadata.Month)
	// 27 + (2 + 3500/1000*0.5) + 5
	assert.InDelta(t, 35.75, a.Categories[model.CategoryHeat].Factors["adjustedTemperature"], 1e-9)
	assert.Equal(t, model.LevelVeryHigh, a.Factors[model.CategoryHeat])
}

func TestAssess_DhakaPinned(t *testing.T) {
	e := newTestEngine(constRand(0.5), time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC))
	a, err := e.Assess(dhaka, Params{Month: monthPtr(4)})
	require.NoError(t, err)

	assert.Equal(t, model.LevelHigh, a.Factors[model.CategoryHeat])
	// elevation 8 (delta), rainfall 120, poor drainage, coastal 0.5, extreme 0.3
	assert.Equal(t, 1.0, a.Scores[model.CategoryFlood], "accumulator 1.03 is clamped")
	assert.Equal(t, model.LevelVeryHigh, a.Factors[model.CategoryFlood])
	// AQI = 30+40+0.55*30+0.66*25-0.5*10 = 98
	assert.Equal(t, model.LevelLow, a.Factors[model.CategoryAirQuality])
	assert.InDelta(t, 98.0/200, a.Scores[model.CategoryAirQuality], 1e-9)
	// NDVI = 0.6*0.3*1*(1-0.8*0.5) = 0.108
	assert.Equal(t, model.LevelHigh, a.Factors[model.CategoryVegetation])

	assert.Equal(t, model.SourceEstimated, a.Metadata.Source)
	assert.Equal(t, "subtropical", a.Metadata.ClimateZone)
	assert.True(t, a.Metadata.IsUrban)
	assert.NotEmpty(t, a.Metadata.H3Cell)
	assert.Equal(t, Confidence, a.Confidence)

	require.Len(t, a.Recommendations, 3)
	assert.Equal(t, "heat_mitigation", a.Recommendations[0].Type)
	assert.Equal(t, "flood_management", a.Recommendations[1].Type)
	assert.Equal(t, model.PriorityHigh, a.Recommendations[1].Priority)
	assert.Equal(t, "vegetation_enhancement", a.Recommendations[2].Type)
}

func TestAssess_ClimateZoneOverride(t *testing.T) {
	e := newTestEngine(constRand(0.5), time.Now())
	base, err := e.Assess(dhaka, Params{Month: monthPtr(0)})
	require.NoError(t, err)
	arid, err := e.Assess(dhaka, Params{Month: monthPtr(0), ClimateZone: estimate.ZoneArid})
	require.NoError(t, err)

	assert.Equal(t, "arid", arid.Metadata.ClimateZone)
	assert.Greater(t, arid.Scores[model.CategoryVegetation], base.Scores[model.CategoryVegetation])
}

func TestAssess_Invariants(t *testing.T) {
	e := newTestEngine(estimate.NewRand(7), time.Date(2024, time.August, 1, 0, 0, 0, 0, time.UTC))
	valid := map[model.Level]bool{
		model.LevelLow: true, model.LevelMedium: true, model.LevelHigh: true, model.LevelVeryHigh: true,
	}

	for lat := -90.0; lat <= 90; lat += 7.5 {
		for lon := -180.0; lon <= 180; lon += 15 {
			a, err := e.Assess(model.Location{Latitude: lat, Longitude: lon}, Params{})
			require.NoError(t, err)

			levelSum := 0.0
			for _, c := range model.Categories {
				r := a.Categories[c]
				assert.GreaterOrEqual(t, r.Score, 0.0)
				assert.LessOrEqual(t, r.Score, 1.0)
				assert.True(t, valid[r.Level], "level %q", r.Level)
				assert.Equal(t, r.Level, a.Factors[c])
				assert.Equal(t, r.Score, a.Scores[c])
				levelSum += LevelScores[r.Level]
			}

			adj := a.Categories[model.CategoryHeat].Factors["adjustedTemperature"].(float64)
			wantHeat, _ := HeatBand(adj)
			assert.Equal(t, wantHeat, a.Factors[model.CategoryHeat])

			assert.Equal(t, 1-levelSum/4, a.Indices.ClimateResilience)

			sum := 0.0
			for _, v := range a.InterventionPriorities {
				sum += v
			}
			assert.InDelta(t, 1.0, sum, 1e-9)
			assert.True(t, valid[a.OverallRisk])
		}
	}
}

type recordingPublisher struct {
	mu  sync.Mutex
	got []model.RiskAssessment
}

func (r *recordingPublisher) Publish(a model.RiskAssessment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, a)
}

func TestService_CachesAssessments(t *testing.T) {
	clk := clockwork.NewFakeClockAt(time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC))
	cache := manager.New(nil, manager.WithClock(clk))
	pub := &recordingPublisher{}
	svc := NewService(NewEngine(estimate.New(estimate.NewRand(1)), WithClock(clk)), cache, pub, nil)
	ctx := context.Background()

	first, cached, err := svc.Assess(ctx, dhaka, Params{})
	require.NoError(t, err)
	assert.False(t, cached)

	second, cached, err := svc.Assess(ctx, dhaka, Params{})
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, first.Scores, second.Scores)
	assert.Len(t, pub.got, 1, "only fresh assessments are published")

	assert.Equal(t, []string{"risk_23.8103_90.4125"}, cache.Keys(manager.Risk))

	_, cached, err = svc.Assess(ctx, dhaka, Params{Month: monthPtr(3)})
	require.NoError(t, err)
	assert.False(t, cached, "params are part of the key")
	assert.Contains(t, cache.Keys(manager.Risk), `risk_23.8103_90.4125_{"month":3}`)

	clk.Advance(AssessmentTTL)
	_, cached, err = svc.Assess(ctx, dhaka, Params{})
	require.NoError(t, err)
	assert.False(t, cached, "entry expires after 30 minutes")
}

func TestService_InvalidLocationNotCached(t *testing.T) {
	cache := manager.New(nil)
	svc := NewService(NewEngine(estimate.New(constRand(0.5))), cache, nil, nil)

	_, _, err := svc.Assess(context.Background(), model.Location{Latitude: -91}, Params{})
	assert.ErrorIs(t, err, model.ErrInvalidLocation)
	assert.Empty(t, cache.Keys(manager.Risk))
	assert.Equal(t, uint64(0), cache.Stats().Misses, "rejected before the cache lookup")
}

func TestService_Indices(t *testing.T) {
	cache := manager.New(nil)
	svc := NewService(NewEngine(estimate.New(constRand(0.5))), cache, nil, nil)

	idx, cached, err := svc.Indices(context.Background(), dhaka)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Greater(t, idx.UrbanHeatIsland, 0.0)

	again, cached, err := svc.Indices(context.Background(), dhaka)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, idx, again)
	assert.Equal(t, []string{"indices_23.8103_90.4125"}, cache.Keys(manager.Analysis))
}

func TestService_IndicesMatchAssessment(t *testing.T) {
	for name, first := range map[string]string{"risk first": "risk", "indices first": "indices"} {
		t.Run(name, func(t *testing.T) {
			cache := manager.New(nil)
			svc := NewService(NewEngine(estimate.New(estimate.NewRand(42))), cache, nil, nil)
			ctx := context.Background()

			var a model.RiskAssessment
			var idx model.CompositeIndices
			var err error
			if first == "risk" {
				a, _, err = svc.Assess(ctx, dhaka, Params{})
				require.NoError(t, err)
				idx, _, err = svc.Indices(ctx, dhaka)
			} else {
				idx, _, err = svc.Indices(ctx, dhaka)
				require.NoError(t, err)
				a, _, err = svc.Assess(ctx, dhaka, Params{})
			}
			require.NoError(t, err)
			assert.Equal(t, a.Indices, idx)
			assert.Len(t, cache.Keys(manager.Risk), 1, "one engine run serves both")
		})
	}
}

func TestService_RecomputedAssessmentRefreshesIndices(t *testing.T) {
	cache := manager.New(nil)
	svc := NewService(NewEngine(estimate.New(estimate.NewRand(7))), cache, nil, nil)
	ctx := context.Background()

	_, _, err := svc.Assess(ctx, dhaka, Params{})
	require.NoError(t, err)
	cache.Flush(manager.Risk)

	a, cached, err := svc.Assess(ctx, dhaka, Params{})
	require.NoError(t, err)
	require.False(t, cached)
	idx, cached, err := svc.Indices(ctx, dhaka)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, a.Indices, idx)

	// overrides produce a different assessment and leave the indices alone
	_, _, err = svc.Assess(ctx, dhaka, Params{ClimateZone: estimate.ZoneArid})
	require.NoError(t, err)
	again, _, err := svc.Indices(ctx, dhaka)
	require.NoError(t, err)
	assert.Equal(t, idx, again)
}
