// Package risk turns estimator profiles into category risks, composite
// indices, recommendations and intervention priorities.
package risk

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mohammed-shakir/climate-risk-cache/internal/core/model"
	"github.com/mohammed-shakir/climate-risk-cache/internal/estimate"
	h3mapper "github.com/mohammed-shakir/climate-risk-cache/internal/mapper/h3"
)

const (
	ModelVersion = "1.0.0"
	// Confidence is fixed: every assessment is built from the same estimators.
	Confidence = 0.75
)

// Params are optional overrides. A nil Month uses the engine clock.
type Params struct {
	Month       *int
	ClimateZone estimate.ClimateZone
}

// CacheParams is the map serialised into the risk cache key; empty when no
// override is set.
func (p Params) CacheParams() map[string]any {
	m := map[string]any{}
	if p.Month != nil {
		m["month"] = *p.Month
	}
	if p.ClimateZone != "" {
		m["climateZone"] = string(p.ClimateZone)
	}
	return m
}

func (p Params) Validate() error {
	if p.Month != nil && (*p.Month < 0 || *p.Month > 11) {
		return fmt.Errorf("month %d must be in [0,11]", *p.Month)
	}
	if p.ClimateZone != "" {
		if _, ok := estimate.ParseClimateZone(string(p.ClimateZone)); !ok {
			return fmt.Errorf("unknown climate zone %q", p.ClimateZone)
		}
	}
	return nil
}

type Engine struct {
	est    *estimate.Estimator
	clock  clockwork.Clock
	mapper *h3mapper.Mapper
	log    *slog.Logger
}

type Option func(*Engine)

func WithClock(c clockwork.Clock) Option   { return func(e *Engine) { e.clock = c } }
func WithMapper(m *h3mapper.Mapper) Option { return func(e *Engine) { e.mapper = m } }
func WithLogger(l *slog.Logger) Option     { return func(e *Engine) { e.log = l } }

func NewEngine(est *estimate.Estimator, opts ...Option) *Engine {
	e := &Engine{
		est:    est,
		clock:  clockwork.NewRealClock(),
		mapper: h3mapper.New(h3mapper.DefaultRes),
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Assess runs estimate, score, index and recommend for loc. The only error is
// model.ErrInvalidLocation (or an invalid override).
func (e *Engine) Assess(loc model.Location, params Params) (model.RiskAssessment, error) {
	if err := loc.Validate(); err != nil {
		return model.RiskAssessment{}, err
	}
	if err := params.Validate(); err != nil {
		return model.RiskAssessment{}, err
	}

	now := e.clock.Now().UTC()
	month := int(now.Month()) - 1
	if params.Month != nil {
		month = *params.Month
	}

	p := e.est.Profile(loc, month)
	if params.ClimateZone != "" {
		p.ClimateZone = params.ClimateZone
	}
	return e.fromProfile(p, now), nil
}

func (e *Engine) fromProfile(p estimate.Profile, now time.Time) model.RiskAssessment {
	cats := map[model.Category]model.CategoryRisk{
		model.CategoryHeat:       Heat(p),
		model.CategoryFlood:      Flood(p),
		model.CategoryAirQuality: AirQuality(p),
		model.CategoryVegetation: Vegetation(p),
	}
	levels := make(map[model.Category]model.Level, len(cats))
	scores := make(map[model.Category]float64, len(cats))
	for c, r := range cats {
		levels[c] = r.Level
		scores[c] = r.Score
	}
	overallLevel, overallScore := Overall(cats)

	cell, err := e.mapper.CellForLocation(p.Location)
	if err != nil {
		e.log.Warn("h3 cell lookup failed", "lat", p.Location.Latitude, "lon", p.Location.Longitude, "err", err)
	}

	return model.RiskAssessment{
		Location:   p.Location,
		Timestamp:  now,
		Categories: cats,
		Factors:    levels,
		Scores:     scores,
		Indices: model.CompositeIndices{
			UrbanHeatIsland:   UrbanHeatIslandIndex(p),
			ClimateResilience: ClimateResilienceIndex(cats),
			Overall:           overallScore,
		},
		OverallRisk:            overallLevel,
		Confidence:             Confidence,
		Recommendations:        Recommendations(cats),
		InterventionPriorities: InterventionPriorities(cats),
		Metadata: model.AssessmentMetadata{
			Source:       model.SourceEstimated,
			ModelVersion: ModelVersion,
			ClimateZone:  string(p.ClimateZone),
			IsUrban:      p.IsUrban,
			Month:        p.Month,
			H3Cell:       cell,
		},
	}
}
