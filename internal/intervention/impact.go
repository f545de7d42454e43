package intervention

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/mohammed-shakir/climate-risk-cache/internal/cache/keys"
	"github.com/mohammed-shakir/climate-risk-cache/internal/cache/manager"
	"github.com/mohammed-shakir/climate-risk-cache/internal/core/model"
	"github.com/mohammed-shakir/climate-risk-cache/internal/estimate"
)

// defaultRainfall is used for runoff when no location is given.
const defaultRainfall = 100.0

type Params struct {
	AreaM2   float64
	Location *model.Location
}

func (p Params) cacheParams() map[string]any {
	m := map[string]any{"area_m2": p.AreaM2}
	if p.Location != nil {
		m["lat"] = p.Location.Latitude
		m["lon"] = p.Location.Longitude
	}
	return m
}

type Impact struct {
	Type                 string  `json:"type"`
	AreaM2               float64 `json:"areaM2"`
	ClimateZone          string  `json:"climateZone,omitempty"`
	CoolingCelsius       float64 `json:"coolingCelsius"`
	RunoffReductionM3    float64 `json:"runoffReductionM3PerYear"`
	PMRemovalKg          float64 `json:"pmRemovalKgPerYear"`
	CO2SequesteredTonnes float64 `json:"co2SequesteredTonnesPerYear"`
	CapitalCostUSD       float64 `json:"capitalCostUSD"`
	AnnualMaintenanceUSD float64 `json:"annualMaintenanceUSD"`
	LifespanYears        int     `json:"lifespanYears"`
}

// zoneMultiplier scales vegetated interventions by growing conditions.
func zoneMultiplier(z estimate.ClimateZone) float64 {
	switch z {
	case estimate.ZoneTropical:
		return 1.2
	case estimate.ZoneSubtropical:
		return 1.1
	case estimate.ZonePolar:
		return 0.6
	case estimate.ZoneArid:
		return 0.7
	default:
		return 1
	}
}

// Estimate is a pure function of its inputs.
func Estimate(id string, p Params) (Impact, error) {
	t, ok := Lookup(id)
	if !ok {
		return Impact{}, fmt.Errorf("%w: %q", ErrUnknownType, id)
	}
	if !(p.AreaM2 > 0) || math.IsInf(p.AreaM2, 0) {
		return Impact{}, ErrInvalidArea
	}

	rainfall := defaultRainfall
	mult := 1.0
	zone := ""
	if p.Location != nil {
		if err := p.Location.Validate(); err != nil {
			return Impact{}, err
		}
		rainfall = estimate.AnnualRainfall(p.Location.Latitude)
		z := estimate.ClimateZoneFor(p.Location.Latitude)
		zone = string(z)
		if t.Vegetated {
			mult = zoneMultiplier(z)
		}
	}

	ha := p.AreaM2 / 10000
	capital := p.AreaM2 * t.CostPerM2
	return Impact{
		Type:                 t.ID,
		AreaM2:               p.AreaM2,
		ClimateZone:          zone,
		CoolingCelsius:       math.Min(t.MaxCooling, t.CoolingPerHa*ha*mult),
		RunoffReductionM3:    p.AreaM2 * rainfall / 100 * t.RunoffFraction,
		PMRemovalKg:          ha * t.PMKgPerHa * mult,
		CO2SequesteredTonnes: ha * t.CO2TonnesPerHa * mult,
		CapitalCostUSD:       capital,
		AnnualMaintenanceUSD: capital * t.MaintenancePct,
		LifespanYears:        t.LifespanYears,
	}, nil
}

// Service caches estimates in the intervention partition.
type Service struct {
	cache *manager.Manager
	log   *slog.Logger
}

func NewService(cache *manager.Manager, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{cache: cache, log: log}
}

// Impact returns the estimate and whether it came from cache.
func (s *Service) Impact(id string, p Params) (Impact, bool, error) {
	key := keys.Intervention(id, p.cacheParams())
	if s.cache != nil {
		if v, ok := manager.GetAs[Impact](s.cache, manager.Intervention, key); ok {
			return v, true, nil
		}
	}
	imp, err := Estimate(id, p)
	if err != nil {
		return Impact{}, false, err
	}
	if s.cache != nil {
		s.cache.Set(manager.Intervention, key, imp, 0)
	}
	s.log.Debug("intervention impact computed", "type", id, "area_m2", p.AreaM2)
	return imp, false, nil
}
