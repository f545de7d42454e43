package risk

import (
	"math"

	"github.com/mohammed-shakir/climate-risk-cache/internal/core/model"
	"github.com/mohammed-shakir/climate-risk-cache/internal/estimate"
)

// Category weights for the overall score. They sum to 1.
var Weights = map[model.Category]float64{
	model.CategoryHeat:       0.25,
	model.CategoryFlood:      0.30,
	model.CategoryAirQuality: 0.25,
	model.CategoryVegetation: 0.20,
}

// LevelScores is the coarse level-to-score table used by the resilience index.
var LevelScores = map[model.Level]float64{
	model.LevelLow:      0.2,
	model.LevelMedium:   0.5,
	model.LevelHigh:     0.8,
	model.LevelVeryHigh: 0.95,
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// bandLevel maps v onto 0.4/0.6/0.8 bands.
func bandLevel(v float64) model.Level {
	switch {
	case v >= 0.8:
		return model.LevelVeryHigh
	case v >= 0.6:
		return model.LevelHigh
	case v >= 0.4:
		return model.LevelMedium
	default:
		return model.LevelLow
	}
}

// AdjustedTemperature adds the urban boost and the seasonal factor to the
// latitude baseline.
func AdjustedTemperature(p estimate.Profile) float64 {
	t := p.AverageTemperature + p.SeasonalFactor
	if p.IsUrban {
		t += 2 + p.PopulationDensity/1000*0.5
	}
	return t
}

// HeatBand scores an adjusted temperature in °C. The level depends only on
// the band; the score ramps inside it.
func HeatBand(t float64) (model.Level, float64) {
	switch {
	case t >= 35:
		return model.LevelVeryHigh, math.Min(1, 0.9+0.02*(t-35))
	case t >= 30:
		return model.LevelHigh, 0.7 + 0.04*(t-30)
	case t >= 25:
		return model.LevelMedium, 0.4 + 0.06*(t-25)
	default:
		return model.LevelLow, clamp(0.4-(25-t)*0.03, 0.1, 0.4)
	}
}

func Heat(p estimate.Profile) model.CategoryRisk {
	t := AdjustedTemperature(p)
	level, score := HeatBand(t)
	boost := 0.0
	if p.IsUrban {
		boost = 2 + p.PopulationDensity/1000*0.5
	}
	return model.CategoryRisk{
		Level: level,
		Score: clamp(score, 0, 1),
		Factors: map[string]any{
			"adjustedTemperature": t,
			"averageTemperature":  p.AverageTemperature,
			"seasonalFactor":      p.SeasonalFactor,
			"urbanHeatBoost":      boost,
			"isUrban":             p.IsUrban,
		},
	}
}

// FloodAccumulator is the unclamped additive flood proxy.
func FloodAccumulator(p estimate.Profile) float64 {
	r := 0.1
	switch {
	case p.Elevation < 10:
		r += 0.4
	case p.Elevation < 20:
		r += 0.2
	}
	switch {
	case p.AnnualRainfall > 150:
		r += 0.3
	case p.AnnualRainfall > 100:
		r += 0.2
	}
	switch p.Drainage {
	case estimate.DrainagePoor:
		r += 0.2
	case estimate.DrainageFair:
		r += 0.1
	}
	r += p.CoastalProximity * 0.2
	r += p.ExtremeEventsProbability * 0.1
	return r
}

func Flood(p estimate.Profile) model.CategoryRisk {
	acc := FloodAccumulator(p)
	return model.CategoryRisk{
		Level: bandLevel(acc),
		Score: clamp(acc, 0, 1),
		Factors: map[string]any{
			"elevation":                p.Elevation,
			"annualRainfall":           p.AnnualRainfall,
			"drainageQuality":          string(p.Drainage),
			"coastalProximity":         p.CoastalProximity,
			"extremeEventsProbability": p.ExtremeEventsProbability,
		},
	}
}

func BaseAQI(p estimate.Profile) float64 {
	aqi := 30.0
	if p.IsUrban {
		aqi += 40
	}
	return aqi + p.IndustrialActivity*30 + p.TrafficDensity*25 - p.WindPatterns*10
}

func AQILevel(aqi float64) model.Level {
	switch {
	case aqi >= 200:
		return model.LevelVeryHigh
	case aqi >= 150:
		return model.LevelHigh
	case aqi >= 100:
		return model.LevelMedium
	default:
		return model.LevelLow
	}
}

func AirQuality(p estimate.Profile) model.CategoryRisk {
	aqi := BaseAQI(p)
	return model.CategoryRisk{
		Level: AQILevel(aqi),
		Score: clamp(aqi/200, 0.1, 1),
		Factors: map[string]any{
			"estimatedAQI":       aqi,
			"industrialActivity": p.IndustrialActivity,
			"trafficDensity":     p.TrafficDensity,
			"windPatterns":       p.WindPatterns,
		},
	}
}

func ClimateZoneFactor(z estimate.ClimateZone) float64 {
	switch z {
	case estimate.ZoneArid:
		return 0.5
	case estimate.ZoneTemperate:
		return 0.9
	case estimate.ZoneTropical:
		return 1.1
	default:
		return 1
	}
}

func BaseNDVI(p estimate.Profile) float64 {
	urban := 1.0
	if p.IsUrban {
		urban = 0.3
	}
	return 0.6 * urban * ClimateZoneFactor(p.ClimateZone) * (1 - p.LandUseIntensity*0.5)
}

func NDVILevel(ndvi float64) model.Level {
	switch {
	case ndvi < 0.1:
		return model.LevelVeryHigh
	case ndvi < 0.3:
		return model.LevelHigh
	case ndvi < 0.5:
		return model.LevelMedium
	default:
		return model.LevelLow
	}
}

func Vegetation(p estimate.Profile) model.CategoryRisk {
	ndvi := BaseNDVI(p)
	return model.CategoryRisk{
		Level: NDVILevel(ndvi),
		Score: clamp(1-ndvi, 0.1, 1),
		Factors: map[string]any{
			"estimatedNDVI":    ndvi,
			"climateZone":      string(p.ClimateZone),
			"landUseIntensity": p.LandUseIntensity,
			"isUrban":          p.IsUrban,
		},
	}
}

func UrbanHeatIslandIndex(p estimate.Profile) float64 {
	if !p.IsUrban {
		return 0
	}
	return math.Min(1, p.PopulationDensity/10000*0.4+p.BuildingDensity*0.4+(1-p.VegetationCover)*0.2)
}

// ClimateResilienceIndex is 1 minus the mean coarse level score.
func ClimateResilienceIndex(cats map[model.Category]model.CategoryRisk) float64 {
	if len(cats) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range model.Categories {
		sum += LevelScores[cats[c].Level]
	}
	return math.Max(0, 1-sum/float64(len(model.Categories)))
}

// Overall returns the weighted category score and its band level.
func Overall(cats map[model.Category]model.CategoryRisk) (model.Level, float64) {
	s := 0.0
	for _, c := range model.Categories {
		s += cats[c].Score * Weights[c]
	}
	return bandLevel(s), s
}
