package envdata

import (
	"math"
	"time"

	"github.com/mohammed-shakir/climate-risk-cache/internal/core/model"
	"github.com/mohammed-shakir/climate-risk-cache/internal/estimate"
)

// MaxSyntheticDays caps generated series; longer ranges keep the most recent days.
const MaxSyntheticDays = 366

// InMonsoonRegion reports whether the point lies in the South/Southeast Asian
// monsoon box.
func InMonsoonRegion(lat, lon float64) bool {
	return lat >= 5 && lat <= 35 && lon >= 60 && lon <= 120
}

func monsoonSeason(m time.Month) bool {
	return m >= time.June && m <= time.September
}

// seasonal is +1 at the local midsummer and -1 at midwinter.
func seasonal(lat float64, day time.Time) float64 {
	s := math.Cos(2 * math.Pi * float64(day.YearDay()-196) / 365.25)
	if lat < 0 {
		return -s
	}
	return s
}

type zoneBaseline struct {
	tempAmplitude float64
	rainPerDay    float64
	wetProb       float64
	soilWetness   float64
	aod           float64
}

var baselines = map[estimate.ClimateZone]zoneBaseline{
	estimate.ZoneTropical:    {tempAmplitude: 2, rainPerDay: 6, wetProb: 0.5, soilWetness: 0.7, aod: 0.3},
	estimate.ZoneSubtropical: {tempAmplitude: 6, rainPerDay: 3, wetProb: 0.35, soilWetness: 0.5, aod: 0.25},
	estimate.ZoneTemperate:   {tempAmplitude: 10, rainPerDay: 2.2, wetProb: 0.4, soilWetness: 0.6, aod: 0.15},
	estimate.ZonePolar:       {tempAmplitude: 15, rainPerDay: 0.8, wetProb: 0.3, soilWetness: 0.4, aod: 0.05},
	estimate.ZoneArid:        {tempAmplitude: 8, rainPerDay: 0.3, wetProb: 0.08, soilWetness: 0.15, aod: 0.4},
}

type generator struct {
	est *estimate.Estimator
	rnd estimate.Rand
}

func newGenerator(r estimate.Rand) *generator {
	return &generator{est: estimate.New(r), rnd: r}
}

func (g *generator) noise(width float64) float64 {
	return (g.rnd.Float64() - 0.5) * width
}

// days lists every day of [start, end], capped to the last MaxSyntheticDays.
func days(start, end time.Time) []time.Time {
	if n := int(end.Sub(start).Hours()/24) + 1; n > MaxSyntheticDays {
		start = end.AddDate(0, 0, -(MaxSyntheticDays - 1))
	}
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// Generate builds a structurally complete dataset for any valid input.
func (g *generator) Generate(cat model.DataCategory, loc model.Location, start, end time.Time) model.Dataset {
	zone := estimate.ClimateZoneFor(loc.Latitude)
	base := baselines[zone]
	ds := model.Dataset{
		Category: cat,
		Location: loc,
		DateRange: model.DateRange{
			StartDate: start.Format(model.DateLayout),
			EndDate:   end.Format(model.DateLayout),
		},
		Unit:   schemas[cat].unit,
		Series: []model.Observation{},
		Metadata: model.DatasetMetadata{
			Source:      model.SourceSynthetic,
			Parameters:  fieldNames(cat),
			ClimateZone: string(zone),
		},
	}

	if cat == model.DataElevation {
		ds.Summary = map[string]float64{"elevation": g.est.Elevation(loc.Latitude, loc.Longitude)}
		return ds
	}

	monsoon := InMonsoonRegion(loc.Latitude, loc.Longitude)
	urban := g.est.IsUrbanArea(loc.Latitude, loc.Longitude)
	for _, d := range days(start, end) {
		var vals map[string]float64
		boosted := monsoon && monsoonSeason(d.Month())
		switch cat {
		case model.DataTemperature:
			vals = g.temperature(loc.Latitude, d, base)
		case model.DataPrecipitation:
			vals = g.precipitation(base, boosted)
		case model.DataVegetation:
			vals = g.vegetation(loc.Latitude, d, base, boosted)
		case model.DataAirQuality:
			vals = g.airQuality(base, urban, boosted)
		}
		ds.Series = append(ds.Series, model.Observation{Date: d.Format(model.DateLayout), Values: vals})
	}
	ds.Summary = summarize(cat, ds.Series)
	return ds
}

func (g *generator) temperature(lat float64, d time.Time, base zoneBaseline) map[string]float64 {
	mean := estimate.AverageTemperature(lat) + seasonal(lat, d)*base.tempAmplitude + g.noise(4)
	return map[string]float64{
		"mean": mean,
		"max":  mean + 4 + g.rnd.Float64()*3,
		"min":  mean - 4 - g.rnd.Float64()*3,
	}
}

func (g *generator) precipitation(base zoneBaseline, monsoon bool) map[string]float64 {
	wetProb, perDay := base.wetProb, base.rainPerDay
	if monsoon {
		wetProb, perDay = 0.8, perDay*3
	}
	amount := 0.0
	if g.rnd.Float64() < wetProb {
		amount = perDay * 2 * g.rnd.Float64()
	}
	return map[string]float64{"precipitation": amount}
}

func (g *generator) vegetation(lat float64, d time.Time, base zoneBaseline, monsoon bool) map[string]float64 {
	root := base.soilWetness + seasonal(lat, d)*0.1 + g.noise(0.1)
	if monsoon {
		root += 0.15
	}
	root = clamp01(root)
	return map[string]float64{
		"rootZoneWetness": root,
		"surfaceWetness":  clamp01(root*0.8 + g.noise(0.1)),
	}
}

func (g *generator) airQuality(base zoneBaseline, urban, monsoon bool) map[string]float64 {
	aod := base.aod + g.rnd.Float64()*0.1
	if urban {
		aod += 0.25
	}
	if monsoon {
		// washout
		aod *= 0.6
	}
	return map[string]float64{"aerosolOpticalDepth": aod}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
