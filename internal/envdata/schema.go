package envdata

import (
	"math"
	"time"

	"github.com/mohammed-shakir/climate-risk-cache/internal/core/model"
	"github.com/mohammed-shakir/climate-risk-cache/internal/nasa"
)

const powerDateLayout = "20060102"

type field struct {
	param string
	name  string
}

type schema struct {
	unit   string
	fields []field
}

// schemas maps each category to the value names every Dataset uses,
// whether it came from POWER or from a generator.
var schemas = map[model.DataCategory]schema{
	model.DataTemperature: {unit: "°C", fields: []field{
		{param: "T2M", name: "mean"},
		{param: "T2M_MAX", name: "max"},
		{param: "T2M_MIN", name: "min"},
	}},
	model.DataPrecipitation: {unit: "mm/day", fields: []field{
		{param: "PRECTOTCORR", name: "precipitation"},
	}},
	model.DataVegetation: {unit: "fraction", fields: []field{
		{param: "GWETROOT", name: "rootZoneWetness"},
		{param: "GWETTOP", name: "surfaceWetness"},
	}},
	model.DataAirQuality: {unit: "dimensionless", fields: []field{
		{param: "AOD_55", name: "aerosolOpticalDepth"},
	}},
	model.DataElevation: {unit: "m", fields: []field{
		{name: "elevation"},
	}},
}

func fieldNames(cat model.DataCategory) []string {
	fs := schemas[cat].fields
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.name
	}
	return out
}

// mapRecord converts a POWER record into the common schema. Fill values are
// dropped; a record with no usable day is a shape error.
func mapRecord(cat model.DataCategory, loc model.Location, dr model.DateRange, rec nasa.RawRecord) (model.Dataset, error) {
	sc := schemas[cat]
	ds := model.Dataset{
		Category:  cat,
		Location:  loc,
		DateRange: dr,
		Unit:      sc.unit,
		Series:    []model.Observation{},
	}

	if cat == model.DataElevation {
		if rec.Elevation == rec.FillValue || math.IsNaN(rec.Elevation) {
			return model.Dataset{}, &nasa.UpstreamShapeError{Reason: "elevation is a fill value"}
		}
		ds.Summary = map[string]float64{"elevation": rec.Elevation}
		return ds, nil
	}

	for _, d := range rec.Dates(sc.fields[0].param) {
		day, err := time.Parse(powerDateLayout, d)
		if err != nil {
			return model.Dataset{}, &nasa.UpstreamShapeError{Reason: "bad date key " + d, Err: err}
		}
		vals := make(map[string]float64, len(sc.fields))
		for _, f := range sc.fields {
			v, ok := rec.Parameters[f.param][d]
			if !ok || v == rec.FillValue {
				continue
			}
			vals[f.name] = v
		}
		if len(vals) == 0 {
			continue
		}
		ds.Series = append(ds.Series, model.Observation{Date: day.Format(model.DateLayout), Values: vals})
	}
	if len(ds.Series) == 0 {
		return model.Dataset{}, &nasa.UpstreamShapeError{Reason: "no valid observations"}
	}
	ds.Summary = summarize(cat, ds.Series)
	return ds, nil
}

// summarize averages every value name over the series. Precipitation also
// reports the total.
func summarize(cat model.DataCategory, series []model.Observation) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, o := range series {
		for k, v := range o.Values {
			sums[k] += v
			counts[k]++
		}
	}
	out := make(map[string]float64, len(sums)+2)
	for k, s := range sums {
		out[k] = s / float64(counts[k])
	}
	if cat == model.DataPrecipitation {
		out["total"] = sums["precipitation"]
	}
	out["days"] = float64(len(series))
	return out
}
