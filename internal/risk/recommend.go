package risk

import (
	"github.com/mohammed-shakir/climate-risk-cache/internal/core/model"
	"github.com/mohammed-shakir/climate-risk-cache/internal/intervention"
)

type template struct {
	typ           string
	title         string
	description   string
	interventions []string
	impact        model.Priority
}

var templates = map[model.Category]template{
	model.CategoryHeat: {
		typ:         "heat_mitigation",
		title:       "Reduce urban heat exposure",
		description: "High heat risk detected. Increase shading and reflective surfaces to lower surface and air temperatures.",
		interventions: []string{
			intervention.TreePlanting, intervention.CoolRoofs, intervention.GreenWalls,
		},
		impact: model.PriorityHigh,
	},
	model.CategoryFlood: {
		typ:         "flood_management",
		title:       "Improve stormwater retention",
		description: "High flood risk detected. Add natural retention and infiltration capacity to reduce runoff peaks.",
		interventions: []string{
			intervention.Wetlands, intervention.PermeableSurfaces, intervention.GreenCorridors,
		},
		impact: model.PriorityHigh,
	},
	model.CategoryAirQuality: {
		typ:         "air_quality",
		title:       "Improve local air quality",
		description: "Poor estimated air quality. Vegetation barriers and green infrastructure can filter particulates near sources.",
		interventions: []string{
			intervention.TreePlanting, intervention.GreenWalls, intervention.GreenCorridors,
		},
		impact: model.PriorityMedium,
	},
	model.CategoryVegetation: {
		typ:         "vegetation_enhancement",
		title:       "Restore vegetation cover",
		description: "Low estimated vegetation cover. Expand connected green space to recover canopy and habitat.",
		interventions: []string{
			intervention.TreePlanting, intervention.GreenCorridors, intervention.Wetlands,
		},
		impact: model.PriorityHigh,
	},
}

// Recommendations emits one template per category at high or very_high, in
// category order.
func Recommendations(cats map[model.Category]model.CategoryRisk) []model.Recommendation {
	out := make([]model.Recommendation, 0, len(model.Categories))
	for _, c := range model.Categories {
		lvl := cats[c].Level
		if lvl != model.LevelHigh && lvl != model.LevelVeryHigh {
			continue
		}
		tpl := templates[c]
		prio := model.PriorityMedium
		if lvl == model.LevelVeryHigh {
			prio = model.PriorityHigh
		}
		out = append(out, model.Recommendation{
			Type:           tpl.typ,
			Priority:       prio,
			Title:          tpl.title,
			Description:    tpl.description,
			Interventions:  append([]string(nil), tpl.interventions...),
			ExpectedImpact: tpl.impact,
		})
	}
	return out
}

const (
	HeatReduction           = "heat_reduction"
	FloodMitigation         = "flood_mitigation"
	AirQualityImprovement   = "air_quality_improvement"
	BiodiversityEnhancement = "biodiversity_enhancement"
)

// InterventionPriorities returns weights that always sum to 1.
func InterventionPriorities(cats map[model.Category]model.CategoryRisk) map[string]float64 {
	heat := cats[model.CategoryHeat].Score
	flood := cats[model.CategoryFlood].Score
	aq := cats[model.CategoryAirQuality].Score
	veg := cats[model.CategoryVegetation].Score

	raw := []struct {
		k string
		v float64
	}{
		{HeatReduction, 0.4*heat + 0.2*veg},
		{FloodMitigation, 0.5*flood + 0.1*veg},
		{AirQualityImprovement, 0.4*aq + 0.2*veg},
		{BiodiversityEnhancement, 0.5*veg + 0.1*flood},
	}
	total := 0.0
	for _, r := range raw {
		total += r.v
	}

	out := make(map[string]float64, len(raw))
	for _, r := range raw {
		if total <= 0 {
			out[r.k] = 1 / float64(len(raw))
			continue
		}
		out[r.k] = r.v / total
	}
	return out
}
