// Package intervention holds the nature-based intervention catalog and
// rough per-site impact estimates.
package intervention

import (
	"errors"
	"sort"
)

const (
	TreePlanting      = "tree_planting"
	CoolRoofs         = "cool_roofs"
	GreenWalls        = "green_walls"
	Wetlands          = "wetlands"
	PermeableSurfaces = "permeable_surfaces"
	GreenCorridors    = "green_corridors"
)

var (
	ErrUnknownType = errors.New("unknown intervention type")
	ErrInvalidArea = errors.New("area must be a positive number of square metres")
)

// Type describes one intervention. Rates are per hectare per year unless noted.
type Type struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Addresses   []string `json:"addresses"`
	Vegetated   bool     `json:"vegetated"`

	CoolingPerHa   float64 `json:"coolingCelsiusPerHa"`
	MaxCooling     float64 `json:"maxCoolingCelsius"`
	RunoffFraction float64 `json:"runoffReductionFraction"`
	PMKgPerHa      float64 `json:"pmRemovalKgPerHa"`
	CO2TonnesPerHa float64 `json:"co2TonnesPerHa"`
	CostPerM2      float64 `json:"costPerM2USD"`
	LifespanYears  int     `json:"lifespanYears"`
	MaintenancePct float64 `json:"annualMaintenanceFraction"`
}

var catalog = map[string]Type{
	TreePlanting: {
		ID:             TreePlanting,
		Name:           "Urban tree planting",
		Description:    "Street and park trees providing shade, evapotranspiration and particulate capture.",
		Addresses:      []string{"heat", "airQuality", "vegetation"},
		Vegetated:      true,
		CoolingPerHa:   1.2,
		MaxCooling:     3.0,
		RunoffFraction: 0.15,
		PMKgPerHa:      25,
		CO2TonnesPerHa: 7.5,
		CostPerM2:      12,
		LifespanYears:  40,
		MaintenancePct: 0.05,
	},
	CoolRoofs: {
		ID:             CoolRoofs,
		Name:           "Cool roofs",
		Description:    "High-albedo roof coatings that reflect solar radiation.",
		Addresses:      []string{"heat"},
		CoolingPerHa:   0.8,
		MaxCooling:     1.5,
		RunoffFraction: 0,
		PMKgPerHa:      0,
		CO2TonnesPerHa: 1.1,
		CostPerM2:      25,
		LifespanYears:  20,
		MaintenancePct: 0.02,
	},
	GreenWalls: {
		ID:             GreenWalls,
		Name:           "Green walls",
		Description:    "Vegetated facades that insulate buildings and filter street-level air.",
		Addresses:      []string{"heat", "airQuality"},
		Vegetated:      true,
		CoolingPerHa:   0.9,
		MaxCooling:     2.0,
		RunoffFraction: 0.05,
		PMKgPerHa:      15,
		CO2TonnesPerHa: 2.0,
		CostPerM2:      400,
		LifespanYears:  25,
		MaintenancePct: 0.08,
	},
	Wetlands: {
		ID:             Wetlands,
		Name:           "Constructed wetlands",
		Description:    "Engineered wetlands that store and slowly release stormwater.",
		Addresses:      []string{"flood", "vegetation"},
		Vegetated:      true,
		CoolingPerHa:   0.6,
		MaxCooling:     2.0,
		RunoffFraction: 0.6,
		PMKgPerHa:      5,
		CO2TonnesPerHa: 4.0,
		CostPerM2:      60,
		LifespanYears:  50,
		MaintenancePct: 0.03,
	},
	PermeableSurfaces: {
		ID:             PermeableSurfaces,
		Name:           "Permeable surfaces",
		Description:    "Porous paving that lets rainfall infiltrate instead of running off.",
		Addresses:      []string{"flood"},
		CoolingPerHa:   0.3,
		MaxCooling:     0.8,
		RunoffFraction: 0.45,
		PMKgPerHa:      0,
		CO2TonnesPerHa: 0,
		CostPerM2:      90,
		LifespanYears:  25,
		MaintenancePct: 0.04,
	},
	GreenCorridors: {
		ID:             GreenCorridors,
		Name:           "Green corridors",
		Description:    "Linear connected green spaces linking parks and habitats.",
		Addresses:      []string{"heat", "flood", "airQuality", "vegetation"},
		Vegetated:      true,
		CoolingPerHa:   1.0,
		MaxCooling:     2.5,
		RunoffFraction: 0.3,
		PMKgPerHa:      18,
		CO2TonnesPerHa: 5.5,
		CostPerM2:      35,
		LifespanYears:  40,
		MaintenancePct: 0.05,
	},
}

func Lookup(id string) (Type, bool) {
	t, ok := catalog[id]
	return t, ok
}

// Catalog returns every type ordered by id.
func Catalog() []Type {
	out := make([]Type, 0, len(catalog))
	for _, t := range catalog {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
