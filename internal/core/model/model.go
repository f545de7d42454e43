// Package model defines core domain types shared across the service.
package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidLocation is returned for coordinates outside [-90,90] x [-180,180].
var ErrInvalidLocation = errors.New("invalid location")

var ErrInvalidDateRange = errors.New("invalid date range")

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (l Location) Validate() error {
	if math.IsNaN(l.Latitude) || l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v must be in [-90,90]", ErrInvalidLocation, l.Latitude)
	}
	if math.IsNaN(l.Longitude) || l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v must be in [-180,180]", ErrInvalidLocation, l.Longitude)
	}
	return nil
}

// DateRange uses YYYY-MM-DD strings; both ends are inclusive.
type DateRange struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

const DateLayout = "2006-01-02"

func (d DateRange) IsZero() bool { return d.StartDate == "" && d.EndDate == "" }

// Bounds parses both ends of the range.
func (d DateRange) Bounds() (time.Time, time.Time, error) {
	start, err := time.Parse(DateLayout, d.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start_date: %v", ErrInvalidDateRange, err)
	}
	end, err := time.Parse(DateLayout, d.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end_date: %v", ErrInvalidDateRange, err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end_date must not be before start_date", ErrInvalidDateRange)
	}
	return start, end, nil
}

type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelVeryHigh Level = "very_high"
)

// Category is one of the four independently scored risk dimensions.
type Category string

const (
	CategoryHeat       Category = "heat"
	CategoryFlood      Category = "flood"
	CategoryAirQuality Category = "airQuality"
	CategoryVegetation Category = "vegetation"
)

var Categories = []Category{CategoryHeat, CategoryFlood, CategoryAirQuality, CategoryVegetation}

type CategoryRisk struct {
	Level   Level          `json:"level"`
	Score   float64        `json:"score"`
	Factors map[string]any `json:"factors"`
}

type CompositeIndices struct {
	UrbanHeatIsland   float64 `json:"urbanHeatIsland"`
	ClimateResilience float64 `json:"climateResilience"`
	Overall           float64 `json:"overall"`
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type Recommendation struct {
	Type           string   `json:"type"`
	Priority       Priority `json:"priority"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Interventions  []string `json:"interventions"`
	ExpectedImpact Priority `json:"expectedImpact"`
}

type AssessmentMetadata struct {
	Source       string `json:"source"`
	ModelVersion string `json:"modelVersion"`
	ClimateZone  string `json:"climateZone"`
	IsUrban      bool   `json:"isUrban"`
	Month        int    `json:"month"`
	H3Cell       string `json:"h3Cell,omitempty"`
}

type RiskAssessment struct {
	Location               Location                  `json:"location"`
	Timestamp              time.Time                 `json:"timestamp"`
	Categories             map[Category]CategoryRisk `json:"categories"`
	Factors                map[Category]Level        `json:"factors"`
	Scores                 map[Category]float64      `json:"scores"`
	Indices                CompositeIndices          `json:"indices"`
	OverallRisk            Level                     `json:"overallRisk"`
	Confidence             float64                   `json:"confidence"`
	Recommendations        []Recommendation          `json:"recommendations"`
	InterventionPriorities map[string]float64        `json:"interventionPriorities"`
	Metadata               AssessmentMetadata        `json:"metadata"`
}

// DataCategory is one of the raw environmental datasets served by the envdata layer.
type DataCategory string

const (
	DataTemperature   DataCategory = "temperature"
	DataPrecipitation DataCategory = "precipitation"
	DataVegetation    DataCategory = "vegetation"
	DataElevation     DataCategory = "elevation"
	DataAirQuality    DataCategory = "airQuality"
)

var DataCategories = []DataCategory{DataTemperature, DataPrecipitation, DataVegetation, DataElevation, DataAirQuality}

func ParseDataCategory(s string) (DataCategory, bool) {
	for _, c := range DataCategories {
		if string(c) == s {
			return c, true
		}
	}
	// accept the snake_case spelling used by older clients
	if s == "air_quality" {
		return DataAirQuality, true
	}
	return "", false
}

const (
	SourceNASAPower = "nasa_power"
	SourceSynthetic = "synthetic"
	SourceEstimated = "estimated"
)

type Observation struct {
	Date   string             `json:"date"`
	Values map[string]float64 `json:"values"`
}

type DatasetMetadata struct {
	Source         string    `json:"source"`
	Parameters     []string  `json:"parameters"`
	ClimateZone    string    `json:"climateZone,omitempty"`
	GeneratedAt    time.Time `json:"generatedAt"`
	FallbackReason string    `json:"fallbackReason,omitempty"`
}

// Dataset is the common schema for upstream and synthetic environmental data.
type Dataset struct {
	Category  DataCategory       `json:"category"`
	Location  Location           `json:"location"`
	DateRange DateRange          `json:"dateRange"`
	Unit      string             `json:"unit"`
	Series    []Observation      `json:"series"`
	Summary   map[string]float64 `json:"summary"`
	Metadata  DatasetMetadata    `json:"metadata"`
}
