package h3mapper

import (
	"fmt"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/climate-risk-cache/internal/core/model"
)

// DefaultRes is roughly neighbourhood scale (~0.7 km² per cell).
const DefaultRes = 8

type Mapper struct {
	res int
}

// New returns a mapper at res; an out-of-range res falls back to DefaultRes.
func New(res int) *Mapper {
	if validateRes(res) != nil {
		res = DefaultRes
	}
	return &Mapper{res: res}
}

func (m *Mapper) Res() int { return m.res }

// CellForLocation returns the H3 index (hex string) containing loc.
func (m *Mapper) CellForLocation(loc model.Location) (string, error) {
	return CellAt(loc, m.res)
}

func CellAt(loc model.Location, res int) (string, error) {
	if err := validateRes(res); err != nil {
		return "", err
	}
	if err := loc.Validate(); err != nil {
		return "", err
	}
	c, err := h3.LatLngToCell(h3.LatLng{Lat: loc.Latitude, Lng: loc.Longitude}, res)
	if err != nil {
		return "", fmt.Errorf("h3 latlng to cell: %w", err)
	}
	return c.String(), nil
}

// DistanceKm is the great-circle (haversine) distance between a and b.
func DistanceKm(a, b model.Location) float64 {
	return h3.GreatCircleDistanceKm(
		h3.LatLng{Lat: a.Latitude, Lng: a.Longitude},
		h3.LatLng{Lat: b.Latitude, Lng: b.Longitude},
	)
}

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}
