package intervention

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-shakir/climate-risk-cache/internal/cache/manager"
	"github.com/mohammed-shakir/climate-risk-cache/internal/core/model"
)

func TestCatalog_SixTypesSorted(t *testing.T) {
	c := Catalog()
	require.Len(t, c, 6)
	ids := make([]string, 0, len(c))
	for _, ty := range c {
		ids = append(ids, ty.ID)
	}
	assert.Equal(t, []string{
		CoolRoofs, GreenCorridors, GreenWalls, PermeableSurfaces, TreePlanting, Wetlands,
	}, ids)
}

func TestEstimate_Validation(t *testing.T) {
	_, err := Estimate("moat", Params{AreaM2: 10})
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = Estimate(TreePlanting, Params{AreaM2: 0})
	assert.ErrorIs(t, err, ErrInvalidArea)
	_, err = Estimate(TreePlanting, Params{AreaM2: -5})
	assert.ErrorIs(t, err, ErrInvalidArea)

	_, err = Estimate(TreePlanting, Params{AreaM2: 10, Location: &model.Location{Latitude: 100}})
	assert.ErrorIs(t, err, model.ErrInvalidLocation)
}

func TestEstimate_WithoutLocation(t *testing.T) {
	imp, err := Estimate(Wetlands, Params{AreaM2: 10000})
	require.NoError(t, err)

	assert.Equal(t, Wetlands, imp.Type)
	assert.InDelta(t, 0.6, imp.CoolingCelsius, 1e-12)
	assert.InDelta(t, 10000*1.0*0.6, imp.RunoffReductionM3, 1e-9)
	assert.InDelta(t, 4.0, imp.CO2SequesteredTonnes, 1e-12)
	assert.InDelta(t, 600000, imp.CapitalCostUSD, 1e-6)
	assert.InDelta(t, 18000, imp.AnnualMaintenanceUSD, 1e-6)
	assert.Empty(t, imp.ClimateZone)
}

func TestEstimate_CoolingIsCapped(t *testing.T) {
	imp, err := Estimate(TreePlanting, Params{AreaM2: 1_000_000})
	require.NoError(t, err)
	assert.Equal(t, 3.0, imp.CoolingCelsius)
}

func TestEstimate_ClimateZoneScalesVegetatedOnly(t *testing.T) {
	tropics := &model.Location{Latitude: 5, Longitude: 100}

	trees, err := Estimate(TreePlanting, Params{AreaM2: 10000, Location: tropics})
	require.NoError(t, err)
	assert.Equal(t, "tropical", trees.ClimateZone)
	assert.InDelta(t, 7.5*1.2, trees.CO2SequesteredTonnes, 1e-12)
	assert.InDelta(t, 10000*2.0*0.15, trees.RunoffReductionM3, 1e-9, "tropical rainfall band")

	roofs, err := Estimate(CoolRoofs, Params{AreaM2: 10000, Location: tropics})
	require.NoError(t, err)
	assert.InDelta(t, 0.8, roofs.CoolingCelsius, 1e-12)
}

func TestService_CachesByTypeAndParams(t *testing.T) {
	m := manager.New(nil)
	s := NewService(m, nil)

	first, cached, err := s.Impact(GreenWalls, Params{AreaM2: 500})
	require.NoError(t, err)
	assert.False(t, cached)

	second, cached, err := s.Impact(GreenWalls, Params{AreaM2: 500})
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, first, second)

	assert.Equal(t, []string{`green_walls_{"area_m2":500}`}, m.Keys(manager.Intervention))

	_, cached, err = s.Impact(GreenWalls, Params{AreaM2: 501})
	require.NoError(t, err)
	assert.False(t, cached)

	_, _, err = s.Impact("nope", Params{AreaM2: 1})
	assert.ErrorIs(t, err, ErrUnknownType)
}
