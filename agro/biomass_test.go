package agro

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constantRadiation(start time.Time, days int, par float64) []RadiationObservation {
	out := make([]RadiationObservation, days)
	for i := range out {
		out[i] = RadiationObservation{Date: start.AddDate(0, 0, i), PARMJ: par}
	}
	return out
}

func TestAccumulateBiomassWalk(t *testing.T) {
	sowing := day(2025, 6, 1)
	fapar := []Sample{
		{Date: sowing, Value: 0.2},
		{Date: sowing.AddDate(0, 0, 1), Value: 0.3},
		{Date: sowing.AddDate(0, 0, 2), Value: 0.4},
	}
	rad := constantRadiation(sowing, 3, 10)

	records, gaps, err := AccumulateBiomass(fapar, rad, sowing, DefaultRUETable())
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Empty(t, gaps)

	// Day 0: fapar 0.2 × PAR 10 × RUE 2.0.
	assert.Equal(t, 0, records[0].DaysAfterSowing)
	assert.InDelta(t, 2.0, records[0].AbsorbedPAR, 1e-9)
	assert.InDelta(t, 4.0, records[0].DailyBiomass, 1e-9)
	assert.InDelta(t, 4.0, records[0].Cumulative, 1e-9)

	assert.InDelta(t, 6.0, records[1].DailyBiomass, 1e-9)
	assert.InDelta(t, 10.0, records[1].Cumulative, 1e-9)
	assert.InDelta(t, 18.0, records[2].Cumulative, 1e-9)
}

func TestAccumulateBiomassNonNegativeMonotonic(t *testing.T) {
	sowing := day(2025, 6, 1)
	fapar := make([]Sample, 40)
	for i := range fapar {
		fapar[i] = Sample{Date: sowing.AddDate(0, 0, i), Value: float64(i%10) / 10}
	}
	rad := constantRadiation(sowing, 40, 8.5)

	records, _, err := AccumulateBiomass(fapar, rad, sowing, DefaultRUETable())
	require.NoError(t, err)

	prev := 0.0
	for _, r := range records {
		assert.GreaterOrEqual(t, r.DailyBiomass, 0.0)
		assert.GreaterOrEqual(t, r.Cumulative, prev)
		prev = r.Cumulative
	}
}

func TestAccumulateBiomassDropsUnjoinedDays(t *testing.T) {
	sowing := day(2025, 6, 1)
	fapar := []Sample{
		{Date: sowing, Value: 0.2},
		{Date: sowing.AddDate(0, 0, 1), Value: 0.3},
		{Date: sowing.AddDate(0, 0, 2), Value: 0.4},
	}
	// Radiation missing on day 1, extra on day 3.
	rad := []RadiationObservation{
		{Date: sowing, PARMJ: 10},
		{Date: sowing.AddDate(0, 0, 2), PARMJ: 10},
		{Date: sowing.AddDate(0, 0, 3), PARMJ: 10},
	}

	records, gaps, err := AccumulateBiomass(fapar, rad, sowing, DefaultRUETable())
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Len(t, gaps, 1)
	assert.Equal(t, sowing.AddDate(0, 0, 1), gaps[0].Date)
	assert.Equal(t, "radiation", gaps[0].Missing)

	// The dropped day contributes nothing; the walk continues.
	assert.InDelta(t, 4.0, records[0].Cumulative, 1e-9)
	assert.InDelta(t, 12.0, records[1].Cumulative, 1e-9)
	assert.Equal(t, 2, records[1].DaysAfterSowing)
}

func TestAccumulateBiomassReportsMissingVegetation(t *testing.T) {
	sowing := day(2025, 6, 1)
	fapar := []Sample{
		{Date: sowing, Value: 0.2},
		{Date: sowing.AddDate(0, 0, 2), Value: 0.4},
	}
	rad := constantRadiation(sowing, 3, 10)

	_, gaps, err := AccumulateBiomass(fapar, rad, sowing, DefaultRUETable())
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	assert.Equal(t, sowing.AddDate(0, 0, 1), gaps[0].Date)
	assert.Equal(t, "vegetation", gaps[0].Missing)
}

func TestAccumulateBiomassNoOverlap(t *testing.T) {
	sowing := day(2025, 6, 1)
	fapar := []Sample{
		{Date: sowing, Value: 0.2},
		{Date: sowing.AddDate(0, 0, 1), Value: 0.3},
	}
	rad := constantRadiation(day(2025, 8, 1), 5, 10)

	records, _, err := AccumulateBiomass(fapar, rad, sowing, DefaultRUETable())
	assert.True(t, errors.Is(err, ErrNoOverlap))
	assert.Nil(t, records)
}

func TestAccumulateBiomassSkipsPreSowingDays(t *testing.T) {
	sowing := day(2025, 6, 10)
	fapar := []Sample{
		{Date: day(2025, 6, 8), Value: 0.5},
		{Date: sowing, Value: 0.2},
		{Date: sowing.AddDate(0, 0, 1), Value: 0.3},
	}
	rad := constantRadiation(day(2025, 6, 8), 10, 10)

	records, _, err := AccumulateBiomass(fapar, rad, sowing, DefaultRUETable())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 0, records[0].DaysAfterSowing)
}
