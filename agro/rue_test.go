package agro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRUEByDaysSegments(t *testing.T) {
	table := DefaultRUETable()

	cases := []struct {
		days int
		want float64
	}{
		{0, 2.0},
		{19, 2.0},
		{20, 2.4},
		{44, 2.4},
		{45, 2.7},
		{74, 2.7},
		{75, 2.6},
		{104, 2.6},
		{105, 2.3},
		{124, 2.3},
		{125, 2.0},
		{144, 2.0},
		{145, 1.8},
		{400, 1.8},
	}
	for _, c := range cases {
		got, err := table.ByDays(c.days)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "day %d", c.days)
	}
}

func TestRUEByDaysNegative(t *testing.T) {
	table := DefaultRUETable()
	_, err := table.ByDays(-1)
	assert.Error(t, err)
}

func TestRUEByStage(t *testing.T) {
	table := DefaultRUETable()

	assert.Equal(t, 2.7, table.ByStage("Stem Extension"))
	assert.Equal(t, 2.7, table.ByStage("Stem Extension (Zadoks 30)"))
	assert.Equal(t, 2.6, table.ByStage("Heading"))
	assert.Equal(t, 2.6, table.ByStage("Anthesis"))
	assert.Equal(t, 2.6, table.ByStage("Flowering"))
	assert.Equal(t, 2.2, table.ByStage("Grain Fill (Zadoks 71-87)"))
	assert.Equal(t, 1.8, table.ByStage("Maturity"))

	// Unrecognized names fall back to the flat average.
	assert.Equal(t, 2.4, table.ByStage("Dormancy"))
	assert.Equal(t, 2.4, table.ByStage(""))
}

func TestRUETableValidate(t *testing.T) {
	require.NoError(t, DefaultRUETable().Validate())

	bad := DefaultRUETable()
	bad.Days[2].RUE = -2.7
	assert.Error(t, bad.Validate())

	gap := DefaultRUETable()
	gap.Days[1].FromDay = 25
	assert.Error(t, gap.Validate())

	empty := RUETable{Fallback: 2.4}
	assert.Error(t, empty.Validate())
}
