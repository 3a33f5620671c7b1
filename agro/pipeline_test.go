package agro

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// risingSeason builds a 5-observation weekly NDVI series rising from 0.3 to
// 0.85 with constant daily PAR over the same window.
func risingSeason(fieldID string) FieldSeries {
	sowing := day(2025, 6, 1)
	ndvi := []float64{0.3, 0.45, 0.6, 0.75, 0.85}
	veg := make([]VegetationObservation, len(ndvi))
	for i, v := range ndvi {
		veg[i] = VegetationObservation{Date: sowing.AddDate(0, 0, 7*i), IndexMean: v}
	}
	return FieldSeries{
		FieldID:    fieldID,
		SowingDate: sowing,
		EndDate:    sowing.AddDate(0, 0, 34),
		Vegetation: veg,
		Radiation:  constantRadiation(sowing, 35, 10),
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	p, err := NewPipeline(DefaultConfig())
	require.NoError(t, err)

	res := p.Run(risingSeason("campo-1"))
	require.NoError(t, res.Err)
	require.NotNil(t, res.Estimate)
	require.Len(t, res.Curve, 35)

	prev := 0.0
	for _, r := range res.Curve {
		assert.GreaterOrEqual(t, r.Cumulative, prev)
		prev = r.Cumulative
	}
	assert.Greater(t, res.Estimate.GrainYieldTonHa, 0.0)
	assert.Less(t, res.Estimate.GrainYieldTonHa, 15.0)
	assert.Equal(t, 0.45, res.Estimate.HarvestIndexUsed)
	assert.Empty(t, res.Gaps)
}

func TestPipelineInsufficientData(t *testing.T) {
	p, err := NewPipeline(DefaultConfig())
	require.NoError(t, err)

	fs := risingSeason("campo-2")
	fs.Vegetation = fs.Vegetation[:1]

	res := p.Run(fs)
	assert.True(t, errors.Is(res.Err, ErrInsufficientData))
	assert.Nil(t, res.Estimate)
	assert.Nil(t, res.Curve)
}

func TestPipelineNoRadiationOverlap(t *testing.T) {
	p, err := NewPipeline(DefaultConfig())
	require.NoError(t, err)

	fs := risingSeason("campo-3")
	fs.Radiation = constantRadiation(day(2026, 1, 1), 10, 10)

	res := p.Run(fs)
	assert.True(t, errors.Is(res.Err, ErrNoOverlap))
	assert.Nil(t, res.Estimate)
}

func TestPipelineEndBeforeSowing(t *testing.T) {
	p, err := NewPipeline(DefaultConfig())
	require.NoError(t, err)

	fs := risingSeason("campo-4")
	fs.EndDate = fs.SowingDate.AddDate(0, 0, -1)
	res := p.Run(fs)
	assert.Error(t, res.Err)
}

func TestPipelineCleansBeforeConverting(t *testing.T) {
	p, err := NewPipeline(DefaultConfig())
	require.NoError(t, err)

	fs := risingSeason("campo-5")
	fs.Vegetation[2].IndexMean = 0.05 // cloud dip mid-season

	res := p.Run(fs)
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.OutliersReplaced)
	assert.True(t, res.Cleaned[2].WasOutlier)
	assert.Greater(t, res.Cleaned[2].IndexMean, 0.45)
	assert.Less(t, res.Cleaned[2].IndexMean, 0.75)
}

func TestPipelineQuarantinesSaturation(t *testing.T) {
	p, err := NewPipeline(DefaultConfig())
	require.NoError(t, err)

	p50 := 0.8
	fs := risingSeason("campo-6")
	fs.Vegetation[4].IndexMean = 1.0
	fs.Vegetation[4].P50 = &p50

	res := p.Run(fs)
	require.NoError(t, res.Err)
	require.Len(t, res.Corrections, 1)
	assert.Equal(t, 1.0, res.Corrections[0].Before)
	assert.Equal(t, 0.8, res.Corrections[0].After)
	assert.Equal(t, 0.8, res.Cleaned[4].IndexMean)
}

func TestPipelineConfigFailsFast(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Harvest.Value = -0.45
	_, err := NewPipeline(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.RUE.Days[0].RUE = 0
	_, err = NewPipeline(cfg)
	assert.Error(t, err)
}

func TestRunBatchIsolatesFailures(t *testing.T) {
	p, err := NewPipeline(DefaultConfig())
	require.NoError(t, err)

	bad := risingSeason("bad")
	bad.Vegetation = bad.Vegetation[:1]
	fields := []FieldSeries{risingSeason("a"), bad, risingSeason("b")}

	results := p.RunBatch(context.Background(), fields, 4)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.True(t, errors.Is(results[1].Err, ErrInsufficientData))
	assert.NoError(t, results[2].Err)
	assert.Equal(t, "a", results[0].FieldID)
	assert.Equal(t, "bad", results[1].FieldID)
	assert.Equal(t, "b", results[2].FieldID)
}

func TestRunBatchCancelled(t *testing.T) {
	p, err := NewPipeline(DefaultConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := p.RunBatch(ctx, []FieldSeries{risingSeason("a")}, 0)
	require.Len(t, results, 1)
	// Either the field ran to completion or was skipped with the context
	// error; it is never half-finished.
	if results[0].Err != nil {
		assert.True(t, errors.Is(results[0].Err, context.Canceled))
	} else {
		assert.NotNil(t, results[0].Estimate)
	}
}

func TestSummarize(t *testing.T) {
	p, err := NewPipeline(DefaultConfig())
	require.NoError(t, err)

	bad := risingSeason("bad")
	bad.Vegetation = nil
	results := p.RunBatch(context.Background(), []FieldSeries{risingSeason("a"), risingSeason("b"), bad}, 2)

	s := Summarize(results)
	assert.Equal(t, 3, s.Fields)
	assert.Equal(t, 2, s.Predicted)
	assert.Greater(t, s.Mean, 0.0)
	assert.Equal(t, s.Min, s.Max) // identical inputs, identical yields
	assert.InDelta(t, s.Mean, s.Median, 1e-9)
}

func TestPipelineDeterministic(t *testing.T) {
	p, err := NewPipeline(DefaultConfig())
	require.NoError(t, err)

	a := p.Run(risingSeason("x"))
	b := p.Run(risingSeason("x"))
	require.NoError(t, a.Err)
	require.NoError(t, b.Err)
	assert.Equal(t, a.Estimate.GrainYieldTonHa, b.Estimate.GrainYieldTonHa)
	assert.Equal(t, len(a.Curve), len(b.Curve))

	var last time.Time
	for i, r := range a.Curve {
		if i > 0 {
			assert.True(t, r.Date.After(last))
		}
		last = r.Date
	}
}
