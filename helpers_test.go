package main

import (
	"errors"
	"math"
	"testing"
	"time"

	"yieldcast/agro"
	"yieldcast/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fptr(v float64) *float64 { return &v }

func TestMergeVegetationUpsertsByDay(t *testing.T) {
	existing := []models.VegetationDoc{
		{Date: day(2025, 5, 1), NDVIMean: fptr(0.3)},
		{Date: day(2025, 5, 8), NDVIMean: fptr(0.4)},
	}
	incoming := []models.VegetationDoc{
		{Date: day(2025, 5, 8), NDVIMean: fptr(0.45)}, // same day, overwrites
		{Date: day(2025, 4, 24), NDVIMean: fptr(0.25)},
	}

	merged := mergeVegetation(existing, incoming)
	require.Len(t, merged, 3)

	// Sorted ascending.
	assert.Equal(t, day(2025, 4, 24), merged[0].Date)
	assert.Equal(t, day(2025, 5, 1), merged[1].Date)
	assert.Equal(t, day(2025, 5, 8), merged[2].Date)

	// Later ingest wins on collision.
	assert.Equal(t, 0.45, *merged[2].NDVIMean)
}

func TestMergeRadiationUpsertsByDay(t *testing.T) {
	existing := []models.RadiationDoc{{Date: day(2025, 5, 1), PARMJ: 9.5}}
	incoming := []models.RadiationDoc{
		{Date: day(2025, 5, 1), PARMJ: 10.1},
		{Date: day(2025, 5, 2), PARMJ: 11.0},
	}

	merged := mergeRadiation(existing, incoming)
	require.Len(t, merged, 2)
	assert.Equal(t, 10.1, merged[0].PARMJ)
	assert.Equal(t, 11.0, merged[1].PARMJ)
}

func TestDateOnlyUTC(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	ts := time.Date(2025, 6, 10, 2, 30, 0, 0, loc) // 2025-06-09 21:30 UTC

	got := dateOnlyUTC(ts)
	assert.Equal(t, day(2025, 6, 9), got)
	assert.Equal(t, "2025-06-09", dateKeyUTC(ts))
}

func TestVegDocRoundTrip(t *testing.T) {
	obs := agro.VegetationObservation{
		Date:      day(2025, 5, 1),
		IndexMean: 0.62,
		P50:       fptr(0.6),
	}

	doc := vegToDoc(obs)
	require.NotNil(t, doc.NDVIMean)
	assert.Equal(t, 0.62, *doc.NDVIMean)

	back := docToVeg(doc)
	assert.Equal(t, 0.62, back.IndexMean)
	assert.Equal(t, 0.6, *back.P50)
}

func TestVegDocMissingMean(t *testing.T) {
	obs := agro.VegetationObservation{Date: day(2025, 5, 1), IndexMean: math.NaN()}

	doc := vegToDoc(obs)
	assert.Nil(t, doc.NDVIMean)

	back := docToVeg(doc)
	assert.True(t, math.IsNaN(back.IndexMean))
}

func TestSeriesFromField(t *testing.T) {
	f := models.Field{
		ID:         primitive.NewObjectID(),
		SowingDate: day(2025, 4, 1),
		Vegetation: []models.VegetationDoc{
			{Date: day(2025, 5, 1), NDVIMean: fptr(0.4)},
			{Date: day(2025, 5, 8), NDVIMean: fptr(0.5)},
		},
		Radiation: []models.RadiationDoc{
			{Date: day(2025, 5, 1), PARMJ: 10},
			{Date: day(2025, 5, 9), PARMJ: 11},
			{Date: day(2025, 5, 3), PARMJ: 9},
		},
	}

	s, err := seriesFromField(f)
	require.NoError(t, err)
	assert.Equal(t, f.ID.Hex(), s.FieldID)
	assert.Equal(t, day(2025, 4, 1), s.SowingDate)
	// Window ends at the last day with radiation data.
	assert.Equal(t, day(2025, 5, 9), s.EndDate)
	assert.Len(t, s.Vegetation, 2)
	assert.Len(t, s.Radiation, 3)
}

func TestSeriesFromFieldRejectsIncomplete(t *testing.T) {
	_, err := seriesFromField(models.Field{SowingDate: day(2025, 4, 1)})
	assert.Error(t, err) // no radiation

	_, err = seriesFromField(models.Field{
		Radiation: []models.RadiationDoc{{Date: day(2025, 5, 1), PARMJ: 10}},
	})
	assert.Error(t, err) // no sowing date
}

func TestReportFromResultReady(t *testing.T) {
	f := models.Field{ID: primitive.NewObjectID(), OwnerID: primitive.NewObjectID()}
	res := agro.Result{
		FieldID:          f.ID.Hex(),
		OutliersReplaced: 2,
		Curve: []agro.DailyBiomassRecord{
			{Date: day(2025, 5, 1), DaysAfterSowing: 30, FAPAR: 0.5, PAR: 10, AbsorbedPAR: 5, RUE: 2.7, DailyBiomass: 13.5, Cumulative: 13.5},
		},
		Gaps: []agro.CoverageGap{{Date: day(2025, 5, 2), Missing: "radiation"}},
		Estimate: &agro.YieldEstimate{
			TotalBiomassTonHa: 10, GrainYieldTonHa: 4.5,
			YieldLowTonHa: 4, YieldHighTonHa: 5, HarvestIndexUsed: 0.45,
		},
	}

	rep := reportFromResult(f, "weekly", res)
	assert.Equal(t, models.ReportStatusReady, rep.Status)
	assert.Equal(t, "weekly", rep.Regime)
	assert.NotEmpty(t, rep.OperationID)
	assert.Equal(t, 2, rep.OutliersReplaced)
	require.Len(t, rep.Curve, 1)
	assert.Equal(t, 13.5, rep.Curve[0].Cumulative)
	require.Len(t, rep.CoverageGaps, 1)
	require.NotNil(t, rep.Estimate)
	assert.Equal(t, 4.5, rep.Estimate.GrainYieldTph)
	assert.Empty(t, rep.ErrorMessage)
}

func TestReportFromResultFailureStatuses(t *testing.T) {
	f := models.Field{ID: primitive.NewObjectID()}

	sparse := reportFromResult(f, "weekly", agro.Result{
		Err: agro.ErrInsufficientData,
	})
	assert.Equal(t, models.ReportStatusInsufficientData, sparse.Status)
	assert.Nil(t, sparse.Estimate)

	broken := reportFromResult(f, "daily", agro.Result{
		Err: errors.New("join produced nothing"),
	})
	assert.Equal(t, models.ReportStatusError, broken.Status)
	assert.Equal(t, "join produced nothing", broken.ErrorMessage)
}

func TestReportFromResultQuarantineCorrection(t *testing.T) {
	f := models.Field{ID: primitive.NewObjectID()}
	res := agro.Result{
		Corrections: []agro.Correction{
			{Date: day(2025, 6, 1), Reason: "saturated", Before: 1.0, After: 0.82},
			{Date: day(2025, 6, 8), Reason: "saturated", Before: 1.0, After: math.NaN()},
		},
		Err: agro.ErrInsufficientData,
	}

	rep := reportFromResult(f, "weekly", res)
	require.Len(t, rep.Corrections, 2)
	require.NotNil(t, rep.Corrections[0].After)
	assert.Equal(t, 0.82, *rep.Corrections[0].After)
	// Quarantined values have no substitute.
	assert.Nil(t, rep.Corrections[1].After)
}

func TestFailedReport(t *testing.T) {
	f := models.Field{ID: primitive.NewObjectID()}
	rep := failedReport(f, "weekly", errors.New("field has no radiation data"))
	assert.Equal(t, models.ReportStatusInsufficientData, rep.Status)
	assert.Equal(t, "field has no radiation data", rep.ErrorMessage)
	assert.NotEmpty(t, rep.OperationID)
}
