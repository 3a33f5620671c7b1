package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math"
	"net/http"
	"time"

	"yieldcast/agro"
	"yieldcast/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// handlePredictField runs the pipeline for one field and persists a report.
// The regime query parameter selects the cleaning/interpolation variant
// (weekly by default, daily for high-frequency feeds).
func (a *App) handlePredictField(w http.ResponseWriter, r *http.Request) {
	uid := mustUserID(r)
	f, ok := a.loadField(w, r, uid)
	if !ok {
		return
	}

	pipeline, regime, err := a.pipelineFor(r.URL.Query().Get("regime"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	series, err := seriesFromField(f)
	if err != nil {
		report := failedReport(f, regime, err)
		a.insertReport(r.Context(), &report)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(report)
		return
	}

	res := pipeline.Run(series)
	report := reportFromResult(f, regime, res)
	a.insertReport(r.Context(), &report)
	logCorrections(f.Name, res.Corrections)

	if report.Status != models.ReportStatusReady {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}
	_ = json.NewEncoder(w).Encode(report)
}

// handleGetLatestReport returns the most recent report for a field.
func (a *App) handleGetLatestReport(w http.ResponseWriter, r *http.Request) {
	uid := mustUserID(r)
	oid, ok := fieldID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var rep models.Report
	err := a.reports.FindOne(ctx,
		bson.M{"fieldId": oid, "ownerId": uid},
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	).Decode(&rep)
	if err != nil {
		http.Error(w, "no report", http.StatusNotFound)
		return
	}
	_ = json.NewEncoder(w).Encode(rep)
}

// handlePredictBatch runs the pipeline over all of the user's fields
// concurrently. Per-field failures are isolated: one field's bad data
// never aborts the rest of the batch.
func (a *App) handlePredictBatch(w http.ResponseWriter, r *http.Request) {
	uid := mustUserID(r)

	var req batchPredictReq
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
	}
	pipeline, regime, err := a.pipelineFor(req.Regime)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	cur, err := a.fields.Find(ctx, bson.M{"ownerId": uid})
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	var fields []models.Field
	if err := cur.All(ctx, &fields); err != nil {
		http.Error(w, "decode error", http.StatusInternalServerError)
		return
	}

	reports, results := a.predictFields(ctx, pipeline, regime, fields)
	_ = json.NewEncoder(w).Encode(batchPredictResp{
		Summary: agro.Summarize(results),
		Reports: reports,
	})
}

// predictFields maps fields to series, runs the batch and persists one
// report per field. Fields whose stored data cannot form a series at all
// get a failed report instead of being skipped silently.
func (a *App) predictFields(ctx context.Context, pipeline *agro.Pipeline, regime string, fields []models.Field) ([]models.Report, []agro.Result) {
	var (
		runnable []agro.FieldSeries
		index    []int // runnable position -> fields position
		reports  = make([]models.Report, len(fields))
		results  = make([]agro.Result, len(fields))
	)
	for i, f := range fields {
		series, err := seriesFromField(f)
		if err != nil {
			reports[i] = failedReport(f, regime, err)
			results[i] = agro.Result{FieldID: f.ID.Hex(), Err: err}
			continue
		}
		runnable = append(runnable, series)
		index = append(index, i)
	}

	for pos, res := range pipeline.RunBatch(ctx, runnable, a.cfg.BatchWorkers) {
		i := index[pos]
		results[i] = res
		reports[i] = reportFromResult(fields[i], regime, res)
		logCorrections(fields[i].Name, res.Corrections)
	}

	for i := range reports {
		a.insertReport(ctx, &reports[i])
	}
	return reports, results
}

func (a *App) insertReport(ctx context.Context, rep *models.Report) {
	cctx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()
	res, err := a.reports.InsertOne(cctx, rep)
	if err != nil {
		log.Printf("report insert failed for field %s: %v", rep.FieldID.Hex(), err)
		return
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		rep.ID = oid
	}
}

// logCorrections writes the invalid-range substitution audit trail.
func logCorrections(fieldName string, corrections []agro.Correction) {
	for _, c := range corrections {
		log.Printf("field %s: %s on %s: %.4f -> %.4f",
			fieldName, c.Reason, c.Date.Format("2006-01-02"), c.Before, c.After)
	}
}

// ---- conversions between persisted docs and core types ----

// seriesFromField rebuilds the core input from stored docs. The simulation
// window runs from sowing to the last day with data.
func seriesFromField(f models.Field) (agro.FieldSeries, error) {
	if f.SowingDate.IsZero() {
		return agro.FieldSeries{}, errors.New("field has no sowing date")
	}

	veg := make([]agro.VegetationObservation, 0, len(f.Vegetation))
	for _, d := range f.Vegetation {
		veg = append(veg, docToVeg(d))
	}
	rad := make([]agro.RadiationObservation, 0, len(f.Radiation))
	var end time.Time
	for _, d := range f.Radiation {
		rad = append(rad, agro.RadiationObservation{Date: d.Date, PARMJ: d.PARMJ})
		if d.Date.After(end) {
			end = d.Date
		}
	}
	if end.IsZero() {
		return agro.FieldSeries{}, errors.New("field has no radiation data")
	}

	return agro.FieldSeries{
		FieldID:    f.ID.Hex(),
		SowingDate: f.SowingDate,
		EndDate:    end,
		Vegetation: veg,
		Radiation:  rad,
	}, nil
}

func docToVeg(d models.VegetationDoc) agro.VegetationObservation {
	o := agro.VegetationObservation{
		Date:          d.Date,
		PeriodStart:   d.PeriodStart,
		PeriodEnd:     d.PeriodEnd,
		IndexMean:     math.NaN(),
		Std:           d.Std,
		Min:           d.Min,
		Max:           d.Max,
		P10:           d.P10,
		P25:           d.P25,
		P50:           d.P50,
		P75:           d.P75,
		P90:           d.P90,
		WasOutlier:    d.WasOutlier,
		OriginalValue: d.OriginalValue,
	}
	if d.NDVIMean != nil {
		o.IndexMean = *d.NDVIMean
	}
	return o
}

// reportFromResult persists one pipeline outcome. Statuses: ready when an
// estimate exists, insufficient_data when the series was too sparse,
// error for everything else.
func reportFromResult(f models.Field, regime string, res agro.Result) models.Report {
	now := time.Now().UTC()
	rep := models.Report{
		OperationID:      uuid.NewString(),
		FieldID:          f.ID,
		OwnerID:          f.OwnerID,
		Regime:           regime,
		CreatedAt:        now,
		UpdatedAt:        now,
		OutliersReplaced: res.OutliersReplaced,
	}

	for _, c := range res.Corrections {
		doc := models.CorrectionDoc{Date: c.Date, Reason: c.Reason, Before: c.Before}
		if !math.IsNaN(c.After) {
			after := c.After
			doc.After = &after
		}
		rep.Corrections = append(rep.Corrections, doc)
	}
	for _, g := range res.Gaps {
		rep.CoverageGaps = append(rep.CoverageGaps, models.GapDoc{Date: g.Date, Missing: g.Missing})
	}

	if res.Err != nil {
		rep.Status = models.ReportStatusError
		if errors.Is(res.Err, agro.ErrInsufficientData) {
			rep.Status = models.ReportStatusInsufficientData
		}
		rep.ErrorMessage = res.Err.Error()
		return rep
	}

	for _, r := range res.Curve {
		rep.Curve = append(rep.Curve, models.BiomassDaily{
			Date:            r.Date,
			DaysAfterSowing: r.DaysAfterSowing,
			FAPAR:           r.FAPAR,
			PARMJ:           r.PAR,
			AbsorbedPAR:     r.AbsorbedPAR,
			RUE:             r.RUE,
			DailyBiomass:    r.DailyBiomass,
			Cumulative:      r.Cumulative,
		})
	}
	rep.Status = models.ReportStatusReady
	rep.Estimate = &models.YieldDoc{
		TotalBiomassTph: res.Estimate.TotalBiomassTonHa,
		GrainYieldTph:   res.Estimate.GrainYieldTonHa,
		YieldLowTph:     res.Estimate.YieldLowTonHa,
		YieldHighTph:    res.Estimate.YieldHighTonHa,
		HarvestIndex:    res.Estimate.HarvestIndexUsed,
	}
	return rep
}

// failedReport covers fields that never reached the pipeline (no sowing
// date, no radiation data).
func failedReport(f models.Field, regime string, err error) models.Report {
	now := time.Now().UTC()
	return models.Report{
		OperationID:  uuid.NewString(),
		FieldID:      f.ID,
		OwnerID:      f.OwnerID,
		Regime:       regime,
		CreatedAt:    now,
		UpdatedAt:    now,
		Status:       models.ReportStatusInsufficientData,
		ErrorMessage: err.Error(),
	}
}
