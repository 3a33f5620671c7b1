package main

import (
	"context"
	"log"
	"time"

	"yieldcast/models"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// startScheduler wires the periodic recompute job. Fields that have been
// predicted at least once get a fresh report on each tick, so estimates
// track newly ingested observations without manual re-runs. Returns a stop
// function, or nil when scheduling is disabled (empty RECOMPUTE_CRON).
func (a *App) startScheduler() func() {
	if a.cfg.RecomputeCron == "" {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(a.cfg.RecomputeCron, a.recomputeAll); err != nil {
		log.Printf("scheduler disabled, bad cron spec %q: %v", a.cfg.RecomputeCron, err)
		return nil
	}
	c.Start()
	log.Printf("recompute scheduled: %s", a.cfg.RecomputeCron)
	return func() { <-c.Stop().Done() }
}

// recomputeAll re-runs the pipeline for every field with an existing
// report, keeping the regime of that field's most recent run.
func (a *App) recomputeAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fieldIDs, err := a.reports.Distinct(ctx, "fieldId", bson.M{})
	if err != nil {
		log.Printf("recompute: distinct failed: %v", err)
		return
	}
	if len(fieldIDs) == 0 {
		return
	}

	cur, err := a.fields.Find(ctx, bson.M{"_id": bson.M{"$in": fieldIDs}})
	if err != nil {
		log.Printf("recompute: field lookup failed: %v", err)
		return
	}
	var fields []models.Field
	if err := cur.All(ctx, &fields); err != nil {
		log.Printf("recompute: decode failed: %v", err)
		return
	}

	byRegime := map[string][]models.Field{}
	for _, f := range fields {
		r := a.lastRegime(ctx, f.ID)
		byRegime[r] = append(byRegime[r], f)
	}
	for regime, group := range byRegime {
		pipeline, regime, err := a.pipelineFor(regime)
		if err != nil {
			continue
		}
		reports, _ := a.predictFields(ctx, pipeline, regime, group)
		ready := 0
		for _, r := range reports {
			if r.Status == models.ReportStatusReady {
				ready++
			}
		}
		log.Printf("recompute (%s): %d/%d fields ready", regime, ready, len(group))
	}
}

// lastRegime returns the regime of a field's most recent report, weekly
// when none can be read.
func (a *App) lastRegime(ctx context.Context, fieldID primitive.ObjectID) string {
	var rep models.Report
	err := a.reports.FindOne(ctx, bson.M{"fieldId": fieldID},
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	).Decode(&rep)
	if err != nil || rep.Regime == "" {
		return "weekly"
	}
	return rep.Regime
}
