package main

import (
	"context"
	"fmt"

	"yieldcast/agro"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type App struct {
	cfg     Config
	mongo   *mongo.Client
	db      *mongo.Database
	users   *mongo.Collection
	fields  *mongo.Collection
	reports *mongo.Collection

	// One pipeline per cleaning regime, both sharing the deployment's
	// harvest index. Built once; configuration errors surface at startup.
	weekly *agro.Pipeline
	daily  *agro.Pipeline
}

func newApp(ctx context.Context, cfg Config) (*App, error) {
	weekly, daily, err := buildPipelines(cfg)
	if err != nil {
		return nil, err
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}
	db := client.Database(cfg.MongoDB)

	app := &App{
		cfg:     cfg,
		mongo:   client,
		db:      db,
		users:   db.Collection("users"),
		fields:  db.Collection("fields"),
		reports: db.Collection("reports"),
		weekly:  weekly,
		daily:   daily,
	}
	// Indexes
	if _, err := app.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return nil, err
	}
	if _, err := app.fields.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}},
	}); err != nil {
		return nil, err
	}
	if _, err := app.reports.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "fieldId", Value: 1}, {Key: "created_at", Value: -1}},
	}); err != nil {
		return nil, err
	}

	return app, nil
}

func buildPipelines(cfg Config) (weekly, daily *agro.Pipeline, err error) {
	wcfg := agro.DefaultConfig()
	wcfg.Harvest.Value = cfg.HarvestIndex
	weekly, err = agro.NewPipeline(wcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("weekly pipeline: %w", err)
	}

	dcfg := agro.DailyConfig()
	dcfg.Harvest.Value = cfg.HarvestIndex
	daily, err = agro.NewPipeline(dcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("daily pipeline: %w", err)
	}
	return weekly, daily, nil
}

// pipelineFor maps a requested regime to a pipeline; weekly is the default.
func (a *App) pipelineFor(regime string) (*agro.Pipeline, string, error) {
	switch regime {
	case "", "weekly":
		return a.weekly, "weekly", nil
	case "daily":
		return a.daily, "daily", nil
	default:
		return nil, "", fmt.Errorf("unknown regime %q (want weekly or daily)", regime)
	}
}

func (a *App) close(ctx context.Context) { _ = a.mongo.Disconnect(ctx) }
