package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"yieldcast/agro"
	"yieldcast/models"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// handleCreateField inserts a new field card.
func (a *App) handleCreateField(w http.ResponseWriter, r *http.Request) {
	uid := mustUserID(r)

	var req createFieldReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	sowing, err := time.Parse("2006-01-02", req.SowingDate)
	if err != nil {
		http.Error(w, "sowingDate must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if len(req.Geometry) > 0 {
		gt, _ := req.Geometry["type"].(string)
		if gt != "Polygon" && gt != "MultiPolygon" {
			http.Error(w, "geometry.type must be Polygon or MultiPolygon", http.StatusBadRequest)
			return
		}
	}

	f := models.Field{
		OwnerID:    uid,
		Name:       req.Name,
		Crop:       req.Crop,
		Variety:    req.Variety,
		SowingDate: sowing,
		AreaHa:     req.AreaHa,
		Notes:      req.Notes,
		Geometry:   req.Geometry,
		CreatedAt:  time.Now(),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	res, err := a.fields.InsertOne(ctx, &f)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	f.ID = res.InsertedID.(primitive.ObjectID)
	_ = json.NewEncoder(w).Encode(f)
}

// handleListFields returns the current user's fields without their series
// (the arrays get large; fetch a single field for the full payload).
func (a *App) handleListFields(w http.ResponseWriter, r *http.Request) {
	uid := mustUserID(r)
	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	cur, err := a.fields.Find(ctx, bson.M{"ownerId": uid},
		options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}}).
			SetProjection(bson.M{"vegetation": 0, "radiation": 0}),
	)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer cur.Close(ctx)

	var out []models.Field
	if err := cur.All(ctx, &out); err != nil {
		http.Error(w, "decode error", http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(out)
}

// handleGetField returns a single field by id (owned by the user).
func (a *App) handleGetField(w http.ResponseWriter, r *http.Request) {
	uid := mustUserID(r)
	f, ok := a.loadField(w, r, uid)
	if !ok {
		return
	}
	_ = json.NewEncoder(w).Encode(f)
}

// handleUpdateField updates card metadata if provided.
func (a *App) handleUpdateField(w http.ResponseWriter, r *http.Request) {
	uid := mustUserID(r)
	oid, ok := fieldID(w, r)
	if !ok {
		return
	}

	var req createFieldReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	set := bson.M{}
	if req.Name != "" {
		set["name"] = req.Name
	}
	if req.Crop != "" {
		set["crop"] = req.Crop
	}
	if req.Variety != "" {
		set["variety"] = req.Variety
	}
	if req.Notes != "" {
		set["notes"] = req.Notes
	}
	if req.AreaHa != nil {
		set["areaHa"] = req.AreaHa
	}
	if req.SowingDate != "" {
		sowing, err := time.Parse("2006-01-02", req.SowingDate)
		if err != nil {
			http.Error(w, "sowingDate must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		set["sowingDate"] = sowing
	}
	if len(req.Geometry) > 0 {
		gt, _ := req.Geometry["type"].(string)
		if gt != "Polygon" && gt != "MultiPolygon" {
			http.Error(w, "geometry.type must be Polygon or MultiPolygon", http.StatusBadRequest)
			return
		}
		set["geometry"] = req.Geometry
	}
	if len(set) == 0 {
		http.Error(w, "nothing to update", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	res := a.fields.FindOneAndUpdate(
		ctx,
		bson.M{"_id": oid, "ownerId": uid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var out models.Field
	if err := res.Decode(&out); err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	_ = json.NewEncoder(w).Encode(out)
}

// handleDeleteField removes a field and its reports.
func (a *App) handleDeleteField(w http.ResponseWriter, r *http.Request) {
	uid := mustUserID(r)
	oid, ok := fieldID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := a.fields.DeleteOne(ctx, bson.M{"_id": oid, "ownerId": uid})
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if res.DeletedCount == 0 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	_, _ = a.reports.DeleteMany(ctx, bson.M{"fieldId": oid, "ownerId": uid})
	_ = json.NewEncoder(w).Encode(bson.M{"ok": true})
}

// handleIngestVegetation accepts raw vegetation-index records, normalizes
// them through the agro parser and merges them into the stored series,
// one observation per representative date.
func (a *App) handleIngestVegetation(w http.ResponseWriter, r *http.Request) {
	uid := mustUserID(r)
	f, ok := a.loadField(w, r, uid)
	if !ok {
		return
	}

	var req ingestVegetationReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	incoming := make([]models.VegetationDoc, 0, len(req.Observations))
	for i, raw := range req.Observations {
		obs, err := agro.ParseVegetation(raw)
		if err != nil {
			http.Error(w, "observation "+itoa(i)+": "+err.Error(), http.StatusBadRequest)
			return
		}
		incoming = append(incoming, vegToDoc(obs))
	}

	existing := f.Vegetation
	if req.Replace {
		existing = nil
	}
	merged := mergeVegetation(existing, incoming)

	ctx, cancel := context.WithTimeout(r.Context(), 12*time.Second)
	defer cancel()
	if _, err := a.fields.UpdateOne(ctx,
		bson.M{"_id": f.ID, "ownerId": uid},
		bson.M{"$set": bson.M{"vegetation": merged}},
	); err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(ingestResp{Accepted: len(incoming), Total: len(merged)})
}

// handleIngestRadiation accepts raw daily radiation records; one record
// per calendar day, later ingests win.
func (a *App) handleIngestRadiation(w http.ResponseWriter, r *http.Request) {
	uid := mustUserID(r)
	f, ok := a.loadField(w, r, uid)
	if !ok {
		return
	}

	var req ingestRadiationReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	incoming := make([]models.RadiationDoc, 0, len(req.Records))
	for i, raw := range req.Records {
		obs, err := agro.ParseRadiation(raw)
		if err != nil {
			http.Error(w, "record "+itoa(i)+": "+err.Error(), http.StatusBadRequest)
			return
		}
		incoming = append(incoming, models.RadiationDoc{Date: dateOnlyUTC(obs.Date), PARMJ: obs.PARMJ})
	}

	existing := f.Radiation
	if req.Replace {
		existing = nil
	}
	merged := mergeRadiation(existing, incoming)

	ctx, cancel := context.WithTimeout(r.Context(), 12*time.Second)
	defer cancel()
	if _, err := a.fields.UpdateOne(ctx,
		bson.M{"_id": f.ID, "ownerId": uid},
		bson.M{"$set": bson.M{"radiation": merged}},
	); err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(ingestResp{Accepted: len(incoming), Total: len(merged)})
}

// ---- helpers ----

func fieldID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return primitive.NilObjectID, false
	}
	return oid, true
}

func (a *App) loadField(w http.ResponseWriter, r *http.Request, uid primitive.ObjectID) (models.Field, bool) {
	oid, ok := fieldID(w, r)
	if !ok {
		return models.Field{}, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var f models.Field
	if err := a.fields.FindOne(ctx, bson.M{"_id": oid, "ownerId": uid}).Decode(&f); err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return models.Field{}, false
	}
	return f, true
}

// mergeVegetation upserts by representative date (UTC day) and keeps the
// series sorted ascending for deterministic storage.
func mergeVegetation(existing, incoming []models.VegetationDoc) []models.VegetationDoc {
	byDay := make(map[string]models.VegetationDoc, len(existing)+len(incoming))
	for _, d := range existing {
		byDay[dateKeyUTC(d.Date)] = d
	}
	for _, d := range incoming {
		byDay[dateKeyUTC(d.Date)] = d
	}
	out := make([]models.VegetationDoc, 0, len(byDay))
	for _, d := range byDay {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func mergeRadiation(existing, incoming []models.RadiationDoc) []models.RadiationDoc {
	byDay := make(map[string]models.RadiationDoc, len(existing)+len(incoming))
	for _, d := range existing {
		byDay[dateKeyUTC(d.Date)] = d
	}
	for _, d := range incoming {
		byDay[dateKeyUTC(d.Date)] = d
	}
	out := make([]models.RadiationDoc, 0, len(byDay))
	for _, d := range byDay {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// dateOnlyUTC normalizes a timestamp to 00:00:00 UTC (one bucket per day).
func dateOnlyUTC(t time.Time) time.Time {
	tt := t.UTC()
	return time.Date(tt.Year(), tt.Month(), tt.Day(), 0, 0, 0, 0, time.UTC)
}

// dateKeyUTC formats a timestamp as "YYYY-MM-DD" in UTC to serve as a map key.
func dateKeyUTC(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func itoa(i int) string { return strconv.Itoa(i) }

// vegToDoc converts a parsed observation into its persisted form.
func vegToDoc(o agro.VegetationObservation) models.VegetationDoc {
	doc := models.VegetationDoc{
		Date:          dateOnlyUTC(o.Date),
		PeriodStart:   o.PeriodStart,
		PeriodEnd:     o.PeriodEnd,
		Std:           o.Std,
		Min:           o.Min,
		Max:           o.Max,
		P10:           o.P10,
		P25:           o.P25,
		P50:           o.P50,
		P75:           o.P75,
		P90:           o.P90,
		WasOutlier:    o.WasOutlier,
		OriginalValue: o.OriginalValue,
	}
	if o.Valid() {
		v := o.IndexMean
		doc.NDVIMean = &v
	}
	return doc
}
