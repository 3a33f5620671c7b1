package main

import (
	"yieldcast/agro"
	"yieldcast/models"
)

// Request/response DTOs. Keep them minimal and explicit.

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResp struct {
	Token string `json:"token"`
}

type createFieldReq struct {
	Name       string         `json:"name"`
	Crop       string         `json:"crop,omitempty"`
	Variety    string         `json:"variety,omitempty"`
	SowingDate string         `json:"sowingDate"` // YYYY-MM-DD
	AreaHa     *float64       `json:"areaHa,omitempty"`
	Notes      string         `json:"notes,omitempty"`
	Geometry   map[string]any `json:"geometry,omitempty"` // GeoJSON Polygon/MultiPolygon
}

// Ingest payloads carry raw collaborator records; key-variant
// normalization happens in agro's parser, not here.
type ingestVegetationReq struct {
	Observations []map[string]any `json:"observations"`
	Replace      bool             `json:"replace,omitempty"` // true replaces the stored series instead of appending
}

type ingestRadiationReq struct {
	Records []map[string]any `json:"records"`
	Replace bool             `json:"replace,omitempty"`
}

type ingestResp struct {
	Accepted int `json:"accepted"`
	Total    int `json:"total"`
}

type batchPredictReq struct {
	Regime string `json:"regime,omitempty"` // weekly (default) | daily
}

type batchPredictResp struct {
	Summary agro.BatchSummary `json:"summary"`
	Reports []models.Report   `json:"reports"`
}
