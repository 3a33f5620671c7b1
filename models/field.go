package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Field — field card with agronomic metadata and the ingested observation
// series. Prediction outputs are NOT stored here; they live in the
// "reports" collection (see models/report.go).
type Field struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID   primitive.ObjectID `bson:"ownerId"      json:"ownerId"`
	Name      string             `bson:"name"         json:"name"`
	Geometry  map[string]any     `bson:"geometry,omitempty" json:"geometry,omitempty"` // GeoJSON Polygon/MultiPolygon
	CreatedAt time.Time          `bson:"createdAt"    json:"createdAt"`

	Crop       string    `bson:"crop,omitempty"  json:"crop,omitempty"` // wheat | barley | etc.
	Variety    string    `bson:"variety,omitempty" json:"variety,omitempty"`
	SowingDate time.Time `bson:"sowingDate"      json:"sowingDate"`
	AreaHa     *float64  `bson:"areaHa,omitempty" json:"areaHa,omitempty"`
	Notes      string    `bson:"notes,omitempty" json:"notes,omitempty"`

	// Ingested series, kept raw. Cleaning happens at prediction time so
	// reprocessing with new thresholds never loses measured values.
	Vegetation []VegetationDoc `bson:"vegetation,omitempty" json:"vegetation,omitempty"`
	Radiation  []RadiationDoc  `bson:"radiation,omitempty"  json:"radiation,omitempty"`
}

// VegetationDoc — one vegetation-index observation as persisted. A nil
// NDVIMean means the upstream value was missing.
type VegetationDoc struct {
	Date        time.Time  `bson:"date"                  json:"date"`
	PeriodStart *time.Time `bson:"periodStart,omitempty" json:"periodStart,omitempty"`
	PeriodEnd   *time.Time `bson:"periodEnd,omitempty"   json:"periodEnd,omitempty"`

	NDVIMean *float64 `bson:"ndviMean,omitempty" json:"ndviMean,omitempty"`
	Std      *float64 `bson:"std,omitempty"      json:"std,omitempty"`
	Min      *float64 `bson:"min,omitempty"      json:"min,omitempty"`
	Max      *float64 `bson:"max,omitempty"      json:"max,omitempty"`
	P10      *float64 `bson:"p10,omitempty"      json:"p10,omitempty"`
	P25      *float64 `bson:"p25,omitempty"      json:"p25,omitempty"`
	P50      *float64 `bson:"p50,omitempty"      json:"p50,omitempty"`
	P75      *float64 `bson:"p75,omitempty"      json:"p75,omitempty"`
	P90      *float64 `bson:"p90,omitempty"      json:"p90,omitempty"`

	WasOutlier    bool     `bson:"wasOutlier,omitempty"    json:"wasOutlier,omitempty"`
	OriginalValue *float64 `bson:"originalValue,omitempty" json:"originalValue,omitempty"`
}

// RadiationDoc — one daily PAR estimate, MJ/m²/day.
type RadiationDoc struct {
	Date  time.Time `bson:"date"  json:"date"`
	PARMJ float64   `bson:"parMj" json:"parMj"`
}
