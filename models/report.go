package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReportStatus mirrors pipeline run outcomes. Prediction is synchronous,
// so a report is only ever persisted in a terminal state.
type ReportStatus string

const (
	ReportStatusReady            ReportStatus = "ready"
	ReportStatusInsufficientData ReportStatus = "insufficient_data"
	ReportStatusError            ReportStatus = "error"
)

// Report — one prediction run for one field as persisted in the "reports"
// collection. A failed run keeps its reason in ErrorMessage and never
// carries a fabricated estimate.
type Report struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OperationID string             `bson:"operation_id"  json:"operation_id"`
	FieldID     primitive.ObjectID `bson:"fieldId"       json:"fieldId"`
	OwnerID     primitive.ObjectID `bson:"ownerId"       json:"ownerId"`
	Status      ReportStatus       `bson:"status"        json:"status"`
	Regime      string             `bson:"regime"        json:"regime"` // weekly | daily
	CreatedAt   time.Time          `bson:"created_at"    json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"    json:"updated_at"`

	Curve            []BiomassDaily  `bson:"curve,omitempty"       json:"curve,omitempty"`
	Estimate         *YieldDoc       `bson:"estimate,omitempty"    json:"estimate,omitempty"`
	Corrections      []CorrectionDoc `bson:"corrections,omitempty" json:"corrections,omitempty"`
	CoverageGaps     []GapDoc        `bson:"coverageGaps,omitempty" json:"coverageGaps,omitempty"`
	OutliersReplaced int             `bson:"outliersReplaced"      json:"outliersReplaced"`
	ErrorMessage     string          `bson:"errorMessage,omitempty" json:"errorMessage,omitempty"`
}

// BiomassDaily — one simulated day of the growth curve.
type BiomassDaily struct {
	Date            time.Time `bson:"date"              json:"date"`
	DaysAfterSowing int       `bson:"das"               json:"das"`
	FAPAR           float64   `bson:"fapar"             json:"fapar"`
	PARMJ           float64   `bson:"parMj"             json:"parMj"`
	AbsorbedPAR     float64   `bson:"aparMj"            json:"aparMj"`
	RUE             float64   `bson:"rueGPerMj"         json:"rueGPerMj"`
	DailyBiomass    float64   `bson:"dailyBiomassGM2"   json:"dailyBiomassGM2"`
	Cumulative      float64   `bson:"cumBiomassGM2"     json:"cumBiomassGM2"`
}

// YieldDoc — the terminal estimate, tons per hectare.
type YieldDoc struct {
	TotalBiomassTph float64 `bson:"totalBiomassTph" json:"totalBiomassTph"`
	GrainYieldTph   float64 `bson:"grainYieldTph"   json:"grainYieldTph"`
	YieldLowTph     float64 `bson:"yieldLowTph"     json:"yieldLowTph"`
	YieldHighTph    float64 `bson:"yieldHighTph"    json:"yieldHighTph"`
	HarvestIndex    float64 `bson:"harvestIndex"    json:"harvestIndex"`
}

// CorrectionDoc — an audited invalid-range substitution.
type CorrectionDoc struct {
	Date   time.Time `bson:"date"   json:"date"`
	Reason string    `bson:"reason" json:"reason"`
	Before float64   `bson:"before" json:"before"`
	After  *float64  `bson:"after,omitempty" json:"after,omitempty"` // nil when quarantined
}

// GapDoc — a simulated-range day dropped for lack of a join partner.
type GapDoc struct {
	Date    time.Time `bson:"date"    json:"date"`
	Missing string    `bson:"missing" json:"missing"`
}
