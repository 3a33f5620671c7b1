package agro

import (
	"math"
	"time"
)

// VegetationObservation is one canopy vegetation-index measurement for a
// field. IndexMean uses NaN for "missing". The dispersion and percentile
// statistics are diagnostic only and never enter the biomass math; P50 is
// additionally used as a substitution source when the mean is pinned at the
// valid-range ceiling (see QuarantineSaturated).
type VegetationObservation struct {
	Date        time.Time
	PeriodStart *time.Time
	PeriodEnd   *time.Time

	IndexMean float64

	Std *float64
	Min *float64
	Max *float64
	P10 *float64
	P25 *float64
	P50 *float64
	P75 *float64
	P90 *float64

	// Provenance set by the cleaner when a value is replaced. Downstream
	// diagnostics depend on distinguishing measured from imputed values.
	WasOutlier    bool
	OriginalValue *float64
}

// ObservedAt returns the representative date of the observation: the
// midpoint of the aggregation window for weekly sources, the observation
// date itself otherwise.
func (o VegetationObservation) ObservedAt() time.Time {
	if o.PeriodStart != nil && o.PeriodEnd != nil {
		return o.PeriodStart.Add(o.PeriodEnd.Sub(*o.PeriodStart) / 2)
	}
	return o.Date
}

// Valid reports whether the observation carries a usable value.
func (o VegetationObservation) Valid() bool { return !math.IsNaN(o.IndexMean) }

// RadiationObservation is one daily photosynthetically-active-radiation
// estimate for a field's location, in MJ/m²/day.
type RadiationObservation struct {
	Date  time.Time
	PARMJ float64
}

// FieldSeries is the per-field aggregate the pipeline operates on.
// SowingDate and EndDate are the inclusive bounds of the simulation.
type FieldSeries struct {
	FieldID    string
	SowingDate time.Time
	EndDate    time.Time
	Vegetation []VegetationObservation
	Radiation  []RadiationObservation
}

// Sample is one dated scalar, the unit the temporal interpolator works in.
type Sample struct {
	Date  time.Time
	Value float64
}

// dateOnly normalizes a timestamp to 00:00:00 UTC (one bucket per day).
func dateOnly(t time.Time) time.Time {
	tt := t.UTC()
	return time.Date(tt.Year(), tt.Month(), tt.Day(), 0, 0, 0, 0, time.UTC)
}

// dayKey formats a timestamp as "YYYY-MM-DD" in UTC to serve as a map key.
func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
